// Package errors provides the structured error model used across the release
// pipeline. Every error that crosses a package boundary carries an ErrorCode so
// the stage executor can decide how a failure is treated without inspecting
// message text.
package errors

// ErrorCode represents a specific error condition in the release pipeline.
// Error codes are string-based for debuggability and natural JSON/YAML serialization.
type ErrorCode string

const (
	// Resource errors.

	// CodeNotFound indicates a requested resource does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeArtifactNotFound indicates no build output could be located.
	CodeArtifactNotFound ErrorCode = "ARTIFACT_NOT_FOUND"

	// Permission errors.

	// CodeUnauthorized indicates the request lacks valid authentication credentials.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// Validation errors.

	// CodeInvalidInput indicates the provided input is invalid or malformed.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInvalidConfig indicates a configuration error prevents the operation.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIGURATION"

	// CodeSchemaFailed indicates the data failed schema validation.
	CodeSchemaFailed ErrorCode = "SCHEMA_VALIDATION_FAILED"

	// Infrastructure errors.

	// CodeNetwork indicates a network operation failed.
	CodeNetwork ErrorCode = "NETWORK_ERROR"

	// CodeTimeout indicates an operation exceeded its time limit.
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeUnavailable indicates a remote endpoint is unreachable or not yet provisioned.
	CodeUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// Execution errors.

	// CodeExecutionFailed indicates an external tool returned failure.
	CodeExecutionFailed ErrorCode = "EXECUTION_FAILED"

	// CodeBuildFailed indicates a build operation failed.
	CodeBuildFailed ErrorCode = "BUILD_FAILED"

	// CodePublishFailed indicates a publish operation failed.
	CodePublishFailed ErrorCode = "PUBLISH_FAILED"

	// System errors.

	// CodeInternal indicates an internal system error occurred.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// Generic errors.

	// CodeUnknown indicates an unknown or unclassified error occurred.
	CodeUnknown ErrorCode = "UNKNOWN"
)

// IsRetryable reports whether errors with this code are transient.
func (c ErrorCode) IsRetryable() bool {
	switch c {
	case CodeNetwork, CodeTimeout, CodeUnavailable:
		return true
	default:
		return false
	}
}

// Kind returns the pipeline-level error kind name for the code.
func (c ErrorCode) Kind() string {
	switch c {
	case CodeInvalidConfig, CodeInvalidInput, CodeSchemaFailed:
		return "ConfigurationError"
	case CodeArtifactNotFound:
		return "ArtifactNotFoundError"
	case CodeTimeout:
		return "TimeoutExceeded"
	case CodeUnavailable, CodeNetwork:
		return "EnvironmentNotReadyError"
	case CodeExecutionFailed, CodeBuildFailed, CodePublishFailed, CodeUnauthorized:
		return "CollaboratorInvocationError"
	default:
		return "InternalError"
	}
}
