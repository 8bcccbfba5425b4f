// Package domain provides the canonical data types shared by the release
// pipeline: run and stage records, status enumerations and the events emitted
// when a run finishes or an artifact is published.
//
// The package is dependency free and contains no behaviour beyond small
// helpers on enumerations. Struct tags cover the JSON form used by webhook
// notifications and the YAML form used by run reports.
//
// A finished run is described by a PipelineRun with one StageExecution per
// declared stage, in declaration order:
//
//	run := domain.PipelineRun{
//	    ID:         "orders-api-42",
//	    Repository: "https://github.com/acme/orders-api.git",
//	    Branch:     "main",
//	    Version:    "42",
//	    Status:     domain.PipelineStatusSuccess,
//	}
//
// Enumerations:
//
//   - PipelineStatus: PENDING, RUNNING, SUCCESS, FAILED, CANCELLED
//   - StageStatus: SUCCESS, FAILED, SKIPPED
//   - ArtifactType: CONTAINER, BINARY, ARCHIVE, PACKAGE
package domain
