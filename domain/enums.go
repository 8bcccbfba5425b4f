package domain

// PipelineStatus represents the execution status of a pipeline run.
type PipelineStatus string

const (
	// PipelineStatusPending indicates the run is configured but no stage has started.
	PipelineStatusPending PipelineStatus = "PENDING"

	// PipelineStatusRunning indicates stages are executing.
	PipelineStatusRunning PipelineStatus = "RUNNING"

	// PipelineStatusSuccess indicates no fail-fast stage failed.
	PipelineStatusSuccess PipelineStatus = "SUCCESS"

	// PipelineStatusFailed indicates a fail-fast failure or a timeout.
	PipelineStatusFailed PipelineStatus = "FAILED"

	// PipelineStatusCancelled indicates the run was interrupted by a signal.
	PipelineStatusCancelled PipelineStatus = "CANCELLED"
)

// String returns the string representation of the PipelineStatus.
func (s PipelineStatus) String() string {
	return string(s)
}

// Terminal reports whether the status is final.
func (s PipelineStatus) Terminal() bool {
	switch s {
	case PipelineStatusSuccess, PipelineStatusFailed, PipelineStatusCancelled:
		return true
	default:
		return false
	}
}

// StageStatus is the outcome of a single stage.
type StageStatus string

const (
	// StageStatusSuccess indicates the stage action reported success.
	StageStatusSuccess StageStatus = "SUCCESS"

	// StageStatusFailed indicates the stage action reported failure or timed out.
	StageStatusFailed StageStatus = "FAILED"

	// StageStatusSkipped indicates the stage never ran because the run was aborted.
	StageStatusSkipped StageStatus = "SKIPPED"
)

// String returns the string representation of the StageStatus.
func (s StageStatus) String() string {
	return string(s)
}

// ArtifactType represents the type of a published artifact.
type ArtifactType string

const (
	// ArtifactTypeContainer represents container images.
	ArtifactTypeContainer ArtifactType = "CONTAINER"

	// ArtifactTypeBinary represents compiled executable binaries.
	ArtifactTypeBinary ArtifactType = "BINARY"

	// ArtifactTypeArchive represents compressed archives (tar.gz, zip, etc).
	ArtifactTypeArchive ArtifactType = "ARCHIVE"

	// ArtifactTypePackage represents language packages such as jar files.
	ArtifactTypePackage ArtifactType = "PACKAGE"
)

// String returns the string representation of the ArtifactType.
func (t ArtifactType) String() string {
	return string(t)
}
