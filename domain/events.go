package domain

import "time"

// PipelineEvent is emitted once when a run reaches a terminal status.
type PipelineEvent struct {
	// EventID is a unique identifier for this event.
	EventID string `json:"event_id"`

	// Timestamp is when the event was generated.
	Timestamp time.Time `json:"timestamp"`

	// PipelineRunID references the run.
	PipelineRunID string `json:"pipeline_run_id"`

	// Status is the terminal run status.
	Status PipelineStatus `json:"status"`

	// Metadata contains additional context such as version and failed stage.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ArtifactEvent is emitted after an artifact has been published.
type ArtifactEvent struct {
	// EventID is a unique identifier for this event.
	EventID string `json:"event_id"`

	// Timestamp is when the event was generated.
	Timestamp time.Time `json:"timestamp"`

	// ArtifactID identifies the artifact, e.g. its file name or image name.
	ArtifactID string `json:"artifact_id"`

	// Type indicates the type of artifact.
	Type ArtifactType `json:"type"`

	// URI is where the artifact was published.
	URI string `json:"uri"`

	// Digest is the content digest, when the target reports one.
	Digest string `json:"digest,omitempty"`
}
