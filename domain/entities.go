package domain

import "time"

// PipelineRun is the record of one pipeline execution.
type PipelineRun struct {
	// ID identifies the run, formed from the application name and version.
	ID string `json:"id" yaml:"id"`

	// Application is the application name the run releases.
	Application string `json:"application" yaml:"application"`

	// Repository is the source repository URL.
	Repository string `json:"repository" yaml:"repository"`

	// Branch is the branch that was checked out.
	Branch string `json:"branch" yaml:"branch"`

	// CommitSHA is the checked out revision, empty if checkout never completed.
	CommitSHA string `json:"commit_sha,omitempty" yaml:"commit_sha,omitempty"`

	// Version is the artifact version (the build counter).
	Version string `json:"version" yaml:"version"`

	// Timestamp is the build timestamp in YYYYMMDD_HHMMSS form.
	Timestamp string `json:"timestamp" yaml:"timestamp"`

	// Status is the overall run status.
	Status PipelineStatus `json:"status" yaml:"status"`

	// Reason explains a failed status, e.g. the stage that aborted the run.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// Stages holds one entry per declared stage in declaration order.
	Stages []StageExecution `json:"stages" yaml:"stages"`

	// StartedAt is when the first stage started.
	StartedAt time.Time `json:"started_at" yaml:"started_at"`

	// CompletedAt is when the last stage concluded.
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// StageExecution is the record of one stage within a run.
type StageExecution struct {
	// Name is the stage name.
	Name string `json:"name" yaml:"name"`

	// Policy is the failure policy the stage ran under.
	Policy string `json:"policy" yaml:"policy"`

	// Status is the stage outcome.
	Status StageStatus `json:"status" yaml:"status"`

	// Warning names the tolerated-failure variant, empty when none applies.
	Warning string `json:"warning,omitempty" yaml:"warning,omitempty"`

	// ErrorCode is the classified error code for failed stages.
	ErrorCode string `json:"error_code,omitempty" yaml:"error_code,omitempty"`

	// Diagnostic is the collected diagnostic text.
	Diagnostic string `json:"diagnostic,omitempty" yaml:"diagnostic,omitempty"`

	// Duration is how long the stage action ran.
	Duration time.Duration `json:"duration" yaml:"duration"`
}
