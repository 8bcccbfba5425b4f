package pipeline

import (
	"sync"
	"time"

	"github.com/input-output-hk/catalyst-forge-release/domain"
	"github.com/input-output-hk/catalyst-forge-release/errors"
)

// StageResult is the outcome of one declared stage.
type StageResult struct {
	Name   string
	Policy Policy
	Status domain.StageStatus
	// Warning is set only for failures that were tolerated.
	Warning    Warning
	Diagnostic string
	Err        error
	StartedAt  time.Time
	EndedAt    time.Time
}

// Duration returns how long the stage ran. Skipped stages report zero.
func (r StageResult) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// Code returns the error code of a failed stage, or "" otherwise.
func (r StageResult) Code() errors.ErrorCode {
	if r.Err == nil {
		return ""
	}
	return errors.GetCode(r.Err)
}

// Report collects the results of one run.
type Report struct {
	Run         *Run
	Status      domain.PipelineStatus
	Reason      string
	StartedAt   time.Time
	CompletedAt time.Time

	mu      sync.Mutex
	results []StageResult
}

func newReport(run *Run, started time.Time) *Report {
	return &Report{
		Run:       run,
		Status:    domain.PipelineStatusRunning,
		StartedAt: started,
	}
}

func (r *Report) record(res StageResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

// Snapshot returns a copy of the recorded results.
func (r *Report) Snapshot() []StageResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]StageResult, len(r.results))
	copy(out, r.results)
	return out
}

// Result returns the result of the named stage.
func (r *Report) Result(name string) (StageResult, bool) {
	for _, res := range r.Snapshot() {
		if res.Name == name {
			return res, true
		}
	}
	return StageResult{}, false
}

// Failed reports whether the run ended in failure or was cancelled.
func (r *Report) Failed() bool {
	return r.Status == domain.PipelineStatusFailed || r.Status == domain.PipelineStatusCancelled
}

// Warnings returns the tolerated failures.
func (r *Report) Warnings() []StageResult {
	var out []StageResult
	for _, res := range r.Snapshot() {
		if res.Warning != WarningNone {
			out = append(out, res)
		}
	}
	return out
}

// Record converts the report into the domain record of the run.
func (r *Report) Record() domain.PipelineRun {
	rec := domain.PipelineRun{
		Status:    r.Status,
		Reason:    r.Reason,
		StartedAt: r.StartedAt,
	}
	if !r.CompletedAt.IsZero() {
		completed := r.CompletedAt
		rec.CompletedAt = &completed
	}
	if r.Run != nil {
		rec.ID = r.Run.ID()
		rec.Application = r.Run.Config.AppName
		rec.Repository = r.Run.Config.RepoURL
		rec.Branch = r.Run.Config.Branch
		rec.Version = r.Run.Identity.Version
		rec.Timestamp = r.Run.Identity.Timestamp
		rec.CommitSHA, _ = r.Run.Annotation(AnnotationCommit)
	}

	for _, res := range r.Snapshot() {
		rec.Stages = append(rec.Stages, domain.StageExecution{
			Name:       res.Name,
			Policy:     res.Policy.String(),
			Status:     res.Status,
			Warning:    string(res.Warning),
			ErrorCode:  string(res.Code()),
			Diagnostic: res.Diagnostic,
			Duration:   res.Duration(),
		})
	}
	return rec
}
