package pipeline

import (
	"log/slog"
	"maps"
	"sync"

	"github.com/input-output-hk/catalyst-forge-release/config"
	"github.com/input-output-hk/catalyst-forge-release/identity"
)

// Well-known annotation keys set by stages.
const (
	AnnotationCommit      = "commit_sha"
	AnnotationArtifact    = "artifact"
	AnnotationArtifactURI = "artifact_uri"
	AnnotationImage       = "image"
)

// Run is the context handed to every stage action. Config and Identity are
// fixed for the lifetime of the run.
type Run struct {
	Config   config.PipelineConfig
	Identity identity.BuildIdentity
	Logger   *slog.Logger

	mu          sync.Mutex
	annotations map[string]string
	report      *Report
}

// NewRun creates a run. A nil logger means slog.Default().
func NewRun(cfg config.PipelineConfig, id identity.BuildIdentity, logger *slog.Logger) *Run {
	if logger == nil {
		logger = slog.Default()
	}
	return &Run{
		Config:      cfg,
		Identity:    id,
		Logger:      logger,
		annotations: make(map[string]string),
	}
}

// ID identifies the run as <app>-<version>.
func (r *Run) ID() string {
	return r.Config.AppName + "-" + r.Identity.Version
}

// Workspace returns the directory isolating this run.
func (r *Run) Workspace() string {
	return r.Config.RunWorkspace(r.Identity.Version)
}

// Annotate records a fact discovered by a stage, such as the checked out
// commit. Annotations end up in the notification metadata and the report.
func (r *Run) Annotate(key, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.annotations == nil {
		r.annotations = make(map[string]string)
	}
	r.annotations[key] = value
}

// Annotation returns the value recorded for key.
func (r *Run) Annotation(key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.annotations[key]
	return v, ok
}

// Annotations returns a copy of all annotations.
func (r *Run) Annotations() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.annotations)
}

// Results returns the results recorded so far, in declaration order.
func (r *Run) Results() []StageResult {
	r.mu.Lock()
	report := r.report
	r.mu.Unlock()
	if report == nil {
		return nil
	}
	return report.Snapshot()
}

func (r *Run) attach(report *Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.report = report
}
