package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/input-output-hk/catalyst-forge-release/config"
	"github.com/input-output-hk/catalyst-forge-release/domain"
	"github.com/input-output-hk/catalyst-forge-release/fs"
	"github.com/input-output-hk/catalyst-forge-release/identity"
)

// Hook runs once after the executor concludes. Nothing it does can change
// the outcome of the run: its own failures are logged and dropped.
type Hook struct {
	notifier Notifier
	logger   *slog.Logger

	outputFS  fs.Filesystem
	outputDir string

	reportFS   fs.Filesystem
	reportPath string
}

// HookOption configures a Hook.
type HookOption func(*Hook)

// WithHookLogger sets the logger.
func WithHookLogger(logger *slog.Logger) HookOption {
	return func(h *Hook) {
		h.logger = logger
	}
}

// WithOutputDir enables listing of the build output directory.
func WithOutputDir(fsys fs.Filesystem, dir string) HookOption {
	return func(h *Hook) {
		h.outputFS = fsys
		h.outputDir = dir
	}
}

// WithReportFile enables writing the YAML run report to path.
func WithReportFile(fsys fs.Filesystem, path string) HookOption {
	return func(h *Hook) {
		h.reportFS = fsys
		h.reportPath = path
	}
}

// NewHook creates a hook. A nil notifier logs the notification.
func NewHook(notifier Notifier, opts ...HookOption) *Hook {
	h := &Hook{
		notifier: notifier,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.notifier == nil {
		h.notifier = NewLogNotifier(h.logger)
	}
	return h
}

// Execute emits the notification, lists the build outputs and writes the
// report.
func (h *Hook) Execute(ctx context.Context, report *Report) {
	defer func() {
		if p := recover(); p != nil {
			h.logger.Error("post-run hook panicked", "panic", p, "stack", string(debug.Stack()))
		}
	}()

	event := NewEvent(report)
	if err := h.notifier.Notify(ctx, event); err != nil {
		h.logger.Error("failed to deliver notification", "event_id", event.EventID, "error", err)
	}

	outputs := h.inspect()

	if h.reportFS != nil && h.reportPath != "" {
		if err := h.writeReport(report, outputs); err != nil {
			h.logger.Warn("failed to write run report", "path", h.reportPath, "error", err)
		} else {
			h.logger.Info("run report written", "path", h.reportPath)
		}
	}
}

// inspect lists the regular files under the output directory.
func (h *Hook) inspect() []string {
	if h.outputFS == nil || h.outputDir == "" {
		return nil
	}

	exists, err := h.outputFS.Exists(h.outputDir)
	if err != nil || !exists {
		h.logger.Warn("build output directory not found", "dir", h.outputDir, "error", err)
		return nil
	}

	var files []string
	err = h.outputFS.Walk(h.outputDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, relErr := filepath.Rel(h.outputDir, path)
		if relErr != nil {
			rel = path
		}
		files = append(files, filepath.ToSlash(rel))
		h.logger.Info("build output", "file", filepath.ToSlash(rel), "size", info.Size())
		return nil
	})
	if err != nil {
		h.logger.Warn("failed to list build outputs", "dir", h.outputDir, "error", err)
	}

	sort.Strings(files)
	return files
}

func (h *Hook) writeReport(report *Report, outputs []string) error {
	data, err := MarshalReport(report, outputs)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(h.reportPath); dir != "." {
		if err := h.reportFS.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return h.reportFS.WriteFile(h.reportPath, data, 0o644)
}

// NewEvent builds the terminal notification for report.
func NewEvent(report *Report) domain.PipelineEvent {
	rec := report.Record()
	meta := map[string]string{
		"application": rec.Application,
		"version":     rec.Version,
		"timestamp":   rec.Timestamp,
	}
	if rec.Reason != "" {
		meta["reason"] = rec.Reason
	}

	var warnings []string
	for _, st := range rec.Stages {
		switch {
		case st.Status == domain.StageStatusFailed && st.Warning == "":
			meta["failed_stage"] = st.Name
		case st.Warning != "":
			warnings = append(warnings, st.Name+"="+st.Warning)
		}
	}
	if len(warnings) > 0 {
		meta["warnings"] = strings.Join(warnings, ",")
	}
	if report.Run != nil {
		for k, v := range report.Run.Annotations() {
			meta[k] = v
		}
	}

	return domain.PipelineEvent{
		EventID:       uuid.NewString(),
		Timestamp:     time.Now().UTC(),
		PipelineRunID: rec.ID,
		Status:        rec.Status,
		Metadata:      meta,
	}
}

type reportDocument struct {
	Run         domain.PipelineRun     `yaml:"run"`
	Identity    identity.BuildIdentity `yaml:"identity"`
	Config      config.PipelineConfig  `yaml:"config"`
	Annotations map[string]string      `yaml:"annotations,omitempty"`
	Outputs     []string               `yaml:"outputs,omitempty"`
}

// MarshalReport renders the run report as YAML. The configuration carries
// the credential reference only.
func MarshalReport(report *Report, outputs []string) ([]byte, error) {
	doc := reportDocument{
		Run:     report.Record(),
		Outputs: outputs,
	}
	if report.Run != nil {
		doc.Identity = report.Run.Identity
		doc.Config = report.Run.Config
		doc.Annotations = report.Run.Annotations()
	}
	return yaml.Marshal(doc)
}
