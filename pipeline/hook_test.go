package pipeline

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/input-output-hk/catalyst-forge-release/domain"
	"github.com/input-output-hk/catalyst-forge-release/errors"
	"github.com/input-output-hk/catalyst-forge-release/fs/billy"
)

type panickingNotifier struct{}

func (panickingNotifier) Notify(context.Context, domain.PipelineEvent) error {
	panic("notifier exploded")
}

func finishedReport(t *testing.T) *Report {
	t.Helper()
	run := testRun()
	run.Annotate(AnnotationCommit, "abc123")

	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	report := newReport(run, start)
	report.record(StageResult{
		Name: "build", Policy: FailFast, Status: domain.StageStatusSuccess,
		StartedAt: start, EndedAt: start.Add(2 * time.Second),
	})
	report.record(StageResult{
		Name: "publish", Policy: TolerantWithFallback, Status: domain.StageStatusFailed,
		Warning: WarningEnvironmentNotReady, Err: errors.New(errors.CodeUnavailable, "down"),
		StartedAt: start, EndedAt: start.Add(time.Second),
	})
	report.Status = domain.PipelineStatusSuccess
	report.CompletedAt = start.Add(3 * time.Second)
	return report
}

func TestHook_WritesReportAndListsOutputs(t *testing.T) {
	fsys := billy.NewInMemoryFS()
	require.NoError(t, fsys.WriteFile("/ws/billing/42/target/billing-1.0.jar", []byte("jar"), 0o644))
	require.NoError(t, fsys.WriteFile("/ws/billing/42/target/classes/App.class", []byte("cls"), 0o644))

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	n := &recordingNotifier{}
	hook := NewHook(n,
		WithHookLogger(logger),
		WithOutputDir(fsys, "/ws/billing/42/target"),
		WithReportFile(fsys, "/reports/billing-42.yaml"))

	hook.Execute(context.Background(), finishedReport(t))

	event := n.only(t)
	assert.Equal(t, domain.PipelineStatusSuccess, event.Status)
	assert.Equal(t, "abc123", event.Metadata[AnnotationCommit])
	assert.Equal(t, "publish=ENVIRONMENT_NOT_READY", event.Metadata["warnings"])
	assert.Contains(t, logs.String(), "billing-1.0.jar")

	data, err := fsys.ReadFile("/reports/billing-42.yaml")
	require.NoError(t, err)

	var doc struct {
		Run struct {
			ID        string `yaml:"id"`
			Status    string `yaml:"status"`
			CommitSHA string `yaml:"commit_sha"`
			Stages    []struct {
				Name      string `yaml:"name"`
				Warning   string `yaml:"warning"`
				ErrorCode string `yaml:"error_code"`
			} `yaml:"stages"`
		} `yaml:"run"`
		Config struct {
			AppName string `yaml:"app_name"`
		} `yaml:"config"`
		Outputs []string `yaml:"outputs"`
	}
	require.NoError(t, yaml.Unmarshal(data, &doc))

	assert.Equal(t, "billing-42", doc.Run.ID)
	assert.Equal(t, "SUCCESS", doc.Run.Status)
	assert.Equal(t, "abc123", doc.Run.CommitSHA)
	require.Len(t, doc.Run.Stages, 2)
	assert.Equal(t, "ENVIRONMENT_NOT_READY", doc.Run.Stages[1].Warning)
	assert.Equal(t, "SERVICE_UNAVAILABLE", doc.Run.Stages[1].ErrorCode)
	assert.Equal(t, "billing", doc.Config.AppName)
	assert.Equal(t, []string{"billing-1.0.jar", "classes/App.class"}, doc.Outputs)
}

func TestHook_SwallowsOwnFailures(t *testing.T) {
	fsys := billy.NewInMemoryFS()

	t.Run("notifier error and missing output dir", func(t *testing.T) {
		n := &recordingNotifier{err: errors.New(errors.CodeUnavailable, "down")}
		hook := NewHook(n, WithHookLogger(discard()), WithOutputDir(fsys, "/does/not/exist"))

		assert.NotPanics(t, func() {
			hook.Execute(context.Background(), finishedReport(t))
		})
		n.only(t)
	})

	t.Run("notifier panic", func(t *testing.T) {
		hook := NewHook(panickingNotifier{}, WithHookLogger(discard()))
		assert.NotPanics(t, func() {
			hook.Execute(context.Background(), finishedReport(t))
		})
	})
}

func TestHook_DefaultsToLogNotifier(t *testing.T) {
	var logs bytes.Buffer
	hook := NewHook(nil, WithHookLogger(slog.New(slog.NewTextHandler(&logs, nil))))

	hook.Execute(context.Background(), finishedReport(t))

	assert.Equal(t, 1, strings.Count(logs.String(), "pipeline succeeded"))
}

func TestNewEvent_FailedRun(t *testing.T) {
	report := finishedReport(t)
	report.record(StageResult{
		Name: "build-image", Policy: FailFast, Status: domain.StageStatusFailed,
		Err: errors.New(errors.CodeBuildFailed, "docker build"),
	})
	report.record(StageResult{Name: "push-image", Policy: TolerantWithFallback, Status: domain.StageStatusSkipped})
	report.Status = domain.PipelineStatusFailed
	report.Reason = "stage build-image failed (BUILD_FAILED)"

	event := NewEvent(report)

	assert.Equal(t, domain.PipelineStatusFailed, event.Status)
	assert.Equal(t, "billing-42", event.PipelineRunID)
	assert.Equal(t, "build-image", event.Metadata["failed_stage"])
	assert.Equal(t, "stage build-image failed (BUILD_FAILED)", event.Metadata["reason"])
	assert.Equal(t, "42", event.Metadata["version"])
	assert.Equal(t, "billing", event.Metadata["application"])
	assert.NotEqual(t, NewEvent(report).EventID, event.EventID)
}
