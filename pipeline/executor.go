// Package pipeline executes an ordered list of stages under per-stage
// failure policies and reports the outcome of the run.
//
// Stages run strictly one after another. Each action gets its own context,
// bounded by the stage timeout and by the global timeout of the executor. A
// failure either aborts the run or is tolerated depending on the stage
// Policy; some error codes always abort. After the last stage, or after an
// abort, the Hook emits exactly one notification.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/input-output-hk/catalyst-forge-release/domain"
	"github.com/input-output-hk/catalyst-forge-release/errors"
	"github.com/input-output-hk/catalyst-forge-release/identity"
)

// DefaultGracePeriod is how long the executor waits for an action to return
// after its context expired.
const DefaultGracePeriod = 5 * time.Second

// escalated codes abort the run whatever the stage policy.
var escalated = []errors.ErrorCode{
	errors.CodeArtifactNotFound,
	errors.CodeTimeout,
	errors.CodeInvalidConfig,
	errors.CodeInternal,
}

// Executor runs stages sequentially.
type Executor struct {
	logger        *slog.Logger
	strict        bool
	globalTimeout time.Duration
	grace         time.Duration
	hook          *Hook
	clock         identity.Clock
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithStrict makes TolerantWithFallback stages abort the run on failure.
func WithStrict(strict bool) Option {
	return func(e *Executor) {
		e.strict = strict
	}
}

// WithGlobalTimeout bounds the whole run. Zero disables the bound.
func WithGlobalTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.globalTimeout = d
	}
}

// WithGracePeriod sets how long to wait for an action that ignores
// cancellation.
func WithGracePeriod(d time.Duration) Option {
	return func(e *Executor) {
		e.grace = d
	}
}

// WithHook sets the post-run hook.
func WithHook(h *Hook) Option {
	return func(e *Executor) {
		e.hook = h
	}
}

// WithClock sets the clock used for stage timings.
func WithClock(c identity.Clock) Option {
	return func(e *Executor) {
		e.clock = c
	}
}

// NewExecutor creates an Executor.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		logger: slog.Default(),
		grace:  DefaultGracePeriod,
		clock:  identity.SystemClock,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes stages in order and returns the report. It never returns an
// error: every stage failure is recorded, and the hook runs exactly once
// before Run returns.
func (e *Executor) Run(ctx context.Context, run *Run, stages []Stage) (report *Report) {
	report = newReport(run, e.clock.Now())
	run.attach(report)

	defer func() {
		if p := recover(); p != nil {
			e.logger.Error("pipeline executor panicked", "panic", p, "stack", string(debug.Stack()))
			report.Status = domain.PipelineStatusFailed
			report.Reason = fmt.Sprintf("internal error: %v", p)
		}
		report.CompletedAt = e.clock.Now()
		e.logger.Info("pipeline finished",
			"run", run.ID(),
			"status", report.Status,
			"duration", report.CompletedAt.Sub(report.StartedAt))
		if e.hook != nil {
			e.hook.Execute(context.WithoutCancel(ctx), report)
		}
	}()

	runCtx := ctx
	if e.globalTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.globalTimeout)
		defer cancel()
	}

	e.logger.Info("pipeline started",
		"run", run.ID(),
		"version", run.Identity.Version,
		"timestamp", run.Identity.Timestamp,
		"stages", len(stages))

	aborted := false
	for _, stage := range stages {
		if !aborted && runCtx.Err() != nil {
			e.abortOnContext(runCtx, report, stage.Name)
			aborted = true
		}
		if aborted {
			e.logger.Info("stage skipped", "stage", stage.Name)
			report.record(StageResult{Name: stage.Name, Policy: stage.Policy, Status: domain.StageStatusSkipped})
			continue
		}

		res := e.runStage(runCtx, run, stage)
		report.record(res)

		switch {
		case res.Status == domain.StageStatusSuccess:
		case runCtx.Err() != nil:
			e.abortOnContext(runCtx, report, stage.Name)
			aborted = true
		case e.aborts(stage, res.Err):
			e.logger.Error("stage failed, aborting",
				"stage", stage.Name,
				"code", res.Code(),
				"error", res.Err)
			report.Status = domain.PipelineStatusFailed
			report.Reason = fmt.Sprintf("stage %s failed (%s)", stage.Name, res.Code())
			aborted = true
		}
	}

	if report.Status == domain.PipelineStatusRunning {
		report.Status = domain.PipelineStatusSuccess
	}
	return report
}

// abortOnContext fails the run after the global deadline or cancellation.
func (e *Executor) abortOnContext(ctx context.Context, report *Report, stage string) {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		e.logger.Error("pipeline timeout exceeded", "stage", stage, "timeout", e.globalTimeout)
		report.Status = domain.PipelineStatusFailed
		report.Reason = fmt.Sprintf("pipeline timeout of %s exceeded during %s (%s)",
			e.globalTimeout, stage, errors.CodeTimeout)
		return
	}
	e.logger.Error("pipeline cancelled", "stage", stage)
	report.Status = domain.PipelineStatusCancelled
	report.Reason = fmt.Sprintf("cancelled during %s", stage)
}

// aborts reports whether a failure ends the run.
func (e *Executor) aborts(stage Stage, err error) bool {
	for _, code := range escalated {
		if errors.HasCode(err, code) {
			return true
		}
	}
	switch stage.Policy {
	case FailFast:
		return true
	case TolerantWithFallback:
		return e.strict
	default:
		return false
	}
}

func (e *Executor) runStage(ctx context.Context, run *Run, stage Stage) StageResult {
	res := StageResult{Name: stage.Name, Policy: stage.Policy, StartedAt: e.clock.Now()}
	e.logger.Info("stage started", "stage", stage.Name, "policy", stage.Policy)

	stageCtx := ctx
	if stage.Timeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, stage.Timeout)
		defer cancel()
	}

	err := e.invoke(stageCtx, run, stage)
	res.EndedAt = e.clock.Now()

	if err == nil {
		res.Status = domain.StageStatusSuccess
		e.logger.Info("stage succeeded", "stage", stage.Name, "duration", res.Duration())
		return res
	}

	res.Status = domain.StageStatusFailed
	res.Err = err
	res.Diagnostic = diagnostic(err)

	if !e.aborts(stage, err) && ctx.Err() == nil {
		res.Warning = e.warn(stage, err)
	}
	return res
}

// warn logs a tolerated failure and returns its variant.
func (e *Executor) warn(stage Stage, err error) Warning {
	if stage.Policy == TolerantWithFallback &&
		(errors.HasCode(err, errors.CodeUnavailable) || errors.HasCode(err, errors.CodeNetwork)) {
		e.logger.Warn("external system not ready, continuing",
			"stage", stage.Name,
			"code", errors.GetCode(err),
			"error", err)
		return WarningEnvironmentNotReady
	}
	e.logger.Warn("stage failed, continuing",
		"stage", stage.Name,
		"policy", stage.Policy,
		"code", errors.GetCode(err),
		"error", err)
	return WarningFailureTolerated
}

// invoke runs the action in its own goroutine so a stuck action cannot hold
// the run past its deadline by more than the grace period.
func (e *Executor) invoke(ctx context.Context, run *Run, stage Stage) error {
	if stage.Action == nil {
		return errors.Newf(errors.CodeInternal, "stage %s has no action", stage.Name)
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- errors.Newf(errors.CodeInternal, "stage %s panicked: %v", stage.Name, p).
					WithContext("stack", string(debug.Stack()))
			}
		}()
		done <- stage.Action(ctx, run)
	}()

	select {
	case err := <-done:
		if err != nil && ctx.Err() != nil && !errors.HasCode(err, errors.CodeTimeout) {
			return contextError(ctx, stage.Name, err)
		}
		return err
	case <-ctx.Done():
		grace := time.NewTimer(e.grace)
		defer grace.Stop()
		select {
		case <-done:
		case <-grace.C:
			e.logger.Warn("stage did not stop within grace period", "stage", stage.Name, "grace", e.grace)
		}
		return contextError(ctx, stage.Name, ctx.Err())
	}
}

func contextError(ctx context.Context, stage string, cause error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.Wrapf(cause, errors.CodeTimeout, "stage %s exceeded its time limit", stage)
	}
	return errors.Wrapf(cause, errors.CodeInternal, "stage %s was cancelled", stage)
}

// diagnostic renders the error together with any collaborator output
// attached to it.
func diagnostic(err error) string {
	msg := err.Error()
	var pe *errors.PlatformError
	for e := err; errors.As(e, &pe); e = pe.Cause {
		if out, ok := pe.Context["output"].(string); ok && out != "" {
			return msg + "\n" + out
		}
	}
	return msg
}
