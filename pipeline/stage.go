package pipeline

import (
	"context"
	"time"
)

// Policy decides what a stage failure does to the rest of the run.
type Policy int

const (
	// FailFast aborts the run on failure.
	FailFast Policy = iota
	// Tolerant logs the failure and continues.
	Tolerant
	// TolerantWithFallback continues like Tolerant but records whether the
	// failure came from an external system that was not ready.
	TolerantWithFallback
)

// String returns the policy name used in logs and reports.
func (p Policy) String() string {
	switch p {
	case FailFast:
		return "fail-fast"
	case Tolerant:
		return "tolerant"
	case TolerantWithFallback:
		return "tolerant-with-fallback"
	default:
		return "unknown"
	}
}

// Action is the work a stage performs. A nil error is success.
type Action func(ctx context.Context, run *Run) error

// Stage is one named step of the pipeline.
type Stage struct {
	Name   string
	Action Action
	Policy Policy
	// Timeout bounds the action. Zero means only the global timeout applies.
	Timeout time.Duration
}

// Warning names the variant of a tolerated failure.
type Warning string

const (
	WarningNone                Warning = ""
	WarningFailureTolerated    Warning = "FAILURE_TOLERATED"
	WarningEnvironmentNotReady Warning = "ENVIRONMENT_NOT_READY"
)
