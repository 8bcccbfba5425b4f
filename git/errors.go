package git

import (
	"errors"
	"fmt"
)

// Sentinel errors that can be checked with errors.Is().

// ErrAlreadyUpToDate is returned when a fetch brought no changes.
var ErrAlreadyUpToDate = errors.New("already up to date")

// ErrAuthRequired is returned when the remote demanded credentials that
// could not be supplied.
var ErrAuthRequired = errors.New("authentication required")

// ErrBranchMissing is returned when the requested branch does not exist
// locally or on the remote.
var ErrBranchMissing = errors.New("branch does not exist")

// ErrInvalidRef is returned for malformed inputs such as empty URLs or
// branch names.
var ErrInvalidRef = errors.New("invalid reference")

// ErrResolveFailed is returned when a revision or remote cannot be resolved.
var ErrResolveFailed = errors.New("cannot resolve revision")

// ErrRemoteMismatch is returned when the workspace already holds a clone of
// a different repository.
var ErrRemoteMismatch = errors.New("workspace remote does not match")

// WrapError wraps an error with additional context while preserving
// the ability to check against sentinel errors using errors.Is().
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// WrapErrorf wraps an error with formatted context.
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
