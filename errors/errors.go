package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"strings"
)

// PlatformError is an error annotated with a code, a human readable message
// and optional structured context.
type PlatformError struct {
	// Code classifies the failure.
	Code ErrorCode
	// Message describes the failure for operators.
	Message string
	// Context holds structured attributes, e.g. the stage or URL involved.
	Context map[string]interface{}
	// Cause is the wrapped error, if any.
	Cause error
}

// Error implements the error interface.
func (e *PlatformError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the wrapped error.
func (e *PlatformError) Unwrap() error {
	return e.Cause
}

// Is matches any PlatformError carrying the same code, so sentinel values
// created with New can be used with errors.Is.
func (e *PlatformError) Is(target error) bool {
	var t *PlatformError
	if !stderrors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// WithContext returns a copy of the error with key set to value.
func (e *PlatformError) WithContext(key string, value interface{}) *PlatformError {
	cp := *e
	cp.Context = make(map[string]interface{}, len(e.Context)+1)
	maps.Copy(cp.Context, e.Context)
	cp.Context[key] = value
	return &cp
}

// New creates a PlatformError with the given code and message.
func New(code ErrorCode, message string) *PlatformError {
	return &PlatformError{Code: code, Message: message}
}

// Newf creates a PlatformError with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *PlatformError {
	return &PlatformError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message. It returns nil if err is nil.
func Wrap(err error, code ErrorCode, message string) error {
	if err == nil {
		return nil
	}
	return &PlatformError{Code: code, Message: message, Cause: err}
}

// Wrapf annotates err with a code and a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &PlatformError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WrapWithContext annotates err with a code, message and structured context.
func WrapWithContext(err error, code ErrorCode, message string, ctx map[string]interface{}) error {
	if err == nil {
		return nil
	}
	pe := &PlatformError{Code: code, Message: message, Cause: err}
	if len(ctx) > 0 {
		pe.Context = maps.Clone(ctx)
	}
	return pe
}

// GetCode returns the code of the outermost PlatformError in the chain, or
// CodeUnknown if there is none.
func GetCode(err error) ErrorCode {
	var pe *PlatformError
	if stderrors.As(err, &pe) {
		return pe.Code
	}
	return CodeUnknown
}

// HasCode reports whether any PlatformError in the chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var pe *PlatformError
		if !stderrors.As(err, &pe) {
			return false
		}
		if pe.Code == code {
			return true
		}
		err = pe.Cause
	}
	return false
}

// IsRetryable reports whether err carries a retryable code.
func IsRetryable(err error) bool {
	return GetCode(err).IsRetryable()
}

// Is, As and Join re-export the standard library helpers so callers importing
// this package do not need a second errors import.
var (
	Is   = stderrors.Is
	As   = stderrors.As
	Join = stderrors.Join
)
