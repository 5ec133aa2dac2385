// Package errors provides the structured error taxonomy shared by the
// orchestration core (spec.md §7). Errors preserve message and causal
// context while implementing the standard error interface so callers can
// branch on Kind via errors.As instead of matching error strings.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure into one of the categories the orchestrator
// reacts to differently: validation failures stay inside a tool call,
// transient/auth failures bubble to the session result, parse failures are
// retried at the phase level, and worker crashes are synthesized terminal
// events.
type Kind string

const (
	// KindValidation covers security-hook denials and schema-invalid tool
	// input. Always non-retryable at the tool-call level; the session itself
	// continues.
	KindValidation Kind = "validation"
	// KindTransient covers rate limits and transient network failures.
	// Retryable by the caller.
	KindTransient Kind = "transient"
	// KindAuth covers authentication failures. Non-retryable once a refresh
	// attempt has already been made.
	KindAuth Kind = "auth"
	// KindParse covers plan/report parse failures. Retried up to
	// MAX_PHASE_RETRIES by the owning orchestrator.
	KindParse Kind = "parse"
	// KindCancelled is not really an error but is modeled as one so it can
	// flow through the same Kind/Retryable machinery; orchestrators must
	// treat it as a distinct terminal outcome, not a failure to report.
	KindCancelled Kind = "cancelled"
	// KindWorkerCrash covers a worker that exited without publishing a
	// result. Terminal and non-retryable.
	KindWorkerCrash Kind = "worker_crash"
)

// Error is a structured failure that preserves a Kind, a human-readable
// message, and an optional cause chain. Error chains survive serialization
// across the worker boundary so callers can reconstruct Kind after crossing
// a goroutine or process boundary.
type Error struct {
	// Kind classifies the failure for orchestrator-level branching.
	Kind Kind
	// Message is the human-readable summary of the failure.
	Message string
	// Code is an optional machine-readable sub-classification (e.g. a
	// provider error code or HTTP status embedded as a string).
	Code string
	// retryableSet/retryable override the default retryability for Kind when
	// set explicitly via WithRetryable; zero value defers to Kind's default.
	retryableSet bool
	retryable    bool
	// Cause links to the underlying error, enabling chains with errors.Is/As.
	Cause *Error
}

// New constructs an Error of the given kind with the provided message.
func New(kind Kind, message string) *Error {
	if message == "" {
		message = string(kind)
	}
	return &Error{Kind: kind, Message: message}
}

// Errorf formats according to a format specifier and returns the result as
// an Error of the given kind.
func Errorf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap converts an arbitrary error into an Error chain of the given kind.
// The outer Error always carries kind; if cause is already an *Error it is
// kept unchanged as the Cause, so its own Kind stays reachable on the chain.
func Wrap(kind Kind, message string, cause error) *Error {
	if cause == nil {
		return New(kind, message)
	}
	if message == "" {
		message = cause.Error()
	}
	return &Error{Kind: kind, Message: message, Cause: FromError(cause)}
}

// FromError converts an arbitrary error into an Error chain, preserving
// Kind when the error (or one of its wrapped causes) is already an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindTransient, Message: err.Error(), Cause: FromError(errors.Unwrap(err))}
}

// WithRetryable overrides the default retryability computed from Kind. Use
// when a specific failure instance is known to be retryable or not
// regardless of its general category (e.g. a provider-specific error code
// inside an otherwise-transient class).
func (e *Error) WithRetryable(retryable bool) *Error {
	if e == nil {
		return nil
	}
	e.retryableSet = true
	e.retryable = retryable
	return e
}

// WithCode attaches a machine-readable sub-classification to the error.
func (e *Error) WithCode(code string) *Error {
	if e == nil {
		return nil
	}
	e.Code = code
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}
	return e.Message
}

// Unwrap returns the underlying error to support errors.Is/As.
func (e *Error) Unwrap() error {
	if e == nil || e.Cause == nil {
		return nil
	}
	return e.Cause
}

// Retryable reports whether the caller may retry the operation that
// produced this error without changing the request. Validation, auth, and
// worker-crash failures are non-retryable by default; transient and parse
// failures are retryable by default. An explicit WithRetryable call always
// wins.
func (e *Error) Retryable() bool {
	if e == nil {
		return false
	}
	if e.retryableSet {
		return e.retryable
	}
	switch e.Kind {
	case KindTransient, KindParse:
		return true
	default:
		return false
	}
}
