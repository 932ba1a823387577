package stages

import (
	"errors"
	"fmt"
)

// Error is a stage failure with provenance and a transient/terminal
// classification. The classification is attached by the stage that produced
// the failure, never inferred by the scheduler.
type Error struct {
	Stage     string
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	kind := "terminal"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("stage %s: %s failure: %v", e.Stage, kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewTransient wraps err as a transient stage failure.
func NewTransient(stage string, err error) *Error {
	return &Error{Stage: stage, Transient: true, Err: err}
}

// NewTerminal wraps err as a terminal stage failure.
func NewTerminal(stage string, err error) *Error {
	return &Error{Stage: stage, Transient: false, Err: err}
}

// IsTransient reports whether err is classified as retryable.
func IsTransient(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Transient
	}
	var te *TransientError
	return errors.As(err, &te)
}

// StageOf returns the failing stage's identifier, or "" if unknown.
func StageOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// TransientError marks a completion-service failure as retryable. The
// client boundary wraps rate-limit, timeout and network errors with it.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }

func (e *TransientError) Unwrap() error { return e.Err }

// MarkTransient wraps err as transient at the completion boundary.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}
