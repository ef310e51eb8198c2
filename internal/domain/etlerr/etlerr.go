// Package etlerr defines the engine's error taxonomy.
//
// Per-item kinds (validation, extraction, transient_io) are recorded by the
// batch scheduler and never abort a run. job_fatal aborts the run and seals
// its job as failed.
//
//	if etlerr.IsFatal(err) {
//	    // seal the job, re-raise to the caller
//	}
package etlerr

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error.
type Kind string

// Error kinds.
const (
	KindValidation  Kind = "validation"
	KindExtraction  Kind = "extraction"
	KindTransientIO Kind = "transient_io"
	KindJobFatal    Kind = "job_fatal"
	KindNotFound    Kind = "not_found"
)

// Error carries a kind, the failing operation and a caller-visible reason.
type Error struct {
	Kind   Kind
	Op     string
	Reason string
	cause  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Reason
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches another *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// Sentinels for errors.Is.
var (
	ErrValidation  = &Error{Kind: KindValidation, Reason: "validation failed"}
	ErrExtraction  = &Error{Kind: KindExtraction, Reason: "extraction failed"}
	ErrTransientIO = &Error{Kind: KindTransientIO, Reason: "collaborator call failed"}
	ErrJobFatal    = &Error{Kind: KindJobFatal, Reason: "job aborted"}
	ErrNotFound    = &Error{Kind: KindNotFound, Reason: "not found"}
)

// Validation reports malformed or incomplete input.
func Validation(op, reason string) *Error {
	return &Error{Kind: KindValidation, Op: op, Reason: reason}
}

// Extraction reports unusable collaborator data.
func Extraction(op, reason string) *Error {
	return &Error{Kind: KindExtraction, Op: op, Reason: reason}
}

// Transient wraps a failed collaborator call.
func Transient(op string, err error) *Error {
	return &Error{Kind: KindTransientIO, Op: op, Reason: "collaborator call failed", cause: err}
}

// Fatal wraps a condition that aborts the whole run.
func Fatal(op string, err error) *Error {
	return &Error{Kind: KindJobFatal, Op: op, Reason: "job aborted", cause: err}
}

// NotFound reports a missing entity.
func NotFound(op, what string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Reason: what + " not found"}
}

// IsFatal reports whether err aborts a run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrJobFatal)
}

// KindOf returns the kind of err, or "" when err is not an engine error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ReasonOf returns the caller-visible reason for err.
func ReasonOf(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.cause == nil {
		return e.Reason
	}
	return err.Error()
}
