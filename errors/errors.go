// Package errors provides typed error handling for the limit fuzzer.
//
// This package defines domain-specific error types that enable better error
// classification, debugging, and user feedback. All errors support the standard
// errors.Is() and errors.As() functions for error inspection.
package errors

import (
	"errors"
	"fmt"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// ErrConfiguration indicates bad input discovered before any child is
	// spawned: an unparseable flag, a malformed filter file, stdin that
	// can't be opened, an unknown limit name.
	ErrConfiguration ErrorKind = iota
	// ErrSpawn indicates the parent failed to set up the plumbing for a
	// child run: pipe creation, fork, or the rlimit re-exec step itself
	// failing before the target command is ever reached.
	ErrSpawn
	// ErrChild indicates the spawned process's own failure: it exited
	// nonzero, was killed by a signal, or the target binary could not be
	// exec'd. This is an expected, reportable outcome, not a run abort.
	ErrChild
	// ErrTransientRead indicates EAGAIN/EINTR encountered while draining a
	// pipe or reaping a child; callers retry internally and this kind
	// should never escape the spawn package.
	ErrTransientRead
	// ErrInternal indicates an invariant violation: an unrecognized wait
	// status, a reaped pid that doesn't match the spawned child, or a
	// setrlimit call that fails in a way the fuzzer has no policy for.
	ErrInternal
)

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrConfiguration:
		return "configuration error"
	case ErrSpawn:
		return "spawn error"
	case ErrChild:
		return "child error"
	case ErrTransientRead:
		return "transient read error"
	case ErrInternal:
		return "internal invariant violation"
	default:
		return "unknown error"
	}
}

// FuzzError represents an error that occurred during a fuzzer operation.
type FuzzError struct {
	// Op is the operation that failed (e.g., "probe", "bisect", "sweep").
	Op string
	// Limit is the resource limit name involved, if applicable.
	Limit string
	// Err is the underlying error.
	Err error
	// Kind is the error classification.
	Kind ErrorKind
	// Detail provides additional context about the error.
	Detail string
}

// Error returns the error message.
func (e *FuzzError) Error() string {
	if e == nil {
		return "<nil>"
	}

	var msg string
	if e.Limit != "" {
		msg = fmt.Sprintf("%s: ", e.Limit)
	}
	if e.Op != "" {
		msg += fmt.Sprintf("%s: ", e.Op)
	}
	if e.Detail != "" {
		msg += e.Detail
	} else {
		msg += e.Kind.String()
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *FuzzError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether the error matches the target.
// It matches if the target is a *FuzzError with the same Kind.
func (e *FuzzError) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	if t, ok := target.(*FuzzError); ok {
		return e.Kind == t.Kind
	}
	return false
}

// New creates a new FuzzError with the given kind.
func New(kind ErrorKind, op string, detail string) *FuzzError {
	return &FuzzError{
		Op:     op,
		Kind:   kind,
		Detail: detail,
	}
}

// Wrap wraps an error with operation context.
func Wrap(err error, kind ErrorKind, op string) *FuzzError {
	return &FuzzError{
		Op:   op,
		Err:  err,
		Kind: kind,
	}
}

// WrapWithLimit wraps an error with operation context and the limit name it
// concerns.
func WrapWithLimit(err error, kind ErrorKind, op string, limit string) *FuzzError {
	return &FuzzError{
		Op:    op,
		Limit: limit,
		Err:   err,
		Kind:  kind,
	}
}

// WrapWithDetail wraps an error with additional detail.
func WrapWithDetail(err error, kind ErrorKind, op string, detail string) *FuzzError {
	return &FuzzError{
		Op:     op,
		Err:    err,
		Kind:   kind,
		Detail: detail,
	}
}

// IsKind checks if an error is of a specific kind.
func IsKind(err error, kind ErrorKind) bool {
	var ferr *FuzzError
	if errors.As(err, &ferr) {
		return ferr.Kind == kind
	}
	return false
}

// GetKind returns the error kind if the error is a FuzzError.
func GetKind(err error) (ErrorKind, bool) {
	var ferr *FuzzError
	if errors.As(err, &ferr) {
		return ferr.Kind, true
	}
	return 0, false
}

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)
