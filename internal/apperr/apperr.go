// Package apperr defines the error kinds taskman operations fail with.
//
// Backend failures are returned as *backend.CommandError. Everything else
// that a caller may need to distinguish is an *Error whose Kind is one of the
// sentinels below, so errors.Is works across wrapping.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no agent-state directory is found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when an init or create target is present.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidOperation is returned for structural misuse.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrDirtyWorktree is returned when removal would discard local changes.
	ErrDirtyWorktree = errors.New("worktree has local changes")
)

// Error is a classified failure with an optional remediation hint.
type Error struct {
	Kind error
	Msg  string
	Fix  string
}

// New returns an *Error of kind with a formatted message.
func New(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WithFix attaches a remediation hint.
func (e *Error) WithFix(format string, args ...any) *Error {
	e.Fix = fmt.Sprintf(format, args...)
	return e
}

func (e *Error) Error() string {
	if e.Fix == "" {
		return e.Msg
	}
	return e.Msg + "\n" + e.Fix
}

func (e *Error) Unwrap() error { return e.Kind }
