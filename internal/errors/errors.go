// Package errors defines stable error codes for linelog failure modes.
//
// Only setup failures are represented here. Per-step conditions of a
// lineage walk (no introducing revision, unavailable change detail,
// unextractable content) terminate the walk normally and never become
// errors.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// RepoInvalid indicates the repository location does not exist or is not a git repository
	RepoInvalid ErrorCode = "REPO_INVALID"
	// GitUnavailable indicates the git executable is missing or not runnable
	GitUnavailable ErrorCode = "GIT_UNAVAILABLE"
	// Timeout indicates an external query exceeded its deadline
	Timeout ErrorCode = "TIMEOUT"
	// OutputUnwritable indicates the report output location cannot be created or written
	OutputUnwritable ErrorCode = "OUTPUT_UNWRITABLE"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixAction suggests a command the user can run to diagnose or fix an error.
type FixAction struct {
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
}

// TraceError is an error with a stable code and optional fix suggestions.
type TraceError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error
}

// New creates a new TraceError.
func New(code ErrorCode, message string, cause error, fixes ...FixAction) *TraceError {
	return &TraceError{
		Code:           code,
		Message:        message,
		SuggestedFixes: fixes,
		cause:          cause,
	}
}

// Error implements the error interface.
func (e *TraceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *TraceError) Unwrap() error {
	return e.cause
}

// HasCode reports whether err is a TraceError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var te *TraceError
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}
