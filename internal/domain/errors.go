package domain

import (
	"errors"
	"fmt"
)

// Error phases.
const (
	PhaseConfig   = "config"
	PhaseScan     = "scan"
	PhaseParse    = "parse"
	PhaseCompile  = "compile"
	PhaseExecute  = "execute"
	PhaseArtifact = "artifact"
	PhaseCleanup  = "cleanup"
	PhaseTemplate = "template"
	PhaseWrite    = "write"
	PhaseStorage  = "storage"
	PhaseServe    = "serve"
)

// RunnerError is the base error type with context.
type RunnerError struct {
	Phase      string // one of the Phase* constants
	File       string
	LineNumber int
	Message    string
	Suggestion string
	Cause      error
}

func (e *RunnerError) Error() string {
	s := fmt.Sprintf("[%s]", e.Phase)
	if e.File != "" {
		s += fmt.Sprintf(" %s", e.File)
	}
	if e.LineNumber > 0 {
		s += fmt.Sprintf(":%d", e.LineNumber)
	}
	s += fmt.Sprintf(": %s", e.Message)
	if e.Cause != nil {
		s += fmt.Sprintf(": %v", e.Cause)
	}
	if e.Suggestion != "" {
		s += fmt.Sprintf("\n  suggestion: %s", e.Suggestion)
	}
	return s
}

func (e *RunnerError) Unwrap() error {
	return e.Cause
}

// NewError creates a new RunnerError.
func NewError(phase, file string, line int, message string, cause error) *RunnerError {
	return &RunnerError{
		Phase:      phase,
		File:       file,
		LineNumber: line,
		Message:    message,
		Cause:      cause,
	}
}

// NewErrorWithSuggestion creates a RunnerError carrying a hint for the user.
func NewErrorWithSuggestion(phase, file string, line int, message, suggestion string, cause error) *RunnerError {
	e := NewError(phase, file, line, message, cause)
	e.Suggestion = suggestion
	return e
}

// ValidationError reports a malformed run request or draft. It is returned
// synchronously and never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError formats a ValidationError.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// StepExecutionError is a browser-driver or assertion failure for one step.
// The executor converts it into a failed StepResult.
type StepExecutionError struct {
	Index    int
	StepType StepType
	Message  string
	Cause    error
}

func (e *StepExecutionError) Error() string {
	return fmt.Sprintf("step %d (%s): %s", e.Index, e.StepType, e.Message)
}

func (e *StepExecutionError) Unwrap() error {
	return e.Cause
}

// SharedSetupError is raised when the shared steps of a batch fail.
type SharedSetupError struct {
	Index   int
	Message string
}

func (e *SharedSetupError) Error() string {
	return fmt.Sprintf("shared steps failed at step %d: %s", e.Index, e.Message)
}
