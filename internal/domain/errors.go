package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur while running the pipeline.
var (
	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrMissingState indicates that a pipeline stage did not find the data
	// an earlier stage should have produced.
	ErrMissingState = errors.New("missing state")
)

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}

// PipelineError reports an unexpected failure that aborted a run. Draft
// generation and judging failures are absorbed and never surface as a
// PipelineError.
type PipelineError struct {
	// RunID identifies the aborted run.
	RunID string

	// Stage is the name of the pipeline unit that failed.
	Stage string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface for PipelineError.
func (e *PipelineError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("pipeline error: run=%s: %v", e.RunID, e.Err)
	}
	return fmt.Sprintf("pipeline error: run=%s, stage=%s: %v", e.RunID, e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *PipelineError) Unwrap() error { return e.Err }

// NewPipelineError creates a new PipelineError with the given details.
func NewPipelineError(runID, stage string, err error) *PipelineError {
	return &PipelineError{RunID: runID, Stage: stage, Err: err}
}
