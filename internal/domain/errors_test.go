package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("RunRequest")
		err.AddError("prospect must not be empty")

		assert.Equal(t, "validation error for RunRequest: prospect must not be empty", err.Error())
		assert.True(t, err.HasErrors(), "Should have errors")
		assert.Len(t, err.Errors, 1, "Should have one error")
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := NewValidationError("Config")
		err.AddError("no personas")
		err.AddError("weights must sum to 100")

		assert.Equal(t, "validation errors for Config: [no personas weights must sum to 100]", err.Error())
		assert.Len(t, err.Errors, 2)
	})

	t.Run("no errors", func(t *testing.T) {
		err := NewValidationError("Config")
		assert.False(t, err.HasErrors(), "Should not have errors")
	})
}

func TestPipelineError(t *testing.T) {
	tests := []struct {
		name    string
		runID   string
		stage   string
		err     error
		wantMsg string
	}{
		{
			name:    "with stage",
			runID:   "r1",
			stage:   "score",
			err:     ErrMissingState,
			wantMsg: "pipeline error: run=r1, stage=score: missing state",
		},
		{
			name:    "without stage",
			runID:   "r2",
			err:     context.Canceled,
			wantMsg: "pipeline error: run=r2: context canceled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewPipelineError(tt.runID, tt.stage, tt.err)

			assert.Equal(t, tt.wantMsg, err.Error())
			assert.True(t, errors.Is(err, tt.err), "Should unwrap to underlying error")

			var pe *PipelineError
			assert.True(t, errors.As(error(err), &pe))
			assert.Equal(t, tt.stage, pe.Stage)
		})
	}
}
