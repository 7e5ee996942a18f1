package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-pitch/internal/domain"
)

var keyTrail = domain.NewKey[[]string]("test.trail")

type stepUnit struct {
	name        string
	err         error
	validateErr error
}

func (s stepUnit) Name() string { return s.name }

func (s stepUnit) Execute(_ context.Context, state domain.State) (domain.State, error) {
	if s.err != nil {
		return state, s.err
	}
	trail, _ := domain.Get(state, keyTrail)
	return domain.With(state, keyTrail, append(trail, s.name)), nil
}

func (s stepUnit) Validate() error { return s.validateErr }

func TestPipeline_Add(t *testing.T) {
	p := NewPipeline("p")
	require.NoError(t, p.Add(stepUnit{name: "a"}))
	assert.Error(t, p.Add(stepUnit{name: "a"}), "duplicate names are rejected")
	assert.Error(t, p.Add(nil))
	assert.Len(t, p.Units(), 1)
	assert.Equal(t, "p", p.ID())
}

func TestPipeline_Execute(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		units     []stepUnit
		wantTrail []string
		wantStage string
	}{
		{
			name:      "runs in order",
			units:     []stepUnit{{name: "a"}, {name: "b"}, {name: "c"}},
			wantTrail: []string{"a", "b", "c"},
		},
		{
			name:      "stops at first failure",
			units:     []stepUnit{{name: "a"}, {name: "b", err: boom}, {name: "c"}},
			wantTrail: []string{"a"},
			wantStage: "b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPipeline("p")
			for _, u := range tt.units {
				require.NoError(t, p.Add(u))
			}

			in := domain.With(domain.NewState(), domain.KeyRunID, "run-1")
			out, err := p.Execute(context.Background(), in)

			trail, _ := domain.Get(out, keyTrail)
			assert.Equal(t, tt.wantTrail, trail)

			if tt.wantStage == "" {
				require.NoError(t, err)
				return
			}
			var perr *domain.PipelineError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.wantStage, perr.Stage)
			assert.Equal(t, "run-1", perr.RunID)
			assert.ErrorIs(t, err, boom)
		})
	}
}

func TestPipeline_ExecuteCancelled(t *testing.T) {
	p := NewPipeline("p")
	require.NoError(t, p.Add(stepUnit{name: "a"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Execute(ctx, domain.NewState())
	var perr *domain.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "a", perr.Stage)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_Validate(t *testing.T) {
	p := NewPipeline("p")
	require.NoError(t, p.Add(stepUnit{name: "ok"}))
	require.NoError(t, p.Validate())

	require.NoError(t, p.Add(stepUnit{name: "bad", validateErr: errors.New("no client")}))
	err := p.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "unit bad: no client")
}
