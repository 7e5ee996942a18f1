package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ahrav/go-pitch/internal/domain"
	"github.com/ahrav/go-pitch/internal/ports"
)

// Pipeline runs units in strict order, feeding each unit's output state to
// the next. Any failure aborts the run and is reported as a
// *domain.PipelineError naming the failed stage.
type Pipeline struct {
	id    string
	units []ports.Unit
	names map[string]struct{}
	mu    sync.RWMutex
}

// NewPipeline creates an empty pipeline.
func NewPipeline(id string) *Pipeline {
	return &Pipeline{id: id, names: make(map[string]struct{})}
}

// ID returns the pipeline identifier.
func (p *Pipeline) ID() string { return p.id }

// Add appends a unit. Unit names must be unique within the pipeline.
func (p *Pipeline) Add(u ports.Unit) error {
	if u == nil {
		return fmt.Errorf("cannot add nil unit to pipeline %s", p.id)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.names[u.Name()]; exists {
		return fmt.Errorf("unit %s already exists in pipeline %s", u.Name(), p.id)
	}
	p.units = append(p.units, u)
	p.names[u.Name()] = struct{}{}
	return nil
}

// Units returns a copy of the ordered units.
func (p *Pipeline) Units() []ports.Unit {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]ports.Unit, len(p.units))
	copy(out, p.units)
	return out
}

// Execute runs every unit in order. Cancellation is checked between units.
func (p *Pipeline) Execute(ctx context.Context, state domain.State) (domain.State, error) {
	runID, _ := domain.Get(state, domain.KeyRunID)

	current := state
	for _, u := range p.Units() {
		if err := ctx.Err(); err != nil {
			return current, domain.NewPipelineError(runID, u.Name(), err)
		}
		next, err := u.Execute(ctx, current)
		if err != nil {
			return current, domain.NewPipelineError(runID, u.Name(), err)
		}
		current = next
	}
	return current, nil
}

// Validate validates every unit and joins the failures.
func (p *Pipeline) Validate() error {
	var errs []error
	for _, u := range p.Units() {
		if err := u.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("unit %s: %w", u.Name(), err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, errors.Join(errs...))
}
