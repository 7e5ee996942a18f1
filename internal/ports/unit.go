// Package ports defines the interfaces that separate the domain and
// application layers from infrastructure.
package ports

import (
	"context"

	"github.com/ahrav/go-pitch/internal/domain"
)

// Unit is one stage of the drafting pipeline. A Unit reads what earlier
// stages left in State and returns a new State with its own output added.
// Units must not mutate the State they receive and must be safe for
// concurrent use across runs.
type Unit interface {
	// Name returns a unique identifier used in logs, metrics and errors.
	Name() string

	// Execute performs the unit's transformation. Failures that the unit
	// absorbs by design (a draft that could not be generated, a judge that
	// returned garbage) are not errors; an error aborts the whole run.
	//
	// Example:
	//
	//	next, err := unit.Execute(ctx, state)
	//	if err != nil {
	//	    return state, fmt.Errorf("unit %s failed: %w", unit.Name(), err)
	//	}
	Execute(ctx context.Context, state domain.State) (domain.State, error)

	// Validate checks that the unit has everything it needs to run.
	Validate() error
}
