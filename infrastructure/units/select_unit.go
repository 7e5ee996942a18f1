package units

import (
	"context"
	"fmt"
	"time"

	"github.com/ahrav/go-pitch/internal/domain"
	"github.com/ahrav/go-pitch/internal/ports"
)

var _ ports.Unit = (*SelectUnit)(nil)

// SelectUnit picks the winning draft and assembles the run report.
type SelectUnit struct {
	name     string
	selector domain.Selector
	now      func() time.Time
}

// NewSelectUnit creates the selection stage. A nil selector uses the stable
// max, where the first index wins ties.
func NewSelectUnit(name string, selector domain.Selector) (*SelectUnit, error) {
	if name == "" {
		return nil, ErrUnitNameEmpty
	}
	if selector == nil {
		selector = domain.StableMax{}
	}
	return &SelectUnit{name: name, selector: selector, now: time.Now}, nil
}

// Name returns the unit name.
func (u *SelectUnit) Name() string { return u.name }

// Execute selects the best scored draft and stores the RunResult. The cost
// summary is the snapshot written by the generation stage.
func (u *SelectUnit) Execute(_ context.Context, state domain.State) (domain.State, error) {
	scored, ok := domain.Get(state, domain.KeyScoredDrafts)
	if !ok {
		return state, ErrScoredDraftsMissing
	}

	best, err := u.selector.Select(scored)
	if err != nil {
		return state, fmt.Errorf("unit %s: %w", u.name, err)
	}

	costs, _ := domain.Get(state, domain.KeyCosts)
	runID, _ := domain.Get(state, domain.KeyRunID)

	result := &domain.RunResult{
		RunID:         runID,
		ChosenAgent:   best.AgentIndex,
		Score:         best.Score.FinalScore,
		ScoredDetails: scored,
		Costs:         costs,
		CreatedAt:     u.now().UTC(),
	}
	return domain.With(state, domain.KeyRunResult, result), nil
}

// Validate checks the unit configuration.
func (u *SelectUnit) Validate() error {
	if u.selector == nil {
		return fmt.Errorf("selector is not configured")
	}
	return nil
}
