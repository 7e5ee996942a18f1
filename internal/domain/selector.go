package domain

import "errors"

// ErrNoCandidates is returned when selection is attempted over no drafts.
var ErrNoCandidates = errors.New("no scored drafts to select from")

// Selector defines the strategy used to pick the winning draft from the
// scored drafts of a run.
type Selector interface {
	// Select returns the winning draft. The input is in agent index order
	// and must not be empty.
	Select(scored []ScoredDraft) (ScoredDraft, error)
}

// StableMax selects the draft with the highest final score. When several
// drafts share the highest score, the one appearing first wins.
type StableMax struct{}

// Select implements Selector.
func (StableMax) Select(scored []ScoredDraft) (ScoredDraft, error) {
	if len(scored) == 0 {
		return ScoredDraft{}, ErrNoCandidates
	}

	best := 0
	for i := 1; i < len(scored); i++ {
		// Strictly greater keeps the earliest index on ties.
		if scored[i].Score.FinalScore > scored[best].Score.FinalScore {
			best = i
		}
	}
	return scored[best], nil
}
