package domain

import (
	"math"
	"sync"
)

// DefaultCostPerCall is the estimated cost recorded for each successful
// draft generation.
const DefaultCostPerCall = 0.002

// Ledger accumulates the number of successful generation calls and their
// estimated cost. It is safe for concurrent use.
type Ledger struct {
	mu    sync.Mutex
	calls int
	cost  float64
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger { return &Ledger{} }

// Record adds one call with the given cost.
func (l *Ledger) Record(cost float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	l.cost += cost
}

// Summary returns the current totals with the cost rounded to 4 decimals.
func (l *Ledger) Summary() CostSummary {
	l.mu.Lock()
	defer l.mu.Unlock()
	return CostSummary{
		Calls:         l.calls,
		EstimatedCost: roundTo(l.cost, 4),
	}
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
