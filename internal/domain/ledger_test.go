package domain

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedger_Summary(t *testing.T) {
	tests := []struct {
		name      string
		records   []float64
		wantCalls int
		wantCost  float64
	}{
		{name: "empty ledger", wantCalls: 0, wantCost: 0},
		{name: "three successful generations", records: []float64{0.002, 0.002, 0.002}, wantCalls: 3, wantCost: 0.006},
		{name: "one successful generation", records: []float64{0.002}, wantCalls: 1, wantCost: 0.002},
		{name: "rounds to four decimals", records: []float64{0.00012, 0.00001}, wantCalls: 2, wantCost: 0.0001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLedger()
			for _, c := range tt.records {
				l.Record(c)
			}

			got := l.Summary()
			assert.Equal(t, tt.wantCalls, got.Calls)
			assert.InDelta(t, tt.wantCost, got.EstimatedCost, 1e-9)
		})
	}
}

func TestLedger_ConcurrentRecord(t *testing.T) {
	l := NewLedger()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Record(DefaultCostPerCall)
		}()
	}
	wg.Wait()

	got := l.Summary()
	assert.Equal(t, 100, got.Calls, "No increments should be lost under concurrency.")
	assert.InDelta(t, 0.2, got.EstimatedCost, 1e-9)
}
