// Package history keeps the most recent run reports in memory so they can be
// fetched again by run ID.
package history

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ahrav/go-pitch/internal/domain"
	"github.com/ahrav/go-pitch/internal/ports"
)

// DefaultSize is the number of reports retained when no size is given.
const DefaultSize = 100

var _ ports.RunStore = (*Store)(nil)

// Store is a bounded, goroutine-safe run history. The least recently read or
// written report is evicted first.
type Store struct {
	cache *lru.Cache[string, *domain.RunResult]
}

// New creates a store holding up to size reports. A non-positive size uses
// DefaultSize.
func New(size int) (*Store, error) {
	if size <= 0 {
		size = DefaultSize
	}
	cache, err := lru.New[string, *domain.RunResult](size)
	if err != nil {
		return nil, fmt.Errorf("create run history: %w", err)
	}
	return &Store{cache: cache}, nil
}

// Put stores result under its RunID. Reports without an ID are ignored.
func (s *Store) Put(result *domain.RunResult) {
	if result == nil || result.RunID == "" {
		return
	}
	s.cache.Add(result.RunID, result)
}

// Get returns the report for id.
func (s *Store) Get(id string) (*domain.RunResult, bool) {
	return s.cache.Get(id)
}

// Len returns the number of retained reports.
func (s *Store) Len() int { return s.cache.Len() }

// Recent returns up to n report IDs, newest first.
func (s *Store) Recent(n int) []string {
	keys := s.cache.Keys()
	out := make([]string, 0, min(n, len(keys)))
	for i := len(keys) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, keys[i])
	}
	return out
}
