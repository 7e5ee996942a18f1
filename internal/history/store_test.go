package history

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-pitch/internal/domain"
)

func run(id string) *domain.RunResult {
	return &domain.RunResult{RunID: id, ChosenAgent: 1}
}

func TestStore(t *testing.T) {
	t.Run("put and get", func(t *testing.T) {
		s, err := New(2)
		require.NoError(t, err)

		s.Put(run("a"))
		got, ok := s.Get("a")
		require.True(t, ok)
		assert.Equal(t, "a", got.RunID)

		_, ok = s.Get("missing")
		assert.False(t, ok)
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		s, err := New(2)
		require.NoError(t, err)

		s.Put(run("a"))
		s.Put(run("b"))
		_, _ = s.Get("a")
		s.Put(run("c"))

		assert.Equal(t, 2, s.Len())
		_, ok := s.Get("b")
		assert.False(t, ok, "b was least recently used")
		_, ok = s.Get("a")
		assert.True(t, ok)
	})

	t.Run("ignores nil and unnamed reports", func(t *testing.T) {
		s, err := New(0)
		require.NoError(t, err)
		s.Put(nil)
		s.Put(&domain.RunResult{})
		assert.Equal(t, 0, s.Len())
	})

	t.Run("recent is newest first", func(t *testing.T) {
		s, err := New(10)
		require.NoError(t, err)
		for _, id := range []string{"a", "b", "c"} {
			s.Put(run(id))
		}
		assert.Equal(t, []string{"c", "b"}, s.Recent(2))
		assert.Equal(t, []string{"c", "b", "a"}, s.Recent(10))
	})
}

func TestStore_Concurrent(t *testing.T) {
	s, err := New(50)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("run-%d", i)
			s.Put(run(id))
			_, _ = s.Get(id)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, s.Len())
}
