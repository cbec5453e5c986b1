package gatews

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignalFirstWriteWins(t *testing.T) {
	s := newSignal[int]()

	_, ok := s.Value()
	require.False(t, ok)

	require.True(t, s.Set(1))
	require.False(t, s.Set(2))

	v, ok := s.Value()
	require.True(t, ok)
	require.Equal(t, 1, v)

	select {
	case <-s.Done():
	default:
		t.Fatal("done channel should be closed after Set")
	}
}

func TestSignalConcurrentWriters(t *testing.T) {
	s := newSignal[int]()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var winners []int

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if s.Set(i) {
				mu.Lock()
				winners = append(winners, i)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, winners, 1, "exactly one writer must win")

	v, ok := s.Value()
	require.True(t, ok)
	require.Equal(t, winners[0], v)
}
