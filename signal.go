package gatews

import "sync"

// signal is a write-once, read-many cell. The first Set wins; every later Set is
// ignored. Readers either poll with Value or select on Done, and all of them
// observe the same value once it is published.
type signal[T any] struct {
	once  sync.Once
	doneC chan struct{}
	value T
}

func newSignal[T any]() *signal[T] {
	return &signal[T]{doneC: make(chan struct{})}
}

// Set publishes the value and reports whether this call was the effective one.
// Safe to call from any goroutine, any number of times.
func (s *signal[T]) Set(v T) (first bool) {
	s.once.Do(func() {
		s.value = v
		close(s.doneC)
		first = true
	})
	return
}

// Done returns a channel closed once a value has been published.
func (s *signal[T]) Done() <-chan struct{} {
	return s.doneC
}

// Value returns the published value, if any.
func (s *signal[T]) Value() (T, bool) {
	select {
	case <-s.doneC:
		return s.value, true
	default:
		var zero T
		return zero, false
	}
}
