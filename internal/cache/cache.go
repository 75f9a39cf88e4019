package cache

import "sync/atomic"

// Snapshot is a lock-free, read-optimized container
// holding any immutable structure.
type Snapshot[T any] struct{ v atomic.Value }

type boxed[T any] struct{ v T }

// Load returns the stored value, or the zero value if none is stored yet.
func (s *Snapshot[T]) Load() T {
	b, ok := s.v.Load().(boxed[T])
	if !ok {
		var z T
		return z
	}
	return b.v
}

// Store atomically swaps in the new value.
func (s *Snapshot[T]) Store(v T) {
	s.v.Store(boxed[T]{v: v})
}
