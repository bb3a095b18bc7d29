// Package slot provides a single-occupancy registration: at most one
// occupant at a time, and the previous occupant is released when it is
// replaced or cleared.
package slot

import "sync"

// Slot holds at most one value of type T. The zero value is an empty slot
// that releases nothing.
type Slot[T any] struct {
	mu       sync.Mutex
	value    T
	occupied bool
	release  func(T)
}

// New returns an empty slot that calls release on every occupant that is
// replaced or cleared. release may be nil.
func New[T any](release func(T)) *Slot[T] {
	return &Slot[T]{release: release}
}

// Set stores v, releasing the previous occupant if there was one.
func (s *Slot[T]) Set(v T) {
	s.mu.Lock()
	prev, had := s.value, s.occupied
	s.value, s.occupied = v, true
	s.mu.Unlock()

	if had {
		s.releaseValue(prev)
	}
}

// Clear empties the slot, releasing the occupant if there was one.
func (s *Slot[T]) Clear() {
	var zero T
	s.mu.Lock()
	prev, had := s.value, s.occupied
	s.value, s.occupied = zero, false
	s.mu.Unlock()

	if had {
		s.releaseValue(prev)
	}
}

// Get returns the occupant and whether there is one.
func (s *Slot[T]) Get() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.occupied
}

// Occupied reports whether the slot holds a value.
func (s *Slot[T]) Occupied() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.occupied
}

// release runs outside the lock so it may touch the slot again.
func (s *Slot[T]) releaseValue(v T) {
	if s.release != nil {
		s.release(v)
	}
}

// ClearIf empties the slot when the occupant satisfies match. It reports
// whether the slot was cleared.
func (s *Slot[T]) ClearIf(match func(T) bool) bool {
	var zero T
	s.mu.Lock()
	if !s.occupied || !match(s.value) {
		s.mu.Unlock()
		return false
	}
	prev := s.value
	s.value, s.occupied = zero, false
	s.mu.Unlock()

	s.releaseValue(prev)
	return true
}
