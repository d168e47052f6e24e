// Package inventory tracks current stock counts for a fixed set of parts.
package inventory

import (
	"errors"
	"sync"
)

// ErrUnknownPart is returned when adjusting a part that is not tracked.
// The store is pre-seeded and does not create parts dynamically.
var ErrUnknownPart = errors.New("inventory: unknown part")

// Store holds current stock levels. Adjust calls are serialized; there is
// no history, only the current count per part.
type Store struct {
	mu    sync.Mutex
	stock map[string]int
}

// New creates a store pre-seeded with the given stock levels.
func New(initial map[string]int) *Store {
	stock := make(map[string]int, len(initial))
	for name, count := range initial {
		stock[name] = count
	}
	return &Store{stock: stock}
}

// Levels returns a copy of the current stock mapping.
func (s *Store) Levels() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.stock))
	for name, count := range s.stock {
		out[name] = count
	}
	return out
}

// Adjust changes a part's stock by delta and returns the new level.
// Unknown parts return ErrUnknownPart and leave the store untouched.
func (s *Store) Adjust(partName string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count, ok := s.stock[partName]
	if !ok {
		return 0, ErrUnknownPart
	}
	count += delta
	s.stock[partName] = count
	return count, nil
}
