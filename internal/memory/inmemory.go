package memory

import (
	"context"
	"sync"
)

// InMemoryStore keeps memory in process. Used for local runs and tests.
type InMemoryStore struct {
	mu    sync.RWMutex
	items map[string]Memory
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{items: make(map[string]Memory)}
}

// Get returns the stored memory, or the zero Memory when none exists.
func (s *InMemoryStore) Get(_ context.Context, userID string) (Memory, error) {
	if err := validateUserID(userID); err != nil {
		return Memory{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items[userID], nil
}

// Set replaces the user's memory.
func (s *InMemoryStore) Set(_ context.Context, userID string, m Memory) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[userID] = m
	return nil
}

// Delete removes the user's memory. Deleting a missing entry is not an error.
func (s *InMemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, userID)
	return nil
}

var _ Store = (*InMemoryStore)(nil)
