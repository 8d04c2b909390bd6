package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/benvon/insight-coach/internal/database"
)

// MemoryRepository is the row-level API PostgresStore persists through
type MemoryRepository interface {
	GetByUserID(ctx context.Context, userID string) (*database.MemoryRecord, error)
	Upsert(ctx context.Context, userID string, data []byte) error
	Delete(ctx context.Context, userID string) error
}

// PostgresStore keeps memory as one JSONB row per user.
type PostgresStore struct {
	repo MemoryRepository
}

// NewPostgresStore creates a store backed by repo
func NewPostgresStore(repo MemoryRepository) *PostgresStore {
	return &PostgresStore{repo: repo}
}

// Get returns the stored memory, or the zero Memory when none exists.
func (s *PostgresStore) Get(ctx context.Context, userID string) (Memory, error) {
	if err := validateUserID(userID); err != nil {
		return Memory{}, err
	}

	rec, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return Memory{}, err
	}
	if rec == nil || len(rec.Data) == 0 {
		return Memory{}, nil
	}

	var m Memory
	if err := json.Unmarshal(rec.Data, &m); err != nil {
		return Memory{}, fmt.Errorf("failed to unmarshal memory: %w", err)
	}
	return m, nil
}

// Set replaces the user's memory.
func (s *PostgresStore) Set(ctx context.Context, userID string, m Memory) error {
	if err := validateUserID(userID); err != nil {
		return err
	}

	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal memory: %w", err)
	}
	return s.repo.Upsert(ctx, userID, b)
}

// Delete removes the user's memory. Deleting a missing entry is not an error.
func (s *PostgresStore) Delete(ctx context.Context, userID string) error {
	return s.repo.Delete(ctx, userID)
}

var (
	_ Store            = (*PostgresStore)(nil)
	_ MemoryRepository = (*database.MemoryRepository)(nil)
)
