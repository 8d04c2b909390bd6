package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// MemoryRecord is one row of coach_memory. Data is the JSON document.
type MemoryRecord struct {
	UserID    string
	Data      []byte
	UpdatedAt time.Time
}

// queryer is the part of *sql.DB the repository uses
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// MemoryRepository handles coach_memory rows
type MemoryRepository struct {
	db queryer
}

// NewMemoryRepository creates a new memory repository
func NewMemoryRepository(db *DB) *MemoryRepository {
	return &MemoryRepository{db: db}
}

// GetByUserID returns the row for userID, or nil when there is none.
func (r *MemoryRepository) GetByUserID(ctx context.Context, userID string) (*MemoryRecord, error) {
	rec := &MemoryRecord{}
	query := `
		SELECT user_id, data, updated_at
		FROM coach_memory
		WHERE user_id = $1
	`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(&rec.UserID, &rec.Data, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get memory: %w", err)
	}

	return rec, nil
}

// Upsert inserts or replaces the document for userID.
func (r *MemoryRepository) Upsert(ctx context.Context, userID string, data []byte) error {
	query := `
		INSERT INTO coach_memory (user_id, data, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, userID, data, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to upsert memory: %w", err)
	}
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM coach_memory WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	return nil
}
