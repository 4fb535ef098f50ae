package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const performerColumns = "id, name, dedup_key, created_at, updated_at"

// GetPerformer fetches one performer by id.
func (s *Store) GetPerformer(ctx context.Context, id string) (*Performer, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+performerColumns+" FROM performers WHERE id = ?", id)
	performer, err := scanPerformer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("performer %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get performer: %w", err)
	}
	return performer, nil
}

// UpsertPerformer finds the performer with the given dedup key, creating it
// with the supplied display name when absent.
func (s *Store) UpsertPerformer(ctx context.Context, name, dedupKey string) (*Performer, error) {
	if dedupKey == "" {
		return nil, errors.New("dedup key required")
	}
	ctx = ensureContext(ctx)

	row := s.db.QueryRowContext(ctx,
		"SELECT "+performerColumns+" FROM performers WHERE dedup_key = ?", dedupKey)
	performer, err := scanPerformer(row)
	if err == nil {
		return performer, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup performer: %w", err)
	}

	id := uuid.NewString()
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.execWithRetry(
		ctx,
		"INSERT INTO performers (id, name, dedup_key, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		id, name, dedupKey, timestamp, timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert performer: %w", err)
	}
	return s.GetPerformer(ctx, id)
}

func scanPerformer(scanner interface{ Scan(dest ...any) error }) (*Performer, error) {
	var (
		id         string
		name       string
		dedupKey   string
		createdRaw sql.NullString
		updatedRaw sql.NullString
	)
	if err := scanner.Scan(&id, &name, &dedupKey, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	return &Performer{
		ID:        id,
		Name:      name,
		DedupKey:  dedupKey,
		CreatedAt: parseTime(createdRaw),
		UpdatedAt: parseTime(updatedRaw),
	}, nil
}
