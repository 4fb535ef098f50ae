package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const contentColumns = "id, title, description, type, duration_seconds, original_date, processed, uploaded, raw_url, audio_url, thumbnail_url, stream_url, source, external_id, external_url, performer_id, dedup_key, created_at, updated_at"

// PlaceholderParams describes the row inserted at register time.
type PlaceholderParams struct {
	Title           string
	Description     string
	Type            string
	DurationSeconds int
	OriginalDate    time.Time
	Source          string
	ExternalID      string
	ExternalURL     string
	PerformerID     string
	DedupKey        string
}

// CreatePlaceholder inserts an unprocessed record and returns its new id.
// The id is the object-storage path prefix for the item's artifacts.
func (s *Store) CreatePlaceholder(ctx context.Context, params PlaceholderParams) (string, error) {
	if params.Title == "" {
		return "", errors.New("title required")
	}
	if params.DedupKey == "" {
		return "", errors.New("dedup key required")
	}
	recordType := params.Type
	if recordType == "" {
		recordType = TypeVideo
	}

	id := uuid.NewString()
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO content_records (
            id, title, description, type, duration_seconds, original_date,
            processed, uploaded, source, external_id, external_url,
            performer_id, dedup_key, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		params.Title,
		nullableString(params.Description),
		recordType,
		params.DurationSeconds,
		nullableTime(params.OriginalDate),
		nullableString(params.Source),
		nullableString(params.ExternalID),
		nullableString(params.ExternalURL),
		nullableString(params.PerformerID),
		params.DedupKey,
		timestamp,
		timestamp,
	)
	if err != nil {
		return "", fmt.Errorf("insert placeholder: %w", err)
	}
	return id, nil
}

// FinalizeParams carries the artifact URLs written after upload.
type FinalizeParams struct {
	RawURL       string
	AudioURL     string
	ThumbnailURL string
	StreamURL    string
}

// Finalize marks a placeholder processed and uploaded and records the
// artifact URLs.
func (s *Store) Finalize(ctx context.Context, id string, params FinalizeParams) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE content_records SET
            processed = 1, uploaded = 1,
            raw_url = ?, audio_url = ?, thumbnail_url = ?, stream_url = ?,
            updated_at = ?
        WHERE id = ?`,
		nullableString(params.RawURL),
		nullableString(params.AudioURL),
		nullableString(params.ThumbnailURL),
		nullableString(params.StreamURL),
		timestamp,
		id,
	)
	if err != nil {
		return fmt.Errorf("finalize record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finalize record: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("finalize record %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetContent fetches one record by id.
func (s *Store) GetContent(ctx context.Context, id string) (*ContentRecord, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+contentColumns+" FROM content_records WHERE id = ?", id)
	record, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("content %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get content: %w", err)
	}
	return record, nil
}

// ListContent returns records newest first. limit <= 0 returns everything.
func (s *Store) ListContent(ctx context.Context, limit int) ([]*ContentRecord, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + contentColumns + " FROM content_records ORDER BY created_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	defer rows.Close()

	var records []*ContentRecord
	for rows.Next() {
		record, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list content: %w", err)
	}
	return records, nil
}

// DedupKeyExists reports whether any record carries the key.
func (s *Store) DedupKeyExists(ctx context.Context, key string) (bool, error) {
	ctx = ensureContext(ctx)
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM content_records WHERE dedup_key = ?", key).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("dedup lookup: %w", err)
	}
	return count > 0, nil
}

// PruneStalePlaceholders deletes unprocessed records created before cutoff
// and returns how many were removed. These are rows left behind by runs that
// died between register and finalize.
func (s *Store) PruneStalePlaceholders(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		"DELETE FROM content_records WHERE processed = 0 AND created_at < ?",
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("prune placeholders: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune placeholders: rows affected: %w", err)
	}
	return affected, nil
}

// Stats summarizes the store for status reporting.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	var stats Stats
	err := s.db.QueryRowContext(ctx, `SELECT
        COUNT(1),
        COALESCE(SUM(processed), 0),
        COALESCE(SUM(CASE WHEN processed = 0 THEN 1 ELSE 0 END), 0)
        FROM content_records`).
		Scan(&stats.TotalRecords, &stats.ProcessedCount, &stats.PlaceholderCount)
	if err != nil {
		return Stats{}, fmt.Errorf("content stats: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM performers").Scan(&stats.PerformerCount); err != nil {
		return Stats{}, fmt.Errorf("performer stats: %w", err)
	}
	return stats, nil
}

func scanContent(scanner interface{ Scan(dest ...any) error }) (*ContentRecord, error) {
	var (
		id           string
		title        string
		description  sql.NullString
		recordType   string
		duration     int
		originalRaw  sql.NullString
		processed    int
		uploaded     int
		rawURL       sql.NullString
		audioURL     sql.NullString
		thumbnailURL sql.NullString
		streamURL    sql.NullString
		sourceTag    sql.NullString
		externalID   sql.NullString
		externalURL  sql.NullString
		performerID  sql.NullString
		dedupKey     string
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&title,
		&description,
		&recordType,
		&duration,
		&originalRaw,
		&processed,
		&uploaded,
		&rawURL,
		&audioURL,
		&thumbnailURL,
		&streamURL,
		&sourceTag,
		&externalID,
		&externalURL,
		&performerID,
		&dedupKey,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	return &ContentRecord{
		ID:              id,
		Title:           title,
		Description:     description.String,
		Type:            recordType,
		DurationSeconds: duration,
		OriginalDate:    parseTime(originalRaw),
		Processed:       processed != 0,
		Uploaded:        uploaded != 0,
		RawURL:          rawURL.String,
		AudioURL:        audioURL.String,
		ThumbnailURL:    thumbnailURL.String,
		StreamURL:       streamURL.String,
		Source:          sourceTag.String,
		ExternalID:      externalID.String,
		ExternalURL:     externalURL.String,
		PerformerID:     performerID.String,
		DedupKey:        dedupKey,
		CreatedAt:       parseTime(createdRaw),
		UpdatedAt:       parseTime(updatedRaw),
	}, nil
}
