package storage

import (
	"context"
	"database/sql"
	"errors"
)

// IsCleaned reports whether an event's artifacts were already garbage
// collected.
func (s *DB) IsCleaned(ctx context.Context, eventID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM event_gc WHERE event_id = ?`, eventID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// MarkCleaned records the completion marker. Write-once semantics: a
// repeated mark keeps the first instant.
func (s *DB) MarkCleaned(ctx context.Context, eventID string, at int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO event_gc (event_id, cleaned_at) VALUES (?,?)
		 ON CONFLICT(event_id) DO NOTHING`, eventID, at)
	return err
}
