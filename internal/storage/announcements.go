package storage

import (
	"context"
	"database/sql"
	"errors"
)

// Announcement is one posted "activity open" notice, keyed by
// (kind, window start). Replace-on-conflict keeps at most one record per
// window.
type Announcement struct {
	Kind      string
	StartUnix int64
	EndUnix   int64
	ChannelID string
	MessageID string
	PostedAt  int64
}

// SaveAnnouncement upserts the record for a window.
func (s *DB) SaveAnnouncement(ctx context.Context, a Announcement) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO event_announcements
		 (kind, start_unix, end_unix, channel_id, message_id, posted_at)
		 VALUES (?,?,?,?,?,?)`,
		a.Kind, a.StartUnix, a.EndUnix, a.ChannelID, a.MessageID, a.PostedAt)
	return err
}

// Announcement fetches the record for a window, if any.
func (s *DB) Announcement(ctx context.Context, kind string, startUnix int64) (Announcement, bool, error) {
	var a Announcement
	err := s.db.QueryRowContext(ctx,
		`SELECT kind, start_unix, end_unix, channel_id, message_id, posted_at
		 FROM event_announcements WHERE kind = ? AND start_unix = ?`,
		kind, startUnix).
		Scan(&a.Kind, &a.StartUnix, &a.EndUnix, &a.ChannelID, &a.MessageID, &a.PostedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Announcement{}, false, nil
	}
	if err != nil {
		return Announcement{}, false, err
	}
	return a, true, nil
}

// Announcements lists every persisted record (the safety pass reconciles
// them all).
func (s *DB) Announcements(ctx context.Context) ([]Announcement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, start_unix, end_unix, channel_id, message_id, posted_at
		 FROM event_announcements`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Announcement
	for rows.Next() {
		var a Announcement
		if err := rows.Scan(&a.Kind, &a.StartUnix, &a.EndUnix, &a.ChannelID, &a.MessageID, &a.PostedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAnnouncement removes the record once the window closed.
func (s *DB) DeleteAnnouncement(ctx context.Context, kind string, startUnix int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM event_announcements WHERE kind = ? AND start_unix = ?`, kind, startUnix)
	return err
}
