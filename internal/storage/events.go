package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("storage: not found")

// EventRow mirrors the events table. WhenUnix, Max and ThreadID use zero
// values for NULL.
type EventRow struct {
	ID          string
	GuildID     string
	ChannelID   string
	Name        string
	HostID      string
	Description string
	WhenUnix    int64
	WhenText    string
	Max         int64
	ThreadID    string
	CreatedAt   int64
	UpdatedAt   int64
}

const eventCols = `id, guild_id, channel_id, name, host_id, description, when_unix, when_text, max, thread_id, created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (EventRow, error) {
	var (
		e                      EventRow
		desc, whenText, thread sql.NullString
		whenUnix, max          sql.NullInt64
	)
	err := row.Scan(&e.ID, &e.GuildID, &e.ChannelID, &e.Name, &e.HostID,
		&desc, &whenUnix, &whenText, &max, &thread, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return EventRow{}, err
	}
	e.Description = desc.String
	e.WhenText = whenText.String
	e.ThreadID = thread.String
	e.WhenUnix = whenUnix.Int64
	e.Max = max.Int64
	return e, nil
}

// InsertEvent stores a freshly created event.
func (s *DB) InsertEvent(ctx context.Context, e EventRow) error {
	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (`+eventCols+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.GuildID, e.ChannelID, e.Name, e.HostID,
		nullStr(e.Description), nullInt(e.WhenUnix), nullStr(e.WhenText),
		nullInt(e.Max), nullStr(e.ThreadID), now, now,
	)
	return err
}

// GetEvent loads one event by id.
func (s *DB) GetEvent(ctx context.Context, id string) (EventRow, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventCols+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return EventRow{}, ErrNotFound
	}
	return e, err
}

// SetEventThread records the planning thread for an event.
func (s *DB) SetEventThread(ctx context.Context, eventID, threadID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE events SET thread_id = ?, updated_at = ? WHERE id = ?`,
		threadID, time.Now().Unix(), eventID)
	return err
}

// TouchEvent bumps updated_at (membership changes).
func (s *DB) TouchEvent(ctx context.Context, eventID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE events SET updated_at = ? WHERE id = ?`, time.Now().Unix(), eventID)
	return err
}

// SchedulableEvents returns events that can receive reminders: resolved
// start instant, a planning thread, and a start no older than since. The
// look-back covers scheduler downtime so a restart does not skip events
// whose due instants already passed.
func (s *DB) SchedulableEvents(ctx context.Context, since int64) ([]EventRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventCols+` FROM events
		 WHERE thread_id IS NOT NULL AND when_unix IS NOT NULL AND when_unix > ?`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EventRow
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AgedEvents returns events whose resolved start is older than cutoff.
// Retention markers are checked separately by the sweeper.
func (s *DB) AgedEvents(ctx context.Context, cutoff int64) ([]EventRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventCols+` FROM events
		 WHERE when_unix IS NOT NULL AND when_unix < ?`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EventRow
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Participants lists user ids joined to an event, in join order.
func (s *DB) Participants(ctx context.Context, eventID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id FROM participants WHERE event_id = ? ORDER BY joined_at, user_id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// AddParticipant records a join; duplicates are ignored.
func (s *DB) AddParticipant(ctx context.Context, eventID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO participants (event_id, user_id, joined_at) VALUES (?,?,?)
		 ON CONFLICT(event_id, user_id) DO NOTHING`,
		eventID, userID, time.Now().Unix())
	return err
}

// RemoveParticipant records a leave.
func (s *DB) RemoveParticipant(ctx context.Context, eventID, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM participants WHERE event_id = ? AND user_id = ?`, eventID, userID)
	return err
}
