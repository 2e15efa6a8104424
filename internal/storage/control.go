package storage

import (
	"context"
	"database/sql"
	"errors"
)

// ControlMessage returns the id of the live status message for a purpose
// tag in a channel, or "" when none is recorded.
func (s *DB) ControlMessage(ctx context.Context, purpose, channelID string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT message_id FROM control_messages WHERE purpose = ? AND channel_id = ?`,
		purpose, channelID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

// UpsertControlMessage points the (purpose, channel) slot at a new message.
func (s *DB) UpsertControlMessage(ctx context.Context, purpose, channelID, messageID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO control_messages (purpose, channel_id, message_id) VALUES (?,?,?)
		 ON CONFLICT(purpose, channel_id) DO UPDATE SET message_id = excluded.message_id`,
		purpose, channelID, messageID)
	return err
}
