package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ThresholdCount is the number of reminder lead times per event. The
// ledger columns, config lead-minutes list and message copy are all
// indexed 0..ThresholdCount-1 (0 = largest lead, last = soonest).
const ThresholdCount = 4

// ReminderState is one ledger row: per threshold, the unix instant it was
// marked sent, or 0 while pending. A set flag is never cleared.
type ReminderState struct {
	EventID string
	Sent    [ThresholdCount]int64
}

// IsSent reports whether threshold idx was already delivered.
func (r ReminderState) IsSent(idx int) bool {
	return idx >= 0 && idx < ThresholdCount && r.Sent[idx] != 0
}

var sentCols = [ThresholdCount]string{"sent1", "sent2", "sent3", "sent4"}

// EnsureReminder lazily creates the ledger row for an event.
func (s *DB) EnsureReminder(ctx context.Context, eventID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO event_reminders (event_id) VALUES (?)
		 ON CONFLICT(event_id) DO NOTHING`, eventID)
	return err
}

// Reminder loads the ledger row, creating it if missing.
func (s *DB) Reminder(ctx context.Context, eventID string) (ReminderState, error) {
	st := ReminderState{EventID: eventID}
	err := s.db.QueryRowContext(ctx,
		`SELECT sent1, sent2, sent3, sent4 FROM event_reminders WHERE event_id = ?`,
		eventID).Scan(&st.Sent[0], &st.Sent[1], &st.Sent[2], &st.Sent[3])
	if errors.Is(err, sql.ErrNoRows) {
		if err := s.EnsureReminder(ctx, eventID); err != nil {
			return st, err
		}
		return st, nil
	}
	return st, err
}

// MarkReminderSent durably flips one threshold to sent at the given
// instant. The transition is monotonic: an already-set flag keeps its
// original instant.
func (s *DB) MarkReminderSent(ctx context.Context, eventID string, idx int, at int64) error {
	if idx < 0 || idx >= ThresholdCount {
		return fmt.Errorf("storage: reminder index %d out of range", idx)
	}
	col := sentCols[idx]
	_, err := s.db.ExecContext(ctx,
		`UPDATE event_reminders SET `+col+` = ? WHERE event_id = ? AND `+col+` = 0`,
		at, eventID)
	return err
}
