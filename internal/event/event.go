// Package event holds the scheduled-activity model and its store: a
// write-through in-memory cache over the sqlite tables, plus the typed
// join/leave outcomes the interaction layer renders.
package event

import (
	"errors"
	"time"
)

// Join/leave outcomes. These are the full closed set; handlers map them
// to user-facing rejections, never to logged errors.
var (
	ErrNotFound      = errors.New("event: not found")
	ErrFull          = errors.New("event: full")
	ErrAlreadyJoined = errors.New("event: already joined")
	ErrNotJoined     = errors.New("event: not joined")
)

// Event is one scheduled activity. The id is the id of the card message
// announcing it and never changes. WhenUnix is the resolved start instant;
// zero means only free text was given and the event is not schedulable.
type Event struct {
	ID          string
	GuildID     string
	ChannelID   string
	Name        string
	HostID      string
	Description string
	WhenText    string
	WhenUnix    int64
	Max         int
	ThreadID    string

	Participants []string
}

// HasWhen reports whether the event carries a resolved start instant.
func (e Event) HasWhen() bool { return e.WhenUnix > 0 }

// StartsAt returns the resolved start instant in loc.
func (e Event) StartsAt(loc *time.Location) time.Time {
	return time.Unix(e.WhenUnix, 0).In(loc)
}

// IsFull reports whether capacity is set and reached.
func (e Event) IsFull() bool {
	return e.Max > 0 && len(e.Participants) >= e.Max
}

func (e Event) hasParticipant(userID string) bool {
	for _, p := range e.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
