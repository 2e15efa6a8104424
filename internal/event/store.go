package event

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"guildbot/internal/storage"
)

// Store resolves events through a two-tier lookup: an in-memory cache
// keyed by event id, falling back to a sqlite read that populates the
// cache. Cache entries are only ever changed by the mutation methods
// below, which write storage and cache together, so the two stay in sync
// even when scheduler ticks and interaction handlers interleave.
type Store struct {
	db  *storage.DB
	log zerolog.Logger

	mu    sync.Mutex
	cache map[string]*Event
}

func NewStore(db *storage.DB, log zerolog.Logger) *Store {
	return &Store{
		db:    db,
		log:   log.With().Str("component", "eventstore").Logger(),
		cache: map[string]*Event{},
	}
}

// Resolve returns the event by id, hydrating the cache from storage on a
// miss. The returned value is a copy; mutations go through Store methods.
func (s *Store) Resolve(ctx context.Context, id string) (Event, error) {
	s.mu.Lock()
	if ev, ok := s.cache[id]; ok {
		out := snapshot(ev)
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	row, err := s.db.GetEvent(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return Event{}, ErrNotFound
	}
	if err != nil {
		return Event{}, fmt.Errorf("load event: %w", err)
	}
	parts, err := s.db.Participants(ctx, id)
	if err != nil {
		return Event{}, fmt.Errorf("load participants: %w", err)
	}

	ev := fromRow(row)
	ev.Participants = parts

	s.mu.Lock()
	// Another hydrate may have won the race; keep the existing entry.
	if cur, ok := s.cache[id]; ok {
		out := snapshot(cur)
		s.mu.Unlock()
		return out, nil
	}
	s.cache[id] = &ev
	out := snapshot(&ev)
	s.mu.Unlock()
	return out, nil
}

// Create persists a new event and seeds the cache.
func (s *Store) Create(ctx context.Context, ev Event) error {
	err := s.db.InsertEvent(ctx, storage.EventRow{
		ID:          ev.ID,
		GuildID:     ev.GuildID,
		ChannelID:   ev.ChannelID,
		Name:        ev.Name,
		HostID:      ev.HostID,
		Description: ev.Description,
		WhenUnix:    ev.WhenUnix,
		WhenText:    ev.WhenText,
		Max:         int64(ev.Max),
		ThreadID:    ev.ThreadID,
	})
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	cp := ev
	cp.Participants = nil
	s.mu.Lock()
	s.cache[ev.ID] = &cp
	s.mu.Unlock()

	s.log.Info().Str("event_id", ev.ID).Str("name", ev.Name).Msg("event created")
	return nil
}

// SetThread records the planning thread id.
func (s *Store) SetThread(ctx context.Context, eventID, threadID string) error {
	if err := s.db.SetEventThread(ctx, eventID, threadID); err != nil {
		return fmt.Errorf("set thread: %w", err)
	}
	s.mu.Lock()
	if ev, ok := s.cache[eventID]; ok {
		ev.ThreadID = threadID
	}
	s.mu.Unlock()
	return nil
}

// Join adds userID to the event. Returns ErrFull or ErrAlreadyJoined as
// typed rejections. The capacity and membership checks run under the
// same lock as the write, so interleaved joins cannot overshoot Max.
func (s *Store) Join(ctx context.Context, eventID, userID string) (Event, error) {
	// Hydrate outside the lock so a cold cache does not hold it through
	// the sqlite reads.
	if _, err := s.Resolve(ctx, eventID); err != nil {
		return Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.cache[eventID]
	if !ok {
		return Event{}, ErrNotFound
	}
	if cur.IsFull() {
		return Event{}, ErrFull
	}
	if cur.hasParticipant(userID) {
		return Event{}, ErrAlreadyJoined
	}

	if err := s.db.AddParticipant(ctx, eventID, userID); err != nil {
		return Event{}, fmt.Errorf("add participant: %w", err)
	}
	_ = s.db.TouchEvent(ctx, eventID)

	cur.Participants = append(cur.Participants, userID)
	return snapshot(cur), nil
}

// Leave removes userID from the event. Returns ErrNotJoined when they
// were not in. Check and removal share one critical section, same as
// Join.
func (s *Store) Leave(ctx context.Context, eventID, userID string) (Event, error) {
	if _, err := s.Resolve(ctx, eventID); err != nil {
		return Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.cache[eventID]
	if !ok {
		return Event{}, ErrNotFound
	}
	if !cur.hasParticipant(userID) {
		return Event{}, ErrNotJoined
	}

	if err := s.db.RemoveParticipant(ctx, eventID, userID); err != nil {
		return Event{}, fmt.Errorf("remove participant: %w", err)
	}
	_ = s.db.TouchEvent(ctx, eventID)

	for i, p := range cur.Participants {
		if p == userID {
			cur.Participants = append(cur.Participants[:i], cur.Participants[i+1:]...)
			break
		}
	}
	return snapshot(cur), nil
}

func snapshot(ev *Event) Event {
	out := *ev
	out.Participants = append([]string(nil), ev.Participants...)
	return out
}

func fromRow(r storage.EventRow) Event {
	return Event{
		ID:          r.ID,
		GuildID:     r.GuildID,
		ChannelID:   r.ChannelID,
		Name:        r.Name,
		HostID:      r.HostID,
		Description: r.Description,
		WhenText:    r.WhenText,
		WhenUnix:    r.WhenUnix,
		Max:         int(r.Max),
		ThreadID:    r.ThreadID,
	}
}
