// Package retention garbage-collects the artifacts of past events: the
// planning thread and the card message in the event channel. Each event
// is cleaned once, tracked by a write-once marker, so repeated sweeps
// stay cheap and never retry a permanently inaccessible message.
package retention

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"guildbot/internal/messenger"
	"guildbot/internal/storage"
)

type Config struct {
	Delay    time.Duration // artifacts outlive the event start this long
	Pages    int           // history pages scanned per event
	PageSize int           // messages per page
}

type Service struct {
	db   *storage.DB
	msgr messenger.Client
	cfg  Config
	log  zerolog.Logger

	now func() time.Time
}

func New(db *storage.DB, msgr messenger.Client, cfg Config, log zerolog.Logger) *Service {
	return &Service{
		db:   db,
		msgr: msgr,
		cfg:  cfg,
		log:  log.With().Str("service", "retention").Logger(),
		now:  time.Now,
	}
}

// Sweep cleans every aged, not-yet-cleaned event. Per-event failures
// are logged and do not stop the pass.
func (s *Service) Sweep(ctx context.Context) error {
	cutoff := s.now().Add(-s.cfg.Delay).Unix()
	events, err := s.db.AgedEvents(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list aged events: %w", err)
	}

	for _, ev := range events {
		done, err := s.db.IsCleaned(ctx, ev.ID)
		if err != nil {
			s.log.Warn().Err(err).Str("event_id", ev.ID).Msg("marker check failed")
			continue
		}
		if done {
			continue
		}
		s.clean(ctx, ev)
	}
	return nil
}

// clean removes the event's thread and card best-effort, then marks the
// event cleaned unconditionally so the sweep terminates even when a
// deletion keeps failing.
func (s *Service) clean(ctx context.Context, ev storage.EventRow) {
	if ev.ThreadID != "" {
		if err := s.msgr.DeleteThread(ctx, ev.ThreadID); err != nil && !errors.Is(err, messenger.ErrNotFound) {
			s.log.Warn().Err(err).Str("event_id", ev.ID).Msg("thread delete failed")
		}
	}

	removed, err := s.deleteCards(ctx, ev)
	if err != nil {
		s.log.Warn().Err(err).Str("event_id", ev.ID).Msg("card scan failed")
	}

	if err := s.db.MarkCleaned(ctx, ev.ID, s.now().Unix()); err != nil {
		s.log.Error().Err(err).Str("event_id", ev.ID).Msg("marker write failed")
		return
	}
	s.log.Info().Str("event_id", ev.ID).Int("cards_removed", removed).Msg("event artifacts cleaned")
}

// deleteCards pages backward through recent channel history and deletes
// the bot's own messages that reference the event id anywhere in their
// content, embeds or component payloads.
func (s *Service) deleteCards(ctx context.Context, ev storage.EventRow) (int, error) {
	removed := 0
	cursor := ""
	for page := 0; page < s.cfg.Pages; page++ {
		msgs, err := s.msgr.History(ctx, ev.ChannelID, cursor, s.cfg.PageSize)
		if err != nil {
			return removed, fmt.Errorf("history page %d: %w", page, err)
		}
		if len(msgs) == 0 {
			break
		}
		for _, m := range msgs {
			if m.AuthorID != s.msgr.BotUserID() || !references(m, ev.ID) {
				continue
			}
			if err := s.msgr.Delete(ctx, ev.ChannelID, m.ID); err != nil && !errors.Is(err, messenger.ErrNotFound) {
				s.log.Warn().Err(err).Str("message_id", m.ID).Msg("card delete failed")
				continue
			}
			removed++
		}
		cursor = msgs[len(msgs)-1].ID
	}
	return removed, nil
}

// references reports whether any part of the message carries the event id.
func references(m messenger.Message, eventID string) bool {
	if strings.Contains(m.Content, eventID) {
		return true
	}
	for _, id := range m.CustomIDs {
		if strings.Contains(id, eventID) {
			return true
		}
	}
	for _, e := range m.Embeds {
		if strings.Contains(e.Title, eventID) || strings.Contains(e.Description, eventID) || strings.Contains(e.Footer, eventID) {
			return true
		}
		for _, f := range e.Fields {
			if strings.Contains(f.Value, eventID) {
				return true
			}
		}
	}
	return false
}
