// Package reminders drives the tiered pre-event reminder engine. Each
// tick walks schedulable events, works out which lead-time thresholds
// became due, delivers at most one message per event (the one closest to
// start) and durably marks every due threshold sent. A set flag never
// reverts, so delivery is at-most-once per threshold even across
// restarts; a crash between send and persist can at worst duplicate one
// message, never skip one.
package reminders

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

// Config tunes the scheduler.
type Config struct {
	// LeadMinutes are the thresholds, largest lead first (index 0) down
	// to the soonest (last index). Length must equal the ledger width.
	LeadMinutes []int
	// Lookback bounds how old an event's start may be and still be
	// examined; it must cover the longest expected scheduler downtime.
	Lookback time.Duration
}

// Service is the reminder scheduler. Tick is driven by the app's cron.
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
		log:  log.With().Str("component", "reminders").Logger(),
		now:  time.Now,
	}
}

// Tick runs one scheduling pass. Per-event failures are logged and
// skipped; only a failure to enumerate events is returned.
func (s *Service) Tick(ctx context.Context) error {
	now := s.now()
	since := now.Add(-s.cfg.Lookback).Unix()

	events, err := s.db.SchedulableEvents(ctx, since)
	if err != nil {
		return fmt.Errorf("list schedulable events: %w", err)
	}

	for _, ev := range events {
		if err := s.tickEvent(ctx, now, ev); err != nil {
			s.log.Warn().Err(err).Str("event_id", ev.ID).Msg("reminder pass failed for event")
		}
	}
	return nil
}

func (s *Service) tickEvent(ctx context.Context, now time.Time, ev storage.EventRow) error {
	participants, err := s.db.Participants(ctx, ev.ID)
	if err != nil {
		return fmt.Errorf("load participants: %w", err)
	}
	if len(participants) == 0 {
		return nil
	}

	if err := s.db.EnsureReminder(ctx, ev.ID); err != nil {
		return fmt.Errorf("ensure ledger row: %w", err)
	}
	state, err := s.db.Reminder(ctx, ev.ID)
	if err != nil {
		return fmt.Errorf("load ledger row: %w", err)
	}

	due := s.dueIndices(now, ev.WhenUnix, state)
	if len(due) == 0 {
		return nil
	}

	// Deliver only the threshold closest to start; marking the rest as
	// sent keeps an outage from producing a burst of stale reminders.
	closest := due[len(due)-1]
	err = s.send(ctx, ev, participants, closest)
	switch {
	case err == nil:
	case errors.Is(err, messenger.ErrNotFound):
		// Thread is gone: terminal, nothing to deliver to.
		s.log.Debug().Str("event_id", ev.ID).Msg("reminder thread missing; marking sent")
	default:
		// Transient: leave the flags pending, the next tick retries.
		return fmt.Errorf("send reminder: %w", err)
	}

	at := now.Unix()
	for _, idx := range due {
		if err := s.db.MarkReminderSent(ctx, ev.ID, idx, at); err != nil {
			return fmt.Errorf("mark threshold %d sent: %w", idx, err)
		}
	}
	s.log.Info().Str("event_id", ev.ID).Int("threshold", closest).
		Ints("marked", due).Msg("reminder delivered")
	return nil
}

// dueIndices returns the pending thresholds whose due instant has
// passed, in ascending index order.
func (s *Service) dueIndices(now time.Time, whenUnix int64, state storage.ReminderState) []int {
	nowSec := now.Unix()
	var due []int
	for i, lead := range s.cfg.LeadMinutes {
		if state.IsSent(i) {
			continue
		}
		dueAt := whenUnix - int64(lead)*60
		if nowSec >= dueAt {
			due = append(due, i)
		}
	}
	return due
}

func (s *Service) send(ctx context.Context, ev storage.EventRow, participants []string, idx int) error {
	uniq := dedupe(participants)
	mentions := make([]string, len(uniq))
	for i, u := range uniq {
		mentions[i] = messenger.Mention(u)
	}
	who := strings.Join(mentions, ", ")
	label := humanizeMinutes(s.cfg.LeadMinutes[idx])

	var text string
	switch idx {
	case 0:
		text = fmt.Sprintf("⏰ Heads-up %s — **%s** starts in %s. Already excited? 😉", who, ev.Name, label)
	case 1:
		text = fmt.Sprintf("⏰ Reminder %s — **%s** starts in %s. The wait is nearly over!", who, ev.Name, label)
	case 2:
		text = fmt.Sprintf("⏰ Final reminder %s — **%s** starts in %s. Warm up and grab snacks.", who, ev.Name, label)
	default:
		// Soonest threshold uses a live countdown instead of a static label.
		text = fmt.Sprintf("🚀 %s — **%s** starts %s! Get ready, prepare your buffs — good luck and good loot! 😄",
			who, ev.Name, messenger.TimestampRelative(ev.WhenUnix))
	}

	_, err := s.msgr.Send(ctx, ev.ThreadID, messenger.Content{
		Text:     text,
		Mentions: &messenger.Mentions{Users: uniq},
	})
	return err
}

func humanizeMinutes(m int) string {
	if m%60 == 0 {
		h := m / 60
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
