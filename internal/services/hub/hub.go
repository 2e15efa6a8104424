// Package hub maintains the single persistent schedule message in the
// event channel: refreshed in place at every recurrence boundary and
// bumped to the bottom of the channel when traffic buries it.
package hub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"guildbot/internal/messenger"
	"guildbot/internal/occurrence"
	"guildbot/internal/storage"
)

// purpose tags the hub's slot in the control-message table.
const purpose = "hub"

// CustomIDCreate is the id carried by the hub's Create Event button.
const CustomIDCreate = "hub:create"

const minTimerDelay = 10 * time.Second

// boundarySlack delays the refresh past the boundary so the window it
// reports on has actually flipped.
const boundarySlack = time.Minute

type Config struct {
	ChannelID    string
	Pin          bool
	AlwaysLast   bool // bump on unrelated channel traffic
	BumpCooldown time.Duration
}

// Service owns the boundary timer and the bump cooldown.
type Service struct {
	db   *storage.DB
	msgr messenger.Client
	cfg  Config
	loc  *time.Location
	log  zerolog.Logger

	now func() time.Time

	mu       sync.Mutex
	timer    *time.Timer
	lastBump time.Time

	runCtx context.Context
	cancel context.CancelFunc
}

func New(db *storage.DB, msgr messenger.Client, cfg Config, loc *time.Location, log zerolog.Logger) *Service {
	return &Service{
		db:   db,
		msgr: msgr,
		cfg:  cfg,
		loc:  loc,
		log:  log.With().Str("service", "hub").Logger(),
		now:  time.Now,
	}
}

// Start forces one bump so the hub sits at the bottom of the channel
// after every restart, then arms the boundary timer.
func (s *Service) Start(ctx context.Context) error {
	s.runCtx, s.cancel = context.WithCancel(ctx)
	if err := s.Bump(s.runCtx, true); err != nil {
		s.log.Warn().Err(err).Msg("startup bump failed; boundary timer armed anyway")
	}
	s.armBoundary()
	return nil
}

func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// armBoundary schedules the next refresh just after the earliest
// upcoming activity start or reset, re-arming itself each time.
func (s *Service) armBoundary() {
	now := s.now().In(s.loc)
	next := occurrence.NextBoundary(now)
	delay := next.Sub(now) + boundarySlack
	if delay < minTimerDelay {
		delay = minTimerDelay
	}
	s.log.Debug().Time("boundary", next).Msg("hub refresh armed")

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(delay, func() {
		if s.runCtx != nil && s.runCtx.Err() != nil {
			return
		}
		if err := s.Refresh(s.runCtx); err != nil {
			s.log.Error().Err(err).Msg("boundary refresh failed")
		}
		s.armBoundary()
	})
	s.mu.Unlock()
}

// Refresh edits the live hub message in place, recreating it when the
// pointer is stale or missing. The hourly cron also calls this as a
// safety net under the boundary timer.
func (s *Service) Refresh(ctx context.Context) error {
	content := s.render(s.now().In(s.loc))

	id, err := s.db.ControlMessage(ctx, purpose, s.cfg.ChannelID)
	if err != nil {
		return fmt.Errorf("load hub pointer: %w", err)
	}
	if id != "" {
		err := s.msgr.Edit(ctx, s.cfg.ChannelID, id, content)
		if err == nil {
			return nil
		}
		if !errors.Is(err, messenger.ErrNotFound) {
			return fmt.Errorf("edit hub message: %w", err)
		}
		s.log.Warn().Str("message_id", id).Msg("hub message gone; recreating")
	}
	return s.create(ctx, content)
}

// Bump deletes the live hub message and posts a fresh one at the bottom
// of the channel. Without force it is a no-op inside the cooldown.
func (s *Service) Bump(ctx context.Context, force bool) error {
	now := s.now()
	s.mu.Lock()
	if !force && now.Sub(s.lastBump) < s.cfg.BumpCooldown {
		s.mu.Unlock()
		return nil
	}
	s.lastBump = now
	s.mu.Unlock()

	id, err := s.db.ControlMessage(ctx, purpose, s.cfg.ChannelID)
	if err != nil {
		return fmt.Errorf("load hub pointer: %w", err)
	}
	if id != "" {
		if err := s.msgr.Delete(ctx, s.cfg.ChannelID, id); err != nil && !errors.Is(err, messenger.ErrNotFound) {
			s.log.Warn().Err(err).Str("message_id", id).Msg("old hub message not deleted")
		}
	}
	return s.create(ctx, s.render(now.In(s.loc)))
}

// OnChannelTraffic bumps the hub below foreign messages when the
// always-last mode is on. Cooldown-gated so chatter cannot make the bot
// spam rewrites.
func (s *Service) OnChannelTraffic(ctx context.Context, channelID, authorID string) {
	if !s.cfg.AlwaysLast || channelID != s.cfg.ChannelID || authorID == s.msgr.BotUserID() {
		return
	}
	if err := s.Bump(ctx, false); err != nil {
		s.log.Warn().Err(err).Msg("traffic bump failed")
	}
}

func (s *Service) create(ctx context.Context, content messenger.Content) error {
	msg, err := s.msgr.Send(ctx, s.cfg.ChannelID, content)
	if err != nil {
		return fmt.Errorf("post hub message: %w", err)
	}
	if err := s.db.UpsertControlMessage(ctx, purpose, s.cfg.ChannelID, msg.ID); err != nil {
		return fmt.Errorf("store hub pointer: %w", err)
	}
	if s.cfg.Pin {
		if err := s.msgr.Pin(ctx, s.cfg.ChannelID, msg.ID); err != nil {
			s.log.Debug().Err(err).Msg("hub pin failed")
		}
	}
	s.log.Info().Str("message_id", msg.ID).Msg("hub message posted")
	return nil
}

// render builds the schedule embed plus the Create Event button.
func (s *Service) render(now time.Time) messenger.Content {
	var b strings.Builder

	writeActivity(&b, "⚔️ **Guild Hunt**", occurrence.Hunt, now)
	writeActivity(&b, "💃 **Guild Dance**", occurrence.Dance, now)

	b.WriteString("\n**Resets**\n")
	daily := occurrence.NextDaily(now, occurrence.DailyResetHour, occurrence.DailyResetMinute)
	weekly := occurrence.NextWeekly(now, occurrence.WeeklyResetDay, occurrence.WeeklyResetHour, occurrence.WeeklyResetMinute)
	vault := occurrence.NextBiWeekly(occurrence.VaultAnchor(now.Location()), now)
	fmt.Fprintf(&b, "🌅 Daily reset %s\n", messenger.TimestampRelative(daily.Unix()))
	fmt.Fprintf(&b, "📆 Weekly reset %s\n", messenger.TimestampRelative(weekly.Unix()))
	fmt.Fprintf(&b, "🏦 Stimen Vaults rotation %s\n", messenger.TimestampRelative(vault.Unix()))

	return messenger.Content{
		Embeds: []messenger.Embed{{
			Title:       "📜 Guild Schedule",
			Description: b.String(),
			Footer:      "Times shown in your local timezone",
		}},
		Buttons: []messenger.Button{{
			CustomID: CustomIDCreate,
			Label:    "Create Event",
			Emoji:    "📅",
			Style:    messenger.ButtonPrimary,
		}},
	}
}

func writeActivity(b *strings.Builder, label string, rule occurrence.WindowRule, now time.Time) {
	if win, open := occurrence.CurrentWindow(now, rule); open {
		fmt.Fprintf(b, "%s — open now! Closes %s\n", label, messenger.TimestampRelative(win.End.Unix()))
		return
	}
	next := occurrence.NextWindow(now, rule)
	fmt.Fprintf(b, "%s — next %s (%s)\n", label,
		messenger.TimestampFull(next.Start.Unix()), messenger.TimestampRelative(next.Start.Unix()))
}
