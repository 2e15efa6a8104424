// Package announce posts "activity open" notices at recurring window
// starts and removes them when the window closes. Posted notices are
// persisted so a restart can reconcile open windows.
package announce

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"guildbot/internal/messenger"
	"guildbot/internal/occurrence"
	"guildbot/internal/storage"
)

// minTimerDelay keeps a freshly computed boundary from arming a timer
// that fires before startup reconciliation settles.
const minTimerDelay = 10 * time.Second

// Config carries the announcement channel and the re-post grace window.
type Config struct {
	ChannelID string
	Grace     time.Duration // re-post only this long after a missed start
}

// Service owns one start timer per activity kind and one deletion timer
// per open window. Timer handles are named so re-arming replaces the
// previous handle instead of stacking a duplicate.
type Service struct {
	db   *storage.DB
	msgr messenger.Client
	cfg  Config
	loc  *time.Location
	log  zerolog.Logger

	now func() time.Time

	mu     sync.Mutex
	timers map[string]*time.Timer

	runCtx context.Context
	cancel context.CancelFunc
}

func New(db *storage.DB, msgr messenger.Client, cfg Config, loc *time.Location, log zerolog.Logger) *Service {
	return &Service{
		db:     db,
		msgr:   msgr,
		cfg:    cfg,
		loc:    loc,
		log:    log.With().Str("service", "announce").Logger(),
		now:    time.Now,
		timers: map[string]*time.Timer{},
	}
}

// Start reconciles persisted announcements against the clock and arms
// the per-kind start timers.
func (s *Service) Start(ctx context.Context) error {
	s.runCtx, s.cancel = context.WithCancel(ctx)
	if err := s.SafetyPass(s.runCtx); err != nil {
		s.log.Warn().Err(err).Msg("startup reconciliation failed; timers armed anyway")
	}
	for _, k := range []occurrence.Kind{occurrence.KindHunt, occurrence.KindDance} {
		s.armStart(k)
	}
	return nil
}

// Stop cancels the run context and stops every armed timer.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, t := range s.timers {
		t.Stop()
		delete(s.timers, name)
	}
}

// arm replaces the named timer handle with a fresh one.
func (s *Service) arm(name string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.timers[name]; ok {
		prev.Stop()
	}
	s.timers[name] = time.AfterFunc(delay, func() {
		if s.runCtx != nil && s.runCtx.Err() != nil {
			return
		}
		fn()
	})
}

// armStart schedules the next window start for a kind and re-arms
// itself after every firing.
func (s *Service) armStart(kind occurrence.Kind) {
	rule, ok := occurrence.RuleFor(kind)
	if !ok {
		return
	}
	now := s.now().In(s.loc)
	win := occurrence.NextWindow(now, rule)
	delay := time.Until(win.Start)
	if delay < minTimerDelay {
		delay = minTimerDelay
	}
	s.log.Debug().Str("kind", string(kind)).Time("start", win.Start).Msg("window start armed")
	s.arm("start:"+string(kind), delay, func() {
		if err := s.openWindow(s.runCtx, kind, win); err != nil {
			s.log.Error().Err(err).Str("kind", string(kind)).Msg("open window failed")
		}
		s.armStart(kind)
	})
}

// openWindow posts the notice, persists the record and arms the
// deletion timer for the window end.
func (s *Service) openWindow(ctx context.Context, kind occurrence.Kind, win occurrence.Window) error {
	msg, err := s.msgr.Send(ctx, s.cfg.ChannelID, notice(kind, win))
	if err != nil {
		return fmt.Errorf("post notice: %w", err)
	}
	rec := storage.Announcement{
		Kind:      string(kind),
		StartUnix: win.Start.Unix(),
		EndUnix:   win.End.Unix(),
		ChannelID: s.cfg.ChannelID,
		MessageID: msg.ID,
		PostedAt:  s.now().Unix(),
	}
	if err := s.db.SaveAnnouncement(ctx, rec); err != nil {
		return fmt.Errorf("persist announcement: %w", err)
	}
	s.log.Info().Str("kind", string(kind)).Time("until", win.End).Msg("activity notice posted")
	s.armEnd(rec)
	return nil
}

// armEnd schedules removal of the notice at the window end.
func (s *Service) armEnd(rec storage.Announcement) {
	delay := time.Until(time.Unix(rec.EndUnix, 0))
	if delay < 0 {
		delay = 0
	}
	name := fmt.Sprintf("end:%s:%d", rec.Kind, rec.StartUnix)
	s.arm(name, delay, func() {
		if err := s.closeWindow(s.runCtx, rec); err != nil {
			s.log.Error().Err(err).Str("kind", rec.Kind).Msg("close window failed")
		}
	})
}

// closeWindow deletes the notice best-effort and always drops the
// record; an already-gone message counts as removed.
func (s *Service) closeWindow(ctx context.Context, rec storage.Announcement) error {
	if err := s.msgr.Delete(ctx, rec.ChannelID, rec.MessageID); err != nil && !errors.Is(err, messenger.ErrNotFound) {
		s.log.Warn().Err(err).Str("kind", rec.Kind).Msg("notice delete failed; dropping record anyway")
	}
	if err := s.db.DeleteAnnouncement(ctx, rec.Kind, rec.StartUnix); err != nil {
		return fmt.Errorf("drop announcement record: %w", err)
	}
	s.log.Info().Str("kind", rec.Kind).Msg("activity notice removed")
	return nil
}

// SafetyPass reconciles persisted records against the clock: expired
// notices are removed, still-open windows get their deletion timer
// re-armed, and a freshly started window missing its notice is posted
// if the start is within the grace period. It is idempotent; the
// hourly cron runs it as a net under the exact timers.
func (s *Service) SafetyPass(ctx context.Context) error {
	now := s.now().In(s.loc)

	records, err := s.db.Announcements(ctx)
	if err != nil {
		return fmt.Errorf("list announcements: %w", err)
	}
	live := map[string]bool{}
	for _, rec := range records {
		if now.Unix() >= rec.EndUnix {
			if err := s.closeWindow(ctx, rec); err != nil {
				s.log.Warn().Err(err).Str("kind", rec.Kind).Msg("expired notice cleanup failed")
			}
			continue
		}
		live[fmt.Sprintf("%s:%d", rec.Kind, rec.StartUnix)] = true
		s.armEnd(rec)
	}

	for _, kind := range []occurrence.Kind{occurrence.KindHunt, occurrence.KindDance} {
		rule, _ := occurrence.RuleFor(kind)
		win, open := occurrence.CurrentWindow(now, rule)
		if !open {
			continue
		}
		if live[fmt.Sprintf("%s:%d", kind, win.Start.Unix())] {
			continue
		}
		if now.Sub(win.Start) > s.cfg.Grace {
			s.log.Debug().Str("kind", string(kind)).Msg("missed window start outside grace; not re-posting")
			continue
		}
		if err := s.openWindow(ctx, kind, win); err != nil {
			s.log.Warn().Err(err).Str("kind", string(kind)).Msg("grace re-post failed")
		}
	}
	return nil
}

func notice(kind occurrence.Kind, win occurrence.Window) messenger.Content {
	end := messenger.TimestampRelative(win.End.Unix())
	var text string
	switch kind {
	case occurrence.KindHunt:
		text = fmt.Sprintf("⚔️ @everyone — **Guild Hunt** is open now! Gates close %s. Good luck and good loot!", end)
	case occurrence.KindDance:
		text = fmt.Sprintf("💃 @everyone — **Guild Dance** has started! The music stops %s. See you on the floor!", end)
	default:
		text = fmt.Sprintf("📣 @everyone — **%s** is open now! Ends %s.", kind, end)
	}
	return messenger.Content{
		Text:     text,
		Mentions: &messenger.Mentions{Everyone: true},
	}
}
