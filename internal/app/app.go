// Package app wires the process together: config, logging, storage,
// the discord session and the four schedulers, plus the cron entries
// that drive the periodic passes.
package app

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"guildbot/internal/bot"
	"guildbot/internal/config"
	"guildbot/internal/event"
	"guildbot/internal/logging"
	"guildbot/internal/messenger"
	"guildbot/internal/services/announce"
	"guildbot/internal/services/hub"
	"guildbot/internal/services/reminders"
	"guildbot/internal/services/retention"
	"guildbot/internal/storage"
)

type App struct {
	cfgPath string
	cfg     *config.Config
	log     zerolog.Logger

	db      *storage.DB
	session *discordgo.Session

	hub       *hub.Service
	announce  *announce.Service
	reminders *reminders.Service
	retention *retention.Service

	cron *cron.Cron
}

// New loads the config and builds the root logger. Everything touching
// the network happens in Start.
func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	log := logging.New(cfg.Logging.Level, cfg.Logging.Console)
	return &App{cfgPath: cfgPath, cfg: cfg, log: log}, nil
}

// Start opens storage and the gateway, registers the interaction layer,
// starts the boundary-timer services and the cron-driven passes, and
// signals readiness to systemd.
func (a *App) Start(ctx context.Context) error {
	cfg := a.cfg

	db, err := storage.Open(storage.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: cfg.StorageBusyTimeout(),
	})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	a.db = db

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages
	if err := session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	a.session = session

	msgr := messenger.NewDiscord(session, messenger.DiscordConfig{
		SendRatePerSec: cfg.Discord.SendRatePerSec,
	}, a.log)
	store := event.NewStore(db, a.log)
	loc := cfg.Location()

	a.hub = hub.New(db, msgr, hub.Config{
		ChannelID:    cfg.Discord.EventChannelID,
		Pin:          cfg.Hub.Pin,
		AlwaysLast:   cfg.HubAlwaysLast(),
		BumpCooldown: cfg.HubBumpCooldown(),
	}, loc, a.log)
	a.announce = announce.New(db, msgr, announce.Config{
		ChannelID: cfg.Discord.EventChannelID,
		Grace:     cfg.AnnounceGrace(),
	}, loc, a.log)
	a.reminders = reminders.New(db, msgr, reminders.Config{
		LeadMinutes: cfg.Reminders.LeadMinutes,
		Lookback:    cfg.ReminderLookback(),
	}, a.log)
	a.retention = retention.New(db, msgr, retention.Config{
		Delay:    cfg.RetentionDelay(),
		Pages:    cfg.Retention.ScanBatches,
		PageSize: cfg.Retention.PageSize,
	}, a.log)

	b := bot.New(session, msgr, store, a.hub, bot.Config{
		GuildID:        cfg.Discord.GuildID,
		EventChannelID: cfg.Discord.EventChannelID,
	}, loc, a.log)
	if err := b.Register(); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}

	if err := a.hub.Start(ctx); err != nil {
		return fmt.Errorf("start hub: %w", err)
	}
	if err := a.announce.Start(ctx); err != nil {
		return fmt.Errorf("start announce: %w", err)
	}

	a.cron = cron.New()
	add := func(spec string, name string, fn func(context.Context) error) {
		_, err := a.cron.AddFunc(spec, func() {
			if err := fn(ctx); err != nil {
				a.log.Error().Err(err).Str("job", name).Msg("scheduled pass failed")
			}
		})
		if err != nil {
			a.log.Error().Err(err).Str("job", name).Str("spec", spec).Msg("cron entry rejected")
		}
	}
	add(fmt.Sprintf("@every %s", cfg.ReminderTick()), "reminders", a.reminders.Tick)
	add(fmt.Sprintf("@every %s", cfg.RetentionSweep()), "retention", a.retention.Sweep)
	add("@hourly", "safety", func(ctx context.Context) error {
		if err := a.announce.SafetyPass(ctx); err != nil {
			return err
		}
		return a.hub.Refresh(ctx)
	})
	a.cron.Start()

	if err := config.Watch(ctx, a.cfgPath, a.log, func(next *config.Config) {
		logging.SetLevel(next.Logging.Level)
		a.log.Info().Str("level", next.Logging.Level).Msg("log level applied from config change")
	}); err != nil {
		a.log.Warn().Err(err).Msg("config watcher unavailable")
	}

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn().Err(err).Msg("sd_notify failed")
	} else if sent {
		a.log.Debug().Msg("systemd notified ready")
	}

	a.log.Info().Str("channel_id", cfg.Discord.EventChannelID).Msg("guildbot started")
	return nil
}

// Stop shuts the schedulers down, then closes the gateway and storage.
func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if a.cron != nil {
		stopped := a.cron.Stop()
		select {
		case <-stopped.Done():
		case <-ctx.Done():
		}
	}
	if a.announce != nil {
		a.announce.Stop()
	}
	if a.hub != nil {
		a.hub.Stop()
	}
	if a.session != nil {
		_ = a.session.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	a.log.Info().Msg("guildbot stopped")
	return nil
}
