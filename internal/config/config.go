// Package config loads the bot configuration: a YAML file with Go
// duration strings, plus environment overrides for deployment secrets.
// A missing token or event channel aborts startup; there is no degraded
// mode.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	yaml "go.yaml.in/yaml/v3"

	"guildbot/internal/storage"
)

type Config struct {
	Discord   DiscordConfig   `yaml:"discord"`
	Timezone  string          `yaml:"timezone" envconfig:"TZ_DEFAULT"`
	Hub       HubConfig       `yaml:"hub"`
	Reminders RemindersConfig `yaml:"reminders"`
	Announce  AnnounceConfig  `yaml:"announce"`
	Retention RetentionConfig `yaml:"retention"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`

	resolved resolved
}

type DiscordConfig struct {
	Token          string `yaml:"token" envconfig:"DISCORD_TOKEN"`
	GuildID        string `yaml:"guild_id" envconfig:"DISCORD_GUILD_ID"`
	EventChannelID string `yaml:"event_channel_id" envconfig:"EVENT_CHANNEL_ID"`
	SendRatePerSec int    `yaml:"send_rate_per_sec"`
}

type HubConfig struct {
	Pin bool `yaml:"pin"`
	// AlwaysLast keeps the hub as the newest message in the channel.
	// Pointer so "omitted" defaults to true.
	AlwaysLast *bool `yaml:"always_last"`
	// BumpCooldown is a Go duration string (e.g. "60s").
	BumpCooldown string `yaml:"bump_cooldown"`
}

type RemindersConfig struct {
	// LeadMinutes are the minutes-before-start thresholds, largest first.
	// Must have exactly one entry per ledger flag.
	LeadMinutes []int  `yaml:"lead_minutes"`
	Tick        string `yaml:"tick"`
	Lookback    string `yaml:"lookback"`
}

type AnnounceConfig struct {
	// Grace bounds how long after a window start the safety pass may
	// still post the open notice.
	Grace string `yaml:"grace"`
}

type RetentionConfig struct {
	Delay       string `yaml:"delay"`
	Sweep       string `yaml:"sweep"`
	ScanBatches int    `yaml:"scan_batches"`
	PageSize    int    `yaml:"page_size"`
}

type StorageConfig struct {
	Path        string `yaml:"path"`
	BusyTimeout string `yaml:"busy_timeout"`
}

type LoggingConfig struct {
	Level   string `yaml:"level"`
	Console bool   `yaml:"console"`
}

type resolved struct {
	loc            *time.Location
	bumpCooldown   time.Duration
	reminderTick   time.Duration
	lookback       time.Duration
	announceGrace  time.Duration
	retentionDelay time.Duration
	retentionSweep time.Duration
	busyTimeout    time.Duration
}

// Load reads path, applies env overrides, fills defaults and validates.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse builds a Config from raw YAML (exposed for the file watcher and
// tests).
func Parse(b []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) finalize() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("config: discord.token is required")
	}
	if c.Discord.EventChannelID == "" {
		return fmt.Errorf("config: discord.event_channel_id is required")
	}

	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("config: timezone: %w", err)
	}
	c.resolved.loc = loc

	if len(c.Reminders.LeadMinutes) == 0 {
		c.Reminders.LeadMinutes = []int{1440, 360, 60, 15}
	}
	if len(c.Reminders.LeadMinutes) != storage.ThresholdCount {
		return fmt.Errorf("config: reminders.lead_minutes needs exactly %d entries, got %d",
			storage.ThresholdCount, len(c.Reminders.LeadMinutes))
	}
	for i, m := range c.Reminders.LeadMinutes {
		if m <= 0 {
			return fmt.Errorf("config: reminders.lead_minutes[%d] must be positive", i)
		}
		if i > 0 && m >= c.Reminders.LeadMinutes[i-1] {
			return fmt.Errorf("config: reminders.lead_minutes must be strictly descending, got %v", c.Reminders.LeadMinutes)
		}
	}

	if c.Retention.ScanBatches <= 0 {
		c.Retention.ScanBatches = 5
	}
	if c.Retention.PageSize <= 0 {
		c.Retention.PageSize = 100
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "./data/guildbot.sqlite"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	r := &c.resolved
	for _, f := range []struct {
		path string
		raw  string
		def  time.Duration
		dst  *time.Duration
	}{
		{"hub.bump_cooldown", c.Hub.BumpCooldown, 60 * time.Second, &r.bumpCooldown},
		{"reminders.tick", c.Reminders.Tick, 30 * time.Second, &r.reminderTick},
		{"reminders.lookback", c.Reminders.Lookback, 7 * 24 * time.Hour, &r.lookback},
		{"announce.grace", c.Announce.Grace, 10 * time.Minute, &r.announceGrace},
		{"retention.delay", c.Retention.Delay, 2 * time.Hour, &r.retentionDelay},
		{"retention.sweep", c.Retention.Sweep, 15 * time.Minute, &r.retentionSweep},
		{"storage.busy_timeout", c.Storage.BusyTimeout, 0, &r.busyTimeout},
	} {
		d, err := duration(f.path, f.raw, f.def)
		if err != nil {
			return err
		}
		*f.dst = d
	}
	return nil
}

// duration parses a Go duration string from the config, substituting
// def when the field is empty or zero. path names the field in error
// messages.
func duration(path, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("config: %s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("config: %s: duration must be >= 0", path)
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}

// Resolved accessors (defaults already applied).

func (c *Config) Location() *time.Location         { return c.resolved.loc }
func (c *Config) HubAlwaysLast() bool              { return c.Hub.AlwaysLast == nil || *c.Hub.AlwaysLast }
func (c *Config) HubBumpCooldown() time.Duration   { return c.resolved.bumpCooldown }
func (c *Config) ReminderTick() time.Duration      { return c.resolved.reminderTick }
func (c *Config) ReminderLookback() time.Duration  { return c.resolved.lookback }
func (c *Config) AnnounceGrace() time.Duration     { return c.resolved.announceGrace }
func (c *Config) RetentionDelay() time.Duration    { return c.resolved.retentionDelay }
func (c *Config) RetentionSweep() time.Duration    { return c.resolved.retentionSweep }
func (c *Config) StorageBusyTimeout() time.Duration { return c.resolved.busyTimeout }
