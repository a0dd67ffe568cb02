package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Cooldown CooldownConfig `json:"cooldown,omitempty"`
	Storage  StorageConfig  `json:"storage,omitempty"`
	Welcome  WelcomeConfig  `json:"welcome,omitempty"`
	Bot      BotConfig      `json:"bot,omitempty"`
}

type TelegramConfig struct {
	// Token may be left empty in the file, in which case the BOT_TOKEN
	// environment variable is used. Startup fails if both are empty.
	Token string `json:"token,omitempty"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level,omitempty"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// CooldownConfig controls the per-user send gate.
type CooldownConfig struct {
	// Window is a Go duration string; minimum elapsed time between two
	// permitted sends to the same user. Default "24h".
	Window string `json:"window,omitempty"`
}

// StorageConfig controls the cooldown persistence layer.
//
// Driver values:
//   - "sqlite" (default): SQLite database file
//   - "file": dependency-free file backend (journal + snapshot)
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)

	// Retention enables pruning of cooldown records whose last send is
	// older than this duration. "0" (default) keeps records forever.
	Retention string `json:"retention,omitempty"`
	// PruneSchedule is a cron spec for the retention job. Default "0 4 * * *".
	PruneSchedule string `json:"prune_schedule,omitempty"`
}

// WelcomeConfig is the outbound message surface: template, link buttons
// and the send rate toward Telegram.
type WelcomeConfig struct {
	// Template may contain {name} (requester first name) and {chat}
	// (target chat title or @username) placeholders.
	Template string `json:"template,omitempty"`
	Links    []Link `json:"links,omitempty"`
	// RatePerSec caps outbound sends. Default 3.
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type BotConfig struct {
	Workers   int `json:"workers,omitempty"`    // default 2
	QueueSize int `json:"queue_size,omitempty"` // default 256
}

const (
	DefaultCooldownWindow = 24 * time.Hour
	DefaultStoragePath    = "./data/cooldowns.db"
	DefaultPruneSchedule  = "0 4 * * *"
)

// ParseDurationField parses an optional Go duration string from the config.
// Empty means zero; negative values are rejected. path names the config
// key for the error message.
func ParseDurationField(path, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with def substituted for
// empty or zero values.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// ResolveToken returns the bot credential, falling back to the BOT_TOKEN
// environment variable when the config file leaves it empty.
func (c *Config) ResolveToken() string {
	if t := strings.TrimSpace(c.Telegram.Token); t != "" {
		return t
	}
	return strings.TrimSpace(os.Getenv("BOT_TOKEN"))
}

// Validate rejects configs that could not be applied. It is used both at
// startup and as the hot-reload validator, so it must not have side effects.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.ResolveToken() == "" {
		return errors.New("telegram.token is empty and BOT_TOKEN is not set")
	}
	if _, err := ParseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
		return err
	}
	window, err := ParseDurationOrDefault("cooldown.window", c.Cooldown.Window, DefaultCooldownWindow)
	if err != nil {
		return err
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	retention, err := ParseDurationField("storage.retention", c.Storage.Retention)
	if err != nil {
		return err
	}
	// A record pruned before its window elapsed would re-permit a send early.
	if retention > 0 && retention < window {
		return fmt.Errorf("storage.retention (%s) must be >= cooldown.window (%s)", retention, window)
	}
	for i, l := range c.Welcome.Links {
		if strings.TrimSpace(l.Label) == "" || strings.TrimSpace(l.URL) == "" {
			return fmt.Errorf("welcome.links[%d]: label and url are required", i)
		}
	}
	return nil
}
