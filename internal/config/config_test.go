package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return NewManager(path)
}

const yamlConfig = `
telegram:
  token: "123:abc"
  poll_timeout: "10s"
logging:
  level: debug
  console: true
cooldown:
  window: "24h"
storage:
  driver: sqlite
  path: ./data/cooldowns.db
welcome:
  template: "Hi {name}"
  links:
    - { label: Rules, url: "https://example.com/rules" }
bot:
  workers: 4
`

const jsonConfig = `{
  "telegram": {"token": "123:abc", "poll_timeout": "10s"},
  "logging": {"level": "debug", "console": true},
  "cooldown": {"window": "24h"},
  "storage": {"driver": "sqlite", "path": "./data/cooldowns.db"},
  "welcome": {"template": "Hi {name}", "links": [{"label": "Rules", "url": "https://example.com/rules"}]},
  "bot": {"workers": 4}
}`

func TestParseYAMLAndJSONEquivalent(t *testing.T) {
	ycfg, err := writeConfig(t, "config.yaml", yamlConfig).Parse()
	if err != nil {
		t.Fatalf("parse yaml: %v", err)
	}
	jcfg, err := writeConfig(t, "config.json", jsonConfig).Parse()
	if err != nil {
		t.Fatalf("parse json: %v", err)
	}

	if ycfg.Telegram.Token != jcfg.Telegram.Token ||
		ycfg.Cooldown.Window != jcfg.Cooldown.Window ||
		ycfg.Bot.Workers != jcfg.Bot.Workers ||
		len(ycfg.Welcome.Links) != len(jcfg.Welcome.Links) ||
		ycfg.Welcome.Links[0] != jcfg.Welcome.Links[0] {
		t.Fatalf("yaml and json configs decode differently:\n%+v\n%+v", ycfg, jcfg)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	m := writeConfig(t, "config.yaml", "telegram:\n  token: x\n  typo_field: 1\n")
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	m := writeConfig(t, "config.json", `{"telegram":{"token":"x"}}{"extra":1}`)
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for trailing data")
	}
}

func TestValidateTokenRequired(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	cfg := &Config{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when token and BOT_TOKEN are both empty")
	}

	t.Setenv("BOT_TOKEN", "123:abc")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("BOT_TOKEN fallback rejected: %v", err)
	}
	if got := cfg.ResolveToken(); got != "123:abc" {
		t.Fatalf("ResolveToken = %q, want env fallback", got)
	}

	cfg.Telegram.Token = "456:def"
	if got := cfg.ResolveToken(); got != "456:def" {
		t.Fatalf("ResolveToken = %q, want file token to win", got)
	}
}

func TestValidateDurationsAndRetention(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")

	cfg := &Config{Cooldown: CooldownConfig{Window: "not-a-duration"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for bad window")
	}

	// Retention shorter than the window would re-permit sends early.
	cfg = &Config{
		Cooldown: CooldownConfig{Window: "24h"},
		Storage:  StorageConfig{Retention: "1h"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for retention < window")
	}

	cfg.Storage.Retention = "720h"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid retention rejected: %v", err)
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{name: "empty means zero", raw: ""},
		{name: "whitespace means zero", raw: "  "},
		{name: "plain duration", raw: "10s", want: 10 * time.Second},
		{name: "compound duration", raw: "1h30m", want: 90 * time.Minute},
		{name: "negative rejected", raw: "-5s", wantErr: true},
		{name: "garbage rejected", raw: "tomorrow", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseDurationField("x.y", tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDurationField(%q): expected error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDurationField(%q): %v", tt.raw, err)
			}
			if got != tt.want {
				t.Fatalf("ParseDurationField(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}

	if d, err := ParseDurationOrDefault("x.y", "", time.Minute); err != nil || d != time.Minute {
		t.Fatalf("ParseDurationOrDefault fallback = %v, %v", d, err)
	}
	if d, err := ParseDurationOrDefault("x.y", "5s", time.Minute); err != nil || d != 5*time.Second {
		t.Fatalf("ParseDurationOrDefault explicit = %v, %v", d, err)
	}
}

func TestValidateLinks(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	cfg := &Config{Welcome: WelcomeConfig{Links: []Link{{Label: "Rules"}}}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for link without url")
	}
}
