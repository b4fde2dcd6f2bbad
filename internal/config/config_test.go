package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PHANTOMBUSTER_API_KEY", "key")
	t.Setenv("PHANTOMBUSTER_PHANTOM_ID", "agent")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Scrape.PollInterval != 5*time.Second {
		t.Fatalf("expected 5s poll interval, got %s", cfg.Scrape.PollInterval)
	}
	if cfg.Scrape.MaxPollAttempts != 60 {
		t.Fatalf("expected 60 attempts, got %d", cfg.Scrape.MaxPollAttempts)
	}
	if cfg.Provider.URLKey != "postUrl" || cfg.Provider.SessionKey != "sessionCookie" {
		t.Fatalf("unexpected default argument keys: %+v", cfg.Provider)
	}
	if cfg.Provider.APIKey != "key" || cfg.Provider.AgentID != "agent" {
		t.Fatalf("provider credentials not loaded: %+v", cfg.Provider)
	}
}

func TestLoadDurationFormats(t *testing.T) {
	t.Setenv("SCRAPE_POLL_INTERVAL", "2")
	t.Setenv("SCRAPE_LOCK_TTL", "90s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Scrape.PollInterval != 2*time.Second {
		t.Fatalf("expected plain seconds to parse, got %s", cfg.Scrape.PollInterval)
	}
	if cfg.Scrape.LockTTL != 90*time.Second {
		t.Fatalf("expected duration string to parse, got %s", cfg.Scrape.LockTTL)
	}
}

func TestLoadRejectsUnknownStrategy(t *testing.T) {
	t.Setenv("PROVIDER_ARGUMENT_STRATEGY", "magic")

	if _, err := Load(); err == nil {
		t.Fatalf("expected validation error for unknown strategy")
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "d", SSLMode: "disable"}

	if got := cfg.DSN(); got != "host=db port=5432 user=u password=p dbname=d sslmode=disable" {
		t.Fatalf("unexpected dsn: %s", got)
	}
}
