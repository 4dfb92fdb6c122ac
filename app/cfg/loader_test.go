package cfg

import (
	"strings"
	"testing"
	"time"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Mode() != ModeServe {
		t.Errorf("Expected serve mode, got '%s'", cfg.Mode())
	}
	if cfg.Subreddit != "wholesomeyuri" {
		t.Errorf("Expected subreddit 'wholesomeyuri', got '%s'", cfg.Subreddit)
	}
	if cfg.PurgeConcurrency != 1 {
		t.Errorf("Expected purge concurrency 1, got %d", cfg.PurgeConcurrency)
	}
	if cfg.ScrapeInterval != 30*time.Minute {
		t.Errorf("Expected scrape interval 30m, got %s", cfg.ScrapeInterval)
	}
	if cfg.ProbeTimeout != 10*time.Second {
		t.Errorf("Expected probe timeout 10s, got %s", cfg.ProbeTimeout)
	}
	if cfg.Version == "" {
		t.Error("Expected version to be set")
	}
}

func TestParseEnvironment(t *testing.T) {
	t.Setenv("DB_PATH", "/tmp/links.db")
	t.Setenv("PURGE_CONCURRENCY", "4")
	t.Setenv("SCRAPE_INTERVAL", "5m")

	cfg, err := Parse([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.DBPath != "/tmp/links.db" {
		t.Errorf("Expected db path from env, got '%s'", cfg.DBPath)
	}
	if cfg.PurgeConcurrency != 4 {
		t.Errorf("Expected purge concurrency 4, got %d", cfg.PurgeConcurrency)
	}
	if cfg.ScrapeInterval != 5*time.Minute {
		t.Errorf("Expected scrape interval 5m, got %s", cfg.ScrapeInterval)
	}
}

func TestParseSeedMode(t *testing.T) {
	cfg, err := Parse([]string{"--seed"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode() != ModeSeed || cfg.SeedCount != 0 {
		t.Errorf("Expected seed mode with source defaults, got %s/%d", cfg.Mode(), cfg.SeedCount)
	}

	cfg, err = Parse([]string{"--seed=150"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode() != ModeSeed || cfg.SeedCount != 150 {
		t.Errorf("Expected seed mode with 150 posts, got %s/%d", cfg.Mode(), cfg.SeedCount)
	}
}

func TestParsePurgeMode(t *testing.T) {
	cfg, err := Parse([]string{"--purge", "--dry-run", "--start-id=120"})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Mode() != ModePurge {
		t.Errorf("Expected purge mode, got '%s'", cfg.Mode())
	}
	if !cfg.DryRun || cfg.StartID != 120 {
		t.Errorf("Expected dry run from 120, got dry_run=%v start_id=%d", cfg.DryRun, cfg.StartID)
	}
}

func TestParseRejectsInvalidCombinations(t *testing.T) {
	tests := []struct {
		args    []string
		errPart string
	}{
		{[]string{"--seed", "--purge"}, "mutually exclusive"},
		{[]string{"--dry-run"}, "require --purge"},
		{[]string{"--start-id=5"}, "require --purge"},
		{[]string{"--purge", "--start-id=-1"}, "non-negative"},
		{[]string{"--purge-concurrency=0"}, "at least 1"},
		{[]string{"--unknown-flag"}, "failed to parse"},
	}

	for _, tt := range tests {
		_, err := Parse(tt.args)
		if err == nil {
			t.Errorf("%v: expected error", tt.args)
			continue
		}
		if !strings.Contains(err.Error(), tt.errPart) {
			t.Errorf("%v: expected error containing '%s', got: %v", tt.args, tt.errPart, err)
		}
	}
}
