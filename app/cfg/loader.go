package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./pic-comb.db" description:"Path to the SQLite database file"`
	SourcesDir string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source configuration files"`

	// Listing API
	Subreddit        string        `long:"subreddit" env:"SUBREDDIT" default:"wholesomeyuri" description:"Subreddit used when no source files are found"`
	RedditURL        string        `long:"reddit-url" env:"REDDIT_URL" default:"https://www.reddit.com" description:"Base URL of the listing API"`
	UserAgent        string        `long:"user-agent" env:"USER_AGENT" default:"pic-comb/1.0" description:"User agent string for HTTP requests"`
	FeedTimeout      time.Duration `long:"feed-timeout" env:"FEED_TIMEOUT" default:"30s" description:"Timeout for a single listing page request"`
	FeedRateInterval time.Duration `long:"feed-rate-interval" env:"FEED_RATE_INTERVAL" default:"2s" description:"Minimum interval between listing requests (0 disables limiting)"`

	// Link checking
	ProbeTimeout     time.Duration `long:"probe-timeout" env:"PROBE_TIMEOUT" default:"10s" description:"Timeout for a single HEAD request while checking links"`
	PurgeConcurrency int           `long:"purge-concurrency" env:"PURGE_CONCURRENCY" default:"1" description:"Number of links checked in parallel during a purge"`

	// Server
	Port           string        `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	ScrapeInterval time.Duration `long:"scrape-interval" env:"SCRAPE_INTERVAL" default:"30m" description:"Interval between scrapes of enabled sources"`
	WorkerCount    int           `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers"`
	APIAccessKey   string        `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for admin endpoints (optional)"`

	// One-shot modes
	Seed    *int  `short:"s" long:"seed" optional:"yes" optional-value:"0" description:"Seed the database with N posts per source from all time, then exit"`
	Purge   bool  `long:"purge" description:"Check every stored link and remove dead ones, then exit"`
	DryRun  bool  `long:"dry-run" description:"With --purge, report dead links without removing them"`
	StartID int64 `long:"start-id" default:"0" description:"With --purge, first link id to check"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load reads an optional .env file and then parses flags and environment.
// It returns nil, nil when help was requested.
func Load() (*Cfg, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	cfg, err := Parse(os.Args[1:])
	if err != nil || cfg == nil {
		return cfg, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		slog.Warn("Invalid timezone, using system default", "timezone", cfg.Timezone, "error", err)
	}

	return cfg, nil
}

// Parse builds a Cfg from command line arguments and the environment.
func Parse(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:           raw.DBPath,
		SourcesDir:       raw.SourcesDir,
		Subreddit:        raw.Subreddit,
		RedditURL:        raw.RedditURL,
		UserAgent:        raw.UserAgent,
		FeedTimeout:      raw.FeedTimeout,
		FeedRateInterval: raw.FeedRateInterval,
		ProbeTimeout:     raw.ProbeTimeout,
		PurgeConcurrency: raw.PurgeConcurrency,
		Port:             raw.Port,
		ScrapeInterval:   raw.ScrapeInterval,
		WorkerCount:      raw.WorkerCount,
		APIAccessKey:     raw.APIAccessKey,
		Purge:            raw.Purge,
		DryRun:           raw.DryRun,
		StartID:          raw.StartID,
		Timezone:         raw.Timezone,
		Debug:            raw.Debug,
		Version:          GetVersion(),
	}

	if raw.Seed != nil {
		cfg.Seed = true
		cfg.SeedCount = *raw.Seed
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Cfg) error {
	if cfg.Seed && cfg.Purge {
		return fmt.Errorf("--seed and --purge are mutually exclusive")
	}
	if cfg.SeedCount < 0 {
		return fmt.Errorf("--seed must be non-negative")
	}
	if !cfg.Purge && (cfg.DryRun || cfg.StartID != 0) {
		return fmt.Errorf("--dry-run and --start-id require --purge")
	}
	if cfg.StartID < 0 {
		return fmt.Errorf("--start-id must be non-negative")
	}
	if cfg.PurgeConcurrency < 1 {
		return fmt.Errorf("purge concurrency must be at least 1")
	}
	if cfg.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}
	if cfg.ScrapeInterval <= 0 {
		return fmt.Errorf("scrape interval must be positive")
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			return err
		}
		time.Local = loc
	}
	return nil
}
