package cfg

import "time"

type Mode string

const (
	ModeServe Mode = "serve"
	ModeSeed  Mode = "seed"
	ModePurge Mode = "purge"
)

type Cfg struct {
	// Storage
	DBPath     string
	SourcesDir string

	// Listing API
	Subreddit        string
	RedditURL        string
	UserAgent        string
	FeedTimeout      time.Duration
	FeedRateInterval time.Duration

	// Link checking
	ProbeTimeout     time.Duration
	PurgeConcurrency int

	// Server
	Port           string
	ScrapeInterval time.Duration
	WorkerCount    int
	APIAccessKey   string

	// One-shot modes
	Seed      bool
	SeedCount int // 0 means each source's seed_items
	Purge     bool
	DryRun    bool
	StartID   int64

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}

// Mode resolves which of the mutually exclusive run modes was requested.
func (c *Cfg) Mode() Mode {
	switch {
	case c.Purge:
		return ModePurge
	case c.Seed:
		return ModeSeed
	default:
		return ModeServe
	}
}
