package tasks

import (
	"context"

	"github.com/lysyi3m/pic-comb/app/database"
	"github.com/lysyi3m/pic-comb/app/feed"
	"github.com/lysyi3m/pic-comb/app/linkcheck"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the API to run background tasks.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// Collector pulls up to target candidate links for a listing query.
type Collector interface {
	Collect(ctx context.Context, query feed.Query, target int) ([]feed.Link, error)
}

type LinkInserter interface {
	InsertLinks(links []database.NewLink) (int, error)
}

// LinkStore is the part of the link repository a purge needs.
type LinkStore interface {
	GetLinksFrom(minID int64) ([]database.Link, error)
	DeleteLink(id int64) error
}

type Prober interface {
	Probe(ctx context.Context, id int64, rawURL string) linkcheck.Outcome
}

var (
	_ Collector = (*feed.Paginator)(nil)
	_ Prober    = (*linkcheck.Checker)(nil)
	_ LinkStore = (database.LinkRepository)(nil)
)
