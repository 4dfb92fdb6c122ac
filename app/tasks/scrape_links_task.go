package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/pic-comb/app/database"
	"github.com/lysyi3m/pic-comb/app/feed"
)

type ScrapeResult struct {
	Collected int
	Kept      int
	Inserted  int
}

type ScrapeLinksTask struct {
	Task
	SourceConfig *feed.Config
	Query        feed.Query
	Target       int
	collector    Collector
	filterer     *feed.Filterer
	linkRepo     LinkInserter
}

// NewScrapeLinksTask pulls the source's regular batch of recent posts.
func NewScrapeLinksTask(sourceConfig *feed.Config, collector Collector, filterer *feed.Filterer, linkRepo LinkInserter) *ScrapeLinksTask {
	return &ScrapeLinksTask{
		Task:         NewTask(TaskTypeScrapeLinks, sourceConfig.Name),
		SourceConfig: sourceConfig,
		Query:        sourceConfig.Query(),
		Target:       sourceConfig.Settings.MaxItems,
		collector:    collector,
		filterer:     filterer,
		linkRepo:     linkRepo,
	}
}

// NewSeedLinksTask pulls count posts from the source's whole history. A count
// of zero or less falls back to the source's seed_items setting.
func NewSeedLinksTask(sourceConfig *feed.Config, count int, collector Collector, filterer *feed.Filterer, linkRepo LinkInserter) *ScrapeLinksTask {
	task := NewScrapeLinksTask(sourceConfig, collector, filterer, linkRepo)
	task.Query = sourceConfig.SeedQuery()
	task.Target = sourceConfig.Settings.SeedItems
	if count > 0 {
		task.Target = count
	}
	return task
}

func (t *ScrapeLinksTask) Execute(ctx context.Context) error {
	_, err := t.Run(ctx)
	return err
}

// Run stores nothing unless the whole listing walk succeeded.
func (t *ScrapeLinksTask) Run(ctx context.Context) (ScrapeResult, error) {
	var result ScrapeResult
	if t.StartedAt == nil {
		t.Start()
	}

	select {
	case <-ctx.Done():
		return result, ctx.Err()
	default:
	}

	if !t.SourceConfig.Settings.Enabled {
		slog.Debug("Source disabled, skipping", "source", t.Source)
		return result, nil
	}

	links, err := t.collector.Collect(ctx, t.Query, t.Target)
	if err != nil {
		return result, fmt.Errorf("failed to collect links: %w", err)
	}
	result.Collected = len(links)

	kept := t.filterer.Run(links, t.SourceConfig)
	result.Kept = len(kept)

	newLinks := make([]database.NewLink, 0, len(kept))
	for _, link := range kept {
		newLinks = append(newLinks, database.NewLink{URL: link.URL, Title: link.Title})
	}

	inserted, err := t.linkRepo.InsertLinks(newLinks)
	if err != nil {
		return result, fmt.Errorf("failed to store links: %w", err)
	}
	result.Inserted = inserted

	slog.Info("Task completed",
		"type", "ScrapedLinks",
		"source", t.Source,
		"query", t.Query.String(),
		"duration", t.GetDuration(),
		"collected", result.Collected,
		"kept", result.Kept,
		"new", result.Inserted)

	return result, nil
}
