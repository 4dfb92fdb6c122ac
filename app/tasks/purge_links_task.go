package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/pic-comb/app/database"
	"github.com/lysyi3m/pic-comb/app/linkcheck"
)

const purgeProgressEvery = 100

type PurgeOptions struct {
	StartID     int64
	DryRun      bool
	Concurrency int // probes in flight, 1 when unset
}

// PurgeResult summarizes one sweep. Removed counts links found dead, whether
// or not they were actually deleted; DeleteFailures is the subset whose delete
// failed.
type PurgeResult struct {
	StartID        int64
	DryRun         bool
	Total          int
	Checked        int
	Removed        int
	Skipped        int
	DeleteFailures int
}

type PurgeLinksTask struct {
	Task
	Options  PurgeOptions
	linkRepo LinkStore
	prober   Prober

	mu     sync.Mutex
	result PurgeResult
}

func NewPurgeLinksTask(options PurgeOptions, linkRepo LinkStore, prober Prober) *PurgeLinksTask {
	if options.Concurrency < 1 {
		options.Concurrency = 1
	}

	return &PurgeLinksTask{
		Task:     NewTask(TaskTypePurgeLinks, ""),
		Options:  options,
		linkRepo: linkRepo,
		prober:   prober,
	}
}

func (t *PurgeLinksTask) Execute(ctx context.Context) error {
	_, err := t.Run(ctx)
	return err
}

// Run probes every stored link with id >= StartID in ascending id order and
// deletes the dead ones. Only failing to list links is fatal; probe and delete
// failures are logged and counted.
func (t *PurgeLinksTask) Run(ctx context.Context) (PurgeResult, error) {
	if t.StartedAt == nil {
		t.Start()
	}

	links, err := t.linkRepo.GetLinksFrom(t.Options.StartID)
	if err != nil {
		return PurgeResult{}, fmt.Errorf("failed to load links from %d: %w", t.Options.StartID, err)
	}

	t.result = PurgeResult{
		StartID: t.Options.StartID,
		DryRun:  t.Options.DryRun,
		Total:   len(links),
	}

	slog.Info("Purge started",
		"start_id", t.Options.StartID,
		"dry_run", t.Options.DryRun,
		"total", len(links),
		"concurrency", t.Options.Concurrency)

	var g errgroup.Group
	g.SetLimit(t.Options.Concurrency)

	for _, link := range links {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			t.check(ctx, link)
			return nil
		})
	}
	_ = g.Wait()

	result := t.snapshot()

	if err := ctx.Err(); err != nil {
		slog.Warn("Purge interrupted", "checked", result.Checked, "total", result.Total, "removed", result.Removed, "error", err)
		return result, err
	}

	removedKey := "removed"
	if result.DryRun {
		removedKey = "would_remove"
	}
	slog.Info("Task completed",
		"type", string(t.Type),
		"duration", t.GetDuration(),
		"checked", result.Checked,
		removedKey, result.Removed,
		"skipped", result.Skipped,
		"delete_failures", result.DeleteFailures)

	return result, nil
}

func (t *PurgeLinksTask) check(ctx context.Context, link database.Link) {
	outcome := t.prober.Probe(ctx, link.ID, link.URL)

	deleteFailed := false
	switch outcome.Verdict {
	case linkcheck.Dead:
		if t.Options.DryRun {
			slog.Info("Link would be removed", "id", link.ID, "url", link.URL, "reason", outcome.Err)
			break
		}
		if err := t.linkRepo.DeleteLink(link.ID); err != nil {
			slog.Error("Failed to remove dead link", "id", link.ID, "url", link.URL, "error", err)
			deleteFailed = true
			break
		}
		slog.Info("Link removed", "id", link.ID, "url", link.URL, "reason", outcome.Err)
	case linkcheck.Indeterminate:
		slog.Warn("Link check inconclusive, skipping", "id", link.ID, "url", link.URL, "error", outcome.Err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.result.Checked++
	switch outcome.Verdict {
	case linkcheck.Dead:
		t.result.Removed++
		if deleteFailed {
			t.result.DeleteFailures++
		}
	case linkcheck.Indeterminate:
		t.result.Skipped++
	}

	if t.result.Checked%purgeProgressEvery == 0 {
		slog.Info("Purge progress",
			"checked", t.result.Checked,
			"total", t.result.Total,
			"current_id", link.ID,
			"removed", t.result.Removed)
	}
}

func (t *PurgeLinksTask) snapshot() PurgeResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}
