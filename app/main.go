package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/lysyi3m/pic-comb/app/api"
	"github.com/lysyi3m/pic-comb/app/cfg"
	"github.com/lysyi3m/pic-comb/app/database"
	"github.com/lysyi3m/pic-comb/app/feed"
	"github.com/lysyi3m/pic-comb/app/linkcheck"
	"github.com/lysyi3m/pic-comb/app/tasks"
)

type app struct {
	cfg         *cfg.Cfg
	linkRepo    *database.SQLiteLinkRepository
	configCache *feed.ConfigCache
	feedClient  *feed.Client
	paginator   *feed.Paginator
	filterer    *feed.Filterer
	checker     *linkcheck.Checker
}

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	setupLogger(appCfg.Debug)

	if err := run(appCfg); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting pic-comb", "version", appCfg.Version, "mode", string(appCfg.Mode()))

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return err
	}
	slog.Debug("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	configCache := feed.NewConfigCache(appCfg.SourcesDir)
	if err := configCache.Run(); err != nil {
		return fmt.Errorf("failed to load source configurations: %w", err)
	}
	if configCache.GetConfigCount() == 0 {
		slog.Info("No source configurations found, using default source", "dir", appCfg.SourcesDir, "subreddit", appCfg.Subreddit)
		configCache.Set(feed.DefaultConfig(appCfg.Subreddit))
	}

	// One transport for listing requests and link probes
	httpClient := &http.Client{Transport: http.DefaultTransport.(*http.Transport).Clone()}

	var limiter *rate.Limiter
	if appCfg.FeedRateInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(appCfg.FeedRateInterval), 1)
	}

	feedClient, err := feed.NewClient(httpClient, feed.ClientConfig{
		BaseURL:   appCfg.RedditURL,
		UserAgent: appCfg.UserAgent,
		Timeout:   appCfg.FeedTimeout,
		Limiter:   limiter,
	})
	if err != nil {
		return err
	}

	a := &app{
		cfg:         appCfg,
		linkRepo:    database.NewLinkRepository(db),
		configCache: configCache,
		feedClient:  feedClient,
		paginator:   feed.NewPaginator(feedClient),
		filterer:    feed.NewFilterer(),
		checker: linkcheck.NewChecker(httpClient, linkcheck.CheckerConfig{
			UserAgent: appCfg.UserAgent,
			Timeout:   appCfg.ProbeTimeout,
		}),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch appCfg.Mode() {
	case cfg.ModeSeed:
		return a.seed(ctx)
	case cfg.ModePurge:
		return a.purge(ctx)
	default:
		return a.serve(ctx)
	}
}

// seed runs one whole-history scrape per enabled source. A failing source is
// reported and does not stop the others.
func (a *app) seed(ctx context.Context) error {
	var failed []string
	total := 0

	for _, sourceConfig := range a.configCache.GetEnabledConfigs() {
		seedTask := tasks.NewSeedLinksTask(sourceConfig, a.cfg.SeedCount, a.paginator, a.filterer, a.linkRepo)
		result, err := seedTask.Run(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("Seeding source failed", "source", sourceConfig.Name, "error", err)
			failed = append(failed, sourceConfig.Name)
			continue
		}
		total += result.Inserted
	}

	slog.Info("Seeding finished", "new", total, "failed_sources", len(failed))

	if len(failed) > 0 {
		return fmt.Errorf("seeding failed for %d source(s): %v", len(failed), failed)
	}
	return nil
}

func (a *app) purge(ctx context.Context) error {
	purgeTask := tasks.NewPurgeLinksTask(tasks.PurgeOptions{
		StartID:     a.cfg.StartID,
		DryRun:      a.cfg.DryRun,
		Concurrency: a.cfg.PurgeConcurrency,
	}, a.linkRepo, a.checker)

	result, err := purgeTask.Run(ctx)
	if err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}

	slog.Info("Purge summary",
		"start_id", result.StartID,
		"dry_run", result.DryRun,
		"total", result.Total,
		"checked", result.Checked,
		"removed", result.Removed,
		"skipped", result.Skipped,
		"delete_failures", result.DeleteFailures)

	return nil
}

func (a *app) serve(ctx context.Context) error {
	if err := a.feedClient.Ping(ctx); err != nil {
		slog.Warn("Listing API is not reachable, scrapes will fail until it is", "url", a.cfg.RedditURL, "error", err)
	}

	scheduler := tasks.NewScheduler(a.configCache, a.paginator, a.filterer, a.linkRepo,
		a.cfg.ScrapeInterval, a.cfg.WorkerCount)

	slog.Info("Starting background scheduler", "workers", a.cfg.WorkerCount, "interval", a.cfg.ScrapeInterval)
	scheduler.Start()
	defer scheduler.Stop()

	if a.cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	apiHandler := api.NewHandler(a.configCache, a.linkRepo, scheduler, a.checker, a.cfg.PurgeConcurrency)
	server := api.NewServer(apiHandler, a.cfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", a.cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	case serveErr = <-serverErrChan:
		slog.Error("Server error", "error", serveErr)
	}

	slog.Info("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return serveErr
}
