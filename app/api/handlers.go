package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/pic-comb/app/database"
	"github.com/lysyi3m/pic-comb/app/feed"
	"github.com/lysyi3m/pic-comb/app/tasks"
)

func NewHandler(configCache *feed.ConfigCache, linkRepo database.LinkRepository,
	scheduler TaskScheduler, prober tasks.Prober, purgeConcurrency int) *Handler {
	return &Handler{
		linkRepo:         linkRepo,
		configCache:      configCache,
		scheduler:        scheduler,
		prober:           prober,
		purgeConcurrency: purgeConcurrency,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if linkCount, err := h.linkRepo.GetLinkCount(); err == nil {
		health["links"] = linkCount
	}

	health["loaded_sources"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	total, err := h.linkRepo.GetLinkCount()
	if err != nil {
		slog.Error("Database error", "operation", "get_link_count", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	stats := gin.H{"total": total}

	if term := strings.TrimSpace(c.Query("q")); term != "" {
		matching, err := h.linkRepo.GetMatchingLinkCount(term)
		if err != nil {
			slog.Error("Database error", "operation", "get_matching_link_count", "term", term, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
			return
		}
		stats["query"] = term
		stats["matching"] = matching
	}

	c.JSON(http.StatusOK, stats)
}

// GetRandomLink serves one random stored link, optionally restricted to
// titles containing the q phrase.
func (h *Handler) GetRandomLink(c *gin.Context) {
	term := strings.TrimSpace(c.Query("q"))

	var link *database.Link
	var err error
	if term == "" {
		link, err = h.linkRepo.GetRandomLink()
	} else {
		link, err = h.linkRepo.GetRandomMatchingLink(term)
	}
	if err != nil {
		slog.Error("Database error", "operation", "get_random_link", "term", term, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if link == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No matching link found"})
		return
	}

	c.JSON(http.StatusOK, LinkResponse{ID: link.ID, URL: link.URL, Title: link.Title})
}

func (h *Handler) APIListSources(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	sources := make([]map[string]interface{}, 0, len(configs))
	for _, sourceConfig := range configs {
		sources = append(sources, map[string]interface{}{
			"name":        sourceConfig.Name,
			"subreddit":   sourceConfig.Subreddit,
			"enabled":     sourceConfig.Settings.Enabled,
			"sort":        sourceConfig.Settings.Sort,
			"time_window": sourceConfig.Settings.TimeWindow,
			"max_items":   sourceConfig.Settings.MaxItems,
			"seed_items":  sourceConfig.Settings.SeedItems,
			"filters":     len(sourceConfig.Filters),
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sources": sources,
		"total":   len(sources),
	})
}

func (h *Handler) APIPurgeLinks(c *gin.Context) {
	options := tasks.PurgeOptions{Concurrency: h.purgeConcurrency}

	if raw := c.Query("dry_run"); raw != "" {
		dryRun, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dry_run parameter"})
			return
		}
		options.DryRun = dryRun
	}

	if raw := c.Query("start_id"); raw != "" {
		startID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || startID < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start_id parameter"})
			return
		}
		options.StartID = startID
	}

	purgeTask := tasks.NewPurgeLinksTask(options, h.linkRepo, h.prober)
	if err := h.scheduler.EnqueueTask(purgeTask); err != nil {
		slog.Error("Error enqueueing purge task", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue purge task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success":  true,
		"task":     taskResponse(purgeTask),
		"dry_run":  options.DryRun,
		"start_id": options.StartID,
	})
}

// APIScrapeLinks queues a scrape of every enabled source, or of the one named
// by the source parameter, enabled or not.
func (h *Handler) APIScrapeLinks(c *gin.Context) {
	if sourceName := c.Query("source"); sourceName != "" {
		h.scrapeSource(c, sourceName)
		return
	}

	queued := h.scheduler.EnqueueScrapeTasks()

	response := make([]TaskResponse, 0, len(queued))
	for _, task := range queued {
		response = append(response, taskResponse(task))
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"tasks":   response,
	})
}

func (h *Handler) scrapeSource(c *gin.Context, sourceName string) {
	sourceConfig, err := h.configCache.GetConfig(sourceName)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Source not found",
			"details": err.Error(),
		})
		return
	}

	scrapeTask, err := h.scheduler.EnqueueScrapeTask(sourceConfig)
	if err != nil {
		slog.Error("Error enqueueing scrape task", "source", sourceName, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue scrape task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"tasks":   []TaskResponse{taskResponse(scrapeTask)},
	})
}

func taskResponse(task tasks.TaskInterface) TaskResponse {
	return TaskResponse{
		ID:     task.GetID(),
		Type:   string(task.GetType()),
		Source: task.GetSource(),
	}
}
