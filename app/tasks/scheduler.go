package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/pic-comb/app/feed"
)

const (
	taskQueueSize = 300
	taskTimeout   = 30 * time.Minute
)

// taskTimeouts caps a whole task run by type. Purges have no cap; each probe
// request carries its own timeout.
var taskTimeouts = map[TaskType]time.Duration{
	TaskTypeScrapeLinks: taskTimeout,
}

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	configCache *feed.ConfigCache
	collector   Collector
	filterer    *feed.Filterer
	linkRepo    LinkInserter
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewScheduler(configCache *feed.ConfigCache, collector Collector, filterer *feed.Filterer,
	linkRepo LinkInserter, interval time.Duration, workerCount int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if workerCount < 1 {
		workerCount = 1
	}

	return &Scheduler{
		configCache: configCache,
		collector:   collector,
		filterer:    filterer,
		linkRepo:    linkRepo,
		interval:    interval,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, taskQueueSize),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.EnqueueScrapeTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.EnqueueScrapeTasks()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

// EnqueueScrapeTasks queues one scrape per enabled source and returns the
// queued tasks.
func (s *Scheduler) EnqueueScrapeTasks() []TaskInterface {
	sourceConfigs := s.configCache.GetEnabledConfigs()
	if len(sourceConfigs) == 0 {
		slog.Debug("No enabled source configurations found")
		return nil
	}

	slog.Debug("Scheduling scrape tasks", "count", len(sourceConfigs))

	queued := make([]TaskInterface, 0, len(sourceConfigs))
	for _, sourceConfig := range sourceConfigs {
		scrapeTask, err := s.EnqueueScrapeTask(sourceConfig)
		if err != nil {
			slog.Warn("Failed to enqueue ScrapeLinksTask", "source", sourceConfig.Name, "error", err)
			continue
		}
		queued = append(queued, scrapeTask)
	}

	return queued
}

func (s *Scheduler) EnqueueScrapeTask(sourceConfig *feed.Config) (TaskInterface, error) {
	scrapeTask := NewScrapeLinksTask(sourceConfig, s.collector, s.filterer, s.linkRepo)
	if err := s.EnqueueTask(scrapeTask); err != nil {
		return nil, err
	}
	return scrapeTask, nil
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

// executeTask runs a task once. A failed scrape is picked up again on the
// next tick, so failures are only logged.
func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := taskContext(s.ctx, task.GetType())
	defer cancel()

	if err := task.Execute(taskCtx); err != nil {
		slog.Error("Worker task execution failed",
			"worker_id", workerID,
			"type", string(task.GetType()),
			"id", task.GetID(),
			"source", task.GetSource(),
			"duration", task.GetDuration(),
			"error", err)
	}
}

func taskContext(parent context.Context, taskType TaskType) (context.Context, context.CancelFunc) {
	if timeout, ok := taskTimeouts[taskType]; ok {
		return context.WithTimeout(parent, timeout)
	}
	return context.WithCancel(parent)
}
