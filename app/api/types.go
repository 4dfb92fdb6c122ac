package api

import (
	"github.com/lysyi3m/pic-comb/app/database"
	"github.com/lysyi3m/pic-comb/app/feed"
	"github.com/lysyi3m/pic-comb/app/tasks"
)

type TaskScheduler interface {
	tasks.TaskSchedulerInterface
	EnqueueScrapeTasks() []tasks.TaskInterface
	EnqueueScrapeTask(sourceConfig *feed.Config) (tasks.TaskInterface, error)
}

var _ TaskScheduler = (*tasks.Scheduler)(nil)

type Handler struct {
	linkRepo         database.LinkRepository
	configCache      *feed.ConfigCache
	scheduler        TaskScheduler
	prober           tasks.Prober
	purgeConcurrency int
}

type LinkResponse struct {
	ID    int64  `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

type TaskResponse struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Source string `json:"source,omitempty"`
}
