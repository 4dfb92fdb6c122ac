package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/pic-comb/app/database"
	"github.com/lysyi3m/pic-comb/app/feed"
	"github.com/lysyi3m/pic-comb/app/linkcheck"
	"github.com/lysyi3m/pic-comb/app/tasks"
)

type fakeLinkRepo struct {
	links []database.Link
}

func (r *fakeLinkRepo) InsertLinks(links []database.NewLink) (int, error) { return 0, nil }
func (r *fakeLinkRepo) GetLinksFrom(minID int64) ([]database.Link, error) {
	return r.links, nil
}
func (r *fakeLinkRepo) DeleteLink(id int64) error { return nil }
func (r *fakeLinkRepo) GetLinkCount() (int, error) {
	return len(r.links), nil
}

func (r *fakeLinkRepo) GetMatchingLinkCount(term string) (int, error) {
	count := 0
	for _, link := range r.links {
		if strings.Contains(strings.ToLower(link.Title), strings.ToLower(term)) {
			count++
		}
	}
	return count, nil
}

func (r *fakeLinkRepo) GetRandomLink() (*database.Link, error) {
	if len(r.links) == 0 {
		return nil, nil
	}
	return &r.links[0], nil
}

func (r *fakeLinkRepo) GetRandomMatchingLink(term string) (*database.Link, error) {
	for i, link := range r.links {
		if strings.Contains(strings.ToLower(link.Title), strings.ToLower(term)) {
			return &r.links[i], nil
		}
	}
	return nil, nil
}

type fakeScheduler struct {
	enqueued []tasks.TaskInterface
	full     bool
}

func (s *fakeScheduler) Start() {}
func (s *fakeScheduler) Stop()  {}

func (s *fakeScheduler) EnqueueTask(task tasks.TaskInterface) error {
	if s.full {
		return fmt.Errorf("task queue is full")
	}
	s.enqueued = append(s.enqueued, task)
	return nil
}

func (s *fakeScheduler) EnqueueScrapeTasks() []tasks.TaskInterface {
	task := tasks.NewScrapeLinksTask(feed.DefaultConfig("wholesomeyuri"), nil, feed.NewFilterer(), nil)
	s.enqueued = append(s.enqueued, task)
	return []tasks.TaskInterface{task}
}

func (s *fakeScheduler) EnqueueScrapeTask(sourceConfig *feed.Config) (tasks.TaskInterface, error) {
	if s.full {
		return nil, fmt.Errorf("task queue is full")
	}
	task := tasks.NewScrapeLinksTask(sourceConfig, nil, feed.NewFilterer(), nil)
	s.enqueued = append(s.enqueued, task)
	return task, nil
}

type liveProber struct{}

func (liveProber) Probe(ctx context.Context, id int64, rawURL string) linkcheck.Outcome {
	return linkcheck.Outcome{Verdict: linkcheck.Live}
}

const testAPIKey = "secret"

func newTestServer(t *testing.T) (*gin.Engine, *fakeScheduler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := &fakeLinkRepo{links: []database.Link{
		{ID: 1, URL: "https://i.redd.it/a.png", Title: "Morning coffee"},
		{ID: 2, URL: "https://i.redd.it/b.png", Title: "Rainy walk"},
	}}
	configCache := feed.NewConfigCache(t.TempDir())
	configCache.Set(feed.DefaultConfig("wholesomeyuri"))
	scheduler := &fakeScheduler{}

	handler := NewHandler(configCache, repo, scheduler, liveProber{}, 1)
	return NewServer(handler, testAPIKey), scheduler
}

func doRequest(r http.Handler, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON response: %v (%s)", err, w.Body.String())
	}
	return body
}

func TestHealth(t *testing.T) {
	r, _ := newTestServer(t)

	w := doRequest(r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	body := decodeBody(t, w)
	if body["links"] != float64(2) {
		t.Errorf("Expected 2 links, got %v", body["links"])
	}
	if body["loaded_sources"] != float64(1) {
		t.Errorf("Expected 1 loaded source, got %v", body["loaded_sources"])
	}
}

func TestStats(t *testing.T) {
	r, _ := newTestServer(t)

	body := decodeBody(t, doRequest(r, http.MethodGet, "/stats?q=coffee", nil))
	if body["total"] != float64(2) || body["matching"] != float64(1) {
		t.Errorf("Unexpected stats: %v", body)
	}

	body = decodeBody(t, doRequest(r, http.MethodGet, "/stats", nil))
	if _, ok := body["matching"]; ok {
		t.Errorf("Expected no matching count without q, got %v", body)
	}
}

func TestRandomLink(t *testing.T) {
	r, _ := newTestServer(t)

	w := doRequest(r, http.MethodGet, "/links/random?q=rainy", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var link LinkResponse
	if err := json.Unmarshal(w.Body.Bytes(), &link); err != nil {
		t.Fatal(err)
	}
	if link.ID != 2 || link.URL != "https://i.redd.it/b.png" {
		t.Errorf("Unexpected link: %+v", link)
	}

	w = doRequest(r, http.MethodGet, "/links/random?q=umbrella", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unmatched term, got %d", w.Code)
	}
}

func TestAPIRequiresKey(t *testing.T) {
	r, scheduler := newTestServer(t)

	if w := doRequest(r, http.MethodPost, "/api/purge", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without key, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodPost, "/api/purge", map[string]string{"X-API-Key": "wrong"}); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong key, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodPost, "/api/purge", map[string]string{"Authorization": "Bearer " + testAPIKey}); w.Code != http.StatusAccepted {
		t.Errorf("Expected 202 with bearer key, got %d", w.Code)
	}
	if len(scheduler.enqueued) != 1 {
		t.Errorf("Expected exactly one task enqueued, got %d", len(scheduler.enqueued))
	}
}

func TestAPIPurgeLinks(t *testing.T) {
	r, scheduler := newTestServer(t)
	auth := map[string]string{"X-API-Key": testAPIKey}

	w := doRequest(r, http.MethodPost, "/api/purge?dry_run=true&start_id=10", auth)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", w.Code)
	}

	purgeTask, ok := scheduler.enqueued[0].(*tasks.PurgeLinksTask)
	if !ok {
		t.Fatalf("Expected purge task, got %T", scheduler.enqueued[0])
	}
	if !purgeTask.Options.DryRun || purgeTask.Options.StartID != 10 {
		t.Errorf("Unexpected purge options: %+v", purgeTask.Options)
	}

	if w := doRequest(r, http.MethodPost, "/api/purge?start_id=abc", auth); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad start_id, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodPost, "/api/purge?dry_run=maybe", auth); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad dry_run, got %d", w.Code)
	}

	scheduler.full = true
	if w := doRequest(r, http.MethodPost, "/api/purge", auth); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 when queue is full, got %d", w.Code)
	}
}

func TestAPIScrapeLinks(t *testing.T) {
	r, _ := newTestServer(t)

	w := doRequest(r, http.MethodPost, "/api/scrape", map[string]string{"X-API-Key": testAPIKey})
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", w.Code)
	}

	body := decodeBody(t, w)
	queued, _ := body["tasks"].([]interface{})
	if len(queued) != 1 {
		t.Fatalf("Expected 1 queued task, got %v", body["tasks"])
	}
	task := queued[0].(map[string]interface{})
	if task["type"] != string(tasks.TaskTypeScrapeLinks) || task["source"] != "wholesomeyuri" {
		t.Errorf("Unexpected task: %v", task)
	}
}

func TestAPIScrapeSingleSource(t *testing.T) {
	r, scheduler := newTestServer(t)
	auth := map[string]string{"X-API-Key": testAPIKey}

	w := doRequest(r, http.MethodPost, "/api/scrape?source=wholesomeyuri", auth)
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", w.Code)
	}
	if len(scheduler.enqueued) != 1 || scheduler.enqueued[0].GetSource() != "wholesomeyuri" {
		t.Errorf("Expected one scrape for wholesomeyuri, got %v", scheduler.enqueued)
	}

	if w := doRequest(r, http.MethodPost, "/api/scrape?source=unknown", auth); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown source, got %d", w.Code)
	}

	scheduler.full = true
	if w := doRequest(r, http.MethodPost, "/api/scrape?source=wholesomeyuri", auth); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 when queue is full, got %d", w.Code)
	}
}

func TestAPIDisabledWithoutKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(feed.NewConfigCache(t.TempDir()), &fakeLinkRepo{}, &fakeScheduler{}, liveProber{}, 1)
	r := NewServer(handler, "")

	if w := doRequest(r, http.MethodPost, "/api/scrape", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 when API is disabled, got %d", w.Code)
	}
}
