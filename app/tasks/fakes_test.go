package tasks

import (
	"context"
	"errors"
	"sync"

	"github.com/lysyi3m/pic-comb/app/database"
	"github.com/lysyi3m/pic-comb/app/feed"
	"github.com/lysyi3m/pic-comb/app/linkcheck"
)

type fakeLinkStore struct {
	mu        sync.Mutex
	links     []database.Link
	deleted   []int64
	failOn    map[int64]bool
	listErr   error
	inserted  []database.NewLink
	insertErr error
}

func newFakeLinkStore(count int) *fakeLinkStore {
	store := &fakeLinkStore{failOn: map[int64]bool{}}
	for i := 1; i <= count; i++ {
		store.links = append(store.links, database.Link{ID: int64(i), URL: "https://i.example.com/" + string(rune('a'+i%26)) + ".png"})
	}
	return store
}

func (s *fakeLinkStore) GetLinksFrom(minID int64) ([]database.Link, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var links []database.Link
	for _, link := range s.links {
		if link.ID >= minID {
			links = append(links, link)
		}
	}
	return links, nil
}

func (s *fakeLinkStore) DeleteLink(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOn[id] {
		return errors.New("disk I/O error")
	}
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeLinkStore) InsertLinks(links []database.NewLink) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	s.inserted = append(s.inserted, links...)
	return len(links), nil
}

func (s *fakeLinkStore) deletedIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.deleted...)
}

// fakeProber answers from a fixed verdict table, Live for unknown ids.
type fakeProber struct {
	mu       sync.Mutex
	verdicts map[int64]linkcheck.Verdict
	probed   []int64
}

func (p *fakeProber) Probe(ctx context.Context, id int64, rawURL string) linkcheck.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probed = append(p.probed, id)

	verdict, ok := p.verdicts[id]
	if !ok {
		verdict = linkcheck.Live
	}
	if verdict == linkcheck.Indeterminate {
		return linkcheck.Outcome{Verdict: verdict, Err: errors.New("unexpected status 500")}
	}
	return linkcheck.Outcome{Verdict: verdict}
}

func (p *fakeProber) probedIDs() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int64(nil), p.probed...)
}

type fakeCollector struct {
	links   []feed.Link
	err     error
	queries []feed.Query
	targets []int
}

func (c *fakeCollector) Collect(ctx context.Context, query feed.Query, target int) ([]feed.Link, error) {
	c.queries = append(c.queries, query)
	c.targets = append(c.targets, target)
	if c.err != nil {
		return nil, c.err
	}
	return c.links, nil
}
