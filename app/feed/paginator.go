package feed

import (
	"context"
	"fmt"
	"log/slog"
)

// MaxPageSize is the largest limit the listing API honours per request.
const MaxPageSize = 25

type PageFetcher interface {
	FetchPage(ctx context.Context, query Query, after string, limit int) (*Thing, error)
}

var _ PageFetcher = (*Client)(nil)

type Paginator struct {
	fetcher     PageFetcher
	maxPageSize int
}

func NewPaginator(fetcher PageFetcher) *Paginator {
	return &Paginator{
		fetcher:     fetcher,
		maxPageSize: MaxPageSize,
	}
}

// Collect walks the listing until target links were requested or the listing
// runs out. Any fetch or shape error discards everything collected so far.
//
// remaining is decremented by the requested page size rather than by the
// number of links received, so the loop is bounded by requests issued.
func (p *Paginator) Collect(ctx context.Context, query Query, target int) ([]Link, error) {
	if target <= 0 {
		return nil, nil
	}

	links := make([]Link, 0, target)
	remaining := target
	after := ""
	pages := 0

	for remaining > 0 {
		limit := min(remaining, p.maxPageSize)

		thing, err := p.fetcher.FetchPage(ctx, query, after, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d of %s: %w", pages+1, query, err)
		}
		pages++

		listing, _, err := thing.Decode()
		if err != nil {
			return nil, err
		}
		if listing == nil {
			return nil, fmt.Errorf("%w: expected a listing, got %q", ErrUnexpectedResponse, thing.Kind)
		}

		for i, child := range listing.Children {
			_, link, err := child.Decode()
			if err != nil {
				return nil, fmt.Errorf("page %d child %d: %w", pages, i, err)
			}
			if link == nil {
				return nil, fmt.Errorf("%w: page %d child %d is a nested %q", ErrUnexpectedResponse, pages, i, child.Kind)
			}
			links = append(links, *link)
		}

		after = listing.Cursor()
		if after == "" {
			slog.Debug("Listing exhausted", "query", query.String(), "pages", pages, "collected", len(links))
			break
		}

		remaining -= limit
	}

	return links, nil
}
