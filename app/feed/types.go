package feed

import (
	"encoding/json"
	"fmt"
)

// Listing API types

type Kind string

const (
	KindListing Kind = "Listing"
	KindLink    Kind = "t3"
)

// Thing is the {kind, data} envelope every listing API object is wrapped in.
type Thing struct {
	Kind Kind            `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type Listing struct {
	Children []Thing `json:"children"`
	After    *string `json:"after"`
}

// Link is a submitted post. Only the fields needed for curation are decoded.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Decode resolves the envelope into exactly one of a Listing or a Link.
func (t Thing) Decode() (*Listing, *Link, error) {
	switch t.Kind {
	case KindListing:
		var listing Listing
		if err := json.Unmarshal(t.Data, &listing); err != nil {
			return nil, nil, fmt.Errorf("%w: listing data: %v", ErrUnexpectedResponse, err)
		}
		return &listing, nil, nil
	case KindLink:
		var link Link
		if err := json.Unmarshal(t.Data, &link); err != nil {
			return nil, nil, fmt.Errorf("%w: link data: %v", ErrUnexpectedResponse, err)
		}
		return nil, &link, nil
	default:
		return nil, nil, fmt.Errorf("%w: kind %q", ErrUnexpectedResponse, t.Kind)
	}
}

// Cursor returns the continuation token, or "" once the listing is exhausted.
func (l *Listing) Cursor() string {
	if l.After == nil {
		return ""
	}
	return *l.After
}

type Sort string

const (
	SortHot           Sort = "hot"
	SortNew           Sort = "new"
	SortTop           Sort = "top"
	SortBest          Sort = "best"
	SortControversial Sort = "controversial"
)

func (s Sort) Valid() bool {
	switch s {
	case SortHot, SortNew, SortTop, SortBest, SortControversial:
		return true
	}
	return false
}

// PathSuffix is appended to /r/<subreddit> when building the listing path.
func (s Sort) PathSuffix() string {
	return "/" + string(s)
}

type TimeWindow string

const (
	TimeWindowHour  TimeWindow = "hour"
	TimeWindowDay   TimeWindow = "day"
	TimeWindowWeek  TimeWindow = "week"
	TimeWindowMonth TimeWindow = "month"
	TimeWindowYear  TimeWindow = "year"
	TimeWindowAll   TimeWindow = "all"
)

func (w TimeWindow) Valid() bool {
	switch w {
	case TimeWindowHour, TimeWindowDay, TimeWindowWeek, TimeWindowMonth, TimeWindowYear, TimeWindowAll:
		return true
	}
	return false
}

// Query selects a listing. A continuation cursor is only valid for the Query
// that produced it.
type Query struct {
	Subreddit string
	Sort      Sort
	Window    TimeWindow
}

func (q Query) String() string {
	return fmt.Sprintf("r/%s%s?t=%s", q.Subreddit, q.Sort.PathSuffix(), q.Window)
}

// Configuration types

type Config struct {
	Name      string         // Derived from filename (without .yml extension)
	Subreddit string         `yaml:"subreddit"`
	Settings  ConfigSettings `yaml:"settings"`
	Filters   []ConfigFilter `yaml:"filters"`
}

type ConfigSettings struct {
	Enabled    bool       `yaml:"enabled"`
	Sort       Sort       `yaml:"sort"`
	TimeWindow TimeWindow `yaml:"time_window"`
	MaxItems   int        `yaml:"max_items"`  // items requested per scrape
	SeedItems  int        `yaml:"seed_items"` // items requested when seeding
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// Query returns the listing query for a regular scrape.
func (c *Config) Query() Query {
	return Query{
		Subreddit: c.Subreddit,
		Sort:      c.Settings.Sort,
		Window:    c.Settings.TimeWindow,
	}
}

// SeedQuery is Query over the whole history of the subreddit.
func (c *Config) SeedQuery() Query {
	q := c.Query()
	q.Window = TimeWindowAll
	return q
}
