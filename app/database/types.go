package database

import (
	"time"
)

// Link is a stored image link. IDs grow monotonically and are never reused.
type Link struct {
	ID        int64
	URL       string
	Title     string
	CreatedAt time.Time
}

// NewLink is a link that has not been stored yet.
type NewLink struct {
	URL   string
	Title string
}
