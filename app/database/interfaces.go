package database

import "errors"

var ErrLinkNotFound = errors.New("link not found")

type LinkRepository interface {
	// InsertLinks stores links whose URL is not known yet and returns how many
	// were inserted.
	InsertLinks(links []NewLink) (int, error)
	// GetLinksFrom returns links with id >= minID in ascending id order.
	GetLinksFrom(minID int64) ([]Link, error)
	DeleteLink(id int64) error

	GetLinkCount() (int, error)
	GetMatchingLinkCount(term string) (int, error)
	// GetRandomLink returns nil when the store is empty.
	GetRandomLink() (*Link, error)
	GetRandomMatchingLink(term string) (*Link, error)
}
