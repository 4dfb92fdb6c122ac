package linkcheck

import (
	"errors"
	"fmt"
)

var (
	ErrTooManyRedirects = errors.New("too many redirects")
	ErrInvalidURIParts  = errors.New("redirect target is not an absolute http(s) URL")
)

// UnexpectedStatusError is returned once every attempt for a link ended in a
// status that is neither success nor 404. URL is the stored link; FinalURL is
// the redirect target that answered, when it differs.
type UnexpectedStatusError struct {
	StatusCode int
	URL        string
	FinalURL   string
	ID         int64
}

func (e *UnexpectedStatusError) Error() string {
	if e.FinalURL != "" && e.FinalURL != e.URL {
		return fmt.Sprintf("unexpected status %d for link %d (%s via %s)", e.StatusCode, e.ID, e.URL, e.FinalURL)
	}
	return fmt.Sprintf("unexpected status %d for link %d (%s)", e.StatusCode, e.ID, e.URL)
}

type InvalidURIError struct {
	URI string
	Err error
}

func (e *InvalidURIError) Error() string {
	return fmt.Sprintf("invalid URI %q: %v", e.URI, e.Err)
}

func (e *InvalidURIError) Unwrap() error {
	return e.Err
}
