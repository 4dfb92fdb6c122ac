package feed

import (
	"errors"
	"fmt"
)

var (
	ErrNetwork            = errors.New("network error while fetching listing")
	ErrTimeout            = errors.New("listing request timed out")
	ErrParsing            = errors.New("error while parsing listing response")
	ErrUnexpectedResponse = errors.New("received unexpected result from listing api")
)

// APIError is returned when the listing API answers with a non-2xx status.
type APIError struct {
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("listing api returned a %d code", e.StatusCode)
}
