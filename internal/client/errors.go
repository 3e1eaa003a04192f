package client

import (
	"errors"
	"fmt"
)

var (
	ErrProductConfigNotFound = errors.New("product config script not found")
	ErrNoColorSource         = errors.New("no color source in product config")
)

// FetchError reports a non-200 response from the catalog site.
type FetchError struct {
	URL        string
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("HTTP error: %d fetching %s", e.StatusCode, e.URL)
}

// IsFetchError reports whether err wraps a FetchError and returns it.
func IsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
