package pagination

import (
	"errors"
	"fmt"
)

// Common errors returned or reported by the controller.
var (
	// ErrFetcherRequired is returned by New when Config.Fetcher is nil.
	ErrFetcherRequired = errors.New("page fetcher is required")

	// ErrClosed is returned when attaching a closed controller.
	ErrClosed = errors.New("controller closed")

	// ErrFetcherPanic wraps a panic recovered from a PageFetcher.
	ErrFetcherPanic = errors.New("page fetcher panicked")
)

// FetchError is reported when a page request fails for any reason.
// It is never returned to the controller's caller.
type FetchError struct {
	Page    int
	PerPage int
	Err     error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch page %d (per page %d): %v", e.Page, e.PerPage, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}
