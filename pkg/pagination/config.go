package pagination

import (
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultItemsPerPage is the page size used when Config.ItemsPerPage is not set.
	DefaultItemsPerPage = 10

	// DefaultThresholdPixels is the distance from the bottom of the content at
	// which DefaultConfig requests the next page.
	DefaultThresholdPixels = 200
)

// Config holds controller configuration.
type Config[T Item] struct {
	// Fetcher loads a single page (REQUIRED)
	Fetcher PageFetcher[T]

	// InitialItems pre-populates the accumulated list.
	// When empty, the first Attach loads page 1.
	InitialItems []T

	// ItemsPerPage is passed to every FetchPage call (default: 10)
	ItemsPerPage int

	// ThresholdPixels is the distance to bottom that triggers loading.
	// Zero loads only once the bottom is reached.
	// DefaultConfig sets 200.
	ThresholdPixels int

	// FetchTimeout bounds a single FetchPage call. Zero means no timeout,
	// a hung fetch then keeps the controller loading until it returns.
	FetchTimeout time.Duration

	// FailurePolicy gates page requests after failures.
	// Nil allows every request (no backoff, no attempt cap).
	FailurePolicy FailurePolicy

	// OnFetchError is called with every *FetchError after it has been logged.
	OnFetchError func(err error)

	// Logger overrides the component logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns the default configuration for the given fetcher.
func DefaultConfig[T Item](fetcher PageFetcher[T]) Config[T] {
	return Config[T]{
		Fetcher:         fetcher,
		ItemsPerPage:    DefaultItemsPerPage,
		ThresholdPixels: DefaultThresholdPixels,
	}
}

// withDefaults fills an unset page size. ThresholdPixels is used as given
// since zero is a meaningful threshold.
func (c Config[T]) withDefaults() Config[T] {
	if c.ItemsPerPage <= 0 {
		c.ItemsPerPage = DefaultItemsPerPage
	}
	return c
}
