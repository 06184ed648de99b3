package pagination

import "context"

// Item is a record identified by a unique id (string or integer).
// The controller never inspects or deduplicates ids.
type Item interface {
	ItemID() any
}

// PageFetcher loads one page of items.
type PageFetcher[T Item] interface {
	// FetchPage returns the items of the 1-indexed page.
	// It is called with increasing page numbers and must be safe to call again
	// with the same page after a failure.
	FetchPage(ctx context.Context, page, perPage int) ([]T, error)
}

// FetcherFunc adapts a plain function to PageFetcher.
type FetcherFunc[T Item] func(ctx context.Context, page, perPage int) ([]T, error)

// FetchPage implements PageFetcher.
func (f FetcherFunc[T]) FetchPage(ctx context.Context, page, perPage int) ([]T, error) {
	return f(ctx, page, perPage)
}
