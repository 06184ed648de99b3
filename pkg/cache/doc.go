// Package cache stores feed page responses in Redis for as long as upstream
// says they are fresh.
//
// Each page lives in a Redis hash keyed by Key (source, page, page size and
// extra query). The hash expires with the response's freshness lifetime, so a
// 304 Not Modified only has to move the key's expiry.
//
//	store := cache.NewStore(redis.NewClient(&redis.Options{Addr: "localhost:6379"}))
//	key := cache.Key{Source: "https://api.example.com/posts", Page: 3, PerPage: 10}
//
//	entry, err := store.Load(ctx, key)
//	switch {
//	case errors.Is(err, cache.ErrCacheMiss):
//		// fetch the page
//	case err != nil:
//		return err
//	case entry.CanRevalidate():
//		entry.Condition(req)
//	}
//
// After a 200, Capture the response and Save it. After a 304, Refresh the
// entry from the response headers and Extend the stored key.
//
// Metrics:
//
//   - scroll_cache_hits_total
//   - scroll_cache_misses_total
//   - scroll_cache_written_bytes_total
//   - scroll_cache_not_modified_total
//   - scroll_cache_errors_total{operation}
//
// Only upstream responses are stored, never a controller's accumulated list.
package cache
