package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces all cache keys in Redis.
const KeyPrefix = "scroll:page"

// Key identifies one cached page of a feed.
type Key struct {
	// Source is the feed URL without paging parameters
	Source string

	// Page is the 1-indexed page number
	Page int

	// PerPage is the requested page size
	PerPage int

	// Query holds additional query parameters that change the result
	Query url.Values
}

// String generates a deterministic cache key string.
// Format: scroll:page:source:page=N:per_page=M:query1=val1
//
// Example:
//
//	scroll:page:https://api.example.com/posts:page=2:per_page=10:tag=go
func (k Key) String() string {
	parts := []string{KeyPrefix}

	source := strings.TrimRight(k.Source, "/")
	if source != "" {
		parts = append(parts, source)
	}

	parts = append(parts,
		fmt.Sprintf("page=%d", k.Page),
		fmt.Sprintf("per_page=%d", k.PerPage),
	)

	// Query params sorted for determinism
	if len(k.Query) > 0 {
		queryKeys := make([]string, 0, len(k.Query))
		for key := range k.Query {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(k.Query[key], ",")))
		}
	}

	return strings.Join(parts, ":")
}
