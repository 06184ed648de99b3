package cache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultTTL applies to responses that state no lifetime at all.
const DefaultTTL = time.Minute

// Lifetime returns the instant a response with headers h, received at now,
// stops being fresh.
//
// Cache-Control no-store and no-cache end it immediately. max-age, less any
// Age already spent upstream, takes precedence over Expires. An unparsable or
// missing Expires falls back to DefaultTTL.
func Lifetime(h http.Header, now time.Time) time.Time {
	directives := cacheControl(h)
	if _, ok := directives["no-store"]; ok {
		return now
	}
	if _, ok := directives["no-cache"]; ok {
		return now
	}

	if v, ok := directives["max-age"]; ok {
		if secs, err := strconv.Atoi(v); err == nil {
			if age, err := strconv.Atoi(h.Get("Age")); err == nil && age > 0 {
				secs -= age
			}
			if secs <= 0 {
				return now
			}
			return now.Add(time.Duration(secs) * time.Second)
		}
	}

	raw := h.Get("Expires")
	if raw == "" {
		return now.Add(DefaultTTL)
	}
	expires, err := http.ParseTime(raw)
	if err != nil {
		return now.Add(DefaultTTL)
	}
	if expires.Before(now) {
		return now
	}
	return expires
}

// cacheControl splits every Cache-Control header into lower-cased directives.
func cacheControl(h http.Header) map[string]string {
	directives := make(map[string]string)
	for _, line := range h.Values("Cache-Control") {
		for _, part := range strings.Split(line, ",") {
			name, value, _ := strings.Cut(strings.TrimSpace(part), "=")
			if name == "" {
				continue
			}
			directives[strings.ToLower(name)] = strings.Trim(value, `"`)
		}
	}
	return directives
}
