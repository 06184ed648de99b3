package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Entry is one stored page response together with the validators needed to
// revalidate it.
type Entry struct {
	Body         []byte
	Status       int
	Header       http.Header
	ETag         string
	LastModified time.Time

	// StoredAt is when the response was captured.
	StoredAt time.Time

	// Expires is the end of the freshness lifetime. The store keeps the entry
	// exactly until then.
	Expires time.Time
}

// Capture reads resp into an Entry stamped at now. The body is replaced with an
// in-memory copy so the caller can still read it.
func Capture(resp *http.Response, now time.Time) (*Entry, error) {
	if resp == nil {
		return nil, fmt.Errorf("capture: nil response")
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("capture body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	e := &Entry{
		Body:     body,
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		ETag:     resp.Header.Get("ETag"),
		StoredAt: now,
		Expires:  Lifetime(resp.Header, now),
	}
	if lm, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
		e.LastModified = lm
	}
	return e, nil
}

// Fresh reports whether the entry may still be served at now.
func (e *Entry) Fresh(now time.Time) bool {
	return now.Before(e.Expires)
}

// Remaining is the freshness left at now, never negative.
func (e *Entry) Remaining(now time.Time) time.Duration {
	if d := e.Expires.Sub(now); d > 0 {
		return d
	}
	return 0
}

// CanRevalidate reports whether the entry carries a validator.
func (e *Entry) CanRevalidate() bool {
	return e != nil && (e.ETag != "" || !e.LastModified.IsZero())
}

// Condition makes req conditional on the entry. An ETag wins over
// Last-Modified when both are present.
func (e *Entry) Condition(req *http.Request) {
	switch {
	case e == nil || req == nil:
	case e.ETag != "":
		req.Header.Set("If-None-Match", e.ETag)
	case !e.LastModified.IsZero():
		req.Header.Set("If-Modified-Since", e.LastModified.UTC().Format(http.TimeFormat))
	}
}

// Refresh applies the freshness headers of a 304 response and reports whether
// they extended the lifetime.
func (e *Entry) Refresh(h http.Header, now time.Time) bool {
	if h.Get("Expires") == "" && h.Get("Cache-Control") == "" {
		return false
	}
	expires := Lifetime(h, now)
	if !expires.After(e.Expires) {
		return false
	}
	e.Expires = expires
	return true
}
