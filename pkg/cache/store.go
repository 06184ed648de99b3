package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss is returned when no fresh entry exists for a key.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry is returned when a stored entry cannot be decoded.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Hash fields of a stored entry. The freshness lifetime is the key's own
// expiry, so extending an entry never rewrites it.
const (
	fieldBody         = "body"
	fieldStatus       = "status"
	fieldHeader       = "header"
	fieldETag         = "etag"
	fieldLastModified = "last_modified"
	fieldStoredAt     = "stored_at"
)

// Store keeps page responses as Redis hashes that expire with their
// freshness lifetime.
type Store struct {
	redis *redis.Client
	now   func() time.Time
}

// NewStore returns a Store on rdb. It panics if rdb is nil.
func NewStore(rdb *redis.Client) *Store {
	if rdb == nil {
		panic("cache: nil redis client")
	}
	return &Store{redis: rdb, now: time.Now}
}

// Load returns the fresh entry stored under key, or ErrCacheMiss.
func (s *Store) Load(ctx context.Context, key Key) (*Entry, error) {
	k := key.String()

	var (
		fields *redis.MapStringStringCmd
		ttl    *redis.DurationCmd
	)
	_, err := s.redis.Pipelined(ctx, func(p redis.Pipeliner) error {
		fields = p.HGetAll(ctx, k)
		ttl = p.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		CacheErrors.WithLabelValues("load").Inc()
		return nil, fmt.Errorf("load %s: %w", k, err)
	}

	if len(fields.Val()) == 0 || ttl.Val() <= 0 {
		CacheMisses.Inc()
		return nil, ErrCacheMiss
	}

	e, err := decodeEntry(fields.Val())
	if err != nil {
		CacheErrors.WithLabelValues("load").Inc()
		return nil, fmt.Errorf("load %s: %w", k, err)
	}
	e.Expires = s.now().Add(ttl.Val())

	CacheHits.Inc()
	return e, nil
}

// Save stores e under key until e.Expires. Entries that are no longer fresh
// are skipped.
func (s *Store) Save(ctx context.Context, key Key, e *Entry) error {
	if e == nil {
		return fmt.Errorf("save: nil entry")
	}
	if !e.Fresh(s.now()) {
		return nil
	}

	fields, err := encodeEntry(e)
	if err != nil {
		CacheErrors.WithLabelValues("save").Inc()
		return fmt.Errorf("save: %w", err)
	}

	k := key.String()
	_, err = s.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, k)
		p.HSet(ctx, k, fields)
		p.PExpireAt(ctx, k, e.Expires)
		return nil
	})
	if err != nil {
		CacheErrors.WithLabelValues("save").Inc()
		return fmt.Errorf("save %s: %w", k, err)
	}

	CacheBytesWritten.Add(float64(len(e.Body)))
	return nil
}

// Drop removes the entry stored under key.
func (s *Store) Drop(ctx context.Context, key Key) error {
	if err := s.redis.Del(ctx, key.String()).Err(); err != nil {
		CacheErrors.WithLabelValues("drop").Inc()
		return fmt.Errorf("drop %s: %w", key, err)
	}
	return nil
}

// Extend moves the expiry of a stored entry to expires, dropping it when that
// is not in the future. It returns ErrCacheMiss if nothing is stored.
func (s *Store) Extend(ctx context.Context, key Key, expires time.Time) error {
	if !expires.After(s.now()) {
		return s.Drop(ctx, key)
	}

	ok, err := s.redis.PExpireAt(ctx, key.String(), expires).Result()
	if err != nil {
		CacheErrors.WithLabelValues("extend").Inc()
		return fmt.Errorf("extend %s: %w", key, err)
	}
	if !ok {
		return ErrCacheMiss
	}
	return nil
}

func encodeEntry(e *Entry) (map[string]any, error) {
	header, err := json.Marshal(e.Header)
	if err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}

	var lastModified string
	if !e.LastModified.IsZero() {
		lastModified = e.LastModified.UTC().Format(time.RFC3339)
	}

	return map[string]any{
		fieldBody:         e.Body,
		fieldStatus:       e.Status,
		fieldHeader:       header,
		fieldETag:         e.ETag,
		fieldLastModified: lastModified,
		fieldStoredAt:     e.StoredAt.UnixMilli(),
	}, nil
}

func decodeEntry(fields map[string]string) (*Entry, error) {
	body, ok := fields[fieldBody]
	if !ok {
		return nil, fmt.Errorf("%w: no body", ErrInvalidEntry)
	}

	status, err := strconv.Atoi(fields[fieldStatus])
	if err != nil {
		return nil, fmt.Errorf("%w: status: %v", ErrInvalidEntry, err)
	}

	e := &Entry{
		Body:   []byte(body),
		Status: status,
		ETag:   fields[fieldETag],
	}

	if raw := fields[fieldHeader]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &e.Header); err != nil {
			return nil, fmt.Errorf("%w: header: %v", ErrInvalidEntry, err)
		}
	}
	if raw := fields[fieldLastModified]; raw != "" {
		lm, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: last_modified: %v", ErrInvalidEntry, err)
		}
		e.LastModified = lm
	}
	if ms, err := strconv.ParseInt(fields[fieldStoredAt], 10, 64); err == nil {
		e.StoredAt = time.UnixMilli(ms)
	}

	return e, nil
}
