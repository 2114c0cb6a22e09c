// Package cache stores catalog result lists in a storage.Store under a
// timestamped envelope and serves them until their TTL lapses.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"songbird/storage"
)

const (
	SearchTTL  = 6 * time.Hour
	ChartTTL   = 24 * time.Hour
	DefaultTTL = 24 * time.Hour
)

type envelope[T any] struct {
	Timestamp int64 `json:"timestamp"`
	Data      []T   `json:"data"`
}

type Cache struct {
	store  storage.Store
	now    func() time.Time
	group  singleflight.Group
	logger *log.Entry
}

type Option func(*Cache)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

func New(store storage.Store, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		now:    time.Now,
		logger: log.WithFields(log.Fields{"module": "cache"}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrFetch returns the stored list for key if it is younger than ttl.
// Otherwise it runs producer and, when the result is non-empty, stores it.
// Unreadable entries count as misses. Concurrent misses on the same key
// share a single producer call.
func GetOrFetch[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, producer func(context.Context) ([]T, error)) ([]T, error) {
	logger := c.logger.WithFields(log.Fields{"function": "GetOrFetch", "key": key})

	if data, ok := lookup[T](ctx, c, key, ttl, logger); ok {
		logger.Trace("cache hit")
		return data, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		result, err := producer(ctx)
		if err != nil {
			return nil, err
		}
		if len(result) > 0 {
			c.write(ctx, key, envelope[T]{Timestamp: c.now().UnixMilli(), Data: result}, logger)
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Trace("shared in-flight fetch")
	}

	result, ok := v.([]T)
	if !ok {
		return nil, fmt.Errorf("cache: key %s fetched with mismatched type %T", key, v)
	}
	return result, nil
}

func lookup[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, logger *log.Entry) ([]T, bool) {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Warnf("cache read failed, treating as miss: %v", err)
		}
		return nil, false
	}

	var entry envelope[T]
	if err := json.Unmarshal([]byte(raw), &entry); err != nil || entry.Timestamp <= 0 || entry.Data == nil {
		logger.Debug("malformed cache entry, treating as miss")
		return nil, false
	}

	age := c.now().Sub(time.UnixMilli(entry.Timestamp))
	if age >= ttl {
		logger.Tracef("cache entry expired (age %s)", age.Round(time.Second))
		return nil, false
	}
	return entry.Data, true
}

func (c *Cache) write(ctx context.Context, key string, entry any, logger *log.Entry) {
	b, err := json.Marshal(entry)
	if err != nil {
		logger.Errorf("failed to encode cache entry: %v", err)
		return
	}
	if err := c.store.Set(ctx, key, string(b)); err != nil {
		logger.Errorf("failed to write cache entry: %v", err)
	}
}

// Invalidate drops the entry for key.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}

// NormalizeQuery lowercases, trims and collapses inner whitespace so
// equivalent free-text queries share a cache slot.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

func SearchKey(query string) string {
	return "search:" + NormalizeQuery(query)
}

func TrendingKey(regionCode string) string {
	return "trending:" + strings.ToLower(strings.TrimSpace(regionCode))
}

func CuratedKey() string {
	return "curated_hits"
}

func PlaylistKey(playlistID string) string {
	return "playlist:" + strings.TrimSpace(playlistID)
}

func LyricsKey(artist, title string) string {
	return "lyrics:" + NormalizeQuery(artist) + "|" + NormalizeQuery(title)
}
