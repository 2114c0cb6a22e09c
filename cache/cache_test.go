package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songbird/storage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(store storage.Store) (*Cache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	return New(store, WithClock(clock.Now)), clock
}

// countingProducer returns a different list on every call.
func countingProducer(calls *int32) func(context.Context) ([]string, error) {
	return func(context.Context) ([]string, error) {
		n := atomic.AddInt32(calls, 1)
		return []string{string(rune('a' + n - 1))}, nil
	}
}

func TestGetOrFetchReturnsFirstResultWithinTTL(t *testing.T) {
	c, clock := newTestCache(storage.NewMemory())
	ctx := context.Background()
	var calls int32

	first, err := GetOrFetch(ctx, c, "k", time.Hour, countingProducer(&calls))
	require.NoError(t, err)

	clock.Advance(59 * time.Minute)
	second, err := GetOrFetch(ctx, c, "k", time.Hour, countingProducer(&calls))
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetOrFetchRefetchesAfterTTL(t *testing.T) {
	c, clock := newTestCache(storage.NewMemory())
	ctx := context.Background()
	var calls int32

	_, err := GetOrFetch(ctx, c, "k", time.Hour, countingProducer(&calls))
	require.NoError(t, err)

	clock.Advance(time.Hour)
	got, err := GetOrFetch(ctx, c, "k", time.Hour, countingProducer(&calls))
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, got)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetOrFetchDoesNotStoreEmpty(t *testing.T) {
	store := storage.NewMemory()
	c, _ := newTestCache(store)
	ctx := context.Background()
	var calls int32

	empty := func(context.Context) ([]string, error) {
		atomic.AddInt32(&calls, 1)
		return []string{}, nil
	}

	got, err := GetOrFetch(ctx, c, "k", time.Hour, empty)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = GetOrFetch(ctx, c, "k", time.Hour, empty)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetOrFetchProducerError(t *testing.T) {
	store := storage.NewMemory()
	c, _ := newTestCache(store)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := GetOrFetch(ctx, c, "k", time.Hour, func(context.Context) ([]string, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetOrFetchMalformedEntryIsMiss(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "{{{"},
		{"wrong shape", `{"timestamp":"yesterday","data":1}`},
		{"missing timestamp", `{"data":["x"]}`},
		{"missing data", `{"timestamp":1767268800000}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemory()
			c, _ := newTestCache(store)
			ctx := context.Background()
			require.NoError(t, store.Set(ctx, "k", tt.raw))

			var calls int32
			got, err := GetOrFetch(ctx, c, "k", time.Hour, countingProducer(&calls))
			require.NoError(t, err)
			assert.Equal(t, []string{"a"}, got)
			assert.Equal(t, int32(1), calls)
		})
	}
}

type failingStore struct {
	storage.Store
}

func (failingStore) Set(context.Context, string, string) error {
	return errors.New("disk full")
}

func TestGetOrFetchWriteFailureStillReturns(t *testing.T) {
	c, _ := newTestCache(failingStore{storage.NewMemory()})
	var calls int32

	got, err := GetOrFetch(context.Background(), c, "k", time.Hour, countingProducer(&calls))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got)
}

func TestGetOrFetchStructPayload(t *testing.T) {
	type item struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	c, _ := newTestCache(storage.NewMemory())
	ctx := context.Background()
	want := []item{{ID: "1", Title: "One"}, {ID: "2", Title: "Two"}}

	_, err := GetOrFetch(ctx, c, "k", time.Hour, func(context.Context) ([]item, error) { return want, nil })
	require.NoError(t, err)

	got, err := GetOrFetch(ctx, c, "k", time.Hour, func(context.Context) ([]item, error) {
		t.Fatal("producer should not run on a hit")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestInvalidate(t *testing.T) {
	c, _ := newTestCache(storage.NewMemory())
	ctx := context.Background()
	var calls int32

	_, _ = GetOrFetch(ctx, c, "k", time.Hour, countingProducer(&calls))
	require.NoError(t, c.Invalidate(ctx, "k"))
	_, _ = GetOrFetch(ctx, c, "k", time.Hour, countingProducer(&calls))
	assert.Equal(t, int32(2), calls)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, SearchKey("blinding lights"), SearchKey("  Blinding   LIGHTS "))
	assert.Equal(t, "search:blinding lights", SearchKey("Blinding Lights"))
	assert.Equal(t, "trending:us", TrendingKey(" US"))
	assert.Equal(t, "playlist:PL123", PlaylistKey("PL123"))
	assert.NotEqual(t, SearchKey("a"), TrendingKey("a"))
}
