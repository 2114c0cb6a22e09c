package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"

	"songbird/sentryhelper"
)

// ErrCredentialsExhausted is returned once every key in the pool has been
// rejected for quota or auth reasons within a single call.
var ErrCredentialsExhausted = errors.New("youtube: all API credentials exhausted")

// Pool is an ordered set of interchangeable API keys with a shared cursor.
// Calls start at the cursor and move it past any key that hits its quota.
type Pool struct {
	mu     sync.Mutex
	keys   []string
	cursor int
}

func NewPool(keys []string) *Pool {
	return &Pool{keys: append([]string(nil), keys...)}
}

func (p *Pool) Len() int {
	return len(p.keys)
}

// Cursor is the index the next call will start from.
func (p *Pool) Cursor() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// advancePast moves the cursor to the key after idx. Concurrent callers may
// race here; the last write wins.
func (p *Pool) advancePast(idx int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cursor = (idx + 1) % len(p.keys)
}

// IsQuotaError reports whether err is a 403 or 429 from the API.
func IsQuotaError(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	return gerr.Code == http.StatusForbidden || gerr.Code == http.StatusTooManyRequests
}

// Call runs fn with each key in turn, starting at the pool cursor, until one
// attempt does not fail with a quota error. It makes at most Len() attempts.
// Non-quota errors are returned immediately. An empty pool gets exactly one
// attempt with an empty key.
func Call[T any](ctx context.Context, p *Pool, fn func(ctx context.Context, key string) (T, error)) (T, error) {
	var zero T
	logger := log.WithFields(log.Fields{"module": "youtube", "function": "Call"})

	n := p.Len()
	if n == 0 {
		logger.Warn("no YouTube API keys configured, sending uncredentialed request")
		v, err := fn(ctx, "")
		if err != nil && IsQuotaError(err) {
			return zero, fmt.Errorf("%w: %w", ErrCredentialsExhausted, err)
		}
		return v, err
	}

	start := p.Cursor()
	var lastErr error
	for i := range n {
		idx := (start + i) % n
		v, err := fn(ctx, p.keys[idx])
		if err == nil {
			return v, nil
		}
		if !IsQuotaError(err) {
			return zero, err
		}

		lastErr = err
		p.advancePast(idx)
		logger.WithFields(log.Fields{"key_index": idx, "attempt": i + 1}).Warnf("API key rejected, rotating: %v", err)
		sentryhelper.AddBreadcrumb(ctx, &sentry.Breadcrumb{
			Category: "youtube",
			Message:  "API key rejected, rotating",
			Level:    sentry.LevelWarning,
			Data:     map[string]any{"key_index": idx, "attempt": i + 1},
		})
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrCredentialsExhausted, n, lastErr)
}
