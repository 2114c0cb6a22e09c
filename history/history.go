// Package history keeps the listening and search histories in memory and
// mirrors every change to a storage.Store. Persistence is best effort: the
// in-memory copy stays authoritative when a write fails.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"songbird/models"
	"songbird/sentryhelper"
	"songbird/storage"
)

const (
	ListeningKey = "listening_history"
	ListeningCap = 100
)

type Listening struct {
	// persistMu orders store writes so the last write is the newest list.
	persistMu sync.Mutex
	mu        sync.Mutex
	store     storage.Store
	now       func() time.Time
	entries   []models.ListeningHistoryEntry
	logger    *log.Entry
}

func NewListening(store storage.Store, now func() time.Time) *Listening {
	if now == nil {
		now = time.Now
	}
	return &Listening{
		store:   store,
		now:     now,
		entries: []models.ListeningHistoryEntry{},
		logger:  log.WithFields(log.Fields{"module": "history", "history": ListeningKey}),
	}
}

// Load replaces the in-memory list with the persisted one. A missing or
// unreadable value leaves an empty history.
func (l *Listening) Load(ctx context.Context) {
	entries := []models.ListeningHistoryEntry{}
	if err := load(ctx, l.store, ListeningKey, &entries); err != nil {
		l.logger.Warnf("failed to load listening history: %v", err)
		entries = []models.ListeningHistoryEntry{}
	}
	if len(entries) > ListeningCap {
		entries = entries[:ListeningCap]
	}

	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()
}

// Touch records a play of track: a repeat play bumps the count and moves
// the entry to the front, a new track is prepended with a count of one.
func (l *Listening) Touch(ctx context.Context, track models.Track) {
	l.persistMu.Lock()
	defer l.persistMu.Unlock()

	l.mu.Lock()
	now := l.now().UnixMilli()

	entry := models.ListeningHistoryEntry{Track: track, LastPlayedAtMs: now, PlayCount: 1}
	rest := make([]models.ListeningHistoryEntry, 0, len(l.entries)+1)
	for _, e := range l.entries {
		if e.Track.ID == track.ID {
			entry.PlayCount = e.PlayCount + 1
			continue
		}
		rest = append(rest, e)
	}

	entries := append([]models.ListeningHistoryEntry{entry}, rest...)
	if len(entries) > ListeningCap {
		entries = entries[:ListeningCap]
	}
	l.entries = entries
	snapshot := append([]models.ListeningHistoryEntry(nil), entries...)
	l.mu.Unlock()

	persist(ctx, l.store, ListeningKey, snapshot, l.logger)
}

// Entries returns the history most recent first.
func (l *Listening) Entries() []models.ListeningHistoryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.ListeningHistoryEntry{}, l.entries...)
}

// MostPlayed returns up to n entries ordered by play count, then recency.
func (l *Listening) MostPlayed(n int) []models.ListeningHistoryEntry {
	entries := l.Entries()
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].PlayCount != entries[j].PlayCount {
			return entries[i].PlayCount > entries[j].PlayCount
		}
		return entries[i].LastPlayedAtMs > entries[j].LastPlayedAtMs
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

func load(ctx context.Context, store storage.Store, key string, v any) error {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), v)
}

func persist(ctx context.Context, store storage.Store, key string, v any, logger *log.Entry) {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Errorf("failed to encode history: %v", err)
		return
	}
	if err := store.Set(ctx, key, string(b)); err != nil {
		logger.Errorf("failed to persist history: %v", err)
		sentryhelper.CaptureException(ctx, err)
	}
}
