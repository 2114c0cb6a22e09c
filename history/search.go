package history

import (
	"context"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"songbird/storage"
)

const (
	SearchKey = "search_history"
	SearchCap = 10
)

// Searches is the recent free-text query list, most recent first and
// de-duplicated case-insensitively.
type Searches struct {
	persistMu sync.Mutex
	mu        sync.Mutex
	store     storage.Store
	queries   []string
	logger    *log.Entry
}

func NewSearches(store storage.Store) *Searches {
	return &Searches{
		store:   store,
		queries: []string{},
		logger:  log.WithFields(log.Fields{"module": "history", "history": SearchKey}),
	}
}

func (s *Searches) Load(ctx context.Context) {
	queries := []string{}
	if err := load(ctx, s.store, SearchKey, &queries); err != nil {
		s.logger.Warnf("failed to load search history: %v", err)
		queries = []string{}
	}
	if len(queries) > SearchCap {
		queries = queries[:SearchCap]
	}

	s.mu.Lock()
	s.queries = queries
	s.mu.Unlock()
}

func (s *Searches) Record(ctx context.Context, query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	queries := []string{query}
	for _, q := range s.queries {
		if !strings.EqualFold(q, query) {
			queries = append(queries, q)
		}
	}
	if len(queries) > SearchCap {
		queries = queries[:SearchCap]
	}
	s.queries = queries
	snapshot := append([]string(nil), queries...)
	s.mu.Unlock()

	persist(ctx, s.store, SearchKey, snapshot, s.logger)
}

func (s *Searches) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.queries...)
}

func (s *Searches) Clear(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	s.queries = []string{}
	s.mu.Unlock()
	persist(ctx, s.store, SearchKey, []string{}, s.logger)
}
