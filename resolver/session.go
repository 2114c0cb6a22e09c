package resolver

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"songbird/models"
)

// QueryRecorder receives queries whose results were accepted.
type QueryRecorder interface {
	Record(ctx context.Context, query string)
}

// SearchSession serializes interactive searches. Each call takes a
// generation number; a response is only accepted if no newer search
// started while it was in flight.
type SearchSession struct {
	resolver *Resolver
	recorder QueryRecorder

	generation atomic.Uint64

	mu          sync.Mutex
	latest      []models.Track
	latestQuery string
}

// NewSearchSession wires a session to r. recorder may be nil.
func NewSearchSession(r *Resolver, recorder QueryRecorder) *SearchSession {
	return &SearchSession{resolver: r, recorder: recorder, latest: []models.Track{}}
}

// Search resolves query and reports whether the result is still current.
// Stale results are returned to the caller but not stored.
func (s *SearchSession) Search(ctx context.Context, query string) ([]models.Track, bool) {
	gen := s.generation.Add(1)
	tracks := s.resolver.SearchByText(ctx, query)

	s.mu.Lock()
	if s.generation.Load() != gen {
		s.mu.Unlock()
		s.resolver.logger.WithFields(log.Fields{"function": "Search", "query": query}).Debug("discarding stale search response")
		return tracks, false
	}
	s.latest = tracks
	s.latestQuery = query
	s.mu.Unlock()

	if s.recorder != nil && len(tracks) > 0 {
		s.recorder.Record(ctx, query)
	}
	return tracks, true
}

// Latest returns the most recent accepted query and its results.
func (s *SearchSession) Latest() (string, []models.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestQuery, slices.Clone(s.latest)
}
