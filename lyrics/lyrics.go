// Package lyrics fetches timestamped lyric lines for a track and falls back
// to placeholder lines when no provider has them.
package lyrics

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"songbird/cache"
	"songbird/sentryhelper"
)

const DefaultDurationSeconds = 180

var ErrNoLyrics = errors.New("lyrics: none found")

type Line struct {
	Text             string  `json:"text"`
	TimestampSeconds float64 `json:"timestamp"`
}

type Provider interface {
	FetchLyrics(ctx context.Context, title, artist string, durationSeconds float64) ([]Line, error)
}

var fallbackTexts = []string{
	"♪ Lyrics aren't available for this track ♪",
	"Sit back and enjoy the music",
	"♪ ♪ ♪",
	"Try turning on video mode",
	"♪ ♪ ♪",
}

// FallbackLines spreads the placeholder texts evenly across the track.
func FallbackLines(durationSeconds float64) []Line {
	if durationSeconds <= 0 {
		durationSeconds = DefaultDurationSeconds
	}
	n := len(fallbackTexts)
	lines := make([]Line, n)
	for i, text := range fallbackTexts {
		lines[i] = Line{
			Text:             text,
			TimestampSeconds: float64(i) * durationSeconds / float64(n+1),
		}
	}
	return lines
}

// Chain asks each provider in turn and returns the first non-empty result.
type Chain []Provider

func (c Chain) FetchLyrics(ctx context.Context, title, artist string, durationSeconds float64) ([]Line, error) {
	var errs []error
	for _, p := range c {
		lines, err := p.FetchLyrics(ctx, title, artist, durationSeconds)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(lines) > 0 {
			return lines, nil
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return nil, ErrNoLyrics
}

// Service is what the rest of the app calls. It never returns an error.
type Service struct {
	provider Provider
	cache    *cache.Cache
	logger   *log.Entry
}

// NewService builds a Service. provider and c may be nil.
func NewService(provider Provider, c *cache.Cache) *Service {
	return &Service{
		provider: provider,
		cache:    c,
		logger:   log.WithFields(log.Fields{"module": "lyrics"}),
	}
}

func (s *Service) Lyrics(ctx context.Context, title, artist string, durationSeconds float64) []Line {
	logger := s.logger.WithFields(log.Fields{"function": "Lyrics", "title": title, "artist": artist})
	if s.provider == nil {
		return FallbackLines(durationSeconds)
	}

	fetch := func(ctx context.Context) ([]Line, error) {
		return s.provider.FetchLyrics(ctx, title, artist, durationSeconds)
	}

	var (
		lines []Line
		err   error
	)
	if s.cache != nil {
		lines, err = cache.GetOrFetch(ctx, s.cache, cache.LyricsKey(artist, title), cache.DefaultTTL, fetch)
	} else {
		lines, err = fetch(ctx)
	}

	if err != nil {
		if !errors.Is(err, ErrNoLyrics) {
			logger.Warnf("lyrics lookup failed: %v", err)
			sentryhelper.CaptureException(ctx, fmt.Errorf("lyrics for %q by %q: %w", title, artist, err))
		}
		return FallbackLines(durationSeconds)
	}
	if len(lines) == 0 {
		logger.Debug("no lyrics found, using fallback")
		return FallbackLines(durationSeconds)
	}
	return lines
}
