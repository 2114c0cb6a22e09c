// Package resolver turns search text, charts, curated artist hits and
// playlists into ordered lists of playable tracks. It never returns errors:
// failures degrade to an empty or static fallback list.
package resolver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"songbird/cache"
	"songbird/classifier"
	"songbird/models"
	"songbird/sentryhelper"
	"songbird/sharelink"
	"songbird/youtube"
)

const (
	searchQualifier  = " official audio"
	searchCandidates = 10
	searchTarget     = 8
	maxResults       = 20
	trendingPool     = 50
	playlistPage     = 25

	// PlaceholderDuration is shown for playlist tracks, whose runtime is
	// never looked up.
	PlaceholderDuration = "3:30"

	SearchLabel   = "Search"
	TrendingLabel = "Trending"
	PlaylistLabel = "Playlist"
)

var errNoCuratedIDs = errors.New("resolver: curated search returned no ids")

// Catalog is the subset of the YouTube client the resolver calls.
type Catalog interface {
	SearchVideoIDs(ctx context.Context, query string, max int) ([]string, error)
	VideosByID(ctx context.Context, ids []string) ([]models.CatalogItem, error)
	MostPopular(ctx context.Context, regionCode string, max int) ([]models.CatalogItem, error)
	PlaylistItems(ctx context.Context, playlistID string, max int) ([]youtube.PlaylistEntry, error)
}

// LinkResolver names the song behind a link from another music service.
type LinkResolver interface {
	Lookup(ctx context.Context, raw string) (sharelink.Song, error)
}

type TTLs struct {
	Search   time.Duration
	Chart    time.Duration
	Curated  time.Duration
	Playlist time.Duration
}

func DefaultTTLs() TTLs {
	return TTLs{
		Search:   cache.SearchTTL,
		Chart:    cache.ChartTTL,
		Curated:  cache.DefaultTTL,
		Playlist: cache.DefaultTTL,
	}
}

type Options struct {
	Classifier *classifier.Classifier
	TTLs       TTLs
	RegionCode string
	Curated    []ArtistHit
	// CuratedConcurrency bounds the parallel per-artist searches.
	CuratedConcurrency int
	// Links resolves non-YouTube share links. Optional.
	Links LinkResolver
}

type Resolver struct {
	catalog            Catalog
	cache              *cache.Cache
	classifier         classifier.Classifier
	ttl                TTLs
	region             string
	curated            []ArtistHit
	curatedConcurrency int
	links              LinkResolver
	logger             *log.Entry
}

func New(catalog Catalog, c *cache.Cache, opts Options) *Resolver {
	r := &Resolver{
		catalog:            catalog,
		cache:              c,
		classifier:         classifier.Default(),
		ttl:                opts.TTLs,
		region:             opts.RegionCode,
		curated:            opts.Curated,
		curatedConcurrency: opts.CuratedConcurrency,
		links:              opts.Links,
		logger:             log.WithFields(log.Fields{"module": "resolver"}),
	}
	if opts.Classifier != nil {
		r.classifier = *opts.Classifier
	}
	if r.ttl == (TTLs{}) {
		r.ttl = DefaultTTLs()
	}
	if r.region == "" {
		r.region = "US"
	}
	if r.curated == nil {
		r.curated = DefaultArtistHits
	}
	if r.curatedConcurrency <= 0 {
		r.curatedConcurrency = 4
	}
	return r
}

// report logs and forwards a swallowed failure.
func (r *Resolver) report(ctx context.Context, function string, err error) {
	r.logger.WithFields(log.Fields{"function": function}).Errorf("resolution failed: %v", err)
	sentryhelper.CaptureException(ctx, err)
}

// toTracks filters items through the classifier and maps the survivors,
// stopping once limit tracks are collected (limit <= 0 means no limit).
func (r *Resolver) toTracks(items []models.CatalogItem, label string, limit int) []models.Track {
	playable := lo.Filter(items, func(item models.CatalogItem, _ int) bool {
		if reason := r.classifier.Reason(item); reason != classifier.ReasonNone {
			r.logger.WithFields(log.Fields{"video_id": item.ID, "reason": reason}).Trace("rejected candidate")
			return false
		}
		return true
	})
	playable = lo.UniqBy(playable, func(item models.CatalogItem) string { return item.ID })
	if limit > 0 && len(playable) > limit {
		playable = playable[:limit]
	}
	return lo.Map(playable, func(item models.CatalogItem, _ int) models.Track {
		return item.ToTrack(label)
	})
}

func capTracks(tracks []models.Track) []models.Track {
	if len(tracks) > maxResults {
		return tracks[:maxResults]
	}
	return tracks
}

// SearchByText resolves a free-text query. Results keep catalog relevance
// order.
func (r *Resolver) SearchByText(ctx context.Context, query string) []models.Track {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Track{}
	}
	logger := r.logger.WithFields(log.Fields{"function": "SearchByText", "query": query})

	tracks, err := cache.GetOrFetch(ctx, r.cache, cache.SearchKey(query), r.ttl.Search, func(ctx context.Context) ([]models.Track, error) {
		ids, err := r.catalog.SearchVideoIDs(ctx, query+searchQualifier, searchCandidates)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return []models.Track{}, nil
		}
		items, err := r.catalog.VideosByID(ctx, ids)
		if err != nil {
			return nil, err
		}
		return r.toTracks(items, SearchLabel, searchTarget), nil
	})
	if err != nil {
		r.report(ctx, "SearchByText", err)
		return []models.Track{}
	}

	logger.Debugf("resolved %d tracks", len(tracks))
	return capTracks(tracks)
}

// GetTrendingTracks returns the top of the music chart for the configured
// region, in chart order.
func (r *Resolver) GetTrendingTracks(ctx context.Context) []models.Track {
	tracks, err := cache.GetOrFetch(ctx, r.cache, cache.TrendingKey(r.region), r.ttl.Chart, func(ctx context.Context) ([]models.Track, error) {
		items, err := r.catalog.MostPopular(ctx, r.region, trendingPool)
		if err != nil {
			return nil, err
		}
		return r.toTracks(items, TrendingLabel, maxResults), nil
	})
	if err != nil {
		r.report(ctx, "GetTrendingTracks", err)
		return []models.Track{}
	}
	return capTracks(tracks)
}

// GetCuratedArtistHits looks up one best match per curated pair and keeps
// the curated order. Falls back to StaticFallbackTracks when no IDs come
// back or the detail batch fails.
func (r *Resolver) GetCuratedArtistHits(ctx context.Context) []models.Track {
	tracks, err := cache.GetOrFetch(ctx, r.cache, cache.CuratedKey(), r.ttl.Curated, func(ctx context.Context) ([]models.Track, error) {
		ids := r.searchCurated(ctx)
		if len(ids) == 0 {
			return nil, errNoCuratedIDs
		}
		items, err := r.catalog.VideosByID(ctx, ids)
		if err != nil {
			return nil, err
		}
		return r.toTracks(items, CuratedLabel, 0), nil
	})
	if err != nil {
		r.report(ctx, "GetCuratedArtistHits", err)
		return StaticFallbackTracks()
	}
	return capTracks(tracks)
}

func (r *Resolver) searchCurated(ctx context.Context) []string {
	logger := r.logger.WithFields(log.Fields{"function": "searchCurated"})
	found := make([]string, len(r.curated))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.curatedConcurrency)
	for i, hit := range r.curated {
		g.Go(func() error {
			ids, err := r.catalog.SearchVideoIDs(gctx, hit.Query(), 1)
			if err != nil {
				// skip this artist, keep the rest
				logger.WithFields(log.Fields{"artist": hit.Artist}).Warnf("curated search failed: %v", err)
				return nil
			}
			if len(ids) > 0 {
				found[i] = ids[0]
			}
			return nil
		})
	}
	_ = g.Wait()

	return lo.Uniq(lo.Compact(found))
}

// ListPlaylistTracks lists the first page of a playlist. Durations are not
// fetched; every track gets PlaceholderDuration.
func (r *Resolver) ListPlaylistTracks(ctx context.Context, playlistID string) []models.Track {
	playlistID = strings.TrimSpace(playlistID)
	if playlistID == "" {
		return StaticFallbackTracks()
	}

	tracks, err := cache.GetOrFetch(ctx, r.cache, cache.PlaylistKey(playlistID), r.ttl.Playlist, func(ctx context.Context) ([]models.Track, error) {
		entries, err := r.catalog.PlaylistItems(ctx, playlistID, playlistPage)
		if err != nil {
			return nil, err
		}
		visible := lo.Filter(entries, func(e youtube.PlaylistEntry, _ int) bool {
			return e.Title != "Private video" && e.Title != "Deleted video"
		})
		return lo.Map(visible, func(e youtube.PlaylistEntry, _ int) models.Track {
			artist, title := models.SplitArtistTitle(e.Title, e.ChannelTitle)
			return models.Track{
				ID:                 e.VideoID,
				ExternalMediaID:    e.VideoID,
				Title:              title,
				ArtistName:         artist,
				AlbumOrSourceLabel: PlaylistLabel,
				CoverImageURL:      e.Thumbnails.Best(),
				DisplayDuration:    PlaceholderDuration,
			}
		}), nil
	})
	if err != nil {
		r.report(ctx, "ListPlaylistTracks", err)
		return StaticFallbackTracks()
	}
	return tracks
}

// TrackByID looks up a single video, e.g. from a pasted watch URL. The
// classifier is not applied; an explicit pick is honored as long as the
// video exists.
func (r *Resolver) TrackByID(ctx context.Context, videoID string) (models.Track, bool) {
	items, err := r.catalog.VideosByID(ctx, []string{videoID})
	if err != nil {
		r.report(ctx, "TrackByID", err)
		return models.Track{}, false
	}
	if len(items) == 0 {
		return models.Track{}, false
	}
	return items[0].ToTrack(SearchLabel), true
}

// ResolveURL handles a pasted link. YouTube playlists are listed and single
// videos looked up. Links from other services resolve to the best search
// match for the song they name.
func (r *Resolver) ResolveURL(ctx context.Context, raw string) []models.Track {
	parsed := youtube.ParseYouTubeURL(raw)
	switch {
	case parsed.PlaylistID != "":
		return r.ListPlaylistTracks(ctx, parsed.PlaylistID)
	case parsed.VideoID != "":
		if track, ok := r.TrackByID(ctx, parsed.VideoID); ok {
			return []models.Track{track}
		}
		return []models.Track{}
	}

	if r.links == nil {
		return []models.Track{}
	}
	song, err := r.links.Lookup(ctx, raw)
	if err != nil {
		if !errors.Is(err, sharelink.ErrUnsupported) {
			r.report(ctx, "ResolveURL", err)
		}
		return []models.Track{}
	}
	if tracks := r.SearchByText(ctx, song.Query()); len(tracks) > 0 {
		return tracks[:1]
	}
	return []models.Track{}
}
