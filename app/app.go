// Package app wires the catalog, storage, histories, transport and lyrics
// into one explicitly constructed graph.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"songbird/cache"
	"songbird/config"
	"songbird/database"
	"songbird/history"
	"songbird/lyrics"
	"songbird/resolver"
	"songbird/sentryhelper"
	"songbird/sharelink"
	"songbird/storage"
	"songbird/transport"
	"songbird/youtube"
)

// staleAfter is how long an unwritten cache row survives a startup prune.
// History rows are never pruned.
const staleAfter = 7 * 24 * time.Hour

type App struct {
	Config     *config.Config
	Store      storage.Store
	Cache      *cache.Cache
	Pool       *youtube.Pool
	Catalog    *youtube.Client
	Resolver   *resolver.Resolver
	Session    *resolver.SearchSession
	Listening  *history.Listening
	Searches   *history.Searches
	Transport  *transport.Transport
	Lyrics     *lyrics.Service
	HTTPClient *http.Client

	closers []func() error
}

// Option overrides a dependency, mostly for tests.
type Option func(*App)

// WithStore skips building the configured store backend.
func WithStore(s storage.Store) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithHTTPClient sets the client used for the catalog and lyrics APIs.
func WithHTTPClient(c *http.Client) Option {
	return func(a *App) {
		a.HTTPClient = c
	}
}

func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	logger := log.WithFields(log.Fields{"module": "app", "function": "New"})
	a := &App{Config: cfg}
	for _, opt := range opts {
		opt(a)
	}
	if a.HTTPClient == nil {
		a.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}

	if a.Store == nil {
		store, closer, err := openStore(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
		a.Store = store
		if closer != nil {
			a.closers = append(a.closers, closer)
		}
	}
	a.Cache = cache.New(a.Store)

	a.Pool = youtube.NewPool(cfg.Youtube.APIKeys)
	if a.Pool.Len() == 0 {
		logger.Warn("no YouTube API keys configured, catalog calls will be unauthenticated")
		sentryhelper.CaptureMessage(ctx, "no YouTube API keys configured")
	}
	client, err := youtube.NewClient(ctx, a.Pool, youtube.ClientOptions{
		HTTPClient: a.HTTPClient,
		Endpoint:   cfg.Youtube.Endpoint,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Catalog = client

	a.Resolver = resolver.New(client, a.Cache, resolver.Options{
		RegionCode: cfg.Youtube.RegionCode,
		Links:      a.linkResolver(ctx),
		TTLs: resolver.TTLs{
			Search:   cfg.Cache.SearchTTL,
			Chart:    cfg.Cache.ChartTTL,
			Curated:  cfg.Cache.DefaultTTL,
			Playlist: cfg.Cache.DefaultTTL,
		},
	})

	a.Listening = history.NewListening(a.Store, nil)
	a.Listening.Load(ctx)
	a.Searches = history.NewSearches(a.Store)
	a.Searches.Load(ctx)
	a.Session = resolver.NewSearchSession(a.Resolver, a.Searches)

	a.Transport = transport.New(transport.Options{
		Charts:    a.Resolver,
		History:   a.Listening,
		NoticeTTL: cfg.Options.NoticeDuration,
	})

	a.Lyrics = lyrics.NewService(a.lyricsProvider(ctx), a.Cache)

	logger.Infof("initialized with %s store and %d API keys", cfg.Store.Backend, a.Pool.Len())
	return a, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (storage.Store, func() error, error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemory(), nil, nil
	case "redis":
		r, err := storage.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	case "sqlite", "":
		db, err := database.New(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		if n, err := db.PruneOlderThan(ctx, staleAfter, history.ListeningKey, history.SearchKey); err != nil {
			log.WithFields(log.Fields{"module": "app"}).Warnf("prune failed: %v", err)
		} else if n > 0 {
			log.WithFields(log.Fields{"module": "app"}).Infof("pruned %d stale rows", n)
		}
		return db, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// linkResolver handles Apple Music links always and Spotify links when app
// credentials are configured.
func (a *App) linkResolver(ctx context.Context) sharelink.Chain {
	chain := sharelink.Chain{sharelink.NewScraper(a.HTTPClient)}
	if a.Config.Spotify.IsEnabled() {
		chain = append(chain, sharelink.NewSpotify(ctx, sharelink.SpotifyOptions{
			ClientID:     a.Config.Spotify.ClientID,
			ClientSecret: a.Config.Spotify.ClientSecret,
			HTTPClient:   a.HTTPClient,
		}))
	}
	return chain
}

func (a *App) lyricsProvider(ctx context.Context) lyrics.Provider {
	logger := log.WithFields(log.Fields{"module": "app", "function": "lyricsProvider"})
	var chain lyrics.Chain
	if a.Config.Lyrics.LRCLibEnabled {
		chain = append(chain, lyrics.NewLRCLib(a.Config.Lyrics.LRCLibURL, a.HTTPClient))
	}
	if a.Config.Gemini.IsEnabled() {
		g, err := lyrics.NewGemini(ctx, a.Config.Gemini.APIKey, a.Config.Gemini.Model)
		if err != nil {
			logger.Warnf("gemini lyrics disabled: %v", err)
		} else {
			chain = append(chain, g)
		}
	}
	if len(chain) == 0 {
		return nil
	}
	return chain
}

// Close releases the store.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}
