package app

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songbird/config"
	"songbird/database"
	"songbird/history"
	"songbird/models"
	"songbird/sharelink"
	"songbird/storage"
	"songbird/youtube/youtubetest"
)

func testConfig(endpoint string) *config.Config {
	return &config.Config{
		Youtube: config.YoutubeConfig{APIKeys: []string{"k1", "k2"}, Endpoint: endpoint, RegionCode: "US"},
		Cache:   config.CacheConfig{SearchTTL: time.Hour, ChartTTL: time.Hour, DefaultTTL: time.Hour},
		Store:   config.StoreConfig{Backend: "memory"},
		Options: config.Options{NoticeDuration: time.Second},
	}
}

func TestNewWiresTransportToCharts(t *testing.T) {
	srv := youtubetest.NewServer()
	defer srv.Close()
	srv.AddVideos(youtubetest.Playable("hit1", "Artist - Hit", "PT3M10S"))
	srv.SetPopular("hit1")

	a, err := New(context.Background(), testConfig(srv.Endpoint()))
	require.NoError(t, err)
	defer a.Close()

	next, err := a.Transport.PlayNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hit1", next.ID)

	entries := a.Listening.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "hit1", entries[0].Track.ID)
}

func TestNewRecordsAcceptedSearches(t *testing.T) {
	srv := youtubetest.NewServer()
	defer srv.Close()
	srv.AddVideos(youtubetest.Playable("a", "Adele - Hello", "PT4M55S"))
	srv.SetSearch("hello official audio", "a")

	a, err := New(context.Background(), testConfig(srv.Endpoint()))
	require.NoError(t, err)
	defer a.Close()

	tracks, current := a.Session.Search(context.Background(), "hello")
	assert.True(t, current)
	require.Len(t, tracks, 1)
	assert.Equal(t, []string{"hello"}, a.Searches.Queries())
}

func TestLyricsWithoutProvidersFallsBack(t *testing.T) {
	cfg := testConfig("")
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	lines := a.Lyrics.Lyrics(context.Background(), "Song", "Artist", 120)
	assert.NotEmpty(t, lines)
}

func TestOpenStore(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name    string
		cfg     config.StoreConfig
		wantErr bool
		check   func(t *testing.T, s storage.Store)
	}{
		{"memory", config.StoreConfig{Backend: "memory"}, false, func(t *testing.T, s storage.Store) {
			assert.IsType(t, &storage.Memory{}, s)
		}},
		{"sqlite", config.StoreConfig{Backend: "sqlite", DBPath: filepath.Join(t.TempDir(), "s.db")}, false, func(t *testing.T, s storage.Store) {
			assert.IsType(t, &database.Database{}, s)
		}},
		{"redis", config.StoreConfig{Backend: "redis", RedisURL: "redis://" + mr.Addr()}, false, func(t *testing.T, s storage.Store) {
			assert.IsType(t, &storage.Redis{}, s)
		}},
		{"unknown", config.StoreConfig{Backend: "etcd"}, true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, closer, err := openStore(context.Background(), tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if closer != nil {
				defer closer()
			}
			require.NoError(t, s.Set(context.Background(), "k", "v"))
			tt.check(t, s)
		})
	}
}

func TestWithStoreSharesHistoryAcrossInstances(t *testing.T) {
	store := storage.NewMemory()
	srv := youtubetest.NewServer()
	defer srv.Close()
	srv.AddVideos(youtubetest.Playable("hit1", "Artist - Hit", "PT3M10S"))
	srv.SetPopular("hit1")

	first, err := New(context.Background(), testConfig(srv.Endpoint()), WithStore(store))
	require.NoError(t, err)
	_, err = first.Transport.PlayNext(context.Background())
	require.NoError(t, err)

	second, err := New(context.Background(), testConfig(srv.Endpoint()), WithStore(store))
	require.NoError(t, err)
	require.Len(t, second.Listening.Entries(), 1)
}

func TestOpenStoreKeepsHistoryAfterIdleWeek(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "idle.db")

	db, err := database.New(path)
	require.NoError(t, err)
	history.NewListening(db, nil).Touch(ctx, models.Track{ID: "a", ExternalMediaID: "a", Title: "Hello"})
	history.NewSearches(db).Record(ctx, "adele")
	require.NoError(t, db.Set(ctx, "search:adele", `{"ts":1}`))
	require.NoError(t, db.Close())

	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	old := time.Now().UTC().Add(-8 * 24 * time.Hour).Format(time.RFC3339Nano)
	_, err = raw.Exec(`UPDATE kv SET updated_at = ?`, old)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	store, closer, err := openStore(ctx, config.StoreConfig{Backend: "sqlite", DBPath: path})
	require.NoError(t, err)
	defer closer()

	listening := history.NewListening(store, nil)
	listening.Load(ctx)
	require.Len(t, listening.Entries(), 1)
	assert.Equal(t, "a", listening.Entries()[0].Track.ID)

	searches := history.NewSearches(store)
	searches.Load(ctx)
	assert.Equal(t, []string{"adele"}, searches.Queries())

	_, err = store.Get(ctx, "search:adele")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLinkResolverAddsSpotifyWithCredentials(t *testing.T) {
	cfg := testConfig("")
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()
	assert.Len(t, a.linkResolver(context.Background()), 1)

	a.Config.Spotify = config.SpotifyConfig{ClientID: "id", ClientSecret: "secret"}
	links := a.linkResolver(context.Background())
	require.Len(t, links, 2)
	assert.IsType(t, &sharelink.Spotify{}, links[1])
}
