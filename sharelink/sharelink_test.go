package sharelink

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppleMusic(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want AppleMusicLink
		ok   bool
	}{
		{
			name: "track",
			url:  "https://music.apple.com/us/album/album-name/123456789?i=1646389445",
			want: AppleMusicLink{Country: "us", AlbumID: "123456789", TrackID: "1646389445"},
			ok:   true,
		},
		{
			name: "itunes domain uk",
			url:  "https://itunes.apple.com/gb/album/album-name/123456789?i=42",
			want: AppleMusicLink{Country: "gb", AlbumID: "123456789", TrackID: "42"},
			ok:   true,
		},
		{name: "album only", url: "https://music.apple.com/us/album/the-dark-side-of-the-moon/1441165866"},
		{name: "playlist", url: "https://music.apple.com/us/playlist/90s-alternative/pl.u-8VoLGjY1l8"},
		{name: "other host", url: "https://example.com/us/album/x/1?i=2"},
		{name: "garbage", url: "::not a url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseAppleMusic(tt.url)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

const jsonLDPage = `<html><head>
<script type="application/ld+json">{"@type":"MusicAlbum","name":"Ignore me"}</script>
<script type="application/ld+json">{"@type":"MusicRecording","name":"Halo","byArtist":[{"name":"Beyoncé"}],"inAlbum":{"name":"I Am... Sasha Fierce"}}</script>
</head><body></body></html>`

const openGraphPage = `<html><head>
<title>Hello - Adele on Apple Music</title>
<meta property="og:title" content="Hello">
</head></html>`

func newAppleServer(t *testing.T, body string, status int) *Scraper {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1646389445", r.URL.Query().Get("i"))
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	s := NewScraper(srv.Client())
	s.appleBase = srv.URL
	return s
}

const trackURL = "https://music.apple.com/us/album/x/123?i=1646389445"

func TestLookup(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		status  int
		want    Song
		wantErr bool
	}{
		{"json-ld", jsonLDPage, http.StatusOK, Song{Title: "Halo", Artist: "Beyoncé", Album: "I Am... Sasha Fierce"}, false},
		{"open graph", openGraphPage, http.StatusOK, Song{Title: "Hello", Artist: "Adele"}, false},
		{"no metadata", "<html></html>", http.StatusOK, Song{}, true},
		{"http error", "", http.StatusForbidden, Song{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newAppleServer(t, tt.body, tt.status).Lookup(context.Background(), trackURL)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookupUnsupported(t *testing.T) {
	_, err := NewScraper(nil).Lookup(context.Background(), "https://open.spotify.com/track/abc")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestSongQuery(t *testing.T) {
	assert.Equal(t, "Adele Hello", Song{Title: "Hello", Artist: "Adele"}.Query())
}
