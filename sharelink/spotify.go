package sharelink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	spotifyclient "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// SpotifyLink is a parsed open.spotify.com URL.
type SpotifyLink struct {
	Kind string
	ID   string
}

// ParseSpotify accepts open.spotify.com links, including the localized
// /intl-xx/ form. ok is false for anything that is not a track.
func ParseSpotify(raw string) (SpotifyLink, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || strings.ToLower(u.Host) != "open.spotify.com" {
		return SpotifyLink{}, false
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) > 0 && strings.HasPrefix(parts[0], "intl-") {
		parts = parts[1:]
	}
	if len(parts) < 2 || parts[1] == "" {
		return SpotifyLink{}, false
	}

	link := SpotifyLink{Kind: parts[0], ID: parts[1]}
	return link, link.Kind == "track"
}

// Spotify looks up track links through the Web API using app credentials.
type Spotify struct {
	client *spotifyclient.Client
	logger *log.Entry
}

type SpotifyOptions struct {
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
	// TokenURL and BaseURL override the public endpoints, for tests.
	TokenURL string
	BaseURL  string
}

// NewSpotify builds a client whose token is fetched on first use and
// refreshed when it expires.
func NewSpotify(ctx context.Context, opts SpotifyOptions) *Spotify {
	tokenURL := opts.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}
	if opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.HTTPClient)
	}

	config := &clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     tokenURL,
	}

	var clientOpts []spotifyclient.ClientOption
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, spotifyclient.WithBaseURL(opts.BaseURL))
	}
	return &Spotify{
		client: spotifyclient.New(config.Client(ctx), clientOpts...),
		logger: log.WithFields(log.Fields{"module": "sharelink", "service": "spotify"}),
	}
}

func (s *Spotify) Lookup(ctx context.Context, raw string) (Song, error) {
	link, ok := ParseSpotify(raw)
	if !ok {
		return Song{}, ErrUnsupported
	}

	span := sentry.StartSpan(ctx, "sharelink.spotify")
	span.SetTag("track_id", link.ID)
	defer span.Finish()

	track, err := s.client.GetTrack(span.Context(), spotifyclient.ID(link.ID))
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		return Song{}, fmt.Errorf("sharelink: spotify track %s: %w", link.ID, err)
	}

	artists := make([]string, 0, len(track.Artists))
	for _, a := range track.Artists {
		artists = append(artists, a.Name)
	}
	if track.Name == "" || len(artists) == 0 {
		span.Status = sentry.SpanStatusNotFound
		return Song{}, ErrNoMetadata
	}

	span.Status = sentry.SpanStatusOK
	song := Song{Title: track.Name, Artist: strings.Join(artists, ", "), Album: track.Album.Name}
	s.logger.WithFields(log.Fields{"function": "Lookup"}).Debugf("resolved %s to %q by %q", raw, song.Title, song.Artist)
	return song, nil
}

type Resolver interface {
	Lookup(ctx context.Context, raw string) (Song, error)
}

// Chain asks each resolver in turn and returns the first answer from one
// that supports the link.
type Chain []Resolver

func (c Chain) Lookup(ctx context.Context, raw string) (Song, error) {
	for _, r := range c {
		song, err := r.Lookup(ctx, raw)
		if errors.Is(err, ErrUnsupported) {
			continue
		}
		return song, err
	}
	return Song{}, ErrUnsupported
}
