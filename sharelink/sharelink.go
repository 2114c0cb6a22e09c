// Package sharelink reads the song title and artist from a track link on
// another music service so it can be searched for in the catalog.
package sharelink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
)

var (
	ErrUnsupported = errors.New("sharelink: unsupported link")
	ErrNoMetadata  = errors.New("sharelink: no song metadata on page")
)

var albumPath = regexp.MustCompile(`/album/[^/]+/(\d+)`)

// Song is what a share link points at.
type Song struct {
	Title  string
	Artist string
	Album  string
}

// Query is the catalog search text for the song.
func (s Song) Query() string {
	return strings.TrimSpace(s.Artist + " " + s.Title)
}

// AppleMusicLink is a parsed music.apple.com (or itunes.apple.com) track URL.
type AppleMusicLink struct {
	Country string
	AlbumID string
	TrackID string
}

// ParseAppleMusic accepts track links only; album, playlist and artist
// pages do not name a single song.
func ParseAppleMusic(raw string) (AppleMusicLink, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return AppleMusicLink{}, false
	}
	host := strings.ToLower(u.Host)
	if host != "music.apple.com" && host != "itunes.apple.com" {
		return AppleMusicLink{}, false
	}

	link := AppleMusicLink{Country: "us", TrackID: u.Query().Get("i")}
	if parts := strings.Split(strings.TrimPrefix(u.Path, "/"), "/"); len(parts) > 1 && len(parts[0]) == 2 {
		link.Country = parts[0]
	}
	if m := albumPath.FindStringSubmatch(u.Path); m != nil {
		link.AlbumID = m[1]
	}
	if link.TrackID == "" || link.AlbumID == "" {
		return AppleMusicLink{}, false
	}
	return link, true
}

// Scraper fetches share link pages and extracts song metadata from them.
type Scraper struct {
	httpClient *http.Client
	// appleBase replaces https://music.apple.com, for tests.
	appleBase string
	logger    *log.Entry
}

func NewScraper(httpClient *http.Client) *Scraper {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Scraper{
		httpClient: httpClient,
		appleBase:  "https://music.apple.com",
		logger:     log.WithFields(log.Fields{"module": "sharelink"}),
	}
}

// Lookup returns the song a supported link points at.
func (s *Scraper) Lookup(ctx context.Context, raw string) (Song, error) {
	link, ok := ParseAppleMusic(raw)
	if !ok {
		return Song{}, ErrUnsupported
	}

	span := sentry.StartSpan(ctx, "sharelink.apple_music")
	span.SetTag("track_id", link.TrackID)
	defer span.Finish()

	song, err := s.scrapeAppleMusic(span.Context(), link)
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		return Song{}, err
	}
	span.Status = sentry.SpanStatusOK
	s.logger.WithFields(log.Fields{"function": "Lookup"}).Debugf("resolved %s to %q by %q", raw, song.Title, song.Artist)
	return song, nil
}

func (s *Scraper) scrapeAppleMusic(ctx context.Context, link AppleMusicLink) (Song, error) {
	pageURL := fmt.Sprintf("%s/%s/album/_/%s?i=%s", s.appleBase, link.Country, link.AlbumID, link.TrackID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Song{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Song{}, fmt.Errorf("sharelink: fetch page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Song{}, fmt.Errorf("sharelink: page returned HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Song{}, fmt.Errorf("sharelink: parse page: %w", err)
	}
	if song, ok := fromJSONLD(doc); ok {
		return song, nil
	}
	if song, ok := fromOpenGraph(doc); ok {
		return song, nil
	}
	return Song{}, ErrNoMetadata
}

type ldRecording struct {
	Type     string          `json:"@type"`
	Name     string          `json:"name"`
	ByArtist json.RawMessage `json:"byArtist"`
	InAlbum  struct {
		Name string `json:"name"`
	} `json:"inAlbum"`
}

type ldName struct {
	Name string `json:"name"`
}

// fromJSONLD reads the first MusicRecording block. byArtist is either one
// object or a list.
func fromJSONLD(doc *goquery.Document) (Song, bool) {
	var song Song
	found := false
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var rec ldRecording
		if err := json.Unmarshal([]byte(sel.Text()), &rec); err != nil || rec.Type != "MusicRecording" || rec.Name == "" {
			return true
		}

		var artists []string
		var one ldName
		var many []ldName
		if err := json.Unmarshal(rec.ByArtist, &one); err == nil && one.Name != "" {
			artists = append(artists, one.Name)
		} else if err := json.Unmarshal(rec.ByArtist, &many); err == nil {
			for _, a := range many {
				if a.Name != "" {
					artists = append(artists, a.Name)
				}
			}
		}
		if len(artists) == 0 {
			return true
		}

		song = Song{Title: rec.Name, Artist: strings.Join(artists, ", "), Album: rec.InAlbum.Name}
		found = true
		return false
	})
	return song, found
}

func fromOpenGraph(doc *goquery.Document) (Song, bool) {
	title := firstAttr(doc, "content", `meta[property="og:title"]`, `meta[name="twitter:title"]`)
	artist := firstAttr(doc, "content", `meta[property="music:musician_description"]`, `meta[name="music:musician"]`)
	album := firstAttr(doc, "content", `meta[property="music:album"]`)

	if artist == "" {
		// "Song - Artist on Apple Music"
		page := doc.Find("title").First().Text()
		if _, rest, ok := strings.Cut(page, " - "); ok {
			artist = strings.TrimSpace(strings.TrimSuffix(rest, " on Apple Music"))
		}
	}
	if title == "" || artist == "" {
		return Song{}, false
	}
	return Song{Title: title, Artist: artist, Album: album}, true
}

func firstAttr(doc *goquery.Document, attr string, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
