package models

import (
	"html"
	"strings"
	"time"
)

// Track is an immutable, playable catalog entry. ID and ExternalMediaID are
// both the YouTube video ID.
type Track struct {
	ID                 string `json:"id"`
	ExternalMediaID    string `json:"externalMediaId"`
	Title              string `json:"title"`
	ArtistName         string `json:"artistName"`
	AlbumOrSourceLabel string `json:"albumOrSourceLabel"`
	CoverImageURL      string `json:"coverImageUrl"`
	DisplayDuration    string `json:"displayDuration"`
}

// DurationSeconds parses DisplayDuration back into seconds. Returns 0 when
// the display value is malformed.
func (t Track) DurationSeconds() float64 {
	return ParseDisplayDuration(t.DisplayDuration).Seconds()
}

type Thumbnails struct {
	Default  string `json:"default,omitempty"`
	Medium   string `json:"medium,omitempty"`
	High     string `json:"high,omitempty"`
	Standard string `json:"standard,omitempty"`
	Maxres   string `json:"maxres,omitempty"`
}

// Best returns the highest resolution thumbnail available.
func (t Thumbnails) Best() string {
	for _, u := range []string{t.Maxres, t.Standard, t.High, t.Medium, t.Default} {
		if u != "" {
			return u
		}
	}
	return ""
}

// CatalogItem is the subset of a YouTube video resource the classifier and
// resolver need. Zero values mean "not reported".
type CatalogItem struct {
	ID                   string     `json:"id"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	ChannelTitle         string     `json:"channelTitle"`
	Thumbnails           Thumbnails `json:"thumbnails"`
	Duration             string     `json:"duration"`
	PrivacyStatus        string     `json:"privacyStatus"`
	UploadStatus         string     `json:"uploadStatus"`
	LiveBroadcastContent string     `json:"liveBroadcastContent"`
	AgeRestricted        bool       `json:"ageRestricted"`
	Embeddable           *bool      `json:"embeddable,omitempty"`
	RegionBlocked        []string   `json:"regionBlocked,omitempty"`
}

func (c CatalogItem) Runtime() time.Duration {
	return ParseISODuration(c.Duration)
}

// ToTrack maps a classified item into a Track under the given source label.
func (c CatalogItem) ToTrack(label string) Track {
	artist, title := SplitArtistTitle(c.Title, c.ChannelTitle)
	return Track{
		ID:                 c.ID,
		ExternalMediaID:    c.ID,
		Title:              title,
		ArtistName:         artist,
		AlbumOrSourceLabel: label,
		CoverImageURL:      c.Thumbnails.Best(),
		DisplayDuration:    FormatDuration(c.Runtime()),
	}
}

var titleSuffixes = []string{
	"(Official Video)", "(Official Music Video)", "(Official Audio)",
	"(Lyrics)", "(Lyric Video)", "(Audio)", "(Visualizer)", "(Official Visualizer)",
	"[Official Video]", "[Official Music Video]", "[Official Audio]",
	"[Lyrics]", "[Lyric Video]", "[Audio]",
}

var featMarkers = []string{" ft.", " feat.", " ft ", " feat ", " featuring "}

// SplitArtistTitle derives an artist and song title from a raw video title.
// "Artist - Song (Official Audio)" splits on the dash, anything else keeps
// the cleaned title and falls back to the channel name for the artist.
func SplitArtistTitle(raw, channel string) (artist, title string) {
	cleaned := html.UnescapeString(raw)
	for _, suffix := range titleSuffixes {
		cleaned = strings.Replace(cleaned, suffix, "", 1)
	}
	cleaned = strings.TrimSpace(cleaned)

	parts := strings.SplitN(cleaned, " - ", 2)
	if len(parts) == 2 {
		artist = strings.TrimSpace(parts[0])
		for _, feat := range featMarkers {
			if idx := strings.Index(strings.ToLower(artist), feat); idx != -1 {
				artist = strings.TrimSpace(artist[:idx])
			}
		}
		song := strings.TrimSpace(parts[1])
		if artist != "" && song != "" {
			return artist, song
		}
	}

	return CleanChannelName(channel), cleaned
}

// CleanChannelName strips the decorations YouTube and labels add to artist
// channel names.
func CleanChannelName(channel string) string {
	name := strings.TrimSpace(html.UnescapeString(channel))
	name = strings.TrimSuffix(name, " - Topic")
	name = strings.TrimSuffix(name, "VEVO")
	name = strings.TrimSuffix(name, " Official")
	return strings.TrimSpace(name)
}

// ListeningHistoryEntry is one row of the listening history.
type ListeningHistoryEntry struct {
	Track          Track `json:"track"`
	LastPlayedAtMs int64 `json:"lastPlayedAt"`
	PlayCount      int   `json:"playCount"`
}
