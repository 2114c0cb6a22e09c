package youtube

import (
	"net/url"
	"strings"
)

type YouTubeURLResult struct {
	VideoID    string
	PlaylistID string
}

// ParseYouTubeURL extracts the video and playlist IDs from a youtube.com
// watch or playlist URL. Other hosts yield an empty result.
func ParseYouTubeURL(raw string) YouTubeURLResult {
	parsedURL, err := url.Parse(raw)
	if err != nil {
		return YouTubeURLResult{}
	}

	switch strings.ToLower(parsedURL.Host) {
	case "www.youtube.com", "youtube.com", "m.youtube.com", "music.youtube.com":
	default:
		return YouTubeURLResult{}
	}

	q := parsedURL.Query()
	return YouTubeURLResult{
		VideoID:    q.Get("v"),
		PlaylistID: q.Get("list"),
	}
}

// ResolvePlaylistID accepts either a bare playlist ID or a URL containing one.
func ResolvePlaylistID(input string) string {
	input = strings.TrimSpace(input)
	if strings.Contains(input, "://") {
		return ParseYouTubeURL(input).PlaylistID
	}
	return input
}
