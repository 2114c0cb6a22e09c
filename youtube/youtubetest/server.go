// Package youtubetest provides an in-process fake of the YouTube Data API
// covering the endpoints songbird calls.
package youtubetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	ytapi "google.golang.org/api/youtube/v3"
)

type Video struct {
	ID            string
	Title         string
	Description   string
	Channel       string
	Duration      string
	Privacy       string
	Upload        string
	Live          string
	Embeddable    bool
	AgeRestricted bool
	Blocked       []string
}

// Playable returns a public, embeddable, processed video that passes every
// non-content rule.
func Playable(id, title, duration string) Video {
	return Video{
		ID:         id,
		Title:      title,
		Channel:    "Artist - Topic",
		Duration:   duration,
		Privacy:    "public",
		Upload:     "processed",
		Live:       "none",
		Embeddable: true,
	}
}

type PlaylistItem struct {
	VideoID string
	Title   string
	Channel string
}

type Request struct {
	Path  string
	Key   string
	Query string
}

type Server struct {
	*httptest.Server

	mu        sync.Mutex
	videos    map[string]Video
	searches  map[string][]string
	popular   []string
	playlists map[string][]PlaylistItem
	quotaKeys map[string]bool
	failPaths map[string]int
	requests  []Request
}

func NewServer() *Server {
	s := &Server{
		videos:    make(map[string]Video),
		searches:  make(map[string][]string),
		playlists: make(map[string][]PlaylistItem),
		quotaKeys: make(map[string]bool),
		failPaths: make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Endpoint is the base URL to pass to youtube.ClientOptions.
func (s *Server) Endpoint() string {
	return s.URL + "/"
}

func (s *Server) AddVideos(videos ...Video) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range videos {
		s.videos[v.ID] = v
	}
}

// SetSearch registers the IDs returned for an exact q value.
func (s *Server) SetSearch(q string, ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches[q] = ids
}

func (s *Server) SetPopular(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.popular = ids
}

func (s *Server) SetPlaylist(id string, items ...PlaylistItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playlists[id] = items
}

// RejectKey makes every request carrying key fail with 403 quotaExceeded.
func (s *Server) RejectKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotaKeys[key] = true
}

// FailPath makes requests to path (e.g. "videos") fail with status.
func (s *Server) FailPath(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPaths[path] = status
}

func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many requests hit path.
func (s *Server) Count(path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Path == path {
			n++
		}
	}
	return n
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/youtube/v3/")
	q := r.URL.Query()
	key := q.Get("key")

	s.mu.Lock()
	s.requests = append(s.requests, Request{Path: path, Key: key, Query: q.Get("q")})
	rejected := s.quotaKeys[key]
	failStatus := s.failPaths[path]
	s.mu.Unlock()

	if rejected {
		writeError(w, http.StatusForbidden, "quotaExceeded")
		return
	}
	if failStatus != 0 {
		writeError(w, failStatus, "backendError")
		return
	}

	switch path {
	case "search":
		s.handleSearch(w, q)
	case "videos":
		s.handleVideos(w, q)
	case "playlistItems":
		s.handlePlaylistItems(w, q)
	default:
		writeError(w, http.StatusNotFound, "notFound")
	}
}

func maxResults(q map[string][]string, fallback int) int {
	if v, ok := q["maxResults"]; ok && len(v) > 0 {
		if n, err := strconv.Atoi(v[0]); err == nil {
			return n
		}
	}
	return fallback
}

func (s *Server) handleSearch(w http.ResponseWriter, q map[string][]string) {
	s.mu.Lock()
	ids := s.searches[first(q["q"])]
	s.mu.Unlock()

	limit := maxResults(q, 5)
	resp := &ytapi.SearchListResponse{Items: []*ytapi.SearchResult{}}
	for i, id := range ids {
		if i >= limit {
			break
		}
		resp.Items = append(resp.Items, &ytapi.SearchResult{
			Id: &ytapi.ResourceId{Kind: "youtube#video", VideoId: id},
		})
	}
	writeJSON(w, resp)
}

func (s *Server) handleVideos(w http.ResponseWriter, q map[string][]string) {
	var ids []string
	if first(q["chart"]) == "mostPopular" {
		s.mu.Lock()
		ids = append(ids, s.popular...)
		s.mu.Unlock()
		if limit := maxResults(q, 5); len(ids) > limit {
			ids = ids[:limit]
		}
	} else {
		for _, v := range q["id"] {
			ids = append(ids, strings.Split(v, ",")...)
		}
	}

	resp := &ytapi.VideoListResponse{Items: []*ytapi.Video{}}
	s.mu.Lock()
	for _, id := range ids {
		if v, ok := s.videos[id]; ok {
			resp.Items = append(resp.Items, toAPIVideo(v))
		}
	}
	s.mu.Unlock()
	writeJSON(w, resp)
}

func (s *Server) handlePlaylistItems(w http.ResponseWriter, q map[string][]string) {
	s.mu.Lock()
	items, ok := s.playlists[first(q["playlistId"])]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "playlistNotFound")
		return
	}

	limit := maxResults(q, 5)
	resp := &ytapi.PlaylistItemListResponse{Items: []*ytapi.PlaylistItem{}}
	for i, item := range items {
		if i >= limit {
			break
		}
		resp.Items = append(resp.Items, &ytapi.PlaylistItem{
			Snippet: &ytapi.PlaylistItemSnippet{
				Title:                  item.Title,
				VideoOwnerChannelTitle: item.Channel,
				ResourceId:             &ytapi.ResourceId{Kind: "youtube#video", VideoId: item.VideoID},
				Thumbnails: &ytapi.ThumbnailDetails{
					High: &ytapi.Thumbnail{Url: "https://i.ytimg.com/vi/" + item.VideoID + "/hqdefault.jpg"},
				},
			},
		})
	}
	writeJSON(w, resp)
}

func toAPIVideo(v Video) *ytapi.Video {
	video := &ytapi.Video{
		Id: v.ID,
		Snippet: &ytapi.VideoSnippet{
			Title:                v.Title,
			Description:          v.Description,
			ChannelTitle:         v.Channel,
			LiveBroadcastContent: v.Live,
			Thumbnails: &ytapi.ThumbnailDetails{
				Default: &ytapi.Thumbnail{Url: "https://i.ytimg.com/vi/" + v.ID + "/default.jpg"},
				High:    &ytapi.Thumbnail{Url: "https://i.ytimg.com/vi/" + v.ID + "/hqdefault.jpg"},
			},
		},
		ContentDetails: &ytapi.VideoContentDetails{Duration: v.Duration},
		Status: &ytapi.VideoStatus{
			PrivacyStatus: v.Privacy,
			UploadStatus:  v.Upload,
			Embeddable:    v.Embeddable,
		},
	}
	if v.AgeRestricted {
		video.ContentDetails.ContentRating = &ytapi.ContentRating{YtRating: "ytAgeRestricted"}
	}
	if len(v.Blocked) > 0 {
		video.ContentDetails.RegionRestriction = &ytapi.VideoContentDetailsRegionRestriction{Blocked: v.Blocked}
	}
	return video
}

func first(v []string) string {
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": reason,
			"errors":  []map[string]string{{"reason": reason, "domain": "youtube.quota"}},
		},
	})
}
