package youtube

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"time"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"songbird/models"
)

const musicCategoryID = "10"

var videoParts = []string{"snippet", "contentDetails", "status"}

// PlaylistEntry is one row of a playlist listing. Playlist items carry no
// duration.
type PlaylistEntry struct {
	VideoID      string
	Title        string
	ChannelTitle string
	Thumbnails   models.Thumbnails
}

// Client issues the four catalog queries the resolver needs. Every request
// goes through the key pool.
type Client struct {
	svc    *ytapi.Service
	pool   *Pool
	logger *log.Entry
}

type ClientOptions struct {
	HTTPClient *http.Client
	// Endpoint overrides the API base URL, e.g. for a local fake.
	Endpoint string
}

func NewClient(ctx context.Context, pool *Pool, opts ClientOptions) (*Client, error) {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}

	// Keys are attached per call so the service itself is unauthenticated.
	clientOpts := []option.ClientOption{option.WithHTTPClient(hc)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	svc, err := ytapi.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("error creating YouTube client: %w", err)
	}

	return &Client{
		svc:    svc,
		pool:   pool,
		logger: log.WithFields(log.Fields{"module": "youtube"}),
	}, nil
}

func keyOption(key string) []googleapi.CallOption {
	if key == "" {
		return nil
	}
	return []googleapi.CallOption{googleapi.QueryParameter("key", key)}
}

func finishSpan(span *sentry.Span, err error) {
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		return
	}
	span.Status = sentry.SpanStatusOK
}

// SearchVideoIDs runs a keyword search restricted to the music category and
// returns video IDs in relevance order.
func (c *Client) SearchVideoIDs(ctx context.Context, query string, max int) (ids []string, err error) {
	logger := c.logger.WithFields(log.Fields{"function": "SearchVideoIDs", "query": query})

	span := sentry.StartSpan(ctx, "youtube.search")
	span.Description = "Search YouTube API"
	span.SetTag("query", query)
	defer func() {
		finishSpan(span, err)
		span.Finish()
	}()

	resp, err := Call(span.Context(), c.pool, func(ctx context.Context, key string) (*ytapi.SearchListResponse, error) {
		return c.svc.Search.List([]string{"id"}).
			Q(query).
			MaxResults(int64(max)).
			Type("video").
			VideoCategoryId(musicCategoryID).
			Context(ctx).
			Do(keyOption(key)...)
	})
	if err != nil {
		logger.Errorf("error querying YouTube: %v", err)
		return nil, err
	}

	ids = make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id != nil && item.Id.Kind == "youtube#video" && item.Id.VideoId != "" {
			ids = append(ids, item.Id.VideoId)
		}
	}

	span.SetData("results_count", len(ids))
	logger.Tracef("found %d video ids", len(ids))
	return ids, nil
}

// VideosByID fetches full metadata for ids in one request. Items come back
// in request order; IDs the API does not return are skipped.
func (c *Client) VideosByID(ctx context.Context, ids []string) (items []models.CatalogItem, err error) {
	if len(ids) == 0 {
		return []models.CatalogItem{}, nil
	}
	logger := c.logger.WithFields(log.Fields{"function": "VideosByID", "count": len(ids)})

	span := sentry.StartSpan(ctx, "youtube.videos")
	span.Description = "Batch video details"
	defer func() {
		finishSpan(span, err)
		span.Finish()
	}()

	resp, err := Call(span.Context(), c.pool, func(ctx context.Context, key string) (*ytapi.VideoListResponse, error) {
		return c.svc.Videos.List(videoParts).
			Id(ids...).
			MaxResults(int64(len(ids))).
			Context(ctx).
			Do(keyOption(key)...)
	})
	if err != nil {
		logger.Errorf("error getting video details: %v", err)
		return nil, err
	}

	byID := make(map[string]models.CatalogItem, len(resp.Items))
	for _, v := range resp.Items {
		byID[v.Id] = toCatalogItem(v)
	}

	items = make([]models.CatalogItem, 0, len(ids))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

// MostPopular lists the music category chart for a region.
func (c *Client) MostPopular(ctx context.Context, regionCode string, max int) (items []models.CatalogItem, err error) {
	logger := c.logger.WithFields(log.Fields{"function": "MostPopular", "region": regionCode})

	span := sentry.StartSpan(ctx, "youtube.most_popular")
	span.Description = "Most popular music chart"
	span.SetTag("region", regionCode)
	defer func() {
		finishSpan(span, err)
		span.Finish()
	}()

	resp, err := Call(span.Context(), c.pool, func(ctx context.Context, key string) (*ytapi.VideoListResponse, error) {
		call := c.svc.Videos.List(videoParts).
			Chart("mostPopular").
			VideoCategoryId(musicCategoryID).
			MaxResults(int64(max)).
			Context(ctx)
		if regionCode != "" {
			call = call.RegionCode(regionCode)
		}
		return call.Do(keyOption(key)...)
	})
	if err != nil {
		logger.Errorf("error listing chart: %v", err)
		return nil, err
	}

	items = make([]models.CatalogItem, 0, len(resp.Items))
	for _, v := range resp.Items {
		items = append(items, toCatalogItem(v))
	}
	return items, nil
}

// PlaylistItems lists the first page of a playlist.
func (c *Client) PlaylistItems(ctx context.Context, playlistID string, max int) (entries []PlaylistEntry, err error) {
	logger := c.logger.WithFields(log.Fields{"function": "PlaylistItems", "playlist_id": playlistID})

	span := sentry.StartSpan(ctx, "youtube.playlist_items")
	span.Description = "List playlist items"
	span.SetTag("playlist_id", playlistID)
	defer func() {
		finishSpan(span, err)
		span.Finish()
	}()

	resp, err := Call(span.Context(), c.pool, func(ctx context.Context, key string) (*ytapi.PlaylistItemListResponse, error) {
		return c.svc.PlaylistItems.List([]string{"snippet"}).
			PlaylistId(playlistID).
			MaxResults(int64(max)).
			Context(ctx).
			Do(keyOption(key)...)
	})
	if err != nil {
		logger.Errorf("error listing playlist: %v", err)
		return nil, err
	}

	entries = make([]PlaylistEntry, 0, len(resp.Items))
	for _, item := range resp.Items {
		s := item.Snippet
		if s == nil || s.ResourceId == nil || s.ResourceId.VideoId == "" {
			continue
		}
		entries = append(entries, PlaylistEntry{
			VideoID:      s.ResourceId.VideoId,
			Title:        html.UnescapeString(s.Title),
			ChannelTitle: s.VideoOwnerChannelTitle,
			Thumbnails:   toThumbnails(s.Thumbnails),
		})
	}
	return entries, nil
}

func toCatalogItem(v *ytapi.Video) models.CatalogItem {
	item := models.CatalogItem{ID: v.Id}

	if s := v.Snippet; s != nil {
		item.Title = html.UnescapeString(s.Title)
		item.Description = s.Description
		item.ChannelTitle = s.ChannelTitle
		item.LiveBroadcastContent = s.LiveBroadcastContent
		item.Thumbnails = toThumbnails(s.Thumbnails)
	}

	if cd := v.ContentDetails; cd != nil {
		item.Duration = cd.Duration
		if cd.ContentRating != nil && cd.ContentRating.YtRating == "ytAgeRestricted" {
			item.AgeRestricted = true
		}
		if cd.RegionRestriction != nil && len(cd.RegionRestriction.Blocked) > 0 {
			item.RegionBlocked = append([]string(nil), cd.RegionRestriction.Blocked...)
		}
	}

	if st := v.Status; st != nil {
		item.PrivacyStatus = st.PrivacyStatus
		item.UploadStatus = st.UploadStatus
		embeddable := st.Embeddable
		item.Embeddable = &embeddable
	}

	return item
}

func toThumbnails(td *ytapi.ThumbnailDetails) models.Thumbnails {
	if td == nil {
		return models.Thumbnails{}
	}
	url := func(t *ytapi.Thumbnail) string {
		if t == nil {
			return ""
		}
		return t.Url
	}
	return models.Thumbnails{
		Default:  url(td.Default),
		Medium:   url(td.Medium),
		High:     url(td.High),
		Standard: url(td.Standard),
		Maxres:   url(td.Maxres),
	}
}
