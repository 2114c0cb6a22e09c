// Package handlers exposes the resolver, histories, transport and lyrics
// over a local JSON API, and bridges the browser player over a websocket.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"songbird/app"
	"songbird/models"
	"songbird/pages"
	"songbird/player"
	"songbird/sentry"
	"songbird/sentryhelper"
	"songbird/transport"
)

type PlayRequest struct {
	Track models.Track   `json:"track"`
	Queue []models.Track `json:"queue"`
}

type SeekRequest struct {
	Seconds float64 `json:"seconds"`
}

type VolumeRequest struct {
	Percent int `json:"percent"`
}

type EnqueueRequest struct {
	Tracks []models.Track `json:"tracks" binding:"required"`
}

// ScrubStatus is the position a progress bar should render.
type ScrubStatus struct {
	Scrubbing       bool    `json:"scrubbing"`
	DisplaySeconds  float64 `json:"displaySeconds"`
	DurationSeconds float64 `json:"durationSeconds"`
}

type Manager struct {
	app          *app.App
	scrubber     *transport.Scrubber
	pollInterval time.Duration
	logger       *log.Entry

	bridgeMu     sync.Mutex
	bridgeCancel context.CancelFunc
}

func NewManager(a *app.App) *Manager {
	return &Manager{
		app:          a,
		scrubber:     transport.NewScrubber(a.Transport),
		pollInterval: a.Config.Options.ProgressPoll,
		logger:       log.WithFields(log.Fields{"module": "handlers"}),
	}
}

func (m *Manager) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), sentry.GetSentryGin(), sentry.BindHub(), m.requestLogger())

	router.GET("/", m.handlePage)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/player/ws", m.handlePlayerSocket)

	api := router.Group("/api")
	{
		api.GET("/search", m.handleSearch)
		api.GET("/trending", m.handleTrending)
		api.GET("/curated", m.handleCurated)
		api.GET("/playlists/:id", m.handlePlaylist)
		api.GET("/resolve", m.handleResolve)
		api.GET("/tracks/:id", m.handleTrack)

		api.GET("/history", m.handleHistory)
		api.GET("/most-played", m.handleMostPlayed)
		api.GET("/search-history", m.handleSearchHistory)
		api.DELETE("/search-history", m.handleClearSearchHistory)

		api.GET("/state", m.handleState)
		api.POST("/play", m.handlePlay)
		api.POST("/toggle", m.handleToggle)
		api.POST("/next", m.handleNext)
		api.POST("/previous", m.handlePrevious)
		api.POST("/seek", m.handleSeek)
		api.GET("/scrub", m.handleScrubStatus)
		api.POST("/scrub/begin", m.scrub(m.scrubber.Begin))
		api.POST("/scrub/move", m.scrub(m.scrubber.Move))
		api.POST("/scrub/release", m.scrub(m.scrubber.Release))
		api.DELETE("/scrub", m.handleScrubCancel)
		api.POST("/volume", m.handleVolume)
		api.POST("/enqueue", m.handleEnqueue)
		api.DELETE("/queue", m.handleClearQueue)
		api.DELETE("/queue/:index", m.handleRemoveFromQueue)
		api.POST("/video-mode", m.flag(m.app.Transport.ToggleVideoMode))
		api.POST("/lyrics-visible", m.flag(m.app.Transport.ToggleLyrics))
		api.POST("/minimize", m.flag(m.app.Transport.Minimize))
		api.POST("/maximize", m.flag(m.app.Transport.Maximize))

		api.GET("/lyrics", m.handleLyrics)
	}
	return router
}

func (m *Manager) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.logger.WithFields(log.Fields{
			"function": "requestLogger",
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"elapsed":  time.Since(start).Round(time.Millisecond).String(),
		}).Debug("request")
	}
}

func (m *Manager) handlePage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(pages.Player))
}

func (m *Manager) handleSearch(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing q parameter"})
		return
	}
	tracks, current := m.app.Session.Search(c.Request.Context(), query)
	c.JSON(http.StatusOK, gin.H{"query": query, "current": current, "tracks": tracks})
}

func (m *Manager) handleTrending(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tracks": m.app.Resolver.GetTrendingTracks(c.Request.Context())})
}

func (m *Manager) handleCurated(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tracks": m.app.Resolver.GetCuratedArtistHits(c.Request.Context())})
}

func (m *Manager) handlePlaylist(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tracks": m.app.Resolver.ListPlaylistTracks(c.Request.Context(), c.Param("id"))})
}

func (m *Manager) handleResolve(c *gin.Context) {
	raw := c.Query("url")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing url parameter"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tracks": m.app.Resolver.ResolveURL(c.Request.Context(), raw)})
}

func (m *Manager) handleTrack(c *gin.Context) {
	track, ok := m.app.Resolver.TrackByID(c.Request.Context(), c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "track not found"})
		return
	}
	c.JSON(http.StatusOK, track)
}

func (m *Manager) handleHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"entries": m.app.Listening.Entries()})
}

func (m *Manager) handleMostPlayed(c *gin.Context) {
	n, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": m.app.Listening.MostPlayed(n)})
}

func (m *Manager) handleSearchHistory(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"queries": m.app.Searches.Queries()})
}

func (m *Manager) handleClearSearchHistory(c *gin.Context) {
	m.app.Searches.Clear(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (m *Manager) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, m.app.Transport.Snapshot())
}

func (m *Manager) handlePlay(c *gin.Context) {
	var req PlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Track.ExternalMediaID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "track.externalMediaId is required"})
		return
	}
	ctx := sentryhelper.DetachFromTransaction(c.Request.Context())
	if req.Queue != nil {
		m.app.Transport.PlayWithQueue(ctx, req.Track, req.Queue)
	} else {
		m.app.Transport.Play(ctx, req.Track)
	}
	c.JSON(http.StatusOK, m.app.Transport.Snapshot())
}

func (m *Manager) handleToggle(c *gin.Context) {
	m.respond(c, m.app.Transport.TogglePlay())
}

func (m *Manager) handleNext(c *gin.Context) {
	_, err := m.app.Transport.PlayNext(sentryhelper.DetachFromTransaction(c.Request.Context()))
	m.respond(c, err)
}

func (m *Manager) handlePrevious(c *gin.Context) {
	m.respond(c, m.app.Transport.PlayPrevious())
}

func (m *Manager) handleSeek(c *gin.Context) {
	var req SeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m.app.Transport.SeekTo(req.Seconds)
	m.respond(c, nil)
}

func (m *Manager) scrubStatus() ScrubStatus {
	observed := m.app.Transport.Snapshot().Observed
	return ScrubStatus{
		Scrubbing:       m.scrubber.IsScrubbing(),
		DisplaySeconds:  m.scrubber.Display(observed.ProgressSeconds),
		DurationSeconds: observed.DurationSeconds,
	}
}

func (m *Manager) handleScrubStatus(c *gin.Context) {
	c.JSON(http.StatusOK, m.scrubStatus())
}

// scrub binds a scrub step to a route. Only release reaches the transport.
func (m *Manager) scrub(step func(seconds float64)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SeekRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		step(req.Seconds)
		c.JSON(http.StatusOK, m.scrubStatus())
	}
}

func (m *Manager) handleScrubCancel(c *gin.Context) {
	m.scrubber.Cancel()
	c.JSON(http.StatusOK, m.scrubStatus())
}

func (m *Manager) handleVolume(c *gin.Context) {
	var req VolumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m.app.Transport.SetVolume(req.Percent)
	m.respond(c, nil)
}

func (m *Manager) handleEnqueue(c *gin.Context) {
	var req EnqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m.app.Transport.Enqueue(req.Tracks...)
	m.respond(c, nil)
}

func (m *Manager) handleClearQueue(c *gin.Context) {
	m.app.Transport.ClearQueue()
	m.respond(c, nil)
}

func (m *Manager) handleRemoveFromQueue(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be an integer"})
		return
	}
	m.respond(c, m.app.Transport.RemoveFromQueue(index))
}

func (m *Manager) flag(fn func()) gin.HandlerFunc {
	return func(c *gin.Context) {
		fn()
		m.respond(c, nil)
	}
}

// respond writes the current state, or the transport error as a 409/404.
func (m *Manager) respond(c *gin.Context, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, m.app.Transport.Snapshot())
	case errors.Is(err, transport.ErrQueueIndex):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, transport.ErrNoTrack), errors.Is(err, transport.ErrNothingToPlay):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		m.logger.WithFields(log.Fields{"function": "respond"}).Errorf("unexpected error: %v", err)
		sentryhelper.CaptureException(c.Request.Context(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (m *Manager) handleLyrics(c *gin.Context) {
	title := c.Query("title")
	artist := c.Query("artist")
	duration, _ := strconv.ParseFloat(c.Query("duration"), 64)

	if title == "" {
		current := m.app.Transport.Snapshot().CurrentTrack
		if current == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no title given and nothing is playing"})
			return
		}
		title, artist = current.Title, current.ArtistName
		duration = current.DurationSeconds()
	}

	lines := m.app.Lyrics.Lyrics(c.Request.Context(), title, artist, duration)
	c.JSON(http.StatusOK, gin.H{"title": title, "artist": artist, "lines": lines})
}

// handlePlayerSocket runs the player adapter for the connected page. A new
// page replaces the previous one.
func (m *Manager) handlePlayerSocket(c *gin.Context) {
	logger := m.logger.WithFields(log.Fields{"function": "handlePlayerSocket"})

	p, err := player.Accept(c.Writer, c.Request)
	if err != nil {
		logger.Warnf("websocket upgrade failed: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(sentryhelper.DetachFromTransaction(c.Request.Context()))
	defer cancel()

	m.bridgeMu.Lock()
	if m.bridgeCancel != nil {
		m.bridgeCancel()
	}
	m.bridgeCancel = cancel
	m.bridgeMu.Unlock()

	go func() {
		<-ctx.Done()
		p.Close()
	}()

	adapter := player.NewAdapter(p, m.app.Transport, m.pollInterval)
	go func() {
		if err := p.ReadLoop(); err != nil {
			logger.Debugf("player connection closed: %v", err)
		}
		cancel()
	}()
	go adapter.Pump(ctx, p.Events())

	logger.Info("player page connected")
	adapter.Run(ctx)
	logger.Info("player page disconnected")
}
