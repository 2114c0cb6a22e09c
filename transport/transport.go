// Package transport owns the playback state machine. UI actions write
// intent; the player adapter writes observed progress and clears the
// one-shot commands it has acted on.
package transport

import (
	"context"
	"errors"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"songbird/models"
)

var (
	ErrNoTrack       = errors.New("transport: no current track")
	ErrQueueIndex    = errors.New("transport: queue index out of range")
	ErrNothingToPlay = errors.New("transport: queue empty and no fallback tracks")
)

const (
	defaultNoticeTTL   = 5 * time.Second
	subscriberCapacity = 16
)

// ChartSource supplies fallback tracks when PlayNext runs out of queue.
type ChartSource interface {
	GetTrendingTracks(ctx context.Context) []models.Track
}

// HistoryRecorder is told about every track that starts playing.
type HistoryRecorder interface {
	Touch(ctx context.Context, track models.Track)
}

type Options struct {
	Charts  ChartSource
	History HistoryRecorder
	// NoticeTTL is how long a playback error notice stays up.
	NoticeTTL time.Duration
	// Shuffle reorders fallback chart tracks; defaults to lo.Shuffle.
	Shuffle func([]models.Track) []models.Track
}

type Transport struct {
	mu        sync.Mutex
	state     PlaybackState
	noticeSeq uint64

	subs    map[uint64]chan PlaybackState
	nextSub uint64

	charts    ChartSource
	history   HistoryRecorder
	noticeTTL time.Duration
	shuffle   func([]models.Track) []models.Track
	logger    *log.Entry
}

func New(opts Options) *Transport {
	t := &Transport{
		state:     initialState(),
		subs:      make(map[uint64]chan PlaybackState),
		charts:    opts.Charts,
		history:   opts.History,
		noticeTTL: opts.NoticeTTL,
		shuffle:   opts.Shuffle,
		logger:    log.WithFields(log.Fields{"module": "transport"}),
	}
	if t.noticeTTL <= 0 {
		t.noticeTTL = defaultNoticeTTL
	}
	if t.shuffle == nil {
		t.shuffle = func(tracks []models.Track) []models.Track {
			return lo.Shuffle(tracks)
		}
	}
	return t
}

// Snapshot returns a copy of the current state.
func (t *Transport) Snapshot() PlaybackState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.clone()
}

// Subscribe returns a channel that receives a snapshot after every change.
// A slow subscriber only loses intermediate snapshots, never the latest.
func (t *Transport) Subscribe() (<-chan PlaybackState, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextSub
	t.nextSub++
	ch := make(chan PlaybackState, subscriberCapacity)
	t.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.subs, id)
			close(ch)
		})
	}
}

// update applies fn to a private copy of the state. fn returns false to
// abandon the change. Must not be called with t.mu held.
func (t *Transport) update(fn func(s *PlaybackState) bool) (PlaybackState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.state.clone()
	if !fn(&next) {
		return t.state.clone(), false
	}
	if next.CurrentTrack == nil {
		next.IsPlaying = false
	}
	next.Version = t.state.Version + 1
	t.state = next
	t.broadcast()
	return next.clone(), true
}

// broadcast sends the current state to every subscriber. Caller holds t.mu.
func (t *Transport) broadcast() {
	for _, ch := range t.subs {
		snap := t.state.clone()
		select {
		case ch <- snap:
			continue
		default:
		}
		// drop the oldest pending snapshot to make room for this one
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (t *Transport) touch(ctx context.Context, track models.Track) {
	if t.history != nil {
		t.history.Touch(ctx, track)
	}
}

func startTrack(s *PlaybackState, track models.Track) {
	s.CurrentTrack = ptr(track)
	s.IsPlaying = true
	s.IsMinimized = false
	s.Observed.ProgressSeconds = 0
	s.Observed.DurationSeconds = 0
	s.Intent.PendingSeekSeconds = ptr(0.0)
	s.Intent.PendingLoad = ptr(track)
}

// Play starts track and keeps the existing queue.
func (t *Transport) Play(ctx context.Context, track models.Track) {
	t.update(func(s *PlaybackState) bool {
		startTrack(s, track)
		return true
	})
	t.logger.WithFields(log.Fields{"function": "Play", "video_id": track.ExternalMediaID}).Debug("play")
	t.touch(ctx, track)
}

// PlayWithQueue starts track and replaces the queue.
func (t *Transport) PlayWithQueue(ctx context.Context, track models.Track, queue []models.Track) {
	t.update(func(s *PlaybackState) bool {
		startTrack(s, track)
		s.Queue = slices.Clone(queue)
		if s.Queue == nil {
			s.Queue = []models.Track{}
		}
		return true
	})
	t.logger.WithFields(log.Fields{"function": "PlayWithQueue", "video_id": track.ExternalMediaID, "queue": len(queue)}).Debug("play")
	t.touch(ctx, track)
}

// TogglePlay flips the play intent. Returns ErrNoTrack when nothing is
// loaded.
func (t *Transport) TogglePlay() error {
	if _, ok := t.update(func(s *PlaybackState) bool {
		if s.CurrentTrack == nil {
			return false
		}
		s.IsPlaying = !s.IsPlaying
		return true
	}); !ok {
		return ErrNoTrack
	}
	return nil
}

func (t *Transport) Enqueue(tracks ...models.Track) {
	if len(tracks) == 0 {
		return
	}
	t.update(func(s *PlaybackState) bool {
		s.Queue = append(s.Queue, tracks...)
		return true
	})
}

func (t *Transport) RemoveFromQueue(index int) error {
	if _, ok := t.update(func(s *PlaybackState) bool {
		if index < 0 || index >= len(s.Queue) {
			return false
		}
		s.Queue = slices.Delete(s.Queue, index, index+1)
		return true
	}); !ok {
		return ErrQueueIndex
	}
	return nil
}

func (t *Transport) ClearQueue() {
	t.update(func(s *PlaybackState) bool {
		if len(s.Queue) == 0 {
			return false
		}
		s.Queue = []models.Track{}
		return true
	})
}

// dequeue starts the head of the queue if there is one.
func (t *Transport) dequeue() (models.Track, bool) {
	var next models.Track
	_, ok := t.update(func(s *PlaybackState) bool {
		if len(s.Queue) == 0 {
			return false
		}
		next = s.Queue[0]
		s.Queue = slices.Clone(s.Queue[1:])
		startTrack(s, next)
		return true
	})
	return next, ok
}

// PlayNext advances to the head of the queue. With an empty queue it asks
// the chart source for tracks, shuffles them, plays the first and queues
// the rest.
func (t *Transport) PlayNext(ctx context.Context) (models.Track, error) {
	logger := t.logger.WithFields(log.Fields{"function": "PlayNext"})

	if next, ok := t.dequeue(); ok {
		t.touch(ctx, next)
		return next, nil
	}
	if t.charts == nil {
		return models.Track{}, ErrNothingToPlay
	}

	chart := t.charts.GetTrendingTracks(ctx)
	if len(chart) == 0 {
		logger.Warn("queue empty and chart fallback returned nothing")
		return models.Track{}, ErrNothingToPlay
	}
	shuffled := t.shuffle(slices.Clone(chart))

	var started models.Track
	t.update(func(s *PlaybackState) bool {
		// something was queued while the chart was loading
		if len(s.Queue) > 0 {
			started = s.Queue[0]
			s.Queue = slices.Clone(s.Queue[1:])
		} else {
			started = shuffled[0]
			s.Queue = slices.Clone(shuffled[1:])
		}
		startTrack(s, started)
		return true
	})
	logger.Debugf("started %s from chart fallback", started.ExternalMediaID)
	t.touch(ctx, started)
	return started, nil
}

// PlayPrevious restarts the current track. No back-history is kept.
func (t *Transport) PlayPrevious() error {
	if _, ok := t.update(func(s *PlaybackState) bool {
		if s.CurrentTrack == nil {
			return false
		}
		s.Intent.PendingSeekSeconds = ptr(0.0)
		return true
	}); !ok {
		return ErrNoTrack
	}
	return nil
}

// SeekTo records a one-shot seek for the adapter. A newer seek replaces an
// unconsumed one.
func (t *Transport) SeekTo(seconds float64) {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	t.update(func(s *PlaybackState) bool {
		target := seconds
		if d := s.Observed.DurationSeconds; d > 0 && target > d {
			target = d
		}
		s.Intent.PendingSeekSeconds = ptr(target)
		return true
	})
}

// ConsumePendingSeek returns and clears the pending seek.
func (t *Transport) ConsumePendingSeek() (float64, bool) {
	var seconds float64
	_, ok := t.update(func(s *PlaybackState) bool {
		if s.Intent.PendingSeekSeconds == nil {
			return false
		}
		seconds = *s.Intent.PendingSeekSeconds
		s.Intent.PendingSeekSeconds = nil
		return true
	})
	return seconds, ok
}

// ConsumePendingLoad returns and clears the pending media load.
func (t *Transport) ConsumePendingLoad() (models.Track, bool) {
	var track models.Track
	_, ok := t.update(func(s *PlaybackState) bool {
		if s.Intent.PendingLoad == nil {
			return false
		}
		track = *s.Intent.PendingLoad
		s.Intent.PendingLoad = nil
		return true
	})
	return track, ok
}

// ReportProgress records the player's position. Repeating the same report
// is a no-op and does not notify subscribers.
func (t *Transport) ReportProgress(seconds, durationSeconds float64) {
	if math.IsNaN(durationSeconds) || durationSeconds < 0 {
		durationSeconds = 0
	}
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	if durationSeconds > 0 && seconds > durationSeconds {
		seconds = durationSeconds
	}

	t.update(func(s *PlaybackState) bool {
		if s.Observed.ProgressSeconds == seconds && s.Observed.DurationSeconds == durationSeconds {
			return false
		}
		s.Observed.ProgressSeconds = seconds
		s.Observed.DurationSeconds = durationSeconds
		return true
	})
}

// ReportPlayerState records the raw player state name.
func (t *Transport) ReportPlayerState(state string) {
	t.update(func(s *PlaybackState) bool {
		if s.Observed.PlayerState == state {
			return false
		}
		s.Observed.PlayerState = state
		return true
	})
}

// ReportPlaybackEnded stops playback and rewinds. It does not advance.
func (t *Transport) ReportPlaybackEnded() {
	t.update(func(s *PlaybackState) bool {
		if !s.IsPlaying && s.Observed.ProgressSeconds == 0 {
			return false
		}
		s.IsPlaying = false
		s.Observed.ProgressSeconds = 0
		return true
	})
}

// ReportPlaybackError stops playback and raises a notice that clears after
// the notice TTL.
func (t *Transport) ReportPlaybackError(code int) {
	var id uint64
	t.update(func(s *PlaybackState) bool {
		t.noticeSeq++
		id = t.noticeSeq
		s.IsPlaying = false
		s.Notice = &Notice{ID: id, Code: code, Message: ErrorMessage(code)}
		return true
	})
	t.logger.WithFields(log.Fields{"function": "ReportPlaybackError", "code": code}).Warn("player reported an error")

	time.AfterFunc(t.noticeTTL, func() {
		t.DismissNotice(id)
	})
}

// DismissNotice clears the notice if it is still the one with id.
func (t *Transport) DismissNotice(id uint64) {
	t.update(func(s *PlaybackState) bool {
		if s.Notice == nil || s.Notice.ID != id {
			return false
		}
		s.Notice = nil
		return true
	})
}

func (t *Transport) SetVolume(percent int) {
	percent = max(0, min(100, percent))
	t.update(func(s *PlaybackState) bool {
		if s.VolumePercent == percent {
			return false
		}
		s.VolumePercent = percent
		return true
	})
}

func (t *Transport) ToggleVideoMode() {
	t.update(func(s *PlaybackState) bool {
		s.VideoModeEnabled = !s.VideoModeEnabled
		return true
	})
}

func (t *Transport) ToggleLyrics() {
	t.update(func(s *PlaybackState) bool {
		s.LyricsVisible = !s.LyricsVisible
		return true
	})
}

func (t *Transport) Minimize() {
	t.update(func(s *PlaybackState) bool {
		if s.IsMinimized {
			return false
		}
		s.IsMinimized = true
		return true
	})
}

func (t *Transport) Maximize() {
	t.update(func(s *PlaybackState) bool {
		if !s.IsMinimized {
			return false
		}
		s.IsMinimized = false
		return true
	})
}

// ErrorMessage maps an embedded player error code to user-facing text.
func ErrorMessage(code int) string {
	switch code {
	case 2:
		return "This track could not be loaded."
	case 5:
		return "The player ran into a playback problem."
	case 100:
		return "This track is no longer available."
	case 101, 150, 153:
		return "This track can't be played outside YouTube."
	default:
		return "Playback failed."
	}
}
