package player

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"songbird/models"
	"songbird/sentryhelper"
	"songbird/transport"
)

const DefaultPollInterval = 500 * time.Millisecond

// Transport is the part of transport.Transport the adapter reads and
// writes.
type Transport interface {
	Subscribe() (<-chan transport.PlaybackState, func())
	Snapshot() transport.PlaybackState
	ConsumePendingSeek() (float64, bool)
	ConsumePendingLoad() (models.Track, bool)
	ReportProgress(seconds, durationSeconds float64)
	ReportPlayerState(state string)
	ReportPlaybackEnded()
	ReportPlaybackError(code int)
}

// Adapter is the only writer of observed progress and the only consumer of
// pending intents.
type Adapter struct {
	mu           sync.Mutex
	player       Player
	transport    Transport
	pollInterval time.Duration

	ready    bool
	loaded   string
	volume   int
	stopPoll chan struct{}
	// stopped is set once Run returns; polling never restarts after that.
	stopped bool
	logger  *log.Entry
}

func NewAdapter(p Player, t Transport, pollInterval time.Duration) *Adapter {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Adapter{
		player:       p,
		transport:    t,
		pollInterval: pollInterval,
		volume:       -1,
		logger:       log.WithFields(log.Fields{"module": "player"}),
	}
}

// Run syncs the player with every transport snapshot until ctx is done.
// The adapter cannot be restarted after Run returns.
func (a *Adapter) Run(ctx context.Context) {
	states, unsubscribe := a.transport.Subscribe()
	defer unsubscribe()
	defer a.stop()

	a.Sync(a.transport.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-states:
			if !ok {
				return
			}
			a.Sync(s)
		}
	}
}

// Pump feeds events from ch into HandleEvent until ch closes or ctx is done.
func (a *Adapter) Pump(ctx context.Context, ch <-chan Event) {
	defer a.stopPolling()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			a.HandleEvent(ev)
		}
	}
}

func (a *Adapter) HandleEvent(ev Event) {
	logger := a.logger.WithFields(log.Fields{"function": "HandleEvent", "event": ev.Type})
	logger.Tracef("player event state=%s code=%d", ev.State, ev.Code)

	switch ev.Type {
	case EventReady:
		a.mu.Lock()
		a.ready = true
		a.drainSeek()
		a.mu.Unlock()
	case EventStateChanged:
		a.transport.ReportPlayerState(ev.State.String())
		switch ev.State {
		case Playing:
			a.mu.Lock()
			a.ready = true
			a.drainSeek()
			a.mu.Unlock()
			a.startPolling()
		case Paused:
			a.stopPolling()
			a.reportProgress()
		case Cued:
			a.mu.Lock()
			a.ready = true
			a.drainSeek()
			a.mu.Unlock()
		case Ended:
			a.stopPolling()
			a.transport.ReportPlaybackEnded()
		}
	case EventError:
		a.stopPolling()
		a.transport.ReportPlaybackError(ev.Code)
	default:
		logger.Warnf("unknown player event: %s", ev.Type)
	}
}

// Sync applies the intent in s to the player.
func (a *Adapter) Sync(s transport.PlaybackState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	logger := a.logger.WithFields(log.Fields{"function": "Sync", "version": s.Version})

	justLoaded := false
	if s.Intent.PendingLoad != nil {
		if track, ok := a.transport.ConsumePendingLoad(); ok {
			a.ready = false
			a.loaded = track.ExternalMediaID
			justLoaded = true
			if err := a.player.LoadAndPlay(track.ExternalMediaID); err != nil {
				a.fail(logger, err, "load")
			}
		}
	}

	if a.ready && s.Intent.PendingSeekSeconds != nil {
		a.drainSeek()
	}

	if a.ready && !justLoaded && s.CurrentTrack != nil && a.loaded != "" {
		switch st := a.player.State(); {
		case s.IsPlaying && st == Ended:
			if err := a.player.Seek(0); err != nil {
				a.fail(logger, err, "seek")
			}
			if err := a.player.Play(); err != nil {
				a.fail(logger, err, "play")
			}
		case s.IsPlaying && (st == Paused || st == Cued || st == Unstarted):
			if err := a.player.Play(); err != nil {
				a.fail(logger, err, "play")
			}
		case !s.IsPlaying && (st == Playing || st == Buffering):
			if err := a.player.Pause(); err != nil {
				a.fail(logger, err, "pause")
			}
		}
	}

	if s.VolumePercent != a.volume {
		if err := a.player.SetVolume(s.VolumePercent); err != nil {
			a.fail(logger, err, "set volume")
		} else {
			a.volume = s.VolumePercent
		}
	}
}

// drainSeek applies and clears a pending seek. Caller holds a.mu.
func (a *Adapter) drainSeek() {
	seconds, ok := a.transport.ConsumePendingSeek()
	if !ok {
		return
	}
	if err := a.player.Seek(seconds); err != nil {
		a.fail(a.logger.WithFields(log.Fields{"function": "drainSeek"}), err, "seek")
	}
}

func (a *Adapter) fail(logger *log.Entry, err error, action string) {
	logger.Errorf("player %s failed: %v", action, err)
	sentryhelper.CaptureException(context.Background(), err)
}

func (a *Adapter) reportProgress() {
	a.transport.ReportProgress(a.player.CurrentTime(), a.player.Duration())
}

func (a *Adapter) startPolling() {
	a.mu.Lock()
	if a.stopped || a.stopPoll != nil {
		a.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	a.stopPoll = stop
	a.mu.Unlock()

	a.reportProgress()
	go func() {
		ticker := time.NewTicker(a.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				a.reportProgress()
			}
		}
	}()
}

func (a *Adapter) stop() {
	a.mu.Lock()
	a.stopped = true
	a.mu.Unlock()
	a.stopPolling()
}

func (a *Adapter) stopPolling() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopPoll != nil {
		close(a.stopPoll)
		a.stopPoll = nil
	}
}

// Polling reports whether the progress loop is running.
func (a *Adapter) Polling() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopPoll != nil
}
