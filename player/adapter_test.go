package player

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"songbird/models"
	"songbird/transport"
)

type fakePlayer struct {
	mu       sync.Mutex
	calls    []string
	seeks    []float64
	volumes  []int
	loaded   []string
	state    State
	time     float64
	duration float64
}

func (f *fakePlayer) record(c string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakePlayer) LoadAndPlay(id string) error {
	f.mu.Lock()
	f.loaded = append(f.loaded, id)
	f.state = Unstarted
	f.mu.Unlock()
	f.record("load")
	return nil
}

func (f *fakePlayer) Play() error {
	f.record("play")
	return nil
}

func (f *fakePlayer) Pause() error {
	f.record("pause")
	return nil
}

func (f *fakePlayer) Seek(s float64) error {
	f.mu.Lock()
	f.seeks = append(f.seeks, s)
	f.mu.Unlock()
	f.record("seek")
	return nil
}

func (f *fakePlayer) SetVolume(p int) error {
	f.mu.Lock()
	f.volumes = append(f.volumes, p)
	f.mu.Unlock()
	return nil
}

func (f *fakePlayer) CurrentTime() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.time
}

func (f *fakePlayer) Duration() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duration
}

func (f *fakePlayer) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakePlayer) set(state State, t, d float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state, f.time, f.duration = state, t, d
}

func (f *fakePlayer) count(c string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, x := range f.calls {
		if x == c {
			n++
		}
	}
	return n
}

func song(id string) models.Track {
	return models.Track{ID: id, ExternalMediaID: id, Title: id}
}

func TestSyncLoadsThenSeeksOnlyWhenReady(t *testing.T) {
	tr := transport.New(transport.Options{})
	p := &fakePlayer{}
	a := NewAdapter(p, tr, time.Hour)

	tr.Play(context.Background(), song("abc"))
	tr.SeekTo(30)
	a.Sync(tr.Snapshot())

	assert.Equal(t, []string{"abc"}, p.loaded)
	assert.Empty(t, p.seeks, "seek must wait for the player to be ready")
	assert.Nil(t, tr.Snapshot().Intent.PendingLoad)
	require.NotNil(t, tr.Snapshot().Intent.PendingSeekSeconds)

	a.HandleEvent(Event{Type: EventReady})
	assert.Equal(t, []float64{30}, p.seeks)
	assert.Nil(t, tr.Snapshot().Intent.PendingSeekSeconds)

	// a consumed seek is not applied again
	a.Sync(tr.Snapshot())
	assert.Len(t, p.seeks, 1)
}

func TestSyncAppliesSeekWhenReady(t *testing.T) {
	tr := transport.New(transport.Options{})
	p := &fakePlayer{}
	a := NewAdapter(p, tr, time.Hour)
	a.HandleEvent(Event{Type: EventReady})

	tr.SeekTo(12)
	a.Sync(tr.Snapshot())
	assert.Equal(t, []float64{12}, p.seeks)
}

func TestSyncReconcilesPlayPause(t *testing.T) {
	tr := transport.New(transport.Options{})
	p := &fakePlayer{}
	a := NewAdapter(p, tr, time.Hour)

	tr.Play(context.Background(), song("abc"))
	a.Sync(tr.Snapshot())
	p.set(Playing, 1, 100)
	a.HandleEvent(Event{Type: EventReady})

	require.NoError(t, tr.TogglePlay())
	a.Sync(tr.Snapshot())
	assert.Equal(t, 1, p.count("pause"))

	p.set(Paused, 1, 100)
	require.NoError(t, tr.TogglePlay())
	a.Sync(tr.Snapshot())
	assert.Equal(t, 1, p.count("play"))

	// already in the right state
	p.set(Playing, 1, 100)
	a.Sync(tr.Snapshot())
	assert.Equal(t, 1, p.count("play"))
}

func TestSyncResumesAfterEnded(t *testing.T) {
	tr := transport.New(transport.Options{})
	p := &fakePlayer{}
	a := NewAdapter(p, tr, time.Hour)

	tr.Play(context.Background(), song("abc"))
	a.Sync(tr.Snapshot())
	p.set(Playing, 1, 100)
	a.HandleEvent(Event{Type: EventStateChanged, State: Playing})
	p.set(Ended, 100, 100)
	a.HandleEvent(Event{Type: EventStateChanged, State: Ended})
	require.False(t, tr.Snapshot().IsPlaying)

	require.NoError(t, tr.TogglePlay())
	s := tr.Snapshot()
	require.True(t, s.IsPlaying)
	assert.Equal(t, "ended", s.Observed.PlayerState)

	seeks := p.count("seek")
	a.Sync(s)
	assert.Equal(t, 1, p.count("play"))
	assert.Equal(t, seeks+1, p.count("seek"), "rewinds before playing")
	assert.Equal(t, 0.0, p.seeks[len(p.seeks)-1])
}

func TestSyncPlaysUnstartedPlayer(t *testing.T) {
	tr := transport.New(transport.Options{})
	p := &fakePlayer{}
	a := NewAdapter(p, tr, time.Hour)

	tr.Play(context.Background(), song("abc"))
	a.Sync(tr.Snapshot())
	a.HandleEvent(Event{Type: EventReady})
	p.set(Unstarted, 0, 0)

	seeks := p.count("seek")
	tr.SetVolume(50)
	a.Sync(tr.Snapshot())
	assert.Equal(t, 1, p.count("play"))
	assert.Equal(t, seeks, p.count("seek"))
}

func TestSyncVolumeOnlyOnChange(t *testing.T) {
	tr := transport.New(transport.Options{})
	p := &fakePlayer{}
	a := NewAdapter(p, tr, time.Hour)

	a.Sync(tr.Snapshot())
	a.Sync(tr.Snapshot())
	tr.SetVolume(40)
	a.Sync(tr.Snapshot())

	assert.Equal(t, []int{100, 40}, p.volumes)
}

func TestPollingReportsProgress(t *testing.T) {
	tr := transport.New(transport.Options{})
	p := &fakePlayer{}
	a := NewAdapter(p, tr, 5*time.Millisecond)

	tr.Play(context.Background(), song("abc"))
	a.Sync(tr.Snapshot())
	p.set(Playing, 10, 200)
	a.HandleEvent(Event{Type: EventStateChanged, State: Playing})
	assert.True(t, a.Polling())

	p.set(Playing, 11.5, 200)
	require.Eventually(t, func() bool {
		return tr.Snapshot().Observed.ProgressSeconds == 11.5
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 200.0, tr.Snapshot().Observed.DurationSeconds)
	assert.Equal(t, "playing", tr.Snapshot().Observed.PlayerState)

	p.set(Paused, 12, 200)
	a.HandleEvent(Event{Type: EventStateChanged, State: Paused})
	assert.False(t, a.Polling())
	assert.Equal(t, 12.0, tr.Snapshot().Observed.ProgressSeconds)
}

func TestEndedAndError(t *testing.T) {
	tr := transport.New(transport.Options{NoticeTTL: time.Hour})
	p := &fakePlayer{}
	a := NewAdapter(p, tr, time.Hour)

	tr.Play(context.Background(), song("abc"))
	a.HandleEvent(Event{Type: EventStateChanged, State: Playing})
	a.HandleEvent(Event{Type: EventStateChanged, State: Ended})

	s := tr.Snapshot()
	assert.False(t, a.Polling())
	assert.False(t, s.IsPlaying)
	assert.Equal(t, "abc", s.CurrentTrack.ID)

	tr.Play(context.Background(), song("def"))
	a.HandleEvent(Event{Type: EventError, Code: 150})
	s = tr.Snapshot()
	assert.False(t, s.IsPlaying)
	require.NotNil(t, s.Notice)
	assert.Equal(t, 150, s.Notice.Code)
}

func TestRunSyncsUntilCancelled(t *testing.T) {
	tr := transport.New(transport.Options{})
	p := &fakePlayer{}
	a := NewAdapter(p, tr, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	tr.Play(context.Background(), song("xyz"))
	require.Eventually(t, func() bool { return p.count("load") == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNoPollingAfterRunReturns(t *testing.T) {
	tr := transport.New(transport.Options{})
	p := &fakePlayer{}
	a := NewAdapter(p, tr, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan Event, 1)
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	// an event still in flight from the old page
	p.set(Playing, 42, 200)
	a.HandleEvent(Event{Type: EventStateChanged, State: Playing})
	assert.False(t, a.Polling())

	events <- Event{Type: EventStateChanged, State: Playing}
	close(events)
	a.Pump(context.Background(), events)
	assert.False(t, a.Polling())
	assert.Zero(t, tr.Snapshot().Observed.ProgressSeconds)
}

func TestPumpStopsPollingOnExit(t *testing.T) {
	tr := transport.New(transport.Options{})
	p := &fakePlayer{}
	a := NewAdapter(p, tr, time.Hour)

	events := make(chan Event, 1)
	events <- Event{Type: EventStateChanged, State: Playing}
	close(events)
	a.Pump(context.Background(), events)
	assert.False(t, a.Polling())
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		Unstarted: "unstarted",
		Ended:     "ended",
		Playing:   "playing",
		Paused:    "paused",
		Buffering: "buffering",
		Cued:      "cued",
		State(9):  "state(9)",
	}
	for s, want := range tests {
		assert.Equal(t, want, s.String())
	}
}
