// Package player drives an embedded video player from the transport state.
package player

import "strconv"

// State mirrors the iframe player API state codes.
type State int

const (
	Unstarted State = -1
	Ended     State = 0
	Playing   State = 1
	Paused    State = 2
	Buffering State = 3
	Cued      State = 5
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Ended:
		return "ended"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Buffering:
		return "buffering"
	case Cued:
		return "cued"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

type EventType string

const (
	EventReady        EventType = "ready"
	EventStateChanged EventType = "state_changed"
	EventError        EventType = "error"
)

type Event struct {
	Type  EventType
	State State
	// Code is the player error code for EventError.
	Code int
}

// Player is an embedded media player. Commands are fire-and-forget; the
// player reports back through Events.
type Player interface {
	LoadAndPlay(mediaID string) error
	Play() error
	Pause() error
	Seek(seconds float64) error
	SetVolume(percent int) error

	CurrentTime() float64
	Duration() float64
	State() State
}
