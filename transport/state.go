package transport

import (
	"slices"

	"songbird/models"
)

// Observed is written only by the player adapter.
type Observed struct {
	ProgressSeconds float64 `json:"progressSeconds"`
	DurationSeconds float64 `json:"durationSeconds"`
	PlayerState     string  `json:"playerState"`
}

// Intent holds one-shot commands for the player adapter. Each is cleared by
// the adapter once acted on. Only the transport sets them.
type Intent struct {
	PendingSeekSeconds *float64      `json:"pendingSeekSeconds"`
	PendingLoad        *models.Track `json:"pendingLoad"`
}

// Notice is a transient, user-visible message that clears itself.
type Notice struct {
	ID      uint64 `json:"id"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// PlaybackState is an immutable snapshot. Every transport operation builds
// a new value and swaps it in.
type PlaybackState struct {
	Version          uint64         `json:"version"`
	CurrentTrack     *models.Track  `json:"currentTrack"`
	IsPlaying        bool           `json:"isPlaying"`
	IsMinimized      bool           `json:"isMinimized"`
	Queue            []models.Track `json:"queue"`
	Observed         Observed       `json:"observed"`
	Intent           Intent         `json:"intent"`
	VideoModeEnabled bool           `json:"videoModeEnabled"`
	LyricsVisible    bool           `json:"lyricsVisible"`
	VolumePercent    int            `json:"volumePercent"`
	Notice           *Notice        `json:"notice"`
}

func initialState() PlaybackState {
	return PlaybackState{
		Queue:         []models.Track{},
		VolumePercent: 100,
	}
}

// clone copies every reference so the returned value shares nothing with s.
func (s PlaybackState) clone() PlaybackState {
	c := s
	c.Queue = slices.Clone(s.Queue)
	if c.Queue == nil {
		c.Queue = []models.Track{}
	}
	if s.CurrentTrack != nil {
		t := *s.CurrentTrack
		c.CurrentTrack = &t
	}
	if s.Intent.PendingSeekSeconds != nil {
		v := *s.Intent.PendingSeekSeconds
		c.Intent.PendingSeekSeconds = &v
	}
	if s.Intent.PendingLoad != nil {
		t := *s.Intent.PendingLoad
		c.Intent.PendingLoad = &t
	}
	if s.Notice != nil {
		n := *s.Notice
		c.Notice = &n
	}
	return c
}

func ptr[T any](v T) *T {
	return &v
}
