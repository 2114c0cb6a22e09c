package transport

import "sync"

// Seeker is the part of the Transport a Scrubber drives.
type Seeker interface {
	SeekTo(seconds float64)
}

// Scrubber holds the position of a scrub control while it is being dragged.
// During a drag the shadow value is displayed instead of the observed
// progress, and nothing reaches the transport until Release.
type Scrubber struct {
	mu       sync.Mutex
	seeker   Seeker
	dragging bool
	value    float64
}

func NewScrubber(seeker Seeker) *Scrubber {
	return &Scrubber{seeker: seeker}
}

func (s *Scrubber) Begin(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dragging = true
	s.value = seconds
}

// Move updates the shadow position only.
func (s *Scrubber) Move(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dragging {
		return
	}
	s.value = seconds
}

// Release ends the drag and issues exactly one seek to seconds.
func (s *Scrubber) Release(seconds float64) {
	s.mu.Lock()
	s.dragging = false
	s.value = seconds
	s.mu.Unlock()

	s.seeker.SeekTo(seconds)
}

// Cancel ends the drag without seeking.
func (s *Scrubber) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dragging = false
}

func (s *Scrubber) IsScrubbing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dragging
}

// Display returns the position to render given the observed progress.
func (s *Scrubber) Display(progress float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dragging {
		return s.value
	}
	return progress
}
