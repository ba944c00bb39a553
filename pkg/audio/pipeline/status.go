// ABOUTME: Playback status shared between the controller and the decode worker
// ABOUTME: Each field is atomic; flag changes wake anyone waiting on Changed
package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// State is the lifecycle stage of a pipeline
type State int32

const (
	StateIdle State = iota
	StateOpening
	StateDecoding
	StateEndOfStream
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpening:
		return "opening"
	case StateDecoding:
		return "decoding"
	case StateEndOfStream:
		return "end_of_stream"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Status is the playback state of one open source
type Status struct {
	state          atomic.Int32
	available      atomic.Bool
	playing        atomic.Bool
	endOfStream    atomic.Bool
	droppingFrames atomic.Bool
	currentTime    atomic.Duration

	mu   sync.Mutex
	wake chan struct{}
}

// NewStatus creates an idle status
func NewStatus() *Status {
	return &Status{wake: make(chan struct{})}
}

// Changed returns a channel that is closed on the next flag or state change
func (s *Status) Changed() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wake
}

func (s *Status) notify() {
	s.mu.Lock()
	close(s.wake)
	s.wake = make(chan struct{})
	s.mu.Unlock()
}

func (s *Status) setFlag(flag *atomic.Bool, v bool) {
	if flag.Swap(v) != v {
		s.notify()
	}
}

// State returns the lifecycle stage
func (s *Status) State() State { return State(s.state.Load()) }

// SetState moves to a new lifecycle stage
func (s *Status) SetState(st State) {
	if State(s.state.Swap(int32(st))) != st {
		s.notify()
	}
}

// Available reports whether the source is open
func (s *Status) Available() bool { return s.available.Load() }

// SetAvailable sets the available flag; clearing it stops the worker
func (s *Status) SetAvailable(v bool) { s.setFlag(&s.available, v) }

// Playing reports whether the source should stream
func (s *Status) Playing() bool { return s.playing.Load() }

// SetPlaying sets the playing flag
func (s *Status) SetPlaying(v bool) { s.setFlag(&s.playing, v) }

// EndOfStream reports whether the source has been exhausted
func (s *Status) EndOfStream() bool { return s.endOfStream.Load() }

// SetEndOfStream sets the end-of-stream flag
func (s *Status) SetEndOfStream(v bool) { s.setFlag(&s.endOfStream, v) }

// DroppingFrames reports whether pending writes must be discarded
func (s *Status) DroppingFrames() bool { return s.droppingFrames.Load() }

// SetDroppingFrames sets the dropping-frames flag
func (s *Status) SetDroppingFrames(v bool) { s.setFlag(&s.droppingFrames, v) }

// CurrentTime returns the presentation time of the last decoded packet
func (s *Status) CurrentTime() time.Duration { return s.currentTime.Load() }

// SetCurrentTime updates the presentation time without waking waiters
func (s *Status) SetCurrentTime(t time.Duration) { s.currentTime.Store(t) }

// await blocks until ready holds. It returns false as soon as abort holds or
// ctx is done. Flag changes wake it immediately; conditions nothing signals
// (queue space) are rechecked every poll.
func (s *Status) await(ctx context.Context, poll time.Duration, ready, abort func() bool) bool {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		wake := s.Changed()
		if ctx.Err() != nil || abort() {
			return false
		}
		if ready() {
			return true
		}

		if timer == nil {
			timer = time.NewTimer(poll)
		} else {
			timer.Reset(poll)
		}
		select {
		case <-ctx.Done():
			return false
		case <-wake:
		case <-timer.C:
		}
	}
}
