// ABOUTME: Tests for the shared playback status
// ABOUTME: Covers change notification and bounded waits
package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusChangedFiresOnFlagChange(t *testing.T) {
	s := NewStatus()
	ch := s.Changed()

	s.SetPlaying(true)
	select {
	case <-ch:
	default:
		t.Fatal("changed channel not closed")
	}

	ch = s.Changed()
	s.SetPlaying(true)
	select {
	case <-ch:
		t.Fatal("unchanged flag woke waiters")
	default:
	}
}

func TestStatusCurrentTimeDoesNotNotify(t *testing.T) {
	s := NewStatus()
	ch := s.Changed()
	s.SetCurrentTime(time.Second)
	assert.Equal(t, time.Second, s.CurrentTime())
	select {
	case <-ch:
		t.Fatal("time update woke waiters")
	default:
	}
}

func TestAwaitWakesOnChange(t *testing.T) {
	s := NewStatus()
	go func() {
		time.Sleep(5 * time.Millisecond)
		s.SetPlaying(true)
	}()

	start := time.Now()
	ok := s.await(context.Background(), time.Hour, s.Playing, func() bool { return false })
	assert.True(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}

func TestAwaitAborts(t *testing.T) {
	s := NewStatus()
	s.SetAvailable(true)
	go func() {
		time.Sleep(5 * time.Millisecond)
		s.SetAvailable(false)
	}()

	ok := s.await(context.Background(), time.Hour, s.Playing, func() bool { return !s.Available() })
	assert.False(t, ok)
}

func TestAwaitPollsUnsignalledConditions(t *testing.T) {
	s := NewStatus()
	deadline := time.Now().Add(20 * time.Millisecond)
	ok := s.await(context.Background(), time.Millisecond,
		func() bool { return time.Now().After(deadline) },
		func() bool { return false })
	assert.True(t, ok)
}

func TestAwaitHonorsContext(t *testing.T) {
	s := NewStatus()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	assert.False(t, s.await(ctx, time.Hour, s.Playing, func() bool { return false }))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "decoding", StateDecoding.String())
	assert.Equal(t, "end_of_stream", StateEndOfStream.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "unknown", State(42).String())
}
