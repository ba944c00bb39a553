// ABOUTME: Tests for the frame queue
// ABOUTME: Covers FIFO order, capacity bounds, discard and concurrent use
package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yako-player/yako-go/pkg/audio"
)

func frameN(n int) audio.Frame {
	return audio.FromValues(float32(n), -float32(n))
}

func run(start, count int) []audio.Frame {
	out := make([]audio.Frame, count)
	for i := range out {
		out[i] = frameN(start + i)
	}
	return out
}

func TestNewDefaultCapacity(t *testing.T) {
	q := New(0)
	assert.Equal(t, DefaultCapacity, q.Capacity())
	assert.Equal(t, DefaultCapacity, q.FreeSpace())
	assert.Equal(t, 0, q.Len())
}

func TestPushPopRoundTrip(t *testing.T) {
	q := New(4)
	f := audio.FromValues(0.1, 0.2, 0.3)

	require.True(t, q.Push(f))
	got, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, f, got)

	_, ok = q.Pop()
	assert.False(t, ok, "queue should be empty")
}

func TestFIFOOrderAcrossWrap(t *testing.T) {
	q := New(5)
	next := 0
	want := 0
	for round := 0; round < 10; round++ {
		n := q.PushRun(run(next, 3))
		next += n
		for i := 0; i < 2; i++ {
			f, ok := q.Pop()
			require.True(t, ok)
			assert.Equal(t, frameN(want), f)
			want++
		}
	}
}

func TestPushRunNeverExceedsCapacity(t *testing.T) {
	q := New(10)
	assert.Equal(t, 7, q.PushRun(run(0, 7)))
	assert.Equal(t, 3, q.PushRun(run(7, 7)))
	assert.Equal(t, 0, q.FreeSpace())
	assert.False(t, q.Push(frameN(99)))
	assert.Equal(t, 10, q.Len())

	// Oldest data must not be overwritten
	f, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, frameN(0), f)
}

func TestDiscard(t *testing.T) {
	q := New(8)
	q.PushRun(run(0, 6))

	assert.Equal(t, 2, q.Discard(2))
	f, _ := q.Pop()
	assert.Equal(t, frameN(2), f)

	assert.Equal(t, 3, q.Discard(100))
	assert.Equal(t, q.Capacity(), q.FreeSpace())
	assert.Equal(t, 0, q.Discard(1))
	assert.Equal(t, 0, q.Discard(-1))
}

func TestClear(t *testing.T) {
	q := New(8)
	q.PushRun(run(0, 8))
	assert.Equal(t, 8, q.Clear())
	assert.Equal(t, 8, q.FreeSpace())
}

func TestPopInto(t *testing.T) {
	q := New(8)
	q.PushRun(run(0, 5))

	dst := make([]audio.Frame, 3)
	assert.Equal(t, 3, q.PopInto(dst))
	assert.Equal(t, run(0, 3), dst)

	dst = make([]audio.Frame, 10)
	assert.Equal(t, 2, q.PopInto(dst))
	assert.Equal(t, run(3, 2), dst[:2])
}

func TestPopDoesNotAllocate(t *testing.T) {
	q := New(16)
	q.PushRun(run(0, 16))
	allocs := testing.AllocsPerRun(100, func() {
		q.Pop()
	})
	assert.Zero(t, allocs)
}

func TestConcurrentProducerConsumer(t *testing.T) {
	const total = 20000
	q := New(64)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		next := 0
		for next < total {
			if q.FreeSpace() < 8 {
				continue
			}
			n := 8
			if total-next < n {
				n = total - next
			}
			next += q.PushRun(run(next, n))
		}
	}()

	received := make([]audio.Frame, 0, total)
	go func() {
		defer wg.Done()
		for len(received) < total {
			if f, ok := q.Pop(); ok {
				received = append(received, f)
				assert.LessOrEqual(t, q.Len(), q.Capacity())
			}
		}
	}()

	wg.Wait()
	for i, f := range received {
		require.Equal(t, frameN(i), f)
	}
}

func TestDiscardConcurrentWithPop(t *testing.T) {
	q := New(1024)
	q.PushRun(run(0, 1024))

	var wg sync.WaitGroup
	wg.Add(1)
	popped := 0
	go func() {
		defer wg.Done()
		for i := 0; i < 2000; i++ {
			if _, ok := q.Pop(); ok {
				popped++
			}
		}
	}()
	discarded := q.Discard(512)
	wg.Wait()

	assert.Equal(t, 1024, popped+discarded+q.Len())
}
