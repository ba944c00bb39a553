// ABOUTME: Lock-free producer side ring buffer of audio frames
// ABOUTME: Consumer side moves are serialized so Discard can race with Pop
package queue

import (
	"sync"

	"github.com/yako-player/yako-go/pkg/audio"
	"go.uber.org/atomic"
)

// DefaultCapacity is the number of frames held by a default queue
const DefaultCapacity = 64000

// FrameQueue is a bounded SPSC FIFO of frames.
//
// The write index is only advanced by the producer after the slots are
// filled, so a consumer never observes a half-written frame. The read
// index is advanced by Pop and Discard under consumerMu, which is only
// held for O(1) work.
type FrameQueue struct {
	slots    []audio.Frame
	capacity uint64

	read  atomic.Uint64
	write atomic.Uint64

	consumerMu sync.Mutex
}

// New creates a queue holding at most capacity frames
func New(capacity int) *FrameQueue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &FrameQueue{
		slots:    make([]audio.Frame, capacity),
		capacity: uint64(capacity),
	}
}

// Capacity returns the fixed number of slots
func (q *FrameQueue) Capacity() int {
	return int(q.capacity)
}

// Len returns the current occupancy
func (q *FrameQueue) Len() int {
	// Read index first: the write index observed afterwards is never behind it.
	r := q.read.Load()
	w := q.write.Load()
	n := w - r
	if n > q.capacity {
		n = q.capacity
	}
	return int(n)
}

// FreeSpace returns capacity minus occupancy
func (q *FrameQueue) FreeSpace() int {
	return int(q.capacity) - q.Len()
}

// Push appends one frame. It reports false when the queue is full.
func (q *FrameQueue) Push(f audio.Frame) bool {
	w := q.write.Load()
	if w-q.read.Load() >= q.capacity {
		return false
	}
	q.slots[w%q.capacity] = f
	q.write.Store(w + 1)
	return true
}

// PushRun appends as many frames from run as fit and returns the count written.
// Callers confirm FreeSpace beforehand; frames that do not fit are not written.
func (q *FrameQueue) PushRun(run []audio.Frame) int {
	w := q.write.Load()
	free := q.capacity - (w - q.read.Load())
	n := uint64(len(run))
	if n > free {
		n = free
	}
	for i := uint64(0); i < n; i++ {
		q.slots[(w+i)%q.capacity] = run[i]
	}
	q.write.Store(w + n)
	return int(n)
}

// Pop removes the oldest frame. It never blocks on the producer and never allocates.
func (q *FrameQueue) Pop() (audio.Frame, bool) {
	q.consumerMu.Lock()
	r := q.read.Load()
	if r == q.write.Load() {
		q.consumerMu.Unlock()
		return audio.Frame{}, false
	}
	f := q.slots[r%q.capacity]
	q.read.Store(r + 1)
	q.consumerMu.Unlock()
	return f, true
}

// PopInto fills dst with the oldest frames and returns the count popped
func (q *FrameQueue) PopInto(dst []audio.Frame) int {
	q.consumerMu.Lock()
	r := q.read.Load()
	avail := q.write.Load() - r
	n := uint64(len(dst))
	if n > avail {
		n = avail
	}
	for i := uint64(0); i < n; i++ {
		dst[i] = q.slots[(r+i)%q.capacity]
	}
	q.read.Store(r + n)
	q.consumerMu.Unlock()
	return int(n)
}

// Discard drops up to n of the oldest frames and returns the count dropped.
// It is safe to call while the consumer pops.
func (q *FrameQueue) Discard(n int) int {
	if n <= 0 {
		return 0
	}
	q.consumerMu.Lock()
	r := q.read.Load()
	avail := q.write.Load() - r
	k := uint64(n)
	if k > avail {
		k = avail
	}
	q.read.Store(r + k)
	q.consumerMu.Unlock()
	return int(k)
}

// Clear drops every queued frame
func (q *FrameQueue) Clear() int {
	return q.Discard(int(q.capacity))
}
