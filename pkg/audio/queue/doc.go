// ABOUTME: Bounded single-producer/single-consumer frame queue
// ABOUTME: Carries decoded frames from the decode worker to the output callback
// Package queue provides FrameQueue, a fixed-capacity FIFO of audio frames.
//
// The queue has exactly one producer (the decode worker) and one consumer
// (the real-time output callback). Pop never blocks on the producer and
// never allocates. PushRun never blocks either: the producer checks
// FreeSpace first and waits on its own side.
//
// Example:
//
//	q := queue.New(queue.DefaultCapacity)
//	if q.FreeSpace() >= len(chunk) {
//	    q.PushRun(chunk)
//	}
//	f, ok := q.Pop()
package queue
