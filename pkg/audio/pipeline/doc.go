// ABOUTME: Decode pipeline package documentation
// ABOUTME: Streams a decoded source into the frame queue with backpressure
// Package pipeline runs the decode worker that feeds an output device.
//
// A Pipeline owns one decoded stream and one resampler. Its worker reads
// packets, converts them to the device format and writes them to the frame
// queue in chunks, waiting while the queue is above its target occupancy or
// playback is paused. Callers talk to the worker only through Status, the
// seek channel and Close.
//
// Example:
//
//	p, err := pipeline.Open(pipeline.Config{
//		URI:    "song.flac",
//		Format: dev.Format(),
//		Queue:  dev.Queue(),
//	})
//	if err != nil {
//		return err
//	}
//	defer p.Close()
//	p.Play()
package pipeline
