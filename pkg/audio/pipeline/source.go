// ABOUTME: Source interface and source errors
// ABOUTME: The decode pipeline is the production Source
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/yako-player/yako-go/pkg/audio/decode"
)

var (
	// ErrClosed is returned by calls on a source whose worker has exited
	ErrClosed = errors.New("source closed")

	// ErrNoStream is returned when an opened file has no usable audio stream
	ErrNoStream = errors.New("no playable audio stream")
)

// SourceError describes a failed source operation
type SourceError struct {
	Op  string
	URI string
	Err error
}

func (e *SourceError) Error() string {
	if e.URI == "" {
		return fmt.Sprintf("source %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("source %s %s: %v", e.Op, e.URI, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Source produces frames for an output device
type Source interface {
	// Play lets the source stream frames
	Play() error
	// Pause stops producing frames
	Pause() error
	// Seek repositions playback and drops everything buffered before it
	Seek(pos time.Duration) error
	// ClearBuffer drops buffered frames without repositioning
	ClearBuffer()
	// Resize recomputes buffer sizing for a device sample rate
	Resize(sampleRate int)

	CurrentTime() time.Duration
	Duration() time.Duration
	Bitrate() int
	MediaInfo() decode.MediaInfo
	IsPlaying() bool
	EndOfStream() bool
	Status() *Status

	// Err returns the last non-fatal decode error
	Err() error
	// Close stops the source and waits for it to exit
	Close() error
}
