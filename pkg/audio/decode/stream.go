// ABOUTME: Stream interface and file opener
// ABOUTME: Picks a codec backend by extension and collects media info
package decode

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yako-player/yako-go/pkg/audio"
)

var (
	// ErrUnsupportedFormat is returned for files no backend can decode
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrNotSeekable is returned by streams that cannot reposition
	ErrNotSeekable = errors.New("stream is not seekable")

	// ErrStreamClosed is returned by reads after Close or a failed reopen
	ErrStreamClosed = errors.New("stream closed")
)

// Packet is one decoded unit of audio
type Packet struct {
	// Timestamp is the presentation time of the first frame
	Timestamp time.Duration
	// Samples are interleaved by channel and reused by the next ReadPacket
	Samples []float32
}

// Frames returns the number of frames in the packet
func (p Packet) Frames(channels int) int {
	if channels <= 0 {
		return 0
	}
	return len(p.Samples) / channels
}

// Stream is a decoded, seekable audio source
type Stream interface {
	// Format returns the native format of decoded samples
	Format() audio.Format
	// ReadPacket decodes the next packet. It returns io.EOF when exhausted.
	ReadPacket() (Packet, error)
	// Seek repositions the stream and drops any decoder state
	Seek(pos time.Duration) error
	// Duration returns the total length, or 0 when unknown
	Duration() time.Duration
	// Close releases the stream
	Close() error
}

// bitrateReporter is implemented by streams that know their codec bitrate
type bitrateReporter interface {
	Bitrate() int
}

// MediaInfo describes an opened file
type MediaInfo struct {
	Format    audio.Format
	Duration  time.Duration
	Bitrate   int // bits per second
	Title     string
	Artist    string
	Album     string
	Cover     []byte
	CoverMIME string
}

// Opener opens a URI as a stream
type Opener func(uri string) (Stream, MediaInfo, error)

// Open opens a media file or a "tone:" URI
func Open(uri string) (Stream, MediaInfo, error) {
	if strings.HasPrefix(uri, ToneScheme) {
		s, err := NewToneFromURI(uri)
		if err != nil {
			return nil, MediaInfo{}, err
		}
		return s, MediaInfo{Format: s.Format(), Duration: s.Duration(), Title: "Test Tone"}, nil
	}

	fi, err := os.Stat(uri)
	if err != nil {
		return nil, MediaInfo{}, fmt.Errorf("audio file not found: %w", err)
	}

	var s Stream
	ext := strings.ToLower(filepath.Ext(uri))
	switch ext {
	case ".mp3":
		s, err = OpenMP3(uri)
	case ".flac":
		s, err = OpenFLAC(uri)
	case ".ogg", ".oga":
		s, err = OpenVorbis(uri)
	case ".opus":
		s, err = OpenOpus(uri)
	case ".wav", ".wave":
		s, err = OpenWAV(uri)
	case ".aif", ".aiff":
		s, err = OpenAIFF(uri)
	default:
		return nil, MediaInfo{}, fmt.Errorf("%w: %s (supported: .mp3, .flac, .ogg, .opus, .wav, .aiff)", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, MediaInfo{}, err
	}

	info := MediaInfo{
		Format:   s.Format(),
		Duration: s.Duration(),
		Bitrate:  estimateBitrate(s, fi.Size()),
	}
	tags := ReadTags(uri)
	info.Title, info.Artist, info.Album = tags.Title, tags.Artist, tags.Album
	info.Cover, info.CoverMIME = tags.Cover, tags.CoverMIME
	if info.Title == "" {
		base := filepath.Base(uri)
		info.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return s, info, nil
}

// estimateBitrate prefers the codec's own figure and falls back to size over duration
func estimateBitrate(s Stream, size int64) int {
	if br, ok := s.(bitrateReporter); ok && br.Bitrate() > 0 {
		return br.Bitrate()
	}
	d := s.Duration()
	if d <= 0 || size <= 0 {
		return 0
	}
	return int(float64(size*8) / d.Seconds())
}

// clock tracks the position of a stream in frames
type clock struct {
	rate     int
	position int64
}

func (c *clock) timestamp() time.Duration {
	return framesToDuration(c.position, c.rate)
}

func (c *clock) advance(frames int) {
	c.position += int64(frames)
}

func framesToDuration(frames int64, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(rate)
}

func durationToFrames(d time.Duration, rate int) int64 {
	if d < 0 {
		d = 0
	}
	return int64(d) * int64(rate) / int64(time.Second)
}
