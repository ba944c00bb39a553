// ABOUTME: Test tone generator stream
// ABOUTME: Generates a sine wave of fixed length, addressed as tone:<hz>[/<duration>]
package decode

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/yako-player/yako-go/pkg/audio"
)

const (
	// ToneScheme prefixes generated tone URIs
	ToneScheme = "tone:"

	DefaultToneRate     = 48000
	DefaultToneChannels = 2
	DefaultToneDuration = 10 * time.Second

	tonePacketFrames = 1024
)

// ToneStream generates a sine wave at half amplitude
type ToneStream struct {
	frequency float64
	clock     clock
	channels  int
	total     int64
	samples   []float32
	closed    bool
}

// NewTone creates a finite tone of the given frequency
func NewTone(frequency float64, rate, channels int, length time.Duration) *ToneStream {
	return &ToneStream{
		frequency: frequency,
		clock:     clock{rate: rate},
		channels:  channels,
		total:     durationToFrames(length, rate),
		samples:   make([]float32, tonePacketFrames*channels),
	}
}

// NewToneFromURI parses tone:<hz>[/<duration>], e.g. tone:440/5s
func NewToneFromURI(uri string) (*ToneStream, error) {
	arg := strings.TrimPrefix(uri, ToneScheme)
	freqPart, durPart, hasDur := strings.Cut(arg, "/")

	frequency := 440.0
	if freqPart != "" {
		f, err := strconv.ParseFloat(freqPart, 64)
		if err != nil || f <= 0 {
			return nil, fmt.Errorf("invalid tone frequency %q", freqPart)
		}
		frequency = f
	}

	length := DefaultToneDuration
	if hasDur {
		d, err := time.ParseDuration(durPart)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid tone duration %q", durPart)
		}
		length = d
	}

	return NewTone(frequency, DefaultToneRate, DefaultToneChannels, length), nil
}

func (s *ToneStream) Format() audio.Format {
	return audio.Format{Codec: "tone", SampleRate: s.clock.rate, Channels: s.channels}
}

func (s *ToneStream) ReadPacket() (Packet, error) {
	if s.closed {
		return Packet{}, io.ErrClosedPipe
	}
	remaining := s.total - s.clock.position
	if remaining <= 0 {
		return Packet{}, io.EOF
	}
	frames := int64(tonePacketFrames)
	if remaining < frames {
		frames = remaining
	}

	out := s.samples[:int(frames)*s.channels]
	for i := int64(0); i < frames; i++ {
		t := float64(s.clock.position+i) / float64(s.clock.rate)
		v := float32(0.5 * math.Sin(2*math.Pi*s.frequency*t))
		for ch := 0; ch < s.channels; ch++ {
			out[int(i)*s.channels+ch] = v
		}
	}

	pkt := Packet{Timestamp: s.clock.timestamp(), Samples: out}
	s.clock.advance(int(frames))
	return pkt, nil
}

func (s *ToneStream) Seek(pos time.Duration) error {
	target := durationToFrames(pos, s.clock.rate)
	if target > s.total {
		target = s.total
	}
	s.clock.position = target
	return nil
}

func (s *ToneStream) Duration() time.Duration {
	return framesToDuration(s.total, s.clock.rate)
}

func (s *ToneStream) Close() error {
	s.closed = true
	return nil
}
