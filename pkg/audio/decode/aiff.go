// ABOUTME: AIFF stream backed by go-audio/aiff
// ABOUTME: Seeks by reopening the container and decoding up to the target frame
package decode

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
	"github.com/yako-player/yako-go/pkg/audio"
)

const aiffPacketFrames = 4096

type aiffStream struct {
	path     string
	file     *os.File
	decoder  *aiff.Decoder
	clock    clock
	channels int
	bitDepth int
	total    int64
	buf      *goaudio.IntBuffer
	samples  []float32
}

// OpenAIFF opens an AIFF file
func OpenAIFF(path string) (Stream, error) {
	s := &aiffStream{path: path}
	if err := s.open(); err != nil {
		return nil, err
	}
	s.buf = &goaudio.IntBuffer{
		Data:   make([]int, aiffPacketFrames*s.channels),
		Format: s.decoder.Format(),
	}
	s.samples = make([]float32, aiffPacketFrames*s.channels)
	return s, nil
}

func (s *aiffStream) open() error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open AIFF file: %w", err)
	}

	decoder := aiff.NewDecoder(f)
	if !decoder.IsValidFile() {
		_ = f.Close()
		return fmt.Errorf("%w: invalid AIFF file", ErrUnsupportedFormat)
	}
	decoder.ReadInfo()

	s.file = f
	s.decoder = decoder
	s.clock = clock{rate: decoder.SampleRate}
	s.channels = int(decoder.NumChans)
	s.bitDepth = int(decoder.BitDepth)
	s.total = int64(decoder.NumSampleFrames)
	return nil
}

func (s *aiffStream) Format() audio.Format {
	return audio.Format{Codec: "aiff", SampleRate: s.clock.rate, Channels: s.channels, BitDepth: s.bitDepth}
}

func (s *aiffStream) ReadPacket() (Packet, error) {
	s.buf.Data = s.buf.Data[:cap(s.buf.Data)]
	n, err := s.decoder.PCMBuffer(s.buf)
	frames := n / s.channels
	if frames == 0 {
		if err != nil && err != io.EOF {
			return Packet{}, fmt.Errorf("aiff decode error: %w", err)
		}
		return Packet{}, io.EOF
	}

	out := s.samples[:frames*s.channels]
	for i := range out {
		out[i] = audio.IntToFloat32(int32(s.buf.Data[i]), s.bitDepth)
	}

	pkt := Packet{Timestamp: s.clock.timestamp(), Samples: out}
	s.clock.advance(frames)
	return pkt, nil
}

func (s *aiffStream) Seek(pos time.Duration) error {
	target := durationToFrames(pos, s.clock.rate)
	if target > s.total {
		target = s.total
	}

	_ = s.file.Close()
	if err := s.open(); err != nil {
		return fmt.Errorf("aiff seek failed: %w", err)
	}

	// Decode and drop frames up to the target
	for skipped := int64(0); skipped < target; {
		want := target - skipped
		if want > aiffPacketFrames {
			want = aiffPacketFrames
		}
		s.buf.Data = s.buf.Data[:int(want)*s.channels]
		n, err := s.decoder.PCMBuffer(s.buf)
		if n == 0 {
			if err != nil && err != io.EOF {
				return fmt.Errorf("aiff seek failed: %w", err)
			}
			break
		}
		skipped += int64(n / s.channels)
	}
	s.clock.position = target
	return nil
}

func (s *aiffStream) Duration() time.Duration {
	return framesToDuration(s.total, s.clock.rate)
}

func (s *aiffStream) Close() error {
	return s.file.Close()
}
