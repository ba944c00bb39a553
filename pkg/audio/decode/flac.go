// ABOUTME: FLAC stream backed by mewkiz/flac
// ABOUTME: Converts integer subframes of any bit depth to float32 packets
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mewkiz/flac"
	"github.com/yako-player/yako-go/pkg/audio"
)

type flacStream struct {
	file     *os.File
	stream   *flac.Stream
	clock    clock
	channels int
	bitDepth int
	total    int64
	samples  []float32
}

// OpenFLAC opens a FLAC file
func OpenFLAC(path string) (Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.NewSeek(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	return &flacStream{
		file:     f,
		stream:   stream,
		clock:    clock{rate: int(info.SampleRate)},
		channels: int(info.NChannels),
		bitDepth: int(info.BitsPerSample),
		total:    int64(info.NSamples),
	}, nil
}

func (s *flacStream) Format() audio.Format {
	return audio.Format{Codec: "flac", SampleRate: s.clock.rate, Channels: s.channels, BitDepth: s.bitDepth}
}

func (s *flacStream) ReadPacket() (Packet, error) {
	frame, err := s.stream.ParseNext()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Packet{}, io.EOF
		}
		return Packet{}, fmt.Errorf("flac decode error: %w", err)
	}
	if len(frame.Subframes) < s.channels {
		return Packet{}, fmt.Errorf("flac frame has %d subframes, want %d", len(frame.Subframes), s.channels)
	}

	blockSize := int(frame.BlockSize)
	need := blockSize * s.channels
	if cap(s.samples) < need {
		s.samples = make([]float32, need)
	}
	out := s.samples[:need]
	for ch := 0; ch < s.channels; ch++ {
		sub := frame.Subframes[ch].Samples
		for i := 0; i < blockSize && i < len(sub); i++ {
			out[i*s.channels+ch] = audio.IntToFloat32(sub[i], s.bitDepth)
		}
	}

	pkt := Packet{Timestamp: s.clock.timestamp(), Samples: out}
	s.clock.advance(blockSize)
	return pkt, nil
}

func (s *flacStream) Seek(pos time.Duration) error {
	target := durationToFrames(pos, s.clock.rate)
	if s.total > 0 && target >= s.total {
		target = s.total - 1
	}
	actual, err := s.stream.Seek(uint64(target))
	if err != nil {
		return fmt.Errorf("flac seek failed: %w", err)
	}
	s.clock.position = int64(actual)
	return nil
}

func (s *flacStream) Duration() time.Duration {
	return framesToDuration(s.total, s.clock.rate)
}

func (s *flacStream) Close() error {
	return s.file.Close()
}
