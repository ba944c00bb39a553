// ABOUTME: MP3 stream backed by go-mp3
// ABOUTME: Decodes to 16-bit stereo and converts to float32 packets
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hajimehoshi/go-mp3"
	"github.com/yako-player/yako-go/pkg/audio"
)

const (
	// go-mp3 always emits interleaved 16-bit stereo
	mp3Channels      = 2
	mp3BytesPerFrame = mp3Channels * 2
	mp3PacketFrames  = 1152
)

type mp3Stream struct {
	file    *os.File
	decoder *mp3.Decoder
	clock   clock
	raw     []byte
	samples []float32
}

// OpenMP3 opens an MP3 file
func OpenMP3(path string) (Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	return &mp3Stream{
		file:    f,
		decoder: decoder,
		clock:   clock{rate: decoder.SampleRate()},
		raw:     make([]byte, mp3PacketFrames*mp3BytesPerFrame),
		samples: make([]float32, mp3PacketFrames*mp3Channels),
	}, nil
}

func (s *mp3Stream) Format() audio.Format {
	return audio.Format{Codec: "mp3", SampleRate: s.clock.rate, Channels: mp3Channels, BitDepth: 16}
}

func (s *mp3Stream) ReadPacket() (Packet, error) {
	n, err := io.ReadFull(s.decoder, s.raw)
	if n == 0 {
		if err == nil || errors.Is(err, io.ErrUnexpectedEOF) {
			err = io.EOF
		}
		return Packet{}, err
	}
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Packet{}, fmt.Errorf("mp3 decode error: %w", err)
	}

	frames := n / mp3BytesPerFrame
	out := s.samples[:frames*mp3Channels]
	for i := range out {
		out[i] = audio.IntToFloat32(int32(int16(binary.LittleEndian.Uint16(s.raw[i*2:]))), 16)
	}

	pkt := Packet{Timestamp: s.clock.timestamp(), Samples: out}
	s.clock.advance(frames)
	return pkt, nil
}

func (s *mp3Stream) Seek(pos time.Duration) error {
	frame := durationToFrames(pos, s.clock.rate)
	if _, err := s.decoder.Seek(frame*mp3BytesPerFrame, io.SeekStart); err != nil {
		return fmt.Errorf("mp3 seek failed: %w", err)
	}
	s.clock.position = frame
	return nil
}

func (s *mp3Stream) Duration() time.Duration {
	length := s.decoder.Length()
	if length <= 0 {
		return 0
	}
	return framesToDuration(length/mp3BytesPerFrame, s.clock.rate)
}

func (s *mp3Stream) Close() error {
	return s.file.Close()
}
