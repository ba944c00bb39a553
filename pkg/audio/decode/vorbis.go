// ABOUTME: Ogg Vorbis stream backed by jfreymuth/oggvorbis
// ABOUTME: The library already produces clamped float32 samples
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jfreymuth/oggvorbis"
	"github.com/yako-player/yako-go/pkg/audio"
)

const vorbisPacketFrames = 2048

type vorbisStream struct {
	file    *os.File
	reader  *oggvorbis.Reader
	clock   clock
	samples []float32
}

// OpenVorbis opens an Ogg Vorbis file
func OpenVorbis(path string) (Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Vorbis file: %w", err)
	}

	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to decode Vorbis: %w", err)
	}

	return &vorbisStream{
		file:    f,
		reader:  reader,
		clock:   clock{rate: reader.SampleRate()},
		samples: make([]float32, vorbisPacketFrames*reader.Channels()),
	}, nil
}

func (s *vorbisStream) Format() audio.Format {
	return audio.Format{Codec: "vorbis", SampleRate: s.clock.rate, Channels: s.reader.Channels()}
}

func (s *vorbisStream) ReadPacket() (Packet, error) {
	n, err := s.reader.Read(s.samples)
	if n == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			return Packet{}, io.EOF
		}
		return Packet{}, fmt.Errorf("vorbis decode error: %w", err)
	}

	frames := n / s.reader.Channels()
	pkt := Packet{Timestamp: s.clock.timestamp(), Samples: s.samples[:frames*s.reader.Channels()]}
	reorderVorbis(pkt.Samples, s.reader.Channels())
	s.clock.advance(frames)
	return pkt, nil
}

func (s *vorbisStream) Seek(pos time.Duration) error {
	target := durationToFrames(pos, s.clock.rate)
	if err := s.reader.SetPosition(target); err != nil {
		return fmt.Errorf("vorbis seek failed: %w", err)
	}
	s.clock.position = target
	return nil
}

func (s *vorbisStream) Duration() time.Duration {
	return framesToDuration(s.reader.Length(), s.clock.rate)
}

func (s *vorbisStream) Bitrate() int {
	return s.reader.Bitrate().Nominal
}

func (s *vorbisStream) Close() error {
	return s.file.Close()
}
