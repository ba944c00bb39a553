// ABOUTME: WAV stream backed by go-audio/wav
// ABOUTME: Seeks by rewinding to the data chunk and skipping whole frames
package decode

import (
	"fmt"
	"io"
	"os"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/yako-player/yako-go/pkg/audio"
)

const (
	wavPacketFrames = 4096
	wavFormatPCM    = 1
)

type wavStream struct {
	file       *os.File
	decoder    *wav.Decoder
	clock      clock
	channels   int
	bitDepth   int
	blockAlign int64
	total      int64
	byteRate   int
	buf        *goaudio.IntBuffer
	samples    []float32
}

// OpenWAV opens an integer PCM WAV file
func OpenWAV(path string) (Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: invalid WAV file", ErrUnsupportedFormat)
	}
	if decoder.WavAudioFormat != wavFormatPCM {
		_ = f.Close()
		return nil, fmt.Errorf("%w: WAV encoding %d (only integer PCM)", ErrUnsupportedFormat, decoder.WavAudioFormat)
	}
	if err := decoder.Rewind(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to locate WAV data: %w", err)
	}

	channels := int(decoder.NumChans)
	bitDepth := int(decoder.BitDepth)
	blockAlign := int64(channels * ((bitDepth + 7) / 8))

	return &wavStream{
		file:       f,
		decoder:    decoder,
		clock:      clock{rate: int(decoder.SampleRate)},
		channels:   channels,
		bitDepth:   bitDepth,
		blockAlign: blockAlign,
		total:      int64(decoder.PCMSize) / blockAlign,
		byteRate:   int(decoder.AvgBytesPerSec),
		buf: &goaudio.IntBuffer{
			Data:   make([]int, wavPacketFrames*channels),
			Format: decoder.Format(),
		},
		samples: make([]float32, wavPacketFrames*channels),
	}, nil
}

func (s *wavStream) Format() audio.Format {
	return audio.Format{Codec: "pcm", SampleRate: s.clock.rate, Channels: s.channels, BitDepth: s.bitDepth}
}

func (s *wavStream) ReadPacket() (Packet, error) {
	n, err := s.decoder.PCMBuffer(s.buf)
	if err != nil {
		return Packet{}, fmt.Errorf("wav decode error: %w", err)
	}
	frames := n / s.channels
	if frames == 0 {
		return Packet{}, io.EOF
	}

	out := s.samples[:frames*s.channels]
	for i := range out {
		v := s.buf.Data[i]
		if s.bitDepth == 8 {
			// 8-bit WAV is unsigned
			v -= 128
		}
		out[i] = audio.IntToFloat32(int32(v), s.bitDepth)
	}

	pkt := Packet{Timestamp: s.clock.timestamp(), Samples: out}
	s.clock.advance(frames)
	return pkt, nil
}

func (s *wavStream) Seek(pos time.Duration) error {
	target := durationToFrames(pos, s.clock.rate)
	if target > s.total {
		target = s.total
	}
	if err := s.decoder.Rewind(); err != nil {
		return fmt.Errorf("wav seek failed: %w", err)
	}

	offset := target * s.blockAlign
	if offset > 0 {
		if _, err := s.file.Seek(offset, io.SeekCurrent); err != nil {
			return fmt.Errorf("wav seek failed: %w", err)
		}
		// The data chunk reader is a limit reader over the file; shrink it to match
		s.decoder.PCMChunk.R = io.LimitReader(s.file, int64(s.decoder.PCMChunk.Size)-offset)
	}
	s.clock.position = target
	return nil
}

func (s *wavStream) Duration() time.Duration {
	return framesToDuration(s.total, s.clock.rate)
}

func (s *wavStream) Bitrate() int {
	return s.byteRate * 8
}

func (s *wavStream) Close() error {
	return s.file.Close()
}
