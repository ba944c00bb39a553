// ABOUTME: Tests for the WAV stream
// ABOUTME: Uses generated fixtures to check decoding, seeking and EOF
package decode

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestWAV writes a ramp where frame i holds i on every channel
func writeTestWAV(t *testing.T, rate, bitDepth, channels, frames int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, rate, bitDepth, channels, 1)
	data := make([]int, frames*channels)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			data[i*channels+ch] = i % 1000
		}
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func readAll(t *testing.T, s Stream) (frames int, first Packet) {
	t.Helper()
	channels := s.Format().Channels
	for i := 0; ; i++ {
		pkt, err := s.ReadPacket()
		if errors.Is(err, io.EOF) {
			return frames, first
		}
		require.NoError(t, err)
		if i == 0 {
			first = Packet{Timestamp: pkt.Timestamp, Samples: append([]float32(nil), pkt.Samples...)}
		}
		frames += pkt.Frames(channels)
	}
}

func TestWAVFormatAndDuration(t *testing.T) {
	s, err := OpenWAV(writeTestWAV(t, 44100, 16, 2, 22050))
	require.NoError(t, err)
	defer s.Close()

	f := s.Format()
	assert.Equal(t, 44100, f.SampleRate)
	assert.Equal(t, 2, f.Channels)
	assert.Equal(t, 16, f.BitDepth)
	assert.Equal(t, 500*time.Millisecond, s.Duration())
}

func TestWAVDecodesAllFrames(t *testing.T) {
	s, err := OpenWAV(writeTestWAV(t, 8000, 16, 2, 10000))
	require.NoError(t, err)
	defer s.Close()

	frames, first := readAll(t, s)
	assert.Equal(t, 10000, frames)
	assert.Equal(t, time.Duration(0), first.Timestamp)
	assert.InDelta(t, 0, first.Samples[0], 1e-9)
	assert.InDelta(t, 1.0/32768, first.Samples[2], 1e-9)
}

func TestWAVSeek(t *testing.T) {
	s, err := OpenWAV(writeTestWAV(t, 8000, 16, 1, 8000))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Seek(500*time.Millisecond))
	pkt, err := s.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, pkt.Timestamp)
	// frame 4000 holds 4000 % 1000 == 0, frame 4001 holds 1
	assert.InDelta(t, 0, pkt.Samples[0], 1e-9)
	assert.InDelta(t, 1.0/32768, pkt.Samples[1], 1e-9)

	frames, _ := readAll(t, s)
	assert.Equal(t, 4000-pkt.Frames(1), frames)

	// Rewinding after exhaustion restarts from the beginning
	require.NoError(t, s.Seek(0))
	frames, first := readAll(t, s)
	assert.Equal(t, 8000, frames)
	assert.Equal(t, time.Duration(0), first.Timestamp)
}

func TestWAVRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a riff file"), 0o644))

	_, err := OpenWAV(path)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
