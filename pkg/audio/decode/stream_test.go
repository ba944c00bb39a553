// ABOUTME: Tests for the stream opener
// ABOUTME: Checks extension dispatch, errors and bitrate estimation
package decode

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	_, _, err := Open(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestOpenMissingFile(t *testing.T) {
	_, _, err := Open(filepath.Join(t.TempDir(), "missing.flac"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audio file not found")
}

func TestOpenTone(t *testing.T) {
	s, info, err := Open("tone:220/2s")
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "Test Tone", info.Title)
	assert.Equal(t, 2*time.Second, info.Duration)
	assert.Equal(t, DefaultToneRate, info.Format.SampleRate)
}

func TestOpenWAVCollectsInfo(t *testing.T) {
	path := writeTestWAV(t, 8000, 16, 2, 8000)

	s, info, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, time.Second, info.Duration)
	assert.Equal(t, 8000*2*2*8, info.Bitrate)
	assert.Equal(t, "tone", info.Title, "title falls back to the file name")
	assert.Equal(t, "pcm", info.Format.Codec)
}

type fakeDurationStream struct {
	ToneStream
	d time.Duration
}

func (f *fakeDurationStream) Duration() time.Duration { return f.d }

func TestEstimateBitrate(t *testing.T) {
	s := &fakeDurationStream{d: 2 * time.Second}
	assert.Equal(t, 4000, estimateBitrate(s, 1000))

	s.d = 0
	assert.Equal(t, 0, estimateBitrate(s, 1000))
}

func TestPacketFrames(t *testing.T) {
	p := Packet{Samples: make([]float32, 12)}
	assert.Equal(t, 6, p.Frames(2))
	assert.Equal(t, 0, p.Frames(0))
}
