// ABOUTME: Tests for the generated tone stream
// ABOUTME: Covers URI parsing, length, timestamps and seeking
package decode

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToneFromURI(t *testing.T) {
	tests := []struct {
		uri      string
		wantErr  bool
		duration time.Duration
	}{
		{"tone:", false, DefaultToneDuration},
		{"tone:440", false, DefaultToneDuration},
		{"tone:1000/250ms", false, 250 * time.Millisecond},
		{"tone:abc", true, 0},
		{"tone:-5", true, 0},
		{"tone:440/never", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			s, err := NewToneFromURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.duration, s.Duration())
		})
	}
}

func TestToneTimestampsAreMonotonic(t *testing.T) {
	s := NewTone(440, 48000, 2, 100*time.Millisecond)

	var last time.Duration = -1
	frames := 0
	for {
		pkt, err := s.ReadPacket()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		assert.Greater(t, pkt.Timestamp, last)
		last = pkt.Timestamp
		frames += pkt.Frames(2)

		for _, v := range pkt.Samples {
			assert.LessOrEqual(t, v, float32(0.5))
			assert.GreaterOrEqual(t, v, float32(-0.5))
		}
	}
	assert.Equal(t, 4800, frames)
}

func TestToneSeek(t *testing.T) {
	s := NewTone(440, 48000, 1, time.Second)
	require.NoError(t, s.Seek(750*time.Millisecond))

	pkt, err := s.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, pkt.Timestamp)

	require.NoError(t, s.Seek(5*time.Second))
	_, err = s.ReadPacket()
	assert.Equal(t, io.EOF, err)
}

func TestToneClosed(t *testing.T) {
	s := NewTone(440, 48000, 1, time.Second)
	require.NoError(t, s.Close())
	_, err := s.ReadPacket()
	assert.Error(t, err)
}
