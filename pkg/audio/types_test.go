// ABOUTME: Tests for audio types
// ABOUTME: Tests integer sample normalization and 24-bit unpacking
package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntToFloat32(t *testing.T) {
	tests := []struct {
		name     string
		sample   int32
		bitDepth int
		expected float32
	}{
		{"16bit zero", 0, 16, 0},
		{"16bit min", -32768, 16, -1},
		{"16bit half", 16384, 16, 0.5},
		{"24bit min", Min24Bit, 24, -1},
		{"24bit half", 1 << 22, 24, 0.5},
		{"8bit min", -128, 8, -1},
		{"32bit min", -2147483648, 32, -1},
		{"20bit half", 1 << 18, 20, 0.5},
		{"invalid depth", 100, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, IntToFloat32(tt.sample, tt.bitDepth), 1e-6)
		})
	}
}

func TestSampleFrom24Bit(t *testing.T) {
	tests := []struct {
		name     string
		input    [3]byte
		expected int32
	}{
		{"zero", [3]byte{0, 0, 0}, 0},
		{"positive", [3]byte{0x56, 0x34, 0x12}, 0x123456},
		{"max", [3]byte{0xFF, 0xFF, 0x7F}, Max24Bit},
		{"min", [3]byte{0x00, 0x00, 0x80}, Min24Bit},
		{"minus one", [3]byte{0xFF, 0xFF, 0xFF}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SampleFrom24Bit(tt.input))
		})
	}
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "flac 44100Hz 2ch 16bit", Format{Codec: "flac", SampleRate: 44100, Channels: 2, BitDepth: 16}.String())
	assert.Equal(t, "mp3 48000Hz 2ch", Format{Codec: "mp3", SampleRate: 48000, Channels: 2}.String())
}
