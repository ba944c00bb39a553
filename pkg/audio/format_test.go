// ABOUTME: Tests for device sample formats
// ABOUTME: Verifies native encoding of clamped float samples
package audio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, float32(1), Clamp(3))
	assert.Equal(t, float32(-1), Clamp(-1.5))
	assert.Equal(t, float32(0.25), Clamp(0.25))
}

func TestSampleFormatEncoding(t *testing.T) {
	tests := []struct {
		name   string
		format SampleFormat
		input  float32
		check  func(t *testing.T, b []byte)
	}{
		{"f32", SampleFormatF32, 0.5, func(t *testing.T, b []byte) {
			assert.Equal(t, float32(0.5), math.Float32frombits(binary.LittleEndian.Uint32(b)))
		}},
		{"f32 negative", SampleFormatF32, -1, func(t *testing.T, b []byte) {
			assert.Equal(t, float32(-1), math.Float32frombits(binary.LittleEndian.Uint32(b)))
		}},
		{"s16 full scale", SampleFormatS16, 1, func(t *testing.T, b []byte) {
			assert.Equal(t, int16(32767), int16(binary.LittleEndian.Uint16(b)))
		}},
		{"s16 negative", SampleFormatS16, -0.5, func(t *testing.T, b []byte) {
			assert.Equal(t, int16(-16383), int16(binary.LittleEndian.Uint16(b)))
		}},
		{"s32 over range clamps", SampleFormatS32, 2, func(t *testing.T, b []byte) {
			assert.Equal(t, int32(math.MaxInt32), int32(binary.LittleEndian.Uint32(b)))
		}},
		{"u8 silence", SampleFormatU8, 0, func(t *testing.T, b []byte) {
			assert.Equal(t, byte(128), b[0])
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := make([]byte, tt.format.BytesPerSample())
			tt.format.PutBits(b, tt.format.Bits(tt.input))
			tt.check(t, b)
		})
	}
}

func TestDeviceFormatValidate(t *testing.T) {
	good := DeviceFormat{SampleRate: 48000, Channels: 2, Format: SampleFormatF32}
	assert.NoError(t, good.Validate())
	assert.Equal(t, 8, good.FrameBytes())
	assert.Equal(t, "48000Hz 2ch f32", good.String())

	assert.Error(t, DeviceFormat{SampleRate: 0, Channels: 2, Format: SampleFormatF32}.Validate())
	assert.Error(t, DeviceFormat{SampleRate: 48000, Channels: 9, Format: SampleFormatF32}.Validate())
	assert.Error(t, DeviceFormat{SampleRate: 48000, Channels: 2}.Validate())
}
