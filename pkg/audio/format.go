// ABOUTME: Device sample formats and float-to-native converters
// ABOUTME: Negotiated once per device open and fixed for its lifetime
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// SampleFormat is a device's native sample representation
type SampleFormat int

const (
	SampleFormatUnknown SampleFormat = iota
	SampleFormatU8
	SampleFormatS16
	SampleFormatS32
	SampleFormatF32
)

func (s SampleFormat) String() string {
	switch s {
	case SampleFormatU8:
		return "u8"
	case SampleFormatS16:
		return "s16"
	case SampleFormatS32:
		return "s32"
	case SampleFormatF32:
		return "f32"
	}
	return "unknown"
}

// BytesPerSample returns the encoded width of one sample
func (s SampleFormat) BytesPerSample() int {
	switch s {
	case SampleFormatU8:
		return 1
	case SampleFormatS16:
		return 2
	case SampleFormatS32, SampleFormatF32:
		return 4
	}
	return 0
}

// Bits converts a sample in [-1, 1] to its native representation,
// returned as raw little-endian bits in the low BytesPerSample bytes.
func (s SampleFormat) Bits(v float32) uint32 {
	switch s {
	case SampleFormatU8:
		return uint32(FloatToUint8(v))
	case SampleFormatS16:
		return uint32(uint16(FloatToInt16(v)))
	case SampleFormatS32:
		return uint32(FloatToInt32(v))
	case SampleFormatF32:
		return math.Float32bits(v)
	}
	return 0
}

// PutBits encodes raw sample bits produced by Bits into dst
func (s SampleFormat) PutBits(dst []byte, bits uint32) {
	switch s {
	case SampleFormatU8:
		dst[0] = byte(bits)
	case SampleFormatS16:
		binary.LittleEndian.PutUint16(dst, uint16(bits))
	case SampleFormatS32, SampleFormatF32:
		binary.LittleEndian.PutUint32(dst, bits)
	}
}

// Silence returns the raw bits of a silent sample
func (s SampleFormat) Silence() uint32 {
	return s.Bits(0)
}

// DeviceFormat is the negotiated output format of an open device
type DeviceFormat struct {
	SampleRate int
	Channels   int
	Format     SampleFormat
}

// FrameBytes returns the encoded size of one frame
func (d DeviceFormat) FrameBytes() int {
	return d.Channels * d.Format.BytesPerSample()
}

// Validate reports whether the format can drive the resampler and callback
func (d DeviceFormat) Validate() error {
	if d.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", d.SampleRate)
	}
	if d.Channels < 1 || d.Channels > MaxChannels {
		return fmt.Errorf("invalid channel count %d", d.Channels)
	}
	if d.Format.BytesPerSample() == 0 {
		return fmt.Errorf("unsupported sample format %s", d.Format)
	}
	return nil
}

func (d DeviceFormat) String() string {
	return fmt.Sprintf("%dHz %dch %s", d.SampleRate, d.Channels, d.Format)
}

// Clamp limits v to [-1, 1]
func Clamp(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// FloatToInt16 converts a clamped sample to signed 16-bit
func FloatToInt16(v float32) int16 {
	return int16(Clamp(v) * math.MaxInt16)
}

// FloatToInt32 converts a clamped sample to signed 32-bit
func FloatToInt32(v float32) int32 {
	return int32(float64(Clamp(v)) * math.MaxInt32)
}

// FloatToUint8 converts a clamped sample to unsigned 8-bit centered on 128
func FloatToUint8(v float32) uint8 {
	return uint8(int(Clamp(v)*127) + 128)
}
