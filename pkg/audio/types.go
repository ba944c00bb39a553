// ABOUTME: Audio type definitions
// ABOUTME: Defines source formats and integer sample normalization
package audio

import "fmt"

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes the native format of a decoded source
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int // 0 when the codec has no fixed bit depth (mp3, vorbis, opus)
}

func (f Format) String() string {
	if f.BitDepth > 0 {
		return fmt.Sprintf("%s %dHz %dch %dbit", f.Codec, f.SampleRate, f.Channels, f.BitDepth)
	}
	return fmt.Sprintf("%s %dHz %dch", f.Codec, f.SampleRate, f.Channels)
}

// IntToFloat32 normalizes a signed integer sample of the given bit depth to [-1, 1)
func IntToFloat32(sample int32, bitDepth int) float32 {
	switch bitDepth {
	case 8:
		return float32(sample) / 128
	case 16:
		return float32(sample) / 32768
	case 24:
		return float32(sample) / (Max24Bit + 1)
	case 32:
		return float32(float64(sample) / 2147483648)
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return 0
	}
	return float32(float64(sample) / float64(int64(1)<<(bitDepth-1)))
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}
