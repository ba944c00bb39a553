// ABOUTME: Fixed-capacity multichannel sample frame
// ABOUTME: The unit that moves through the frame queue to the output device
package audio

import "fmt"

// MaxChannels is the largest channel count a Frame can carry
const MaxChannels = 8

// Frame is one multichannel sample. Only the first Channels() values are meaningful.
type Frame struct {
	channels uint8
	values   [MaxChannels]float32
}

// FromValues builds a frame with one channel per value.
// It panics when given more than MaxChannels values.
func FromValues(values ...float32) Frame {
	if len(values) > MaxChannels {
		panic(fmt.Sprintf("audio: frame supports at most %d channels, got %d", MaxChannels, len(values)))
	}
	var f Frame
	f.channels = uint8(len(values))
	copy(f.values[:], values)
	return f
}

// Channels returns the number of meaningful values in the frame
func (f Frame) Channels() int {
	return int(f.channels)
}

// Value returns the sample for channel ch. It panics if ch is out of range.
func (f Frame) Value(ch int) float32 {
	if ch < 0 || ch >= int(f.channels) {
		panic(fmt.Sprintf("audio: channel %d out of range for %d-channel frame", ch, f.channels))
	}
	return f.values[ch]
}

// Values returns a copy of the meaningful samples
func (f Frame) Values() []float32 {
	out := make([]float32, f.channels)
	copy(out, f.values[:f.channels])
	return out
}

// Apply returns a new frame with fn applied to every meaningful sample
func (f Frame) Apply(fn func(float32) float32) Frame {
	for i := 0; i < int(f.channels); i++ {
		f.values[i] = fn(f.values[i])
	}
	return f
}

// WriteConverted stores convert(value) into dst[i] for every i in dst.
// The caller guarantees len(dst) <= f.Channels().
func WriteConverted[T any](f Frame, dst []T, convert func(float32) T) {
	if len(dst) > int(f.channels) {
		panic(fmt.Sprintf("audio: destination of %d samples exceeds %d-channel frame", len(dst), f.channels))
	}
	for i := range dst {
		dst[i] = convert(f.values[i])
	}
}
