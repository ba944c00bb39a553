// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Frame, sample formats, device formats and gain math
// Package audio provides the fundamental types shared by the playback engine.
//
// This package defines:
//   - Frame: one multichannel sample (up to eight channels) moving through the queue
//   - SampleFormat: a device's native sample representation
//   - DeviceFormat: the negotiated rate, channel count and representation of an open device
//   - Format: the native format of a decoded source
//
// It also provides the gain helpers used by the output device:
//   - DbToAmplitude converts a decibel setting to a linear multiplier
//   - LevelToDb maps a [0,1] volume level onto a perceptual decibel curve
//
// Example:
//
//	f := audio.FromValues(0.25, -0.25)
//	louder := f.Apply(func(v float32) float32 { return v * 2 })
//
//	out := make([]int16, louder.Channels())
//	audio.WriteConverted(louder, out, audio.FloatToInt16)
package audio
