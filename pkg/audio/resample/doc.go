// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts decoded float32 audio to the device rate and channel count
// Package resample provides sample rate and channel count conversion.
//
// Uses linear interpolation over interleaved float32 samples. State is kept
// across calls so consecutive chunks join without clicks; Reset drops that
// state after a seek.
//
// Example:
//
//	r, err := resample.New(44100, 48000, 2, 2)
//	out := r.Process(decoded)
package resample
