// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the Device render callback and malgo, oto, PortAudio and null backends
// Package output owns the hardware output stream.
//
// A Device wraps one Backend. The backend calls the device's render
// callback from the audio driver's thread; the callback pops frames from a
// queue.FrameQueue, applies gain and mute, and writes the device's native
// sample format. It never blocks and never allocates. Underruns become
// silence.
//
// Backends:
//   - malgo: miniaudio via cgo, the default
//   - oto: ebitengine/oto pull player
//   - portaudio: requires building with -tags portaudio
//   - null: a software clock with no hardware, for tests and headless runs
//
// Example:
//
//	q := queue.New(queue.DefaultCapacity)
//	dev, err := output.New(output.Config{Backend: output.NewMalgo(""), Queue: q})
//	err = dev.Open()
//	err = dev.Resume()
package output
