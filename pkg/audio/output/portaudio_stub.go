//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"errors"

	"github.com/yako-player/yako-go/pkg/audio"
)

// PortAudioAvailable reports whether PortAudio support was compiled in
const PortAudioAvailable = false

var errPortAudioDisabled = errors.New("PortAudio support not enabled (build with -tags portaudio)")

// PortAudio backend (stub)
type PortAudio struct{}

// NewPortAudio creates a PortAudio backend
func NewPortAudio() *PortAudio {
	return &PortAudio{}
}

func (p *PortAudio) Name() string { return "portaudio" }

func (p *PortAudio) Init(audio.DeviceFormat, Renderer, func(error)) (audio.DeviceFormat, error) {
	return audio.DeviceFormat{}, errPortAudioDisabled
}

func (p *PortAudio) Start() error { return errPortAudioDisabled }
func (p *PortAudio) Stop() error  { return nil }
func (p *PortAudio) Close() error { return nil }
