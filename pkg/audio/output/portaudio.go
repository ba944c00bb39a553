//go:build portaudio

// ABOUTME: PortAudio output backend
// ABOUTME: Cross-platform float32 output using PortAudio
package output

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
	"github.com/yako-player/yako-go/pkg/audio"
)

// PortAudioAvailable reports whether PortAudio support was compiled in
const PortAudioAvailable = true

// PortAudio drives a PortAudio default output stream
type PortAudio struct {
	stream *portaudio.Stream
}

// NewPortAudio creates a PortAudio backend
func NewPortAudio() *PortAudio {
	return &PortAudio{}
}

func (p *PortAudio) Name() string { return "portaudio" }

func (p *PortAudio) Init(preferred audio.DeviceFormat, r Renderer, _ func(error)) (audio.DeviceFormat, error) {
	if err := portaudio.Initialize(); err != nil {
		return audio.DeviceFormat{}, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	format := audio.DeviceFormat{
		SampleRate: preferred.SampleRate,
		Channels:   preferred.Channels,
		Format:     audio.SampleFormatF32,
	}
	if format.SampleRate == 0 || format.Channels == 0 {
		dev, err := portaudio.DefaultOutputDevice()
		if err != nil {
			_ = portaudio.Terminate()
			return audio.DeviceFormat{}, fmt.Errorf("no default output device: %w", err)
		}
		if format.SampleRate == 0 {
			format.SampleRate = int(dev.DefaultSampleRate)
		}
		if format.Channels == 0 {
			format.Channels = min(dev.MaxOutputChannels, 2)
		}
	}

	stream, err := portaudio.OpenDefaultStream(0, format.Channels, float64(format.SampleRate), 0, func(out []float32) {
		r.RenderFloat32(out)
	})
	if err != nil {
		_ = portaudio.Terminate()
		return audio.DeviceFormat{}, fmt.Errorf("failed to open stream: %w", err)
	}

	p.stream = stream
	return format, nil
}

func (p *PortAudio) Start() error {
	if p.stream == nil {
		return ErrNotInitialized
	}
	return p.stream.Start()
}

func (p *PortAudio) Stop() error {
	if p.stream == nil {
		return nil
	}
	return p.stream.Stop()
}

func (p *PortAudio) Close() error {
	if p.stream != nil {
		if err := p.stream.Close(); err != nil {
			return err
		}
		p.stream = nil
	}
	return portaudio.Terminate()
}
