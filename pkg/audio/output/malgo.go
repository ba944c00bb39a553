// ABOUTME: Malgo-based audio output backend
// ABOUTME: Uses miniaudio via malgo; picks the highest rate the device reports
package output

import (
	"fmt"
	"strings"

	"github.com/gen2brain/malgo"
	"github.com/yako-player/yako-go/pkg/audio"
	"go.uber.org/atomic"
)

// Malgo drives a miniaudio playback device
type Malgo struct {
	// DeviceName selects the first playback device whose name contains it; empty means the default device
	DeviceName string

	malgoCtx   *malgo.AllocatedContext
	device     *malgo.Device
	frameBytes int
	stopping   atomic.Bool
}

// NewMalgo creates a malgo backend for the named device ("" for the default)
func NewMalgo(deviceName string) *Malgo {
	return &Malgo{DeviceName: deviceName}
}

func (m *Malgo) Name() string { return "malgo" }

// Init opens the playback device
func (m *Malgo) Init(preferred audio.DeviceFormat, r Renderer, onFault func(error)) (audio.DeviceFormat, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return audio.DeviceFormat{}, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	m.malgoCtx = ctx

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = toMalgoFormat(preferred.Format)
	cfg.Playback.Channels = uint32(preferred.Channels)
	cfg.SampleRate = uint32(preferred.SampleRate)
	cfg.Alsa.NoMMap = 1

	if info, ok := m.selectDevice(); ok {
		if m.DeviceName != "" {
			cfg.Playback.DeviceID = info.ID.Pointer()
		}
		if cfg.SampleRate == 0 {
			cfg.SampleRate = m.highestRate(info)
		}
	} else if m.DeviceName != "" {
		m.release()
		return audio.DeviceFormat{}, fmt.Errorf("no playback device matching %q", m.DeviceName)
	}

	callbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, _ []byte, frameCount uint32) {
			n := int(frameCount) * m.frameBytes
			if n > len(pOutputSample) {
				n = len(pOutputSample)
			}
			r.Render(pOutputSample[:n])
		},
		Stop: func() {
			if !m.stopping.Load() {
				onFault(ErrStreamStopped)
			}
		},
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, cfg, callbacks)
	if err != nil {
		m.release()
		return audio.DeviceFormat{}, fmt.Errorf("failed to initialize playback device: %w", err)
	}
	m.device = device

	format := audio.DeviceFormat{
		SampleRate: int(device.SampleRate()),
		Channels:   int(device.PlaybackChannels()),
		Format:     fromMalgoFormat(device.PlaybackFormat()),
	}
	m.frameBytes = format.FrameBytes()
	return format, nil
}

// selectDevice finds the configured device, or the default one
func (m *Malgo) selectDevice() (malgo.DeviceInfo, bool) {
	devices, err := m.malgoCtx.Devices(malgo.Playback)
	if err != nil {
		return malgo.DeviceInfo{}, false
	}
	for i := range devices {
		info := &devices[i]
		if m.DeviceName != "" {
			if strings.Contains(strings.ToLower(info.Name()), strings.ToLower(m.DeviceName)) {
				return *info, true
			}
			continue
		}
		if info.IsDefault != 0 {
			return *info, true
		}
	}
	return malgo.DeviceInfo{}, false
}

// highestRate returns the largest sample rate the device reports, or 0 to let miniaudio choose
func (m *Malgo) highestRate(info malgo.DeviceInfo) uint32 {
	full, err := m.malgoCtx.DeviceInfo(malgo.Playback, info.ID, malgo.Shared)
	if err != nil {
		return 0
	}
	var best uint32
	for _, f := range full.Formats {
		if f.SampleRate > best {
			best = f.SampleRate
		}
	}
	return best
}

func (m *Malgo) Start() error {
	if m.device == nil {
		return ErrNotInitialized
	}
	m.stopping.Store(false)
	return m.device.Start()
}

func (m *Malgo) Stop() error {
	if m.device == nil {
		return nil
	}
	m.stopping.Store(true)
	return m.device.Stop()
}

func (m *Malgo) Close() error {
	m.stopping.Store(true)
	if m.device != nil {
		m.device.Uninit()
		m.device = nil
	}
	return m.release()
}

func (m *Malgo) release() error {
	if m.malgoCtx == nil {
		return nil
	}
	err := m.malgoCtx.Uninit()
	m.malgoCtx.Free()
	m.malgoCtx = nil
	return err
}

// ListMalgoDevices returns the names of all playback devices
func ListMalgoDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	devices, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate playback devices: %w", err)
	}

	out := make([]DeviceInfo, 0, len(devices))
	for i := range devices {
		out = append(out, DeviceInfo{Name: devices[i].Name(), Default: devices[i].IsDefault != 0})
	}
	return out, nil
}

func toMalgoFormat(f audio.SampleFormat) malgo.FormatType {
	switch f {
	case audio.SampleFormatU8:
		return malgo.FormatU8
	case audio.SampleFormatS16:
		return malgo.FormatS16
	case audio.SampleFormatS32:
		return malgo.FormatS32
	default:
		return malgo.FormatF32
	}
}

func fromMalgoFormat(f malgo.FormatType) audio.SampleFormat {
	switch f {
	case malgo.FormatU8:
		return audio.SampleFormatU8
	case malgo.FormatS16:
		return audio.SampleFormatS16
	case malgo.FormatS32:
		return audio.SampleFormatS32
	case malgo.FormatF32:
		return audio.SampleFormatF32
	}
	return audio.SampleFormatUnknown
}
