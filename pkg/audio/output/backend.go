// ABOUTME: Backend selection and device enumeration
// ABOUTME: Maps configuration names to backend constructors
package output

import "fmt"

// Backend names accepted by NewBackend
const (
	BackendMalgo     = "malgo"
	BackendOto       = "oto"
	BackendPortAudio = "portaudio"
	BackendNull      = "null"
)

// DeviceInfo describes a playback device
type DeviceInfo struct {
	Name    string
	Default bool
}

// NewBackend creates a backend by name. deviceName only applies to malgo.
func NewBackend(name, deviceName string) (Backend, error) {
	switch name {
	case "", BackendMalgo:
		return NewMalgo(deviceName), nil
	case BackendOto:
		return NewOto(), nil
	case BackendPortAudio:
		if !PortAudioAvailable {
			return nil, fmt.Errorf("%w: %s", ErrBackendUnavailable, name)
		}
		return NewPortAudio(), nil
	case BackendNull:
		return NewNull(), nil
	}
	return nil, fmt.Errorf("%w: %q (supported: malgo, oto, portaudio, null)", ErrUnknownBackend, name)
}

// ListDevices enumerates playback devices for a backend
func ListDevices(name string) ([]DeviceInfo, error) {
	switch name {
	case "", BackendMalgo:
		return ListMalgoDevices()
	case BackendOto, BackendPortAudio, BackendNull:
		return []DeviceInfo{{Name: "default", Default: true}}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
}
