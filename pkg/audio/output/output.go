// ABOUTME: Backend interface and device error types
// ABOUTME: Backends drive a Renderer from the audio driver's thread
package output

import (
	"errors"
	"fmt"

	"github.com/yako-player/yako-go/pkg/audio"
)

var (
	// ErrNotInitialized is returned by control calls on a device with no stream
	ErrNotInitialized = errors.New("output device not initialized")

	// ErrDeviceUnavailable is returned after an asynchronous hardware fault
	ErrDeviceUnavailable = errors.New("output device unavailable")

	// ErrStreamStopped is recorded when the driver stops the stream on its own
	ErrStreamStopped = errors.New("output stream stopped by driver")

	// ErrUnknownBackend is returned by NewBackend for unrecognized names
	ErrUnknownBackend = errors.New("unknown output backend")

	// ErrBackendUnavailable is returned for backends not compiled into this binary
	ErrBackendUnavailable = errors.New("output backend not available in this build")
)

// DeviceError describes a failed device operation
type DeviceError struct {
	Op      string
	Backend string
	Err     error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("output %s (%s): %v", e.Op, e.Backend, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Renderer fills driver buffers. Both methods run on the driver's thread.
type Renderer interface {
	// Render fills out with whole frames in the negotiated sample format
	Render(out []byte)
	// RenderFloat32 fills out with whole interleaved float32 frames
	RenderFloat32(out []float32)
}

// Backend is a hardware audio layer
type Backend interface {
	// Name identifies the backend in logs and errors
	Name() string
	// Init opens a stream that will call r, negotiating a format close to
	// preferred (zero fields mean the backend's choice). onFault is called
	// from any thread when the driver reports an error.
	Init(preferred audio.DeviceFormat, r Renderer, onFault func(error)) (audio.DeviceFormat, error)
	// Start begins invoking the renderer
	Start() error
	// Stop halts the stream without releasing it
	Stop() error
	// Close releases everything Init acquired
	Close() error
}

// faultReporter is implemented by backends whose faults are polled rather than pushed
type faultReporter interface {
	Err() error
}
