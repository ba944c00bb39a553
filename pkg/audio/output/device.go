// ABOUTME: Output device owning one backend stream and the real-time render callback
// ABOUTME: Control state is atomic so the callback never contends with control calls
package output

import (
	"fmt"
	"sync"

	"github.com/yako-player/yako-go/pkg/audio"
	"github.com/yako-player/yako-go/pkg/audio/queue"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type deviceState int

const (
	stateClosed deviceState = iota
	stateInitialized
	stateRunning
)

// Config holds device configuration
type Config struct {
	// Backend is the hardware layer to drive
	Backend Backend

	// Queue is consumed by the render callback
	Queue *queue.FrameQueue

	// Format is the preferred output format; zero fields let the backend choose
	Format audio.DeviceFormat

	// Logger receives control-plane logs (never written from the callback)
	Logger *zap.SugaredLogger
}

// Device is an initialized output stream and its playback controls
type Device struct {
	backend   Backend
	queue     *queue.FrameQueue
	preferred audio.DeviceFormat
	log       *zap.SugaredLogger

	// mu serializes control calls; the render callback never takes it
	mu         sync.Mutex
	state      deviceState
	format     audio.DeviceFormat
	frameBytes int

	playing   atomic.Bool
	muted     atomic.Bool
	available atomic.Bool
	gain      atomic.Float32
	volumeDb  atomic.Float64
	fault     atomic.Error

	// render scratch, only touched on the driver thread
	bits [audio.MaxChannels]uint32
}

// New initializes the backend and negotiates the output format.
// The stream is not started until Open.
func New(cfg Config) (*Device, error) {
	if cfg.Backend == nil {
		return nil, &DeviceError{Op: "init", Backend: "none", Err: ErrNotInitialized}
	}
	if cfg.Queue == nil {
		cfg.Queue = queue.New(queue.DefaultCapacity)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}

	d := &Device{
		backend:   cfg.Backend,
		queue:     cfg.Queue,
		preferred: cfg.Format,
		log:       cfg.Logger,
	}
	d.gain.Store(1)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

// init must hold d.mu
func (d *Device) init() error {
	format, err := d.backend.Init(d.preferred, d, d.onFault)
	if err != nil {
		return &DeviceError{Op: "init", Backend: d.backend.Name(), Err: err}
	}
	if err := format.Validate(); err != nil {
		_ = d.backend.Close()
		return &DeviceError{Op: "negotiate format", Backend: d.backend.Name(), Err: err}
	}

	d.format = format
	d.frameBytes = format.FrameBytes()
	d.fault.Store(nil)
	d.available.Store(true)
	d.state = stateInitialized

	d.log.Infof("Output: initialized %s (%s)", format, d.backend.Name())
	return nil
}

// onFault is called by the backend from the driver's thread
func (d *Device) onFault(err error) {
	if err == nil {
		return
	}
	d.fault.Store(err)
	d.available.Store(false)
	d.playing.Store(false)
	d.log.Warnf("Output: device fault: %v", err)
}

// check must hold d.mu
func (d *Device) check(op string) error {
	if d.state == stateClosed {
		return &DeviceError{Op: op, Backend: d.backend.Name(), Err: ErrNotInitialized}
	}
	if fr, ok := d.backend.(faultReporter); ok {
		if err := fr.Err(); err != nil && d.available.Load() {
			d.onFault(err)
		}
	}
	if !d.available.Load() {
		cause := d.fault.Load()
		if cause == nil {
			return &DeviceError{Op: op, Backend: d.backend.Name(), Err: ErrDeviceUnavailable}
		}
		return &DeviceError{Op: op, Backend: d.backend.Name(), Err: fmt.Errorf("%w: %w", ErrDeviceUnavailable, cause)}
	}
	return nil
}

// Open starts the hardware stream. A closed device is reinitialized in place.
func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == stateClosed {
		if err := d.init(); err != nil {
			return err
		}
	}
	if err := d.check("open"); err != nil {
		return err
	}
	if d.state == stateRunning {
		return nil
	}
	if err := d.backend.Start(); err != nil {
		return &DeviceError{Op: "start", Backend: d.backend.Name(), Err: err}
	}
	d.state = stateRunning
	return nil
}

// Pause stops consuming frames; the stream keeps running and emits silence
func (d *Device) Pause() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check("pause"); err != nil {
		return err
	}
	d.playing.Store(false)
	return nil
}

// Resume starts consuming frames again
func (d *Device) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check("resume"); err != nil {
		return err
	}
	if d.state != stateRunning {
		return &DeviceError{Op: "resume", Backend: d.backend.Name(), Err: ErrNotInitialized}
	}
	d.playing.Store(true)
	return nil
}

// SetVolume sets the gain in decibels; 0 dB is unity
func (d *Device) SetVolume(db float64) {
	d.volumeDb.Store(db)
	d.gain.Store(audio.DbToAmplitude(db))
}

// SetMute sets the mute flag
func (d *Device) SetMute(muted bool) {
	d.muted.Store(muted)
}

// Close stops and releases the hardware stream. Open reinitializes it.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == stateClosed {
		return nil
	}
	d.playing.Store(false)
	d.available.Store(false)

	var err error
	if d.state == stateRunning {
		err = multierr.Append(err, d.backend.Stop())
	}
	err = multierr.Append(err, d.backend.Close())
	d.state = stateClosed

	if err != nil {
		return &DeviceError{Op: "close", Backend: d.backend.Name(), Err: err}
	}
	d.log.Infof("Output: closed (%s)", d.backend.Name())
	return nil
}

// Format returns the negotiated output format
func (d *Device) Format() audio.DeviceFormat {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.format
}

// Available reports whether the device can be used without reinitializing
func (d *Device) Available() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.check("status") == nil
}

// Err returns the last asynchronous fault, if any
func (d *Device) Err() error {
	return d.fault.Load()
}

// IsPlaying reports whether the callback is consuming frames
func (d *Device) IsPlaying() bool {
	return d.playing.Load()
}

// IsMuted reports the mute flag
func (d *Device) IsMuted() bool {
	return d.muted.Load()
}

// VolumeDb returns the gain in decibels
func (d *Device) VolumeDb() float64 {
	return d.volumeDb.Load()
}

// Queue returns the queue the callback consumes
func (d *Device) Queue() *queue.FrameQueue {
	return d.queue
}

// Render implements Renderer for byte-oriented backends
func (d *Device) Render(out []byte) {
	fb := d.frameBytes
	if fb == 0 {
		clear(out)
		return
	}
	channels := d.format.Channels
	sf := d.format.Format
	bps := sf.BytesPerSample()
	silence := sf.Silence()

	active := d.playing.Load()
	muted := d.muted.Load()
	gain := d.gain.Load()
	scale := func(v float32) float32 { return audio.Clamp(v * gain) }
	toNative := func(v float32) uint32 { return sf.Bits(v) }

	whole := len(out) / fb * fb
	for off := 0; off < whole; off += fb {
		n := 0
		if active {
			if f, ok := d.queue.Pop(); ok && !muted {
				n = min(f.Channels(), channels)
				audio.WriteConverted(f.Apply(scale), d.bits[:n], toNative)
			}
		}
		for ch := 0; ch < channels; ch++ {
			b := silence
			if ch < n {
				b = d.bits[ch]
			}
			sf.PutBits(out[off+ch*bps:], b)
		}
	}
	clear(out[whole:])
}

// RenderFloat32 implements Renderer for float32 backends
func (d *Device) RenderFloat32(out []float32) {
	channels := d.format.Channels
	if channels == 0 {
		clear(out)
		return
	}

	active := d.playing.Load()
	muted := d.muted.Load()
	gain := d.gain.Load()
	scale := func(v float32) float32 { return audio.Clamp(v * gain) }
	same := func(v float32) float32 { return v }

	whole := len(out) / channels * channels
	for off := 0; off < whole; off += channels {
		slot := out[off : off+channels]
		n := 0
		if active {
			if f, ok := d.queue.Pop(); ok && !muted {
				n = min(f.Channels(), channels)
				audio.WriteConverted(f.Apply(scale), slot[:n], same)
			}
		}
		clear(slot[n:])
	}
	clear(out[whole:])
}
