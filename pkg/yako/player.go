// ABOUTME: Playback controller owning one output device and one source
// ABOUTME: Lazily (re)initializes the device and forwards transport calls
package yako

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yako-player/yako-go/pkg/audio"
	"github.com/yako-player/yako-go/pkg/audio/decode"
	"github.com/yako-player/yako-go/pkg/audio/output"
	"github.com/yako-player/yako-go/pkg/audio/pipeline"
	"github.com/yako-player/yako-go/pkg/audio/queue"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	// ErrNoSource is returned by calls that need an open file
	ErrNoSource = errors.New("no source open")

	// ErrInvalidVolume is returned for volume levels outside [0,1]
	ErrInvalidVolume = errors.New("volume level must be within [0, 1]")

	// ErrPlayerClosed is returned after Close
	ErrPlayerClosed = errors.New("player closed")
)

// PlayerConfig holds player configuration
type PlayerConfig struct {
	// Backend names the output backend (default: malgo)
	Backend string

	// Device selects a playback device by name (default: system default)
	Device string

	// Output overrides Backend/Device with a ready backend
	Output output.Backend

	// Format is the preferred device format; zero fields let the backend choose
	Format audio.DeviceFormat

	// BufferCapacity is the frame queue size (default: 64000)
	BufferCapacity int

	// TargetLatency is the decode-ahead target (default: 80ms)
	TargetLatency time.Duration

	// Volume is the initial level in [0,1]; nil means 1
	Volume *float64

	// Muted starts the player muted
	Muted bool

	// Opener opens URIs (default: decode.Open)
	Opener decode.Opener

	// Logger receives player logs
	Logger *zap.SugaredLogger

	// OnStateChange is called when playback state changes
	OnStateChange func(PlayerState)

	// OnError is called for errors the decode worker skips
	OnError func(error)
}

// PlayerState describes the current state
type PlayerState struct {
	State       string // "idle", "playing", "paused", "ended"
	URI         string
	Title       string
	Artist      string
	Position    time.Duration
	Duration    time.Duration
	Bitrate     int
	Volume      float64
	Muted       bool
	EndOfStream bool
	Device      audio.DeviceFormat
	Available   bool
}

// Player owns at most one output device and one source
type Player struct {
	config PlayerConfig
	id     string
	log    *zap.SugaredLogger
	queue  *queue.FrameQueue

	mu     sync.Mutex
	device *output.Device
	source pipeline.Source
	uri    string
	volume float64
	muted  bool
	closed bool

	// cancels the status watcher of the current source
	unwatch context.CancelFunc
}

// NewPlayer creates a player. The output device is opened on first use.
func NewPlayer(config PlayerConfig) (*Player, error) {
	if config.Backend == "" {
		config.Backend = output.BackendMalgo
	}
	if config.BufferCapacity == 0 {
		config.BufferCapacity = queue.DefaultCapacity
	}
	if config.TargetLatency == 0 {
		config.TargetLatency = pipeline.DefaultTargetLatency
	}
	if config.Opener == nil {
		config.Opener = decode.Open
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop().Sugar()
	}
	volume := 1.0
	if config.Volume != nil {
		volume = *config.Volume
	}
	if err := checkVolume(volume); err != nil {
		return nil, err
	}
	if config.BufferCapacity < 0 {
		return nil, fmt.Errorf("invalid buffer capacity %d", config.BufferCapacity)
	}

	return &Player{
		config: config,
		id:     uuid.New().String(),
		log:    config.Logger,
		queue:  queue.New(config.BufferCapacity),
		volume: volume,
		muted:  config.Muted,
	}, nil
}

// Level returns a pointer to v for PlayerConfig.Volume
func Level(v float64) *float64 {
	return &v
}

func checkVolume(level float64) error {
	if math.IsNaN(level) || level < 0 || level > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidVolume, level)
	}
	return nil
}

// ID returns the player's instance id
func (p *Player) ID() string {
	return p.id
}

// ensureDevice must hold p.mu. It creates the device on first use and
// reopens it after a fault.
func (p *Player) ensureDevice() error {
	if p.device != nil && p.device.Available() {
		return nil
	}

	if p.device == nil {
		backend := p.config.Output
		if backend == nil {
			var err error
			backend, err = output.NewBackend(p.config.Backend, p.config.Device)
			if err != nil {
				return err
			}
		}
		dev, err := output.New(output.Config{
			Backend: backend,
			Queue:   p.queue,
			Format:  p.config.Format,
			Logger:  p.log,
		})
		if err != nil {
			return err
		}
		p.device = dev
	} else {
		p.log.Infof("Player: reopening unavailable device (%v)", p.device.Err())
		if err := p.device.Close(); err != nil {
			p.log.Warnf("Player: closing faulted device: %v", err)
		}
	}

	p.device.SetVolume(audio.LevelToDb(p.volume))
	p.device.SetMute(p.muted)
	if err := p.device.Open(); err != nil {
		return err
	}

	if p.source != nil {
		p.source.Resize(p.device.Format().SampleRate)
	}
	return nil
}

// Open closes the current source and opens uri against the device format
func (p *Player) Open(uri string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPlayerClosed
	}
	if err := p.ensureDevice(); err != nil {
		return err
	}
	if err := p.closeSource(); err != nil {
		return err
	}

	format := p.device.Format()
	src, err := pipeline.Open(pipeline.Config{
		URI:           uri,
		Format:        format,
		Queue:         p.queue,
		Opener:        p.config.Opener,
		TargetLatency: p.config.TargetLatency,
		Logger:        p.log,
		OnError:       p.config.OnError,
	})
	if err != nil {
		return err
	}
	src.Resize(format.SampleRate)

	p.source = src
	p.uri = uri
	p.watch(src.Status())

	info := src.MediaInfo()
	p.log.Infof("Player: opened %s (%s, %v, %d bps)", uri, info.Format, info.Duration, info.Bitrate)
	go p.notifyStateChange()
	return nil
}

// closeSource must hold p.mu
func (p *Player) closeSource() error {
	if p.source == nil {
		return nil
	}
	if p.unwatch != nil {
		p.unwatch()
		p.unwatch = nil
	}
	err := p.source.Close()
	p.source = nil
	p.uri = ""
	return err
}

// watch reports status changes of src until it is replaced
func (p *Player) watch(status *pipeline.Status) {
	ctx, cancel := context.WithCancel(context.Background())
	p.unwatch = cancel

	go func() {
		for {
			changed := status.Changed()
			select {
			case <-ctx.Done():
				return
			case <-changed:
				p.notifyStateChange()
			}
		}
	}()
}

// Play resumes the device and lets the source stream
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPlayerClosed
	}
	if err := p.ensureDevice(); err != nil {
		return err
	}
	if err := p.device.Resume(); err != nil {
		return err
	}
	if p.source != nil {
		return p.source.Play()
	}
	return nil
}

// Pause pauses the device and the source
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.device == nil {
		return nil
	}
	if err := p.device.Pause(); err != nil {
		return err
	}
	if p.source != nil {
		return p.source.Pause()
	}
	return nil
}

// Stop pauses the source, drops buffered audio and rewinds to the start
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.source == nil {
		return nil
	}
	if err := p.source.Pause(); err != nil {
		return err
	}
	p.source.ClearBuffer()
	return p.source.Seek(0)
}

// Seek moves playback to pos
func (p *Player) Seek(pos time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.source == nil {
		return ErrNoSource
	}
	return p.source.Seek(pos)
}

// Duration returns the length of the open file
func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.source == nil {
		return 0
	}
	return p.source.Duration()
}

// Bitrate returns the bitrate of the open file in bits per second
func (p *Player) Bitrate() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.source == nil {
		return 0
	}
	return p.source.Bitrate()
}

// CurrentTime returns the playback position
func (p *Player) CurrentTime() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.source == nil {
		return 0
	}
	return p.source.CurrentTime()
}

// IsPlaying reports whether the source is streaming
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.source != nil && p.source.IsPlaying()
}

// MediaInfo returns the metadata of the open file
func (p *Player) MediaInfo() decode.MediaInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.source == nil {
		return decode.MediaInfo{}
	}
	return p.source.MediaInfo()
}

// Volume returns the volume level in [0,1]
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetVolume sets the volume level in [0,1]
func (p *Player) SetVolume(level float64) error {
	if err := checkVolume(level); err != nil {
		return err
	}

	p.mu.Lock()
	p.volume = level
	if p.device != nil {
		p.device.SetVolume(audio.LevelToDb(level))
	}
	p.mu.Unlock()

	p.notifyStateChange()
	return nil
}

// Muted reports the mute flag
func (p *Player) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}

// SetMute sets the mute flag
func (p *Player) SetMute(muted bool) error {
	p.mu.Lock()
	p.muted = muted
	if p.device != nil {
		p.device.SetMute(muted)
	}
	p.mu.Unlock()

	p.notifyStateChange()
	return nil
}

// DeviceFormat returns the negotiated device format, if a device is open
func (p *Player) DeviceFormat() (audio.DeviceFormat, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.device == nil {
		return audio.DeviceFormat{}, false
	}
	return p.device.Format(), true
}

// Status returns a snapshot of the player state
func (p *Player) Status() PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := PlayerState{
		State:  "idle",
		URI:    p.uri,
		Volume: p.volume,
		Muted:  p.muted,
	}
	if p.device != nil {
		st.Device = p.device.Format()
		st.Available = p.device.Available()
	}
	if p.source != nil {
		info := p.source.MediaInfo()
		st.Title, st.Artist = info.Title, info.Artist
		st.Position = p.source.CurrentTime()
		st.Duration = p.source.Duration()
		st.Bitrate = p.source.Bitrate()
		st.EndOfStream = p.source.EndOfStream()
		switch {
		case st.EndOfStream:
			st.State = "ended"
		case p.source.IsPlaying():
			st.State = "playing"
		default:
			st.State = "paused"
		}
	}
	return st
}

func (p *Player) notifyStateChange() {
	if p.config.OnStateChange != nil {
		p.config.OnStateChange(p.Status())
	}
}

// Close releases the source and the device
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	err := p.closeSource()
	if p.device != nil {
		err = multierr.Append(err, p.device.Close())
	}
	return err
}
