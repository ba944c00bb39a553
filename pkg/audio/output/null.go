// ABOUTME: Null output backend driven by a software clock
// ABOUTME: Renders into memory at real-time pace without audio hardware
package output

import (
	"sync"
	"time"

	"github.com/yako-player/yako-go/pkg/audio"
)

const (
	defaultNullRate  = 48000
	defaultNullBlock = 480
)

// Null renders blocks on a ticker and discards them (or hands them to OnBlock)
type Null struct {
	// Format is the format reported by Init; zero fields fall back to 48kHz stereo f32
	Format audio.DeviceFormat
	// BlockFrames is the number of frames rendered per tick
	BlockFrames int
	// OnBlock, when set, receives each rendered block on the clock goroutine
	OnBlock func([]byte)

	mu       sync.Mutex
	renderer Renderer
	onFault  func(error)
	buf      []byte
	stop     chan struct{}
	done     chan struct{}
}

// NewNull creates a null backend
func NewNull() *Null {
	return &Null{}
}

func (n *Null) Name() string { return "null" }

func (n *Null) Init(preferred audio.DeviceFormat, r Renderer, onFault func(error)) (audio.DeviceFormat, error) {
	f := n.Format
	if f.SampleRate == 0 {
		f.SampleRate = preferred.SampleRate
	}
	if f.SampleRate == 0 {
		f.SampleRate = defaultNullRate
	}
	if f.Channels == 0 {
		f.Channels = preferred.Channels
	}
	if f.Channels == 0 {
		f.Channels = 2
	}
	if f.Format == audio.SampleFormatUnknown {
		f.Format = preferred.Format
	}
	if f.Format == audio.SampleFormatUnknown {
		f.Format = audio.SampleFormatF32
	}
	if n.BlockFrames <= 0 {
		n.BlockFrames = defaultNullBlock
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.Format = f
	n.renderer = r
	n.onFault = onFault
	n.buf = make([]byte, n.BlockFrames*f.FrameBytes())
	return f, nil
}

// Start launches the clock goroutine
func (n *Null) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.renderer == nil {
		return ErrNotInitialized
	}
	if n.stop != nil {
		return nil
	}
	n.stop = make(chan struct{})
	n.done = make(chan struct{})
	go n.run(n.stop, n.done)
	return nil
}

func (n *Null) run(stop, done chan struct{}) {
	defer close(done)
	interval := time.Duration(n.BlockFrames) * time.Second / time.Duration(n.Format.SampleRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n.renderer.Render(n.buf)
			if n.OnBlock != nil {
				n.OnBlock(n.buf)
			}
		}
	}
}

// Stop halts the clock and waits for the last block to finish
func (n *Null) Stop() error {
	n.mu.Lock()
	stop, done := n.stop, n.done
	n.stop, n.done = nil, nil
	n.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}

func (n *Null) Close() error {
	err := n.Stop()
	n.mu.Lock()
	n.renderer = nil
	n.mu.Unlock()
	return err
}

// Fail simulates a driver-reported fault
func (n *Null) Fail(err error) {
	n.mu.Lock()
	onFault := n.onFault
	n.mu.Unlock()
	if onFault != nil {
		onFault(err)
	}
}
