// ABOUTME: Oto-based audio output backend
// ABOUTME: Oto pulls bytes from a reader that invokes the render callback
package output

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/yako-player/yako-go/pkg/audio"
)

const (
	defaultOtoRate     = 48000
	defaultOtoChannels = 2
)

// oto allows only one context per process, so it is shared by every Oto backend
var (
	otoMu     sync.Mutex
	otoCtx    *oto.Context
	otoFormat audio.DeviceFormat
)

// Oto drives an oto player
type Oto struct {
	player *oto.Player
	reader *renderReader
}

// NewOto creates an oto backend
func NewOto() *Oto {
	return &Oto{}
}

func (o *Oto) Name() string { return "oto" }

// Init creates (or reuses) the process-wide oto context and a player bound to r
func (o *Oto) Init(preferred audio.DeviceFormat, r Renderer, _ func(error)) (audio.DeviceFormat, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx == nil {
		format := audio.DeviceFormat{
			SampleRate: preferred.SampleRate,
			Channels:   preferred.Channels,
			Format:     audio.SampleFormatF32,
		}
		if format.SampleRate == 0 {
			format.SampleRate = defaultOtoRate
		}
		if format.Channels == 0 {
			format.Channels = defaultOtoChannels
		}

		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatFloat32LE,
		})
		if err != nil {
			return audio.DeviceFormat{}, fmt.Errorf("failed to create oto context: %w", err)
		}
		<-ready
		otoCtx = ctx
		otoFormat = format
	} else if err := otoCtx.Resume(); err != nil {
		return audio.DeviceFormat{}, fmt.Errorf("failed to resume oto context: %w", err)
	}

	o.reader = &renderReader{renderer: r, frameBytes: otoFormat.FrameBytes()}
	o.player = otoCtx.NewPlayer(o.reader)
	return otoFormat, nil
}

func (o *Oto) Start() error {
	if o.player == nil {
		return ErrNotInitialized
	}
	o.player.Play()
	return nil
}

func (o *Oto) Stop() error {
	if o.player == nil {
		return nil
	}
	o.player.Pause()
	return nil
}

func (o *Oto) Close() error {
	var err error
	if o.player != nil {
		err = o.player.Close()
		o.player = nil
	}

	otoMu.Lock()
	defer otoMu.Unlock()
	if otoCtx != nil {
		if serr := otoCtx.Suspend(); err == nil {
			err = serr
		}
	}
	return err
}

// Err reports asynchronous oto failures; the device polls it on control calls
func (o *Oto) Err() error {
	if o.player != nil {
		if err := o.player.Err(); err != nil {
			return err
		}
	}
	otoMu.Lock()
	defer otoMu.Unlock()
	if otoCtx != nil {
		return otoCtx.Err()
	}
	return nil
}

// renderReader adapts a Renderer to the io.Reader oto pulls from
type renderReader struct {
	renderer   Renderer
	frameBytes int
}

var errNoFrames = errors.New("read buffer smaller than one frame")

func (r *renderReader) Read(p []byte) (int, error) {
	n := len(p) / r.frameBytes * r.frameBytes
	if n == 0 {
		return 0, errNoFrames
	}
	r.renderer.Render(p[:n])
	return n, nil
}
