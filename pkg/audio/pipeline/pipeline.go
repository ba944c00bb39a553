// ABOUTME: Decode pipeline: one worker that decodes, resamples and queues frames
// ABOUTME: Handles backpressure, pause, seek flushes and end of stream
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/yako-player/yako-go/pkg/audio"
	"github.com/yako-player/yako-go/pkg/audio/decode"
	"github.com/yako-player/yako-go/pkg/audio/queue"
	"github.com/yako-player/yako-go/pkg/audio/resample"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultTargetLatency is the queue occupancy the worker aims for
	DefaultTargetLatency = 80 * time.Millisecond

	// PollInterval bounds waits on conditions that are not signalled
	PollInterval = 10 * time.Millisecond

	// MaxConsecutiveDecodeErrors ends the stream after this many failed packets in a row
	MaxConsecutiveDecodeErrors = 8

	defaultChannels = 2
)

// Config holds pipeline configuration
type Config struct {
	// URI is the file path or tone: URI to open
	URI string

	// Format is the output device format the worker converts to
	Format audio.DeviceFormat

	// Queue receives decoded frames
	Queue *queue.FrameQueue

	// Opener opens URI (default: decode.Open)
	Opener decode.Opener

	// TargetLatency is the target queue occupancy (default: 80ms)
	TargetLatency time.Duration

	// Logger receives pipeline logs
	Logger *zap.SugaredLogger

	// OnError is called from the worker for decode errors it skips
	OnError func(error)
}

// Pipeline is an open source and its decode worker
type Pipeline struct {
	uri       string
	stream    decode.Stream
	info      decode.MediaInfo
	resampler *resample.Resampler
	queue     *queue.FrameQueue
	status    *Status
	log       *zap.SugaredLogger
	onError   func(error)
	latency   time.Duration

	seekMu sync.Mutex
	seekCh chan time.Duration

	target  atomic.Int64
	chunk   atomic.Int64
	lastErr atomic.Error

	cancel    context.CancelFunc
	group     *errgroup.Group
	closeOnce sync.Once
	closeErr  error

	// worker-owned
	frames       []audio.Frame
	decodeErrors int
}

// Sizing returns the target occupancy and chunk size in frames for a
// device rate. The chunk is half the target so a write never needs more
// contiguous space than the queue has.
func Sizing(sampleRate int, latency time.Duration, capacity int) (target, chunk int) {
	target = int(float64(sampleRate) * latency.Seconds())
	target = max(min(target, capacity), 2)
	return target, target / 2
}

// Open opens cfg.URI and starts the decode worker in the paused state
func Open(cfg Config) (*Pipeline, error) {
	if cfg.Opener == nil {
		cfg.Opener = decode.Open
	}
	if cfg.Queue == nil {
		cfg.Queue = queue.New(queue.DefaultCapacity)
	}
	if cfg.TargetLatency <= 0 {
		cfg.TargetLatency = DefaultTargetLatency
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if err := cfg.Format.Validate(); err != nil {
		return nil, &SourceError{Op: "open", URI: cfg.URI, Err: err}
	}

	status := NewStatus()
	status.SetState(StateOpening)

	stream, info, err := cfg.Opener(cfg.URI)
	if err != nil {
		return nil, &SourceError{Op: "open", URI: cfg.URI, Err: err}
	}

	native := stream.Format()
	if native.SampleRate <= 0 {
		_ = stream.Close()
		return nil, &SourceError{Op: "open", URI: cfg.URI, Err: fmt.Errorf("%w: sample rate %d", ErrNoStream, native.SampleRate)}
	}
	channels := native.Channels
	if channels <= 0 {
		channels = defaultChannels
	}

	rs, err := resample.New(native.SampleRate, cfg.Format.SampleRate, channels, cfg.Format.Channels)
	if err != nil {
		_ = stream.Close()
		return nil, &SourceError{Op: "open", URI: cfg.URI, Err: err}
	}

	p := &Pipeline{
		uri:       cfg.URI,
		stream:    stream,
		info:      info,
		resampler: rs,
		queue:     cfg.Queue,
		status:    status,
		log:       cfg.Logger,
		onError:   cfg.OnError,
		latency:   cfg.TargetLatency,
		seekCh:    make(chan time.Duration, 1),
	}
	p.Resize(cfg.Format.SampleRate)

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	p.cancel = cancel
	p.group = g

	status.SetAvailable(true)
	status.SetState(StateDecoding)
	g.Go(func() error {
		return p.run(gctx)
	})

	p.log.Infof("Pipeline: opened %s (%s -> %s, target %d frames)",
		cfg.URI, native, cfg.Format, p.target.Load())
	return p, nil
}

// Resize recomputes the target occupancy and chunk size for a device rate
func (p *Pipeline) Resize(sampleRate int) {
	target, chunk := Sizing(sampleRate, p.latency, p.queue.Capacity())
	p.target.Store(int64(target))
	p.chunk.Store(int64(chunk))
}

// TargetFrames returns the current target occupancy in frames
func (p *Pipeline) TargetFrames() int { return int(p.target.Load()) }

// ChunkFrames returns the current write chunk size in frames
func (p *Pipeline) ChunkFrames() int { return int(p.chunk.Load()) }

// Play lets the worker stream frames
func (p *Pipeline) Play() error {
	if !p.status.Available() {
		return &SourceError{Op: "play", URI: p.uri, Err: ErrClosed}
	}
	p.status.SetPlaying(true)
	return nil
}

// Pause stops the worker before its next packet or write
func (p *Pipeline) Pause() error {
	if !p.status.Available() {
		return &SourceError{Op: "pause", URI: p.uri, Err: ErrClosed}
	}
	p.status.SetPlaying(false)
	return nil
}

// Seek asks the worker to reposition. A later seek replaces one the worker
// has not picked up yet.
func (p *Pipeline) Seek(pos time.Duration) error {
	if !p.status.Available() {
		return &SourceError{Op: "seek", URI: p.uri, Err: ErrClosed}
	}
	if pos < 0 {
		pos = 0
	}

	p.seekMu.Lock()
	defer p.seekMu.Unlock()

	p.status.SetDroppingFrames(true)
	select {
	case <-p.seekCh:
	default:
	}
	p.seekCh <- pos
	return nil
}

// ClearBuffer drops queued frames and any write in flight
func (p *Pipeline) ClearBuffer() {
	p.status.SetDroppingFrames(true)
	p.queue.Clear()
}

func (p *Pipeline) CurrentTime() time.Duration  { return p.status.CurrentTime() }
func (p *Pipeline) Duration() time.Duration     { return p.info.Duration }
func (p *Pipeline) Bitrate() int                { return p.info.Bitrate }
func (p *Pipeline) MediaInfo() decode.MediaInfo { return p.info }
func (p *Pipeline) IsPlaying() bool             { return p.status.Playing() }
func (p *Pipeline) EndOfStream() bool           { return p.status.EndOfStream() }
func (p *Pipeline) Status() *Status             { return p.status }

// Err returns the last decode error the worker skipped
func (p *Pipeline) Err() error {
	return p.lastErr.Load()
}

// Close stops the worker, waits for it and releases the stream
func (p *Pipeline) Close() error {
	p.closeOnce.Do(func() {
		p.status.SetAvailable(false)
		p.cancel()
		err := p.group.Wait()
		err = multierr.Append(err, p.stream.Close())
		p.queue.Clear()
		p.status.SetPlaying(false)
		p.status.SetState(StateClosed)
		if err != nil {
			p.closeErr = &SourceError{Op: "close", URI: p.uri, Err: err}
		}
		p.log.Infof("Pipeline: closed %s", p.uri)
	})
	return p.closeErr
}

func (p *Pipeline) stopped() bool {
	return !p.status.Available()
}

// preempted reports whether a seek or clear should cut the current work short
func (p *Pipeline) preempted() bool {
	return !p.status.Available() || p.status.DroppingFrames()
}

// run is the worker loop; it owns stream, resampler and frames
func (p *Pipeline) run(ctx context.Context) error {
	for {
		if ctx.Err() != nil || p.stopped() {
			return nil
		}

		if pos, ok := p.takeSeek(); ok || p.status.DroppingFrames() {
			p.flush(pos, ok)
			continue
		}

		pkt, err := p.stream.ReadPacket()
		if err != nil {
			if !errors.Is(err, io.EOF) && !p.decodeFailed(err) {
				continue
			}
			if p.pendingSeek() {
				continue
			}
			if !p.endOfStream(ctx) {
				return nil
			}
			continue
		}
		p.decodeErrors = 0

		if !p.status.await(ctx, PollInterval, p.status.Playing, p.preempted) {
			continue
		}

		p.status.SetCurrentTime(pkt.Timestamp)
		p.write(ctx, p.resampler.Process(pkt.Samples))
	}
}

// takeSeek receives the latest seek request without blocking
func (p *Pipeline) takeSeek() (time.Duration, bool) {
	select {
	case pos := <-p.seekCh:
		return pos, true
	default:
		return 0, false
	}
}

func (p *Pipeline) pendingSeek() bool {
	return len(p.seekCh) > 0 || p.status.DroppingFrames()
}

// flush drops everything decoded before a seek (or a clear when seek is false)
func (p *Pipeline) flush(pos time.Duration, seek bool) {
	if seek {
		if err := p.stream.Seek(pos); err != nil {
			p.fail(&SourceError{Op: "seek", URI: p.uri, Err: err})
		} else {
			p.status.SetCurrentTime(pos)
		}
	}
	p.resampler.Reset()
	dropped := p.queue.Clear()

	// A seek that raced in keeps frames dropping until the next flush
	p.seekMu.Lock()
	if len(p.seekCh) == 0 {
		p.status.SetDroppingFrames(false)
	}
	p.seekMu.Unlock()

	if seek {
		p.log.Debugf("Pipeline: seek to %v, dropped %d frames", pos, dropped)
	}
}

// decodeFailed records a packet error and reports whether to give up on the stream
func (p *Pipeline) decodeFailed(err error) bool {
	p.decodeErrors++
	p.fail(&SourceError{Op: "decode", URI: p.uri, Err: err})
	if p.decodeErrors < MaxConsecutiveDecodeErrors {
		return false
	}
	p.log.Errorf("Pipeline: %d consecutive decode errors, ending stream", p.decodeErrors)
	p.decodeErrors = 0
	return true
}

func (p *Pipeline) fail(err error) {
	p.lastErr.Store(err)
	p.log.Warnf("Pipeline: %v", err)
	if p.onError != nil {
		p.onError(err)
	}
}

// endOfStream parks the worker after the last packet. It returns false when
// the pipeline is closing.
func (p *Pipeline) endOfStream(ctx context.Context) bool {
	p.status.SetPlaying(false)
	p.status.SetEndOfStream(true)
	p.status.SetCurrentTime(0)
	p.status.SetState(StateEndOfStream)
	p.log.Infof("Pipeline: end of stream %s", p.uri)

	p.status.await(ctx, PollInterval,
		func() bool { return p.status.Playing() || p.status.DroppingFrames() },
		p.stopped)
	if ctx.Err() != nil || p.stopped() {
		return false
	}

	// A seek while parked positions the stream itself; only a plain resume rewinds.
	if !p.pendingSeek() {
		if err := p.stream.Seek(0); err != nil {
			p.fail(&SourceError{Op: "rewind", URI: p.uri, Err: err})
		}
		p.resampler.Reset()
	}
	p.status.SetEndOfStream(false)
	p.status.SetState(StateDecoding)
	return true
}

// write queues resampled samples in chunks, waiting for room below the
// target occupancy. It gives up early when preempted.
func (p *Pipeline) write(ctx context.Context, samples []float32) {
	channels := p.resampler.OutputChannels()
	total := len(samples) / channels
	capacity := p.queue.Capacity()

	for start := 0; start < total; {
		chunk := int(p.chunk.Load())
		target := int(p.target.Load())
		n := min(chunk, total-start)

		if cap(p.frames) < n {
			p.frames = make([]audio.Frame, chunk)
		}
		frames := p.frames[:n]
		for i := range frames {
			off := (start + i) * channels
			frames[i] = audio.FromValues(samples[off : off+channels]...)
		}

		ready := func() bool {
			return p.status.Playing() && p.queue.FreeSpace() >= n+capacity-target
		}
		if !p.status.await(ctx, PollInterval, ready, p.preempted) {
			return
		}
		if p.status.DroppingFrames() {
			return
		}
		p.queue.PushRun(frames)
		start += n
	}
}
