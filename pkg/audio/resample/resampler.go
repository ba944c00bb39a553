// ABOUTME: Streaming linear resampler for interleaved float32 audio
// ABOUTME: Remixes channels and converts rates, with an explicit Reset
package resample

import (
	"fmt"

	"github.com/yako-player/yako-go/pkg/audio"
)

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate      int
	outputRate     int
	inputChannels  int
	outputChannels int
	ratio          float64

	// position is the fractional read position, where index 0 is prev
	// when hasPrev is set and the first new frame otherwise.
	position float64
	prev     []float32
	hasPrev  bool

	// matrix maps input to output channels when downmixing, one row per output
	matrix [][]float32

	mixed []float32
	out   []float32
}

// New creates a resampler from inputRate/inputChannels to outputRate/outputChannels
func New(inputRate, outputRate, inputChannels, outputChannels int) (*Resampler, error) {
	if inputRate <= 0 || outputRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates %d -> %d", inputRate, outputRate)
	}
	if inputChannels < 1 || inputChannels > audio.MaxChannels {
		return nil, fmt.Errorf("invalid input channel count %d", inputChannels)
	}
	if outputChannels < 1 || outputChannels > audio.MaxChannels {
		return nil, fmt.Errorf("invalid output channel count %d", outputChannels)
	}
	r := &Resampler{
		inputRate:      inputRate,
		outputRate:     outputRate,
		inputChannels:  inputChannels,
		outputChannels: outputChannels,
		ratio:          float64(inputRate) / float64(outputRate),
		prev:           make([]float32, outputChannels),
	}
	if outputChannels < inputChannels {
		r.matrix = downmixMatrix(inputChannels, outputChannels)
	}
	return r, nil
}

// InputChannels returns the interleaving of Process input
func (r *Resampler) InputChannels() int { return r.inputChannels }

// OutputChannels returns the interleaving of Process output
func (r *Resampler) OutputChannels() int { return r.outputChannels }

// Process converts interleaved input samples and returns interleaved output.
// The returned slice is reused by the next call.
func (r *Resampler) Process(input []float32) []float32 {
	frames := len(input) / r.inputChannels
	r.out = r.out[:0]
	if frames == 0 {
		return r.out
	}

	oc := r.outputChannels
	r.mixed = r.mixed[:0]
	passthrough := r.inputRate == r.outputRate
	if r.hasPrev && !passthrough {
		r.mixed = append(r.mixed, r.prev...)
	}
	for i := 0; i < frames; i++ {
		r.mixed = r.remix(r.mixed, input[i*r.inputChannels:(i+1)*r.inputChannels])
	}

	if passthrough {
		r.out = append(r.out, r.mixed...)
		return r.out
	}

	total := len(r.mixed) / oc
	for {
		idx := int(r.position)
		if idx+1 >= total {
			break
		}
		frac := float32(r.position - float64(idx))
		a := r.mixed[idx*oc : (idx+1)*oc]
		b := r.mixed[(idx+1)*oc : (idx+2)*oc]
		for ch := 0; ch < oc; ch++ {
			r.out = append(r.out, a[ch]+(b[ch]-a[ch])*frac)
		}
		r.position += r.ratio
	}

	// Keep the last frame so the next chunk interpolates across the boundary
	r.position -= float64(total - 1)
	copy(r.prev, r.mixed[(total-1)*oc:])
	r.hasPrev = true

	return r.out
}

// remix appends one input frame converted to the output channel count
func (r *Resampler) remix(dst []float32, in []float32) []float32 {
	ic, oc := r.inputChannels, r.outputChannels
	switch {
	case ic == oc:
		return append(dst, in...)
	case ic == 1:
		for ch := 0; ch < oc; ch++ {
			dst = append(dst, in[0])
		}
		return dst
	case oc < ic:
		for _, row := range r.matrix {
			var sum float32
			for j, gain := range row {
				sum += gain * in[j]
			}
			dst = append(dst, sum)
		}
		return dst
	default:
		dst = append(dst, in...)
		for ch := ic; ch < oc; ch++ {
			dst = append(dst, 0)
		}
		return dst
	}
}

// Reset drops buffered interpolation state
func (r *Resampler) Reset() {
	r.position = 0
	r.hasPrev = false
	for i := range r.prev {
		r.prev[i] = 0
	}
}

// OutputFramesNeeded estimates how many frames Process produces for inputFrames
func (r *Resampler) OutputFramesNeeded(inputFrames int) int {
	return int(float64(inputFrames)/r.ratio) + 1
}
