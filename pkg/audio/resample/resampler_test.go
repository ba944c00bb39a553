// ABOUTME: Tests for the streaming resampler
// ABOUTME: Covers rate conversion, channel remixing, chunk continuity and Reset
package resample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(frames, channels int) []float32 {
	out := make([]float32, frames*channels)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			out[i*channels+ch] = float32(i) / 100
		}
	}
	return out
}

func TestNewValidates(t *testing.T) {
	_, err := New(0, 48000, 2, 2)
	assert.Error(t, err)
	_, err = New(44100, 48000, 9, 2)
	assert.Error(t, err)
	_, err = New(44100, 48000, 2, 0)
	assert.Error(t, err)

	r, err := New(44100, 48000, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, r.InputChannels())
	assert.Equal(t, 2, r.OutputChannels())
}

func TestPassthrough(t *testing.T) {
	r, err := New(48000, 48000, 2, 2)
	require.NoError(t, err)

	in := ramp(10, 2)
	assert.Equal(t, in, r.Process(in))
}

func TestUpsampleDoublesFrames(t *testing.T) {
	r, err := New(24000, 48000, 1, 1)
	require.NoError(t, err)

	out := r.Process([]float32{0, 1, 2, 3})
	// Interpolated points up to but not including the last input frame
	assert.Equal(t, []float32{0, 0.5, 1, 1.5, 2, 2.5}, out)

	// The boundary frame is carried into the next chunk
	out = r.Process([]float32{4})
	assert.Equal(t, []float32{3, 3.5}, out)
}

func TestDownsampleHalvesFrames(t *testing.T) {
	r, err := New(96000, 48000, 1, 1)
	require.NoError(t, err)

	out := r.Process([]float32{0, 1, 2, 3, 4, 5, 6, 7, 8})
	assert.Equal(t, []float32{0, 2, 4, 6}, out)
}

func TestChunkedMatchesWhole(t *testing.T) {
	in := ramp(200, 2)

	whole, err := New(24000, 48000, 2, 2)
	require.NoError(t, err)
	expected := append([]float32(nil), whole.Process(in)...)

	chunked, err := New(24000, 48000, 2, 2)
	require.NoError(t, err)
	var got []float32
	for start := 0; start < 200; start += 37 {
		end := start + 37
		if end > 200 {
			end = 200
		}
		got = append(got, chunked.Process(in[start*2:end*2])...)
	}

	assert.Equal(t, expected, got)
}

func TestMonoToStereo(t *testing.T) {
	r, err := New(48000, 48000, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5, -0.25, -0.25}, r.Process([]float32{0.5, -0.25}))
}

func TestStereoToMono(t *testing.T) {
	r, err := New(48000, 48000, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0}, r.Process([]float32{1, 0, 0.5, -0.5}))
}

func TestSurroundToStereoDropsLFE(t *testing.T) {
	r, err := New(48000, 48000, 6, 2)
	require.NoError(t, err)

	norm := float32(1 + 2*minus3dB)
	tests := []struct {
		name  string
		frame []float32
		left  float32
		right float32
	}{
		{"left", []float32{1, 0, 0, 0, 0, 0}, 1 / norm, 0},
		{"right", []float32{0, 1, 0, 0, 0, 0}, 0, 1 / norm},
		{"center", []float32{0, 0, 1, 0, 0, 0}, minus3dB / norm, minus3dB / norm},
		{"lfe", []float32{0, 0, 0, 1, 0, 0}, 0, 0},
		{"back left", []float32{0, 0, 0, 0, 1, 0}, minus3dB / norm, 0},
		{"back right", []float32{0, 0, 0, 0, 0, 1}, 0, minus3dB / norm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := r.Process(tt.frame)
			require.Len(t, out, 2)
			assert.InDelta(t, tt.left, out[0], 1e-6)
			assert.InDelta(t, tt.right, out[1], 1e-6)
		})
	}
}

func TestSurroundFullScaleDoesNotClip(t *testing.T) {
	for _, oc := range []int{1, 2} {
		r, err := New(48000, 48000, 8, oc)
		require.NoError(t, err)
		for _, v := range r.Process([]float32{1, 1, 1, 1, 1, 1, 1, 1}) {
			assert.InDelta(t, 1, v, 1e-6)
		}
	}
}

func TestSurroundToMonoDropsLFE(t *testing.T) {
	r, err := New(48000, 48000, 6, 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{0}, r.Process([]float32{0, 0, 0, 1, 0, 0}))
}

func TestStereoToQuadPadsSilence(t *testing.T) {
	r, err := New(48000, 48000, 2, 4)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, -0.25, 0, 0}, r.Process([]float32{0.25, -0.25}))
}

func TestResetDropsBoundaryFrame(t *testing.T) {
	r, err := New(24000, 48000, 1, 1)
	require.NoError(t, err)

	r.Process([]float32{0, 1, 2, 3})
	r.Reset()

	// After a reset the first new frame starts a fresh stream
	out := r.Process([]float32{10, 11})
	assert.Equal(t, []float32{10, 10.5}, out)
}

func TestEmptyInput(t *testing.T) {
	r, err := New(44100, 48000, 2, 2)
	require.NoError(t, err)
	assert.Empty(t, r.Process(nil))
	assert.Empty(t, r.Process([]float32{0.1}))
}

func TestOutputFramesNeeded(t *testing.T) {
	r, err := New(24000, 48000, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 201, r.OutputFramesNeeded(100))
}
