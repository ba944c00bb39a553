// ABOUTME: Tests for the null backend
// ABOUTME: Verifies the software clock drains the queue in real time
package output

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yako-player/yako-go/pkg/audio"
	"github.com/yako-player/yako-go/pkg/audio/queue"
)

func TestNullDefaults(t *testing.T) {
	n := NewNull()
	d, err := New(Config{Backend: n})
	require.NoError(t, err)
	assert.Equal(t, audio.DeviceFormat{SampleRate: 48000, Channels: 2, Format: audio.SampleFormatF32}, d.Format())
}

func TestNullHonorsPreferredFormat(t *testing.T) {
	pref := audio.DeviceFormat{SampleRate: 22050, Channels: 1, Format: audio.SampleFormatS16}
	d, err := New(Config{Backend: NewNull(), Format: pref})
	require.NoError(t, err)
	assert.Equal(t, pref, d.Format())
}

func TestNullDrainsQueue(t *testing.T) {
	q := queue.New(4800)
	frames := make([]audio.Frame, 4800)
	for i := range frames {
		frames[i] = audio.FromValues(0.1, 0.1)
	}
	q.PushRun(frames)

	n := NewNull()
	n.BlockFrames = 480
	d, err := New(Config{Backend: n, Queue: q})
	require.NoError(t, err)
	require.NoError(t, d.Open())
	require.NoError(t, d.Resume())
	defer d.Close()

	require.Eventually(t, func() bool { return q.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestNullFail(t *testing.T) {
	n := NewNull()
	d, err := New(Config{Backend: n})
	require.NoError(t, err)
	require.NoError(t, d.Open())
	defer d.Close()

	n.Fail(errors.New("simulated"))
	assert.False(t, d.Available())
	assert.ErrorIs(t, d.Resume(), ErrDeviceUnavailable)
}

func TestNullStopIsIdempotent(t *testing.T) {
	n := NewNull()
	_, err := New(Config{Backend: n})
	require.NoError(t, err)
	require.NoError(t, n.Start())
	require.NoError(t, n.Stop())
	require.NoError(t, n.Stop())
	require.NoError(t, n.Close())
}
