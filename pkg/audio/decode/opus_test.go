// ABOUTME: Tests for Ogg Opus header parsing
// ABOUTME: Uses hand-built Ogg pages rather than encoded audio
package decode

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func oggPage(granule int64, payload []byte) []byte {
	hdr := make([]byte, 27)
	copy(hdr, "OggS")
	binary.LittleEndian.PutUint64(hdr[6:14], uint64(granule))
	hdr[26] = 1
	page := append(hdr, byte(len(payload)))
	page = append(page, payload...)
	binary.LittleEndian.PutUint32(page[22:26], oggCRC(page))
	return page
}

func opusHeadPacket(channels byte, preSkip uint16) []byte {
	p := make([]byte, 19)
	copy(p, "OpusHead")
	p[8] = 1
	p[9] = channels
	binary.LittleEndian.PutUint16(p[10:12], preSkip)
	binary.LittleEndian.PutUint32(p[12:16], 48000)
	return p
}

func TestReadOpusHead(t *testing.T) {
	data := oggPage(0, opusHeadPacket(2, 312))
	head, err := readOpusHead(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2, head.channels)
	assert.Equal(t, int64(312), head.preSkip)
}

func TestReadOpusHeadRejectsOtherStreams(t *testing.T) {
	data := oggPage(0, append([]byte("\x01vorbis"), make([]byte, 20)...))
	_, err := readOpusHead(bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = readOpusHead(bytes.NewReader(make([]byte, 64)))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLastGranule(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(oggPage(0, opusHeadPacket(1, 0)))
	buf.Write(oggPage(48000, []byte{1, 2, 3}))
	buf.Write(oggPage(96312, []byte{4, 5, 6}))

	path := filepath.Join(t.TempDir(), "pages.opus")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	granule, err := lastGranule(f)
	require.NoError(t, err)
	assert.Equal(t, int64(96312), granule)
}

func TestLastPageGranuleIgnoresCaptureInPayload(t *testing.T) {
	// A final packet whose bytes look like the start of another page
	fake := make([]byte, 27)
	copy(fake, "OggS")
	binary.LittleEndian.PutUint64(fake[6:14], 1<<40)

	var buf bytes.Buffer
	buf.Write(oggPage(48000, []byte{1, 2, 3}))
	buf.Write(oggPage(96000, append(fake, 9, 9, 9)))

	granule, err := lastPageGranule(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, int64(96000), granule)
}

func TestLastPageGranuleSkipsDamagedPages(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(oggPage(48000, []byte{1, 2, 3}))
	damaged := oggPage(96000, []byte{4, 5, 6})
	damaged[len(damaged)-1] ^= 0xff
	buf.Write(damaged)

	granule, err := lastPageGranule(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, int64(48000), granule)

	_, err = lastPageGranule([]byte("no pages here, just OggS"))
	assert.Error(t, err)
}

func TestOggCRCKnownPage(t *testing.T) {
	page := oggPage(0, opusHeadPacket(2, 312))
	assert.Equal(t, binary.LittleEndian.Uint32(page[22:26]), oggCRC(page))

	// The checksum field itself is excluded from the sum
	other := append([]byte(nil), page...)
	binary.LittleEndian.PutUint32(other[22:26], 0xdeadbeef)
	assert.Equal(t, oggCRC(page), oggCRC(other))
}

func TestOpusSeekFailureKeepsStreamUsable(t *testing.T) {
	s := &opusStream{
		path:     filepath.Join(t.TempDir(), "removed.opus"),
		clock:    clock{rate: opusSampleRate},
		channels: 2,
		samples:  make([]float32, opusMaxFrame*2),
	}

	err := s.Seek(time.Second)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = s.ReadPacket()
	assert.ErrorIs(t, err, ErrStreamClosed)
	assert.NoError(t, s.Close())
}
