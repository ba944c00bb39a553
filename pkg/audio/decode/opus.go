// ABOUTME: Ogg Opus stream backed by hraban/opus
// ABOUTME: Always decodes at 48kHz; header fields are read from the Ogg pages
package decode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/yako-player/yako-go/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

const (
	opusSampleRate = 48000
	// 120ms at 48kHz is the largest Opus frame
	opusMaxFrame = 5760
	// how far from the end to look for the final granule position
	opusTailScan  = 64 * 1024
	oggHeaderSize = 27
)

var oggCapture = []byte("OggS")

type opusStream struct {
	path     string
	file     *os.File
	stream   *opus.Stream
	clock    clock
	channels int
	preSkip  int64
	total    int64
	samples  []float32
}

// OpenOpus opens an Ogg Opus file
func OpenOpus(path string) (Stream, error) {
	s := &opusStream{path: path, clock: clock{rate: opusSampleRate}}
	if err := s.open(); err != nil {
		return nil, err
	}

	head, err := readOpusHead(s.file)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.channels = head.channels
	s.preSkip = head.preSkip
	if granule, err := lastGranule(s.file); err == nil && granule > s.preSkip {
		s.total = granule - s.preSkip
	}
	s.samples = make([]float32, opusMaxFrame*s.channels)
	return s, nil
}

func (s *opusStream) open() error {
	f, stream, err := openOpusStream(s.path)
	if err != nil {
		return err
	}
	s.file = f
	s.stream = stream
	return nil
}

func openOpusStream(path string) (*os.File, *opus.Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Opus file: %w", err)
	}
	stream, err := opus.NewStream(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("failed to decode Opus: %w", err)
	}
	return f, stream, nil
}

func (s *opusStream) Format() audio.Format {
	return audio.Format{Codec: "opus", SampleRate: opusSampleRate, Channels: s.channels}
}

func (s *opusStream) ReadPacket() (Packet, error) {
	if s.stream == nil {
		return Packet{}, ErrStreamClosed
	}
	n, err := s.stream.ReadFloat32(s.samples)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Packet{}, io.EOF
		}
		return Packet{}, fmt.Errorf("opus decode error: %w", err)
	}
	if n == 0 {
		return Packet{}, io.EOF
	}

	pkt := Packet{Timestamp: s.clock.timestamp(), Samples: s.samples[:n*s.channels]}
	reorderVorbis(pkt.Samples, s.channels)
	s.clock.advance(n)
	return pkt, nil
}

// Seek reopens the stream and decodes forward; opusfile seeking is not exposed.
// The current stream stays in place when the reopen fails.
func (s *opusStream) Seek(pos time.Duration) error {
	target := durationToFrames(pos, opusSampleRate)
	f, stream, err := openOpusStream(s.path)
	if err != nil {
		return fmt.Errorf("opus seek failed: %w", err)
	}
	_ = s.closeStream()
	s.file, s.stream = f, stream
	s.clock.position = 0

	for s.clock.position < target {
		n, err := s.stream.ReadFloat32(s.samples)
		if err != nil || n == 0 {
			break
		}
		s.clock.advance(n)
	}
	return nil
}

func (s *opusStream) Duration() time.Duration {
	return framesToDuration(s.total, opusSampleRate)
}

func (s *opusStream) closeStream() error {
	var err error
	if s.stream != nil {
		err = s.stream.Close()
		s.stream = nil
	}
	if s.file != nil {
		// opus.Stream.Close may already have closed the reader
		if cerr := s.file.Close(); err == nil && !errors.Is(cerr, os.ErrClosed) {
			err = cerr
		}
		s.file = nil
	}
	return err
}

func (s *opusStream) Close() error {
	return s.closeStream()
}

type opusHead struct {
	channels int
	preSkip  int64
}

// readOpusHead parses the identification header on the first Ogg page
func readOpusHead(r io.ReaderAt) (opusHead, error) {
	page := make([]byte, oggHeaderSize+255)
	if _, err := r.ReadAt(page, 0); err != nil && !errors.Is(err, io.EOF) {
		return opusHead{}, fmt.Errorf("failed to read Ogg page: %w", err)
	}
	if !bytes.Equal(page[:4], oggCapture) {
		return opusHead{}, fmt.Errorf("%w: missing Ogg capture pattern", ErrUnsupportedFormat)
	}

	segments := int64(page[26])
	head := make([]byte, 19)
	if _, err := r.ReadAt(head, oggHeaderSize+segments); err != nil {
		return opusHead{}, fmt.Errorf("failed to read OpusHead: %w", err)
	}
	if !bytes.Equal(head[:8], []byte("OpusHead")) {
		return opusHead{}, fmt.Errorf("%w: missing OpusHead", ErrUnsupportedFormat)
	}

	channels := int(head[9])
	if channels < 1 || channels > audio.MaxChannels {
		return opusHead{}, fmt.Errorf("%w: %d Opus channels", ErrUnsupportedFormat, channels)
	}
	return opusHead{
		channels: channels,
		preSkip:  int64(binary.LittleEndian.Uint16(head[10:12])),
	}, nil
}

// lastGranule returns the granule position of the final Ogg page
func lastGranule(f *os.File) (int64, error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}
	start := fi.Size() - opusTailScan
	if start < 0 {
		start = 0
	}
	tail := make([]byte, fi.Size()-start)
	if _, err := f.ReadAt(tail, start); err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}

	return lastPageGranule(tail)
}

// lastPageGranule scans backwards for the last complete Ogg page whose CRC
// checks out. A capture pattern inside packet data fails the CRC.
func lastPageGranule(b []byte) (int64, error) {
	for end := len(b); end > 0; {
		idx := bytes.LastIndex(b[:end], oggCapture)
		if idx < 0 {
			break
		}
		if granule, ok := parseOggPage(b[idx:]); ok {
			return granule, nil
		}
		end = idx
	}
	return 0, errors.New("no Ogg page found")
}

// parseOggPage validates the page at the start of b and returns its granule
// position. Pages that complete no packet carry granule -1 and are skipped.
func parseOggPage(b []byte) (int64, bool) {
	if len(b) < oggHeaderSize || b[4] != 0 || b[5]&^0x07 != 0 {
		return 0, false
	}
	segments := int(b[26])
	if len(b) < oggHeaderSize+segments {
		return 0, false
	}
	size := oggHeaderSize + segments
	for _, lacing := range b[oggHeaderSize : oggHeaderSize+segments] {
		size += int(lacing)
	}
	if len(b) < size {
		return 0, false
	}
	if binary.LittleEndian.Uint32(b[22:26]) != oggCRC(b[:size]) {
		return 0, false
	}
	granule := int64(binary.LittleEndian.Uint64(b[6:14]))
	if granule < 0 {
		return 0, false
	}
	return granule, true
}

var oggCRCTable = func() (t [256]uint32) {
	for i := range t {
		r := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if r&0x80000000 != 0 {
				r = r<<1 ^ 0x04c11db7
			} else {
				r <<= 1
			}
		}
		t[i] = r
	}
	return t
}()

// oggCRC is the Ogg page checksum: CRC-32 with polynomial 0x04c11db7, no
// reflection, computed with the checksum field zeroed
func oggCRC(page []byte) uint32 {
	var crc uint32
	for i, b := range page {
		if i >= 22 && i < 26 {
			b = 0
		}
		crc = crc<<8 ^ oggCRCTable[byte(crc>>24)^b]
	}
	return crc
}
