// ABOUTME: Audio decoder package for file playback
// ABOUTME: Provides the Stream interface and MP3, FLAC, Vorbis, Opus, WAV, AIFF backends
// Package decode opens media files as seekable streams of float32 packets.
//
// Supports: MP3, FLAC, Ogg Vorbis, Ogg Opus, WAV (PCM) and AIFF, plus a
// generated test tone addressed as "tone:<hz>".
//
// Every backend implements Stream and yields interleaved float32 samples in
// [-1, 1] at the source's native rate and channel count, tagged with the
// presentation time of their first frame.
//
// Example:
//
//	stream, info, err := decode.Open("song.flac")
//	for {
//	    pkt, err := stream.ReadPacket()
//	    if err == io.EOF {
//	        break
//	    }
//	    // pkt.Samples, pkt.Timestamp
//	}
package decode
