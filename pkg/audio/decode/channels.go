// ABOUTME: Channel order normalization for Ogg codecs
// ABOUTME: Maps Vorbis/Opus surround order onto WAVE order used downstream
package decode

// vorbisToWave gives, for each WAVE-order output channel, the Vorbis-order
// input channel. Mono, stereo and quad share both orders.
var vorbisToWave = map[int][]int{
	3: {0, 2, 1},
	5: {0, 2, 1, 3, 4},
	6: {0, 2, 1, 5, 3, 4},
	7: {0, 2, 1, 6, 5, 3, 4},
	8: {0, 2, 1, 7, 5, 6, 3, 4},
}

// reorderVorbis rewrites interleaved samples from Vorbis to WAVE channel order in place
func reorderVorbis(samples []float32, channels int) {
	perm, ok := vorbisToWave[channels]
	if !ok {
		return
	}
	var frame [8]float32
	for off := 0; off+channels <= len(samples); off += channels {
		copy(frame[:channels], samples[off:off+channels])
		for i, src := range perm {
			samples[off+i] = frame[src]
		}
	}
}
