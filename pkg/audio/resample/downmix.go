// ABOUTME: Channel downmix matrices for multichannel sources
// ABOUTME: Folds surround layouts to stereo or mono and leaves out the LFE channel
package resample

// Speaker positions
const (
	speakerL = iota
	speakerR
	speakerC
	speakerLFE
	speakerBL
	speakerBR
	speakerBC
	speakerSL
	speakerSR
)

// waveLayouts lists speaker positions in WAVE channel order by channel count.
// Decoders deliver this order.
var waveLayouts = map[int][]int{
	3: {speakerL, speakerR, speakerC},
	4: {speakerL, speakerR, speakerBL, speakerBR},
	5: {speakerL, speakerR, speakerC, speakerBL, speakerBR},
	6: {speakerL, speakerR, speakerC, speakerLFE, speakerBL, speakerBR},
	7: {speakerL, speakerR, speakerC, speakerLFE, speakerBC, speakerSL, speakerSR},
	8: {speakerL, speakerR, speakerC, speakerLFE, speakerBL, speakerBR, speakerSL, speakerSR},
}

// -3 dB
const minus3dB = 0.70710678

// stereoGains returns the left and right gain of a speaker
func stereoGains(speaker int) (left, right float32) {
	switch speaker {
	case speakerL:
		return 1, 0
	case speakerR:
		return 0, 1
	case speakerC, speakerBC:
		return minus3dB, minus3dB
	case speakerBL, speakerSL:
		return minus3dB, 0
	case speakerBR, speakerSR:
		return 0, minus3dB
	default:
		return 0, 0
	}
}

// downmixMatrix builds an outputs x inputs gain matrix for ic > oc. Known
// surround layouts use the usual -3 dB center and surround gains when going
// to stereo or mono. Anything else folds channel j onto output j%oc. The LFE
// channel is left out, and each row is normalized to a gain sum of 1 so a
// full-scale input cannot clip.
func downmixMatrix(ic, oc int) [][]float32 {
	m := make([][]float32, oc)
	for i := range m {
		m[i] = make([]float32, ic)
	}

	layout, known := waveLayouts[ic]
	if known && oc <= 2 {
		for j, speaker := range layout {
			left, right := stereoGains(speaker)
			if oc == 1 {
				m[0][j] = (left + right) / 2
			} else {
				m[0][j], m[1][j] = left, right
			}
		}
	} else {
		for j := 0; j < ic; j++ {
			if known && layout[j] == speakerLFE {
				continue
			}
			m[j%oc][j] = 1
		}
	}

	for _, row := range m {
		var sum float32
		for _, gain := range row {
			sum += gain
		}
		if sum > 0 {
			for j := range row {
				row[j] /= sum
			}
		}
	}
	return m
}
