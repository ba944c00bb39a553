// ABOUTME: Decibel and volume level conversions
// ABOUTME: Maps a [0,1] volume level onto a perceptual gain curve
package audio

import "math"

const (
	// MinVolumeDb is the gain reached at volume level 0
	MinVolumeDb = -100.0

	volumeCurve = 4.397
)

// DbToAmplitude converts a decibel setting to a linear multiplier
func DbToAmplitude(db float64) float32 {
	return float32(math.Pow(10, db/20))
}

// LevelToDb maps a volume level in [0,1] to decibels.
// Level 1 is unity gain (0 dB) and level 0 is MinVolumeDb.
func LevelToDb(level float64) float64 {
	if level >= 1 {
		return 0
	}
	if level < 0 {
		level = 0
	}
	c := MinVolumeDb * math.Exp(-volumeCurve)
	db := (MinVolumeDb+c)*math.Exp(-volumeCurve*level) - c
	return math.Min(db, 0)
}
