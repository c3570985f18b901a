// Package audio derives loudness readings from raw PCM and feeds the
// outbound audio telemetry loop.
package audio

import (
	"encoding/binary"
	"math"
)

// Loudness mapping constants.
const (
	// DefaultFloorDB maps to intensity 0.
	DefaultFloorDB = -60.0
	// DefaultCeilingDB maps to intensity 1.
	DefaultCeilingDB = 0.0
	// SpeakingThreshold is the intensity above which audio counts as speech.
	SpeakingThreshold = 0.25

	// pcmBytesPerSample is the number of bytes per 16-bit PCM sample.
	pcmBytesPerSample = 2
	// pcmMaxAmplitude is the maximum amplitude for 16-bit signed audio.
	pcmMaxAmplitude = 32768.0
	// dbPerDecade is the RMS-to-decibel conversion factor.
	dbPerDecade = 20.0
)

// Reading is one loudness measurement.
type Reading struct {
	// Intensity is the floor-to-ceiling mapped loudness in [0,1].
	Intensity float64
	// DB is the raw decibel value. -Inf for digital silence.
	DB float64
	// Speaking reports Intensity >= SpeakingThreshold.
	Speaking bool
}

// Meter converts PCM windows into intensity readings.
// The zero value is not usable; call NewMeter.
type Meter struct {
	floorDB   float64
	ceilingDB float64
}

// NewMeter creates a meter mapping [floorDB, ceilingDB] onto [0,1].
// A non-negative floor or an inverted range falls back to the defaults.
func NewMeter(floorDB, ceilingDB float64) *Meter {
	if floorDB >= ceilingDB {
		floorDB = DefaultFloorDB
		ceilingDB = DefaultCeilingDB
	}
	return &Meter{floorDB: floorDB, ceilingDB: ceilingDB}
}

// Analyze computes the loudness reading for a window of 16-bit
// little-endian PCM samples. Non-finite decibel values map to intensity 0.
func (m *Meter) Analyze(pcm []byte) Reading {
	rms := calculateRMS(pcm)
	db := dbPerDecade * math.Log10(rms)

	intensity := 0.0
	if !math.IsInf(db, 0) && !math.IsNaN(db) {
		intensity = (db - m.floorDB) / (m.ceilingDB - m.floorDB)
		if intensity < 0 {
			intensity = 0
		}
		if intensity > 1 {
			intensity = 1
		}
	}

	return Reading{
		Intensity: intensity,
		DB:        db,
		Speaking:  intensity >= SpeakingThreshold,
	}
}

// calculateRMS computes the Root Mean Square of 16-bit PCM audio samples,
// normalized to [0,1].
func calculateRMS(pcm []byte) float64 {
	numSamples := len(pcm) / pcmBytesPerSample
	if numSamples == 0 {
		return 0
	}

	var sumSquares float64
	for i := 0; i < numSamples; i++ {
		// #nosec G115 -- overflow is intentional for signed PCM conversion
		sample := int16(binary.LittleEndian.Uint16(pcm[i*pcmBytesPerSample:]))
		normalized := float64(sample) / pcmMaxAmplitude
		sumSquares += normalized * normalized
	}
	return math.Sqrt(sumSquares / float64(numSamples))
}
