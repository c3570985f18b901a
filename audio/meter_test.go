package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

// pcmSine renders n samples of a full-scale-scaled sine as 16-bit LE PCM.
func pcmSine(n int, amplitude float64) []byte {
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		sample := int16(amplitude * 32767 * math.Sin(2*math.Pi*float64(i)/64))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(sample))
	}
	return buf
}

func TestMeterAnalyze_Silence(t *testing.T) {
	m := NewMeter(DefaultFloorDB, DefaultCeilingDB)

	r := m.Analyze(make([]byte, 3200))
	if r.Intensity != 0 {
		t.Errorf("silence intensity = %v, want 0", r.Intensity)
	}
	if !math.IsInf(r.DB, -1) {
		t.Errorf("silence dB = %v, want -Inf", r.DB)
	}
	if r.Speaking {
		t.Error("silence must not count as speaking")
	}
}

func TestMeterAnalyze_EmptyWindow(t *testing.T) {
	m := NewMeter(DefaultFloorDB, DefaultCeilingDB)

	r := m.Analyze(nil)
	if r.Intensity != 0 {
		t.Errorf("empty window intensity = %v, want 0", r.Intensity)
	}
	if r.Speaking {
		t.Error("empty window must not count as speaking")
	}
}

func TestMeterAnalyze_LoudTone(t *testing.T) {
	m := NewMeter(DefaultFloorDB, DefaultCeilingDB)

	r := m.Analyze(pcmSine(1600, 1.0))
	// A full-scale sine has RMS 1/sqrt(2), about -3 dB, which maps near the
	// top of the -60..0 range.
	if r.Intensity < 0.9 || r.Intensity > 1 {
		t.Errorf("full-scale intensity = %v, want in [0.9, 1]", r.Intensity)
	}
	if !r.Speaking {
		t.Error("full-scale tone must count as speaking")
	}
}

func TestMeterAnalyze_IntensityBounds(t *testing.T) {
	m := NewMeter(DefaultFloorDB, DefaultCeilingDB)

	amplitudes := []float64{0, 0.0001, 0.001, 0.01, 0.1, 0.5, 1.0}
	for _, amp := range amplitudes {
		r := m.Analyze(pcmSine(1600, amp))
		if r.Intensity < 0 || r.Intensity > 1 {
			t.Errorf("amplitude %v: intensity = %v, want in [0,1]", amp, r.Intensity)
		}
	}
}

func TestMeterAnalyze_SpeakingThreshold(t *testing.T) {
	m := NewMeter(DefaultFloorDB, DefaultCeilingDB)

	quiet := m.Analyze(pcmSine(1600, 0.0005))
	if quiet.Intensity >= SpeakingThreshold {
		t.Fatalf("quiet intensity = %v, want below %v", quiet.Intensity, SpeakingThreshold)
	}
	if quiet.Speaking {
		t.Error("quiet reading reported speaking")
	}

	loud := m.Analyze(pcmSine(1600, 0.5))
	if loud.Intensity < SpeakingThreshold {
		t.Fatalf("loud intensity = %v, want at least %v", loud.Intensity, SpeakingThreshold)
	}
	if !loud.Speaking {
		t.Error("loud reading did not report speaking")
	}
}

func TestNewMeter_InvertedRangeFallsBack(t *testing.T) {
	m := NewMeter(0, -60)

	if m.floorDB != DefaultFloorDB {
		t.Errorf("floorDB = %v, want %v", m.floorDB, DefaultFloorDB)
	}
	if m.ceilingDB != DefaultCeilingDB {
		t.Errorf("ceilingDB = %v, want %v", m.ceilingDB, DefaultCeilingDB)
	}
}

func TestCalculateRMS_KnownValue(t *testing.T) {
	// Constant amplitude has RMS equal to that amplitude.
	buf := make([]byte, 200)
	for i := 0; i < 100; i++ {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(16384)))
	}

	rms := calculateRMS(buf)
	want := 16384.0 / 32768.0
	if math.Abs(rms-want) > 1e-9 {
		t.Errorf("rms = %v, want %v", rms, want)
	}
}
