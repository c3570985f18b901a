package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlbertGeraldd/Face-Analysis-System/config"
)

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }

func TestReduce_FullMessage(t *testing.T) {
	msg := &Message{
		Face:           boolPtr(true),
		Features:       &Features{MouthOpenRatio: 0.4219, EyeOpenness: 0.85, EyebrowIntensity: 0.1},
		AudioIntensity: floatPtr(0.6),
		ActionUnits: map[string]ActionUnit{
			"AU12": {Score: 0.76},
			"AU04": {Score: 0.25},
		},
		Landmarks: map[string]Point{
			"nose_tip": Pt(320, 240),
			"left_eye": Pt(280, 200),
		},
	}

	next := Reduce(NewDisplayState(), msg, config.DefaultDisplayConfig())

	assert.True(t, next.FaceDetected)
	assert.Equal(t, "yes", next.FaceText)
	assert.Equal(t, "0.422", next.MouthOpenRatio)
	assert.Equal(t, "0.850", next.EyeOpenness)
	assert.Equal(t, "0.600", next.AudioIntensityText)
	assert.True(t, next.Speaking)

	require.Len(t, next.ActionUnits, 2)
	assert.Equal(t, "AU04", next.ActionUnits[0].Name, "bars sort by name")
	assert.Equal(t, 25.0, next.ActionUnits[0].Percent)
	assert.Equal(t, "0.76", next.ActionUnits[1].Label)

	require.Len(t, next.Overlay, 2)
	assert.Equal(t, "left_eye", next.Overlay[0].Name)
}

func TestReduce_AbsentFieldsKeepPriorContent(t *testing.T) {
	prior := Reduce(NewDisplayState(), &Message{
		Face:     boolPtr(true),
		Features: &Features{MouthOpenRatio: 0.5},
		Landmarks: map[string]Point{
			"nose_tip": Pt(1, 2),
		},
	}, config.DefaultDisplayConfig())

	// The follow-up only carries audio: everything else stays put.
	next := Reduce(prior, &Message{AudioIntensity: floatPtr(0.1)}, config.DefaultDisplayConfig())

	assert.Equal(t, prior.FaceText, next.FaceText)
	assert.Equal(t, prior.MouthOpenRatio, next.MouthOpenRatio)
	assert.Equal(t, prior.LandmarksText, next.LandmarksText)
	assert.Equal(t, prior.Overlay, next.Overlay)
	assert.Equal(t, "0.100", next.AudioIntensityText)
	assert.False(t, next.Speaking)
}

func TestReduce_SpeakingThreshold(t *testing.T) {
	toggles := config.DefaultDisplayConfig()

	below := Reduce(NewDisplayState(), &Message{AudioIntensity: floatPtr(0.24)}, toggles)
	assert.False(t, below.Speaking)

	at := Reduce(NewDisplayState(), &Message{AudioIntensity: floatPtr(0.25)}, toggles)
	assert.True(t, at.Speaking)
}

func TestReduce_ActionUnitPercentClamped(t *testing.T) {
	msg := &Message{ActionUnits: map[string]ActionUnit{
		"AU01": {Score: 1.7},
		"AU02": {Score: -0.3},
	}}

	next := Reduce(NewDisplayState(), msg, config.DefaultDisplayConfig())

	require.Len(t, next.ActionUnits, 2)
	assert.Equal(t, 100.0, next.ActionUnits[0].Percent)
	assert.Equal(t, "1.70", next.ActionUnits[0].Label, "label keeps the raw score")
	assert.Equal(t, 0.0, next.ActionUnits[1].Percent)
}

func TestReduce_TogglesBlankGatedRegions(t *testing.T) {
	full := Reduce(NewDisplayState(), &Message{
		ActionUnits:         map[string]ActionUnit{"AU12": {Score: 0.5}},
		AUMicroExpressions:  []MicroExpressionEvent{{AU: "AU12", StartTime: 100, Duration: 0.2, Peak: 0.8}},
		NormalizedLandmarks: []Point{Pt(0.5, 0.5)},
		Landmarks:           map[string]Point{"nose_tip": Pt(1, 2)},
	}, config.DefaultDisplayConfig())

	require.NotEmpty(t, full.ActionUnits)
	require.NotEmpty(t, full.Overlay)

	off := config.DisplayConfig{ShowAudioBar: true} // everything else disabled

	// Re-reducing with an empty message blanks the gated regions instead of
	// leaving stale content behind.
	next := Reduce(full, &Message{}, off)

	assert.Nil(t, next.ActionUnits)
	assert.Empty(t, next.MicroExpressionsText)
	assert.Empty(t, next.AUMicroExpressionsText)
	assert.Empty(t, next.NormalizedLandmarksText)
	assert.Nil(t, next.Overlay)

	// Ungated regions survive.
	assert.Equal(t, full.LandmarksText, next.LandmarksText)
}

func TestReduce_AudioBarToggleBlanksRegion(t *testing.T) {
	toggles := config.DefaultDisplayConfig()
	prior := Reduce(NewDisplayState(), &Message{AudioIntensity: floatPtr(0.6)}, toggles)
	require.Equal(t, "0.600", prior.AudioIntensityText)
	require.True(t, prior.Speaking)

	toggles.ShowAudioBar = false
	next := Reduce(prior, &Message{AudioIntensity: floatPtr(0.6)}, toggles)

	assert.Zero(t, next.AudioIntensity)
	assert.Empty(t, next.AudioIntensityText)
	assert.False(t, next.Speaking)

	// Re-enabling renders the region again on the next message.
	toggles.ShowAudioBar = true
	back := Reduce(next, &Message{AudioIntensity: floatPtr(0.3)}, toggles)
	assert.Equal(t, "0.300", back.AudioIntensityText)
	assert.True(t, back.Speaking)
}

func TestReduce_OverlayClearsWhenFaceLost(t *testing.T) {
	toggles := config.DefaultDisplayConfig()
	prior := Reduce(NewDisplayState(), &Message{
		Face:      boolPtr(true),
		Landmarks: map[string]Point{"nose_tip": Pt(1, 2)},
	}, toggles)
	require.NotEmpty(t, prior.Overlay)

	next := Reduce(prior, &Message{Face: boolPtr(false)}, toggles)
	assert.Nil(t, next.Overlay)
	assert.Equal(t, "no", next.FaceText)
}

func TestReduce_MicroExpressionsRenderOpaqueJSON(t *testing.T) {
	next := Reduce(NewDisplayState(), &Message{
		MicroExpressions: []byte(`{"happy":   0.9}`),
	}, config.DefaultDisplayConfig())

	assert.Equal(t, `{"happy":0.9}`, next.MicroExpressionsText)
}

func TestReduce_MalformedRegionGetsPlaceholder(t *testing.T) {
	next := Reduce(NewDisplayState(), &Message{
		Face:             boolPtr(true),
		MicroExpressions: []byte(`{broken`),
	}, config.DefaultDisplayConfig())

	assert.Equal(t, Placeholder, next.MicroExpressionsText)
	assert.Equal(t, "yes", next.FaceText, "one bad region never touches the others")
}

func TestOverlayPoints_SkipsFaceWidthAndInvalid(t *testing.T) {
	landmarks := map[string]Point{
		"nose_tip":   Pt(320, 240),
		FaceWidthKey: {},
		"bad_point":  {},
	}

	points := OverlayPoints(landmarks)
	require.Len(t, points, 1)
	assert.Equal(t, "nose_tip", points[0].Name)
}

func TestFormatIndexedPoints_TruncatesToTen(t *testing.T) {
	points := make([]Point, 25)
	for i := range points {
		points[i] = Pt(float64(i), float64(i))
	}

	next := Reduce(NewDisplayState(), &Message{SmoothedLandmarks: points}, config.DefaultDisplayConfig())

	lines := 1
	for _, c := range next.SmoothedLandmarksText {
		if c == '\n' {
			lines++
		}
	}
	assert.Equal(t, maxLandmarkRows, lines)
}

func TestNewDisplayState_Placeholders(t *testing.T) {
	s := NewDisplayState()

	assert.Equal(t, "no", s.FaceText)
	assert.Equal(t, Placeholder, s.MouthOpenRatio)
	assert.Equal(t, Placeholder, s.AudioIntensityText)
	assert.Equal(t, Placeholder, s.LandmarksText)
	assert.False(t, s.Speaking)
}
