package analysis

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/AlbertGeraldd/Face-Analysis-System/config"
)

// Display constants.
const (
	// DisplaySpeakingThreshold classifies intensity as speech.
	// Matches the sampler's local threshold.
	DisplaySpeakingThreshold = 0.25

	// maxLandmarkRows bounds the textual landmark listings.
	maxLandmarkRows = 10

	// Placeholder substitutes any region whose field failed to format.
	Placeholder = "-"

	percentScale = 100
)

// AUBar is one rendered action-unit bar.
type AUBar struct {
	Name    string
	Percent float64 // bar width, 0..100
	Label   string  // 2-decimal score
}

// OverlayPoint is one marker on the landmark overlay.
type OverlayPoint struct {
	Name string
	X, Y float64
}

// DisplayState is the full visualization state. The reducer returns a new
// state per message; regions not addressed by a message keep their prior
// content, and toggle-gated regions are actively blanked while disabled.
type DisplayState struct {
	FaceDetected bool
	FaceText     string

	MouthOpenRatio   string
	EyeOpenness      string
	EyebrowIntensity string

	AudioIntensity     float64
	AudioIntensityText string
	Speaking           bool

	ActionUnits []AUBar

	MicroExpressionsText   string
	AUMicroExpressionsText string

	LandmarksText           string
	NormalizedLandmarksText string
	SmoothedLandmarksText   string

	Overlay []OverlayPoint
}

// NewDisplayState returns the initial empty display.
func NewDisplayState() DisplayState {
	return DisplayState{
		FaceText:         "no",
		MouthOpenRatio:   Placeholder,
		EyeOpenness:      Placeholder,
		EyebrowIntensity: Placeholder,

		AudioIntensityText: Placeholder,

		MicroExpressionsText:   Placeholder,
		AUMicroExpressionsText: Placeholder,

		LandmarksText:           Placeholder,
		NormalizedLandmarksText: Placeholder,
		SmoothedLandmarksText:   Placeholder,
	}
}

// Reduce applies one analysis message to the prior display state. It is a
// pure function: present fields overwrite their regions, absent fields leave
// prior content untouched, with two exceptions: the landmark overlay clears
// when no face is detected and no landmarks are present, and toggle-gated
// regions are blanked while their toggle is off. A formatting failure in one
// region substitutes its placeholder without touching the others.
func Reduce(prior DisplayState, msg *Message, toggles config.DisplayConfig) DisplayState {
	next := prior

	if msg.Face != nil {
		next.FaceDetected = *msg.Face
		if *msg.Face {
			next.FaceText = "yes"
		} else {
			next.FaceText = "no"
		}
	}

	if msg.Features != nil {
		next.MouthOpenRatio = fmt.Sprintf("%.3f", msg.Features.MouthOpenRatio)
		next.EyeOpenness = fmt.Sprintf("%.3f", msg.Features.EyeOpenness)
		next.EyebrowIntensity = fmt.Sprintf("%.3f", msg.Features.EyebrowIntensity)
	}

	reduceAudio(&next, msg, toggles)
	reduceActionUnits(&next, msg, toggles)
	reduceMicroExpressions(&next, msg, toggles)
	reduceLandmarks(&next, msg, toggles)

	return next
}

func reduceAudio(next *DisplayState, msg *Message, toggles config.DisplayConfig) {
	if !toggles.ShowAudioBar {
		// Active suppression: the region is blanked, not left stale.
		next.AudioIntensity = 0
		next.AudioIntensityText = ""
		next.Speaking = false
		return
	}
	if msg.AudioIntensity == nil {
		return
	}
	next.AudioIntensity = *msg.AudioIntensity
	next.AudioIntensityText = fmt.Sprintf("%.3f", *msg.AudioIntensity)
	next.Speaking = *msg.AudioIntensity >= DisplaySpeakingThreshold
}

func reduceActionUnits(next *DisplayState, msg *Message, toggles config.DisplayConfig) {
	if !toggles.ShowActionUnits {
		next.ActionUnits = nil
		return
	}
	if msg.ActionUnits == nil {
		return
	}

	names := make([]string, 0, len(msg.ActionUnits))
	for name := range msg.ActionUnits {
		names = append(names, name)
	}
	sort.Strings(names)

	bars := make([]AUBar, 0, len(names))
	for _, name := range names {
		score := msg.ActionUnits[name].Score
		percent := score * percentScale
		if percent < 0 {
			percent = 0
		}
		if percent > percentScale {
			percent = percentScale
		}
		bars = append(bars, AUBar{
			Name:    name,
			Percent: percent,
			Label:   fmt.Sprintf("%.2f", score),
		})
	}
	next.ActionUnits = bars
}

func reduceMicroExpressions(next *DisplayState, msg *Message, toggles config.DisplayConfig) {
	if !toggles.ShowMicroExpressions {
		// Active suppression: the regions are blanked, not left stale.
		next.MicroExpressionsText = ""
		next.AUMicroExpressionsText = ""
		return
	}

	if msg.MicroExpressions != nil {
		compact, err := compactJSON(msg.MicroExpressions)
		if err != nil {
			next.MicroExpressionsText = Placeholder
		} else {
			next.MicroExpressionsText = compact
		}
	}

	if msg.AUMicroExpressions != nil {
		lines := make([]string, 0, len(msg.AUMicroExpressions))
		for _, ev := range msg.AUMicroExpressions {
			lines = append(lines, fmt.Sprintf("%s peak=%.2f dur=%.2fs @ %s",
				ev.AU, ev.Peak, ev.Duration, formatEpochSeconds(ev.StartTime)))
		}
		next.AUMicroExpressionsText = joinOrPlaceholder(lines)
	}
}

func reduceLandmarks(next *DisplayState, msg *Message, toggles config.DisplayConfig) {
	if msg.Landmarks != nil {
		next.LandmarksText = formatNamedPoints(msg.Landmarks)
	}

	if toggles.ShowNormalizedLandmarks {
		if msg.NormalizedLandmarks != nil {
			next.NormalizedLandmarksText = formatIndexedPoints(msg.NormalizedLandmarks)
		}
	} else {
		next.NormalizedLandmarksText = ""
	}

	if msg.SmoothedLandmarks != nil {
		next.SmoothedLandmarksText = formatIndexedPoints(msg.SmoothedLandmarks)
	}

	reduceOverlay(next, msg, toggles)
}

func reduceOverlay(next *DisplayState, msg *Message, toggles config.DisplayConfig) {
	if !toggles.ShowOverlay {
		next.Overlay = nil
		return
	}

	if len(msg.Landmarks) > 0 {
		next.Overlay = OverlayPoints(msg.Landmarks)
		return
	}

	// Explicit clear: no face and no landmarks this tick.
	if msg.Face != nil && !*msg.Face {
		next.Overlay = nil
	}
}

// OverlayPoints extracts drawable markers from a landmark set, skipping the
// reserved face_width key and points that failed to decode.
func OverlayPoints(landmarks map[string]Point) []OverlayPoint {
	names := make([]string, 0, len(landmarks))
	for name := range landmarks {
		if name == FaceWidthKey {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	points := make([]OverlayPoint, 0, len(names))
	for _, name := range names {
		p := landmarks[name]
		if !p.Valid() {
			continue
		}
		x, y := p.Coords()
		points = append(points, OverlayPoint{Name: name, X: x, Y: y})
	}
	return points
}

// formatNamedPoints renders up to maxLandmarkRows named points in key order.
func formatNamedPoints(landmarks map[string]Point) string {
	names := make([]string, 0, len(landmarks))
	for name := range landmarks {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > maxLandmarkRows {
		names = names[:maxLandmarkRows]
	}

	lines := make([]string, 0, len(names))
	for _, name := range names {
		p := landmarks[name]
		if !p.Valid() {
			lines = append(lines, name+": "+Placeholder)
			continue
		}
		x, y := p.Coords()
		lines = append(lines, fmt.Sprintf("%s: (%.1f, %.1f)", name, x, y))
	}
	return joinOrPlaceholder(lines)
}

// formatIndexedPoints renders up to maxLandmarkRows points by index.
func formatIndexedPoints(points []Point) string {
	n := len(points)
	if n > maxLandmarkRows {
		n = maxLandmarkRows
	}

	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		p := points[i]
		if !p.Valid() {
			lines = append(lines, fmt.Sprintf("%d: %s", i, Placeholder))
			continue
		}
		x, y := p.Coords()
		lines = append(lines, fmt.Sprintf("%d: (%.3f, %.3f)", i, x, y))
	}
	return joinOrPlaceholder(lines)
}

func joinOrPlaceholder(lines []string) string {
	if len(lines) == 0 {
		return Placeholder
	}
	out := lines[0]
	for _, line := range lines[1:] {
		out += "\n" + line
	}
	return out
}

func compactJSON(raw json.RawMessage) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// formatEpochSeconds renders an epoch-seconds value at millisecond precision.
func formatEpochSeconds(sec float64) string {
	ms := int64(sec * 1000)
	return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano)
}
