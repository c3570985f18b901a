// Package analysis consumes decoded backend messages, reduces them onto a
// display state, and aggregates contextual events into an exportable timeline.
package analysis

import (
	"encoding/json"
	"fmt"
)

// FaceWidthKey is the reserved landmark key carrying a scalar face width
// instead of a coordinate. It is never drawn on the overlay.
const FaceWidthKey = "face_width"

// Message is one inbound analysis snapshot. Every payload field is optional;
// an absent field means "no update this tick", not "cleared".
type Message struct {
	Face                *bool                 `json:"face,omitempty"`
	Features            *Features             `json:"features,omitempty"`
	AudioIntensity      *float64              `json:"audio_intensity,omitempty"`
	ActionUnits         map[string]ActionUnit `json:"action_units,omitempty"`
	AUMicroExpressions  []MicroExpressionEvent `json:"au_micro_expressions,omitempty"`
	MicroExpressions    json.RawMessage       `json:"micro_expressions,omitempty"`
	ContextualEvents    []ContextualEvent     `json:"contextual_events,omitempty"`
	Landmarks           map[string]Point      `json:"landmarks,omitempty"`
	NormalizedLandmarks []Point               `json:"normalized_landmarks,omitempty"`
	SmoothedLandmarks   []Point               `json:"smoothed_normalized_landmarks,omitempty"`
}

// Features are the numeric face ratios computed by the backend.
// Absent sub-fields decode to 0.
type Features struct {
	MouthOpenRatio   float64 `json:"mouth_open_ratio"`
	EyeOpenness      float64 `json:"eye_openness"`
	EyebrowIntensity float64 `json:"eyebrow_intensity"`
}

// ActionUnit is one named facial action unit score.
type ActionUnit struct {
	Score float64 `json:"score"`
}

// MicroExpressionEvent is one detected action-unit micro-expression.
type MicroExpressionEvent struct {
	AU        string  `json:"au"`
	StartTime float64 `json:"start_time"` // seconds since epoch
	Duration  float64 `json:"duration"`   // seconds
	Peak      float64 `json:"peak"`
}

// ContextualEvent is one backend contextual event. The backend labels the
// event with either "type" or "au", stamps it with either "start_time" or
// "timestamp" (seconds since epoch), and scores it with either "score" or
// "peak".
type ContextualEvent struct {
	Type      string   `json:"type,omitempty"`
	AU        string   `json:"au,omitempty"`
	StartTime float64  `json:"start_time,omitempty"`
	Timestamp float64  `json:"timestamp,omitempty"`
	Score     *float64 `json:"score,omitempty"`
	Peak      *float64 `json:"peak,omitempty"`
}

// Kind returns the event label, preferring "type" over "au".
func (e ContextualEvent) Kind() string {
	if e.Type != "" {
		return e.Type
	}
	if e.AU != "" {
		return e.AU
	}
	return "event"
}

// EpochSeconds returns the event time, preferring "start_time" over "timestamp".
func (e ContextualEvent) EpochSeconds() float64 {
	if e.StartTime != 0 {
		return e.StartTime
	}
	return e.Timestamp
}

// ScoreValue returns the event score, preferring "score" over "peak".
// Events with neither score to 0.
func (e ContextualEvent) ScoreValue() float64 {
	if e.Score != nil {
		return *e.Score
	}
	if e.Peak != nil {
		return *e.Peak
	}
	return 0
}

// Point is a landmark coordinate. The backend encodes points either as a
// 2-element ordered pair [x,y] or as an {"x":..,"y":..} record; both decode
// transparently. Any other shape (including the face_width scalar) decodes
// to an invalid point rather than failing the whole message.
type Point struct {
	X, Y  float64
	valid bool
}

// Pt constructs a valid point. Used by tests and the overlay renderer.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y, valid: true}
}

// Valid reports whether the point decoded to a usable coordinate.
func (p Point) Valid() bool {
	return p.valid
}

// Coords returns the point's coordinates.
func (p Point) Coords() (x, y float64) {
	return p.X, p.Y
}

// UnmarshalJSON accepts both point encodings.
func (p *Point) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) >= 2 {
			*p = Point{X: pair[0], Y: pair[1], valid: true}
		} else {
			*p = Point{}
		}
		return nil
	}

	var record struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	}
	if err := json.Unmarshal(data, &record); err == nil && record.X != nil && record.Y != nil {
		*p = Point{X: *record.X, Y: *record.Y, valid: true}
		return nil
	}

	// Scalars (face_width) and unknown shapes are tolerated as invalid points.
	*p = Point{}
	return nil
}

// MarshalJSON emits the pair encoding for valid points and null otherwise.
func (p Point) MarshalJSON() ([]byte, error) {
	if !p.valid {
		return []byte("null"), nil
	}
	return json.Marshal([2]float64{p.X, p.Y})
}

// ParseMessage decodes one inbound analysis payload.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode analysis message: %w", err)
	}
	return &msg, nil
}
