package analysis

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Timeline constants.
const (
	// RecentWindow is how many trailing events the rendered view shows.
	// Export always serializes the full sequence.
	RecentWindow = 20

	exportFilePerms = 0600

	millisPerSecond = 1000
)

// TimelineEvent is one appended contextual event.
type TimelineEvent struct {
	// Kind labels the event (backend "type" or "au").
	Kind string `json:"kind"`
	// TimestampMs is the event time in milliseconds since epoch.
	TimestampMs int64 `json:"timestamp"`
	// Score is the event score or peak.
	Score float64 `json:"score"`
}

// Time returns the event timestamp.
func (e TimelineEvent) Time() time.Time {
	return time.UnixMilli(e.TimestampMs)
}

// String renders the event in the timeline display form.
func (e TimelineEvent) String() string {
	return fmt.Sprintf("%s @ %s score=%.3f",
		e.Kind, e.Time().UTC().Format(time.RFC3339Nano), e.Score)
}

// Timeline is an append-only event log with a bounded rendered view and
// unbounded storage. Safe for concurrent use.
type Timeline struct {
	mu     sync.Mutex
	events []TimelineEvent
}

// NewTimeline creates an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{}
}

// Append adds events derived from backend contextual events, in arrival
// order. Timestamps arrive as seconds since epoch and are stored in
// milliseconds.
func (t *Timeline) Append(events ...ContextualEvent) {
	if len(events) == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ev := range events {
		t.events = append(t.events, TimelineEvent{
			Kind:        ev.Kind(),
			TimestampMs: int64(ev.EpochSeconds() * millisPerSecond),
			Score:       ev.ScoreValue(),
		})
	}
}

// Len returns the total number of stored events.
func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.events)
}

// Recent returns the trailing n events, newest last. n <= 0 uses
// RecentWindow.
func (t *Timeline) Recent(n int) []TimelineEvent {
	if n <= 0 {
		n = RecentWindow
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	start := len(t.events) - n
	if start < 0 {
		start = 0
	}
	out := make([]TimelineEvent, len(t.events)-start)
	copy(out, t.events[start:])
	return out
}

// All returns a copy of the full event sequence.
func (t *Timeline) All() []TimelineEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TimelineEvent, len(t.events))
	copy(out, t.events)
	return out
}

// ExportJSON serializes the full accumulated sequence as a JSON array.
func (t *Timeline) ExportJSON(w io.Writer) error {
	events := t.All()
	if events == nil {
		events = []TimelineEvent{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(events); err != nil {
		return fmt.Errorf("encode timeline: %w", err)
	}
	return nil
}

// ExportFile writes the export artifact to path.
func (t *Timeline) ExportFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, exportFilePerms)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}

	if err := t.ExportJSON(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
