// Package metrics provides Prometheus metrics for the telemetry pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "faceclient"

var (
	// framesSentTotal counts frames transmitted to the backend.
	framesSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Total number of frames transmitted",
		},
	)

	// framesSkippedTotal counts frame ticks that produced no message.
	framesSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_skipped_total",
			Help:      "Total number of frame ticks skipped (connection down, source paused, encode failure)",
		},
	)

	// audioTicksTotal counts audio sampler ticks.
	audioTicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_ticks_total",
			Help:      "Total number of audio sampler ticks",
		},
	)

	// messagesReceivedTotal counts inbound messages by type.
	messagesReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of inbound messages by type",
		},
		[]string{"type"},
	)

	// messagesDroppedTotal counts inbound messages that were discarded.
	messagesDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Total number of inbound messages dropped (malformed or unrecognized)",
		},
	)

	// timelineEventsTotal counts contextual events appended to the timeline.
	timelineEventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timeline_events_total",
			Help:      "Total number of contextual events appended to the timeline",
		},
	)

	// audioIntensity is the most recent locally computed loudness.
	audioIntensity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "audio_intensity",
			Help:      "Most recent locally computed audio intensity in [0,1]",
		},
	)

	// connectionState is the session manager state as a numeric gauge.
	connectionState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "Session connection state (0=connecting, 1=open, 2=closing, 3=closed)",
		},
	)

	// allMetrics is a list of all metrics for registration.
	allMetrics = []prometheus.Collector{
		framesSentTotal,
		framesSkippedTotal,
		audioTicksTotal,
		messagesReceivedTotal,
		messagesDroppedTotal,
		timelineEventsTotal,
		audioIntensity,
		connectionState,
	}
)

// RecordFrameSent records one transmitted frame.
func RecordFrameSent() {
	framesSentTotal.Inc()
}

// RecordFrameSkipped records one skipped frame tick.
func RecordFrameSkipped() {
	framesSkippedTotal.Inc()
}

// RecordAudioTick records one sampler tick and the intensity it produced.
func RecordAudioTick(intensity float64) {
	audioTicksTotal.Inc()
	audioIntensity.Set(intensity)
}

// RecordMessageReceived records one inbound message of the given type.
func RecordMessageReceived(msgType string) {
	messagesReceivedTotal.WithLabelValues(msgType).Inc()
}

// RecordMessageDropped records one discarded inbound message.
func RecordMessageDropped() {
	messagesDroppedTotal.Inc()
}

// RecordTimelineEvent records one appended timeline event.
func RecordTimelineEvent() {
	timelineEventsTotal.Inc()
}

// RecordConnectionState records the numeric session state.
func RecordConnectionState(state float64) {
	connectionState.Set(state)
}
