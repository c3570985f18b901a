package frames

import (
	"context"
	"time"

	"github.com/AlbertGeraldd/Face-Analysis-System/capture"
	"github.com/AlbertGeraldd/Face-Analysis-System/logger"
)

// Frame rate bounds.
const (
	// MinFPS is the lowest allowed transmission rate.
	MinFPS = 1
	// MaxFPS is the highest allowed transmission rate.
	MaxFPS = 20
	// DefaultFPS is the target rate when none is configured.
	DefaultFPS = 10

	millisPerSecond = 1000
)

// ClampFPS clamps a target frame rate into [MinFPS, MaxFPS].
func ClampFPS(fps int) int {
	if fps < MinFPS {
		return MinFPS
	}
	if fps > MaxFPS {
		return MaxFPS
	}
	return fps
}

// Period returns the tick interval for a target frame rate:
// floor(1000/clamp(fps)) milliseconds.
func Period(fps int) time.Duration {
	return time.Duration(millisPerSecond/ClampFPS(fps)) * time.Millisecond
}

// TransmitterConfig configures a frame transmitter.
type TransmitterConfig struct {
	// Session supplies the video source and resolved dimensions.
	// A nil session makes every tick a no-op.
	Session *capture.MediaSession

	// FPS is the target transmission rate, clamped to [1,20].
	// Defaults to DefaultFPS.
	FPS int

	// Quality is the JPEG quality. Defaults to DefaultQuality.
	Quality int

	// Ready reports whether the outbound channel is open. Optional;
	// nil means never ready.
	Ready func() bool

	// Emit sends one outbound frame message carrying a data URL.
	// Called only when Ready returns true. Optional.
	Emit func(dataURL string) error

	// OnSkip is invoked when a tick is skipped (connection down, source
	// paused, encode failure). Optional; used for metrics.
	OnSkip func()
}

func (c *TransmitterConfig) defaults() {
	if c.FPS == 0 {
		c.FPS = DefaultFPS
	}
	if c.Quality <= 0 {
		c.Quality = DefaultQuality
	}
}

// Transmitter is a lossy, rate-limited frame producer. Each tick it
// rasterizes the current frame at the session's resolved dimensions,
// encodes it, and emits it outbound. Ticks while the connection is not
// open or the source is not playing are silent no-ops; frames are never
// queued or retried.
type Transmitter struct {
	cfg TransmitterConfig
}

// NewTransmitter creates a transmitter from cfg.
func NewTransmitter(cfg TransmitterConfig) *Transmitter {
	cfg.defaults()
	return &Transmitter{cfg: cfg}
}

// Run drives the transmission loop until ctx is cancelled.
func (t *Transmitter) Run(ctx context.Context) error {
	period := Period(t.cfg.FPS)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	logger.DebugContext(ctx, "frame transmitter started",
		"fps", ClampFPS(t.cfg.FPS),
		"period_ms", period.Milliseconds(),
		"quality", t.cfg.Quality,
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

// tick captures and sends a single frame if every precondition holds.
// It never blocks the loop on failure.
func (t *Transmitter) tick(ctx context.Context) {
	if t.cfg.Session == nil || !t.cfg.Session.Active() {
		t.skip()
		return
	}
	if t.cfg.Ready == nil || !t.cfg.Ready() {
		t.skip()
		return
	}

	video := t.cfg.Session.Video()
	if !video.Playing() {
		t.skip()
		return
	}

	img, err := video.Frame(ctx)
	if err != nil {
		logger.DebugContext(ctx, "frame grab failed", "error", err)
		t.skip()
		return
	}

	dims := t.cfg.Session.Dimensions()
	scaled := Scale(img, dims.Width, dims.Height)

	encoded, err := EncodeJPEG(scaled, t.cfg.Quality)
	if err != nil {
		logger.WarnContext(ctx, "frame encode failed", "error", err)
		t.skip()
		return
	}

	if t.cfg.Emit != nil {
		if err := t.cfg.Emit(DataURL(encoded)); err != nil {
			logger.DebugContext(ctx, "frame emit skipped", "error", err)
			t.skip()
		}
	}
}

func (t *Transmitter) skip() {
	if t.cfg.OnSkip != nil {
		t.cfg.OnSkip()
	}
}
