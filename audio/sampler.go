package audio

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/AlbertGeraldd/Face-Analysis-System/capture"
	"github.com/AlbertGeraldd/Face-Analysis-System/logger"
)

// Sampler defaults.
const (
	// DefaultPeriod is the sampling cadence. Independent of the frame rate.
	DefaultPeriod = 100 * time.Millisecond

	// DefaultWindowSamples is the window size per tick (100ms at 16kHz).
	DefaultWindowSamples = 1600
)

// SamplerConfig configures an intensity sampler.
type SamplerConfig struct {
	// Source is the PCM source. Required.
	Source capture.AudioSource

	// Meter converts windows to readings. Defaults to NewMeter with the
	// standard -60..0 dB range.
	Meter *Meter

	// Period is the tick interval. Defaults to DefaultPeriod.
	Period time.Duration

	// WindowSamples is the number of samples read per tick.
	// Defaults to DefaultWindowSamples.
	WindowSamples int

	// OnReading receives every local reading, regardless of connection
	// state. Optional.
	OnReading func(Reading)

	// Ready reports whether the outbound channel is open. Optional;
	// nil means never ready.
	Ready func() bool

	// Emit sends one outbound audio message. Called only when Ready
	// returns true. Optional.
	Emit func(intensity float64) error
}

func (c *SamplerConfig) defaults() {
	if c.Meter == nil {
		c.Meter = NewMeter(DefaultFloorDB, DefaultCeilingDB)
	}
	if c.Period <= 0 {
		c.Period = DefaultPeriod
	}
	if c.WindowSamples <= 0 {
		c.WindowSamples = DefaultWindowSamples
	}
}

// Sampler periodically reads an audio window, derives its intensity, and
// emits outbound audio messages while the connection is open. Local readings
// are published on every tick so the loudness display never depends on the
// network.
type Sampler struct {
	cfg SamplerConfig
	buf []byte
}

// NewSampler creates a sampler from cfg.
func NewSampler(cfg SamplerConfig) *Sampler {
	cfg.defaults()
	return &Sampler{
		cfg: cfg,
		buf: make([]byte, cfg.WindowSamples*pcmBytesPerSample),
	}
}

// Run drives the sampling loop until ctx is cancelled. The ticker and the
// window buffer are released when it returns; it never returns a non-nil
// error for transport conditions, only for a closed audio source.
func (s *Sampler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Period)
	defer ticker.Stop()

	logger.DebugContext(ctx, "audio sampler started",
		"period_ms", s.cfg.Period.Milliseconds(),
		"window_samples", s.cfg.WindowSamples,
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.tick(ctx); err != nil {
				return err
			}
		}
	}
}

// tick reads one window and publishes its reading.
func (s *Sampler) tick(ctx context.Context) error {
	n, err := s.cfg.Source.ReadWindow(ctx, s.buf)
	switch {
	case errors.Is(err, io.EOF):
		// Exhausted source reads as silence; local feedback keeps updating.
		n = 0
	case errors.Is(err, capture.ErrNoDevice):
		return err
	case err != nil:
		logger.WarnContext(ctx, "audio window read failed", "error", err)
		return nil
	}

	reading := s.cfg.Meter.Analyze(s.buf[:n])

	if s.cfg.OnReading != nil {
		s.cfg.OnReading(reading)
	}

	if s.cfg.Ready != nil && s.cfg.Ready() && s.cfg.Emit != nil {
		if err := s.cfg.Emit(reading.Intensity); err != nil {
			// Best-effort: a failed send is skipped, never retried.
			logger.DebugContext(ctx, "audio emit skipped", "error", err)
		}
	}
	return nil
}
