// Package capture owns the media sources feeding the telemetry pipeline.
//
// A MediaSession ties together one video source and one audio source for the
// lifetime of a capture run. Sources are acquired when the session is opened
// and released exactly once when it is stopped.
package capture

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AlbertGeraldd/Face-Analysis-System/logger"
)

// Default capture configuration constants.
const (
	// DefaultDimensionTimeout is how long Open waits for the first frame
	// before falling back to the configured dimensions.
	DefaultDimensionTimeout = 1200 * time.Millisecond

	// DefaultFallbackWidth and DefaultFallbackHeight are used when no frame
	// arrives before the dimension timeout.
	DefaultFallbackWidth  = 640
	DefaultFallbackHeight = 480

	// DefaultSampleRate is the PCM sample rate in Hz for audio sources.
	DefaultSampleRate = 16000
)

// ErrNoDevice is returned when a required capture source is missing.
var ErrNoDevice = errors.New("no capture device")

// AcquisitionError reports a failure to acquire a capture source.
// It is the only error the pipeline treats as fatal at startup.
type AcquisitionError struct {
	Device string // "video" or "audio"
	Err    error
}

func (e *AcquisitionError) Error() string {
	return "acquire " + e.Device + ": " + e.Err.Error()
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// VideoSource produces still frames for the transmitter.
type VideoSource interface {
	// Frame returns the current frame. It may block briefly while the
	// source produces one; ctx bounds the wait.
	Frame(ctx context.Context) (image.Image, error)

	// Playing reports whether the source is actively producing frames.
	// A paused or exhausted source returns false.
	Playing() bool

	// Close releases the source. Safe to call more than once.
	Close() error
}

// AudioSource produces raw 16-bit little-endian PCM samples.
type AudioSource interface {
	// ReadWindow fills buf with PCM bytes and returns the byte count.
	// A source that has run out of data returns io.EOF.
	ReadWindow(ctx context.Context, buf []byte) (int, error)

	// Close releases the source. Safe to call more than once.
	Close() error
}

// Dimensions holds the negotiated frame size of a session.
type Dimensions struct {
	Width  int
	Height int
}

// SessionConfig configures a MediaSession.
type SessionConfig struct {
	// Video is the frame source. Required.
	Video VideoSource

	// Audio is the PCM source. Required.
	Audio AudioSource

	// DimensionTimeout bounds the wait for the first frame.
	// Defaults to DefaultDimensionTimeout.
	DimensionTimeout time.Duration

	// Fallback is used when no frame arrives before the timeout.
	// Defaults to 640x480.
	Fallback Dimensions
}

func (c *SessionConfig) defaults() {
	if c.DimensionTimeout == 0 {
		c.DimensionTimeout = DefaultDimensionTimeout
	}
	if c.Fallback.Width == 0 {
		c.Fallback.Width = DefaultFallbackWidth
	}
	if c.Fallback.Height == 0 {
		c.Fallback.Height = DefaultFallbackHeight
	}
}

// MediaSession exclusively owns an active video and audio source pair.
// Frame dimensions are fixed once resolved from the first ready frame.
type MediaSession struct {
	id    string
	video VideoSource
	audio AudioSource
	dims  Dimensions

	mu      sync.Mutex
	stopped bool
}

// Open acquires both sources and resolves the frame dimensions.
// It fails with *AcquisitionError if either source is missing, and leaves
// nothing open on failure.
func Open(ctx context.Context, cfg SessionConfig) (*MediaSession, error) {
	cfg.defaults()

	if cfg.Video == nil {
		return nil, &AcquisitionError{Device: "video", Err: ErrNoDevice}
	}
	if cfg.Audio == nil {
		_ = cfg.Video.Close()
		return nil, &AcquisitionError{Device: "audio", Err: ErrNoDevice}
	}

	s := &MediaSession{
		id:    uuid.NewString(),
		video: cfg.Video,
		audio: cfg.Audio,
	}
	s.dims = resolveDimensions(ctx, cfg)

	ctx = logger.WithSessionID(logger.WithComponent(ctx, "capture"), s.id)
	logger.InfoContext(ctx, "media session opened",
		"width", s.dims.Width,
		"height", s.dims.Height,
	)
	return s, nil
}

// resolveDimensions waits for the first ready frame to report its bounds,
// falling back to the configured dimensions if none arrives in time.
func resolveDimensions(ctx context.Context, cfg SessionConfig) Dimensions {
	frameCtx, cancel := context.WithTimeout(ctx, cfg.DimensionTimeout)
	defer cancel()

	type result struct {
		img image.Image
		err error
	}
	ch := make(chan result, 1)
	go func() {
		img, err := cfg.Video.Frame(frameCtx)
		ch <- result{img: img, err: err}
	}()

	select {
	case r := <-ch:
		if r.err == nil && r.img != nil {
			b := r.img.Bounds()
			if b.Dx() > 0 && b.Dy() > 0 {
				return Dimensions{Width: b.Dx(), Height: b.Dy()}
			}
		}
	case <-frameCtx.Done():
	}

	logger.WarnContext(ctx, "no ready frame before timeout, using fallback dimensions",
		"timeout_ms", cfg.DimensionTimeout.Milliseconds(),
		"width", cfg.Fallback.Width,
		"height", cfg.Fallback.Height,
	)
	return cfg.Fallback
}

// ID returns the session identifier.
func (s *MediaSession) ID() string {
	return s.id
}

// Dimensions returns the resolved frame size. Fixed for the session lifetime.
func (s *MediaSession) Dimensions() Dimensions {
	return s.dims
}

// Video returns the owned video source.
func (s *MediaSession) Video() VideoSource {
	return s.video
}

// Audio returns the owned audio source.
func (s *MediaSession) Audio() AudioSource {
	return s.audio
}

// Active reports whether the session has not been stopped.
func (s *MediaSession) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopped
}

// Stop releases both sources. It is idempotent: repeated calls are no-ops
// and return the first result.
func (s *MediaSession) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	s.stopped = true

	videoErr := s.video.Close()
	audioErr := s.audio.Close()

	logger.Info("media session stopped", "session_id", s.id)
	return errors.Join(videoErr, audioErr)
}
