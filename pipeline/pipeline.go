// Package pipeline wires the capture, transmit, and inbound-dispatch loops
// into one explicitly owned context.
package pipeline

import (
	"context"
	"errors"
	"image"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/AlbertGeraldd/Face-Analysis-System/analysis"
	"github.com/AlbertGeraldd/Face-Analysis-System/audio"
	"github.com/AlbertGeraldd/Face-Analysis-System/capture"
	"github.com/AlbertGeraldd/Face-Analysis-System/config"
	"github.com/AlbertGeraldd/Face-Analysis-System/frames"
	"github.com/AlbertGeraldd/Face-Analysis-System/logger"
	"github.com/AlbertGeraldd/Face-Analysis-System/metrics"
	"github.com/AlbertGeraldd/Face-Analysis-System/session"
)

// Pipeline holds all mutable session state explicitly: the media session,
// the connection manager, both periodic producers, the display state, and
// the timeline. It is constructed by Start and torn down by Stop; no
// component captures shared state implicitly.
type Pipeline struct {
	cfg config.Config

	media       *capture.MediaSession
	manager     *session.Manager
	sampler     *audio.Sampler
	transmitter *frames.Transmitter
	timeline    *analysis.Timeline
	pusher      *config.Pusher

	mu      sync.Mutex
	display analysis.DisplayState
	toggles config.DisplayConfig

	cancel     context.CancelFunc
	group      *errgroup.Group
	audioReady chan struct{}

	stopMu  sync.Mutex
	stopped bool
}

// Start acquires media, opens the session, pushes the processing flags, and
// launches the periodic loops. The only fatal failure is acquisition: a
// *capture.AcquisitionError propagates and nothing stays running. A failed
// dial is logged and reflected in the manager state; the loops still run
// and simply skip sends.
func Start(ctx context.Context, cfg config.Config, video capture.VideoSource, audioSrc capture.AudioSource) (*Pipeline, error) {
	media, err := capture.Open(ctx, capture.SessionConfig{
		Video: video,
		Audio: audioSrc,
	})
	if err != nil {
		return nil, err
	}

	// Every log line below this point carries the session identity.
	ctx = logger.WithSessionID(ctx, media.ID())

	p := &Pipeline{
		cfg:        cfg,
		media:      media,
		timeline:   analysis.NewTimeline(),
		pusher:     config.NewPusher(cfg.ServerURL),
		display:    analysis.NewDisplayState(),
		toggles:    cfg.Display,
		audioReady: make(chan struct{}),
	}

	manager, err := session.NewManager(session.ManagerConfig{
		BaseURL: cfg.ServerURL,
		// Audio transmission must not start before the channel exists;
		// Open is the explicit both-sides-ready signal.
		OnOpen:     func() { close(p.audioReady) },
		OnAnalysis: p.handleAnalysis,
	})
	if err != nil {
		_ = media.Stop()
		return nil, err
	}
	p.manager = manager

	p.sampler = audio.NewSampler(audio.SamplerConfig{
		Source:    media.Audio(),
		Meter:     audio.NewMeter(cfg.AudioFloorDB, cfg.AudioCeilingDB),
		OnReading: p.handleReading,
		Ready:     manager.Open,
		Emit:      manager.SendAudio,
	})

	p.transmitter = frames.NewTransmitter(frames.TransmitterConfig{
		Session: media,
		FPS:     cfg.TargetFPS,
		Quality: cfg.JPEGQuality,
		Ready:   manager.Open,
		Emit:    manager.SendFrame,
		OnSkip:  metrics.RecordFrameSkipped,
	})

	// Mirror the initial toggles to the backend. Best effort.
	if err := p.pusher.Push(ctx, config.FlagsFor(p.toggles)); err != nil {
		logger.WarnContext(ctx, "initial processing-flag push failed", "error", err)
	}

	if err := manager.Start(ctx); err != nil {
		logger.WarnContext(ctx, "session open failed, running without transport", "error", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	group, gctx := errgroup.WithContext(loopCtx)
	p.group = group

	group.Go(func() error {
		return p.transmitter.Run(logger.WithComponent(gctx, "frames"))
	})
	group.Go(func() error {
		audioCtx := logger.WithComponent(gctx, "audio")
		// Hold audio transmission until the channel has existed at
		// least once.
		select {
		case <-p.audioReady:
		case <-audioCtx.Done():
			return audioCtx.Err()
		}
		return p.sampler.Run(audioCtx)
	})

	logger.InfoContext(ctx, "pipeline started",
		"server", cfg.ServerURL,
		"fps", frames.ClampFPS(cfg.TargetFPS),
	)
	return p, nil
}

// handleAnalysis consumes one inbound message: contextual events feed the
// timeline unconditionally, then the display reduces under the lock so the
// latest write wins between server-reported and locally sampled intensity.
func (p *Pipeline) handleAnalysis(msg *analysis.Message) {
	if len(msg.ContextualEvents) > 0 {
		p.timeline.Append(msg.ContextualEvents...)
		for range msg.ContextualEvents {
			metrics.RecordTimelineEvent()
		}
	}

	p.mu.Lock()
	p.display = analysis.Reduce(p.display, msg, p.toggles)
	p.mu.Unlock()
}

// handleReading publishes a local loudness reading. Runs on every sampler
// tick regardless of connection state.
func (p *Pipeline) handleReading(r audio.Reading) {
	metrics.RecordAudioTick(r.Intensity)

	p.mu.Lock()
	if p.toggles.ShowAudioBar {
		p.display.AudioIntensity = r.Intensity
		p.display.Speaking = r.Speaking
	}
	p.mu.Unlock()
}

// Display returns a snapshot of the current display state.
func (p *Pipeline) Display() analysis.DisplayState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.display
}

// Timeline returns the event timeline.
func (p *Pipeline) Timeline() *analysis.Timeline {
	return p.timeline
}

// Manager exposes the session manager state for status displays.
func (p *Pipeline) Manager() *session.Manager {
	return p.manager
}

// SetToggles applies a display-config change: gated regions are re-rendered
// immediately (blanked if now disabled) and the flags are mirrored to the
// backend.
func (p *Pipeline) SetToggles(ctx context.Context, toggles config.DisplayConfig) {
	p.mu.Lock()
	p.toggles = toggles
	// An empty message re-applies gating against the prior state.
	p.display = analysis.Reduce(p.display, &analysis.Message{}, toggles)
	p.mu.Unlock()

	if err := p.pusher.Push(ctx, config.FlagsFor(toggles)); err != nil {
		logger.Warn("processing-flag push failed", "error", err)
	}
}

// ExportTimeline writes the full timeline artifact to path.
func (p *Pipeline) ExportTimeline(path string) error {
	return p.timeline.ExportFile(path)
}

// SnapshotOverlay renders the current landmark overlay, drawn over a live
// frame when the capture session can still produce one and on a blank
// canvas at the session dimensions otherwise.
func (p *Pipeline) SnapshotOverlay(ctx context.Context) *image.RGBA {
	p.mu.Lock()
	points := make([]analysis.OverlayPoint, len(p.display.Overlay))
	copy(points, p.display.Overlay)
	p.mu.Unlock()

	if p.media.Active() {
		video := p.media.Video()
		if video.Playing() {
			if frame, err := video.Frame(ctx); err == nil {
				return analysis.RenderOverlayOn(frame, points)
			}
		}
	}

	dims := p.media.Dimensions()
	return analysis.RenderOverlay(dims.Width, dims.Height, points)
}

// Wait blocks until both periodic loops have ended.
func (p *Pipeline) Wait() error {
	err := p.group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop tears the whole context down: both timers, the connection, and the
// capture sources. Idempotent: a second call is a no-op with the same
// terminal state.
func (p *Pipeline) Stop() error {
	p.stopMu.Lock()
	if p.stopped {
		p.stopMu.Unlock()
		return nil
	}
	p.stopped = true
	p.stopMu.Unlock()

	p.cancel()
	waitErr := p.Wait()

	managerErr := p.manager.Stop()
	mediaErr := p.media.Stop()

	logger.Info("pipeline stopped", "session_id", p.media.ID())
	return errors.Join(waitErr, managerErr, mediaErr)
}
