package main

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AlbertGeraldd/Face-Analysis-System/analysis"
	"github.com/AlbertGeraldd/Face-Analysis-System/capture"
	"github.com/AlbertGeraldd/Face-Analysis-System/config"
	"github.com/AlbertGeraldd/Face-Analysis-System/logger"
	"github.com/AlbertGeraldd/Face-Analysis-System/metrics"
	"github.com/AlbertGeraldd/Face-Analysis-System/pipeline"
)

const (
	shutdownTimeout = 5 * time.Second

	// statusPeriod is how often the running session logs a status line.
	statusPeriod = 10 * time.Second
	// statusEvents is how many recent timeline events the status line shows.
	statusEvents = 5
)

func newRunCommand() *cobra.Command {
	var (
		configPath   string
		serverURL    string
		fps          int
		exportPath   string
		snapshotPath string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the telemetry pipeline and run until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if serverURL != "" {
				cfg.ServerURL = serverURL
			}
			if fps != 0 {
				cfg.TargetFPS = fps
			}
			return runPipeline(cmd.Context(), cfg, exportPath, snapshotPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&serverURL, "server", "", "Backend base URL (overrides config)")
	cmd.Flags().IntVar(&fps, "fps", 0, "Target frame rate, clamped to [1,20] (overrides config)")
	cmd.Flags().StringVar(&exportPath, "export", "", "Write the timeline artifact here on shutdown")
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "Write an overlay snapshot PNG here on shutdown")

	return cmd
}

func runPipeline(ctx context.Context, cfg config.Config, exportPath, snapshotPath string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	video, audioSrc, err := buildSources(cfg.Capture)
	if err != nil {
		return err
	}

	var exporter *metrics.Exporter
	if cfg.MetricsAddr != "" {
		exporter = metrics.NewExporter(cfg.MetricsAddr)
		go func() {
			if err := exporter.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics exporter failed", "error", err)
			}
		}()
	}

	p, err := pipeline.Start(ctx, cfg, video, audioSrc)
	if err != nil {
		var acqErr *capture.AcquisitionError
		if errors.As(err, &acqErr) {
			return fmt.Errorf("capture unavailable: %w", err)
		}
		return err
	}

	go statusLoop(ctx, p)

	<-ctx.Done()
	logger.Info("shutting down")

	// The snapshot needs a live frame, so it renders before the capture
	// sources close.
	if snapshotPath != "" {
		if err := writeSnapshot(p, snapshotPath); err != nil {
			logger.Error("overlay snapshot failed", "error", err)
		} else {
			logger.Info("overlay snapshot written", "path", snapshotPath)
		}
	}

	stopErr := p.Stop()

	if exportPath != "" {
		if err := p.ExportTimeline(exportPath); err != nil {
			logger.Error("timeline export failed", "error", err)
		} else {
			logger.Info("timeline exported", "path", exportPath, "events", p.Timeline().Len())
		}
	}

	if exporter != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = exporter.Shutdown(shutdownCtx)
	}

	return stopErr
}

// statusLoop periodically logs the session state and the tail of the event
// timeline until ctx is cancelled.
func statusLoop(ctx context.Context, p *pipeline.Pipeline) {
	ticker := time.NewTicker(statusPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			display := p.Display()
			logger.Info("session status",
				"state", p.Manager().State().String(),
				"face", display.FaceText,
				"speaking", display.Speaking,
				"events", p.Timeline().Len(),
				"recent", timelineSummary(p.Timeline().Recent(statusEvents)),
			)
		}
	}
}

// timelineSummary renders recent events as one line, oldest first.
func timelineSummary(events []analysis.TimelineEvent) string {
	if len(events) == 0 {
		return "none"
	}
	parts := make([]string, len(events))
	for i, ev := range events {
		parts[i] = ev.String()
	}
	return strings.Join(parts, "; ")
}

// writeSnapshot saves the current overlay render as a PNG.
func writeSnapshot(p *pipeline.Pipeline, path string) error {
	img := p.SnapshotOverlay(context.Background())

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// buildSources selects the capture sources from configuration: recorded
// media when paths are given, synthetic sources otherwise.
func buildSources(cfg config.CaptureConfig) (capture.VideoSource, capture.AudioSource, error) {
	var video capture.VideoSource
	if cfg.FrameDir != "" {
		src, err := capture.OpenFrameDir(cfg.FrameDir)
		if err != nil {
			return nil, nil, err
		}
		video = src
	} else {
		video = capture.NewPatternSource(cfg.Width, cfg.Height)
	}

	var audioSrc capture.AudioSource
	if cfg.WAVFile != "" {
		src, err := capture.OpenWAV(cfg.WAVFile)
		if err != nil {
			return nil, nil, err
		}
		audioSrc = src
	} else {
		audioSrc = capture.NewToneSource(cfg.ToneAmplitude, 440, capture.DefaultSampleRate)
	}

	return video, audioSrc, nil
}
