// Package config holds the client configuration: capture selection, transmit
// rates, display toggles, and the processing flags mirrored to the backend.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Configuration defaults.
const (
	DefaultServerURL   = "http://localhost:8000"
	DefaultTargetFPS   = 10
	DefaultJPEGQuality = 60
	DefaultFloorDB     = -60.0
	DefaultCeilingDB   = 0.0
	DefaultMetricsAddr = ""
)

// Config is the YAML-backed client configuration.
type Config struct {
	// ServerURL is the analysis backend base URL (http or https).
	// The WebSocket endpoint and scheme are derived from it.
	ServerURL string `yaml:"server_url"`

	// TargetFPS is the frame transmission rate, clamped to [1,20] at use.
	TargetFPS int `yaml:"target_fps"`

	// JPEGQuality is the outbound frame encode quality.
	JPEGQuality int `yaml:"jpeg_quality"`

	// AudioFloorDB maps to intensity 0.
	AudioFloorDB float64 `yaml:"audio_floor_db"`

	// AudioCeilingDB maps to intensity 1.
	AudioCeilingDB float64 `yaml:"audio_ceiling_db"`

	// MetricsAddr is the Prometheus exporter listen address.
	// Empty disables the exporter.
	MetricsAddr string `yaml:"metrics_addr"`

	// Capture selects the media sources.
	Capture CaptureConfig `yaml:"capture"`

	// Display holds the client-local display toggles.
	Display DisplayConfig `yaml:"display"`
}

// CaptureConfig selects the capture sources.
type CaptureConfig struct {
	// FrameDir plays frames from a directory of images. Empty selects the
	// synthetic pattern source.
	FrameDir string `yaml:"frame_dir"`

	// WAVFile reads audio from a PCM WAV file. Empty selects the synthetic
	// tone source.
	WAVFile string `yaml:"wav_file"`

	// ToneAmplitude is the synthetic tone loudness in [0,1].
	ToneAmplitude float64 `yaml:"tone_amplitude"`

	// Width and Height size the synthetic pattern source.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// DisplayConfig is the set of client-local display toggles. It is mirrored
// to the backend as processing-enable flags on every change.
type DisplayConfig struct {
	ShowOverlay             bool `yaml:"show_overlay"`
	ShowActionUnits         bool `yaml:"show_action_units"`
	ShowMicroExpressions    bool `yaml:"show_micro_expressions"`
	ShowNormalizedLandmarks bool `yaml:"show_normalized_landmarks"`
	ShowAudioBar            bool `yaml:"show_audio_bar"`
}

// DefaultDisplayConfig returns the toggles as the UI starts: everything on.
func DefaultDisplayConfig() DisplayConfig {
	return DisplayConfig{
		ShowOverlay:             true,
		ShowActionUnits:         true,
		ShowMicroExpressions:    true,
		ShowNormalizedLandmarks: true,
		ShowAudioBar:            true,
	}
}

// defaults fills zero values with the documented defaults.
func (c *Config) defaults() {
	if c.ServerURL == "" {
		c.ServerURL = DefaultServerURL
	}
	if c.TargetFPS == 0 {
		c.TargetFPS = DefaultTargetFPS
	}
	if c.JPEGQuality == 0 {
		c.JPEGQuality = DefaultJPEGQuality
	}
	if c.AudioFloorDB == 0 {
		c.AudioFloorDB = DefaultFloorDB
	}
	if c.AudioCeilingDB == 0 {
		c.AudioCeilingDB = DefaultCeilingDB
	}
	if c.Display == (DisplayConfig{}) {
		c.Display = DefaultDisplayConfig()
	}
}

// Default returns a Config with every default applied.
func Default() Config {
	var c Config
	c.defaults()
	return c
}

// Load reads and validates a YAML config file. A missing path returns the
// defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	c.defaults()

	if c.TargetFPS < 0 {
		return Config{}, fmt.Errorf("target_fps must be positive, got %d", c.TargetFPS)
	}
	if c.AudioFloorDB >= c.AudioCeilingDB {
		return Config{}, fmt.Errorf("audio_floor_db %.1f must be below audio_ceiling_db %.1f",
			c.AudioFloorDB, c.AudioCeilingDB)
	}
	return c, nil
}
