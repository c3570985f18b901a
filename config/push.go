package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/AlbertGeraldd/Face-Analysis-System/logger"
)

// Push defaults.
const (
	// configPath is the backend processing-config endpoint.
	configPath = "/config"

	// defaultPushTimeout bounds one config push request.
	defaultPushTimeout = 5 * time.Second
)

// ProcessingFlags mirror the display toggles to the backend as
// processing-enable flags.
type ProcessingFlags struct {
	EnableAUs        bool `json:"enable_aus"`
	EnableAUMicro    bool `json:"enable_au_micro"`
	EnableContextual bool `json:"enable_contextual"`
	EnableSmoothing  bool `json:"enable_smoothing"`
	EnableFACS       bool `json:"enable_facs"`
}

// FlagsFor derives the backend processing flags from the display toggles.
// Contextual events and FACS stay enabled; the timeline aggregates events
// regardless of what the display shows.
func FlagsFor(d DisplayConfig) ProcessingFlags {
	return ProcessingFlags{
		EnableAUs:        d.ShowActionUnits,
		EnableAUMicro:    d.ShowMicroExpressions,
		EnableContextual: true,
		EnableSmoothing:  d.ShowNormalizedLandmarks,
		EnableFACS:       true,
	}
}

// Pusher POSTs processing flags to the backend config endpoint. Pushes are
// fired once at session start and on every toggle change; failures are
// logged and never fatal.
type Pusher struct {
	baseURL string
	client  *http.Client
}

// NewPusher creates a pusher for the backend at baseURL.
func NewPusher(baseURL string) *Pusher {
	return &Pusher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultPushTimeout},
	}
}

// Push sends one flags update. The response body is ignored; any non-2xx
// status is reported as an error.
func (p *Pusher) Push(ctx context.Context, flags ProcessingFlags) error {
	body, err := json.Marshal(flags)
	if err != nil {
		return fmt.Errorf("marshal processing flags: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+configPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build config push: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("push config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push config: unexpected status %d", resp.StatusCode)
	}

	logger.Debug("processing flags pushed",
		"enable_aus", flags.EnableAUs,
		"enable_au_micro", flags.EnableAUMicro,
		"enable_smoothing", flags.EnableSmoothing,
	)
	return nil
}
