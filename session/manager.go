package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/AlbertGeraldd/Face-Analysis-System/analysis"
	"github.com/AlbertGeraldd/Face-Analysis-System/logger"
	"github.com/AlbertGeraldd/Face-Analysis-System/metrics"
)

// State is the connection lifecycle state.
type State int

const (
	// StateConnecting means the dial is in progress.
	StateConnecting State = iota
	// StateOpen means the channel is established; sends are allowed.
	StateOpen
	// StateClosing means an explicit stop is tearing the channel down.
	StateClosing
	// StateClosed is terminal for this handle.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Inbound message types the manager recognizes.
const (
	typeAnalysis = "analysis"
	typeAudioAck = "audio_ack"
)

// ErrNotOpen is returned by sends while the channel is not open.
// Callers treat it as a silent skip, never a retry.
var ErrNotOpen = errors.New("session not open")

// defaultProbeTimeout bounds the backend health probe.
const defaultProbeTimeout = 3 * time.Second

// frameMessage is the outbound frame envelope.
type frameMessage struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// audioMessage is the outbound audio envelope.
type audioMessage struct {
	Type      string  `json:"type"`
	Intensity float64 `json:"intensity"`
}

// envelope is the minimal inbound shape used for routing.
type envelope struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// ManagerConfig configures a session Manager.
type ManagerConfig struct {
	// BaseURL is the backend origin (http or https). The WebSocket
	// endpoint and scheme are derived from it.
	BaseURL string

	// DialTimeout is the handshake timeout. Defaults to DefaultDialTimeout.
	DialTimeout time.Duration

	// OnOpen fires exactly once when the channel reaches Open. The
	// pipeline uses it as the "both sides ready" signal to start audio
	// transmission.
	OnOpen func()

	// OnAnalysis receives every decoded analysis message, in transport
	// order.
	OnAnalysis func(*analysis.Message)

	// SkipHealthProbe disables the pre-dial GET /health check.
	SkipHealthProbe bool
}

// Manager exclusively owns one connection handle per session. It is the
// only component that opens, sends on, or closes the channel; everything
// else observes its state. A Manager is not reused after Stop; a new
// session gets a new Manager.
type Manager struct {
	cfg      ManagerConfig
	conn     *Conn
	endpoint string

	mu      sync.Mutex
	state   State
	lastErr error
	stopped bool

	openOnce sync.Once
	done     chan struct{}
}

// NewManager creates a manager for the backend at cfg.BaseURL.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	endpoint, err := ResolveEndpoint(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:      cfg,
		endpoint: endpoint,
		conn: NewConn(&ConnConfig{
			URL:         endpoint,
			DialTimeout: cfg.DialTimeout,
		}),
		state: StateConnecting,
		done:  make(chan struct{}),
	}
	metrics.RecordConnectionState(float64(StateConnecting))
	return m, nil
}

// ResolveEndpoint derives the WebSocket endpoint from an HTTP origin,
// choosing ws or wss by whether the origin itself is secure.
func ResolveEndpoint(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse server URL: %w", err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/ws"
	u.RawQuery = ""
	return u.String(), nil
}

// Start probes the backend, dials the channel, and launches the inbound
// loop. A dial failure closes the handle and is returned; the caller
// treats it as non-fatal (subsequent sends are silently skipped).
func (m *Manager) Start(ctx context.Context) error {
	ctx = logger.WithComponent(logger.WithEndpoint(ctx, m.endpoint), "session")

	if !m.cfg.SkipHealthProbe {
		m.probeHealth(ctx)
	}

	if err := m.conn.Connect(ctx); err != nil {
		m.recordError(err)
		m.setState(StateClosed)
		close(m.done)
		return fmt.Errorf("open session: %w", err)
	}

	m.setState(StateOpen)
	m.openOnce.Do(func() {
		if m.cfg.OnOpen != nil {
			m.cfg.OnOpen()
		}
	})

	go m.receiveLoop(ctx)
	return nil
}

// probeHealth checks the backend health endpoint before dialing.
// Failure is a warning only; the dial proceeds regardless.
func (m *Manager) probeHealth(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, defaultProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, m.cfg.BaseURL+"/health", nil)
	if err != nil {
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.WarnContext(ctx, "backend health probe failed", "error", err)
		return
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		logger.WarnContext(ctx, "backend health probe returned non-OK", "status", resp.StatusCode)
	}
}

// receiveLoop reads inbound messages in transport order until the
// connection goes down.
func (m *Manager) receiveLoop(ctx context.Context) {
	defer close(m.done)

	for {
		data, err := m.conn.Receive(ctx)
		if err != nil {
			m.observeReadError(ctx, err)
			return
		}
		m.dispatch(ctx, data)
	}
}

// observeReadError records why the inbound loop ended and drives the
// terminal transition.
func (m *Manager) observeReadError(ctx context.Context, err error) {
	m.mu.Lock()
	closing := m.state == StateClosing || m.stopped
	m.mu.Unlock()

	switch {
	case closing, errors.Is(err, context.Canceled):
		// Expected during teardown.
	case IsNormalClose(err):
		logger.InfoContext(ctx, "backend closed the channel")
	default:
		m.recordError(err)
		logger.ErrorContext(ctx, "session transport error", "error", err)
	}
	m.setState(StateClosed)
}

// dispatch routes one inbound payload. A payload that fails to parse or has
// an unrecognized type is logged and discarded; it never stops the loop.
func (m *Manager) dispatch(ctx context.Context, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		logger.WarnContext(ctx, "discarding malformed inbound message", "error", err)
		metrics.RecordMessageDropped()
		return
	}

	if env.Error != "" {
		logger.WarnContext(ctx, "backend rejected a message", "reason", env.Error)
		metrics.RecordMessageReceived("error")
		return
	}

	switch env.Type {
	case typeAnalysis:
		msg, err := analysis.ParseMessage(data)
		if err != nil {
			logger.WarnContext(ctx, "discarding malformed analysis message", "error", err)
			metrics.RecordMessageDropped()
			return
		}
		metrics.RecordMessageReceived(typeAnalysis)
		if m.cfg.OnAnalysis != nil {
			m.cfg.OnAnalysis(msg)
		}
	case typeAudioAck:
		metrics.RecordMessageReceived(typeAudioAck)
		logger.DebugContext(ctx, "audio intensity acknowledged")
	default:
		// Unknown types are ignored (forward compatible).
		logger.DebugContext(ctx, "ignoring unrecognized inbound type", "type", env.Type)
		metrics.RecordMessageDropped()
	}
}

// SendFrame emits one outbound frame message. Returns ErrNotOpen while the
// channel is not open; callers skip silently.
func (m *Manager) SendFrame(dataURL string) error {
	if m.State() != StateOpen {
		return ErrNotOpen
	}
	if err := m.conn.Send(frameMessage{Type: "frame", Data: dataURL}); err != nil {
		return err
	}
	metrics.RecordFrameSent()
	return nil
}

// SendAudio emits one outbound audio intensity message. Returns ErrNotOpen
// while the channel is not open.
func (m *Manager) SendAudio(intensity float64) error {
	if m.State() != StateOpen {
		return ErrNotOpen
	}
	return m.conn.Send(audioMessage{Type: "audio", Intensity: intensity})
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Open reports whether sends are currently allowed.
func (m *Manager) Open() bool {
	return m.State() == StateOpen
}

// Err returns the last observed transport error, if any.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Done is closed when the inbound loop has ended.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Stop tears the handle down. Idempotent: repeated calls are no-ops and
// the terminal state is always Closed.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	if m.state == StateOpen || m.state == StateConnecting {
		m.state = StateClosing
	}
	m.mu.Unlock()
	metrics.RecordConnectionState(float64(StateClosing))

	err := m.conn.Close()
	m.setState(StateClosed)
	logger.Info("session stopped")
	return err
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	if m.state == StateClosed && s != StateClosed {
		m.mu.Unlock()
		return
	}
	m.state = s
	m.mu.Unlock()
	metrics.RecordConnectionState(float64(s))
}

func (m *Manager) recordError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
