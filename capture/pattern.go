package capture

import (
	"context"
	"image"
	"image/color"
	"math"
	"sync"
)

// PatternSource is a synthetic video source producing a moving test pattern.
// It is always playing and never runs out of frames, which makes it useful
// for soak testing the transmit path without a camera.
type PatternSource struct {
	width  int
	height int

	mu     sync.Mutex
	tick   int
	closed bool
}

// NewPatternSource creates a pattern source with the given frame size.
// Non-positive dimensions fall back to 640x480.
func NewPatternSource(width, height int) *PatternSource {
	if width <= 0 {
		width = DefaultFallbackWidth
	}
	if height <= 0 {
		height = DefaultFallbackHeight
	}
	return &PatternSource{width: width, height: height}
}

// Frame renders the next pattern frame.
func (p *PatternSource) Frame(_ context.Context) (image.Image, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrNoDevice
	}
	tick := p.tick
	p.tick++
	p.mu.Unlock()

	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	shift := uint8(tick % 256) //nolint:gosec // bounded by the modulus
	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x%256) + shift, //nolint:gosec // wrap-around is the pattern
				G: uint8(y % 256),       //nolint:gosec // bounded by the modulus
				B: shift,
				A: 255,
			})
		}
	}
	return img, nil
}

// Playing always reports true for an open pattern source.
func (p *PatternSource) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.closed
}

// Close releases the source.
func (p *PatternSource) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// ToneSource is a synthetic audio source producing a continuous sine tone
// as 16-bit little-endian PCM. Amplitude 0 yields digital silence.
type ToneSource struct {
	amplitude  float64 // 0.0 to 1.0
	frequency  float64 // Hz
	sampleRate int

	mu     sync.Mutex
	phase  float64
	closed bool
}

// NewToneSource creates a tone source.
// amplitude is clamped to [0,1]; non-positive frequency defaults to 440 Hz
// and non-positive sampleRate to DefaultSampleRate.
func NewToneSource(amplitude, frequency float64, sampleRate int) *ToneSource {
	if amplitude < 0 {
		amplitude = 0
	}
	if amplitude > 1 {
		amplitude = 1
	}
	if frequency <= 0 {
		frequency = 440
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &ToneSource{
		amplitude:  amplitude,
		frequency:  frequency,
		sampleRate: sampleRate,
	}
}

// ReadWindow fills buf with PCM samples, continuing the tone phase across calls.
func (t *ToneSource) ReadWindow(_ context.Context, buf []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return 0, ErrNoDevice
	}

	step := 2 * math.Pi * t.frequency / float64(t.sampleRate)
	n := len(buf) / 2 * 2
	for i := 0; i < n; i += 2 {
		sample := int16(t.amplitude * 32767 * math.Sin(t.phase))
		buf[i] = byte(uint16(sample))      //nolint:gosec // low byte of LE PCM
		buf[i+1] = byte(uint16(sample) >> 8) //nolint:gosec // high byte of LE PCM
		t.phase += step
	}
	if t.phase > 2*math.Pi {
		t.phase = math.Mod(t.phase, 2*math.Pi)
	}
	return n, nil
}

// Close releases the source.
func (t *ToneSource) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
