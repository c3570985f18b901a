package capture

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sync"
)

// WAV container constants for 16-bit PCM.
const (
	wavHeaderSize  = 44
	wavAudioFormat = 1 // PCM
	wavDefaultBits = 16
)

// WAVSource reads 16-bit PCM audio from a WAV file. When the data chunk is
// exhausted ReadWindow returns io.EOF; callers treat that as silence.
type WAVSource struct {
	sampleRate int
	channels   int

	mu        sync.Mutex
	file      *os.File
	remaining int64
	closed    bool
}

// OpenWAV opens a WAV file and validates its header. Only uncompressed
// 16-bit PCM is supported.
func OpenWAV(path string) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &AcquisitionError{Device: "audio", Err: err}
	}

	src, err := parseWAVHeader(f)
	if err != nil {
		_ = f.Close()
		return nil, &AcquisitionError{Device: "audio", Err: err}
	}
	return src, nil
}

// parseWAVHeader validates the RIFF/fmt/data layout and positions the reader
// at the start of the PCM data.
func parseWAVHeader(f *os.File) (*WAVSource, error) {
	header := make([]byte, wavHeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, fmt.Errorf("read WAV header: %w", err)
	}

	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF/WAVE file")
	}
	if string(header[12:16]) != "fmt " {
		return nil, fmt.Errorf("missing fmt chunk")
	}

	audioFormat := binary.LittleEndian.Uint16(header[20:22])
	if audioFormat != wavAudioFormat {
		return nil, fmt.Errorf("unsupported audio format %d, want PCM", audioFormat)
	}

	bitsPerSample := binary.LittleEndian.Uint16(header[34:36])
	if bitsPerSample != wavDefaultBits {
		return nil, fmt.Errorf("unsupported bit depth %d, want 16", bitsPerSample)
	}

	if string(header[36:40]) != "data" {
		return nil, fmt.Errorf("missing data chunk")
	}

	return &WAVSource{
		sampleRate: int(binary.LittleEndian.Uint32(header[24:28])),
		channels:   int(binary.LittleEndian.Uint16(header[22:24])),
		file:       f,
		remaining:  int64(binary.LittleEndian.Uint32(header[40:44])),
	}, nil
}

// SampleRate returns the sample rate declared by the file.
func (w *WAVSource) SampleRate() int {
	return w.sampleRate
}

// Channels returns the channel count declared by the file.
func (w *WAVSource) Channels() int {
	return w.channels
}

// ReadWindow fills buf with PCM bytes from the data chunk.
func (w *WAVSource) ReadWindow(_ context.Context, buf []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrNoDevice
	}
	if w.remaining <= 0 {
		return 0, io.EOF
	}

	limit := int64(len(buf))
	if limit > w.remaining {
		limit = w.remaining
	}
	n, err := w.file.Read(buf[:limit])
	w.remaining -= int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

// Close releases the underlying file. Safe to call more than once.
func (w *WAVSource) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}
