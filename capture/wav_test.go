package capture

import (
	"context"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWAV writes a minimal 16-bit PCM WAV file with the given data chunk.
func writeWAV(t *testing.T, sampleRate, channels int, pcm []byte) string {
	t.Helper()

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(pcm)))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(sampleRate*channels*2))
	binary.LittleEndian.PutUint16(header[32:34], uint16(channels*2))
	binary.LittleEndian.PutUint16(header[34:36], 16) // bits per sample
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	path := filepath.Join(t.TempDir(), "test.wav")
	require.NoError(t, os.WriteFile(path, append(header, pcm...), 0600))
	return path
}

func TestOpenWAV_ValidFile(t *testing.T) {
	pcm := make([]byte, 3200)
	src, err := OpenWAV(writeWAV(t, 16000, 1, pcm))
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	assert.Equal(t, 16000, src.SampleRate())
	assert.Equal(t, 1, src.Channels())

	buf := make([]byte, 1600)
	n, err := src.ReadWindow(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, 1600, n)
}

func TestOpenWAV_ExhaustedReturnsEOF(t *testing.T) {
	src, err := OpenWAV(writeWAV(t, 16000, 1, make([]byte, 100)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	buf := make([]byte, 200)
	n, err := src.ReadWindow(context.Background(), buf)
	require.NoError(t, err)
	assert.Equal(t, 100, n, "short final window carries the remaining bytes")

	_, err = src.ReadWindow(context.Background(), buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpenWAV_MissingFile(t *testing.T) {
	_, err := OpenWAV(filepath.Join(t.TempDir(), "absent.wav"))

	var acqErr *AcquisitionError
	require.ErrorAs(t, err, &acqErr)
	assert.Equal(t, "audio", acqErr.Device)
}

func TestOpenWAV_RejectsBadHeaders(t *testing.T) {
	tests := []struct {
		name   string
		mangle func([]byte)
	}{
		{"not RIFF", func(b []byte) { copy(b[0:4], "JUNK") }},
		{"not WAVE", func(b []byte) { copy(b[8:12], "AIFF") }},
		{"missing fmt", func(b []byte) { copy(b[12:16], "junk") }},
		{"compressed format", func(b []byte) { binary.LittleEndian.PutUint16(b[20:22], 3) }},
		{"wrong bit depth", func(b []byte) { binary.LittleEndian.PutUint16(b[34:36], 8) }},
		{"missing data chunk", func(b []byte) { copy(b[36:40], "LIST") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeWAV(t, 16000, 1, make([]byte, 100))
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			tt.mangle(data)
			require.NoError(t, os.WriteFile(path, data, 0600))

			_, err = OpenWAV(path)
			assert.Error(t, err)
		})
	}
}

func TestOpenWAV_Truncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0600))

	_, err := OpenWAV(path)
	assert.Error(t, err)
}

func TestWAVSource_CloseIsIdempotent(t *testing.T) {
	src, err := OpenWAV(writeWAV(t, 16000, 1, make([]byte, 100)))
	require.NoError(t, err)

	require.NoError(t, src.Close())
	assert.NoError(t, src.Close())

	_, err = src.ReadWindow(context.Background(), make([]byte, 10))
	assert.ErrorIs(t, err, ErrNoDevice)
}
