package capture

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFrameDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		f, err := os.Create(filepath.Join(dir, name))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 8, 8))))
		require.NoError(t, f.Close())
	}
	return dir
}

func TestOpenFrameDir_ServesFramesInLexicalOrder(t *testing.T) {
	dir := writeFrameDir(t, "002.png", "001.png", "003.png")

	src, err := OpenFrameDir(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	assert.Equal(t, []string{
		filepath.Join(dir, "001.png"),
		filepath.Join(dir, "002.png"),
		filepath.Join(dir, "003.png"),
	}, src.paths)

	for i := 0; i < 3; i++ {
		require.True(t, src.Playing())
		img, err := src.Frame(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 8, img.Bounds().Dx())
	}

	assert.False(t, src.Playing(), "exhausted source stops playing")
	_, err = src.Frame(context.Background())
	assert.Error(t, err)
}

func TestOpenFrameDir_IgnoresNonImageFiles(t *testing.T) {
	dir := writeFrameDir(t, "001.png")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600))

	src, err := OpenFrameDir(dir)
	require.NoError(t, err)
	assert.Len(t, src.paths, 1)
}

func TestOpenFrameDir_EmptyDirFailsAcquisition(t *testing.T) {
	_, err := OpenFrameDir(t.TempDir())

	var acqErr *AcquisitionError
	require.ErrorAs(t, err, &acqErr)
	assert.Equal(t, "video", acqErr.Device)
}

func TestFrameDirSource_ClosedReadsFail(t *testing.T) {
	src, err := OpenFrameDir(writeFrameDir(t, "001.png"))
	require.NoError(t, err)

	require.NoError(t, src.Close())
	assert.False(t, src.Playing())

	_, err = src.Frame(context.Background())
	assert.ErrorIs(t, err, ErrNoDevice)
}
