package capture

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
)

// FrameDirSource plays back an ordered directory of JPEG/PNG frames.
// Once the last frame has been served it stops playing, which the
// transmitter observes as a paused/ended video.
type FrameDirSource struct {
	paths []string

	mu     sync.Mutex
	index  int
	closed bool
}

// OpenFrameDir lists the image files in dir in lexical order.
func OpenFrameDir(dir string) (*FrameDirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &AcquisitionError{Device: "video", Err: err}
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, &AcquisitionError{Device: "video", Err: fmt.Errorf("no frames in %s", dir)}
	}
	sort.Strings(paths)

	return &FrameDirSource{paths: paths}, nil
}

// Frame decodes and returns the next frame in order.
func (f *FrameDirSource) Frame(_ context.Context) (image.Image, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrNoDevice
	}
	if f.index >= len(f.paths) {
		f.mu.Unlock()
		return nil, fmt.Errorf("frame source exhausted")
	}
	path := f.paths[f.index]
	f.index++
	f.mu.Unlock()

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame %s: %w", path, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode frame %s: %w", path, err)
	}
	return img, nil
}

// Playing reports whether frames remain.
func (f *FrameDirSource) Playing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed && f.index < len(f.paths)
}

// Close releases the source.
func (f *FrameDirSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
