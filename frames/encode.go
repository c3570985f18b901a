// Package frames rasterizes, encodes, and transmits video frames.
package frames

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// Encoding constants.
const (
	// MIMETypeJPEG is the MIME type of transmitted frames.
	MIMETypeJPEG = "image/jpeg"

	// DefaultQuality is the JPEG quality used for outbound frames.
	DefaultQuality = 60

	dataURLPrefix = "data:image/jpeg;base64,"
)

// EncodeJPEG encodes an image as JPEG at the given quality.
// Non-positive quality falls back to DefaultQuality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	if quality <= 0 {
		quality = DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURL wraps encoded JPEG bytes as a data URL, the wire form the
// analysis backend expects for frame payloads.
func DataURL(jpegData []byte) string {
	return dataURLPrefix + base64.StdEncoding.EncodeToString(jpegData)
}

// Scale resizes an image to the given dimensions using high-quality
// CatmullRom scaling. Returns the source unchanged when it already matches.
func Scale(src image.Image, width, height int) image.Image {
	bounds := src.Bounds()
	if bounds.Dx() == width && bounds.Dy() == height {
		return src
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}
