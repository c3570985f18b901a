package analysis

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Overlay rendering constants.
const (
	// MarkerRadius is the fixed radius of each landmark marker in pixels.
	MarkerRadius = 3
)

var markerColor = color.RGBA{R: 0, G: 220, B: 120, A: 255}

// RenderOverlay rasterizes the landmark overlay at the given dimensions:
// one fixed-radius filled disc per drawable point. Points outside the
// bounds are clipped, not errors.
func RenderOverlay(width, height int, points []OverlayPoint) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for _, p := range points {
		drawMarker(img, int(p.X), int(p.Y))
	}
	return img
}

// RenderOverlayOn draws the overlay markers onto a copy of the frame.
func RenderOverlayOn(frame image.Image, points []OverlayPoint) *image.RGBA {
	bounds := frame.Bounds()
	img := image.NewRGBA(bounds)
	draw.Copy(img, bounds.Min, frame, bounds, draw.Src, nil)
	for _, p := range points {
		drawMarker(img, int(p.X), int(p.Y))
	}
	return img
}

// drawMarker fills a disc of MarkerRadius centered at (cx, cy).
func drawMarker(img *image.RGBA, cx, cy int) {
	bounds := img.Bounds()
	for dy := -MarkerRadius; dy <= MarkerRadius; dy++ {
		for dx := -MarkerRadius; dx <= MarkerRadius; dx++ {
			if dx*dx+dy*dy > MarkerRadius*MarkerRadius {
				continue
			}
			x, y := cx+dx, cy+dy
			if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
				continue
			}
			img.SetRGBA(x, y, markerColor)
		}
	}
}
