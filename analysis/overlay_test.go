package analysis

import (
	"image"
	"image/color"
	"testing"
)

func TestRenderOverlay_DrawsMarkers(t *testing.T) {
	img := RenderOverlay(64, 48, []OverlayPoint{{Name: "nose_tip", X: 32, Y: 24}})

	if got := img.RGBAAt(32, 24); got != markerColor {
		t.Errorf("marker center = %v, want %v", got, markerColor)
	}
	if got := img.RGBAAt(0, 0); got != (color.RGBA{}) {
		t.Errorf("far corner = %v, want untouched", got)
	}
}

func TestRenderOverlay_ClipsOutOfBoundsPoints(t *testing.T) {
	// Must not panic on points outside or straddling the frame edge.
	img := RenderOverlay(16, 16, []OverlayPoint{
		{Name: "off_frame", X: 200, Y: 200},
		{Name: "negative", X: -5, Y: -5},
		{Name: "edge", X: 0, Y: 0},
	})

	if got := img.RGBAAt(0, 0); got != markerColor {
		t.Errorf("edge marker = %v, want %v", got, markerColor)
	}
}

func TestRenderOverlayOn_PreservesFrame(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 32, 32))
	base := color.RGBA{R: 10, G: 20, B: 30, A: 255}
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			frame.SetRGBA(x, y, base)
		}
	}

	out := RenderOverlayOn(frame, []OverlayPoint{{Name: "nose_tip", X: 16, Y: 16}})

	if got := out.RGBAAt(16, 16); got != markerColor {
		t.Errorf("marker center = %v, want %v", got, markerColor)
	}
	if got := out.RGBAAt(2, 2); got != base {
		t.Errorf("background = %v, want %v", got, base)
	}
	if got := frame.RGBAAt(16, 16); got != base {
		t.Error("source frame was mutated")
	}
}
