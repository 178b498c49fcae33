package camera

import (
	"math"
	"testing"

	"github.com/tessera-engine/tessera/engine/view"
)

// mulPoint applies a column-major 4x4 matrix to a point (w=1) and returns
// the transformed x, y, z.
func mulPoint(m [16]float32, x, y, z float32) (float32, float32, float32) {
	ox := m[0]*x + m[4]*y + m[8]*z + m[12]
	oy := m[1]*x + m[5]*y + m[9]*z + m[13]
	oz := m[2]*x + m[6]*y + m[10]*z + m[14]
	return ox, oy, oz
}

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func TestCamera2DProjection(t *testing.T) {
	c := NewCamera2D(WithViewport(800, 600))

	m := c.ViewProjectionMatrix()

	// Center maps to clip origin.
	x, y, _ := mulPoint(m, 0, 0, 0)
	if !approx(x, 0) || !approx(y, 0) {
		t.Errorf("center maps to (%f, %f), want origin", x, y)
	}

	// Viewport corners map to clip corners.
	x, y, _ = mulPoint(m, 400, 300, 0)
	if !approx(x, 1) || !approx(y, 1) {
		t.Errorf("top-right corner maps to (%f, %f), want (1, 1)", x, y)
	}
	x, y, _ = mulPoint(m, -400, -300, 0)
	if !approx(x, -1) || !approx(y, -1) {
		t.Errorf("bottom-left corner maps to (%f, %f), want (-1, -1)", x, y)
	}
}

func TestCamera2DZoomAndPosition(t *testing.T) {
	c := NewCamera2D(WithViewport(800, 600), WithZoom(2), WithPosition(100, 50))

	m := c.ViewProjectionMatrix()

	// The camera position is the view center.
	x, y, _ := mulPoint(m, 100, 50, 0)
	if !approx(x, 0) || !approx(y, 0) {
		t.Errorf("camera position maps to (%f, %f), want origin", x, y)
	}

	// At zoom 2 the visible half-extent is a quarter of the viewport.
	x, _, _ = mulPoint(m, 100+200, 50, 0)
	if !approx(x, 1) {
		t.Errorf("zoomed right edge maps to x=%f, want 1", x)
	}
}

func TestCamera2DEntitiesUnique(t *testing.T) {
	a := NewCamera2D()
	b := NewCamera2D()
	if a.Entity() == b.Entity() {
		t.Errorf("cameras share entity %d", a.Entity())
	}
	if a.Entity() == 0 || b.Entity() == 0 {
		t.Error("camera entity should never be zero")
	}
}

func TestCamera2DExtract(t *testing.T) {
	c := NewCamera2D(
		WithViewport(640, 480),
		WithHDR(),
		WithTonemapping(view.TonemappingReinhardLuminance),
		WithDebandDither(view.DebandDitherEnabled),
	)

	extracted := c.Extract(4, nil)
	if extracted.Entity != c.Entity() {
		t.Errorf("extracted entity %d, want %d", extracted.Entity, c.Entity())
	}
	if !extracted.HDR {
		t.Error("extracted view should carry HDR")
	}
	if extracted.MsaaSamples != 4 {
		t.Errorf("extracted msaa %d, want 4", extracted.MsaaSamples)
	}
	if extracted.Tonemapping == nil || *extracted.Tonemapping != view.TonemappingReinhardLuminance {
		t.Errorf("extracted tonemapping = %v", extracted.Tonemapping)
	}
	if extracted.Dither == nil || *extracted.Dither != view.DebandDitherEnabled {
		t.Errorf("extracted dither = %v", extracted.Dither)
	}
	if extracted.ViewProj != c.ViewProjectionMatrix() {
		t.Error("extracted view-projection does not match camera")
	}

	// The snapshot must not alias camera state.
	*extracted.Tonemapping = view.TonemappingNone
	second := c.Extract(4, nil)
	if *second.Tonemapping != view.TonemappingReinhardLuminance {
		t.Error("extracted tonemapping aliases camera state")
	}
}

func TestGPUViewUniformMarshal(t *testing.T) {
	u := GPUViewUniform{}
	u.ViewProj[0] = 1
	buf := u.Marshal()
	if len(buf) != 64 {
		t.Fatalf("marshal length %d, want 64", len(buf))
	}
	if buf[0] == 0 && buf[1] == 0 && buf[2] == 0 && buf[3] == 0 {
		t.Error("first matrix element not written")
	}
}
