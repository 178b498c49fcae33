// Package camera implements the 2D orthographic camera. Each camera owns a
// view entity; extraction snapshots the camera into a view.ExtractedView that
// drives pipeline specialization and render phase queuing for that view.
package camera

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/tessera-engine/tessera/common"
	"github.com/tessera-engine/tessera/engine/renderer/binding"
	"github.com/tessera-engine/tessera/engine/view"
)

// cameraCount is an atomic counter used to assign view entities and unique
// binding provider names to camera instances.
var cameraCount atomic.Uint64

type camera2DImpl struct {
	mu *sync.Mutex

	entity common.Entity

	position [2]float32
	zoom     float32
	viewport [2]float32
	near     float32
	far      float32

	hdr         bool
	tonemapping *view.Tonemapping
	dither      *view.DebandDither

	viewProjectionMatrix [16]float32

	bindingProvider binding.Provider
}

// Camera2D defines the interface for a 2D orthographic camera.
// The camera computes a view-projection matrix from its position, zoom, and
// viewport size, and is snapshotted into an ExtractedView each frame.
type Camera2D interface {
	// Entity returns the view entity assigned to this camera. Render phases
	// for this camera's view are keyed by it.
	//
	// Returns:
	//   - common.Entity: the view entity
	Entity() common.Entity

	// Position returns the camera's world position.
	//
	// Returns:
	//   - x, y: world position components
	Position() (x, y float32)

	// Zoom returns the camera's zoom factor. A zoom of 2 shows half the
	// world area of a zoom of 1.
	//
	// Returns:
	//   - float32: the zoom factor
	Zoom() float32

	// Viewport returns the viewport size in pixels.
	//
	// Returns:
	//   - w, h: viewport dimensions
	Viewport() (w, h float32)

	// HDR reports whether this camera renders to a high-dynamic-range
	// target. HDR views never tonemap in the main pass.
	//
	// Returns:
	//   - bool: true when HDR is enabled
	HDR() bool

	// ViewProjectionMatrix returns the current combined view-projection
	// matrix as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the combined view-projection matrix
	ViewProjectionMatrix() [16]float32

	// BindingProvider returns the camera's binding provider holding the view
	// uniform buffer and bind group.
	//
	// Returns:
	//   - binding.Provider: the binding provider
	BindingProvider() binding.Provider

	// Extract snapshots the camera into a per-frame view.
	//
	// Parameters:
	//   - msaaSamples: the multisample count configured for this view's target
	//   - visible: the entities this view can see this frame
	//
	// Returns:
	//   - *view.ExtractedView: the snapshot consumed by specialization and queuing
	Extract(msaaSamples uint32, visible []common.Entity) *view.ExtractedView

	// SetPosition moves the camera and recomputes matrices.
	//
	// Parameters:
	//   - x, y: world position components
	SetPosition(x, y float32)

	// SetZoom sets the zoom factor and recomputes matrices.
	//
	// Parameters:
	//   - zoom: the zoom factor, must be positive
	SetZoom(zoom float32)

	// SetViewport sets the viewport size in pixels and recomputes matrices.
	// Called on window resize.
	//
	// Parameters:
	//   - w, h: viewport dimensions
	SetViewport(w, h float32)
}

var _ Camera2D = &camera2DImpl{}

// NewCamera2D creates a new 2D camera centered on the origin with unit zoom.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera2D: the newly created camera
func NewCamera2D(options ...Camera2DBuilderOption) Camera2D {
	n := cameraCount.Add(1)
	c := &camera2DImpl{
		mu:              &sync.Mutex{},
		entity:          common.Entity(n),
		zoom:            1,
		viewport:        [2]float32{1, 1},
		near:            -1000,
		far:             1000,
		bindingProvider: binding.NewProvider("camera_" + strconv.FormatUint(n, 10)),
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *camera2DImpl) Entity() common.Entity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entity
}

func (c *camera2DImpl) Position() (x, y float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position[0], c.position[1]
}

func (c *camera2DImpl) Zoom() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.zoom
}

func (c *camera2DImpl) Viewport() (w, h float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewport[0], c.viewport[1]
}

func (c *camera2DImpl) HDR() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hdr
}

func (c *camera2DImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *camera2DImpl) BindingProvider() binding.Provider {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bindingProvider
}

func (c *camera2DImpl) Extract(msaaSamples uint32, visible []common.Entity) *view.ExtractedView {
	c.mu.Lock()
	defer c.mu.Unlock()

	var tonemapping *view.Tonemapping
	if c.tonemapping != nil {
		t := *c.tonemapping
		tonemapping = &t
	}
	var dither *view.DebandDither
	if c.dither != nil {
		d := *c.dither
		dither = &d
	}

	return &view.ExtractedView{
		Entity:          c.entity,
		HDR:             c.hdr,
		MsaaSamples:     msaaSamples,
		Tonemapping:     tonemapping,
		Dither:          dither,
		ViewProj:        c.viewProjectionMatrix,
		VisibleEntities: visible,
	}
}

func (c *camera2DImpl) SetPosition(x, y float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = [2]float32{x, y}
	c.updateMatrices()
}

func (c *camera2DImpl) SetZoom(zoom float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if zoom <= 0 {
		return
	}
	c.zoom = zoom
	c.updateMatrices()
}

func (c *camera2DImpl) SetViewport(w, h float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w <= 0 || h <= 0 {
		return
	}
	c.viewport = [2]float32{w, h}
	c.updateMatrices()
}

// updateMatrices recomputes the orthographic view-projection matrix from the
// camera's position, zoom, and viewport. Caller must hold the mutex.
func (c *camera2DImpl) updateMatrices() {
	halfW := c.viewport[0] / (2 * c.zoom)
	halfH := c.viewport[1] / (2 * c.zoom)

	left := c.position[0] - halfW
	right := c.position[0] + halfW
	bottom := c.position[1] - halfH
	top := c.position[1] + halfH

	ortho(c.viewProjectionMatrix[:], left, right, bottom, top, c.near, c.far)
}

// ortho writes a column-major orthographic projection into out, mapping the
// given box to wgpu clip space (depth 0..1).
func ortho(out []float32, left, right, bottom, top, near, far float32) {
	rw := 1 / (right - left)
	rh := 1 / (top - bottom)
	rd := 1 / (far - near)

	out[0] = 2 * rw
	out[1], out[2], out[3] = 0, 0, 0
	out[4] = 0
	out[5] = 2 * rh
	out[6], out[7] = 0, 0
	out[8], out[9] = 0, 0
	out[10] = rd
	out[11] = 0
	out[12] = -(right + left) * rw
	out[13] = -(top + bottom) * rh
	out[14] = -near * rd
	out[15] = 1
}
