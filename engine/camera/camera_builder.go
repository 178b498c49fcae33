package camera

import (
	"github.com/tessera-engine/tessera/engine/renderer/binding"
	"github.com/tessera-engine/tessera/engine/view"
)

type Camera2DBuilderOption func(*camera2DImpl)

// WithPosition sets the camera's world position.
//
// Parameters:
//   - x, y: world position components
//
// Returns:
//   - Camera2DBuilderOption: a function that sets the camera's position
func WithPosition(x, y float32) Camera2DBuilderOption {
	return func(c *camera2DImpl) {
		c.position = [2]float32{x, y}
	}
}

// WithZoom sets the camera's zoom factor.
//
// Parameters:
//   - zoom: the zoom factor, must be positive
//
// Returns:
//   - Camera2DBuilderOption: a function that sets the camera's zoom
func WithZoom(zoom float32) Camera2DBuilderOption {
	return func(c *camera2DImpl) {
		if zoom > 0 {
			c.zoom = zoom
		}
	}
}

// WithViewport sets the viewport size in pixels.
//
// Parameters:
//   - w, h: viewport dimensions
//
// Returns:
//   - Camera2DBuilderOption: a function that sets the viewport size
func WithViewport(w, h float32) Camera2DBuilderOption {
	return func(c *camera2DImpl) {
		if w > 0 && h > 0 {
			c.viewport = [2]float32{w, h}
		}
	}
}

// WithHDR enables rendering to a high-dynamic-range target for this camera.
// HDR views never tonemap in the main pass.
//
// Returns:
//   - Camera2DBuilderOption: a function that enables HDR
func WithHDR() Camera2DBuilderOption {
	return func(c *camera2DImpl) {
		c.hdr = true
	}
}

// WithTonemapping sets the tonemapping method applied to this camera's view.
//
// Parameters:
//   - t: the tonemapping method
//
// Returns:
//   - Camera2DBuilderOption: a function that sets the tonemapping method
func WithTonemapping(t view.Tonemapping) Camera2DBuilderOption {
	return func(c *camera2DImpl) {
		c.tonemapping = &t
	}
}

// WithDebandDither sets the deband dithering mode for this camera's view.
//
// Parameters:
//   - d: the dithering mode
//
// Returns:
//   - Camera2DBuilderOption: a function that sets the dithering mode
func WithDebandDither(d view.DebandDither) Camera2DBuilderOption {
	return func(c *camera2DImpl) {
		c.dither = &d
	}
}

// WithBindingProvider attaches a binding provider to the camera. The
// provider holds the view uniform buffer and bind group.
//
// Parameters:
//   - provider: the binding provider to attach
//
// Returns:
//   - Camera2DBuilderOption: a function that sets the binding provider
func WithBindingProvider(provider binding.Provider) Camera2DBuilderOption {
	return func(c *camera2DImpl) {
		c.bindingProvider = provider
	}
}
