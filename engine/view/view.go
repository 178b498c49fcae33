// Package view holds the render-side snapshot of a camera view: the
// post-processing settings that feed pipeline specialization and the set of
// entities the view can see this frame.
package view

import (
	"github.com/tessera-engine/tessera/common"
)

// Tonemapping selects the tonemapping curve applied when a view tonemaps in
// the main pass. It only takes effect on non-HDR views; HDR views defer
// tonemapping to a later pass.
type Tonemapping int

const (
	TonemappingNone Tonemapping = iota
	TonemappingReinhard
	TonemappingReinhardLuminance
	TonemappingAcesFitted
	TonemappingAgX
	TonemappingSomewhatBoringDisplayTransform
	TonemappingTonyMcMapface
	TonemappingBlenderFilmic
)

// String returns the shader definition suffix for this method.
func (t Tonemapping) String() string {
	switch t {
	case TonemappingNone:
		return "NONE"
	case TonemappingReinhard:
		return "REINHARD"
	case TonemappingReinhardLuminance:
		return "REINHARD_LUMINANCE"
	case TonemappingAcesFitted:
		return "ACES_FITTED"
	case TonemappingAgX:
		return "AGX"
	case TonemappingSomewhatBoringDisplayTransform:
		return "SOMEWHAT_BORING_DISPLAY_TRANSFORM"
	case TonemappingTonyMcMapface:
		return "TONY_MC_MAPFACE"
	case TonemappingBlenderFilmic:
		return "BLENDER_FILMIC"
	default:
		return "NONE"
	}
}

// ParseTonemapping maps a configuration string to a Tonemapping method.
//
// Parameters:
//   - s: the configured method name (e.g. "reinhard_luminance")
//
// Returns:
//   - Tonemapping: the parsed method
//   - bool: false when the name is not recognized
func ParseTonemapping(s string) (Tonemapping, bool) {
	switch s {
	case "", "none":
		return TonemappingNone, true
	case "reinhard":
		return TonemappingReinhard, true
	case "reinhard_luminance":
		return TonemappingReinhardLuminance, true
	case "aces_fitted":
		return TonemappingAcesFitted, true
	case "agx":
		return TonemappingAgX, true
	case "somewhat_boring_display_transform":
		return TonemappingSomewhatBoringDisplayTransform, true
	case "tony_mc_mapface":
		return TonemappingTonyMcMapface, true
	case "blender_filmic":
		return TonemappingBlenderFilmic, true
	default:
		return TonemappingNone, false
	}
}

// DebandDither enables post-tonemapping dithering to break up banding.
type DebandDither int

const (
	DebandDitherDisabled DebandDither = iota
	DebandDitherEnabled
)

// ExtractedView is the per-frame render snapshot of one camera view.
// Tonemapping and Dither are nil when the camera does not carry those
// settings.
type ExtractedView struct {
	// Entity identifies the camera this view was extracted from. Render
	// phases are keyed by it.
	Entity common.Entity

	// HDR selects the high-dynamic-range render target. HDR views never
	// tonemap in the main pass.
	HDR bool

	// MsaaSamples is the multisample count for this view's target.
	MsaaSamples uint32

	Tonemapping *Tonemapping
	Dither      *DebandDither

	// ViewProj is the view's column-major view-projection matrix, uploaded
	// as the group 0 uniform.
	ViewProj [16]float32

	// VisibleEntities lists the entities this view can see this frame.
	// Queuing only considers these.
	VisibleEntities []common.Entity
}
