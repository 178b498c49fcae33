// Package pipeline implements 2D render pipeline specialization: a
// comparable key describing every property a compiled pipeline depends on,
// the base mesh pipeline that turns a key into a pipeline descriptor, and a
// cache that compiles each distinct specialization exactly once.
package pipeline

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/tessera-engine/tessera/engine/view"
)

// Key captures every view- and mesh-derived property a compiled 2D pipeline
// depends on. Keys are plain comparable values; two draws with equal keys
// (and equal vertex layout and material data) share one compiled pipeline.
type Key struct {
	// MsaaSamples is the multisample count of the target.
	MsaaSamples uint32

	// HDR selects the high-dynamic-range target format.
	HDR bool

	// TonemapInShader applies tonemapping in the fragment shader. Never set
	// on HDR views, which tonemap in a later pass.
	TonemapInShader bool

	// TonemapMethod selects the curve when TonemapInShader is set.
	TonemapMethod view.Tonemapping

	// DebandDither dithers after tonemapping. Only meaningful when
	// TonemapInShader is set.
	DebandDither bool

	// Topology is the primitive topology of the mesh being drawn.
	Topology wgpu.PrimitiveTopology

	// BlendAlpha selects premultiplied-style alpha blending for transparent
	// materials. Opaque materials leave it unset and write depth.
	BlendAlpha bool
}

// ViewKey derives the pipeline key bits contributed by a view. Tonemapping
// and dithering only reach the shader on non-HDR views; HDR views carry the
// HDR bit alone and tonemap later.
//
// Parameters:
//   - v: the extracted view
//
// Returns:
//   - Key: the view-derived key bits
func ViewKey(v *view.ExtractedView) Key {
	key := Key{
		MsaaSamples: v.MsaaSamples,
		HDR:         v.HDR,
	}
	if !v.HDR {
		if v.Tonemapping != nil && *v.Tonemapping != view.TonemappingNone {
			key.TonemapInShader = true
			key.TonemapMethod = *v.Tonemapping
			if v.Dither != nil && *v.Dither == view.DebandDitherEnabled {
				key.DebandDither = true
			}
		}
	}
	return key
}

// ShaderDefs returns the preprocessor definitions this key enables in WGSL
// sources.
//
// Returns:
//   - []string: the enabled definitions, in a stable order
func (k Key) ShaderDefs() []string {
	var defs []string
	if k.TonemapInShader {
		defs = append(defs, "TONEMAP_IN_SHADER")
		defs = append(defs, "TONEMAP_METHOD_"+k.TonemapMethod.String())
		if k.DebandDither {
			defs = append(defs, "DEBAND_DITHER")
		}
	}
	if k.BlendAlpha {
		defs = append(defs, "BLEND_ALPHA")
	}
	return defs
}
