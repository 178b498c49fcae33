package material

import (
	"encoding/binary"
	"math"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/tessera-engine/tessera/common"
)

// ColorMaterial is the built-in 2D material: a color tint multiplied with
// an optional texture. It renders with the engine default mesh shader.
type ColorMaterial struct {
	Material2DDefaults

	label string

	// Color is the RGBA tint multiplied with the sampled texture.
	Color [4]float32

	// Texture is the image asset sampled by the material, or zero for the
	// engine's white fallback image.
	Texture common.AssetID

	alphaMode AlphaMode2D
	depthBias float32
}

var _ Material2D = &ColorMaterial{}

// ColorMaterialBuilderOption is a functional option for configuring a
// ColorMaterial during construction.
type ColorMaterialBuilderOption func(*ColorMaterial)

// NewColorMaterial creates an opaque white ColorMaterial configured with
// the given options.
//
// Parameters:
//   - options: functional options to configure the material
//
// Returns:
//   - *ColorMaterial: the newly created material
func NewColorMaterial(options ...ColorMaterialBuilderOption) *ColorMaterial {
	m := &ColorMaterial{
		label: "color_material",
		Color: [4]float32{1, 1, 1, 1},
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// WithLabel sets the material's debug name.
//
// Parameters:
//   - label: the debug name
//
// Returns:
//   - ColorMaterialBuilderOption: a function that sets the label
func WithLabel(label string) ColorMaterialBuilderOption {
	return func(m *ColorMaterial) {
		m.label = label
	}
}

// WithColor sets the RGBA tint.
//
// Parameters:
//   - r, g, b, a: tint components in [0, 1]
//
// Returns:
//   - ColorMaterialBuilderOption: a function that sets the tint
func WithColor(r, g, b, a float32) ColorMaterialBuilderOption {
	return func(m *ColorMaterial) {
		m.Color = [4]float32{r, g, b, a}
	}
}

// WithTexture sets the sampled image asset.
//
// Parameters:
//   - id: the image asset id
//
// Returns:
//   - ColorMaterialBuilderOption: a function that sets the texture
func WithTexture(id common.AssetID) ColorMaterialBuilderOption {
	return func(m *ColorMaterial) {
		m.Texture = id
	}
}

// WithAlphaMode sets the material's blend behavior.
//
// Parameters:
//   - mode: opaque or blended
//
// Returns:
//   - ColorMaterialBuilderOption: a function that sets the alpha mode
func WithAlphaMode(mode AlphaMode2D) ColorMaterialBuilderOption {
	return func(m *ColorMaterial) {
		m.alphaMode = mode
	}
}

// WithDepthBias sets the transparent-phase sort key bias.
//
// Parameters:
//   - bias: the sort key bias
//
// Returns:
//   - ColorMaterialBuilderOption: a function that sets the depth bias
func WithDepthBias(bias float32) ColorMaterialBuilderOption {
	return func(m *ColorMaterial) {
		m.depthBias = bias
	}
}

func (m *ColorMaterial) Label() string {
	return m.label
}

func (m *ColorMaterial) AlphaMode() AlphaMode2D {
	return m.alphaMode
}

func (m *ColorMaterial) DepthBias() float32 {
	return m.depthBias
}

func (m *ColorMaterial) BindGroupLayoutEntries() []wgpu.BindGroupLayoutEntry {
	entries := make([]wgpu.BindGroupLayoutEntry, 3)

	entries[0].Binding = 0
	entries[0].Visibility = wgpu.ShaderStageFragment
	entries[0].Buffer.Type = wgpu.BufferBindingTypeUniform

	entries[1].Binding = 1
	entries[1].Visibility = wgpu.ShaderStageFragment
	entries[1].Texture.SampleType = wgpu.TextureSampleTypeFloat
	entries[1].Texture.ViewDimension = wgpu.TextureViewDimension2D

	entries[2].Binding = 2
	entries[2].Visibility = wgpu.ShaderStageFragment
	entries[2].Sampler.Type = wgpu.SamplerBindingTypeFiltering

	return entries
}

func (m *ColorMaterial) Bindings() []Binding {
	uniform := make([]byte, 16)
	for i, f := range m.Color {
		binary.LittleEndian.PutUint32(uniform[i*4:], math.Float32bits(f))
	}
	return []Binding{
		{Index: 0, Kind: BindingUniform, Data: uniform},
		{Index: 1, Kind: BindingTexture, ImageID: m.Texture},
		{Index: 2, Kind: BindingSampler, ImageID: m.Texture},
	}
}
