// Package material implements the 2D material system: the Material2D
// contract user materials implement, GPU preparation of material bindings
// with retry on missing assets, per-material pipeline specialization, and
// the per-view queuing that turns visible entities into render phase items.
package material

import (
	"sync"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/tessera-engine/tessera/common"
	"github.com/tessera-engine/tessera/engine/mesh"
	"github.com/tessera-engine/tessera/engine/renderer/pipeline"
	"github.com/tessera-engine/tessera/engine/renderer/shader"
)

// AlphaMode2D selects how a material's output blends with the target.
type AlphaMode2D int

const (
	// AlphaModeOpaque draws into the binned opaque phase with depth
	// writes. Alpha output is forced to one.
	AlphaModeOpaque AlphaMode2D = iota

	// AlphaModeBlend draws into the sorted transparent phase with standard
	// alpha blending and no depth writes.
	AlphaModeBlend
)

// BindingKind discriminates the resource variants of a material binding.
type BindingKind int

const (
	// BindingUniform is a uniform buffer binding filled from Data.
	BindingUniform BindingKind = iota

	// BindingTexture is a sampled texture binding resolved from ImageID.
	BindingTexture

	// BindingSampler is a sampler binding resolved from ImageID.
	BindingSampler
)

// Binding describes one resource a material binds at group 2. Preparation
// turns bindings into GPU resources and a bind group.
type Binding struct {
	// Index is the binding index within group 2.
	Index uint32

	Kind BindingKind

	// Data is the uniform content for BindingUniform.
	Data []byte

	// ImageID names the image asset for texture and sampler bindings. Zero
	// binds the engine fallback image.
	ImageID common.AssetID
}

// Material2D is the contract a 2D material implements. The renderer only
// sees this interface: it asks the material for its shaders, its blending
// behavior, its bindings, and lets it adjust specialized pipelines.
//
// Embed Material2DDefaults to pick up the default behavior for methods a
// material does not care about.
type Material2D interface {
	// Label returns a debug name for the material.
	//
	// Returns:
	//   - string: the debug name
	Label() string

	// VertexShader returns the vertex stage shader reference. The default
	// reference keeps the engine mesh shader's vertex stage.
	//
	// Returns:
	//   - shader.Ref: the vertex shader reference
	VertexShader() shader.Ref

	// FragmentShader returns the fragment stage shader reference. The
	// default reference keeps the engine mesh shader's fragment stage.
	//
	// Returns:
	//   - shader.Ref: the fragment shader reference
	FragmentShader() shader.Ref

	// AlphaMode returns how the material blends with the target.
	//
	// Returns:
	//   - AlphaMode2D: the blend behavior
	AlphaMode() AlphaMode2D

	// DepthBias adjusts the transparent-phase sort key of draws using this
	// material without changing their world depth. Ignored by the opaque
	// phase.
	//
	// Returns:
	//   - float32: the sort key bias
	DepthBias() float32

	// BindGroupLayoutEntries returns the group 2 layout this material's
	// bindings conform to. All materials of one Go type must return the
	// same entries; the layout is created once per type.
	//
	// Returns:
	//   - []wgpu.BindGroupLayoutEntry: the group 2 layout entries
	BindGroupLayoutEntries() []wgpu.BindGroupLayoutEntry

	// Bindings returns the material's current group 2 resources.
	//
	// Returns:
	//   - []Binding: one entry per layout binding
	Bindings() []Binding

	// BindGroupData returns the material's pipeline specialization data. It
	// participates in the pipeline cache key and must be comparable; return
	// nil when specialization does not depend on material state.
	//
	// Returns:
	//   - any: comparable specialization data, or nil
	BindGroupData() any

	// Specialize lets the material adjust a pipeline descriptor before
	// compilation. The descriptor already carries the material's shaders
	// and the view, mesh, and material layouts.
	//
	// Parameters:
	//   - desc: the descriptor to adjust in place
	//   - layout: the vertex layout of the mesh being specialized for
	//   - key: the pipeline key being specialized for
	//
	// Returns:
	//   - error: an error to reject the specialization
	Specialize(desc *pipeline.RenderPipelineDescriptor, layout mesh.VertexLayout, key pipeline.Key) error
}

// Material2DDefaults provides the default Material2D behavior: engine
// shaders for both stages, opaque blending, no depth bias, no
// specialization data, and a no-op specialization hook. Embed it and
// override what the material needs.
type Material2DDefaults struct{}

func (Material2DDefaults) VertexShader() shader.Ref   { return shader.DefaultRef() }
func (Material2DDefaults) FragmentShader() shader.Ref { return shader.DefaultRef() }
func (Material2DDefaults) AlphaMode() AlphaMode2D     { return AlphaModeOpaque }
func (Material2DDefaults) DepthBias() float32         { return 0 }
func (Material2DDefaults) BindGroupData() any         { return nil }
func (Material2DDefaults) Specialize(desc *pipeline.RenderPipelineDescriptor, layout mesh.VertexLayout, key pipeline.Key) error {
	return nil
}

// assetCount assigns material asset ids.
var assetCount atomic.Uint64

// Assets is the main-side material asset table. Adding or replacing an
// asset marks it changed; the frame loop drains the changed set and
// prepares those materials for rendering.
type Assets struct {
	mu        sync.Mutex
	materials map[common.AssetID]Material2D
	changed   map[common.AssetID]bool
}

// NewAssets creates an empty material asset table.
func NewAssets() *Assets {
	return &Assets{
		materials: make(map[common.AssetID]Material2D),
		changed:   make(map[common.AssetID]bool),
	}
}

// Add inserts a material under a fresh asset id and marks it changed.
//
// Parameters:
//   - mat: the material to add
//
// Returns:
//   - common.AssetID: the assigned asset id
func (a *Assets) Add(mat Material2D) common.AssetID {
	id := common.AssetID(assetCount.Add(1))
	a.mu.Lock()
	defer a.mu.Unlock()
	a.materials[id] = mat
	a.changed[id] = true
	return id
}

// Set replaces the material under an existing asset id and marks it
// changed. Entities referencing the id pick up the new material once it is
// re-prepared.
//
// Parameters:
//   - id: the asset id to replace
//   - mat: the new material
func (a *Assets) Set(id common.AssetID, mat Material2D) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.materials[id] = mat
	a.changed[id] = true
}

// Get returns the material under an asset id.
//
// Parameters:
//   - id: the asset id
//
// Returns:
//   - Material2D: the material, or nil
//   - bool: false when the id is unknown
func (a *Assets) Get(id common.AssetID) (Material2D, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	mat, ok := a.materials[id]
	return mat, ok
}

// Remove drops the material under an asset id.
func (a *Assets) Remove(id common.AssetID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.materials, id)
	delete(a.changed, id)
}

// TakeChanged drains and returns the set of assets added or replaced since
// the last call.
//
// Returns:
//   - []common.AssetID: the changed asset ids, unordered
func (a *Assets) TakeChanged() []common.AssetID {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.changed) == 0 {
		return nil
	}
	ids := make([]common.AssetID, 0, len(a.changed))
	for id := range a.changed {
		ids = append(ids, id)
		delete(a.changed, id)
	}
	return ids
}

// MarkChanged re-marks an asset changed, scheduling another preparation
// attempt. Used to retry materials whose bindings were not ready.
func (a *Assets) MarkChanged(id common.AssetID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.materials[id]; ok {
		a.changed[id] = true
	}
}
