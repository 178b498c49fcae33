package material

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/tessera-engine/tessera/engine/mesh"
	"github.com/tessera-engine/tessera/engine/renderer/pipeline"
	"github.com/tessera-engine/tessera/engine/renderer/shader"
)

// Material2DPipeline is the pipeline specializer for one material type. It
// extends the base mesh pipeline with the material's bind group layout at
// group 2, its shader overrides, and its specialization hook.
type Material2DPipeline struct {
	meshPipeline *pipeline.Mesh2DPipeline

	// MaterialLayout is the group 2 bind group layout shared by every
	// material of this type.
	MaterialLayout *wgpu.BindGroupLayout

	// vertexShader and fragmentShader override the base mesh shader stages.
	// Nil keeps the base stage.
	vertexShader   *shader.Shader
	fragmentShader *shader.Shader

	label string
}

// NewMaterial2DPipeline creates the specializer for a material type,
// resolving the material's shader references and creating its group 2
// layout.
//
// Parameters:
//   - dev: the GPU device
//   - meshPipeline: the base 2D mesh pipeline
//   - lib: the shader library resolving path references
//   - mat: a representative material of the type
//
// Returns:
//   - *Material2DPipeline: the type's specializer
//   - error: an error if shaders cannot be resolved or layout creation fails
func NewMaterial2DPipeline(dev Device, meshPipeline *pipeline.Mesh2DPipeline, lib *shader.Library, mat Material2D) (*Material2DPipeline, error) {
	vertexShader, err := mat.VertexShader().Resolve(lib)
	if err != nil {
		return nil, fmt.Errorf("material %q: vertex shader: %w", mat.Label(), err)
	}
	fragmentShader, err := mat.FragmentShader().Resolve(lib)
	if err != nil {
		return nil, fmt.Errorf("material %q: fragment shader: %w", mat.Label(), err)
	}

	layout, err := dev.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   mat.Label() + " Layout",
		Entries: mat.BindGroupLayoutEntries(),
	})
	if err != nil {
		return nil, fmt.Errorf("material %q: bind group layout: %w", mat.Label(), err)
	}

	return &Material2DPipeline{
		meshPipeline:   meshPipeline,
		MaterialLayout: layout,
		vertexShader:   vertexShader,
		fragmentShader: fragmentShader,
		label:          mat.Label(),
	}, nil
}

// Specialize builds the full pipeline descriptor for a material draw: the
// base mesh descriptor, the material's shader overrides, the three-group
// layout order, and finally the material's own specialization hook.
//
// Parameters:
//   - mat: the material being specialized for
//   - key: the pipeline key
//   - layout: the interned vertex layout of the mesh being drawn
//
// Returns:
//   - *pipeline.RenderPipelineDescriptor: the ready-to-compile descriptor
//   - error: an error from the base pipeline or the material hook
func (p *Material2DPipeline) Specialize(mat Material2D, key pipeline.Key, layout mesh.VertexLayout) (*pipeline.RenderPipelineDescriptor, error) {
	desc, err := p.meshPipeline.Specialize(key, layout)
	if err != nil {
		return nil, err
	}

	desc.Label = p.label + " Pipeline"

	if p.vertexShader != nil {
		desc.Vertex.Shader = p.vertexShader
		desc.Vertex.EntryPoint = p.vertexShader.EntryPoint(shader.StageVertex)
	}
	if p.fragmentShader != nil {
		desc.Fragment.Shader = p.fragmentShader
		desc.Fragment.EntryPoint = p.fragmentShader.EntryPoint(shader.StageFragment)
	}

	// Group order is fixed: view at 0, mesh at 1, material at 2.
	desc.Layout = append(desc.Layout, p.MaterialLayout)

	if err := mat.Specialize(desc, layout, key); err != nil {
		return nil, fmt.Errorf("material %q: specialize: %w", mat.Label(), err)
	}
	return desc, nil
}

// Material2DPipelines lazily creates and caches one Material2DPipeline per
// material Go type. Safe for concurrent use.
type Material2DPipelines struct {
	mu     sync.Mutex
	byType map[reflect.Type]*Material2DPipeline
}

// NewMaterial2DPipelines creates an empty per-type pipeline registry.
func NewMaterial2DPipelines() *Material2DPipelines {
	return &Material2DPipelines{byType: make(map[reflect.Type]*Material2DPipeline)}
}

// For returns the specializer for a material's type, creating it from this
// material on first use.
//
// Parameters:
//   - dev: the GPU device
//   - meshPipeline: the base 2D mesh pipeline
//   - lib: the shader library resolving path references
//   - mat: the material whose type is looked up
//
// Returns:
//   - *Material2DPipeline: the type's specializer
//   - error: an error if the specializer cannot be created
func (r *Material2DPipelines) For(dev Device, meshPipeline *pipeline.Mesh2DPipeline, lib *shader.Library, mat Material2D) (*Material2DPipeline, error) {
	t := reflect.TypeOf(mat)

	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byType[t]; ok {
		return p, nil
	}
	p, err := NewMaterial2DPipeline(dev, meshPipeline, lib, mat)
	if err != nil {
		return nil, err
	}
	r.byType[t] = p
	return p, nil
}

// Clear drops all per-type specializers. Called alongside the pipeline
// cache after shader reloads.
func (r *Material2DPipelines) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType = make(map[reflect.Type]*Material2DPipeline)
}

// specializationKey is the comparable cache key data for a material draw:
// the material's Go type plus its BindGroupData.
type specializationKey struct {
	Type reflect.Type
	Data any
}

func typeOf(mat Material2D) reflect.Type {
	return reflect.TypeOf(mat)
}
