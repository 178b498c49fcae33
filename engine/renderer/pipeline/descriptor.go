package pipeline

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/tessera-engine/tessera/engine/renderer/shader"
)

// Device is the subset of the GPU device needed to compile render
// pipelines. *wgpu.Device satisfies it.
type Device interface {
	CreateShaderModule(descriptor *wgpu.ShaderModuleDescriptor) (*wgpu.ShaderModule, error)
	CreatePipelineLayout(descriptor *wgpu.PipelineLayoutDescriptor) (*wgpu.PipelineLayout, error)
	CreateRenderPipeline(descriptor *wgpu.RenderPipelineDescriptor) (*wgpu.RenderPipeline, error)
}

// RenderPipelineDescriptor is the CPU-side description of a specialized 2D
// render pipeline. Specialization builds one from a Key, material hooks may
// then adjust it, and Build compiles it into a GPU pipeline.
type RenderPipelineDescriptor struct {
	Label string

	// Layout is the bind group layout order the compiled pipeline expects:
	// view bindings at group 0, mesh bindings at group 1, material bindings
	// at group 2.
	Layout []*wgpu.BindGroupLayout

	Vertex   VertexState
	Fragment *FragmentState

	Primitive    wgpu.PrimitiveState
	DepthStencil *wgpu.DepthStencilState
	Multisample  wgpu.MultisampleState
}

// VertexState is the vertex stage of a pipeline descriptor.
type VertexState struct {
	// Shader is the WGSL source for this stage.
	Shader *shader.Shader
	// ShaderDefs are the preprocessor definitions applied to the source.
	ShaderDefs []string
	// EntryPoint is the vertex entry function name.
	EntryPoint string
	// Buffers is the vertex buffer layout the stage consumes.
	Buffers []wgpu.VertexBufferLayout
}

// FragmentState is the fragment stage of a pipeline descriptor.
type FragmentState struct {
	// Shader is the WGSL source for this stage.
	Shader *shader.Shader
	// ShaderDefs are the preprocessor definitions applied to the source.
	ShaderDefs []string
	// EntryPoint is the fragment entry function name.
	EntryPoint string
	// Targets are the color targets the stage writes.
	Targets []wgpu.ColorTargetState
}

// Build preprocesses the descriptor's shaders and compiles the GPU
// pipeline.
//
// Parameters:
//   - dev: the GPU device
//   - desc: the pipeline description
//
// Returns:
//   - *wgpu.RenderPipeline: the compiled pipeline
//   - error: an error if shader preprocessing or any GPU creation fails
func Build(dev Device, desc *RenderPipelineDescriptor) (*wgpu.RenderPipeline, error) {
	if desc.Vertex.Shader == nil {
		return nil, fmt.Errorf("pipeline %q: no vertex shader", desc.Label)
	}

	vertexModuleDesc, err := desc.Vertex.Shader.ModuleDescriptor(desc.Vertex.ShaderDefs)
	if err != nil {
		return nil, fmt.Errorf("pipeline %q: vertex shader: %w", desc.Label, err)
	}
	vertexModule, err := dev.CreateShaderModule(vertexModuleDesc)
	if err != nil {
		return nil, fmt.Errorf("pipeline %q: vertex shader: %w", desc.Label, err)
	}

	layout, err := dev.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label + " Layout",
		BindGroupLayouts: desc.Layout,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline %q: layout: %w", desc.Label, err)
	}

	gpuDesc := &wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vertexModule,
			EntryPoint: desc.Vertex.EntryPoint,
			Buffers:    desc.Vertex.Buffers,
		},
		Primitive:    desc.Primitive,
		DepthStencil: desc.DepthStencil,
		Multisample:  desc.Multisample,
	}

	if desc.Fragment != nil {
		fragmentModule := vertexModule
		// Reuse the vertex module when both stages come from the same
		// source with the same definitions.
		if desc.Fragment.Shader != desc.Vertex.Shader || !equalDefs(desc.Fragment.ShaderDefs, desc.Vertex.ShaderDefs) {
			fragmentModuleDesc, fErr := desc.Fragment.Shader.ModuleDescriptor(desc.Fragment.ShaderDefs)
			if fErr != nil {
				return nil, fmt.Errorf("pipeline %q: fragment shader: %w", desc.Label, fErr)
			}
			fragmentModule, fErr = dev.CreateShaderModule(fragmentModuleDesc)
			if fErr != nil {
				return nil, fmt.Errorf("pipeline %q: fragment shader: %w", desc.Label, fErr)
			}
		}
		gpuDesc.Fragment = &wgpu.FragmentState{
			Module:     fragmentModule,
			EntryPoint: desc.Fragment.EntryPoint,
			Targets:    desc.Fragment.Targets,
		}
	}

	created, err := dev.CreateRenderPipeline(gpuDesc)
	if err != nil {
		return nil, fmt.Errorf("pipeline %q: %w", desc.Label, err)
	}
	return created, nil
}

func equalDefs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
