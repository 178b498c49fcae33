package pipeline

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/tessera-engine/tessera/engine/mesh"
	"github.com/tessera-engine/tessera/engine/renderer/shader"
)

// DepthFormat is the depth attachment format the 2D pass renders against.
const DepthFormat = wgpu.TextureFormatDepth24Plus

// HDRFormat is the color target format of high-dynamic-range views.
const HDRFormat = wgpu.TextureFormatRGBA16Float

// Mesh2DPipeline is the base specializer for 2D mesh draws. It owns the
// shared view and mesh bind group layouts (groups 0 and 1) and turns a Key
// plus a vertex layout into a pipeline descriptor using the engine default
// shader. Material pipelines extend the descriptor from there.
type Mesh2DPipeline struct {
	// ViewLayout is the group 0 bind group layout shared by all 2D draws.
	ViewLayout *wgpu.BindGroupLayout

	// MeshLayout is the group 1 bind group layout shared by all 2D draws.
	MeshLayout *wgpu.BindGroupLayout

	// SurfaceFormat is the color target format of non-HDR views.
	SurfaceFormat wgpu.TextureFormat
}

// NewMesh2DPipeline creates the base 2D pipeline specializer.
//
// Parameters:
//   - viewLayout: the group 0 bind group layout
//   - meshLayout: the group 1 bind group layout
//   - surfaceFormat: the swapchain format used by non-HDR views
//
// Returns:
//   - *Mesh2DPipeline: the base specializer
func NewMesh2DPipeline(viewLayout, meshLayout *wgpu.BindGroupLayout, surfaceFormat wgpu.TextureFormat) *Mesh2DPipeline {
	return &Mesh2DPipeline{
		ViewLayout:    viewLayout,
		MeshLayout:    meshLayout,
		SurfaceFormat: surfaceFormat,
	}
}

// Specialize builds the base pipeline descriptor for a key and vertex
// layout. The descriptor uses the engine default mesh shader for both
// stages; callers may replace either stage before compiling.
//
// Parameters:
//   - key: the pipeline key
//   - layout: the interned vertex layout of the mesh being drawn
//
// Returns:
//   - *RenderPipelineDescriptor: the base descriptor
//   - error: an error if the key cannot be satisfied
func (p *Mesh2DPipeline) Specialize(key Key, layout mesh.VertexLayout) (*RenderPipelineDescriptor, error) {
	if key.MsaaSamples == 0 {
		return nil, fmt.Errorf("pipeline: msaa sample count must be at least 1")
	}

	defs := key.ShaderDefs()

	format := p.SurfaceFormat
	if key.HDR {
		format = HDRFormat
	}

	var blend *wgpu.BlendState
	if key.BlendAlpha {
		blend = &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	}

	base := shader.DefaultMesh2D()

	return &RenderPipelineDescriptor{
		Label:  "Mesh2D Pipeline",
		Layout: []*wgpu.BindGroupLayout{p.ViewLayout, p.MeshLayout},
		Vertex: VertexState{
			Shader:     base,
			ShaderDefs: defs,
			EntryPoint: base.EntryPoint(shader.StageVertex),
			Buffers:    layout.Buffers,
		},
		Fragment: &FragmentState{
			Shader:     base,
			ShaderDefs: defs,
			EntryPoint: base.EntryPoint(shader.StageFragment),
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				Blend:     blend,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  key.Topology,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            DepthFormat,
			DepthWriteEnabled: !key.BlendAlpha,
			DepthCompare:      wgpu.CompareFunctionLessEqual,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
		Multisample: wgpu.MultisampleState{
			Count: key.MsaaSamples,
			Mask:  0xFFFFFFFF,
		},
	}, nil
}
