package material

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/tessera-engine/tessera/common"
	"github.com/tessera-engine/tessera/engine/mesh"
	"github.com/tessera-engine/tessera/engine/renderer/phase"
)

// Draw2D encodes queued 2D material draws onto a render pass. The renderer
// registers its Draw method for both the opaque and transparent phases;
// binned opaque calls carry their shared state in the call, transparent
// calls resolve per-entity state through the instance maps.
type Draw2D struct {
	// ViewBindGroup returns the group 0 bind group for a view.
	ViewBindGroup func(viewEntity common.Entity) *wgpu.BindGroup

	// MeshBindGroup returns the group 1 bind group for a view, holding the
	// instance transform storage uploaded in phase order.
	MeshBindGroup func(viewEntity common.Entity) *wgpu.BindGroup

	// Meshes holds the GPU-resident meshes.
	Meshes *mesh.RenderMeshes

	// MeshInstances resolves per-entity mesh state for transparent draws.
	MeshInstances mesh.RenderMesh2DInstances
}

// Draw encodes one DrawCall.
//
// Parameters:
//   - pass: the render pass being encoded
//   - viewEntity: the view the call belongs to
//   - call: the draw state and entities to encode
//
// Returns:
//   - error: an error if a referenced resource is missing
func (d *Draw2D) Draw(pass phase.RenderPass, viewEntity common.Entity, call phase.DrawCall) error {
	if len(call.Entities) == 0 {
		return nil
	}

	pass.SetPipeline(call.Pipeline)
	pass.SetBindGroup(0, d.ViewBindGroup(viewEntity), nil)
	pass.SetBindGroup(1, d.MeshBindGroup(viewEntity), nil)

	meshID := call.MeshAssetID
	materialBindGroup := call.MaterialBindGroup
	if meshID == 0 || materialBindGroup == nil {
		// Transparent calls cover one entity; resolve its state.
		instance, ok := d.MeshInstances.Get(call.Entities[0])
		if !ok {
			return fmt.Errorf("draw: entity %d has no mesh instance", call.Entities[0])
		}
		meshID = instance.MeshAssetID
		materialBindGroup = instance.MaterialBindGroup()
	}
	if materialBindGroup == nil {
		return fmt.Errorf("draw: entity %d has no material bind group", call.Entities[0])
	}
	pass.SetBindGroup(2, materialBindGroup, nil)

	mesh2d, ok := d.Meshes.Get(meshID)
	if !ok {
		return fmt.Errorf("draw: mesh %d: %w", meshID, mesh.ErrMeshNotReady)
	}
	pass.SetVertexBuffer(0, mesh2d.Binding.VertexBuffer(), 0, wgpu.WholeSize)
	pass.SetIndexBuffer(mesh2d.Binding.IndexBuffer(), wgpu.IndexFormatUint32, 0, wgpu.WholeSize)

	start, end := call.BatchRange[0], call.BatchRange[1]
	if end <= start {
		return nil
	}
	indexCount := uint32(mesh2d.Binding.IndexCount())

	if call.Batchable {
		pass.DrawIndexed(indexCount, end-start, 0, 0, start)
		return nil
	}
	for instance := start; instance < end; instance++ {
		pass.DrawIndexed(indexCount, 1, 0, 0, instance)
	}
	return nil
}
