package material

import (
	"github.com/tessera-engine/tessera"
	"github.com/tessera-engine/tessera/engine/mesh"
	"github.com/tessera-engine/tessera/engine/renderer/phase"
	"github.com/tessera-engine/tessera/engine/renderer/pipeline"
	"github.com/tessera-engine/tessera/engine/renderer/shader"
	"github.com/tessera-engine/tessera/engine/view"
)

// Queue2D queues visible 2D material draws into per-view render phases. One
// Queue2D is shared by all views; QueueView is safe to call concurrently
// for distinct views.
type Queue2D struct {
	// Device compiles pipelines on specialization cache misses.
	Device Device

	// MeshPipeline is the base specializer shared by all material types.
	MeshPipeline *pipeline.Mesh2DPipeline

	// Pipelines holds the per-material-type specializers.
	Pipelines *Material2DPipelines

	// Library resolves path shader references.
	Library *shader.Library

	// Cache deduplicates compiled pipelines across draws, views, and
	// frames.
	Cache *pipeline.SpecializedMeshPipelines

	// Materials is the main-side material asset table.
	Materials *Assets

	// RenderMaterials holds the prepared materials.
	RenderMaterials *RenderMaterials

	// MaterialInstances maps entities to material assets this frame.
	MaterialInstances RenderMaterial2DInstances

	// MeshInstances maps entities to mesh snapshots this frame.
	MeshInstances mesh.RenderMesh2DInstances

	// Meshes holds the GPU-resident meshes.
	Meshes *mesh.RenderMeshes

	// Phases holds the per-view render phases being filled.
	Phases *phase.ViewPhases

	// OpaqueDraw and TransparentDraw are the registered draw functions
	// phase items reference.
	OpaqueDraw      phase.DrawFunctionID
	TransparentDraw phase.DrawFunctionID
}

// QueueView queues every visible, ready entity of one view into the view's
// render phases.
//
// An entity is skipped without error when any of its inputs is not ready
// this frame: no material instance, no mesh instance, material not yet
// prepared, or mesh not yet resident. Specialization failures are logged
// and skip the entity; one broken material never aborts the frame.
//
// As a side effect, each queued entity's mesh instance records the material
// bind group it was queued with, which later batching compares across
// draws.
//
// Parameters:
//   - v: the extracted view to queue
func (q *Queue2D) QueueView(v *view.ExtractedView) {
	opaquePhase, ok := q.Phases.Opaque(v.Entity)
	if !ok {
		return
	}
	transparentPhase, _ := q.Phases.Transparent(v.Entity)

	viewKey := pipeline.ViewKey(v)

	for _, entity := range v.VisibleEntities {
		materialID, ok := q.MaterialInstances.Get(entity)
		if !ok {
			continue
		}
		meshInstance, ok := q.MeshInstances.Get(entity)
		if !ok {
			continue
		}
		prepared, ok := q.RenderMaterials.Get(materialID)
		if !ok {
			continue
		}
		mesh2d, ok := q.Meshes.Get(meshInstance.MeshAssetID)
		if !ok {
			continue
		}
		mat, ok := q.Materials.Get(materialID)
		if !ok {
			continue
		}

		key := viewKey
		key.Topology = mesh2d.Topology
		key.BlendAlpha = prepared.Properties.AlphaMode == AlphaModeBlend

		materialPipeline, err := q.Pipelines.For(q.Device, q.MeshPipeline, q.Library, mat)
		if err != nil {
			tessera.Logger().Error("material pipeline creation failed",
				"material", mat.Label(), "error", err)
			continue
		}

		data := specializationKey{Type: typeOf(mat), Data: prepared.Key}
		compiled, err := q.Cache.Specialize(q.Device, key, mesh2d.Layout, data,
			func(key pipeline.Key, layout mesh.VertexLayout, _ any) (*pipeline.RenderPipelineDescriptor, error) {
				return materialPipeline.Specialize(mat, key, layout)
			})
		if err != nil {
			tessera.Logger().Error("pipeline specialization failed",
				"material", mat.Label(), "entity", entity, "error", err)
			continue
		}

		meshInstance.SetMaterialBindGroup(prepared.BindGroup())

		switch prepared.Properties.AlphaMode {
		case AlphaModeOpaque:
			opaquePhase.Add(phase.Opaque2DBinKey{
				Pipeline:          compiled,
				DrawFunction:      q.OpaqueDraw,
				MeshAssetID:       meshInstance.MeshAssetID,
				MaterialBindGroup: prepared.BindGroup(),
			}, entity, meshInstance.AutomaticBatching)
		case AlphaModeBlend:
			if transparentPhase == nil {
				continue
			}
			transparentPhase.Add(phase.Transparent2DItem{
				Entity:       entity,
				DrawFunction: q.TransparentDraw,
				Pipeline:     compiled,
				SortKey:      meshInstance.Transform.Translation[2] + prepared.Properties.DepthBias,
				BatchRange:   [2]uint32{0, 1},
				ExtraIndex:   phase.ExtraIndexNone,
			})
		}
	}
}
