package material

import (
	"github.com/tessera-engine/tessera/common"
	"github.com/tessera-engine/tessera/engine/game_object"
	"github.com/tessera-engine/tessera/engine/mesh"
)

// ExtractInstances rebuilds the per-frame instance maps from the scene's
// objects. Both maps are cleared first, then every visible object with the
// relevant asset is snapshotted, so the maps never carry stale entities
// across frames.
//
// Parameters:
//   - objects: the scene's objects
//   - materialInstances: the entity-to-material map to rebuild
//   - meshInstances: the entity-to-mesh-snapshot map to rebuild
//
// Returns:
//   - []common.Entity: the visible entities extracted this frame
func ExtractInstances(objects []game_object.GameObject, materialInstances RenderMaterial2DInstances, meshInstances mesh.RenderMesh2DInstances) []common.Entity {
	materialInstances.Clear()
	meshInstances.Clear()

	var visible []common.Entity
	for _, obj := range objects {
		if obj == nil || !obj.Visible() {
			continue
		}
		entity := obj.Entity()
		extracted := false

		if id := obj.MaterialID(); id != 0 {
			materialInstances.Insert(entity, id)
			extracted = true
		}
		if id := obj.MeshID(); id != 0 {
			meshInstances.Insert(entity, &mesh.RenderMesh2DInstance{
				MeshAssetID:       id,
				Transform:         obj.Transform(),
				AutomaticBatching: obj.AutomaticBatching(),
			})
			extracted = true
		}
		if extracted {
			visible = append(visible, entity)
		}
	}
	return visible
}
