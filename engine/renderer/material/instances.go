package material

import (
	"github.com/tessera-engine/tessera/common"
)

// RenderMaterial2DInstances maps entities to the material asset they draw
// with this frame. The map is rebuilt from scratch every frame during
// extraction, filtered to visible entities, so an entity absent here draws
// nothing.
type RenderMaterial2DInstances map[common.Entity]common.AssetID

// Clear drops all instances. Called at the start of extraction so entities
// despawned, hidden, or stripped of their material since the previous frame
// do not linger.
func (r RenderMaterial2DInstances) Clear() {
	for e := range r {
		delete(r, e)
	}
}

// Insert records the material asset an entity draws with.
func (r RenderMaterial2DInstances) Insert(entity common.Entity, id common.AssetID) {
	r[entity] = id
}

// Get returns the material asset an entity draws with.
//
// Parameters:
//   - entity: the entity to look up
//
// Returns:
//   - common.AssetID: the material asset id
//   - bool: false when the entity has no material this frame
func (r RenderMaterial2DInstances) Get(entity common.Entity) (common.AssetID, bool) {
	id, ok := r[entity]
	return id, ok
}
