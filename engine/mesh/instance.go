package mesh

import (
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/tessera-engine/tessera/common"
)

// RenderMesh2DInstance is the per-frame render snapshot of one 2D mesh
// entity: which mesh it draws, its world transform, and whether it may be
// batched with adjacent draws.
//
// The material bind group records the bind group the entity was queued
// with; draw encoding compares it between consecutive items to decide
// where instanced batches must break. It is held atomically because every
// view that sees an entity records it during the parallel queue stage,
// while the rest of the snapshot is written only by single-threaded
// extraction.
type RenderMesh2DInstance struct {
	MeshAssetID       common.AssetID
	Transform         common.Transform2D
	AutomaticBatching bool

	materialBindGroup atomic.Pointer[wgpu.BindGroup]
}

// MaterialBindGroup returns the bind group the entity was last queued with,
// or nil before the entity is first queued.
func (i *RenderMesh2DInstance) MaterialBindGroup() *wgpu.BindGroup {
	return i.materialBindGroup.Load()
}

// SetMaterialBindGroup records the bind group the entity was queued with.
// Safe to call concurrently from the per-view queue workers.
func (i *RenderMesh2DInstance) SetMaterialBindGroup(bg *wgpu.BindGroup) {
	i.materialBindGroup.Store(bg)
}

// RenderMesh2DInstances maps entities to their per-frame mesh instance
// snapshots. The map is rebuilt from scratch every frame during extraction,
// so an entity absent here was not visible (or not a mesh) this frame.
type RenderMesh2DInstances map[common.Entity]*RenderMesh2DInstance

// Clear drops all instances. Called at the start of extraction so entities
// despawned or hidden since the previous frame do not linger.
func (r RenderMesh2DInstances) Clear() {
	for e := range r {
		delete(r, e)
	}
}

// Insert records the instance snapshot for an entity.
func (r RenderMesh2DInstances) Insert(entity common.Entity, instance *RenderMesh2DInstance) {
	r[entity] = instance
}

// Get returns the instance snapshot for an entity.
//
// Parameters:
//   - entity: the entity to look up
//
// Returns:
//   - *RenderMesh2DInstance: the snapshot, or nil
//   - bool: false when the entity has no mesh instance this frame
func (r RenderMesh2DInstances) Get(entity common.Entity) (*RenderMesh2DInstance, bool) {
	inst, ok := r[entity]
	return inst, ok
}
