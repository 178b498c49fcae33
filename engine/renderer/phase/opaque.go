package phase

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/tessera-engine/tessera/common"
)

// Opaque2DBinKey is the full draw state of a binned opaque draw. Draws with
// equal keys land in the same bin and may be issued as one instanced call.
// All fields are comparable handles.
type Opaque2DBinKey struct {
	Pipeline          *wgpu.RenderPipeline
	DrawFunction      DrawFunctionID
	MeshAssetID       common.AssetID
	MaterialBindGroup *wgpu.BindGroup
}

type opaqueBin struct {
	entities  []common.Entity
	batchable bool
}

// Opaque2D is the binned opaque phase for one view. Draw order within and
// across bins is irrelevant for correctness; depth testing resolves
// occlusion. Bins iterate in first-insertion order so encoding stays
// deterministic frame to frame.
type Opaque2D struct {
	keys []Opaque2DBinKey
	bins map[Opaque2DBinKey]*opaqueBin
}

// NewOpaque2D creates an empty opaque phase.
func NewOpaque2D() *Opaque2D {
	return &Opaque2D{bins: make(map[Opaque2DBinKey]*opaqueBin)}
}

// Add bins an entity under a draw state key.
//
// Parameters:
//   - key: the full draw state of the entity
//   - entity: the entity to queue
//   - batchable: whether the entity allows automatic batching; one
//     non-batchable entity marks the whole bin non-batchable
func (p *Opaque2D) Add(key Opaque2DBinKey, entity common.Entity, batchable bool) {
	bin, ok := p.bins[key]
	if !ok {
		bin = &opaqueBin{batchable: true}
		p.bins[key] = bin
		p.keys = append(p.keys, key)
	}
	bin.entities = append(bin.entities, entity)
	if !batchable {
		bin.batchable = false
	}
}

// Each visits every bin in first-insertion order.
//
// Parameters:
//   - fn: called once per bin with its key, queued entities, and whether
//     the bin may be drawn as one instanced call
func (p *Opaque2D) Each(fn func(key Opaque2DBinKey, entities []common.Entity, batchable bool)) {
	for _, key := range p.keys {
		bin := p.bins[key]
		fn(key, bin.entities, bin.batchable)
	}
}

// Len returns the number of queued entities across all bins.
func (p *Opaque2D) Len() int {
	n := 0
	for _, bin := range p.bins {
		n += len(bin.entities)
	}
	return n
}

// Bins returns the number of distinct draw state bins.
func (p *Opaque2D) Bins() int {
	return len(p.bins)
}

// Clear empties the phase for the next frame.
func (p *Opaque2D) Clear() {
	p.keys = p.keys[:0]
	for k := range p.bins {
		delete(p.bins, k)
	}
}
