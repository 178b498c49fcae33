package phase

import (
	"sort"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/tessera-engine/tessera/common"
)

// ExtraIndexNone marks a transparent item carrying no auxiliary index.
const ExtraIndexNone = ^uint32(0)

// Transparent2DItem is one queued transparent draw. Items are sorted by
// SortKey ascending, drawing far entities first so nearer transparency
// blends over them.
type Transparent2DItem struct {
	Entity       common.Entity
	DrawFunction DrawFunctionID
	Pipeline     *wgpu.RenderPipeline

	// SortKey is the entity's world depth plus its material's depth bias.
	SortKey float32

	// BatchRange is the instance range of the draw, start inclusive and end
	// exclusive. Items are queued unbatched as [0, 1); later batching may
	// widen ranges.
	BatchRange [2]uint32

	// ExtraIndex carries auxiliary per-item data for draw functions that
	// need it, or ExtraIndexNone.
	ExtraIndex uint32
}

// Transparent2D is the sorted transparent phase for one view.
type Transparent2D struct {
	items []Transparent2DItem
}

// NewTransparent2D creates an empty transparent phase.
func NewTransparent2D() *Transparent2D {
	return &Transparent2D{}
}

// Add queues a transparent draw.
func (p *Transparent2D) Add(item Transparent2DItem) {
	p.items = append(p.items, item)
}

// Sort orders queued items back to front by sort key. The sort is stable:
// items with equal keys keep their queue order, so ties draw in a
// deterministic order frame to frame.
func (p *Transparent2D) Sort() {
	sort.SliceStable(p.items, func(i, j int) bool {
		return p.items[i].SortKey < p.items[j].SortKey
	})
}

// Items returns the queued items in their current order. Call Sort first to
// get draw order.
func (p *Transparent2D) Items() []Transparent2DItem {
	return p.items
}

// Len returns the number of queued items.
func (p *Transparent2D) Len() int {
	return len(p.items)
}

// Clear empties the phase for the next frame.
func (p *Transparent2D) Clear() {
	p.items = p.items[:0]
}
