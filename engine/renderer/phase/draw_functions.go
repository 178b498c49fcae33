// Package phase implements the per-view render phases for 2D: an opaque
// phase that bins draws by pipeline state so order never matters, and a
// transparent phase sorted back to front by world depth. Phases hold entity
// ids and GPU handles only; draw functions registered by the material layer
// turn phase items into encoded draw calls.
package phase

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/tessera-engine/tessera/common"
)

// RenderPass is the subset of the render pass encoder draw functions use.
// *wgpu.RenderPassEncoder satisfies it.
type RenderPass interface {
	SetPipeline(pipeline *wgpu.RenderPipeline)
	SetBindGroup(groupIndex uint32, group *wgpu.BindGroup, dynamicOffsets []uint32)
	SetVertexBuffer(slot uint32, buffer *wgpu.Buffer, offset, size uint64)
	SetIndexBuffer(buffer *wgpu.Buffer, format wgpu.IndexFormat, offset, size uint64)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
}

// DrawCall is one unit of phase execution handed to a draw function: the
// compiled pipeline, the entities covered, and for binned draws the shared
// material bind group and mesh.
type DrawCall struct {
	Pipeline *wgpu.RenderPipeline

	// MaterialBindGroup is the shared group 2 bind group for binned opaque
	// draws. Transparent draws leave it nil and resolve bindings per entity.
	MaterialBindGroup *wgpu.BindGroup

	// MeshAssetID is the shared mesh for binned opaque draws, zero for
	// transparent draws.
	MeshAssetID common.AssetID

	// Entities are the entities this call covers, in phase order.
	Entities []common.Entity

	// Batchable reports whether the entities may be drawn as one instanced
	// call.
	Batchable bool

	// BatchRange is the instance range of the call, start inclusive and end
	// exclusive.
	BatchRange [2]uint32
}

// DrawFunction encodes one DrawCall onto a render pass.
type DrawFunction func(pass RenderPass, viewEntity common.Entity, call DrawCall) error

// DrawFunctionID identifies a registered draw function. The zero id is
// never assigned.
type DrawFunctionID int

// DrawFunctions is the registry of draw functions referenced by phase
// items. Registration happens at setup; lookups during phase execution take
// a read lock only.
type DrawFunctions struct {
	mu     sync.RWMutex
	byName map[string]DrawFunctionID
	fns    []DrawFunction
}

// NewDrawFunctions creates an empty draw function registry.
func NewDrawFunctions() *DrawFunctions {
	return &DrawFunctions{byName: make(map[string]DrawFunctionID)}
}

// Register adds a draw function under a unique name.
//
// Parameters:
//   - name: the registry name, must not already be registered
//   - fn: the draw function
//
// Returns:
//   - DrawFunctionID: the id phase items reference the function by
//   - error: an error if the name is already taken
func (d *DrawFunctions) Register(name string, fn DrawFunction) (DrawFunctionID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byName[name]; ok {
		return 0, fmt.Errorf("phase: draw function %q already registered", name)
	}
	d.fns = append(d.fns, fn)
	id := DrawFunctionID(len(d.fns))
	d.byName[name] = id
	return id, nil
}

// Get returns the draw function for an id.
//
// Parameters:
//   - id: the draw function id
//
// Returns:
//   - DrawFunction: the registered function, or nil for an unknown id
func (d *DrawFunctions) Get(id DrawFunctionID) DrawFunction {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if id < 1 || int(id) > len(d.fns) {
		return nil
	}
	return d.fns[id-1]
}

// ID returns the id registered under a name.
//
// Parameters:
//   - name: the registry name
//
// Returns:
//   - DrawFunctionID: the registered id
//   - bool: false when the name is unknown
func (d *DrawFunctions) ID(name string) (DrawFunctionID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byName[name]
	return id, ok
}
