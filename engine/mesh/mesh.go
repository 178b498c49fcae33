// Package mesh holds the render-side representation of 2D meshes: CPU-side
// geometry staged for upload, GPU-resident meshes keyed by asset id, and the
// per-frame instance map that records which entity draws which mesh.
package mesh

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/tessera-engine/tessera/common"
	"github.com/tessera-engine/tessera/engine/renderer/binding"
)

// Device is the subset of the GPU device needed to upload mesh geometry.
// *wgpu.Device satisfies it.
type Device interface {
	CreateBuffer(descriptor *wgpu.BufferDescriptor) (*wgpu.Buffer, error)
}

// Queue is the subset of the GPU queue needed to upload mesh geometry.
// *wgpu.Queue satisfies it.
type Queue interface {
	WriteBuffer(buffer *wgpu.Buffer, bufferOffset uint64, data []byte) error
}

// VertexLayout is a registered vertex buffer layout. Layouts with identical
// buffer descriptions share an ID, so the ID participates in pipeline cache
// keys without comparing slices.
type VertexLayout struct {
	// ID uniquely identifies this layout's buffer description.
	ID uint32
	// Buffers is the wgpu vertex state for this layout.
	Buffers []wgpu.VertexBufferLayout
}

var layoutRegistry = struct {
	mu   sync.Mutex
	ids  map[string]uint32
	next uint32
}{ids: make(map[string]uint32), next: 1}

// RegisterVertexLayout interns a vertex buffer description and returns a
// VertexLayout carrying its stable ID. Calling it twice with an identical
// description yields the same ID.
//
// Parameters:
//   - buffers: the wgpu vertex buffer layouts
//
// Returns:
//   - VertexLayout: the interned layout
func RegisterVertexLayout(buffers []wgpu.VertexBufferLayout) VertexLayout {
	key := layoutSignature(buffers)

	layoutRegistry.mu.Lock()
	defer layoutRegistry.mu.Unlock()
	id, ok := layoutRegistry.ids[key]
	if !ok {
		id = layoutRegistry.next
		layoutRegistry.next++
		layoutRegistry.ids[key] = id
	}
	return VertexLayout{ID: id, Buffers: buffers}
}

func layoutSignature(buffers []wgpu.VertexBufferLayout) string {
	sig := ""
	for _, b := range buffers {
		sig += fmt.Sprintf("%d:%d;", b.ArrayStride, b.StepMode)
		for _, a := range b.Attributes {
			sig += fmt.Sprintf("%d:%d:%d,", a.Format, a.Offset, a.ShaderLocation)
		}
		sig += "|"
	}
	return sig
}

// MeshData2D is CPU-side 2D geometry staged for GPU upload. Vertices are
// interleaved position (vec3) and uv (vec2).
type MeshData2D struct {
	Label    string
	Vertices []Vertex2D
	Indices  []uint32
	Topology wgpu.PrimitiveTopology
}

// Vertex2D is one interleaved vertex of a 2D mesh.
type Vertex2D struct {
	Position [3]float32
	UV       [2]float32
}

const vertex2DStride = 20

// Vertex2DLayout returns the interned vertex layout shared by all meshes
// built from MeshData2D.
func Vertex2DLayout() VertexLayout {
	return RegisterVertexLayout([]wgpu.VertexBufferLayout{{
		ArrayStride: vertex2DStride,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1},
		},
	}})
}

// Quad returns a unit quad centered on the origin, the standard geometry for
// sprite rendering.
//
// Parameters:
//   - label: a debug label for the mesh
//
// Returns:
//   - MeshData2D: two triangles spanning [-0.5, 0.5] on both axes
func Quad(label string) MeshData2D {
	return MeshData2D{
		Label: label,
		Vertices: []Vertex2D{
			{Position: [3]float32{-0.5, -0.5, 0}, UV: [2]float32{0, 1}},
			{Position: [3]float32{0.5, -0.5, 0}, UV: [2]float32{1, 1}},
			{Position: [3]float32{0.5, 0.5, 0}, UV: [2]float32{1, 0}},
			{Position: [3]float32{-0.5, 0.5, 0}, UV: [2]float32{0, 0}},
		},
		Indices:  []uint32{0, 1, 2, 0, 2, 3},
		Topology: wgpu.PrimitiveTopologyTriangleList,
	}
}

// VertexBytes returns the interleaved vertex data as little-endian bytes
// matching Vertex2DLayout.
func (m MeshData2D) VertexBytes() []byte {
	out := make([]byte, 0, len(m.Vertices)*vertex2DStride)
	for _, v := range m.Vertices {
		for _, f := range []float32{v.Position[0], v.Position[1], v.Position[2], v.UV[0], v.UV[1]} {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
		}
	}
	return out
}

// IndexBytes returns the index data as little-endian uint32 bytes.
func (m MeshData2D) IndexBytes() []byte {
	out := make([]byte, 0, len(m.Indices)*4)
	for _, i := range m.Indices {
		out = binary.LittleEndian.AppendUint32(out, i)
	}
	return out
}

// RenderMesh2D is a GPU-resident 2D mesh: its geometry buffers, topology,
// and vertex layout. The layout ID participates in pipeline specialization.
type RenderMesh2D struct {
	Label    string
	Topology wgpu.PrimitiveTopology
	Layout   VertexLayout
	// Binding holds the vertex and index buffers.
	Binding binding.Provider
}

// Release releases the mesh's GPU buffers.
func (m *RenderMesh2D) Release() {
	if m.Binding != nil {
		m.Binding.Release()
	}
}

// Upload creates GPU buffers for staged geometry and returns the resident
// mesh.
//
// Parameters:
//   - dev: the GPU device
//   - queue: the GPU queue used for the buffer writes
//   - data: the staged geometry
//
// Returns:
//   - *RenderMesh2D: the resident mesh
//   - error: an error if buffer creation or upload fails
func Upload(dev Device, queue Queue, data MeshData2D) (*RenderMesh2D, error) {
	provider := binding.NewProvider(data.Label)

	vertexData := data.VertexBytes()
	vbuf, err := dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: data.Label + " Vertex Buffer",
		Size:  uint64(len(vertexData)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	if err := queue.WriteBuffer(vbuf, 0, vertexData); err != nil {
		provider.SetVertexBuffer(vbuf)
		provider.Release()
		return nil, err
	}
	provider.SetVertexBuffer(vbuf)

	indexData := data.IndexBytes()
	ibuf, err := dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: data.Label + " Index Buffer",
		Size:  uint64(len(indexData)),
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		provider.Release()
		return nil, err
	}
	if err := queue.WriteBuffer(ibuf, 0, indexData); err != nil {
		provider.SetIndexBuffer(ibuf)
		provider.Release()
		return nil, err
	}
	provider.SetIndexBuffer(ibuf)
	provider.SetIndexCount(len(data.Indices))

	topology := data.Topology
	if topology == 0 {
		topology = wgpu.PrimitiveTopologyTriangleList
	}

	return &RenderMesh2D{
		Label:    data.Label,
		Topology: topology,
		Layout:   Vertex2DLayout(),
		Binding:  provider,
	}, nil
}

// ErrMeshNotReady reports that a mesh asset referenced by a draw is not
// resident in the mesh table.
var ErrMeshNotReady = errors.New("mesh not resident")

// RenderMeshes is the render-side table of GPU-resident meshes keyed by
// asset id. A mesh absent from the table is not ready; queuing skips
// entities whose mesh has not landed yet.
type RenderMeshes struct {
	mu     sync.RWMutex
	meshes map[common.AssetID]*RenderMesh2D
}

// NewRenderMeshes creates an empty mesh table.
func NewRenderMeshes() *RenderMeshes {
	return &RenderMeshes{meshes: make(map[common.AssetID]*RenderMesh2D)}
}

// Get returns the GPU mesh for an asset id.
//
// Parameters:
//   - id: the mesh asset id
//
// Returns:
//   - *RenderMesh2D: the resident mesh, or nil
//   - bool: false when the mesh is not (yet) resident
func (t *RenderMeshes) Get(id common.AssetID) (*RenderMesh2D, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.meshes[id]
	return m, ok
}

// Insert adds or replaces the GPU mesh for an asset id. A replaced mesh is
// released.
func (t *RenderMeshes) Insert(id common.AssetID, m *RenderMesh2D) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.meshes[id]; ok && old != m {
		old.Release()
	}
	t.meshes[id] = m
}

// Remove drops and releases the GPU mesh for an asset id, if present.
func (t *RenderMeshes) Remove(id common.AssetID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.meshes[id]; ok {
		old.Release()
		delete(t.meshes, id)
	}
}
