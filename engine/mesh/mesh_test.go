package mesh

import (
	"encoding/binary"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestRegisterVertexLayoutInterns(t *testing.T) {
	buffers := []wgpu.VertexBufferLayout{{
		ArrayStride: 12,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		},
	}}

	a := RegisterVertexLayout(buffers)
	b := RegisterVertexLayout(buffers)
	if a.ID != b.ID {
		t.Errorf("identical layouts got distinct ids %d and %d", a.ID, b.ID)
	}
	if a.ID == 0 {
		t.Error("layout id should never be zero")
	}

	other := RegisterVertexLayout([]wgpu.VertexBufferLayout{{
		ArrayStride: 16,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 0},
		},
	}})
	if other.ID == a.ID {
		t.Errorf("distinct layouts share id %d", a.ID)
	}
}

func TestVertex2DLayoutStable(t *testing.T) {
	if Vertex2DLayout().ID != Vertex2DLayout().ID {
		t.Error("Vertex2DLayout id changed between calls")
	}
}

func TestQuadGeometry(t *testing.T) {
	q := Quad("test quad")
	if len(q.Vertices) != 4 {
		t.Fatalf("quad has %d vertices, want 4", len(q.Vertices))
	}
	if len(q.Indices) != 6 {
		t.Fatalf("quad has %d indices, want 6", len(q.Indices))
	}

	vb := q.VertexBytes()
	if len(vb) != 4*vertex2DStride {
		t.Errorf("vertex bytes length %d, want %d", len(vb), 4*vertex2DStride)
	}

	ib := q.IndexBytes()
	if len(ib) != 6*4 {
		t.Fatalf("index bytes length %d, want 24", len(ib))
	}
	if got := binary.LittleEndian.Uint32(ib[8:]); got != 2 {
		t.Errorf("third index = %d, want 2", got)
	}
}

func TestInstancesClearAndGet(t *testing.T) {
	instances := make(RenderMesh2DInstances)
	instances.Insert(7, &RenderMesh2DInstance{MeshAssetID: 3})
	instances.Insert(9, &RenderMesh2DInstance{MeshAssetID: 4})

	if inst, ok := instances.Get(7); !ok || inst.MeshAssetID != 3 {
		t.Errorf("Get(7) = %v, %v", inst, ok)
	}
	if _, ok := instances.Get(1); ok {
		t.Error("Get(1) should miss")
	}

	instances.Clear()
	if len(instances) != 0 {
		t.Errorf("Clear left %d instances", len(instances))
	}
	if _, ok := instances.Get(7); ok {
		t.Error("Get(7) should miss after Clear")
	}
}
