package material

import (
	"errors"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/tessera-engine/tessera/common"
	"github.com/tessera-engine/tessera/engine/mesh"
	"github.com/tessera-engine/tessera/engine/renderer/binding"
	"github.com/tessera-engine/tessera/engine/renderer/phase"
)

// fakePass records encoded commands.
type fakePass struct {
	pipelines  []*wgpu.RenderPipeline
	bindGroups map[uint32]*wgpu.BindGroup
	draws      [][2]uint32 // instanceCount, firstInstance
}

func newFakePass() *fakePass {
	return &fakePass{bindGroups: make(map[uint32]*wgpu.BindGroup)}
}

func (p *fakePass) SetPipeline(pipeline *wgpu.RenderPipeline) {
	p.pipelines = append(p.pipelines, pipeline)
}

func (p *fakePass) SetBindGroup(groupIndex uint32, group *wgpu.BindGroup, dynamicOffsets []uint32) {
	p.bindGroups[groupIndex] = group
}

func (p *fakePass) SetVertexBuffer(slot uint32, buffer *wgpu.Buffer, offset, size uint64) {}

func (p *fakePass) SetIndexBuffer(buffer *wgpu.Buffer, format wgpu.IndexFormat, offset, size uint64) {
}

func (p *fakePass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.draws = append(p.draws, [2]uint32{instanceCount, firstInstance})
}

func newDrawFixture() (*Draw2D, *wgpu.BindGroup, *wgpu.BindGroup) {
	viewBG := &wgpu.BindGroup{}
	meshBG := &wgpu.BindGroup{}

	provider := binding.NewProvider("quad")
	provider.SetVertexBuffer(&wgpu.Buffer{})
	provider.SetIndexBuffer(&wgpu.Buffer{})
	provider.SetIndexCount(6)

	meshes := mesh.NewRenderMeshes()
	meshes.Insert(5, &mesh.RenderMesh2D{
		Topology: wgpu.PrimitiveTopologyTriangleList,
		Layout:   mesh.Vertex2DLayout(),
		Binding:  provider,
	})

	return &Draw2D{
		ViewBindGroup: func(common.Entity) *wgpu.BindGroup { return viewBG },
		MeshBindGroup: func(common.Entity) *wgpu.BindGroup { return meshBG },
		Meshes:        meshes,
		MeshInstances: make(mesh.RenderMesh2DInstances),
	}, viewBG, meshBG
}

func TestDrawBatchedOpaqueCall(t *testing.T) {
	d, viewBG, meshBG := newDrawFixture()
	pass := newFakePass()

	materialBG := &wgpu.BindGroup{}
	err := d.Draw(pass, 100, phase.DrawCall{
		Pipeline:          &wgpu.RenderPipeline{},
		MaterialBindGroup: materialBG,
		MeshAssetID:       5,
		Entities:          []common.Entity{1, 2, 3},
		Batchable:         true,
		BatchRange:        [2]uint32{4, 7},
	})
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}

	if pass.bindGroups[0] != viewBG || pass.bindGroups[1] != meshBG || pass.bindGroups[2] != materialBG {
		t.Error("bind groups not set in view/mesh/material order")
	}
	if len(pass.draws) != 1 {
		t.Fatalf("encoded %d draws, want 1 instanced draw", len(pass.draws))
	}
	if pass.draws[0] != [2]uint32{3, 4} {
		t.Errorf("draw = %v, want 3 instances starting at 4", pass.draws[0])
	}
}

func TestDrawNonBatchableIssuesPerInstanceCalls(t *testing.T) {
	d, _, _ := newDrawFixture()
	pass := newFakePass()

	err := d.Draw(pass, 100, phase.DrawCall{
		Pipeline:          &wgpu.RenderPipeline{},
		MaterialBindGroup: &wgpu.BindGroup{},
		MeshAssetID:       5,
		Entities:          []common.Entity{1, 2},
		Batchable:         false,
		BatchRange:        [2]uint32{0, 2},
	})
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if len(pass.draws) != 2 {
		t.Fatalf("encoded %d draws, want 2", len(pass.draws))
	}
	if pass.draws[0] != [2]uint32{1, 0} || pass.draws[1] != [2]uint32{1, 1} {
		t.Errorf("draws = %v, want one instance each at 0 and 1", pass.draws)
	}
}

func TestDrawTransparentResolvesInstanceState(t *testing.T) {
	d, _, _ := newDrawFixture()
	pass := newFakePass()

	materialBG := &wgpu.BindGroup{}
	instance := &mesh.RenderMesh2DInstance{MeshAssetID: 5}
	instance.SetMaterialBindGroup(materialBG)
	d.MeshInstances.Insert(9, instance)

	err := d.Draw(pass, 100, phase.DrawCall{
		Pipeline:   &wgpu.RenderPipeline{},
		Entities:   []common.Entity{9},
		Batchable:  true,
		BatchRange: [2]uint32{3, 4},
	})
	if err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if pass.bindGroups[2] != materialBG {
		t.Error("transparent draw did not resolve the instance's material bind group")
	}
	if len(pass.draws) != 1 || pass.draws[0] != [2]uint32{1, 3} {
		t.Errorf("draws = %v, want one instance at 3", pass.draws)
	}
}

func TestDrawErrorsOnMissingMesh(t *testing.T) {
	d, _, _ := newDrawFixture()
	pass := newFakePass()

	err := d.Draw(pass, 100, phase.DrawCall{
		Pipeline:          &wgpu.RenderPipeline{},
		MaterialBindGroup: &wgpu.BindGroup{},
		MeshAssetID:       404,
		Entities:          []common.Entity{1},
		Batchable:         true,
		BatchRange:        [2]uint32{0, 1},
	})
	if !errors.Is(err, mesh.ErrMeshNotReady) {
		t.Errorf("expected ErrMeshNotReady, got %v", err)
	}
}
