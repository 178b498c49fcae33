package renderer

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/tessera-engine/tessera/common"
	"github.com/tessera-engine/tessera/engine/mesh"
	"github.com/tessera-engine/tessera/engine/renderer/phase"
)

func mulMatPoint(m [16]float32, x, y float32) (float32, float32) {
	outX := m[0]*x + m[4]*y + m[12]
	outY := m[1]*x + m[5]*y + m[13]
	return outX, outY
}

func TestModelMatrixIdentity(t *testing.T) {
	m := modelMatrix(common.IdentityTransform2D())
	want := [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
	if m != want {
		t.Errorf("identity transform matrix = %v", m)
	}
}

func TestModelMatrixTransforms(t *testing.T) {
	transform := common.Transform2D{
		Translation: [3]float32{10, 20, 0},
		Rotation:    math.Pi / 2,
		Scale:       [2]float32{2, 2},
	}
	m := modelMatrix(transform)

	// (1, 0) scales to (2, 0), rotates 90 degrees to (0, 2), then translates.
	x, y := mulMatPoint(m, 1, 0)
	if math.Abs(float64(x-10)) > 1e-5 || math.Abs(float64(y-22)) > 1e-5 {
		t.Errorf("transformed point = (%f, %f), want (10, 22)", x, y)
	}
}

func TestModelMatrixDepthInTranslation(t *testing.T) {
	transform := common.IdentityTransform2D()
	transform.Translation = [3]float32{0, 0, 7}
	m := modelMatrix(transform)
	if m[14] != 7 {
		t.Errorf("matrix z translation = %f, want 7", m[14])
	}
}

func TestAppendMatrixLayout(t *testing.T) {
	data := appendMatrix(nil, modelMatrix(common.IdentityTransform2D()))
	if len(data) != matrixSize {
		t.Fatalf("matrix packs to %d bytes, want %d", len(data), matrixSize)
	}
	// First element is 1.0 in little-endian float bits.
	if got := binary.LittleEndian.Uint32(data[0:]); got != math.Float32bits(1) {
		t.Errorf("first element bits = %#x", got)
	}
}

func TestGatherViewDrawsAssignsContiguousRanges(t *testing.T) {
	instances := make(mesh.RenderMesh2DInstances)
	for entity := common.Entity(1); entity <= 5; entity++ {
		instances.Insert(entity, &mesh.RenderMesh2DInstance{
			MeshAssetID: 1,
			Transform:   common.IdentityTransform2D(),
		})
	}

	pipelineA := &wgpu.RenderPipeline{}
	pipelineB := &wgpu.RenderPipeline{}
	materialBG := &wgpu.BindGroup{}

	opaque := phase.NewOpaque2D()
	keyA := phase.Opaque2DBinKey{Pipeline: pipelineA, DrawFunction: 1, MeshAssetID: 1, MaterialBindGroup: materialBG}
	keyB := phase.Opaque2DBinKey{Pipeline: pipelineB, DrawFunction: 1, MeshAssetID: 1, MaterialBindGroup: materialBG}
	opaque.Add(keyA, 1, true)
	opaque.Add(keyA, 2, true)
	opaque.Add(keyB, 3, true)

	transparent := phase.NewTransparent2D()
	transparent.Add(phase.Transparent2DItem{Entity: 4, DrawFunction: 2, Pipeline: pipelineA, SortKey: 1, BatchRange: [2]uint32{0, 1}})
	transparent.Add(phase.Transparent2DItem{Entity: 5, DrawFunction: 2, Pipeline: pipelineA, SortKey: 2, BatchRange: [2]uint32{0, 1}})

	draws, data := gatherViewDraws(opaque, transparent, instances)

	if len(draws) != 4 {
		t.Fatalf("gathered %d draws, want 4 (2 bins + 2 transparent)", len(draws))
	}
	if len(data) != 5*matrixSize {
		t.Fatalf("instance data = %d bytes, want %d", len(data), 5*matrixSize)
	}

	wantRanges := [][2]uint32{{0, 2}, {2, 3}, {3, 4}, {4, 5}}
	for i, want := range wantRanges {
		if draws[i].call.BatchRange != want {
			t.Errorf("draw %d range = %v, want %v", i, draws[i].call.BatchRange, want)
		}
	}

	// Binned opaque calls carry their shared state.
	if draws[0].call.MaterialBindGroup != materialBG || draws[0].call.MeshAssetID != 1 {
		t.Error("binned draw lost its shared material or mesh")
	}
	if !draws[0].call.Batchable || len(draws[0].call.Entities) != 2 {
		t.Error("bin of two batchable entities should draw as one instanced call")
	}

	// Transparent calls resolve state per entity.
	if draws[2].call.MaterialBindGroup != nil || draws[2].call.MeshAssetID != 0 {
		t.Error("transparent draw should carry no shared state")
	}
	if draws[2].fn != 2 {
		t.Errorf("transparent draw function = %d, want 2", draws[2].fn)
	}
}

func TestGatherViewDrawsTransformOrderMatchesRanges(t *testing.T) {
	instances := make(mesh.RenderMesh2DInstances)
	instances.Insert(1, &mesh.RenderMesh2DInstance{
		MeshAssetID: 1,
		Transform: common.Transform2D{
			Translation: [3]float32{0, 0, 0},
			Scale:       [2]float32{1, 1},
		},
	})
	instances.Insert(2, &mesh.RenderMesh2DInstance{
		MeshAssetID: 1,
		Transform: common.Transform2D{
			Translation: [3]float32{99, 0, 0},
			Scale:       [2]float32{1, 1},
		},
	})

	opaque := phase.NewOpaque2D()
	key := phase.Opaque2DBinKey{Pipeline: &wgpu.RenderPipeline{}, DrawFunction: 1, MeshAssetID: 1, MaterialBindGroup: &wgpu.BindGroup{}}
	opaque.Add(key, 1, true)
	opaque.Add(key, 2, true)

	_, data := gatherViewDraws(opaque, phase.NewTransparent2D(), instances)

	// Slot 1's matrix holds entity 2's x translation at column 3 row 0.
	xBits := binary.LittleEndian.Uint32(data[matrixSize+12*4:])
	if math.Float32frombits(xBits) != 99 {
		t.Errorf("second slot x translation = %f, want 99", math.Float32frombits(xBits))
	}
}

func TestGatherViewDrawsMissingInstanceFallsBackToIdentity(t *testing.T) {
	opaque := phase.NewOpaque2D()
	key := phase.Opaque2DBinKey{Pipeline: &wgpu.RenderPipeline{}, DrawFunction: 1, MeshAssetID: 1, MaterialBindGroup: &wgpu.BindGroup{}}
	opaque.Add(key, 42, true)

	draws, data := gatherViewDraws(opaque, phase.NewTransparent2D(), make(mesh.RenderMesh2DInstances))

	if len(draws) != 1 || len(data) != matrixSize {
		t.Fatalf("draws = %d, data = %d bytes", len(draws), len(data))
	}
	if got := binary.LittleEndian.Uint32(data[0:]); got != math.Float32bits(1) {
		t.Error("missing instance should pack an identity matrix")
	}
}

func TestGatherViewDrawsEmptyPhases(t *testing.T) {
	draws, data := gatherViewDraws(phase.NewOpaque2D(), phase.NewTransparent2D(), make(mesh.RenderMesh2DInstances))
	if len(draws) != 0 || len(data) != 0 {
		t.Errorf("empty phases gathered %d draws, %d bytes", len(draws), len(data))
	}
}
