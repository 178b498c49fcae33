package material

import (
	"testing"

	"github.com/tessera-engine/tessera/engine/game_object"
	"github.com/tessera-engine/tessera/engine/mesh"
)

func TestExtractInstancesFiltersVisibility(t *testing.T) {
	visible := game_object.NewGameObject(
		game_object.WithMaterialID(1),
		game_object.WithMeshID(2),
		game_object.WithPosition(0, 0, 7),
	)
	hidden := game_object.NewGameObject(
		game_object.WithMaterialID(1),
		game_object.WithMeshID(2),
		game_object.WithVisible(false),
	)
	empty := game_object.NewGameObject()

	materialInstances := make(RenderMaterial2DInstances)
	meshInstances := make(mesh.RenderMesh2DInstances)

	got := ExtractInstances(
		[]game_object.GameObject{visible, hidden, empty, nil},
		materialInstances, meshInstances,
	)

	if len(got) != 1 || got[0] != visible.Entity() {
		t.Fatalf("extracted entities = %v, want [%d]", got, visible.Entity())
	}
	if id, ok := materialInstances.Get(visible.Entity()); !ok || id != 1 {
		t.Errorf("material instance = %d, %v", id, ok)
	}
	if _, ok := materialInstances.Get(hidden.Entity()); ok {
		t.Error("hidden object extracted a material instance")
	}

	inst, ok := meshInstances.Get(visible.Entity())
	if !ok {
		t.Fatal("visible object extracted no mesh instance")
	}
	if inst.MeshAssetID != 2 {
		t.Errorf("mesh asset = %d, want 2", inst.MeshAssetID)
	}
	if inst.Transform.Translation[2] != 7 {
		t.Errorf("transform z = %f, want 7", inst.Transform.Translation[2])
	}
}

func TestExtractInstancesRebuildsFromScratch(t *testing.T) {
	obj := game_object.NewGameObject(
		game_object.WithMaterialID(1),
		game_object.WithMeshID(2),
	)

	materialInstances := make(RenderMaterial2DInstances)
	meshInstances := make(mesh.RenderMesh2DInstances)

	ExtractInstances([]game_object.GameObject{obj}, materialInstances, meshInstances)
	if len(materialInstances) != 1 {
		t.Fatalf("first extraction left %d material instances", len(materialInstances))
	}

	// The object goes hidden: the next extraction must not carry it over.
	obj.SetVisible(false)
	ExtractInstances([]game_object.GameObject{obj}, materialInstances, meshInstances)
	if len(materialInstances) != 0 || len(meshInstances) != 0 {
		t.Errorf("stale instances survived: %d materials, %d meshes",
			len(materialInstances), len(meshInstances))
	}
}
