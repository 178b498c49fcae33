package phase

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/tessera-engine/tessera/common"
)

func TestOpaqueBinning(t *testing.T) {
	p := NewOpaque2D()

	pipeA := &wgpu.RenderPipeline{}
	pipeB := &wgpu.RenderPipeline{}
	bg := &wgpu.BindGroup{}

	keyA := Opaque2DBinKey{Pipeline: pipeA, DrawFunction: 1, MeshAssetID: 10, MaterialBindGroup: bg}
	keyB := Opaque2DBinKey{Pipeline: pipeB, DrawFunction: 1, MeshAssetID: 10, MaterialBindGroup: bg}

	p.Add(keyA, 1, true)
	p.Add(keyB, 2, true)
	p.Add(keyA, 3, true)

	if p.Bins() != 2 {
		t.Fatalf("bins = %d, want 2", p.Bins())
	}
	if p.Len() != 3 {
		t.Fatalf("len = %d, want 3", p.Len())
	}

	var order []Opaque2DBinKey
	var got [][]common.Entity
	p.Each(func(key Opaque2DBinKey, entities []common.Entity, batchable bool) {
		order = append(order, key)
		got = append(got, append([]common.Entity(nil), entities...))
		if !batchable {
			t.Errorf("bin unexpectedly non-batchable")
		}
	})

	if order[0] != keyA || order[1] != keyB {
		t.Error("bins not visited in first-insertion order")
	}
	if len(got[0]) != 2 || got[0][0] != 1 || got[0][1] != 3 {
		t.Errorf("bin A entities = %v, want [1 3]", got[0])
	}
	if len(got[1]) != 1 || got[1][0] != 2 {
		t.Errorf("bin B entities = %v, want [2]", got[1])
	}
}

func TestOpaqueNonBatchableMarksBin(t *testing.T) {
	p := NewOpaque2D()
	key := Opaque2DBinKey{Pipeline: &wgpu.RenderPipeline{}, DrawFunction: 1}

	p.Add(key, 1, true)
	p.Add(key, 2, false)
	p.Add(key, 3, true)

	p.Each(func(_ Opaque2DBinKey, entities []common.Entity, batchable bool) {
		if batchable {
			t.Error("bin with a non-batchable entity reported batchable")
		}
		if len(entities) != 3 {
			t.Errorf("bin holds %d entities, want 3", len(entities))
		}
	})
}

func TestOpaqueClear(t *testing.T) {
	p := NewOpaque2D()
	key := Opaque2DBinKey{Pipeline: &wgpu.RenderPipeline{}}
	p.Add(key, 1, true)
	p.Clear()
	if p.Len() != 0 || p.Bins() != 0 {
		t.Errorf("Clear left %d entities in %d bins", p.Len(), p.Bins())
	}
}

func TestTransparentSortBackToFront(t *testing.T) {
	p := NewTransparent2D()
	for i, z := range []float32{5, -2, 0, -2} {
		p.Add(Transparent2DItem{
			Entity:     common.Entity(i + 1),
			SortKey:    z,
			BatchRange: [2]uint32{0, 1},
			ExtraIndex: ExtraIndexNone,
		})
	}

	p.Sort()
	items := p.Items()

	wantKeys := []float32{-2, -2, 0, 5}
	for i, want := range wantKeys {
		if items[i].SortKey != want {
			t.Errorf("items[%d].SortKey = %f, want %f", i, items[i].SortKey, want)
		}
	}

	// Equal keys keep queue order: entity 2 was queued before entity 4.
	if items[0].Entity != 2 || items[1].Entity != 4 {
		t.Errorf("tied items out of queue order: %d then %d", items[0].Entity, items[1].Entity)
	}
}

func TestTransparentItemsQueuedUnbatched(t *testing.T) {
	p := NewTransparent2D()
	p.Add(Transparent2DItem{Entity: 1, SortKey: 0, BatchRange: [2]uint32{0, 1}, ExtraIndex: ExtraIndexNone})

	item := p.Items()[0]
	if item.BatchRange != [2]uint32{0, 1} {
		t.Errorf("batch range = %v, want [0 1)", item.BatchRange)
	}
	if item.ExtraIndex != ExtraIndexNone {
		t.Errorf("extra index = %d, want none", item.ExtraIndex)
	}
}

func TestDrawFunctionsRegistry(t *testing.T) {
	d := NewDrawFunctions()

	id, err := d.Register("draw_material_2d", func(pass RenderPass, view common.Entity, call DrawCall) error {
		return nil
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if id == 0 {
		t.Error("registered id should never be zero")
	}

	if fn := d.Get(id); fn == nil {
		t.Error("Get returned nil for registered id")
	}
	if fn := d.Get(99); fn != nil {
		t.Error("Get returned a function for unknown id")
	}

	if got, ok := d.ID("draw_material_2d"); !ok || got != id {
		t.Errorf("ID lookup = %d, %v", got, ok)
	}
	if _, ok := d.ID("missing"); ok {
		t.Error("ID lookup for unknown name should miss")
	}

	if _, err := d.Register("draw_material_2d", nil); err == nil {
		t.Error("duplicate registration should error")
	}
}

func TestViewPhasesPrepare(t *testing.T) {
	v := NewViewPhases()
	v.Prepare([]common.Entity{1, 2})

	opaque, ok := v.Opaque(1)
	if !ok {
		t.Fatal("view 1 opaque phase missing")
	}
	opaque.Add(Opaque2DBinKey{Pipeline: &wgpu.RenderPipeline{}}, 10, true)

	transparent, ok := v.Transparent(2)
	if !ok {
		t.Fatal("view 2 transparent phase missing")
	}
	transparent.Add(Transparent2DItem{Entity: 11})

	if _, ok := v.Opaque(3); ok {
		t.Error("unprepared view has a phase")
	}

	// A new frame with view 2 only: view 1 storage is dropped, view 2 is
	// cleared.
	v.Prepare([]common.Entity{2})
	if _, ok := v.Opaque(1); ok {
		t.Error("dropped view still has a phase")
	}
	transparent, _ = v.Transparent(2)
	if transparent.Len() != 0 {
		t.Errorf("prepared phase still holds %d items", transparent.Len())
	}
}

func TestViewPhasesSortAll(t *testing.T) {
	v := NewViewPhases()
	v.Prepare([]common.Entity{1})

	transparent, _ := v.Transparent(1)
	transparent.Add(Transparent2DItem{Entity: 1, SortKey: 3})
	transparent.Add(Transparent2DItem{Entity: 2, SortKey: -1})

	v.SortAll()
	if transparent.Items()[0].Entity != 2 {
		t.Error("SortAll did not sort the view's transparent phase")
	}
}
