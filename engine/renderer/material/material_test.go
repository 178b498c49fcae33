package material

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/tessera-engine/tessera/common"
	"github.com/tessera-engine/tessera/engine/renderer/texture"
)

// fakeGPU implements Device and Queue without touching a real GPU.
type fakeGPU struct {
	mu              sync.Mutex
	buffers         int
	bindGroups      int
	layouts         int
	renderPipelines int
	writes          map[*wgpu.Buffer][]byte
}

func newFakeGPU() *fakeGPU {
	return &fakeGPU{writes: make(map[*wgpu.Buffer][]byte)}
}

func (g *fakeGPU) CreateBuffer(desc *wgpu.BufferDescriptor) (*wgpu.Buffer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.buffers++
	return &wgpu.Buffer{}, nil
}

func (g *fakeGPU) CreateBindGroupLayout(desc *wgpu.BindGroupLayoutDescriptor) (*wgpu.BindGroupLayout, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.layouts++
	return &wgpu.BindGroupLayout{}, nil
}

func (g *fakeGPU) CreateBindGroup(desc *wgpu.BindGroupDescriptor) (*wgpu.BindGroup, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.bindGroups++
	return &wgpu.BindGroup{}, nil
}

func (g *fakeGPU) CreateShaderModule(desc *wgpu.ShaderModuleDescriptor) (*wgpu.ShaderModule, error) {
	return &wgpu.ShaderModule{}, nil
}

func (g *fakeGPU) CreatePipelineLayout(desc *wgpu.PipelineLayoutDescriptor) (*wgpu.PipelineLayout, error) {
	return &wgpu.PipelineLayout{}, nil
}

func (g *fakeGPU) CreateRenderPipeline(desc *wgpu.RenderPipelineDescriptor) (*wgpu.RenderPipeline, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.renderPipelines++
	return &wgpu.RenderPipeline{}, nil
}

func (g *fakeGPU) WriteBuffer(buf *wgpu.Buffer, offset uint64, data []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.writes[buf] = append([]byte(nil), data...)
	return nil
}

// testFallback builds a fallback image without a GPU.
func testFallback() *texture.FallbackImage {
	return &texture.FallbackImage{GpuImage: &texture.GpuImage{
		View:    &wgpu.TextureView{},
		Sampler: &wgpu.Sampler{},
		Width:   1,
		Height:  1,
	}}
}

func testLayoutHandle() *wgpu.BindGroupLayout {
	return &wgpu.BindGroupLayout{}
}

func TestPrepareColorMaterialWithFallback(t *testing.T) {
	gpu := newFakeGPU()
	images := texture.NewImages()
	fallback := testFallback()

	mat := NewColorMaterial(WithColor(1, 0, 0, 1))
	prepared, err := PrepareMaterial2D(gpu, gpu, mat, testLayoutHandle(), images, fallback)
	if err != nil {
		t.Fatalf("PrepareMaterial2D: %v", err)
	}

	if prepared.BindGroup() == nil {
		t.Error("prepared material has no bind group")
	}
	if gpu.buffers != 1 {
		t.Errorf("created %d buffers, want 1", gpu.buffers)
	}
	if len(gpu.writes) != 1 {
		t.Fatalf("wrote %d buffers, want 1", len(gpu.writes))
	}
	for _, data := range gpu.writes {
		if len(data) != 16 {
			t.Errorf("uniform write length %d, want 16", len(data))
		}
		// Red channel 1.0 little-endian.
		if data[3] != 0x3f || data[2] != 0x80 {
			t.Errorf("uniform bytes %x do not encode red=1", data[:4])
		}
	}
	if prepared.Properties.AlphaMode != AlphaModeOpaque {
		t.Errorf("alpha mode = %v, want opaque", prepared.Properties.AlphaMode)
	}
}

func TestPrepareIdempotentForUnchangedMaterial(t *testing.T) {
	gpu := newFakeGPU()
	images := texture.NewImages()
	images.Insert(7, &texture.GpuImage{
		View:    &wgpu.TextureView{},
		Sampler: &wgpu.Sampler{},
		Width:   2,
		Height:  2,
	})

	mat := NewColorMaterial(
		WithColor(0.2, 0.4, 0.6, 1.0),
		WithTexture(7),
		WithAlphaMode(AlphaModeBlend),
		WithDepthBias(1.5),
	)

	first, err := PrepareMaterial2D(gpu, gpu, mat, testLayoutHandle(), images, testFallback())
	if err != nil {
		t.Fatalf("PrepareMaterial2D: %v", err)
	}
	second, err := PrepareMaterial2D(gpu, gpu, mat, testLayoutHandle(), images, testFallback())
	if err != nil {
		t.Fatalf("PrepareMaterial2D (again): %v", err)
	}

	// An unchanged source prepares to the same cache-relevant state: the
	// bind-group key, the queuing properties, and the derived blend bit.
	if first.Key != second.Key {
		t.Errorf("bind-group keys differ: %v vs %v", first.Key, second.Key)
	}
	if first.Properties != second.Properties {
		t.Errorf("properties differ: %+v vs %+v", first.Properties, second.Properties)
	}
	if first.Properties.AlphaMode != AlphaModeBlend || first.Properties.DepthBias != 1.5 {
		t.Errorf("properties = %+v, want blend with depth bias 1.5", first.Properties)
	}
	firstBlend := first.Properties.AlphaMode == AlphaModeBlend
	secondBlend := second.Properties.AlphaMode == AlphaModeBlend
	if firstBlend != secondBlend {
		t.Error("derived blend pipeline-key bits differ between preparations")
	}

	// Both preparations uploaded identical uniform payloads.
	if len(gpu.writes) != 2 {
		t.Fatalf("wrote %d uniform buffers, want 2", len(gpu.writes))
	}
	payloads := make([][]byte, 0, 2)
	for _, data := range gpu.writes {
		payloads = append(payloads, data)
	}
	if !bytes.Equal(payloads[0], payloads[1]) {
		t.Errorf("uniform payloads differ: %x vs %x", payloads[0], payloads[1])
	}
}

func TestPrepareRetriesWhenImageMissing(t *testing.T) {
	gpu := newFakeGPU()
	images := texture.NewImages()
	fallback := testFallback()

	mat := NewColorMaterial(WithTexture(42))
	_, err := PrepareMaterial2D(gpu, gpu, mat, testLayoutHandle(), images, fallback)
	if !errors.Is(err, ErrRetryNextUpdate) {
		t.Fatalf("err = %v, want ErrRetryNextUpdate", err)
	}
	// Nothing may be created before the retry is detected.
	if gpu.buffers != 0 || gpu.bindGroups != 0 {
		t.Errorf("retry leaked %d buffers, %d bind groups", gpu.buffers, gpu.bindGroups)
	}

	// Once the image lands, preparation succeeds.
	images.Insert(42, &texture.GpuImage{View: &wgpu.TextureView{}, Sampler: &wgpu.Sampler{}})
	prepared, err := PrepareMaterial2D(gpu, gpu, mat, testLayoutHandle(), images, fallback)
	if err != nil {
		t.Fatalf("PrepareMaterial2D after image landed: %v", err)
	}
	if prepared.BindGroup() == nil {
		t.Error("prepared material has no bind group")
	}
}

func TestPrepareCapturesDepthBiasAndBlend(t *testing.T) {
	gpu := newFakeGPU()
	mat := NewColorMaterial(WithAlphaMode(AlphaModeBlend), WithDepthBias(-1.5))

	prepared, err := PrepareMaterial2D(gpu, gpu, mat, testLayoutHandle(), texture.NewImages(), testFallback())
	if err != nil {
		t.Fatalf("PrepareMaterial2D: %v", err)
	}
	if prepared.Properties.AlphaMode != AlphaModeBlend {
		t.Errorf("alpha mode = %v, want blend", prepared.Properties.AlphaMode)
	}
	if prepared.Properties.DepthBias != -1.5 {
		t.Errorf("depth bias = %f, want -1.5", prepared.Properties.DepthBias)
	}
}

func TestRenderMaterialsTable(t *testing.T) {
	gpu := newFakeGPU()
	table := NewRenderMaterials()

	if _, ok := table.Get(1); ok {
		t.Error("empty table reported a prepared material")
	}

	mat := NewColorMaterial()
	prepared, err := PrepareMaterial2D(gpu, gpu, mat, testLayoutHandle(), texture.NewImages(), testFallback())
	if err != nil {
		t.Fatalf("PrepareMaterial2D: %v", err)
	}
	table.Insert(1, prepared)

	got, ok := table.Get(1)
	if !ok || got != prepared {
		t.Error("Get did not return the inserted preparation")
	}

	table.Remove(1)
	if _, ok := table.Get(1); ok {
		t.Error("Remove left the preparation in place")
	}
}

func TestAssetsChangedTracking(t *testing.T) {
	assets := NewAssets()

	id := assets.Add(NewColorMaterial())
	if id == 0 {
		t.Fatal("asset id should never be zero")
	}

	changed := assets.TakeChanged()
	if len(changed) != 1 || changed[0] != id {
		t.Errorf("changed = %v, want [%d]", changed, id)
	}
	if got := assets.TakeChanged(); got != nil {
		t.Errorf("second drain = %v, want nil", got)
	}

	// Re-assignment marks the asset changed again.
	assets.Set(id, NewColorMaterial(WithColor(0, 1, 0, 1)))
	changed = assets.TakeChanged()
	if len(changed) != 1 || changed[0] != id {
		t.Errorf("changed after Set = %v, want [%d]", changed, id)
	}

	assets.MarkChanged(id)
	if got := assets.TakeChanged(); len(got) != 1 {
		t.Errorf("changed after MarkChanged = %v", got)
	}

	// Unknown ids are not marked.
	assets.MarkChanged(common.AssetID(9999))
	if got := assets.TakeChanged(); got != nil {
		t.Errorf("unknown id marked changed: %v", got)
	}
}

func TestColorMaterialBindings(t *testing.T) {
	mat := NewColorMaterial(WithColor(0.5, 0.25, 1, 1), WithTexture(7))
	bindings := mat.Bindings()

	if len(bindings) != 3 {
		t.Fatalf("bindings = %d entries, want 3", len(bindings))
	}
	if bindings[0].Kind != BindingUniform || len(bindings[0].Data) != 16 {
		t.Errorf("binding 0 = %+v, want 16-byte uniform", bindings[0])
	}
	if bindings[1].Kind != BindingTexture || bindings[1].ImageID != 7 {
		t.Errorf("binding 1 = %+v, want texture image 7", bindings[1])
	}
	if bindings[2].Kind != BindingSampler || bindings[2].ImageID != 7 {
		t.Errorf("binding 2 = %+v, want sampler image 7", bindings[2])
	}

	entries := mat.BindGroupLayoutEntries()
	if len(entries) != 3 {
		t.Fatalf("layout entries = %d, want 3", len(entries))
	}
	if entries[0].Buffer.Type != wgpu.BufferBindingTypeUniform {
		t.Error("entry 0 is not a uniform buffer")
	}
	if entries[1].Texture.SampleType != wgpu.TextureSampleTypeFloat {
		t.Error("entry 1 is not a float texture")
	}
	if entries[2].Sampler.Type != wgpu.SamplerBindingTypeFiltering {
		t.Error("entry 2 is not a filtering sampler")
	}
}
