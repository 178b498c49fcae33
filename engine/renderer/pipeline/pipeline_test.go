package pipeline

import (
	"errors"
	"sync"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/tessera-engine/tessera/engine/mesh"
	"github.com/tessera-engine/tessera/engine/view"
)

// fakeDevice counts pipeline compilations without touching a real GPU.
type fakeDevice struct {
	mu              sync.Mutex
	shaderModules   int
	pipelineLayouts int
	renderPipelines int
	failCompile     bool
}

func (d *fakeDevice) CreateShaderModule(desc *wgpu.ShaderModuleDescriptor) (*wgpu.ShaderModule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.shaderModules++
	return &wgpu.ShaderModule{}, nil
}

func (d *fakeDevice) CreatePipelineLayout(desc *wgpu.PipelineLayoutDescriptor) (*wgpu.PipelineLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pipelineLayouts++
	return &wgpu.PipelineLayout{}, nil
}

func (d *fakeDevice) CreateRenderPipeline(desc *wgpu.RenderPipelineDescriptor) (*wgpu.RenderPipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failCompile {
		return nil, errors.New("compile failed")
	}
	d.renderPipelines++
	return &wgpu.RenderPipeline{}, nil
}

func (d *fakeDevice) compiled() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.renderPipelines
}

func testLayout() mesh.VertexLayout {
	return mesh.Vertex2DLayout()
}

func basePipeline() *Mesh2DPipeline {
	return NewMesh2DPipeline(&wgpu.BindGroupLayout{}, &wgpu.BindGroupLayout{}, wgpu.TextureFormatBGRA8UnormSrgb)
}

func TestViewKey(t *testing.T) {
	tm := view.TonemappingReinhard
	dither := view.DebandDitherEnabled

	tests := []struct {
		name string
		view view.ExtractedView
		want Key
	}{
		{
			name: "plain ldr",
			view: view.ExtractedView{MsaaSamples: 1},
			want: Key{MsaaSamples: 1},
		},
		{
			name: "ldr with tonemapping and dither",
			view: view.ExtractedView{MsaaSamples: 4, Tonemapping: &tm, Dither: &dither},
			want: Key{MsaaSamples: 4, TonemapInShader: true, TonemapMethod: view.TonemappingReinhard, DebandDither: true},
		},
		{
			name: "hdr suppresses tonemapping bits",
			view: view.ExtractedView{MsaaSamples: 4, HDR: true, Tonemapping: &tm, Dither: &dither},
			want: Key{MsaaSamples: 4, HDR: true},
		},
		{
			name: "dither without tonemapping is ignored",
			view: view.ExtractedView{MsaaSamples: 1, Dither: &dither},
			want: Key{MsaaSamples: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ViewKey(&tt.view); got != tt.want {
				t.Errorf("ViewKey = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestKeyShaderDefs(t *testing.T) {
	key := Key{
		TonemapInShader: true,
		TonemapMethod:   view.TonemappingReinhardLuminance,
		DebandDither:    true,
		BlendAlpha:      true,
	}
	defs := key.ShaderDefs()

	want := []string{"TONEMAP_IN_SHADER", "TONEMAP_METHOD_REINHARD_LUMINANCE", "DEBAND_DITHER", "BLEND_ALPHA"}
	if len(defs) != len(want) {
		t.Fatalf("defs = %v, want %v", defs, want)
	}
	for i := range want {
		if defs[i] != want[i] {
			t.Errorf("defs[%d] = %q, want %q", i, defs[i], want[i])
		}
	}

	if got := (Key{}).ShaderDefs(); len(got) != 0 {
		t.Errorf("zero key defs = %v, want none", got)
	}
}

func TestSpecializeBlendAndFormat(t *testing.T) {
	p := basePipeline()

	desc, err := p.Specialize(Key{MsaaSamples: 1, BlendAlpha: true, Topology: wgpu.PrimitiveTopologyTriangleList}, testLayout())
	if err != nil {
		t.Fatalf("Specialize: %v", err)
	}
	target := desc.Fragment.Targets[0]
	if target.Blend == nil {
		t.Fatal("blend-alpha key produced no blend state")
	}
	if target.Blend.Color.SrcFactor != wgpu.BlendFactorSrcAlpha {
		t.Errorf("color src factor = %v", target.Blend.Color.SrcFactor)
	}
	if desc.DepthStencil.DepthWriteEnabled {
		t.Error("transparent pipeline must not write depth")
	}

	desc, err = p.Specialize(Key{MsaaSamples: 4, HDR: true, Topology: wgpu.PrimitiveTopologyTriangleList}, testLayout())
	if err != nil {
		t.Fatalf("Specialize: %v", err)
	}
	target = desc.Fragment.Targets[0]
	if target.Blend != nil {
		t.Error("opaque key produced a blend state")
	}
	if target.Format != HDRFormat {
		t.Errorf("hdr target format = %v, want %v", target.Format, HDRFormat)
	}
	if !desc.DepthStencil.DepthWriteEnabled {
		t.Error("opaque pipeline must write depth")
	}
	if desc.Multisample.Count != 4 {
		t.Errorf("multisample count = %d, want 4", desc.Multisample.Count)
	}
}

func TestSpecializeRejectsZeroMsaa(t *testing.T) {
	if _, err := basePipeline().Specialize(Key{}, testLayout()); err == nil {
		t.Error("expected error for zero msaa samples")
	}
}

func TestCacheCompilesOnce(t *testing.T) {
	dev := &fakeDevice{}
	cache := NewSpecializedMeshPipelines()
	base := basePipeline()

	specialize := func(key Key, layout mesh.VertexLayout, data any) (*RenderPipelineDescriptor, error) {
		return base.Specialize(key, layout)
	}

	key := Key{MsaaSamples: 1, Topology: wgpu.PrimitiveTopologyTriangleList}
	first, err := cache.Specialize(dev, key, testLayout(), nil, specialize)
	if err != nil {
		t.Fatalf("Specialize: %v", err)
	}
	second, err := cache.Specialize(dev, key, testLayout(), nil, specialize)
	if err != nil {
		t.Fatalf("Specialize: %v", err)
	}
	if first != second {
		t.Error("equal keys returned distinct pipelines")
	}
	if dev.compiled() != 1 {
		t.Errorf("compiled %d pipelines, want 1", dev.compiled())
	}

	// A different key bit forces a distinct compilation.
	blendKey := key
	blendKey.BlendAlpha = true
	third, err := cache.Specialize(dev, blendKey, testLayout(), nil, specialize)
	if err != nil {
		t.Fatalf("Specialize: %v", err)
	}
	if third == first {
		t.Error("distinct keys shared a pipeline")
	}
	if dev.compiled() != 2 {
		t.Errorf("compiled %d pipelines, want 2", dev.compiled())
	}
	if cache.Len() != 2 {
		t.Errorf("cache holds %d entries, want 2", cache.Len())
	}
}

func TestCacheKeyIncludesMaterialData(t *testing.T) {
	dev := &fakeDevice{}
	cache := NewSpecializedMeshPipelines()
	base := basePipeline()

	specialize := func(key Key, layout mesh.VertexLayout, data any) (*RenderPipelineDescriptor, error) {
		return base.Specialize(key, layout)
	}

	key := Key{MsaaSamples: 1, Topology: wgpu.PrimitiveTopologyTriangleList}
	a, _ := cache.Specialize(dev, key, testLayout(), "variant-a", specialize)
	b, _ := cache.Specialize(dev, key, testLayout(), "variant-b", specialize)
	a2, _ := cache.Specialize(dev, key, testLayout(), "variant-a", specialize)

	if a == b {
		t.Error("distinct material data shared a pipeline")
	}
	if a != a2 {
		t.Error("equal material data returned distinct pipelines")
	}
	if dev.compiled() != 2 {
		t.Errorf("compiled %d pipelines, want 2", dev.compiled())
	}
}

func TestCacheErrorNotCached(t *testing.T) {
	dev := &fakeDevice{failCompile: true}
	cache := NewSpecializedMeshPipelines()
	base := basePipeline()

	specialize := func(key Key, layout mesh.VertexLayout, data any) (*RenderPipelineDescriptor, error) {
		return base.Specialize(key, layout)
	}

	key := Key{MsaaSamples: 1, Topology: wgpu.PrimitiveTopologyTriangleList}
	if _, err := cache.Specialize(dev, key, testLayout(), nil, specialize); err == nil {
		t.Fatal("expected compilation error")
	}
	if cache.Len() != 0 {
		t.Errorf("failed specialization was cached")
	}

	// The same key succeeds once the device recovers.
	dev.failCompile = false
	if _, err := cache.Specialize(dev, key, testLayout(), nil, specialize); err != nil {
		t.Fatalf("Specialize after recovery: %v", err)
	}
	if cache.Len() != 1 {
		t.Errorf("cache holds %d entries, want 1", cache.Len())
	}
}

func TestCacheClear(t *testing.T) {
	dev := &fakeDevice{}
	cache := NewSpecializedMeshPipelines()
	base := basePipeline()

	specialize := func(key Key, layout mesh.VertexLayout, data any) (*RenderPipelineDescriptor, error) {
		return base.Specialize(key, layout)
	}

	key := Key{MsaaSamples: 1, Topology: wgpu.PrimitiveTopologyTriangleList}
	first, _ := cache.Specialize(dev, key, testLayout(), nil, specialize)
	cache.Clear()
	if cache.Len() != 0 {
		t.Errorf("cache holds %d entries after Clear", cache.Len())
	}
	second, _ := cache.Specialize(dev, key, testLayout(), nil, specialize)
	if first == second {
		t.Error("Clear did not force recompilation")
	}
	if dev.compiled() != 2 {
		t.Errorf("compiled %d pipelines, want 2", dev.compiled())
	}
}
