package material

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/tessera-engine/tessera/common"
	"github.com/tessera-engine/tessera/engine/renderer/binding"
	"github.com/tessera-engine/tessera/engine/renderer/texture"
)

// ErrRetryNextUpdate reports that a material's bindings reference assets
// that are not GPU-resident yet. The material is not failed; preparation is
// re-attempted on a later frame once the assets land.
var ErrRetryNextUpdate = errors.New("material bindings not ready, retry next update")

// Device is the subset of the GPU device the material system needs.
// *wgpu.Device satisfies it.
type Device interface {
	CreateBuffer(descriptor *wgpu.BufferDescriptor) (*wgpu.Buffer, error)
	CreateBindGroupLayout(descriptor *wgpu.BindGroupLayoutDescriptor) (*wgpu.BindGroupLayout, error)
	CreateBindGroup(descriptor *wgpu.BindGroupDescriptor) (*wgpu.BindGroup, error)
	CreateShaderModule(descriptor *wgpu.ShaderModuleDescriptor) (*wgpu.ShaderModule, error)
	CreatePipelineLayout(descriptor *wgpu.PipelineLayoutDescriptor) (*wgpu.PipelineLayout, error)
	CreateRenderPipeline(descriptor *wgpu.RenderPipelineDescriptor) (*wgpu.RenderPipeline, error)
}

// Queue is the subset of the GPU queue the material system needs.
// *wgpu.Queue satisfies it.
type Queue interface {
	WriteBuffer(buffer *wgpu.Buffer, bufferOffset uint64, data []byte) error
}

// Material2DProperties is the subset of material state queuing reads per
// draw, copied out of the material at preparation time so queuing never
// touches the material itself.
type Material2DProperties struct {
	// AlphaMode routes draws to the opaque or transparent phase.
	AlphaMode AlphaMode2D

	// DepthBias is added to the transparent-phase sort key.
	DepthBias float32
}

// PreparedMaterial2D is the GPU-resident form of a material: its uniform
// buffers and bind group, its specialization data, and the properties
// queuing reads.
type PreparedMaterial2D struct {
	// Binding owns the uniform buffers and the group 2 bind group.
	Binding binding.Provider

	// Key is the material's BindGroupData captured at preparation time.
	Key any

	Properties Material2DProperties
}

// BindGroup returns the prepared group 2 bind group. The handle doubles as
// the material's bind-group identity in opaque bin keys.
func (p *PreparedMaterial2D) BindGroup() *wgpu.BindGroup {
	return p.Binding.BindGroup()
}

// Release releases the prepared material's GPU resources.
func (p *PreparedMaterial2D) Release() {
	p.Binding.Release()
}

// PrepareMaterial2D creates the GPU resources for a material's bindings:
// uniform buffers filled with the material's data and a bind group over the
// given layout. Texture and sampler bindings resolve through the image
// table; a referenced image that is not resident yet aborts with
// ErrRetryNextUpdate and creates nothing.
//
// Parameters:
//   - dev: the GPU device
//   - queue: the GPU queue used for uniform uploads
//   - mat: the material to prepare
//   - layout: the group 2 bind group layout for the material's type
//   - images: the GPU image table
//   - fallback: the image bound for zero image ids
//
// Returns:
//   - *PreparedMaterial2D: the prepared material
//   - error: ErrRetryNextUpdate when a referenced image is not resident,
//     or a GPU creation error
func PrepareMaterial2D(dev Device, queue Queue, mat Material2D, layout *wgpu.BindGroupLayout, images *texture.Images, fallback *texture.FallbackImage) (*PreparedMaterial2D, error) {
	bindings := mat.Bindings()

	// Resolve every image before creating anything, so a missing image
	// leaves no GPU resources behind.
	resolved := make(map[uint32]*texture.GpuImage, len(bindings))
	for _, b := range bindings {
		if b.Kind == BindingUniform {
			continue
		}
		if b.ImageID == 0 {
			resolved[b.Index] = fallback.GpuImage
			continue
		}
		img, ok := images.Get(b.ImageID)
		if !ok {
			return nil, fmt.Errorf("material %q: image %d: %w", mat.Label(), b.ImageID, ErrRetryNextUpdate)
		}
		resolved[b.Index] = img
	}

	provider := binding.NewProvider(mat.Label())
	entries := make([]wgpu.BindGroupEntry, 0, len(bindings))

	for _, b := range bindings {
		switch b.Kind {
		case BindingUniform:
			buf, err := dev.CreateBuffer(&wgpu.BufferDescriptor{
				Label: fmt.Sprintf("%s Uniform %d", mat.Label(), b.Index),
				Size:  uint64(len(b.Data)),
				Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
			})
			if err != nil {
				provider.Release()
				return nil, fmt.Errorf("material %q: uniform %d: %w", mat.Label(), b.Index, err)
			}
			provider.SetBuffer(int(b.Index), buf)
			if err := queue.WriteBuffer(buf, 0, b.Data); err != nil {
				provider.Release()
				return nil, fmt.Errorf("material %q: uniform %d: %w", mat.Label(), b.Index, err)
			}
			entries = append(entries, wgpu.BindGroupEntry{
				Binding: b.Index,
				Buffer:  buf,
				Size:    uint64(len(b.Data)),
			})
		case BindingTexture:
			entries = append(entries, wgpu.BindGroupEntry{
				Binding:     b.Index,
				TextureView: resolved[b.Index].View,
			})
		case BindingSampler:
			entries = append(entries, wgpu.BindGroupEntry{
				Binding: b.Index,
				Sampler: resolved[b.Index].Sampler,
			})
		}
	}

	bg, err := dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   mat.Label() + " Bind Group",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		provider.Release()
		return nil, fmt.Errorf("material %q: bind group: %w", mat.Label(), err)
	}
	provider.SetBindGroup(bg)

	return &PreparedMaterial2D{
		Binding: provider,
		Key:     mat.BindGroupData(),
		Properties: Material2DProperties{
			AlphaMode: mat.AlphaMode(),
			DepthBias: mat.DepthBias(),
		},
	}, nil
}

// RenderMaterials is the render-side table of prepared materials keyed by
// asset id. A material absent from the table is not ready; queuing skips
// entities whose material has not been prepared yet.
type RenderMaterials struct {
	mu       sync.RWMutex
	prepared map[common.AssetID]*PreparedMaterial2D
}

// NewRenderMaterials creates an empty prepared material table.
func NewRenderMaterials() *RenderMaterials {
	return &RenderMaterials{prepared: make(map[common.AssetID]*PreparedMaterial2D)}
}

// Get returns the prepared material for an asset id.
//
// Parameters:
//   - id: the material asset id
//
// Returns:
//   - *PreparedMaterial2D: the prepared material, or nil
//   - bool: false when the material is not (yet) prepared
func (t *RenderMaterials) Get(id common.AssetID) (*PreparedMaterial2D, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.prepared[id]
	return p, ok
}

// Insert adds or replaces the prepared material for an asset id. A
// replaced preparation is released.
func (t *RenderMaterials) Insert(id common.AssetID, p *PreparedMaterial2D) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.prepared[id]; ok && old != p {
		old.Release()
	}
	t.prepared[id] = p
}

// Remove drops and releases the prepared material for an asset id, if
// present.
func (t *RenderMaterials) Remove(id common.AssetID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.prepared[id]; ok {
		old.Release()
		delete(t.prepared, id)
	}
}
