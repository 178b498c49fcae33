// Package texture manages GPU-resident images for 2D materials: a table of
// uploaded images keyed by asset id, and a fallback image bound in place of
// unset optional texture slots.
//
// An image absent from the table is "not ready": material preparation
// reports retry-next-update and is re-attempted on a later frame once the
// upload lands.
package texture

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/tessera-engine/tessera/common"
)

// Device is the subset of the GPU device needed to upload images.
// *wgpu.Device satisfies it.
type Device interface {
	CreateTexture(descriptor *wgpu.TextureDescriptor) (*wgpu.Texture, error)
	CreateSampler(descriptor *wgpu.SamplerDescriptor) (*wgpu.Sampler, error)
}

// Queue is the subset of the GPU queue needed to upload images.
// *wgpu.Queue satisfies it.
type Queue interface {
	WriteTexture(destination *wgpu.ImageCopyTexture, data []byte, dataLayout *wgpu.TextureDataLayout, writeSize *wgpu.Extent3D)
}

// GpuImage is a GPU-resident image: its sampled view, its sampler, and its
// dimensions. The view and sampler are owned by the image and released
// together with it.
type GpuImage struct {
	View    *wgpu.TextureView
	Sampler *wgpu.Sampler
	Texture *wgpu.Texture
	Width   uint32
	Height  uint32
}

// Release releases the GPU resources held by this image.
func (g *GpuImage) Release() {
	if g.View != nil {
		g.View.Release()
		g.View = nil
	}
	if g.Sampler != nil {
		g.Sampler.Release()
		g.Sampler = nil
	}
	if g.Texture != nil {
		g.Texture.Release()
		g.Texture = nil
	}
}

// Images is the render-side table of GPU-resident images keyed by asset id.
// Safe for concurrent use; material preparation reads it while uploads
// insert into it.
type Images struct {
	mu     sync.RWMutex
	images map[common.AssetID]*GpuImage
}

// NewImages creates an empty image table.
func NewImages() *Images {
	return &Images{images: make(map[common.AssetID]*GpuImage)}
}

// Get returns the GPU image for an asset id.
//
// Parameters:
//   - id: the image asset id
//
// Returns:
//   - *GpuImage: the resident image, or nil
//   - bool: false when the image is not (yet) resident
func (t *Images) Get(id common.AssetID) (*GpuImage, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	img, ok := t.images[id]
	return img, ok
}

// Insert adds or replaces the GPU image for an asset id. A replaced image
// is released.
//
// Parameters:
//   - id: the image asset id
//   - img: the resident image
func (t *Images) Insert(id common.AssetID, img *GpuImage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.images[id]; ok && old != img {
		old.Release()
	}
	t.images[id] = img
}

// Remove drops and releases the GPU image for an asset id, if present.
func (t *Images) Remove(id common.AssetID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.images[id]; ok {
		old.Release()
		delete(t.images, id)
	}
}

// FallbackImage is the 1x1 opaque white image bound in place of optional
// texture slots a material leaves unset.
type FallbackImage struct {
	*GpuImage
}

// NewFallbackImage uploads the 1x1 white fallback image.
//
// Parameters:
//   - dev: the GPU device
//   - queue: the GPU queue used for the pixel upload
//
// Returns:
//   - *FallbackImage: the fallback image
//   - error: an error if GPU resource creation fails
func NewFallbackImage(dev Device, queue Queue) (*FallbackImage, error) {
	img, err := CreateGpuImage(dev, queue, "tessera fallback", common.TextureStagingData{
		Pixels: []byte{0xff, 0xff, 0xff, 0xff},
		Width:  1,
		Height: 1,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("texture: fallback image: %w", err)
	}
	return &FallbackImage{GpuImage: img}, nil
}

// CreateGpuImage uploads RGBA pixel data and creates the sampled view and
// sampler for it.
//
// Parameters:
//   - dev: the GPU device
//   - queue: the GPU queue used for the pixel upload
//   - label: a debug label for the created resources
//   - staging: the RGBA pixel data and dimensions
//   - samplerData: sampler overrides, or nil for linear/repeat defaults
//
// Returns:
//   - *GpuImage: the resident image
//   - error: an error if GPU resource creation fails
func CreateGpuImage(dev Device, queue Queue, label string, staging common.TextureStagingData, samplerData *common.SamplerStagingData) (*GpuImage, error) {
	tex, err := dev.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label + " Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              staging.Width,
			Height:             staging.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}

	queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		staging.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  staging.Width * 4,
			RowsPerImage: staging.Height,
		},
		&wgpu.Extent3D{
			Width:              staging.Width,
			Height:             staging.Height,
			DepthOrArrayLayers: 1,
		},
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}

	// Filter and address enum zero values are valid modes (nearest, repeat),
	// so a provided sampler is taken as-is. Only nil falls back to the
	// linear/repeat defaults.
	sd := common.SamplerStagingData{
		AddressModeU: wgpu.AddressModeRepeat,
		AddressModeV: wgpu.AddressModeRepeat,
		AddressModeW: wgpu.AddressModeRepeat,
		MagFilter:    wgpu.FilterModeLinear,
		MinFilter:    wgpu.FilterModeLinear,
		MipmapFilter: wgpu.MipmapFilterModeLinear,
	}
	if samplerData != nil {
		sd = *samplerData
	}
	samp, err := dev.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label + " Sampler",
		AddressModeU:  sd.AddressModeU,
		AddressModeV:  sd.AddressModeV,
		AddressModeW:  sd.AddressModeW,
		MagFilter:     sd.MagFilter,
		MinFilter:     sd.MinFilter,
		MipmapFilter:  sd.MipmapFilter,
		LodMinClamp:   sd.LodMinClamp,
		LodMaxClamp:   common.Coalesce(sd.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(sd.MaxAnisotropy, 1),
		Compare:       sd.Compare,
	})
	if err != nil {
		view.Release()
		tex.Release()
		return nil, err
	}

	return &GpuImage{
		View:    view,
		Sampler: samp,
		Texture: tex,
		Width:   staging.Width,
		Height:  staging.Height,
	}, nil
}
