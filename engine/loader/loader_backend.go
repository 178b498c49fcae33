package loader

import (
	"github.com/tessera-engine/tessera/common"
	"github.com/tessera-engine/tessera/engine/renderer/texture"
)

// loaderBackend abstracts image decoding and GPU upload behind the Loader.
type loaderBackend interface {
	// decodeFile decodes an image file to RGBA staging data.
	//
	// Parameters:
	//   - path: the image file path
	//
	// Returns:
	//   - common.TextureStagingData: the decoded pixels and dimensions
	//   - error: error if the file cannot be read or decoded
	decodeFile(path string) (common.TextureStagingData, error)

	// decodeBytes decodes raw encoded image bytes to RGBA staging data.
	//
	// Parameters:
	//   - data: the encoded image bytes
	//
	// Returns:
	//   - common.TextureStagingData: the decoded pixels and dimensions
	//   - error: error if the bytes cannot be decoded
	decodeBytes(data []byte) (common.TextureStagingData, error)

	// upload creates the GPU-resident image for decoded pixels.
	//
	// Parameters:
	//   - label: a debug label for the created resources
	//   - staging: the decoded pixels and dimensions
	//   - sampler: sampler overrides, or nil for defaults
	//
	// Returns:
	//   - *texture.GpuImage: the resident image
	//   - error: error if GPU resource creation fails
	upload(label string, staging common.TextureStagingData, sampler *common.SamplerStagingData) (*texture.GpuImage, error)
}

// imageLoaderBackendImpl decodes with the standard image packages and uploads
// through the texture package.
type imageLoaderBackendImpl struct {
	device texture.Device
	queue  texture.Queue
}

var _ loaderBackend = &imageLoaderBackendImpl{}

// newImageLoaderBackend creates the standard image backend.
func newImageLoaderBackend(device texture.Device, queue texture.Queue) loaderBackend {
	return &imageLoaderBackendImpl{device: device, queue: queue}
}

func (b *imageLoaderBackendImpl) decodeFile(path string) (common.TextureStagingData, error) {
	tex := common.ImportedTexture{Path: path}
	pixels, width, height, err := tex.Decode()
	if err != nil {
		return common.TextureStagingData{}, err
	}
	return common.TextureStagingData{Pixels: pixels, Width: width, Height: height}, nil
}

func (b *imageLoaderBackendImpl) decodeBytes(data []byte) (common.TextureStagingData, error) {
	tex := common.ImportedTexture{Data: data}
	pixels, width, height, err := tex.Decode()
	if err != nil {
		return common.TextureStagingData{}, err
	}
	return common.TextureStagingData{Pixels: pixels, Width: width, Height: height}, nil
}

func (b *imageLoaderBackendImpl) upload(label string, staging common.TextureStagingData, sampler *common.SamplerStagingData) (*texture.GpuImage, error) {
	return texture.CreateGpuImage(b.device, b.queue, label, staging, sampler)
}
