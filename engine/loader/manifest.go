package loader

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/tessera-engine/tessera/common"
)

// manifest is the YAML document listing images to import.
type manifest struct {
	Images []manifestEntry `yaml:"images"`
}

// manifestEntry describes one image in a manifest.
type manifestEntry struct {
	// Name is the cache key for the image. Required and unique.
	Name string `yaml:"name"`
	// Path is the image file path. Required.
	Path string `yaml:"path"`
	// Filter selects the sampling filter: "linear" (default) or "nearest".
	Filter string `yaml:"filter"`
	// Address selects the addressing mode outside [0, 1]: "repeat"
	// (default), "clamp", or "mirror".
	Address string `yaml:"address"`

	sampler *common.SamplerStagingData
}

// parseManifest reads and validates a manifest file, resolving each entry's
// sampler settings.
func parseManifest(path string) ([]manifestEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: manifest %s: %w", path, err)
	}

	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("loader: manifest %s: %w", path, err)
	}

	seen := make(map[string]bool, len(m.Images))
	for i := range m.Images {
		entry := &m.Images[i]
		if entry.Name == "" {
			return nil, fmt.Errorf("loader: manifest %s: entry %d has no name", path, i)
		}
		if entry.Path == "" {
			return nil, fmt.Errorf("loader: manifest %s: image %q has no path", path, entry.Name)
		}
		if seen[entry.Name] {
			return nil, fmt.Errorf("loader: manifest %s: duplicate image name %q", path, entry.Name)
		}
		seen[entry.Name] = true

		sampler, err := entry.samplerData()
		if err != nil {
			return nil, fmt.Errorf("loader: manifest %s: image %q: %w", path, entry.Name, err)
		}
		entry.sampler = sampler
	}
	return m.Images, nil
}

// samplerData maps the entry's filter and address fields to sampler staging
// data. Returns nil when both fields are unset so upload uses the defaults.
func (e *manifestEntry) samplerData() (*common.SamplerStagingData, error) {
	if e.Filter == "" && e.Address == "" {
		return nil, nil
	}

	var sd common.SamplerStagingData
	switch e.Filter {
	case "", "linear":
		sd.MagFilter = wgpu.FilterModeLinear
		sd.MinFilter = wgpu.FilterModeLinear
		sd.MipmapFilter = wgpu.MipmapFilterModeLinear
	case "nearest":
		sd.MagFilter = wgpu.FilterModeNearest
		sd.MinFilter = wgpu.FilterModeNearest
		sd.MipmapFilter = wgpu.MipmapFilterModeNearest
	default:
		return nil, fmt.Errorf("unknown filter %q", e.Filter)
	}

	var address wgpu.AddressMode
	switch e.Address {
	case "", "repeat":
		address = wgpu.AddressModeRepeat
	case "clamp":
		address = wgpu.AddressModeClampToEdge
	case "mirror":
		address = wgpu.AddressModeMirrorRepeat
	default:
		return nil, fmt.Errorf("unknown address mode %q", e.Address)
	}
	sd.AddressModeU = address
	sd.AddressModeV = address
	sd.AddressModeW = address

	return &sd, nil
}
