// Package loader imports image files into a scene's GPU image table. Decoded
// pixels are uploaded once and cached by name, so repeated loads of the same
// file resolve to the same asset id. A YAML manifest can describe a batch of
// images with per-image sampler settings.
package loader

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tessera-engine/tessera/common"
	"github.com/tessera-engine/tessera/engine/renderer/texture"
)

// imageCount is an atomic counter used to assign image asset ids.
var imageCount atomic.Uint64

// LoaderBackendType identifies the image decoding backend to use.
type LoaderBackendType int

const (
	// BackendTypeImage selects the standard image backend (PNG, JPEG, BMP,
	// TIFF, WebP).
	BackendTypeImage LoaderBackendType = iota
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	images *texture.Images

	cache map[string]common.AssetID

	defaultSampler *common.SamplerStagingData

	backend loaderBackend
}

// Loader defines the public-facing interface for importing images and caching
// their asset ids. It abstracts the file format behind a generic backend and
// inserts uploaded images into a scene's image table.
type Loader interface {
	// LoadImage imports an image file, uploads it, and caches the resulting
	// asset id by file path. If the path is already cached, the cached id is
	// returned without touching the file.
	//
	// Parameters:
	//   - path: the image file path
	//
	// Returns:
	//   - common.AssetID: the image asset id
	//   - error: error if decoding or GPU upload fails
	LoadImage(path string) (common.AssetID, error)

	// LoadImageBytes imports an image from raw encoded bytes and caches the
	// resulting asset id by the given name. If the name is already cached,
	// the cached id is returned.
	//
	// Parameters:
	//   - name: the cache key for the image
	//   - data: the encoded image bytes
	//
	// Returns:
	//   - common.AssetID: the image asset id
	//   - error: error if decoding or GPU upload fails
	LoadImageBytes(name string, data []byte) (common.AssetID, error)

	// LoadManifest imports every image listed in a YAML manifest file. Each
	// entry names an image, its file path, and optional sampler settings.
	// Entries are cached by their manifest name.
	//
	// Parameters:
	//   - path: the manifest file path
	//
	// Returns:
	//   - map[string]common.AssetID: the loaded asset ids keyed by manifest name
	//   - error: error if the manifest or any of its images fails to load
	LoadManifest(path string) (map[string]common.AssetID, error)

	// Get retrieves a cached asset id by name.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - common.AssetID: the cached asset id, or zero
	//   - bool: false when the name is not cached
	Get(name string) (common.AssetID, bool)

	// Loaded returns a copy of the full name-to-asset-id cache.
	//
	// Returns:
	//   - map[string]common.AssetID: all cached asset ids keyed by name
	Loaded() map[string]common.AssetID

	// Remove drops a cached image by name and releases its GPU resources.
	// Unknown names are ignored.
	//
	// Parameters:
	//   - name: the cache key to drop
	Remove(name string)
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with the specified backend type and options
// applied. Panics if the backend type is unknown or any dependency is nil.
//
// Parameters:
//   - backendType: the image decoding backend to use
//   - device: the GPU device images are uploaded to
//   - queue: the GPU queue used for pixel uploads
//   - images: the image table uploads are inserted into
//   - options: functional options to configure the loader
//
// Returns:
//   - Loader: the configured loader
func NewLoader(backendType LoaderBackendType, device texture.Device, queue texture.Queue, images *texture.Images, options ...LoaderBuilderOption) Loader {
	if device == nil || queue == nil {
		panic("loader requires a GPU device and queue")
	}
	if images == nil {
		panic("loader requires an image table")
	}

	l := &loader{
		images: images,
		cache:  make(map[string]common.AssetID),
	}
	for _, opt := range options {
		opt(l)
	}

	switch backendType {
	case BackendTypeImage:
		l.backend = newImageLoaderBackend(device, queue)
	default:
		panic(fmt.Sprintf("unknown loader backend type: %d", backendType))
	}
	return l
}

func (l *loader) LoadImage(path string) (common.AssetID, error) {
	if id, ok := l.Get(path); ok {
		return id, nil
	}

	staging, err := l.backend.decodeFile(path)
	if err != nil {
		return 0, fmt.Errorf("loader: %w", err)
	}
	return l.insert(path, staging, l.defaultSampler)
}

func (l *loader) LoadImageBytes(name string, data []byte) (common.AssetID, error) {
	if id, ok := l.Get(name); ok {
		return id, nil
	}

	staging, err := l.backend.decodeBytes(data)
	if err != nil {
		return 0, fmt.Errorf("loader: %q: %w", name, err)
	}
	return l.insert(name, staging, l.defaultSampler)
}

func (l *loader) LoadManifest(path string) (map[string]common.AssetID, error) {
	entries, err := parseManifest(path)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]common.AssetID, len(entries))
	for _, entry := range entries {
		if id, ok := l.Get(entry.Name); ok {
			ids[entry.Name] = id
			continue
		}

		staging, err := l.backend.decodeFile(entry.Path)
		if err != nil {
			return nil, fmt.Errorf("loader: manifest %s: image %q: %w", path, entry.Name, err)
		}

		sampler := l.defaultSampler
		if entry.sampler != nil {
			sampler = entry.sampler
		}
		id, err := l.insert(entry.Name, staging, sampler)
		if err != nil {
			return nil, fmt.Errorf("loader: manifest %s: image %q: %w", path, entry.Name, err)
		}
		ids[entry.Name] = id
	}
	return ids, nil
}

func (l *loader) Get(name string) (common.AssetID, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	id, ok := l.cache[name]
	return id, ok
}

func (l *loader) Loaded() map[string]common.AssetID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]common.AssetID, len(l.cache))
	for name, id := range l.cache {
		out[name] = id
	}
	return out
}

func (l *loader) Remove(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if id, ok := l.cache[name]; ok {
		l.images.Remove(id)
		delete(l.cache, name)
	}
}

// insert uploads decoded pixels and records the assigned asset id under the
// cache name. A concurrent load of the same name keeps the first id.
func (l *loader) insert(name string, staging common.TextureStagingData, sampler *common.SamplerStagingData) (common.AssetID, error) {
	img, err := l.backend.upload(name, staging, sampler)
	if err != nil {
		return 0, fmt.Errorf("loader: %q: %w", name, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if id, ok := l.cache[name]; ok {
		img.Release()
		return id, nil
	}
	id := common.AssetID(imageCount.Add(1))
	l.images.Insert(id, img)
	l.cache[name] = id
	return id, nil
}
