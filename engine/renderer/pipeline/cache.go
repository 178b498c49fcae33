package pipeline

import (
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/tessera-engine/tessera/engine/mesh"
)

// CacheKey identifies one pipeline specialization: the pipeline key, the
// interned vertex layout id, and the material's comparable specialization
// data. Two draws with equal cache keys share a compiled pipeline.
type CacheKey struct {
	Key      Key
	LayoutID uint32

	// BindGroupData is the material's specialization data. It must be a
	// comparable value; materials without specialization data use nil.
	BindGroupData any
}

// SpecializeFunc builds the pipeline descriptor for a cache miss.
type SpecializeFunc func(key Key, layout mesh.VertexLayout, data any) (*RenderPipelineDescriptor, error)

// SpecializedMeshPipelines caches compiled pipelines by specialization. Each
// distinct CacheKey is compiled exactly once; later lookups return the
// cached pipeline without touching the device. Safe for concurrent use.
type SpecializedMeshPipelines struct {
	mu        sync.RWMutex
	pipelines map[CacheKey]*wgpu.RenderPipeline
}

// NewSpecializedMeshPipelines creates an empty pipeline cache.
func NewSpecializedMeshPipelines() *SpecializedMeshPipelines {
	return &SpecializedMeshPipelines{
		pipelines: make(map[CacheKey]*wgpu.RenderPipeline),
	}
}

// Specialize returns the compiled pipeline for a specialization, building
// and compiling it on first use.
//
// Parameters:
//   - dev: the GPU device used on cache misses
//   - key: the pipeline key
//   - layout: the interned vertex layout of the mesh being drawn
//   - data: the material's comparable specialization data, or nil
//   - specialize: builds the descriptor on a cache miss
//
// Returns:
//   - *wgpu.RenderPipeline: the compiled pipeline
//   - error: an error if descriptor construction or compilation fails;
//     failures are not cached and are retried on the next call
func (s *SpecializedMeshPipelines) Specialize(dev Device, key Key, layout mesh.VertexLayout, data any, specialize SpecializeFunc) (*wgpu.RenderPipeline, error) {
	cacheKey := CacheKey{Key: key, LayoutID: layout.ID, BindGroupData: data}

	s.mu.RLock()
	p, ok := s.pipelines[cacheKey]
	s.mu.RUnlock()
	if ok {
		return p, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Double check: another goroutine may have compiled this specialization
	// while we waited for the write lock.
	if p, ok := s.pipelines[cacheKey]; ok {
		return p, nil
	}

	desc, err := specialize(key, layout, data)
	if err != nil {
		return nil, err
	}
	p, err = Build(dev, desc)
	if err != nil {
		return nil, err
	}
	s.pipelines[cacheKey] = p
	return p, nil
}

// Len returns the number of cached specializations.
func (s *SpecializedMeshPipelines) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pipelines)
}

// Clear drops all cached pipelines. Called on device loss and after shader
// reloads, when every cached pipeline was compiled from stale sources.
func (s *SpecializedMeshPipelines) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pipelines = make(map[CacheKey]*wgpu.RenderPipeline)
}
