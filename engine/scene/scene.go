// Package scene orchestrates the per-frame 2D render flow: material
// preparation with retry, extraction of visible entities into render-side
// instance maps, and parallel per-view queuing into render phases. The
// renderer executes the resulting phases; the scene never encodes GPU work
// itself.
package scene

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"

	"github.com/tessera-engine/tessera"
	"github.com/tessera-engine/tessera/common"
	"github.com/tessera-engine/tessera/engine/camera"
	"github.com/tessera-engine/tessera/engine/game_object"
	"github.com/tessera-engine/tessera/engine/mesh"
	"github.com/tessera-engine/tessera/engine/renderer/material"
	"github.com/tessera-engine/tessera/engine/renderer/phase"
	"github.com/tessera-engine/tessera/engine/renderer/pipeline"
	"github.com/tessera-engine/tessera/engine/renderer/shader"
	"github.com/tessera-engine/tessera/engine/renderer/texture"
	"github.com/tessera-engine/tessera/engine/view"
)

// meshCount assigns mesh asset ids.
var meshCount atomic.Uint64

// Queue is the GPU queue surface the scene uploads through. *wgpu.Queue
// satisfies it.
type Queue interface {
	material.Queue
}

type scene struct {
	mu   *sync.RWMutex
	name string

	registry map[common.Entity]game_object.GameObject
	order    []common.Entity

	cameras []camera.Camera2D

	device material.Device
	queue  Queue

	// Asset tables.
	materials *material.Assets
	images    *texture.Images
	meshes    *mesh.RenderMeshes

	// Render-side state rebuilt or updated each frame.
	renderMaterials   *material.RenderMaterials
	materialInstances material.RenderMaterial2DInstances
	meshInstances     mesh.RenderMesh2DInstances
	phases            *phase.ViewPhases

	// Pipeline machinery shared across frames.
	library       *shader.Library
	meshPipeline  *pipeline.Mesh2DPipeline
	pipelines     *material.Material2DPipelines
	pipelineCache *pipeline.SpecializedMeshPipelines
	fallback      *texture.FallbackImage

	queue2d *material.Queue2D

	// pending holds materials whose preparation hit a not-ready asset;
	// they are re-attempted on the next frame.
	pending map[common.AssetID]bool

	msaaSamples uint32

	// queuePool runs per-view queuing in parallel. Workers persist across
	// frames, avoiding per-frame goroutine spawn/teardown overhead.
	queuePool    worker.DynamicWorkerPool
	queueWorkers int

	opaqueDraw      phase.DrawFunctionID
	transparentDraw phase.DrawFunctionID
}

// Scene defines the interface for a 2D scene: the object registry, the
// asset tables, and the per-frame render flow.
type Scene interface {
	// Name returns the scene's name.
	//
	// Returns:
	//   - string: the scene name
	Name() string

	// Add registers an object with the scene.
	//
	// Parameters:
	//   - obj: the object to add
	Add(obj game_object.GameObject)

	// Remove drops an object from the scene.
	//
	// Parameters:
	//   - entity: the entity of the object to remove
	Remove(entity common.Entity)

	// Object returns a registered object.
	//
	// Parameters:
	//   - entity: the entity to look up
	//
	// Returns:
	//   - game_object.GameObject: the object, or nil
	//   - bool: false when the entity is not registered
	Object(entity common.Entity) (game_object.GameObject, bool)

	// Objects returns all registered objects in registration order.
	//
	// Returns:
	//   - []game_object.GameObject: the registered objects
	Objects() []game_object.GameObject

	// AddCamera attaches a camera whose view renders each frame.
	//
	// Parameters:
	//   - cam: the camera to attach
	AddCamera(cam camera.Camera2D)

	// Cameras returns the attached cameras.
	//
	// Returns:
	//   - []camera.Camera2D: the attached cameras
	Cameras() []camera.Camera2D

	// Materials returns the scene's material asset table. Adding or
	// replacing a material schedules its GPU preparation.
	//
	// Returns:
	//   - *material.Assets: the material table
	Materials() *material.Assets

	// Images returns the scene's GPU image table.
	//
	// Returns:
	//   - *texture.Images: the image table
	Images() *texture.Images

	// AddMesh uploads staged geometry and registers it under a fresh mesh
	// asset id.
	//
	// Parameters:
	//   - data: the staged geometry
	//
	// Returns:
	//   - common.AssetID: the assigned mesh asset id
	//   - error: an error if the GPU upload fails
	AddMesh(data mesh.MeshData2D) (common.AssetID, error)

	// Meshes returns the scene's GPU mesh table.
	//
	// Returns:
	//   - *mesh.RenderMeshes: the mesh table
	Meshes() *mesh.RenderMeshes

	// Phases returns the per-view render phases filled by RunFrame.
	//
	// Returns:
	//   - *phase.ViewPhases: the render phases
	Phases() *phase.ViewPhases

	// MeshInstances returns the per-frame mesh instance map rebuilt by
	// RunFrame. Draw encoding reads it for transparent draws.
	//
	// Returns:
	//   - mesh.RenderMesh2DInstances: the instance map
	MeshInstances() mesh.RenderMesh2DInstances

	// PipelineCache returns the specialized pipeline cache.
	//
	// Returns:
	//   - *pipeline.SpecializedMeshPipelines: the cache
	PipelineCache() *pipeline.SpecializedMeshPipelines

	// RunFrame runs one frame of the render flow in order: prepare changed
	// materials (retrying ones whose assets were not ready), extract
	// visible entities, then queue every view's draws in parallel and sort
	// the transparent phases.
	//
	// Returns:
	//   - []*view.ExtractedView: the views to render this frame
	RunFrame() []*view.ExtractedView

	// OnShaderChanged reloads a shader source and invalidates every
	// pipeline compiled from the old sources. Called from the shader
	// watcher.
	//
	// Parameters:
	//   - path: the changed WGSL source path
	OnShaderChanged(path string)
}

var _ Scene = &scene{}

// NewScene creates a new Scene. The device, queue, base mesh pipeline, and
// fallback image are required and NewScene panics if any of them is nil.
//
// Parameters:
//   - name: the name of the scene
//   - dev: the GPU device (must not be nil)
//   - queue: the GPU queue (must not be nil)
//   - meshPipeline: the base 2D mesh pipeline (must not be nil)
//   - fallback: the fallback image for unset texture slots (must not be nil)
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, dev material.Device, queue Queue, meshPipeline *pipeline.Mesh2DPipeline, fallback *texture.FallbackImage, options ...SceneBuilderOption) Scene {
	if dev == nil {
		panic("scene: NewScene requires a non-nil device")
	}
	if queue == nil {
		panic("scene: NewScene requires a non-nil queue")
	}
	if meshPipeline == nil {
		panic("scene: NewScene requires a non-nil mesh pipeline")
	}
	if fallback == nil {
		panic("scene: NewScene requires a non-nil fallback image")
	}

	s := &scene{
		mu:                &sync.RWMutex{},
		name:              name,
		registry:          make(map[common.Entity]game_object.GameObject),
		device:            dev,
		queue:             queue,
		materials:         material.NewAssets(),
		images:            texture.NewImages(),
		meshes:            mesh.NewRenderMeshes(),
		renderMaterials:   material.NewRenderMaterials(),
		materialInstances: make(material.RenderMaterial2DInstances),
		meshInstances:     make(mesh.RenderMesh2DInstances),
		phases:            phase.NewViewPhases(),
		library:           shader.NewLibrary(),
		meshPipeline:      meshPipeline,
		pipelines:         material.NewMaterial2DPipelines(),
		pipelineCache:     pipeline.NewSpecializedMeshPipelines(),
		fallback:          fallback,
		pending:           make(map[common.AssetID]bool),
		msaaSamples:       1,
		queueWorkers:      max(runtime.NumCPU()-1, 1),
	}

	for _, option := range options {
		option(s)
	}

	// Initialize the queue pool after options so WithQueueWorkers can
	// override the default. Queue size of 256 accommodates typical view
	// counts with headroom.
	s.queuePool = worker.NewDynamicWorkerPool(s.queueWorkers, 256, 1*time.Second)

	s.queue2d = &material.Queue2D{
		Device:            dev,
		MeshPipeline:      meshPipeline,
		Pipelines:         s.pipelines,
		Library:           s.library,
		Cache:             s.pipelineCache,
		Materials:         s.materials,
		RenderMaterials:   s.renderMaterials,
		MaterialInstances: s.materialInstances,
		MeshInstances:     s.meshInstances,
		Meshes:            s.meshes,
		Phases:            s.phases,
		OpaqueDraw:        s.opaqueDraw,
		TransparentDraw:   s.transparentDraw,
	}

	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) Add(obj game_object.GameObject) {
	if obj == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entity := obj.Entity()
	if _, ok := s.registry[entity]; !ok {
		s.order = append(s.order, entity)
	}
	s.registry[entity] = obj
}

func (s *scene) Remove(entity common.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.registry[entity]; !ok {
		return
	}
	delete(s.registry, entity)
	for i, e := range s.order {
		if e == entity {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *scene) Object(entity common.Entity) (game_object.GameObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.registry[entity]
	return obj, ok
}

func (s *scene) Objects() []game_object.GameObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objects := make([]game_object.GameObject, 0, len(s.order))
	for _, entity := range s.order {
		objects = append(objects, s.registry[entity])
	}
	return objects
}

func (s *scene) AddCamera(cam camera.Camera2D) {
	if cam == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cameras = append(s.cameras, cam)
}

func (s *scene) Cameras() []camera.Camera2D {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]camera.Camera2D(nil), s.cameras...)
}

func (s *scene) Materials() *material.Assets {
	return s.materials
}

func (s *scene) Images() *texture.Images {
	return s.images
}

func (s *scene) AddMesh(data mesh.MeshData2D) (common.AssetID, error) {
	uploaded, err := mesh.Upload(s.device, s.queue, data)
	if err != nil {
		return 0, err
	}
	id := common.AssetID(meshCount.Add(1))
	s.meshes.Insert(id, uploaded)
	return id, nil
}

func (s *scene) Meshes() *mesh.RenderMeshes {
	return s.meshes
}

func (s *scene) Phases() *phase.ViewPhases {
	return s.phases
}

func (s *scene) MeshInstances() mesh.RenderMesh2DInstances {
	return s.meshInstances
}

func (s *scene) PipelineCache() *pipeline.SpecializedMeshPipelines {
	return s.pipelineCache
}

func (s *scene) RunFrame() []*view.ExtractedView {
	s.prepareMaterials()

	objects := s.Objects()
	visible := material.ExtractInstances(objects, s.materialInstances, s.meshInstances)

	cams := s.Cameras()
	views := make([]*view.ExtractedView, 0, len(cams))
	viewEntities := make([]common.Entity, 0, len(cams))
	for _, cam := range cams {
		v := cam.Extract(s.msaaSamples, visible)
		views = append(views, v)
		viewEntities = append(viewEntities, v.Entity)
	}
	s.phases.Prepare(viewEntities)

	// Queue each view on the pool. A WaitGroup provides per-frame barrier
	// sync since pool.Wait() blocks until workers idle-exit which is
	// unsuitable for frame-rate workloads.
	var wg sync.WaitGroup
	for i, v := range views {
		wg.Add(1)
		vCap := v
		s.queuePool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				s.queue2d.QueueView(vCap)
				return nil, nil
			},
		})
	}
	wg.Wait()

	s.phases.SortAll()
	return views
}

// prepareMaterials prepares every material added or replaced since the last
// frame, plus the ones whose earlier preparation hit a not-ready asset.
// Not-ready materials are queued for the next frame; hard failures are
// logged and dropped.
func (s *scene) prepareMaterials() {
	ids := s.materials.TakeChanged()

	s.mu.Lock()
	for id := range s.pending {
		ids = append(ids, id)
		delete(s.pending, id)
	}
	s.mu.Unlock()

	seen := make(map[common.AssetID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		mat, ok := s.materials.Get(id)
		if !ok {
			s.renderMaterials.Remove(id)
			continue
		}

		materialPipeline, err := s.pipelines.For(s.device, s.meshPipeline, s.library, mat)
		if err != nil {
			tessera.Logger().Error("material pipeline creation failed",
				"scene", s.name, "material", mat.Label(), "error", err)
			continue
		}

		prepared, err := material.PrepareMaterial2D(s.device, s.queue, mat, materialPipeline.MaterialLayout, s.images, s.fallback)
		if errors.Is(err, material.ErrRetryNextUpdate) {
			tessera.Logger().Debug("material not ready, retrying next frame",
				"scene", s.name, "material", mat.Label(), "asset", id)
			s.mu.Lock()
			s.pending[id] = true
			s.mu.Unlock()
			continue
		}
		if err != nil {
			tessera.Logger().Error("material preparation failed",
				"scene", s.name, "material", mat.Label(), "asset", id, "error", err)
			continue
		}
		s.renderMaterials.Insert(id, prepared)
	}
}

func (s *scene) OnShaderChanged(path string) {
	reloaded, err := s.library.Reload(path)
	if err != nil {
		tessera.Logger().Warn("shader reload failed",
			"scene", s.name, "path", path, "error", err)
		return
	}
	if !reloaded {
		return
	}
	// Every cached pipeline may have been compiled from the old source.
	s.pipelineCache.Clear()
	s.pipelines.Clear()
	tessera.Logger().Info("shader reloaded, pipelines invalidated",
		"scene", s.name, "path", path)
}
