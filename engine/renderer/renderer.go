// Package renderer owns the GPU device and swapchain and turns queued render
// phases into encoded GPU work. Each frame it assigns every queued draw a
// contiguous instance range, uploads view uniforms and instance transforms in
// phase order, and executes each view's opaque bins and sorted transparent
// items through the registered draw functions.
package renderer

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/tessera-engine/tessera"
	"github.com/tessera-engine/tessera/common"
	"github.com/tessera-engine/tessera/engine/camera"
	"github.com/tessera-engine/tessera/engine/mesh"
	"github.com/tessera-engine/tessera/engine/renderer/binding"
	"github.com/tessera-engine/tessera/engine/renderer/material"
	"github.com/tessera-engine/tessera/engine/renderer/phase"
	"github.com/tessera-engine/tessera/engine/renderer/pipeline"
	"github.com/tessera-engine/tessera/engine/renderer/texture"
	"github.com/tessera-engine/tessera/engine/view"
	"github.com/tessera-engine/tessera/engine/window"
)

// matrixSize is the byte size of one mat4x4<f32> instance transform.
const matrixSize = 64

// minInstanceCapacity is the smallest per-view instance buffer, in instances.
const minInstanceCapacity = 64

// viewTarget holds the per-view GPU state the renderer uploads each frame:
// the group 0 view uniform and the group 1 instance transform storage.
type viewTarget struct {
	uniform binding.Provider

	instanceBuffer    *wgpu.Buffer
	instanceBindGroup *wgpu.BindGroup
	instanceCapacity  int
}

func (t *viewTarget) release() {
	if t.instanceBindGroup != nil {
		t.instanceBindGroup.Release()
		t.instanceBindGroup = nil
	}
	if t.instanceBuffer != nil {
		t.instanceBuffer.Release()
		t.instanceBuffer = nil
	}
	if t.uniform != nil {
		t.uniform.Release()
		t.uniform = nil
	}
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend

	viewLayout *wgpu.BindGroupLayout
	meshLayout *wgpu.BindGroupLayout

	meshPipeline *pipeline.Mesh2DPipeline
	fallback     *texture.FallbackImage

	drawFunctions   *phase.DrawFunctions
	opaqueDraw      phase.DrawFunctionID
	transparentDraw phase.DrawFunctionID
	draw2d          *material.Draw2D

	targets map[common.Entity]*viewTarget

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
	pendingClearColor    *wgpu.Color
}

// Renderer defines the interface for the rendering system.
//
// The Renderer owns the GPU device, the swapchain, and the per-view GPU state
// (view uniform and instance transform storage). It registers the draw
// functions queued phase items reference and executes the phases each frame.
// The Renderer also implements a backend which allows for multiple backend API
// implementations to exist.
type Renderer interface {
	// Device returns the GPU device.
	//
	// Returns:
	//   - *wgpu.Device: the device
	Device() *wgpu.Device

	// Queue returns the GPU queue.
	//
	// Returns:
	//   - *wgpu.Queue: the queue
	Queue() *wgpu.Queue

	// SurfaceFormat returns the configured swapchain texture format.
	//
	// Returns:
	//   - wgpu.TextureFormat: the swapchain format
	SurfaceFormat() wgpu.TextureFormat

	// MeshPipeline returns the base 2D mesh pipeline that material pipelines
	// extend. Its view and mesh bind group layouts are owned by the renderer.
	//
	// Returns:
	//   - *pipeline.Mesh2DPipeline: the base pipeline
	MeshPipeline() *pipeline.Mesh2DPipeline

	// FallbackImage returns the 1x1 white image bound to unset material
	// texture slots.
	//
	// Returns:
	//   - *texture.FallbackImage: the fallback image
	FallbackImage() *texture.FallbackImage

	// DrawFunctions returns the draw function registry.
	//
	// Returns:
	//   - *phase.DrawFunctions: the registry
	DrawFunctions() *phase.DrawFunctions

	// OpaqueDrawFunction returns the id of the registered opaque 2D draw
	// function.
	//
	// Returns:
	//   - phase.DrawFunctionID: the opaque draw function id
	OpaqueDrawFunction() phase.DrawFunctionID

	// TransparentDrawFunction returns the id of the registered transparent
	// 2D draw function.
	//
	// Returns:
	//   - phase.DrawFunctionID: the transparent draw function id
	TransparentDrawFunction() phase.DrawFunctionID

	// MSAASamples returns the sample count render pipelines must be
	// specialized for.
	//
	// Returns:
	//   - uint32: the sample count
	MSAASamples() uint32

	// SetFrameSources attaches the mesh table and per-frame mesh instance
	// map the draw functions read. Must be called before RenderFrame.
	//
	// Parameters:
	//   - meshes: the GPU mesh table
	//   - instances: the per-frame mesh instance map
	SetFrameSources(meshes *mesh.RenderMeshes, instances mesh.RenderMesh2DInstances)

	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window or when the surface size should change.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	// A call to Resize is required after changing this for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// RenderFrame encodes and submits one frame: it uploads each view's
	// uniform and instance transforms in phase order, then executes every
	// view's opaque bins and sorted transparent items through the registered
	// draw functions, and presents the surface.
	//
	// Parameters:
	//   - views: the views extracted this frame
	//   - phases: the queued and sorted render phases
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	RenderFrame(views []*view.ExtractedView, phases *phase.ViewPhases) error
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer instance with the specified backend type, drawing to the
// given window's surface. It creates the view and mesh bind group layouts, the base 2D mesh
// pipeline, the fallback image, and registers the 2D draw functions.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - win: the window providing the platform-specific surface descriptor
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:            &sync.Mutex{},
		backendType:   backendType,
		drawFunctions: phase.NewDrawFunctions(),
		targets:       make(map[common.Entity]*viewTarget),
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	msaa := MSAA4x // default
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}
	clearColor := wgpu.Color{R: 0.1, G: 0.1, B: 0.1, A: 1.0}
	if r.pendingClearColor != nil {
		clearColor = *r.pendingClearColor
	}

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend = newWGPURendererBackend(win.SurfaceDescriptor(), r.forceFallbackAdapter, msaa, clearColor)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	r.backend.ConfigureSurface(win.Width(), win.Height())

	dev := r.backend.Device()

	viewLayout, err := dev.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "View Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			func() wgpu.BindGroupLayoutEntry {
				e := wgpu.BindGroupLayoutEntry{
					Binding:    0,
					Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				}
				e.Buffer.Type = wgpu.BufferBindingTypeUniform
				e.Buffer.MinBindingSize = matrixSize
				return e
			}(),
		},
	})
	if err != nil {
		panic(err)
	}
	r.viewLayout = viewLayout

	meshLayout, err := dev.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Mesh Instance Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			func() wgpu.BindGroupLayoutEntry {
				e := wgpu.BindGroupLayoutEntry{
					Binding:    0,
					Visibility: wgpu.ShaderStageVertex,
				}
				e.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
				return e
			}(),
		},
	})
	if err != nil {
		panic(err)
	}
	r.meshLayout = meshLayout

	r.meshPipeline = pipeline.NewMesh2DPipeline(viewLayout, meshLayout, r.backend.SurfaceFormat())

	fallback, err := texture.NewFallbackImage(dev, r.backend.Queue())
	if err != nil {
		panic(err)
	}
	r.fallback = fallback

	// The draw2d frame sources are attached later via SetFrameSources; the
	// registered closures dereference the struct at encode time.
	r.draw2d = &material.Draw2D{
		ViewBindGroup: r.viewBindGroup,
		MeshBindGroup: r.meshBindGroup,
	}
	r.opaqueDraw, err = r.drawFunctions.Register("opaque_mesh2d", r.draw2d.Draw)
	if err != nil {
		panic(err)
	}
	r.transparentDraw, err = r.drawFunctions.Register("transparent_mesh2d", r.draw2d.Draw)
	if err != nil {
		panic(err)
	}

	return r
}

func (r *renderer) Device() *wgpu.Device {
	return r.backend.Device()
}

func (r *renderer) Queue() *wgpu.Queue {
	return r.backend.Queue()
}

func (r *renderer) SurfaceFormat() wgpu.TextureFormat {
	return r.backend.SurfaceFormat()
}

func (r *renderer) MeshPipeline() *pipeline.Mesh2DPipeline {
	return r.meshPipeline
}

func (r *renderer) FallbackImage() *texture.FallbackImage {
	return r.fallback
}

func (r *renderer) DrawFunctions() *phase.DrawFunctions {
	return r.drawFunctions
}

func (r *renderer) OpaqueDrawFunction() phase.DrawFunctionID {
	return r.opaqueDraw
}

func (r *renderer) TransparentDrawFunction() phase.DrawFunctionID {
	return r.transparentDraw
}

func (r *renderer) MSAASamples() uint32 {
	if r.pendingMSAA != nil {
		return uint32(*r.pendingMSAA)
	}
	return uint32(MSAA4x)
}

func (r *renderer) SetFrameSources(meshes *mesh.RenderMeshes, instances mesh.RenderMesh2DInstances) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.draw2d.Meshes = meshes
	r.draw2d.MeshInstances = instances
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) RenderFrame(views []*view.ExtractedView, phases *phase.ViewPhases) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.draw2d.Meshes == nil {
		return fmt.Errorf("renderer: frame sources not set, call SetFrameSources first")
	}

	type viewWork struct {
		view  *view.ExtractedView
		draws []gatheredDraw
	}

	live := make(map[common.Entity]bool, len(views))
	var ldr, hdr []viewWork

	for _, v := range views {
		live[v.Entity] = true

		var draws []gatheredDraw
		var instanceData []byte
		opaque, ok := phases.Opaque(v.Entity)
		if ok {
			transparent, _ := phases.Transparent(v.Entity)
			draws, instanceData = gatherViewDraws(opaque, transparent, r.draw2d.MeshInstances)
		}

		target, err := r.ensureViewTarget(v.Entity)
		if err != nil {
			return err
		}

		uniform := camera.GPUViewUniform{ViewProj: v.ViewProj}
		if err := r.backend.Queue().WriteBuffer(target.uniform.Buffer(0), 0, uniform.Marshal()); err != nil {
			return err
		}

		if err := r.ensureInstanceCapacity(target, len(instanceData)/matrixSize); err != nil {
			return err
		}
		if len(instanceData) > 0 {
			if err := r.backend.Queue().WriteBuffer(target.instanceBuffer, 0, instanceData); err != nil {
				return err
			}
		}

		work := viewWork{view: v, draws: draws}
		if v.HDR {
			hdr = append(hdr, work)
		} else {
			ldr = append(ldr, work)
		}
	}

	// Drop GPU state for views that stopped rendering.
	for entity, target := range r.targets {
		if !live[entity] {
			target.release()
			delete(r.targets, entity)
		}
	}

	if err := r.backend.BeginFrame(); err != nil {
		return err
	}

	// The main pass always runs so the surface clears even on empty frames.
	pass := r.backend.BeginMainPass()
	for _, w := range ldr {
		r.encodeView(pass, w.view.Entity, w.draws)
	}
	r.backend.EndPass()

	if len(hdr) > 0 {
		pass = r.backend.BeginHDRPass()
		for _, w := range hdr {
			r.encodeView(pass, w.view.Entity, w.draws)
		}
		r.backend.EndPass()
	}

	r.backend.EndFrame()
	r.backend.Present()
	return nil
}

// encodeView dispatches a view's gathered draws to their draw functions. A
// failed draw is logged and skipped so one bad entity never drops the frame.
func (r *renderer) encodeView(pass phase.RenderPass, viewEntity common.Entity, draws []gatheredDraw) {
	for _, d := range draws {
		fn := r.drawFunctions.Get(d.fn)
		if fn == nil {
			tessera.Logger().Error("unknown draw function id", "view", viewEntity, "id", d.fn)
			continue
		}
		if err := fn(pass, viewEntity, d.call); err != nil {
			tessera.Logger().Error("draw failed", "view", viewEntity, "error", err)
		}
	}
}

func (r *renderer) viewBindGroup(viewEntity common.Entity) *wgpu.BindGroup {
	if target, ok := r.targets[viewEntity]; ok {
		return target.uniform.BindGroup()
	}
	return nil
}

func (r *renderer) meshBindGroup(viewEntity common.Entity) *wgpu.BindGroup {
	if target, ok := r.targets[viewEntity]; ok {
		return target.instanceBindGroup
	}
	return nil
}

// ensureViewTarget creates the view's uniform buffer and bind group on first
// use.
func (r *renderer) ensureViewTarget(viewEntity common.Entity) (*viewTarget, error) {
	if target, ok := r.targets[viewEntity]; ok {
		return target, nil
	}

	dev := r.backend.Device()
	provider := binding.NewProvider(fmt.Sprintf("view_%d", viewEntity))

	buf, err := dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: provider.Label() + " Uniform Buffer",
		Size:  matrixSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	provider.SetBuffer(0, buf)

	bindGroup, err := dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  provider.Label() + " Bind Group",
		Layout: r.viewLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: buf, Size: matrixSize},
		},
	})
	if err != nil {
		provider.Release()
		return nil, err
	}
	provider.SetBindGroup(bindGroup)

	target := &viewTarget{uniform: provider}
	r.targets[viewEntity] = target
	return target, nil
}

// ensureInstanceCapacity grows a view's instance storage buffer to hold at
// least count transforms, recreating its bind group when the buffer moves.
func (r *renderer) ensureInstanceCapacity(target *viewTarget, count int) error {
	if target.instanceBindGroup != nil && target.instanceCapacity >= count {
		return nil
	}

	capacity := minInstanceCapacity
	for capacity < count {
		capacity <<= 1
	}

	if target.instanceBindGroup != nil {
		target.instanceBindGroup.Release()
		target.instanceBindGroup = nil
	}
	if target.instanceBuffer != nil {
		target.instanceBuffer.Release()
		target.instanceBuffer = nil
	}

	dev := r.backend.Device()
	buf, err := dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Instance Transform Buffer",
		Size:  uint64(capacity) * matrixSize,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}

	bindGroup, err := dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Instance Transform Bind Group",
		Layout: r.meshLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: buf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		buf.Release()
		return err
	}

	target.instanceBuffer = buf
	target.instanceBindGroup = bindGroup
	target.instanceCapacity = capacity
	return nil
}

// gatheredDraw is one phase item resolved to a concrete draw call with its
// assigned instance range.
type gatheredDraw struct {
	fn   phase.DrawFunctionID
	call phase.DrawCall
}

// gatherViewDraws walks a view's phases in draw order, assigns every queued
// entity a contiguous slot in the instance transform buffer, and returns the
// draw calls alongside the packed transform bytes. Opaque bins come first so
// transparency blends over resolved opaque color; transparent items follow in
// sorted back-to-front order.
func gatherViewDraws(opaque *phase.Opaque2D, transparent *phase.Transparent2D, instances mesh.RenderMesh2DInstances) ([]gatheredDraw, []byte) {
	var draws []gatheredDraw
	var data []byte
	var offset uint32

	appendTransform := func(entity common.Entity) {
		transform := common.IdentityTransform2D()
		if instance, ok := instances.Get(entity); ok {
			transform = instance.Transform
		}
		data = appendMatrix(data, modelMatrix(transform))
		offset++
	}

	opaque.Each(func(key phase.Opaque2DBinKey, entities []common.Entity, batchable bool) {
		start := offset
		for _, entity := range entities {
			appendTransform(entity)
		}
		draws = append(draws, gatheredDraw{
			fn: key.DrawFunction,
			call: phase.DrawCall{
				Pipeline:          key.Pipeline,
				MaterialBindGroup: key.MaterialBindGroup,
				MeshAssetID:       key.MeshAssetID,
				Entities:          entities,
				Batchable:         batchable,
				BatchRange:        [2]uint32{start, offset},
			},
		})
	})

	if transparent != nil {
		for _, item := range transparent.Items() {
			start := offset
			appendTransform(item.Entity)
			draws = append(draws, gatheredDraw{
				fn: item.DrawFunction,
				call: phase.DrawCall{
					Pipeline:   item.Pipeline,
					Entities:   []common.Entity{item.Entity},
					Batchable:  true,
					BatchRange: [2]uint32{start, offset},
				},
			})
		}
	}

	return draws, data
}

// modelMatrix builds the column-major world matrix for a 2D transform:
// scale, then rotation around Z, then translation.
func modelMatrix(t common.Transform2D) [16]float32 {
	c := float32(math.Cos(float64(t.Rotation)))
	s := float32(math.Sin(float64(t.Rotation)))
	sx, sy := t.Scale[0], t.Scale[1]

	return [16]float32{
		c * sx, s * sx, 0, 0,
		-s * sy, c * sy, 0, 0,
		0, 0, 1, 0,
		t.Translation[0], t.Translation[1], t.Translation[2], 1,
	}
}

// appendMatrix appends a matrix to a byte buffer in GPU (little-endian) order.
func appendMatrix(data []byte, m [16]float32) []byte {
	var buf [matrixSize]byte
	for i, f := range m {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return append(data, buf[:]...)
}
