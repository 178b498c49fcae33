// Package engine wires the window, renderer, scenes, and shader hot-reload
// watcher into a running application: a fixed-rate tick loop for game logic
// and a render loop that runs the current scene's frame flow and hands the
// resulting phases to the renderer.
package engine

import (
	"sync"
	"time"

	"github.com/tessera-engine/tessera"
	"github.com/tessera-engine/tessera/engine/camera"
	"github.com/tessera-engine/tessera/engine/config"
	"github.com/tessera-engine/tessera/engine/profiler"
	"github.com/tessera-engine/tessera/engine/renderer"
	"github.com/tessera-engine/tessera/engine/renderer/shader"
	"github.com/tessera-engine/tessera/engine/scene"
	"github.com/tessera-engine/tessera/engine/view"
	"github.com/tessera-engine/tessera/engine/window"
)

// engine implements the Engine interface.
// Coordinates the tick, render, and window threads.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window   window.Window
	renderer renderer.Renderer
	settings config.RenderSettings
	watcher  *shader.Watcher

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)
	renderCallback func(deltaTime float32)

	sceneMu sync.Mutex
	scenes  map[string]scene.Scene
	current string

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// Engine is the main entry point for the engine.
// It orchestrates the tick loop, render loop, and window management.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the engine's renderer.
	//
	// Returns:
	//   - renderer.Renderer: the renderer instance
	Renderer() renderer.Renderer

	// Settings returns the render settings the engine was built with.
	//
	// Returns:
	//   - config.RenderSettings: the active settings
	Settings() config.RenderSettings

	// NewScene creates a scene wired to the engine's renderer and registers
	// it under its name. The first scene created becomes the current scene.
	//
	// Parameters:
	//   - name: the scene name, used as the registry key
	//   - options: functional options to further configure the scene
	//
	// Returns:
	//   - scene.Scene: the newly created scene
	NewScene(name string, options ...scene.SceneBuilderOption) scene.Scene

	// Scene retrieves a registered scene by name. Returns nil if no scene
	// exists under that name.
	//
	// Parameters:
	//   - name: the scene name
	//
	// Returns:
	//   - scene.Scene: the scene, or nil if not found
	Scene(name string) scene.Scene

	// SetCurrentScene switches which scene the render loop runs. Unknown
	// names are ignored.
	//
	// Parameters:
	//   - name: the name of the scene to switch to
	SetCurrentScene(name string)

	// CurrentScene returns the scene the render loop is running, or nil.
	//
	// Returns:
	//   - scene.Scene: the current scene
	CurrentScene() scene.Scene

	// CameraOptions returns the camera builder options derived from the
	// engine's render settings: HDR, tonemapping, and deband dithering.
	// Append scene-specific options after them.
	//
	// Returns:
	//   - []camera.Camera2DBuilderOption: the derived options
	CameraOptions() []camera.Camera2DBuilderOption

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	// The tick callback will be called at this rate for game logic updates.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for game logic, physics, input processing, and animation updates.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderCallback registers the function called each render frame,
	// after the current scene has been rendered.
	//
	// Parameters:
	//   - callback: function to call each render frame, receiving the delta time in seconds
	SetRenderCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run starts the main engine loop (blocks until window closes).
	Run()

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options. It
// creates the window (unless one is supplied), the renderer configured from
// the render settings, and the shader hot-reload watcher when enabled.
//
// Parameters:
//   - options: functional options for engine configuration (window, settings, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		scenes:          make(map[string]scene.Scene),
		profiler:        profiler.NewProfiler(),
		settings:        config.Default(),
		engineTickRate:  time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window == nil {
		e.window = window.NewWindow()
	}

	rendererOptions := []renderer.RendererBuilderOption{
		renderer.WithMSAA(renderer.MSAASampleCount(e.settings.MSAASamples)),
	}
	if e.settings.PresentMode == "vsync" {
		rendererOptions = append(rendererOptions, renderer.WithPresentMode(renderer.PresentModeVSync))
	} else {
		rendererOptions = append(rendererOptions, renderer.WithPresentMode(renderer.PresentModeUncapped))
	}
	e.renderer = renderer.NewRenderer(renderer.BackendTypeWGPU, e.window, rendererOptions...)

	e.window.SetResizeCallback(func(width, height int) {
		e.renderer.Resize(width, height)
		e.sceneMu.Lock()
		defer e.sceneMu.Unlock()
		for _, s := range e.scenes {
			for _, cam := range s.Cameras() {
				cam.SetViewport(float32(width), float32(height))
			}
		}
	})

	if e.settings.WatchShaders && len(e.settings.ShaderDirs) > 0 {
		w, err := shader.NewWatcher(e.settings.ShaderDirs...)
		if err != nil {
			tessera.Logger().Warn("shader watcher disabled", "error", err)
		} else {
			e.watcher = w
		}
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Settings() config.RenderSettings {
	return e.settings
}

func (e *engine) NewScene(name string, options ...scene.SceneBuilderOption) scene.Scene {
	baseOptions := []scene.SceneBuilderOption{
		scene.WithMSAASamples(e.settings.MSAASamples),
		scene.WithQueueWorkers(e.settings.QueueWorkers),
		scene.WithDrawFunctions(e.renderer.OpaqueDrawFunction(), e.renderer.TransparentDrawFunction()),
	}
	s := scene.NewScene(name,
		e.renderer.Device(),
		e.renderer.Queue(),
		e.renderer.MeshPipeline(),
		e.renderer.FallbackImage(),
		append(baseOptions, options...)...,
	)

	e.sceneMu.Lock()
	defer e.sceneMu.Unlock()
	e.scenes[name] = s
	if e.current == "" {
		e.current = name
	}
	return s
}

func (e *engine) Scene(name string) scene.Scene {
	e.sceneMu.Lock()
	defer e.sceneMu.Unlock()
	return e.scenes[name]
}

func (e *engine) SetCurrentScene(name string) {
	e.sceneMu.Lock()
	defer e.sceneMu.Unlock()
	if _, ok := e.scenes[name]; ok {
		e.current = name
	}
}

func (e *engine) CurrentScene() scene.Scene {
	e.sceneMu.Lock()
	defer e.sceneMu.Unlock()
	return e.scenes[e.current]
}

func (e *engine) CameraOptions() []camera.Camera2DBuilderOption {
	options := []camera.Camera2DBuilderOption{
		camera.WithViewport(float32(e.window.Width()), float32(e.window.Height())),
	}
	if e.settings.HDR {
		options = append(options, camera.WithHDR())
	}
	if t, ok := view.ParseTonemapping(e.settings.Tonemapping); ok && t != view.TonemappingNone {
		options = append(options, camera.WithTonemapping(t))
	}
	if e.settings.DebandDither {
		options = append(options, camera.WithDebandDither(view.DebandDitherEnabled))
	}
	return options
}

func (e *engine) Run() {
	e.running = true
	e.handle()
	e.window.ProcessMessages()
	e.signalQuit()
	e.wg.Wait()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
		if e.watcher != nil {
			_ = e.watcher.Close()
		}
	})
}

// handle launches the tick, render, and shader-reload goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleTick()
	go e.handleRender()
	if e.watcher != nil {
		e.wg.Add(1)
		go e.handleShaderReload()
	}
}

// handleTick runs the fixed-rate engine tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for dynamic
// rate changes via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleTick() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own
// goroutine. Each iteration runs the current scene's frame flow (prepare,
// extract, queue, sort) and hands the resulting phases to the renderer.
// Recovers from panics to avoid crashing the process and signals quit on recovery.
func (e *engine) handleRender() {
	defer e.wg.Done()
	// Recover from panics inside the render goroutine to avoid crashing the whole process.
	defer func() {
		if r := recover(); r != nil {
			tessera.Logger().Error("render goroutine recovered from panic", "panic", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			if s := e.CurrentScene(); s != nil {
				e.renderer.SetFrameSources(s.Meshes(), s.MeshInstances())

				updateStart := time.Now()
				views := s.RunFrame()
				updateDuration := time.Since(updateStart)

				renderStart := time.Now()
				if err := e.renderer.RenderFrame(views, s.Phases()); err != nil {
					tessera.Logger().Error("frame render failed", "scene", s.Name(), "error", err)
				}

				if e.profilingEnabled {
					e.profiler.Observe("update", updateDuration)
					e.profiler.Observe("render", time.Since(renderStart))
				}
			}

			if e.renderCallback != nil {
				e.renderCallback(dt)
			}

			if e.profilingEnabled && e.profiler != nil {
				e.profiler.Tick()
			}

			// Frame rate limiting
			if e.renderFrameLimit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := e.renderFrameLimit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			}
		}
	}
}

// handleShaderReload forwards watcher events to every scene so changed WGSL
// sources are reloaded and their pipelines rebuilt.
func (e *engine) handleShaderReload() {
	defer e.wg.Done()
	for {
		select {
		case <-e.quitChannel:
			return
		case path, ok := <-e.watcher.Events:
			if !ok {
				return
			}
			e.sceneMu.Lock()
			scenes := make([]scene.Scene, 0, len(e.scenes))
			for _, s := range e.scenes {
				scenes = append(scenes, s)
			}
			e.sceneMu.Unlock()
			for _, s := range scenes {
				s.OnShaderChanged(path)
			}
		case err, ok := <-e.watcher.Errors:
			if !ok {
				return
			}
			tessera.Logger().Warn("shader watcher error", "error", err)
		}
	}
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if e.running {
		// Send to channel for immediate update in running engine loop
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			// Channel has a pending update, drain and send new value
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		// Engine not running, just update the field
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderCallback registers the function called each render frame.
func (e *engine) SetRenderCallback(callback func(deltaTime float32)) {
	e.renderCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}
