package engine

import (
	"time"

	"github.com/tessera-engine/tessera"
	"github.com/tessera-engine/tessera/engine/config"
	"github.com/tessera-engine/tessera/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the engine tick rate in ticks per second.
// The tick callback will be called at this rate for game logic updates.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target ticks per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.engineTickRate = time.Second / time.Duration(fps)
	}
}

// WithWindow sets a custom configured window for the engine to use rather than allowing the engine
// to create and manage one internally.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderSettings sets the render settings the engine builds its renderer
// and scenes from.
//
// Parameters:
//   - s: the settings to use
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderSettings(s config.RenderSettings) EngineBuilderOption {
	return func(e *engine) {
		e.settings = s
	}
}

// WithRenderSettingsFile loads render settings from a YAML file. A missing or
// invalid file is logged and the defaults kept.
//
// Parameters:
//   - path: the YAML settings file
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderSettingsFile(path string) EngineBuilderOption {
	return func(e *engine) {
		s, err := config.Load(path)
		if err != nil {
			tessera.Logger().Warn("render settings file not loaded, using defaults",
				"path", path, "error", err)
			return
		}
		e.settings = s
	}
}

// WithRenderFrameLimit sets an optional render frame rate cap in frames per second.
// Pass 0 to uncap the render loop (default).
//
// Parameters:
//   - fps: maximum render frames per second (0 = uncapped)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			e.renderFrameLimit = 0
			return
		}
		e.renderFrameLimit = time.Second / time.Duration(fps)
	}
}
