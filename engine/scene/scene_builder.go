package scene

import (
	"github.com/tessera-engine/tessera/engine/renderer/phase"
)

// SceneBuilderOption is a functional option for configuring a Scene during construction.
type SceneBuilderOption func(*scene)

// WithMSAASamples sets the multisample count extracted views carry.
//
// Parameters:
//   - samples: the multisample count (1, 2, 4, or 8)
//
// Returns:
//   - SceneBuilderOption: functional option to set the sample count
func WithMSAASamples(samples uint32) SceneBuilderOption {
	return func(s *scene) {
		if samples > 0 {
			s.msaaSamples = samples
		}
	}
}

// WithQueueWorkers sets the number of workers queuing views in parallel.
//
// Parameters:
//   - workers: the worker count, must be positive
//
// Returns:
//   - SceneBuilderOption: functional option to set the worker count
func WithQueueWorkers(workers int) SceneBuilderOption {
	return func(s *scene) {
		if workers > 0 {
			s.queueWorkers = workers
		}
	}
}

// WithDrawFunctions sets the draw function ids queued phase items
// reference. The renderer registers the functions and passes their ids
// here.
//
// Parameters:
//   - opaque: the opaque phase draw function id
//   - transparent: the transparent phase draw function id
//
// Returns:
//   - SceneBuilderOption: functional option to set the draw function ids
func WithDrawFunctions(opaque, transparent phase.DrawFunctionID) SceneBuilderOption {
	return func(s *scene) {
		s.opaqueDraw = opaque
		s.transparentDraw = transparent
	}
}
