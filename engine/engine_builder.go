package engine

import (
	"log/slog"
	"slices"
	"time"

	"github.com/Carmen-Shannon/oxy-atlas/engine/scene"
	"github.com/Carmen-Shannon/oxy-atlas/engine/visualizer"
	"github.com/Carmen-Shannon/oxy-atlas/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithTickRate sets the input tick rate in ticks per second.
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
		e.engineTickRate = time.Duration(float64(time.Second) / fps)
	}
}

// WithWindow sets the window the engine pumps and renders into.
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

// WithDataSource sets where datasets are fetched from, usually a loader.Loader.
//
// Parameters:
//   - source: the coordinate and atlas source
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithDataSource(source visualizer.DataSource) EngineBuilderOption {
	return func(e *engine) {
		e.source = source
	}
}

// WithRuntime uses a pre-built scene runtime instead of creating one.
// Runtime options are ignored when it is set.
func WithRuntime(rt scene.Runtime) EngineBuilderOption {
	return func(e *engine) {
		e.runtime = rt
	}
}

// WithRuntimeOptions configures the scene runtime created by NewEngine.
//
// Parameters:
//   - options: scene runtime options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRuntimeOptions(options ...scene.RuntimeBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.runtimeOptions = append(e.runtimeOptions, options...)
	}
}

// WithVisualizerOptions configures the visualizer created by NewEngine.
//
// Parameters:
//   - options: visualizer options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithVisualizerOptions(options ...visualizer.VisualizerBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.visualizerOptions = append(e.visualizerOptions, options...)
	}
}

// WithDatasets sets the names cycled by the N and P keys. The first one is shown at startup
// unless WithInitialDataset names another.
func WithDatasets(names ...string) EngineBuilderOption {
	return func(e *engine) {
		e.datasets = slices.Clone(names)
	}
}

// WithInitialDataset sets the dataset selected when Run starts.
func WithInitialDataset(name string) EngineBuilderOption {
	return func(e *engine) {
		e.initialDataset = name
	}
}

// WithLogger sets the logger shared by the engine, runtime and visualizer.
func WithLogger(logger *slog.Logger) EngineBuilderOption {
	return func(e *engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}
