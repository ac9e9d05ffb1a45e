package visualizer

import (
	"log/slog"
	"time"
)

// VisualizerBuilderOption is a functional option for configuring a Visualizer.
type VisualizerBuilderOption func(v *visualizer)

// WithStateCallback sets a function invoked after every state change. It runs on the goroutine
// that caused the change and must not block.
//
// Parameters:
//   - callback: receives each transition
//
// Returns:
//   - VisualizerBuilderOption: option function to apply
func WithStateCallback(callback func(Transition)) VisualizerBuilderOption {
	return func(v *visualizer) {
		v.onState = callback
	}
}

// WithLoadTimeout bounds how long a selection may spend fetching. Zero disables the bound.
//
// Parameters:
//   - d: the timeout covering both fetches
//
// Returns:
//   - VisualizerBuilderOption: option function to apply
func WithLoadTimeout(d time.Duration) VisualizerBuilderOption {
	return func(v *visualizer) {
		v.loadTimeout = max(d, 0)
	}
}

// WithTileEdge sets the pixel edge of the square sprite sheet tiles.
func WithTileEdge(px int) VisualizerBuilderOption {
	return func(v *visualizer) {
		if px > 0 {
			v.tileEdge = px
		}
	}
}

// WithWorkers sets the size of the load worker pool.
func WithWorkers(n int) VisualizerBuilderOption {
	return func(v *visualizer) {
		if n > 0 {
			v.workers = n
		}
	}
}

// WithLogger sets the logger of the visualizer.
func WithLogger(logger *slog.Logger) VisualizerBuilderOption {
	return func(v *visualizer) {
		if logger != nil {
			v.logger = logger
		}
	}
}
