package scene

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-atlas/engine/camera"
	"github.com/Carmen-Shannon/oxy-atlas/engine/light"
	"github.com/Carmen-Shannon/oxy-atlas/engine/renderer"
	"github.com/Carmen-Shannon/oxy-atlas/engine/renderer/material"
)

// RuntimeBuilderOption is a functional option for configuring a Runtime.
type RuntimeBuilderOption func(rt *runtimeImpl)

// WithRendererFactory replaces the WebGPU renderer created by Mount.
//
// Parameters:
//   - factory: creates the renderer for the mounted window
//
// Returns:
//   - RuntimeBuilderOption: option function to apply
func WithRendererFactory(factory RendererFactory) RuntimeBuilderOption {
	return func(rt *runtimeImpl) {
		rt.rendererFactory = factory
	}
}

// WithRendererOptions passes options to the default WebGPU renderer.
//
// Parameters:
//   - options: renderer options such as present mode or MSAA
//
// Returns:
//   - RuntimeBuilderOption: option function to apply
func WithRendererOptions(options ...renderer.RendererBuilderOption) RuntimeBuilderOption {
	return func(rt *runtimeImpl) {
		rt.rendererOptions = append(rt.rendererOptions, options...)
	}
}

// WithFrameLimit caps the render loop at fps frames per second. Zero or less removes the cap
// and leaves pacing to the present mode.
//
// Parameters:
//   - fps: the maximum frame rate
//
// Returns:
//   - RuntimeBuilderOption: option function to apply
func WithFrameLimit(fps int) RuntimeBuilderOption {
	return func(rt *runtimeImpl) {
		if fps <= 0 {
			rt.frameLimit = 0
			return
		}
		rt.frameLimit = time.Second / time.Duration(fps)
	}
}

// WithProfiling enables the periodic frame time report.
//
// Parameters:
//   - enabled: whether frames are profiled
//
// Returns:
//   - RuntimeBuilderOption: option function to apply
func WithProfiling(enabled bool) RuntimeBuilderOption {
	return func(rt *runtimeImpl) {
		rt.profiling = enabled
	}
}

// WithLogger sets the logger of the runtime and its renderer.
func WithLogger(logger *slog.Logger) RuntimeBuilderOption {
	return func(rt *runtimeImpl) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

// WithFatalErrorCallback sets a function invoked on the render goroutine when a frame fails
// and the loop stops.
//
// Parameters:
//   - callback: receives the frame error
//
// Returns:
//   - RuntimeBuilderOption: option function to apply
func WithFatalErrorCallback(callback func(err error)) RuntimeBuilderOption {
	return func(rt *runtimeImpl) {
		rt.onFatal = callback
	}
}

// WithCameraOptions configures the camera created by Mount.
func WithCameraOptions(options ...camera.CameraBuilderOption) RuntimeBuilderOption {
	return func(rt *runtimeImpl) {
		rt.cameraOptions = append(rt.cameraOptions, options...)
	}
}

// WithControllerOptions configures the trackball created by Mount.
func WithControllerOptions(options ...camera.CameraControllerOption) RuntimeBuilderOption {
	return func(rt *runtimeImpl) {
		rt.controllerOptions = append(rt.controllerOptions, options...)
	}
}

// WithLightOptions configures the light created by Mount.
func WithLightOptions(options ...light.LightBuilderOption) RuntimeBuilderOption {
	return func(rt *runtimeImpl) {
		rt.lightOptions = append(rt.lightOptions, options...)
	}
}

// WithMaterialOptions configures every atlas material created by SetMesh.
func WithMaterialOptions(options ...material.MaterialBuilderOption) RuntimeBuilderOption {
	return func(rt *runtimeImpl) {
		rt.materialOptions = append(rt.materialOptions, options...)
	}
}
