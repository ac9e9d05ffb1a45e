package renderer

import "log/slog"

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPresentMode sets how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.presentMode = mode
	}
}

// WithMSAA sets the sample count of the main render pass. The default is MSAA4x.
//
// Parameters:
//   - count: MSAAOff or MSAA4x; higher counts only work on adapters that support them
//
// Returns:
//   - RendererBuilderOption: a function that applies the MSAA option to a renderer
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		if count == 0 {
			count = MSAAOff
		}
		r.msaa = count
	}
}

// WithForceSoftwareRenderer requests the fallback (CPU) adapter. A software Vulkan driver such as
// lavapipe or SwiftShader must be installed.
//
// Parameters:
//   - force: true to request the fallback adapter
//
// Returns:
//   - RendererBuilderOption: a function that applies the option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// WithLogger sets the logger used for adapter and surface diagnostics.
func WithLogger(logger *slog.Logger) RendererBuilderOption {
	return func(r *renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}
