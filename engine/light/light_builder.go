package light

import "github.com/Carmen-Shannon/oxy-atlas/common"

// LightBuilderOption configures a point light during construction.
type LightBuilderOption func(*pointLightImpl)

// WithPosition sets the world-space position of the light.
//
// Parameters:
//   - p: the position
//
// Returns:
//   - LightBuilderOption: a function that applies the position to the light
func WithPosition(p common.Vec3) LightBuilderOption {
	return func(l *pointLightImpl) {
		l.position = p
	}
}

// WithColor sets the linear RGB color of the light.
//
// Parameters:
//   - c: the color, each channel in 0..1
//
// Returns:
//   - LightBuilderOption: a function that applies the color to the light
func WithColor(c common.Vec3) LightBuilderOption {
	return func(l *pointLightImpl) {
		l.color = c
	}
}

// WithIntensity sets the brightness multiplier. Negative values are clamped to zero.
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *pointLightImpl) {
		l.intensity = max(intensity, 0)
	}
}

// WithRange sets the falloff distance; zero leaves the light unattenuated.
func WithRange(lightRange float32) LightBuilderOption {
	return func(l *pointLightImpl) {
		l.lightRange = max(lightRange, 0)
	}
}
