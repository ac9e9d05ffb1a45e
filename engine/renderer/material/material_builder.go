package material

import (
	"github.com/Carmen-Shannon/oxy-atlas/common"
)

// MaterialBuilderOption is a functional option applied during NewAtlasMaterial.
type MaterialBuilderOption func(*material)

// WithName sets the debug name, also used as the bind group provider label.
//
// Parameters:
//   - name: the material name
//
// Returns:
//   - MaterialBuilderOption: a function that sets the name
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		if name != "" {
			m.name = name
		}
	}
}

// WithTint sets the RGBA color multiplied into every texel.
func WithTint(tint [4]float32) MaterialBuilderOption {
	return func(m *material) {
		m.tint = tint
	}
}

// WithAlphaCutoff sets the alpha below which texels are discarded, clamped to 0..1.
func WithAlphaCutoff(cutoff float32) MaterialBuilderOption {
	return func(m *material) {
		m.alphaCutoff = common.Clamp(cutoff, 0, 1)
	}
}

// WithAmbient sets the light floor, clamped to 0..1.
func WithAmbient(ambient float32) MaterialBuilderOption {
	return func(m *material) {
		m.ambient = common.Clamp(ambient, 0, 1)
	}
}

// WithDoubleSided toggles back-face visibility.
//
// Parameters:
//   - doubleSided: true to draw both faces of every quad
//
// Returns:
//   - MaterialBuilderOption: a function that sets the flag
func WithDoubleSided(doubleSided bool) MaterialBuilderOption {
	return func(m *material) {
		m.doubleSided = doubleSided
	}
}

// WithSampler overrides the sampler configuration. Zero fields keep the renderer defaults.
func WithSampler(s common.SamplerStagingData) MaterialBuilderOption {
	return func(m *material) {
		m.sampler = s
	}
}
