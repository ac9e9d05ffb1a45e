package material

import (
	"strconv"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-atlas/common"
	"github.com/Carmen-Shannon/oxy-atlas/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

// Binding indices of the atlas material group.
const (
	BindingTexture = 0
	BindingSampler = 1
	BindingParams  = 2
)

var materialCount atomic.Uint64

type material struct {
	name        string
	texture     common.TextureStagingData
	sampler     common.SamplerStagingData
	tint        [4]float32
	alphaCutoff float32
	ambient     float32
	doubleSided bool

	bindGroupProvider bind_group_provider.BindGroupProvider
}

// Material describes how the atlas quads are shaded: the sprite sheet texture, how it is sampled,
// and the constants of the MaterialParams uniform.
type Material interface {
	// Name returns the debug name of the material.
	Name() string

	// Texture returns the RGBA pixels uploaded at BindingTexture.
	Texture() common.TextureStagingData

	// Sampler returns the sampler configuration created at BindingSampler.
	Sampler() common.SamplerStagingData

	// DoubleSided reports whether quads are visible from behind.
	DoubleSided() bool

	// CullMode returns the face culling the pipeline must use for this material.
	//
	// Returns:
	//   - wgpu.CullMode: CullModeNone when double sided, CullModeBack otherwise
	CullMode() wgpu.CullMode

	// Params packs the uniform written at BindingParams.
	Params() GPUMaterialParams

	// BindGroupProvider returns the provider holding the texture, sampler and uniform.
	BindGroupProvider() bind_group_provider.BindGroupProvider
}

var _ Material = &material{}

// NewAtlasMaterial creates a double-sided, untinted material over an atlas texture.
//
// Parameters:
//   - texture: the staged sprite sheet
//   - options: material options
//
// Returns:
//   - Material: the material
func NewAtlasMaterial(texture common.TextureStagingData, options ...MaterialBuilderOption) Material {
	n := materialCount.Add(1) - 1
	m := &material{
		name:        "atlas_" + strconv.FormatUint(n, 10),
		texture:     texture,
		tint:        [4]float32{1, 1, 1, 1},
		alphaCutoff: 0.01,
		ambient:     0.3,
		doubleSided: true,
	}
	for _, opt := range options {
		opt(m)
	}
	m.bindGroupProvider = bind_group_provider.NewBindGroupProvider(m.name)
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) Texture() common.TextureStagingData {
	return m.texture
}

func (m *material) Sampler() common.SamplerStagingData {
	return m.sampler
}

func (m *material) DoubleSided() bool {
	return m.doubleSided
}

func (m *material) CullMode() wgpu.CullMode {
	if m.doubleSided {
		return wgpu.CullModeNone
	}
	return wgpu.CullModeBack
}

func (m *material) Params() GPUMaterialParams {
	return GPUMaterialParams{
		Tint:        m.tint,
		AlphaCutoff: m.alphaCutoff,
		Ambient:     m.ambient,
	}
}

func (m *material) BindGroupProvider() bind_group_provider.BindGroupProvider {
	return m.bindGroupProvider
}
