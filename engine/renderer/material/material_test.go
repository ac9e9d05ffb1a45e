package material

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-atlas/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAtlasMaterialDefaults(t *testing.T) {
	tex := common.TextureStagingData{Pixels: make([]byte, 16), Width: 2, Height: 2}
	m := NewAtlasMaterial(tex)

	assert.True(t, m.DoubleSided())
	assert.Equal(t, wgpu.CullModeNone, m.CullMode())
	assert.Equal(t, tex, m.Texture())
	assert.Equal(t, common.SamplerStagingData{}, m.Sampler())
	assert.Equal(t, m.Name(), m.BindGroupProvider().Label())
	assert.Equal(t, [4]float32{1, 1, 1, 1}, m.Params().Tint)
}

func TestMaterialOptions(t *testing.T) {
	m := NewAtlasMaterial(common.TextureStagingData{},
		WithName("sprites"),
		WithDoubleSided(false),
		WithAlphaCutoff(2),
		WithAmbient(-1),
		WithTint([4]float32{0.5, 0.5, 0.5, 1}),
		WithSampler(common.SamplerStagingData{MagFilter: wgpu.FilterModeNearest}),
	)
	assert.Equal(t, "sprites", m.BindGroupProvider().Label())
	assert.Equal(t, wgpu.CullModeBack, m.CullMode())
	assert.Equal(t, float32(1), m.Params().AlphaCutoff)
	assert.Zero(t, m.Params().Ambient)
	assert.Equal(t, wgpu.FilterModeNearest, m.Sampler().MagFilter)
}

func TestMaterialParamsMarshal(t *testing.T) {
	p := NewAtlasMaterial(common.TextureStagingData{}, WithAmbient(0.25)).Params()
	require.Equal(t, 32, p.Size())
	data := p.Marshal()
	require.Len(t, data, 32)
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(data[12:])))
	assert.Equal(t, float32(0.25), math.Float32frombits(binary.LittleEndian.Uint32(data[20:])))
	assert.Contains(t, GPUMaterialParamsSource, "alpha_cutoff")
}
