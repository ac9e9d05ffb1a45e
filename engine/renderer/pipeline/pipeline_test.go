package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-atlas/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const source = `
struct Uniforms { tint: vec4<f32>, };
struct VertexInput { @location(0) position: vec3<f32>, };
@group(0) @binding(0) var<uniform> u: Uniforms;
@group(2) @binding(0) var tex: texture_2d<f32>;
@group(2) @binding(1) var samp: sampler;
@vertex fn vs(in: VertexInput) -> @builtin(position) vec4<f32> { return vec4<f32>(in.position, 1.0) * u.tint; }
@fragment fn fs() -> @location(0) vec4<f32> { return textureSample(tex, samp, vec2<f32>(0.0)); }
`

func shaders(t *testing.T) (shader.Shader, shader.Shader) {
	t.Helper()
	vs, err := shader.NewShader("vs", shader.ShaderTypeVertex, source)
	require.NoError(t, err)
	fs, err := shader.NewShader("fs", shader.ShaderTypeFragment, source)
	require.NoError(t, err)
	return vs, fs
}

func TestNewPipelineDefaults(t *testing.T) {
	p := NewPipeline("atlas")
	assert.Equal(t, "atlas", p.PipelineKey())
	assert.True(t, p.DepthTestEnabled())
	assert.True(t, p.DepthWriteEnabled())
	assert.Equal(t, wgpu.CullModeNone, p.CullMode())
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, p.Topology())
	assert.Nil(t, p.BlendState())
	assert.Nil(t, p.RenderPipeline())
	assert.ErrorIs(t, p.Validate(), ErrMissingShader)
}

func TestPipelineOptions(t *testing.T) {
	vs, fs := shaders(t)
	p := NewPipeline("atlas",
		WithVertexShader(vs),
		WithFragmentShader(fs),
		WithCullMode(wgpu.CullModeBack),
		WithDepthTestEnabled(false),
		WithAlphaBlending(),
	)
	require.NoError(t, p.Validate())
	assert.Same(t, vs, p.Shader(shader.ShaderTypeVertex))
	assert.Same(t, fs, p.Shader(shader.ShaderTypeFragment))
	assert.Equal(t, wgpu.CullModeBack, p.CullMode())
	assert.False(t, p.DepthWriteEnabled())
	require.NotNil(t, p.BlendState())
	assert.Equal(t, wgpu.BlendFactorSrcAlpha, p.BlendState().Color.SrcFactor)
}

func TestValidateNamesMissingStage(t *testing.T) {
	vs, _ := shaders(t)
	err := NewPipeline("half", WithVertexShader(vs)).Validate()
	assert.ErrorIs(t, err, ErrMissingShader)
	assert.ErrorContains(t, err, "fragment")
}

func TestBindGroupLayoutDescriptorsMergeVisibility(t *testing.T) {
	vs, fs := shaders(t)
	descs := NewPipeline("atlas", WithVertexShader(vs), WithFragmentShader(fs)).BindGroupLayoutDescriptors()
	require.Len(t, descs, 3)

	require.Len(t, descs[0].Entries, 1)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, descs[0].Entries[0].Visibility)
	assert.Equal(t, uint64(16), descs[0].Entries[0].Buffer.MinBindingSize)

	assert.Empty(t, descs[1].Entries, "undeclared groups are empty placeholders")

	require.Len(t, descs[2].Entries, 2)
	assert.Equal(t, uint32(0), descs[2].Entries[0].Binding)
	assert.Equal(t, uint32(1), descs[2].Entries[1].Binding)
	assert.Equal(t, "atlas_group_2", descs[2].Label)
}
