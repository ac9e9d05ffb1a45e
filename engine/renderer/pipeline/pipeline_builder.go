package pipeline

import (
	"github.com/Carmen-Shannon/oxy-atlas/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineBuilderOption configures a Pipeline during construction.
type PipelineBuilderOption func(*pipeline)

// WithVertexShader sets the vertex stage.
//
// Parameters:
//   - s: a shader parsed as ShaderTypeVertex
//
// Returns:
//   - PipelineBuilderOption: a function that sets the vertex stage
func WithVertexShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.vertexShader = s
	}
}

// WithFragmentShader sets the fragment stage.
//
// Parameters:
//   - s: a shader parsed as ShaderTypeFragment
//
// Returns:
//   - PipelineBuilderOption: a function that sets the fragment stage
func WithFragmentShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) {
		p.fragmentShader = s
	}
}

// WithDepthTestEnabled toggles the depth test. Disabling it also disables depth writes.
func WithDepthTestEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthTestEnabled = enabled
		if !enabled {
			p.depthWriteEnabled = false
		}
	}
}

// WithDepthWriteEnabled toggles depth writes.
func WithDepthWriteEnabled(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) {
		p.depthWriteEnabled = enabled
	}
}

// WithCullMode sets which triangle faces are discarded.
//
// Parameters:
//   - mode: wgpu.CullModeNone draws both sides
//
// Returns:
//   - PipelineBuilderOption: a function that sets the cull mode
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) {
		p.cullMode = mode
	}
}

// WithTopology sets the primitive topology.
func WithTopology(topology wgpu.PrimitiveTopology) PipelineBuilderOption {
	return func(p *pipeline) {
		p.topology = topology
	}
}

// WithFrontFace sets the winding order treated as front facing.
func WithFrontFace(frontFace wgpu.FrontFace) PipelineBuilderOption {
	return func(p *pipeline) {
		p.frontFace = frontFace
	}
}

// WithWriteMask sets the color channels written by the fragment stage.
func WithWriteMask(writeMask wgpu.ColorWriteMask) PipelineBuilderOption {
	return func(p *pipeline) {
		p.writeMask = writeMask
	}
}

// WithAlphaBlending enables standard source-over alpha blending.
//
// Returns:
//   - PipelineBuilderOption: a function that sets the blend state
func WithAlphaBlending() PipelineBuilderOption {
	return func(p *pipeline) {
		p.blendState = &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		}
	}
}
