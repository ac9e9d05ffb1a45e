package pipeline

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-atlas/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrMissingShader is returned by Validate when a stage has no shader.
var ErrMissingShader = errors.New("pipeline: missing shader")

type pipeline struct {
	pipelineKey string

	vertexShader, fragmentShader shader.Shader

	renderPipeline *wgpu.RenderPipeline

	depthTestEnabled  bool
	depthWriteEnabled bool
	cullMode          wgpu.CullMode
	topology          wgpu.PrimitiveTopology
	frontFace         wgpu.FrontFace
	writeMask         wgpu.ColorWriteMask
	blendState        *wgpu.BlendState
}

// Pipeline is the configuration of one render pipeline together with the GPU object the
// Renderer builds from it.
type Pipeline interface {
	// PipelineKey returns the key the pipeline is registered and drawn under.
	PipelineKey() string

	// Shader returns the shader for a stage, or nil.
	//
	// Parameters:
	//   - shaderType: the stage
	//
	// Returns:
	//   - shader.Shader: the stage shader or nil
	Shader(shaderType shader.ShaderType) shader.Shader

	// Validate reports whether the pipeline is complete enough to be created on the GPU.
	//
	// Returns:
	//   - error: wraps ErrMissingShader when a stage is missing
	Validate() error

	// BindGroupLayoutDescriptors merges the groups declared by both stages. An entry declared
	// by both stages is visible to both.
	//
	// Returns:
	//   - []wgpu.BindGroupLayoutDescriptor: descriptors indexed by @group, gaps filled with empty layouts
	BindGroupLayoutDescriptors() []wgpu.BindGroupLayoutDescriptor

	// RenderPipeline returns the GPU pipeline, or nil before the Renderer registers it.
	RenderPipeline() *wgpu.RenderPipeline

	DepthTestEnabled() bool
	DepthWriteEnabled() bool
	CullMode() wgpu.CullMode
	Topology() wgpu.PrimitiveTopology
	FrontFace() wgpu.FrontFace
	WriteMask() wgpu.ColorWriteMask

	// BlendState returns the color blend state, or nil when blending is off.
	BlendState() *wgpu.BlendState

	// SetRenderPipeline stores the GPU pipeline, releasing any previous one.
	SetRenderPipeline(rp *wgpu.RenderPipeline)

	// Release frees the GPU pipeline.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a triangle-list pipeline with depth testing on, no culling and no blending.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - opts: options applied after the defaults
//
// Returns:
//   - Pipeline: the configured pipeline
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:       pipelineKey,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		cullMode:          wgpu.CullModeNone,
		topology:          wgpu.PrimitiveTopologyTriangleList,
		frontFace:         wgpu.FrontFaceCCW,
		writeMask:         wgpu.ColorWriteMaskAll,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	default:
		return nil
	}
}

func (p *pipeline) Validate() error {
	if p.vertexShader == nil {
		return fmt.Errorf("%w: %s has no vertex stage", ErrMissingShader, p.pipelineKey)
	}
	if p.fragmentShader == nil {
		return fmt.Errorf("%w: %s has no fragment stage", ErrMissingShader, p.pipelineKey)
	}
	return nil
}

func (p *pipeline) BindGroupLayoutDescriptors() []wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]map[uint32]wgpu.BindGroupLayoutEntry)
	maxGroup := -1
	for _, s := range []shader.Shader{p.vertexShader, p.fragmentShader} {
		if s == nil {
			continue
		}
		for group, desc := range s.BindGroupLayoutDescriptors() {
			if merged[group] == nil {
				merged[group] = make(map[uint32]wgpu.BindGroupLayoutEntry)
			}
			for _, entry := range desc.Entries {
				if existing, ok := merged[group][entry.Binding]; ok {
					entry.Visibility |= existing.Visibility
				}
				merged[group][entry.Binding] = entry
			}
			maxGroup = max(maxGroup, group)
		}
	}

	result := make([]wgpu.BindGroupLayoutDescriptor, maxGroup+1)
	for group, entries := range merged {
		desc := wgpu.BindGroupLayoutDescriptor{
			Label: fmt.Sprintf("%s_group_%d", p.pipelineKey, group),
		}
		for _, entry := range entries {
			desc.Entries = append(desc.Entries, entry)
		}
		sort.Slice(desc.Entries, func(i, j int) bool { return desc.Entries[i].Binding < desc.Entries[j].Binding })
		result[group] = desc
	}
	return result
}

func (p *pipeline) RenderPipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	return p.blendState
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	if p.renderPipeline != nil && p.renderPipeline != rp {
		p.renderPipeline.Release()
	}
	p.renderPipeline = rp
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
}
