package shader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies the pipeline stage a shader's entry point belongs to.
type ShaderType int

const (
	// ShaderTypeVertex marks a shader whose entry point is annotated @vertex.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment marks a shader whose entry point is annotated @fragment.
	ShaderTypeFragment
)

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

func (t ShaderType) stage() wgpu.ShaderStage {
	if t == ShaderTypeFragment {
		return wgpu.ShaderStageFragment
	}
	return wgpu.ShaderStageVertex
}

type shader struct {
	key        string
	source     string
	shaderType ShaderType
	entryPoint string

	vertexLayouts              []wgpu.VertexBufferLayout
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	module                     *wgpu.ShaderModuleDescriptor
}

// Shader is a parsed WGSL stage. Parsing recovers what pipeline creation needs from the
// source itself: the entry point, vertex buffer layouts for vertex stages, and bind group
// layouts with uniform sizes so buffers can be allocated without hand-written descriptors.
type Shader interface {
	// Key returns the identifier the shader was registered under.
	Key() string

	// Source returns the WGSL source.
	Source() string

	// Type returns the stage of the shader.
	Type() ShaderType

	// EntryPoint returns the name of the stage's entry function.
	EntryPoint() string

	// VertexLayouts returns one buffer layout per vertex input struct, in declaration order.
	// Fragment shaders return nil.
	VertexLayouts() []wgpu.VertexBufferLayout

	// BindGroupLayoutDescriptor returns the layout of one group, and whether the shader declares it.
	//
	// Parameters:
	//   - group: the @group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the layout with entries sorted by binding
	//   - bool: false when the group is not declared
	BindGroupLayoutDescriptor(group int) (wgpu.BindGroupLayoutDescriptor, bool)

	// BindGroupLayoutDescriptors returns every declared group keyed by @group index.
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// Module returns the descriptor used to create the GPU shader module.
	Module() *wgpu.ShaderModuleDescriptor
}

var _ Shader = &shader{}

// NewShader parses WGSL source for the given stage.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the stage whose entry point should be located
//   - source: the WGSL source
//
// Returns:
//   - Shader: the parsed shader
//   - error: if the source is empty or has no entry point for the stage
func NewShader(key string, shaderType ShaderType, source string) (Shader, error) {
	if source == "" {
		return nil, fmt.Errorf("shader %s: empty source", key)
	}
	cleaned := stripComments(source)
	entry := parseEntryPoint(cleaned, shaderType)
	if entry == "" {
		return nil, fmt.Errorf("shader %s: no @%s entry point", key, shaderType)
	}

	structs := parseStructBlocks(cleaned)
	s := &shader{
		key:                        key,
		source:                     source,
		shaderType:                 shaderType,
		entryPoint:                 entry,
		bindGroupLayoutDescriptors: parseBindGroupLayouts(cleaned, structs, shaderType.stage()),
		module: &wgpu.ShaderModuleDescriptor{
			Label:          key,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: source},
		},
	}
	if shaderType == ShaderTypeVertex {
		layouts, err := parseVertexLayouts(structs)
		if err != nil {
			return nil, fmt.Errorf("shader %s: %w", key, err)
		}
		s.vertexLayouts = layouts
	}
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) Type() ShaderType {
	return s.shaderType
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) VertexLayouts() []wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) BindGroupLayoutDescriptor(group int) (wgpu.BindGroupLayoutDescriptor, bool) {
	desc, ok := s.bindGroupLayoutDescriptors[group]
	return desc, ok
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}
