package shader

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

type vertexFormatInfo struct {
	format wgpu.VertexFormat
	size   uint64
}

var wgslVertexFormatMap = map[string]vertexFormatInfo{
	"f32":       {wgpu.VertexFormatFloat32, 4},
	"vec2f":     {wgpu.VertexFormatFloat32x2, 8},
	"vec2<f32>": {wgpu.VertexFormatFloat32x2, 8},
	"vec3f":     {wgpu.VertexFormatFloat32x3, 12},
	"vec3<f32>": {wgpu.VertexFormatFloat32x3, 12},
	"vec4f":     {wgpu.VertexFormatFloat32x4, 16},
	"vec4<f32>": {wgpu.VertexFormatFloat32x4, 16},
	"u32":       {wgpu.VertexFormatUint32, 4},
	"vec2<u32>": {wgpu.VertexFormatUint32x2, 8},
	"i32":       {wgpu.VertexFormatSint32, 4},
	"vec2<i32>": {wgpu.VertexFormatSint32x2, 8},
}

var wgslTextureDimensionMap = map[string]wgpu.TextureViewDimension{
	"texture_2d":       wgpu.TextureViewDimension2D,
	"texture_2d_array": wgpu.TextureViewDimension2DArray,
	"texture_3d":       wgpu.TextureViewDimension3D,
	"texture_cube":     wgpu.TextureViewDimensionCube,
	"texture_depth_2d": wgpu.TextureViewDimension2D,
}

var wgslSampleTypeMap = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

var (
	structBlockRegex   = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	locationRegex      = regexp.MustCompile(`@location\((\d+)\)`)
	builtinRegex       = regexp.MustCompile(`@builtin\(\w+\)`)
	fieldRegex         = regexp.MustCompile(`(?:@\w+\([^)]*\)\s*)*(\w+)\s*:\s*(.+)`)
	vertexEntryRegex   = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)
	fragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)

	// @group(0) @binding(0) var<uniform> camera: CameraUniform;
	// @group(2) @binding(0) var atlas: texture_2d<f32>;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

type parsedField struct {
	name      string
	typeName  string
	location  int // -1 without @location
	isBuiltin bool
}

type parsedStruct struct {
	name   string
	fields []parsedField
}

func parseEntryPoint(cleaned string, shaderType ShaderType) string {
	re := vertexEntryRegex
	if shaderType == ShaderTypeFragment {
		re = fragmentEntryRegex
	}
	if m := re.FindStringSubmatch(cleaned); m != nil {
		return m[1]
	}
	return ""
}

// parseVertexLayouts turns every struct made only of @location fields into a vertex buffer layout.
// Structs carrying a @builtin are stage outputs and are skipped.
func parseVertexLayouts(structs []parsedStruct) ([]wgpu.VertexBufferLayout, error) {
	var layouts []wgpu.VertexBufferLayout
	for _, ps := range structs {
		if !isVertexInputStruct(ps) {
			continue
		}
		layout, err := buildVertexBufferLayout(ps)
		if err != nil {
			return nil, err
		}
		layouts = append(layouts, layout)
	}
	return layouts, nil
}

// parseBindGroupLayouts collects the resource declarations of every group. Entries are sorted by
// binding and uniform or storage buffers carry the byte size of their bound type.
func parseBindGroupLayouts(cleaned string, structs []parsedStruct, visibility wgpu.ShaderStage) map[int]wgpu.BindGroupLayoutDescriptor {
	sizes := computeStructSizes(structs)
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)

	for _, m := range bindGroupDeclRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		addressSpace := strings.TrimSpace(m[3])
		typeName := strings.TrimSpace(m[5])

		entry := classifyResource(uint32(binding), visibility, addressSpace, typeName)
		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if layout, ok := resolveTypeLayout(typeName, sizes); ok {
				entry.Buffer.MinBindingSize = layout.size
			}
		}
		groups[group] = append(groups[group], entry)
	}

	result := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, entries := range groups {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Binding < entries[j].Binding })
		result[g] = wgpu.BindGroupLayoutDescriptor{Entries: entries}
	}
	return result
}

func parseStructBlocks(cleaned string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(cleaned, -1)
	structs := make([]parsedStruct, 0, len(matches))
	for _, m := range matches {
		structs = append(structs, parsedStruct{name: m[1], fields: parseStructFields(m[2])})
	}
	return structs
}

func parseStructFields(body string) []parsedField {
	var fields []parsedField
	for _, part := range splitAtTopLevelCommas(body) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fm := fieldRegex.FindStringSubmatch(part)
		if fm == nil {
			continue
		}
		field := parsedField{
			name:      fm[1],
			typeName:  strings.TrimSpace(fm[2]),
			location:  -1,
			isBuiltin: builtinRegex.MatchString(part),
		}
		if lm := locationRegex.FindStringSubmatch(part); lm != nil {
			field.location, _ = strconv.Atoi(lm[1])
		}
		fields = append(fields, field)
	}
	return fields
}

func isVertexInputStruct(ps parsedStruct) bool {
	hasLocation := false
	for _, f := range ps.fields {
		if f.isBuiltin {
			return false
		}
		if f.location >= 0 {
			hasLocation = true
		}
	}
	return hasLocation
}

// buildVertexBufferLayout packs the fields tightly in declaration order.
func buildVertexBufferLayout(ps parsedStruct) (wgpu.VertexBufferLayout, error) {
	attrs := make([]wgpu.VertexAttribute, 0, len(ps.fields))
	var offset uint64
	for _, f := range ps.fields {
		info, ok := wgslVertexFormatMap[f.typeName]
		if !ok {
			return wgpu.VertexBufferLayout{}, fmt.Errorf("vertex input %s.%s: unsupported type %s", ps.name, f.name, f.typeName)
		}
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         info.format,
			Offset:         offset,
			ShaderLocation: uint32(f.location),
		})
		offset += info.size
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}, nil
}

func classifyResource(binding uint32, visibility wgpu.ShaderStage, addressSpace, typeName string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{Binding: binding, Visibility: visibility}

	switch {
	case addressSpace == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case strings.HasPrefix(addressSpace, "storage"):
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		if strings.Contains(addressSpace, "read_write") {
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		}
	case typeName == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case typeName == "sampler_comparison":
		entry.Sampler.Type = wgpu.SamplerBindingTypeComparison
	case strings.HasPrefix(typeName, "texture_depth_"):
		entry.Texture.SampleType = wgpu.TextureSampleTypeDepth
		entry.Texture.ViewDimension = wgslTextureDimensionMap[typeName]
	case strings.HasPrefix(typeName, "texture_"):
		base, param, _ := strings.Cut(typeName, "<")
		entry.Texture.ViewDimension = wgslTextureDimensionMap[base]
		entry.Texture.SampleType = wgslSampleTypeMap[strings.TrimSpace(strings.TrimSuffix(param, ">"))]
	}
	return entry
}

// stripComments removes line comments and nested block comments.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		if i+1 < len(source) {
			switch {
			case source[i] == '/' && source[i+1] == '*':
				depth++
				i++
				continue
			case source[i] == '*' && source[i+1] == '/' && depth > 0:
				depth--
				i++
				continue
			case depth == 0 && source[i] == '/' && source[i+1] == '/':
				for i < len(source) && source[i] != '\n' {
					i++
				}
				if i < len(source) {
					sb.WriteByte('\n')
				}
				continue
			}
		}
		if depth == 0 {
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}

// splitAtTopLevelCommas splits a struct body on commas outside angle brackets.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
