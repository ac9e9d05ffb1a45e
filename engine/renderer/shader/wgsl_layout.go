package shader

import (
	"strconv"
	"strings"
)

// wgslTypeLayout is the byte size and alignment of a host-shareable WGSL type.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// https://www.w3.org/TR/WGSL/#alignment-and-size
var wgslPrimitiveLayoutMap = map[string]wgslTypeLayout{
	"f32":         {4, 4},
	"i32":         {4, 4},
	"u32":         {4, 4},
	"vec2<f32>":   {8, 8},
	"vec2f":       {8, 8},
	"vec3<f32>":   {12, 16},
	"vec3f":       {12, 16},
	"vec4<f32>":   {16, 16},
	"vec4f":       {16, 16},
	"vec2<u32>":   {8, 8},
	"vec4<u32>":   {16, 16},
	"mat3x3<f32>": {48, 16},
	"mat4x4<f32>": {64, 16},
	"mat4x4f":     {64, 16},
}

func roundUpAlign(alignment, value uint64) uint64 {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// resolveTypeLayout resolves primitives, known structs and fixed-size arrays.
func resolveTypeLayout(typeName string, known map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	if layout, ok := wgslPrimitiveLayoutMap[typeName]; ok {
		return layout, true
	}
	if layout, ok := known[typeName]; ok {
		return layout, true
	}
	if !strings.HasPrefix(typeName, "array<") || !strings.HasSuffix(typeName, ">") {
		return wgslTypeLayout{}, false
	}

	elem, count, fixed := strings.Cut(typeName[len("array<"):len(typeName)-1], ",")
	elemLayout, ok := resolveTypeLayout(strings.TrimSpace(elem), known)
	if !ok {
		return wgslTypeLayout{}, false
	}
	stride := roundUpAlign(elemLayout.align, elemLayout.size)
	if !fixed {
		// runtime-sized: one element is the smallest valid binding
		return wgslTypeLayout{stride, elemLayout.align}, true
	}
	n, err := strconv.ParseUint(strings.TrimSpace(count), 10, 64)
	if err != nil {
		return wgslTypeLayout{}, false
	}
	return wgslTypeLayout{n * stride, elemLayout.align}, true
}

func computeStructLayout(ps parsedStruct, known map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	var offset uint64
	maxAlign := uint64(1)
	for _, f := range ps.fields {
		if f.isBuiltin {
			continue
		}
		fl, ok := resolveTypeLayout(f.typeName, known)
		if !ok {
			return wgslTypeLayout{}, false
		}
		offset = roundUpAlign(fl.align, offset) + fl.size
		maxAlign = max(maxAlign, fl.align)
	}
	return wgslTypeLayout{roundUpAlign(maxAlign, offset), maxAlign}, true
}

// computeStructSizes resolves structs repeatedly until no more progress is made, so a struct
// may reference another declared after it.
func computeStructSizes(structs []parsedStruct) map[string]wgslTypeLayout {
	resolved := make(map[string]wgslTypeLayout, len(structs))
	remaining := append([]parsedStruct(nil), structs...)
	for len(remaining) > 0 {
		next := remaining[:0]
		for _, ps := range remaining {
			if layout, ok := computeStructLayout(ps, resolved); ok {
				resolved[ps.name] = layout
			} else {
				next = append(next, ps)
			}
		}
		if len(next) == len(remaining) {
			break
		}
		remaining = next
	}
	return resolved
}
