package material

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUMaterialParamsSource is the WGSL declaration of the MaterialParams uniform.
//
//go:embed assets/material_params.wgsl
var GPUMaterialParamsSource string

// GPUMaterialParams mirrors the WGSL MaterialParams uniform. Size: 32 bytes.
type GPUMaterialParams struct {
	Tint        [4]float32 // offset  0: multiplied into the sampled texel
	AlphaCutoff float32    // offset 16: texels below this alpha are discarded
	Ambient     float32    // offset 20: light floor applied before the point light
	_pad        [2]float32 // offset 24
}

// Size returns the size of the uniform in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (g *GPUMaterialParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the uniform into a little-endian byte buffer for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUMaterialParams) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i, v := range g.Tint {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[16:], math.Float32bits(g.AlphaCutoff))
	binary.LittleEndian.PutUint32(buf[20:], math.Float32bits(g.Ambient))
	return buf
}
