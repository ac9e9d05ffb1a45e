package light

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUPointLightSource is the WGSL declaration of the PointLight struct read by the scene shader.
//
//go:embed assets/point_light.wgsl
var GPUPointLightSource string

// GPUPointLight mirrors the WGSL PointLight uniform. Size: 32 bytes.
type GPUPointLight struct {
	Position   [3]float32 // offset  0
	Intensity  float32    // offset 12
	Color      [3]float32 // offset 16
	LightRange float32    // offset 28
}

// Size returns the size of the uniform in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (g *GPUPointLight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the uniform into a little-endian byte buffer for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUPointLight) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i, v := range g.Position {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(g.Intensity))
	for i, v := range g.Color {
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[28:], math.Float32bits(g.LightRange))
	return buf
}
