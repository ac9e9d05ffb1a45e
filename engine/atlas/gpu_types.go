package atlas

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUVertexSource is the canonical WGSL definition of the VertexInput struct for atlas quads.
// Matches GPUVertex layout exactly (20 bytes).
//
//go:embed assets/vertex.wgsl
var GPUVertexSource string

// GPUVertexSize is the byte size of one marshalled GPUVertex.
const GPUVertexSize = 20

// GPUVertex is the GPU-aligned representation of a single atlas quad corner.
// Matches the WGSL VertexInput struct layout exactly (see GPUVertexSource).
type GPUVertex struct {
	Position [3]float32 // offset  0: world-space position (12 bytes)
	TexCoord [2]float32 // offset 12: atlas UV (8 bytes)
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVertex into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 20-byte buffer ready for GPU upload
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, GPUVertexSize)
	g.marshalInto(buf)
	return buf
}

func (g *GPUVertex) marshalInto(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Position[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Position[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Position[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.TexCoord[0]))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.TexCoord[1]))
}

// GPUVertices returns one GPUVertex per mesh vertex. Every corner Build emits belongs to a
// single quad, so the UV a triangle assigns to a corner is the UV of that vertex.
//
// Returns:
//   - []GPUVertex: 4 vertices per quad, in Mesh.Vertices order
func (m *Mesh) GPUVertices() []GPUVertex {
	if m.Empty() {
		return nil
	}
	out := make([]GPUVertex, len(m.Vertices))
	for i, v := range m.Vertices {
		out[i].Position = [3]float32{v.X, v.Y, v.Z}
	}
	for t, tri := range m.Triangles {
		for k, idx := range tri {
			uv := m.UVs[t][k]
			out[idx].TexCoord = [2]float32{uv.U, uv.V}
		}
	}
	return out
}

// VertexData returns the marshalled vertex buffer for the mesh.
func (m *Mesh) VertexData() []byte {
	verts := m.GPUVertices()
	buf := make([]byte, len(verts)*GPUVertexSize)
	for i := range verts {
		verts[i].marshalInto(buf[i*GPUVertexSize:])
	}
	return buf
}

// IndexCount returns the number of uint32 indices produced by IndexData.
func (m *Mesh) IndexCount() int {
	if m.Empty() {
		return 0
	}
	return 3 * len(m.Triangles)
}

// IndexData returns the marshalled uint32 index buffer, the triangle list of the mesh
// referencing the vertices of VertexData.
func (m *Mesh) IndexData() []byte {
	if m.Empty() {
		return nil
	}
	buf := make([]byte, 0, m.IndexCount()*4)
	for _, tri := range m.Triangles {
		for _, idx := range tri {
			buf = binary.LittleEndian.AppendUint32(buf, idx)
		}
	}
	return buf
}
