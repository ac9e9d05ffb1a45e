package atlas

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTwoPoints(t *testing.T) {
	points := []Point{{1, 1, 1}, {0, 0, 0}}
	m, err := Build(points, Compute(len(points), 10))
	require.NoError(t, err)

	assert.Equal(t, []Vertex{
		{1, 1, 1}, {11, 1, 1}, {11, 11, 1}, {1, 11, 1},
		{0, 0, 0}, {10, 0, 0}, {10, 10, 0}, {0, 10, 0},
	}, m.Vertices)

	assert.Equal(t, []Triangle{
		{0, 1, 2}, {0, 2, 3},
		{4, 5, 6}, {4, 6, 7},
	}, m.Triangles)

	assert.Equal(t, []UVTriple{
		{{0, 0}, {0.5, 0}, {0.5, 1}},
		{{0, 0}, {0.5, 1}, {0, 1}},
		{{0.5, 0}, {1, 0}, {1, 1}},
		{{0.5, 0}, {1, 1}, {0.5, 1}},
	}, m.UVs)
	assert.Equal(t, 2, m.QuadCount())
}

func TestBuildCounts(t *testing.T) {
	points := make([]Point, 37)
	for i := range points {
		points[i] = Point{float32(i), float32(-i), float32(i * 2)}
	}
	m, err := Build(points, Compute(len(points), 64))
	require.NoError(t, err)

	assert.Len(t, m.Vertices, 4*len(points))
	assert.Len(t, m.Triangles, 2*len(points))
	assert.Len(t, m.UVs, len(m.Triangles))

	for _, tri := range m.Triangles {
		for _, idx := range tri {
			assert.Less(t, int(idx), len(m.Vertices))
		}
	}
}

func TestBuildQuadsAreCoplanar(t *testing.T) {
	points := []Point{{3, -2, 7.5}, {-40, 12, -3}}
	m, err := Build(points, Compute(2, 64))
	require.NoError(t, err)

	for i, p := range points {
		quad := m.Vertices[4*i : 4*i+4]
		for _, v := range quad {
			assert.Equal(t, p.Z, v.Z)
		}
		assert.Equal(t, Vertex{p.X, p.Y, p.Z}, quad[0])
		assert.Equal(t, p.X+64, quad[2].X)
		assert.Equal(t, p.Y+64, quad[2].Y)
	}
}

func TestBuildDeterministic(t *testing.T) {
	points := []Point{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	a, err := Build(points, Compute(3, 32))
	require.NoError(t, err)
	b, err := Build(points, Compute(3, 32))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, a.VertexData(), b.VertexData())
}

func TestBuildEmpty(t *testing.T) {
	m, err := Build(nil, Compute(0, 64))
	require.NoError(t, err)
	assert.True(t, m.Empty())
	assert.Empty(t, m.Vertices)
	assert.Empty(t, m.Triangles)
	assert.Empty(t, m.UVs)
	assert.Equal(t, 0, m.IndexCount())
	assert.Empty(t, m.VertexData())
}

func TestBuildCountMismatch(t *testing.T) {
	_, err := Build([]Point{{0, 0, 0}, {1, 1, 1}}, Compute(3, 64))
	require.Error(t, err)

	var pre *GeometryPreconditionError
	require.True(t, errors.As(err, &pre))
	assert.Equal(t, 2, pre.Points)
	assert.Equal(t, 3, pre.Tiles)
}

func TestMeshGPUData(t *testing.T) {
	m, err := Build([]Point{{1, 1, 1}, {0, 0, 0}}, Compute(2, 10))
	require.NoError(t, err)

	verts := m.GPUVertices()
	require.Len(t, verts, 8)

	// Second quad: corners BL, BR, TR, TL.
	assert.Equal(t, []GPUVertex{
		{Position: [3]float32{0, 0, 0}, TexCoord: [2]float32{0.5, 0}},
		{Position: [3]float32{10, 0, 0}, TexCoord: [2]float32{1, 0}},
		{Position: [3]float32{10, 10, 0}, TexCoord: [2]float32{1, 1}},
		{Position: [3]float32{0, 10, 0}, TexCoord: [2]float32{0.5, 1}},
	}, verts[4:])

	data := m.VertexData()
	require.Len(t, data, 8*GPUVertexSize)
	assert.Equal(t, float32(11), math.Float32frombits(binary.LittleEndian.Uint32(data[GPUVertexSize:])))

	assert.Equal(t, 12, m.IndexCount())
	idx := m.IndexData()
	require.Len(t, idx, 48)
	got := make([]uint32, 0, 12)
	for i := 0; i < len(idx); i += 4 {
		got = append(got, binary.LittleEndian.Uint32(idx[i:]))
	}
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3, 4, 5, 6, 4, 6, 7}, got)
}

func TestMeshGPUDataMatchesTriangleUVs(t *testing.T) {
	points := make([]Point, 7)
	for i := range points {
		points[i] = Point{X: float32(i * 3), Y: float32(-i), Z: float32(i)}
	}
	m, err := Build(points, NewGridLayout(len(points), 16, 3))
	require.NoError(t, err)

	verts := m.GPUVertices()
	require.Len(t, verts, len(m.Vertices))
	for ti, tri := range m.Triangles {
		for k, idx := range tri {
			v := m.Vertices[idx]
			uv := m.UVs[ti][k]
			assert.Equal(t, GPUVertex{
				Position: [3]float32{v.X, v.Y, v.Z},
				TexCoord: [2]float32{uv.U, uv.V},
			}, verts[idx], "triangle %d corner %d", ti, k)
		}
	}
}

func TestGPUVertexSize(t *testing.T) {
	v := GPUVertex{}
	assert.Equal(t, GPUVertexSize, v.Size())
	assert.Len(t, v.Marshal(), GPUVertexSize)
}
