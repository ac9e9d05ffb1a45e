package atlas

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeSingleRow(t *testing.T) {
	l := Compute(3, 64)
	assert.Equal(t, Layout{
		TileWidth:   64,
		TileHeight:  64,
		NumImages:   3,
		NumColumns:  3,
		NumRows:     1,
		AtlasWidth:  192,
		AtlasHeight: 64,
	}, l)
	assert.False(t, l.Empty())
	assert.GreaterOrEqual(t, l.NumColumns*l.NumRows, l.NumImages)
}

func TestComputeEmpty(t *testing.T) {
	assert.True(t, Compute(0, 64).Empty())
	assert.True(t, Compute(-1, 64).Empty())
	assert.True(t, Compute(4, 0).Empty())
	assert.Equal(t, TileRect{}, Compute(0, 64).TileUV(0))
}

func TestTileUVSingleRow(t *testing.T) {
	l := Compute(4, 10)
	for i := range 4 {
		r := l.TileUV(i)
		assert.Equal(t, float32(i)/4, r.U0)
		assert.Equal(t, float32(i+1)/4, r.U1)
		assert.Equal(t, float32(0), r.V0)
		assert.Equal(t, float32(1), r.V1)
	}
}

func TestTileUVPartitionsSingleRow(t *testing.T) {
	for _, n := range []int{1, 3, 7, 1000} {
		l := Compute(n, 64)
		assert.Equal(t, float32(0), l.TileUV(0).U0, "n=%d", n)
		assert.Equal(t, float32(1), l.TileUV(n-1).U1, "n=%d", n)
		for i := range n - 1 {
			assert.Equal(t, l.TileUV(i).U1, l.TileUV(i+1).U0, "n=%d tile %d", n, i)
		}
	}
}

func TestTileUVPartitionsGrid(t *testing.T) {
	for _, n := range []int{1, 3, 7, 1000} {
		l := NewGridLayout(n, 64, 3)
		for i := range n {
			col, row := l.Cell(i)
			r := l.TileUV(i)
			if col == 0 {
				assert.Equal(t, float32(0), r.U0, "n=%d tile %d", n, i)
			}
			if col == l.NumColumns-1 {
				assert.Equal(t, float32(1), r.U1, "n=%d tile %d", n, i)
			}
			if col > 0 {
				assert.Equal(t, l.TileUV(i-1).U1, r.U0, "n=%d tile %d", n, i)
			}
			if row > 0 {
				assert.Equal(t, l.TileUV(i-l.NumColumns).V0, r.V1, "n=%d tile %d", n, i)
			}
		}
		assert.Equal(t, float32(1), l.TileUV(0).V1, "n=%d", n)
		assert.Equal(t, float32(0), l.TileUV(n-1).V0, "n=%d", n)
	}
}

func TestTriangleUVs(t *testing.T) {
	uvs := Compute(2, 10).TriangleUVs(1)
	assert.Equal(t, UVTriple{{0.5, 0}, {1, 0}, {1, 1}}, uvs[0])
	assert.Equal(t, UVTriple{{0.5, 0}, {1, 1}, {0.5, 1}}, uvs[1])
}

func TestGridLayout(t *testing.T) {
	l := NewGridLayout(5, 8, 2)
	assert.Equal(t, 2, l.NumColumns)
	assert.Equal(t, 3, l.NumRows)
	assert.Equal(t, 16, l.AtlasWidth)
	assert.Equal(t, 24, l.AtlasHeight)

	col, row := l.Cell(3)
	assert.Equal(t, 1, col)
	assert.Equal(t, 1, row)

	// Row 0 sits at the top of the image.
	top := l.TileUV(0)
	assert.InDelta(t, 2.0/3.0, top.V0, 1e-6)
	assert.Equal(t, float32(1), top.V1)

	bottom := l.TileUV(4)
	assert.Equal(t, float32(0), bottom.V0)
	assert.InDelta(t, 1.0/3.0, bottom.V1, 1e-6)
}

func TestGridLayoutFallsBackToSingleRow(t *testing.T) {
	assert.Equal(t, Compute(3, 16), NewGridLayout(3, 16, 0))
	assert.Equal(t, Compute(3, 16), NewGridLayout(3, 16, 10))
}
