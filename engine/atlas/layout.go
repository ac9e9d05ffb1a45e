// Package atlas maps an ordered list of 3D points onto textured quads whose UVs address
// equally sized tiles packed into a single sprite sheet image.
package atlas

// Layout describes how NumImages equally sized tiles are packed into a single atlas image.
// Tile i occupies cell (i % NumColumns, i / NumColumns), with row 0 at the top of the image.
type Layout struct {
	TileWidth   int
	TileHeight  int
	NumImages   int
	NumColumns  int
	NumRows     int
	AtlasWidth  int
	AtlasHeight int
}

// UV is a normalized texture coordinate.
type UV struct {
	U, V float32
}

// UVTriple holds the texture coordinates of the three corners of one triangle.
type UVTriple [3]UV

// TileRect is the normalized texture-space rectangle covered by a single tile.
type TileRect struct {
	U0, V0 float32
	U1, V1 float32
}

// Compute builds the single-row layout used by the sprite sheet endpoint: every tile sits
// side by side in one row, so NumColumns equals numImages and NumRows is 1.
//
// Parameters:
//   - numImages: the number of tiles in the atlas
//   - tileEdge: the edge length of each square tile in pixels
//
// Returns:
//   - Layout: the computed layout, or the empty layout when numImages or tileEdge is not positive
func Compute(numImages, tileEdge int) Layout {
	if numImages <= 0 || tileEdge <= 0 {
		return Layout{}
	}
	return Layout{
		TileWidth:   tileEdge,
		TileHeight:  tileEdge,
		NumImages:   numImages,
		NumColumns:  numImages,
		NumRows:     1,
		AtlasWidth:  tileEdge * numImages,
		AtlasHeight: tileEdge,
	}
}

// NewGridLayout builds a layout that wraps tiles into rows of the given column count.
// A columns value of zero or less, or one larger than numImages, falls back to a single row.
//
// Parameters:
//   - numImages: the number of tiles in the atlas
//   - tileEdge: the edge length of each square tile in pixels
//   - columns: the number of tiles per row
//
// Returns:
//   - Layout: the computed layout, or the empty layout when numImages or tileEdge is not positive
func NewGridLayout(numImages, tileEdge, columns int) Layout {
	if numImages <= 0 || tileEdge <= 0 {
		return Layout{}
	}
	if columns <= 0 || columns > numImages {
		columns = numImages
	}
	rows := (numImages + columns - 1) / columns
	return Layout{
		TileWidth:   tileEdge,
		TileHeight:  tileEdge,
		NumImages:   numImages,
		NumColumns:  columns,
		NumRows:     rows,
		AtlasWidth:  tileEdge * columns,
		AtlasHeight: tileEdge * rows,
	}
}

// Empty reports whether the layout holds no tiles.
func (l Layout) Empty() bool {
	return l.NumImages == 0
}

// Cell returns the column and row of tile i.
func (l Layout) Cell(i int) (col, row int) {
	if l.NumColumns == 0 {
		return 0, 0
	}
	return i % l.NumColumns, i / l.NumColumns
}

// TileUV returns the normalized rectangle covered by tile i. Row 0 maps to the top of the
// image, so for a single-row layout the rectangle always spans V in [0, 1].
//
// Parameters:
//   - i: the tile index, expected in [0, NumImages)
//
// Returns:
//   - TileRect: the tile's UV bounds, or the zero rect for an empty layout
func (l Layout) TileUV(i int) TileRect {
	if l.NumColumns == 0 || l.NumRows == 0 {
		return TileRect{}
	}
	col, row := l.Cell(i)
	cols := float64(l.NumColumns)
	rows := float64(l.NumRows)
	return TileRect{
		U0: float32(float64(col) / cols),
		U1: float32(float64(col+1) / cols),
		V0: float32(1 - float64(row+1)/rows),
		V1: float32(1 - float64(row)/rows),
	}
}

// TriangleUVs returns the UV triples for the two triangles of tile i's quad, in the
// same corner order the geometry builder emits: (BL, BR, TR) then (BL, TR, TL).
func (l Layout) TriangleUVs(i int) [2]UVTriple {
	r := l.TileUV(i)
	bl := UV{r.U0, r.V0}
	br := UV{r.U1, r.V0}
	tr := UV{r.U1, r.V1}
	tl := UV{r.U0, r.V1}
	return [2]UVTriple{
		{bl, br, tr},
		{bl, tr, tl},
	}
}
