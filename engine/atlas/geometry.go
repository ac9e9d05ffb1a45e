package atlas

// Point is a single embedded item's position. Its index in the input slice is its tile index.
type Point struct {
	X, Y, Z float32
}

// Vertex is a mesh vertex position in world space.
type Vertex struct {
	X, Y, Z float32
}

// Triangle holds three indices into Mesh.Vertices.
type Triangle [3]uint32

// Mesh is the plain-data result of Build. Triangles and UVs are positionally aligned:
// UVs[t][k] is the texture coordinate of corner k of Triangles[t].
type Mesh struct {
	Vertices  []Vertex
	Triangles []Triangle
	UVs       []UVTriple
}

// QuadCount returns the number of tile quads in the mesh.
func (m *Mesh) QuadCount() int {
	if m == nil {
		return 0
	}
	return len(m.Vertices) / 4
}

// Empty reports whether the mesh has nothing to draw.
func (m *Mesh) Empty() bool {
	return m == nil || len(m.Triangles) == 0
}

// Build emits one textured quad per point. Quad i has its bottom-left corner at point i,
// spans one tile in X and Y at the point's Z, and is UV-mapped to tile i of the layout.
//
// Parameters:
//   - points: the ordered point list; index i is mapped to tile i
//   - layout: the atlas layout describing tile size and placement
//
// Returns:
//   - *Mesh: the built mesh with 4N vertices, 2N triangles and 2N UV triples
//   - error: a *GeometryPreconditionError if len(points) differs from layout.NumImages
func Build(points []Point, layout Layout) (*Mesh, error) {
	if len(points) != layout.NumImages {
		return nil, &GeometryPreconditionError{Points: len(points), Tiles: layout.NumImages}
	}

	n := len(points)
	m := &Mesh{
		Vertices:  make([]Vertex, 0, 4*n),
		Triangles: make([]Triangle, 0, 2*n),
		UVs:       make([]UVTriple, 0, 2*n),
	}

	w := float32(layout.TileWidth)
	h := float32(layout.TileHeight)
	for i, p := range points {
		m.Vertices = append(m.Vertices,
			Vertex{p.X, p.Y, p.Z},
			Vertex{p.X + w, p.Y, p.Z},
			Vertex{p.X + w, p.Y + h, p.Z},
			Vertex{p.X, p.Y + h, p.Z},
		)

		last := uint32(len(m.Vertices))
		m.Triangles = append(m.Triangles,
			Triangle{last - 4, last - 3, last - 2},
			Triangle{last - 4, last - 2, last - 1},
		)

		uvs := layout.TriangleUVs(i)
		m.UVs = append(m.UVs, uvs[0], uvs[1])
	}

	return m, nil
}
