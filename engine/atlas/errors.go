package atlas

import "fmt"

// GeometryPreconditionError is returned by Build when the number of points does not match
// the number of tiles described by the layout.
type GeometryPreconditionError struct {
	Points int
	Tiles  int
}

func (e *GeometryPreconditionError) Error() string {
	return fmt.Sprintf("atlas: %d points cannot be mapped onto %d tiles", e.Points, e.Tiles)
}
