package common

import "github.com/chewxy/math32"

// Vec3 is a 3-component float32 vector used for positions, directions and axes.
type Vec3 struct {
	X, Y, Z float32
}

// V3 is shorthand for constructing a Vec3.
func V3(x, y, z float32) Vec3 {
	return Vec3{x, y, z}
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float32 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Cross returns the cross product v x o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

// Length returns the Euclidean length of v.
func (v Vec3) Length() float32 {
	return math32.Sqrt(v.Dot(v))
}

// Normalize returns v scaled to unit length. The zero vector is returned unchanged.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l < 1e-8 {
		return v
	}
	return v.Scale(1 / l)
}

// Rotate rotates v by angle radians around the unit axis using Rodrigues' formula.
func (v Vec3) Rotate(axis Vec3, angle float32) Vec3 {
	c := math32.Cos(angle)
	s := math32.Sin(angle)
	return v.Scale(c).
		Add(axis.Cross(v).Scale(s)).
		Add(axis.Scale(axis.Dot(v) * (1 - c)))
}

// Array returns v as a fixed-size array for GPU uniform packing.
func (v Vec3) Array() [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}
