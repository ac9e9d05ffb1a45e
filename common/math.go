package common

import (
	"unsafe"

	"github.com/chewxy/math32"
)

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
// The matrix is stored in column-major order.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// DegToRad converts degrees to radians.
func DegToRad(deg float32) float32 {
	return deg * math32.Pi / 180
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// The returned slice shares memory with the input and must not be modified.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), int(size)*len(data))
}

// Mul4 multiplies two 4x4 column-major matrices and stores a * b in out.
// out may alias a or b.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - a: left-hand matrix (16 elements)
//   - b: right-hand matrix (16 elements)
func Mul4(out, a, b []float32) {
	var buf [16]float32
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[k*4+row] * b[col*4+k]
			}
			buf[col*4+row] = sum
		}
	}
	copy(out, buf[:])
}

// Perspective creates a right-handed perspective projection matrix mapping depth into the
// WebGPU clip range [0, 1].
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
func Perspective(out []float32, fovY, aspect, near, far float32) {
	f := 1 / math32.Tan(fovY/2)
	Identity(out)

	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1
	out[14] = (near * far) / (near - far)
	out[15] = 0
}

// Invert4 computes the inverse of a 4x4 column-major matrix by cofactor expansion.
// A singular matrix leaves out untouched.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - m: source matrix (16 elements, column-major)
//
// Returns:
//   - bool: false if m is singular
func Invert4(out, m []float32) bool {
	s0 := m[0]*m[5] - m[4]*m[1]
	s1 := m[0]*m[6] - m[4]*m[2]
	s2 := m[0]*m[7] - m[4]*m[3]
	s3 := m[1]*m[6] - m[5]*m[2]
	s4 := m[1]*m[7] - m[5]*m[3]
	s5 := m[2]*m[7] - m[6]*m[3]

	c5 := m[10]*m[15] - m[14]*m[11]
	c4 := m[9]*m[15] - m[13]*m[11]
	c3 := m[9]*m[14] - m[13]*m[10]
	c2 := m[8]*m[15] - m[12]*m[11]
	c1 := m[8]*m[14] - m[12]*m[10]
	c0 := m[8]*m[13] - m[12]*m[9]

	det := s0*c5 - s1*c4 + s2*c3 + s3*c2 - s4*c1 + s5*c0
	if det == 0 {
		return false
	}
	inv := 1 / det

	var r [16]float32
	r[0] = (m[5]*c5 - m[6]*c4 + m[7]*c3) * inv
	r[1] = (-m[1]*c5 + m[2]*c4 - m[3]*c3) * inv
	r[2] = (m[13]*s5 - m[14]*s4 + m[15]*s3) * inv
	r[3] = (-m[9]*s5 + m[10]*s4 - m[11]*s3) * inv

	r[4] = (-m[4]*c5 + m[6]*c2 - m[7]*c1) * inv
	r[5] = (m[0]*c5 - m[2]*c2 + m[3]*c1) * inv
	r[6] = (-m[12]*s5 + m[14]*s2 - m[15]*s1) * inv
	r[7] = (m[8]*s5 - m[10]*s2 + m[11]*s1) * inv

	r[8] = (m[4]*c4 - m[5]*c2 + m[7]*c0) * inv
	r[9] = (-m[0]*c4 + m[1]*c2 - m[3]*c0) * inv
	r[10] = (m[12]*s4 - m[13]*s2 + m[15]*s0) * inv
	r[11] = (-m[8]*s4 + m[9]*s2 - m[11]*s0) * inv

	r[12] = (-m[4]*c3 + m[5]*c1 - m[6]*c0) * inv
	r[13] = (m[0]*c3 - m[1]*c1 + m[2]*c0) * inv
	r[14] = (-m[12]*s3 + m[13]*s1 - m[14]*s0) * inv
	r[15] = (m[8]*s3 - m[9]*s1 + m[10]*s0) * inv

	copy(out, r[:])
	return true
}

// LookAt writes a right-handed view matrix for an eye looking at center with the given up vector.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - eye: camera position in world space
//   - center: point the camera looks at
//   - up: up vector defining camera roll
func LookAt(out []float32, eye, center, up Vec3) {
	z := eye.Sub(center).Normalize()
	x := up.Cross(z).Normalize()
	y := z.Cross(x)

	out[0], out[4], out[8], out[12] = x.X, x.Y, x.Z, -x.Dot(eye)
	out[1], out[5], out[9], out[13] = y.X, y.Y, y.Z, -y.Dot(eye)
	out[2], out[6], out[10], out[14] = z.X, z.Y, z.Z, -z.Dot(eye)
	out[3], out[7], out[11], out[15] = 0, 0, 0, 1
}

// TransformPoint multiplies the point p (w = 1) by the column-major matrix m and performs
// the perspective divide.
func TransformPoint(m []float32, p Vec3) Vec3 {
	x := m[0]*p.X + m[4]*p.Y + m[8]*p.Z + m[12]
	y := m[1]*p.X + m[5]*p.Y + m[9]*p.Z + m[13]
	z := m[2]*p.X + m[6]*p.Y + m[10]*p.Z + m[14]
	w := m[3]*p.X + m[7]*p.Y + m[11]*p.Z + m[15]
	if w != 0 && w != 1 {
		x, y, z = x/w, y/w, z/w
	}
	return Vec3{x, y, z}
}
