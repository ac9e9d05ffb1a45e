package common

import (
	"image"
	"image/color"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-4

func assertVec3(t *testing.T, want, got Vec3) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, tol)
	assert.InDelta(t, want.Y, got.Y, tol)
	assert.InDelta(t, want.Z, got.Z, tol)
}

func TestMul4Identity(t *testing.T) {
	var id, m, out [16]float32
	Identity(id[:])
	for i := range m {
		m[i] = float32(i + 1)
	}
	Mul4(out[:], id[:], m[:])
	assert.Equal(t, m, out)
	Mul4(out[:], m[:], id[:])
	assert.Equal(t, m, out)
}

func TestDegToRad(t *testing.T) {
	assert.InDelta(t, math32.Pi/2, DegToRad(90), 1e-6)
	assert.Zero(t, DegToRad(0))
}

func TestInvert4(t *testing.T) {
	var view, inv, prod, id [16]float32
	LookAt(view[:], V3(3, 4, 50), V3(0, 0, 0), V3(0, 1, 0))
	require.True(t, Invert4(inv[:], view[:]))
	Mul4(prod[:], view[:], inv[:])
	Identity(id[:])
	for i := range prod {
		assert.InDelta(t, id[i], prod[i], tol)
	}

	var singular [16]float32
	assert.False(t, Invert4(inv[:], singular[:]))
}

func TestLookAtMapsTargetToNegativeZ(t *testing.T) {
	var view [16]float32
	LookAt(view[:], V3(0, 0, 500), V3(0, 0, 0), V3(0, 1, 0))
	assertVec3(t, V3(0, 0, -500), TransformPoint(view[:], V3(0, 0, 0)))
	assertVec3(t, V3(0, 0, 0), TransformPoint(view[:], V3(0, 0, 500)))
}

func TestPerspectiveDepthRange(t *testing.T) {
	var proj [16]float32
	Perspective(proj[:], math32.Pi/2, 1, 0.1, 10000)

	near := TransformPoint(proj[:], V3(0, 0, -0.1))
	far := TransformPoint(proj[:], V3(0, 0, -10000))
	assert.InDelta(t, 0, near.Z, tol)
	assert.InDelta(t, 1, far.Z, tol)

	// 90 degree fov: a point at 45 degrees lands on the clip edge.
	edge := TransformPoint(proj[:], V3(0, 10, -10))
	assert.InDelta(t, 1, edge.Y, tol)
}

func TestVec3Rotate(t *testing.T) {
	got := V3(1, 0, 0).Rotate(V3(0, 1, 0), math32.Pi/2)
	assertVec3(t, V3(0, 0, -1), got)
	assert.InDelta(t, 1, got.Length(), tol)
	assertVec3(t, V3(0, 0, 1), V3(1, 0, 0).Cross(V3(0, 1, 0)))
	assert.Equal(t, Vec3{}, Vec3{}.Normalize())
}

func TestClampAndCoalesce(t *testing.T) {
	assert.Equal(t, 5, Clamp(9, 0, 5))
	assert.Equal(t, float32(0.1), Clamp(float32(-1), 0.1, 1))
	assert.Equal(t, "b", Coalesce("", "b", "c"))
	assert.Equal(t, 0, Coalesce(0, 0))
}

func TestStageImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(2, 3, 5, 5))
	src.Set(2, 3, color.NRGBA{R: 255, A: 255})

	staged, err := StageImage(src)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), staged.Width)
	assert.Equal(t, uint32(2), staged.Height)
	require.Len(t, staged.Pixels, 3*2*4)
	assert.Equal(t, []byte{255, 0, 0, 255}, staged.Pixels[:4])

	_, err = StageImage(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.Error(t, err)
}
