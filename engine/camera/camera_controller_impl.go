package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-atlas/common"
	"github.com/chewxy/math32"
)

// settleEpsilon is the queued motion below which damping snaps to rest.
const settleEpsilon = 1e-5

type trackballPose struct {
	target common.Vec3
	eye    common.Vec3 // offset from target to the eye
	up     common.Vec3
}

// trackballControllerImpl is the trackball implementation of CameraController.
type trackballControllerImpl struct {
	mu *sync.Mutex

	home trackballPose
	pose trackballPose

	width, height float32

	minDistance float32
	maxDistance float32

	rotateSpeed   float32
	zoomSpeed     float32
	panSpeed      float32
	dampingFactor float32

	// queued motion, consumed by Update
	rotate [2]float32 // normalised screen delta, y up
	zoom   float32    // fraction of the distance to dolly in
	pan    [2]float32 // normalised screen delta, y down
}

var _ CameraController = &trackballControllerImpl{}

// NewTrackballController creates a trackball looking at the origin from 500 units along +Z.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewTrackballController(options ...CameraControllerOption) CameraController {
	tc := &trackballControllerImpl{
		mu: &sync.Mutex{},
		home: trackballPose{
			eye: common.V3(0, 0, 500),
			up:  common.V3(0, 1, 0),
		},
		width:         1,
		height:        1,
		minDistance:   1,
		maxDistance:   9000,
		rotateSpeed:   1.0,
		zoomSpeed:     1.2,
		panSpeed:      0.3,
		dampingFactor: 0.2,
	}
	for _, opt := range options {
		opt(tc)
	}
	tc.pose = tc.home
	return tc
}

func (tc *trackballControllerImpl) Position() common.Vec3 {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.pose.target.Add(tc.pose.eye)
}

func (tc *trackballControllerImpl) Target() common.Vec3 {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.pose.target
}

func (tc *trackballControllerImpl) Up() common.Vec3 {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.pose.up
}

func (tc *trackballControllerImpl) Distance() float32 {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.pose.eye.Length()
}

func (tc *trackballControllerImpl) SetViewport(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.width = float32(width)
	tc.height = float32(height)
}

// Rotate normalises by half the canvas width on both axes so a drag across the full width
// turns the same amount regardless of aspect ratio.
func (tc *trackballControllerImpl) Rotate(dx, dy float32) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	half := tc.width / 2
	tc.rotate[0] += dx / half
	tc.rotate[1] -= dy / half
}

func (tc *trackballControllerImpl) Zoom(delta float32) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.zoom += delta * 0.1 * tc.zoomSpeed
}

func (tc *trackballControllerImpl) Pan(dx, dy float32) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.pan[0] += dx / tc.width
	tc.pan[1] += dy / tc.height
}

func (tc *trackballControllerImpl) Update(dt float32) bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.settled() {
		return false
	}

	// Consume the damped share of the queued motion for this frame. At 60Hz that is
	// exactly dampingFactor; other frame rates consume the equivalent amount.
	frames := common.Clamp(dt*60, 0, 10)
	keep := math32.Pow(1-tc.dampingFactor, frames)
	take := 1 - keep

	tc.applyRotate(tc.rotate[0]*take, tc.rotate[1]*take)
	tc.applyZoom(tc.zoom * take)
	tc.applyPan(tc.pan[0]*take, tc.pan[1]*take)

	tc.rotate[0] *= keep
	tc.rotate[1] *= keep
	tc.zoom *= keep
	tc.pan[0] *= keep
	tc.pan[1] *= keep
	if tc.settled() {
		tc.rotate, tc.pan, tc.zoom = [2]float32{}, [2]float32{}, 0
	}
	return true
}

func (tc *trackballControllerImpl) Settled() bool {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.settled()
}

func (tc *trackballControllerImpl) Reset() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.pose = tc.home
	tc.rotate, tc.pan, tc.zoom = [2]float32{}, [2]float32{}, 0
}

func (tc *trackballControllerImpl) SetTarget(target common.Vec3) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.pose.target = target
}

func (tc *trackballControllerImpl) SetDistance(distance float32) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	d := common.Clamp(distance, tc.minDistance, tc.maxDistance)
	tc.pose.eye = tc.pose.eye.Normalize().Scale(d)
}

// settled must be called with the mutex held.
func (tc *trackballControllerImpl) settled() bool {
	return math32.Abs(tc.rotate[0]) < settleEpsilon &&
		math32.Abs(tc.rotate[1]) < settleEpsilon &&
		math32.Abs(tc.zoom) < settleEpsilon &&
		math32.Abs(tc.pan[0]) < settleEpsilon &&
		math32.Abs(tc.pan[1]) < settleEpsilon
}

// applyRotate turns the eye offset and up vector around the axis perpendicular to both the
// view direction and the on-screen drag direction. Must be called with the mutex held.
func (tc *trackballControllerImpl) applyRotate(mx, my float32) {
	angle := math32.Sqrt(mx*mx+my*my) * tc.rotateSpeed
	if angle == 0 {
		return
	}
	eyeDir := tc.pose.eye.Normalize()
	up := tc.pose.up.Normalize()
	sideways := up.Cross(eyeDir).Normalize()

	move := up.Scale(my).Add(sideways.Scale(mx))
	axis := move.Cross(tc.pose.eye).Normalize()
	if axis.Length() == 0 {
		return
	}
	tc.pose.eye = tc.pose.eye.Rotate(axis, angle)
	tc.pose.up = tc.pose.up.Rotate(axis, angle).Normalize()
}

// applyZoom scales the eye offset. Must be called with the mutex held.
func (tc *trackballControllerImpl) applyZoom(amount float32) {
	if amount == 0 {
		return
	}
	factor := common.Clamp(1-amount, 0.1, 10)
	d := common.Clamp(tc.pose.eye.Length()*factor, tc.minDistance, tc.maxDistance)
	tc.pose.eye = tc.pose.eye.Normalize().Scale(d)
}

// applyPan shifts eye and target along the screen plane, scaled by the eye distance so the
// scene tracks the pointer at any zoom. Must be called with the mutex held.
func (tc *trackballControllerImpl) applyPan(mx, my float32) {
	if mx == 0 && my == 0 {
		return
	}
	scale := tc.pose.eye.Length() * tc.panSpeed
	right := tc.pose.eye.Cross(tc.pose.up).Normalize().Scale(mx * scale)
	up := tc.pose.up.Normalize().Scale(my * scale)
	tc.pose.target = tc.pose.target.Add(right).Add(up)
}
