package camera

import "github.com/Carmen-Shannon/oxy-atlas/common"

// CameraControllerOption is a functional option applied to a controller during construction
// via NewTrackballController.
type CameraControllerOption func(*trackballControllerImpl)

// WithTarget sets the initial look-at point.
//
// Parameters:
//   - target: world-space pivot point
//
// Returns:
//   - CameraControllerOption: a function that sets the target
func WithTarget(target common.Vec3) CameraControllerOption {
	return func(tc *trackballControllerImpl) {
		tc.home.target = target
	}
}

// WithDistance sets the initial eye distance from the target. The eye starts on the +Z axis.
//
// Parameters:
//   - distance: initial distance, must be positive
//
// Returns:
//   - CameraControllerOption: a function that sets the starting distance
func WithDistance(distance float32) CameraControllerOption {
	return func(tc *trackballControllerImpl) {
		if distance > 0 {
			tc.home.eye = common.V3(0, 0, distance)
		}
	}
}

// WithDistanceLimits clamps how close and how far the eye may dolly.
//
// Parameters:
//   - minDistance: the closest allowed distance
//   - maxDistance: the farthest allowed distance
//
// Returns:
//   - CameraControllerOption: a function that sets the dolly limits
func WithDistanceLimits(minDistance, maxDistance float32) CameraControllerOption {
	return func(tc *trackballControllerImpl) {
		if minDistance > 0 && maxDistance >= minDistance {
			tc.minDistance = minDistance
			tc.maxDistance = maxDistance
		}
	}
}

// WithRotateSpeed scales drag rotation.
func WithRotateSpeed(speed float32) CameraControllerOption {
	return func(tc *trackballControllerImpl) {
		tc.rotateSpeed = speed
	}
}

// WithZoomSpeed scales scroll dolly.
func WithZoomSpeed(speed float32) CameraControllerOption {
	return func(tc *trackballControllerImpl) {
		tc.zoomSpeed = speed
	}
}

// WithPanSpeed scales drag panning.
func WithPanSpeed(speed float32) CameraControllerOption {
	return func(tc *trackballControllerImpl) {
		tc.panSpeed = speed
	}
}

// WithDampingFactor sets the fraction of queued motion consumed per 60Hz frame.
// 1 disables easing; values near 0 glide for a long time.
//
// Parameters:
//   - factor: damping factor in (0, 1]
//
// Returns:
//   - CameraControllerOption: a function that sets the damping factor
func WithDampingFactor(factor float32) CameraControllerOption {
	return func(tc *trackballControllerImpl) {
		tc.dampingFactor = common.Clamp(factor, 0.01, 1)
	}
}
