package camera

import "github.com/Carmen-Shannon/oxy-atlas/common"

// CameraController owns the camera's positional state. The camera reads Position, Target and
// Up each frame and derives its view matrix from them.
//
// The only implementation is a trackball: dragging rotates the eye freely around the target
// (no fixed world up, so the view can roll over the poles), scrolling dollies towards the
// target and the secondary drag pans. Input accumulates as velocity that Update integrates
// and then decays by the damping factor, so motion eases out after the input stops.
type CameraController interface {
	// Position returns the eye position in world space.
	Position() common.Vec3

	// Target returns the point the eye looks at and rotates around.
	Target() common.Vec3

	// Up returns the current up vector. It rotates together with the eye.
	Up() common.Vec3

	// Distance returns the distance between the eye and the target.
	Distance() float32

	// SetViewport records the canvas size used to normalise pointer deltas.
	//
	// Parameters:
	//   - width, height: canvas size in pixels
	SetViewport(width, height int)

	// Rotate queues a trackball rotation for a pointer drag of (dx, dy) pixels.
	// Screen y grows downwards, as reported by the window.
	//
	// Parameters:
	//   - dx, dy: pointer delta in pixels
	Rotate(dx, dy float32)

	// Zoom queues a dolly. Positive delta moves the eye towards the target.
	//
	// Parameters:
	//   - delta: scroll amount, typically one unit per wheel notch
	Zoom(delta float32)

	// Pan queues a translation of eye and target for a pointer drag of (dx, dy) pixels.
	//
	// Parameters:
	//   - dx, dy: pointer delta in pixels
	Pan(dx, dy float32)

	// Update integrates the queued motion for a frame of dt seconds and applies damping.
	//
	// Parameters:
	//   - dt: elapsed time since the previous update in seconds
	//
	// Returns:
	//   - bool: true if the eye moved
	Update(dt float32) bool

	// Settled reports whether no queued motion remains.
	Settled() bool

	// Reset restores the initial eye, target and up vectors and drops queued motion.
	Reset()

	// SetTarget moves the target, keeping the eye offset.
	SetTarget(target common.Vec3)

	// SetDistance places the eye at the given distance from the target along the current view direction.
	SetDistance(distance float32)
}
