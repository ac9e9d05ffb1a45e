package camera

// CameraBuilderOption is a functional option applied to a camera during construction via NewCamera.
type CameraBuilderOption func(*cameraImpl)

// WithFov sets the camera's vertical field of view in radians.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if fov > 0 {
			c.fov = fov
		}
	}
}

// WithAspect sets the camera's aspect ratio (width / height).
//
// Parameters:
//   - aspect: the aspect ratio to set
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's aspect ratio
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if aspect > 0 {
			c.aspect = aspect
		}
	}
}

// WithClipPlanes sets the near and far clipping plane distances.
//
// Parameters:
//   - near: near plane distance, must be positive
//   - far: far plane distance, must exceed near
//
// Returns:
//   - CameraBuilderOption: a function that sets the clip planes
func WithClipPlanes(near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if near > 0 && far > near {
			c.near = near
			c.far = far
		}
	}
}

// WithController attaches a controller to the camera.
// After all options are applied, the camera computes its matrices from the controller's pose.
//
// Parameters:
//   - ctrl: the controller to attach
//
// Returns:
//   - CameraBuilderOption: functional option to set the controller
func WithController(ctrl CameraController) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = ctrl
	}
}
