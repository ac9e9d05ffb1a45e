package camera

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-atlas/common"
	"github.com/Carmen-Shannon/oxy-atlas/engine/renderer/bind_group_provider"
	"github.com/chewxy/math32"
)

// Default perspective settings of the viewer camera.
const (
	DefaultFov  = math32.Pi / 2 // 90 degrees
	DefaultNear = 0.1
	DefaultFar  = 10000.0
)

// cameraCount is an atomic counter used to generate unique bind group provider names for each camera instance.
var cameraCount atomic.Uint64

type cameraImpl struct {
	mu *sync.Mutex

	fov    float32
	aspect float32
	near   float32
	far    float32

	position             common.Vec3
	viewMatrix           [16]float32
	projectionMatrix     [16]float32
	viewProjectionMatrix [16]float32

	controller        CameraController
	bindGroupProvider bind_group_provider.BindGroupProvider
}

// Camera is a perspective camera. It holds the projection settings and derives the view
// from an attached CameraController each time Update is called.
type Camera interface {
	// Fov returns the vertical field of view in radians.
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// Position returns the eye position captured by the last Update.
	Position() common.Vec3

	// ViewMatrix returns the current 4x4 view matrix (column-major).
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the current 4x4 projection matrix (column-major).
	ProjectionMatrix() [16]float32

	// ViewProjectionMatrix returns projection * view (column-major).
	ViewProjectionMatrix() [16]float32

	// Uniform packs the current matrices into the layout the shaders read.
	//
	// Returns:
	//   - GPUCameraUniform: the view-projection matrix and eye position
	Uniform() GPUCameraUniform

	// Controller returns the attached CameraController, or nil.
	Controller() CameraController

	// BindGroupProvider returns the provider holding the camera uniform buffer.
	BindGroupProvider() bind_group_provider.BindGroupProvider

	// Update reads the controller pose and recomputes the matrices. Without a controller it does nothing.
	Update()

	// SetFov sets the vertical field of view in radians and recomputes matrices.
	SetFov(fov float32)

	// SetAspect sets the aspect ratio and recomputes matrices.
	SetAspect(aspect float32)

	// SetViewport sets the aspect ratio from a canvas size and forwards the size to the controller.
	// Zero-sized canvases are ignored.
	//
	// Parameters:
	//   - width, height: canvas size in pixels
	SetViewport(width, height int)

	// SetNear sets the near clipping plane distance and recomputes matrices.
	SetNear(near float32)

	// SetFar sets the far clipping plane distance and recomputes matrices.
	SetFar(far float32)

	// SetController attaches a CameraController and recomputes matrices.
	SetController(ctrl CameraController)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a perspective camera with a 90 degree field of view, near plane 0.1 and
// far plane 10000.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:     &sync.Mutex{},
		fov:    DefaultFov,
		aspect: 1.0,
		near:   DefaultNear,
		far:    DefaultFar,
		bindGroupProvider: bind_group_provider.NewBindGroupProvider(
			"camera_" + strconv.FormatUint(cameraCount.Add(1)-1, 10),
		),
	}
	common.Identity(c.viewMatrix[:])
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Position() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) Uniform() GPUCameraUniform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return GPUCameraUniform{
		ViewProj:       c.viewProjectionMatrix,
		CameraPosition: c.position.Array(),
	}
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) BindGroupProvider() bind_group_provider.BindGroupProvider {
	return c.bindGroupProvider
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return
	}
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetViewport(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = float32(width) / float32(height)
	if c.controller != nil {
		c.controller.SetViewport(width, height)
	}
	c.updateMatrices()
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.updateMatrices()
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
	c.updateMatrices()
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
	c.updateMatrices()
}

// updateMatrices recomputes projection always and the view when a controller is attached.
// Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	if c.controller != nil {
		c.position = c.controller.Position()
		common.LookAt(c.viewMatrix[:], c.position, c.controller.Target(), c.controller.Up())
	}
	common.Perspective(c.projectionMatrix[:], c.fov, c.aspect, c.near, c.far)
	common.Mul4(c.viewProjectionMatrix[:], c.projectionMatrix[:], c.viewMatrix[:])
}
