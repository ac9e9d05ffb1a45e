package scene

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-atlas/engine/atlas"
	"github.com/Carmen-Shannon/oxy-atlas/engine/camera"
	"github.com/Carmen-Shannon/oxy-atlas/engine/light"
	"github.com/Carmen-Shannon/oxy-atlas/engine/loader"
	"github.com/Carmen-Shannon/oxy-atlas/engine/profiler"
	"github.com/Carmen-Shannon/oxy-atlas/engine/renderer"
	"github.com/Carmen-Shannon/oxy-atlas/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-atlas/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-atlas/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-atlas/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-atlas/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/atlas.wgsl
var atlasShaderBody string

// Pipeline keys of the atlas quads. Single-sided atlases cull back faces.
const (
	PipelineDoubleSided = "atlas_double_sided"
	PipelineSingleSided = "atlas_single_sided"
)

// Bind group indices of the atlas pipeline.
const (
	groupCamera = iota
	groupLight
	groupMaterial
)

var (
	// ErrNotMounted is returned by operations that need a window and renderer before Mount succeeded.
	ErrNotMounted = errors.New("scene runtime is not mounted")

	// ErrMissingTexture is returned by SetMesh when a non-empty mesh arrives without its atlas.
	ErrMissingTexture = errors.New("mesh has no atlas texture")
)

// ShaderSource returns the WGSL module used by the atlas pipelines: the shared struct
// definitions followed by the vertex and fragment entry points.
func ShaderSource() string {
	return camera.GPUCameraUniformSource + "\n" +
		light.GPUPointLightSource + "\n" +
		material.GPUMaterialParamsSource + "\n" +
		atlas.GPUVertexSource + "\n" +
		atlasShaderBody
}

// RendererFactory creates the renderer bound to a window's surface.
type RendererFactory func(w window.Window) (renderer.Renderer, error)

type pendingMesh struct {
	mesh    *atlas.Mesh
	texture *loader.AtlasTexture
}

type pointerState struct {
	mu       *sync.Mutex
	dragging bool
	button   window.MouseButton
	lastX    int32
	lastY    int32
}

type runtimeImpl struct {
	mu *sync.Mutex

	logger          *slog.Logger
	rendererFactory RendererFactory
	rendererOptions []renderer.RendererBuilderOption
	onFatal         func(error)
	frameLimit      time.Duration
	profiling       bool
	profiler        *profiler.Profiler

	cameraOptions     []camera.CameraBuilderOption
	controllerOptions []camera.CameraControllerOption
	lightOptions      []light.LightBuilderOption
	materialOptions   []material.MaterialBuilderOption

	mounted        bool
	w              window.Window
	r              renderer.Renderer
	cam            camera.Camera
	controls       camera.CameraController
	pointLight     light.Light
	materialLayout wgpu.BindGroupLayoutDescriptor

	meshProvider bind_group_provider.BindGroupProvider
	mat          material.Material
	pending      *pendingMesh
	resize       *[2]int

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	err     error

	pointer pointerState
}

// Runtime owns the 3D scene: the renderer, camera, trackball controls, light and the currently
// displayed atlas mesh. It drives a render loop on its own goroutine; all GPU uploads of a running
// runtime happen on that goroutine.
type Runtime interface {
	// Mount binds the runtime to a window. It creates the renderer, the camera with its trackball
	// controls, the light and the atlas pipelines, and installs the pointer bindings. Calling it
	// again after a successful mount does nothing.
	//
	// Parameters:
	//   - w: the window to render into
	//
	// Returns:
	//   - error: renderer creation or pipeline registration failure
	Mount(w window.Window) error

	// SetMesh replaces the displayed mesh and releases the GPU resources of the previous one.
	// A nil or empty mesh clears the scene. While the render loop runs the upload is deferred to
	// the start of the next frame and any failure stops the loop; otherwise it happens before
	// SetMesh returns.
	//
	// Parameters:
	//   - mesh: the atlas quads, or nil
	//   - tex: the atlas texture sampled by mesh
	//
	// Returns:
	//   - error: ErrNotMounted, ErrMissingTexture or an upload failure
	SetMesh(mesh *atlas.Mesh, tex *loader.AtlasTexture) error

	// Start launches the render loop. Starting a running loop does nothing.
	Start() error

	// Stop halts the render loop and waits for the in-flight frame. Safe to call at any time.
	Stop()

	// Running reports whether the render loop is active.
	Running() bool

	// Err returns the error that stopped the loop, or nil. Start clears it.
	Err() error

	// Resize reconfigures the surface and the camera aspect. While the loop runs the surface is
	// reconfigured at the start of the next frame.
	Resize(width, height int)

	// ResetView returns the trackball to its home pose.
	ResetView()

	// Camera returns the scene camera, or nil before Mount.
	Camera() camera.Camera

	// Controls returns the trackball controls, or nil before Mount.
	Controls() camera.CameraController

	// Light returns the scene light, or nil before Mount.
	Light() light.Light

	// Profiler returns the frame profiler.
	Profiler() *profiler.Profiler

	// Dispose stops the loop, releases every GPU resource and detaches from the window.
	// The runtime may be mounted again afterwards.
	Dispose()
}

var _ Runtime = &runtimeImpl{}

// NewRuntime creates an unmounted runtime.
//
// Parameters:
//   - options: functional options to configure the runtime
//
// Returns:
//   - Runtime: the runtime
func NewRuntime(options ...RuntimeBuilderOption) Runtime {
	rt := &runtimeImpl{
		mu:      &sync.Mutex{},
		logger:  slog.Default(),
		pointer: pointerState{mu: &sync.Mutex{}},
	}
	for _, option := range options {
		option(rt)
	}
	if rt.rendererFactory == nil {
		rt.rendererFactory = rt.newWGPURenderer
	}
	rt.profiler = profiler.NewProfiler(rt.logger)
	return rt
}

func (rt *runtimeImpl) newWGPURenderer(w window.Window) (renderer.Renderer, error) {
	opts := append([]renderer.RendererBuilderOption{renderer.WithLogger(rt.logger)}, rt.rendererOptions...)
	return renderer.NewRenderer(renderer.BackendTypeWGPU, w, opts...)
}

func (rt *runtimeImpl) Mount(w window.Window) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.mounted {
		return nil
	}
	if w == nil {
		return fmt.Errorf("mount: nil window")
	}

	r, err := rt.rendererFactory(w)
	if err != nil {
		return fmt.Errorf("mount: create renderer: %w", err)
	}

	pipelines, err := newAtlasPipelines()
	if err != nil {
		r.Release()
		return fmt.Errorf("mount: %w", err)
	}
	if err := r.RegisterPipelines(pipelines...); err != nil {
		r.Release()
		return fmt.Errorf("mount: %w", err)
	}
	layouts := pipelines[0].BindGroupLayoutDescriptors()

	controls := camera.NewTrackballController(rt.controllerOptions...)
	cameraOptions := append([]camera.CameraBuilderOption{camera.WithController(controls)}, rt.cameraOptions...)
	cam := camera.NewCamera(cameraOptions...)
	cam.SetViewport(w.Width(), w.Height())
	pointLight := light.NewPointLight(rt.lightOptions...)

	if err := r.InitBindGroup(cam.BindGroupProvider(), layouts[groupCamera], nil); err != nil {
		r.Release()
		return fmt.Errorf("mount: camera bind group: %w", err)
	}
	if err := r.InitBindGroup(pointLight.BindGroupProvider(), layouts[groupLight], nil); err != nil {
		cam.BindGroupProvider().Release()
		r.Release()
		return fmt.Errorf("mount: light bind group: %w", err)
	}

	rt.w = w
	rt.r = r
	rt.cam = cam
	rt.controls = controls
	rt.pointLight = pointLight
	rt.materialLayout = layouts[groupMaterial]
	rt.meshProvider = bind_group_provider.NewBindGroupProvider("atlas_mesh")
	rt.mounted = true
	rt.bindPointer(w)

	rt.logger.Debug("scene runtime mounted", "width", w.Width(), "height", w.Height())
	return nil
}

// newAtlasPipelines compiles the shared atlas module into the double and single sided pipelines.
func newAtlasPipelines() ([]pipeline.Pipeline, error) {
	source := ShaderSource()
	vs, err := shader.NewShader("atlas_vs", shader.ShaderTypeVertex, source)
	if err != nil {
		return nil, err
	}
	fs, err := shader.NewShader("atlas_fs", shader.ShaderTypeFragment, source)
	if err != nil {
		return nil, err
	}
	return []pipeline.Pipeline{
		pipeline.NewPipeline(PipelineDoubleSided,
			pipeline.WithVertexShader(vs),
			pipeline.WithFragmentShader(fs),
			pipeline.WithCullMode(wgpu.CullModeNone),
			pipeline.WithAlphaBlending(),
		),
		pipeline.NewPipeline(PipelineSingleSided,
			pipeline.WithVertexShader(vs),
			pipeline.WithFragmentShader(fs),
			pipeline.WithCullMode(wgpu.CullModeBack),
			pipeline.WithAlphaBlending(),
		),
	}, nil
}

func (rt *runtimeImpl) SetMesh(mesh *atlas.Mesh, tex *loader.AtlasTexture) error {
	if mesh != nil && !mesh.Empty() && tex == nil {
		return ErrMissingTexture
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	if !rt.mounted {
		return ErrNotMounted
	}
	p := &pendingMesh{mesh: mesh, texture: tex}
	if rt.running.Load() {
		rt.pending = p
		return nil
	}
	rt.pending = nil
	return rt.applyMesh(p)
}

// applyMesh uploads p and releases what it replaces. Caller must hold the mutex.
func (rt *runtimeImpl) applyMesh(p *pendingMesh) error {
	rt.meshProvider.Release()
	if rt.mat != nil {
		rt.mat.BindGroupProvider().Release()
		rt.mat = nil
	}

	if p.mesh == nil || p.mesh.Empty() {
		rt.logger.Debug("scene cleared")
		return nil
	}

	if err := rt.r.InitMeshBuffers(rt.meshProvider, p.mesh.VertexData(), p.mesh.IndexData(), p.mesh.IndexCount()); err != nil {
		return fmt.Errorf("upload mesh: %w", err)
	}

	opts := append([]material.MaterialBuilderOption{material.WithDoubleSided(p.texture.DoubleSided)}, rt.materialOptions...)
	mat := material.NewAtlasMaterial(p.texture.Staging, opts...)
	provider := mat.BindGroupProvider()
	if err := rt.r.InitTextureView(provider, material.BindingTexture, mat.Texture()); err != nil {
		rt.meshProvider.Release()
		return fmt.Errorf("upload atlas texture: %w", err)
	}
	if err := rt.r.InitSampler(provider, material.BindingSampler, mat.Sampler()); err != nil {
		provider.Release()
		rt.meshProvider.Release()
		return fmt.Errorf("upload atlas sampler: %w", err)
	}
	if err := rt.r.InitBindGroup(provider, rt.materialLayout, nil); err != nil {
		provider.Release()
		rt.meshProvider.Release()
		return fmt.Errorf("material bind group: %w", err)
	}
	params := mat.Params()
	rt.r.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: provider, Binding: material.BindingParams, Data: params.Marshal()},
	})
	rt.mat = mat

	rt.logger.Debug("scene mesh uploaded",
		"quads", p.mesh.QuadCount(),
		"indices", p.mesh.IndexCount(),
		"texture_width", p.texture.Staging.Width,
		"texture_height", p.texture.Staging.Height,
	)
	return nil
}

func (rt *runtimeImpl) Start() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if !rt.mounted {
		return ErrNotMounted
	}
	if rt.running.Load() {
		return nil
	}

	rt.err = nil
	rt.stopCh = make(chan struct{})
	rt.doneCh = make(chan struct{})
	rt.running.Store(true)
	go rt.loop(rt.stopCh, rt.doneCh)
	rt.logger.Debug("render loop started")
	return nil
}

func (rt *runtimeImpl) Stop() {
	rt.mu.Lock()
	stop, done := rt.stopCh, rt.doneCh
	rt.stopCh, rt.doneCh = nil, nil
	rt.running.Store(false)
	rt.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
	rt.logger.Debug("render loop stopped")
}

func (rt *runtimeImpl) Running() bool {
	return rt.running.Load()
}

func (rt *runtimeImpl) Err() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.err
}

// loop renders frames until stop closes or a frame fails.
func (rt *runtimeImpl) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			rt.fail(done, fmt.Errorf("render loop panic: %v", r))
		}
	}()

	last := time.Now()
	for {
		select {
		case <-stop:
			return
		default:
		}

		start := time.Now()
		dt := float32(start.Sub(last).Seconds())
		last = start

		if err := rt.frame(dt); err != nil {
			rt.fail(done, err)
			return
		}
		if rt.profiling {
			rt.profiler.Tick()
		}

		if rt.frameLimit > 0 {
			if remaining := rt.frameLimit - time.Since(start); remaining > 0 {
				select {
				case <-stop:
					return
				case <-time.After(remaining):
				}
			}
		}
	}
}

// fail records a fatal frame error and detaches the loop identified by done. The fatal error
// callback only fires when that loop was still attached; a loop Stop already claimed is being
// waited on and reports nothing.
func (rt *runtimeImpl) fail(done chan<- struct{}, err error) {
	rt.mu.Lock()
	rt.err = err
	detached := rt.doneCh == done
	if detached {
		rt.stopCh, rt.doneCh = nil, nil
		rt.running.Store(false)
	}
	callback := rt.onFatal
	rt.mu.Unlock()

	rt.logger.Error("render loop stopped", "error", err)
	if detached && callback != nil {
		callback(err)
	}
}

// frame applies pending work, draws the scene and advances the controls.
func (rt *runtimeImpl) frame(dt float32) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if !rt.mounted {
		return ErrNotMounted
	}

	if rt.resize != nil {
		size := *rt.resize
		rt.resize = nil
		if err := rt.r.Resize(size[0], size[1]); err != nil {
			return fmt.Errorf("resize: %w", err)
		}
	}
	if rt.pending != nil {
		p := rt.pending
		rt.pending = nil
		if err := rt.applyMesh(p); err != nil {
			return err
		}
	}

	rt.cam.Update()
	camUniform := rt.cam.Uniform()
	lightUniform := rt.pointLight.Uniform()
	rt.r.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: rt.cam.BindGroupProvider(), Binding: 0, Data: camUniform.Marshal()},
		{Provider: rt.pointLight.BindGroupProvider(), Binding: 0, Data: lightUniform.Marshal()},
	})

	if err := rt.r.BeginFrame(); err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}
	if rt.mat != nil {
		key := PipelineDoubleSided
		if rt.mat.CullMode() == wgpu.CullModeBack {
			key = PipelineSingleSided
		}
		bindGroups := []bind_group_provider.BindGroupProvider{
			rt.cam.BindGroupProvider(),
			rt.pointLight.BindGroupProvider(),
			rt.mat.BindGroupProvider(),
		}
		if err := rt.r.DrawCall(key, rt.meshProvider, bindGroups); err != nil {
			return fmt.Errorf("draw atlas: %w", err)
		}
	}
	if err := rt.r.EndFrame(); err != nil {
		return fmt.Errorf("end frame: %w", err)
	}
	rt.r.Present()

	rt.controls.Update(dt)
	return nil
}

func (rt *runtimeImpl) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if !rt.mounted {
		return
	}
	rt.cam.SetViewport(width, height)
	if rt.running.Load() {
		rt.resize = &[2]int{width, height}
		return
	}
	if err := rt.r.Resize(width, height); err != nil {
		rt.logger.Warn("resize failed", "width", width, "height", height, "error", err)
	}
}

func (rt *runtimeImpl) ResetView() {
	rt.mu.Lock()
	controls := rt.controls
	rt.mu.Unlock()
	if controls != nil {
		controls.Reset()
	}
}

func (rt *runtimeImpl) Camera() camera.Camera {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.cam
}

func (rt *runtimeImpl) Controls() camera.CameraController {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.controls
}

func (rt *runtimeImpl) Light() light.Light {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.pointLight
}

func (rt *runtimeImpl) Profiler() *profiler.Profiler {
	return rt.profiler
}

func (rt *runtimeImpl) Dispose() {
	rt.Stop()

	rt.mu.Lock()
	defer rt.mu.Unlock()
	if !rt.mounted {
		return
	}

	rt.unbindPointer(rt.w)
	if rt.mat != nil {
		rt.mat.BindGroupProvider().Release()
		rt.mat = nil
	}
	rt.meshProvider.Release()
	rt.cam.BindGroupProvider().Release()
	rt.pointLight.BindGroupProvider().Release()
	rt.r.Release()

	rt.pending = nil
	rt.resize = nil
	rt.w = nil
	rt.r = nil
	rt.cam = nil
	rt.controls = nil
	rt.pointLight = nil
	rt.mounted = false
	rt.logger.Debug("scene runtime disposed")
}
