package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-atlas/common"
	"github.com/Carmen-Shannon/oxy-atlas/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-atlas/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-atlas/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrReleased is returned by every GPU call made after Release.
var ErrReleased = errors.New("renderer: released")

type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend
	released    bool

	logger *slog.Logger

	// construction settings collected from builder options
	forceFallbackAdapter bool
	presentMode          PresentMode
	msaa                 MSAASampleCount
}

// Renderer draws indexed meshes with registered pipelines onto a window surface.
//
// A frame is BeginFrame, any number of DrawCall, EndFrame and Present. Resources are created
// through the Init* calls, which store the GPU handles on a BindGroupProvider owned by the caller.
type Renderer interface {
	// Pipeline returns the registered pipeline with the given key, or nil.
	//
	// Parameters:
	//   - key: the pipeline key
	//
	// Returns:
	//   - pipeline.Pipeline: the pipeline or nil
	Pipeline(key string) pipeline.Pipeline

	// RegisterPipelines validates and creates the GPU pipeline for each argument, then caches
	// it under its key. Keys already registered are skipped.
	//
	// Parameters:
	//   - pipelines: the pipelines to register
	//
	// Returns:
	//   - error: the first validation or creation failure
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// Resize reconfigures the surface. Zero-sized surfaces are ignored.
	//
	// Parameters:
	//   - width, height: the new surface size in pixels
	//
	// Returns:
	//   - error: if the size-dependent attachments cannot be created
	Resize(width, height int) error

	// SetPresentMode changes the present mode from the next Resize on.
	SetPresentMode(mode PresentMode)

	// InitMeshBuffers uploads vertex and index data into new buffers stored on provider.
	// Buffers the provider held before are released.
	//
	// Parameters:
	//   - provider: the mesh provider
	//   - vertexData: packed vertices
	//   - indexData: packed uint32 indices
	//   - indexCount: the number of indices to draw
	//
	// Returns:
	//   - error: if a buffer cannot be created
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error

	// InitBindGroup creates the bind group described by descriptor. Buffers are created for buffer
	// entries the provider does not yet hold, sized from MinBindingSize unless overridden.
	// Texture and sampler entries must have been initialized first.
	//
	// Parameters:
	//   - provider: the provider receiving the bind group
	//   - descriptor: the layout, usually taken from Pipeline.BindGroupLayoutDescriptors
	//   - bufferSizeOverrides: buffer sizes keyed by binding (nil safe)
	//
	// Returns:
	//   - error: if an entry is missing its resource or creation fails
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferSizeOverrides map[int]uint64) error

	// InitTextureView uploads RGBA pixels into a new texture and stores its view at binding.
	//
	// Parameters:
	//   - provider: the provider receiving the texture
	//   - binding: the binding index of the view
	//   - stagingData: pixels and size
	//
	// Returns:
	//   - error: if the staging data is inconsistent or creation fails
	InitTextureView(provider bind_group_provider.BindGroupProvider, binding int, stagingData common.TextureStagingData) error

	// InitSampler creates a sampler at binding. Zero fields of samplerStagingData select
	// clamp-to-edge addressing and linear filtering.
	InitSampler(provider bind_group_provider.BindGroupProvider, binding int, samplerStagingData common.SamplerStagingData) error

	// WriteBuffers queues uniform writes. Writes targeting a missing buffer are dropped.
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// BeginFrame acquires the next surface texture and opens the render pass.
	BeginFrame() error

	// DrawCall draws mesh with the pipeline registered under pipelineKey. bindGroups[i] is bound
	// to group i. A mesh with no indices draws nothing.
	//
	// Parameters:
	//   - pipelineKey: the registered pipeline key
	//   - mesh: the provider holding vertex and index buffers
	//   - bindGroups: providers bound in group order
	//
	// Returns:
	//   - error: if the pipeline is unknown or a bind group is not initialized
	DrawCall(pipelineKey string, mesh bind_group_provider.BindGroupProvider, bindGroups []bind_group_provider.BindGroupProvider) error

	// EndFrame closes the render pass and submits the frame's commands.
	EndFrame() error

	// Present shows the submitted frame.
	Present()

	// Release frees the registered pipelines and the GPU device. The renderer is unusable afterwards.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a renderer drawing onto w's surface.
//
// Parameters:
//   - backendType: the GPU backend to use
//   - w: the window providing the surface and its initial size
//   - options: renderer options
//
// Returns:
//   - Renderer: the renderer
//   - error: if no adapter or device is available or the surface cannot be configured
func NewRenderer(backendType RendererBackendType, w window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := newRenderer(backendType, options...)

	var backend RendererBackend
	switch backendType {
	case BackendTypeWGPU:
		b, err := newWGPURendererBackend(w.SurfaceDescriptor(), r.forceFallbackAdapter, r.msaa, r.logger)
		if err != nil {
			return nil, fmt.Errorf("create wgpu backend: %w", err)
		}
		backend = b
	default:
		return nil, fmt.Errorf("unknown renderer backend %d", backendType)
	}

	if err := r.attach(backend, w.Width(), w.Height()); err != nil {
		backend.Release()
		return nil, err
	}
	return r, nil
}

func newRenderer(backendType RendererBackendType, options ...RendererBuilderOption) *renderer {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
		logger:        slog.Default(),
		presentMode:   PresentModeVSync,
		msaa:          MSAA4x,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// attach installs the backend and performs the first surface configuration.
func (r *renderer) attach(backend RendererBackend, width, height int) error {
	r.backend = backend
	backend.SetPresentMode(r.presentMode)
	if err := backend.ConfigureSurface(max(width, 1), max(height, 1)); err != nil {
		return fmt.Errorf("configure surface: %w", err)
	}
	return nil
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return ErrReleased
	}
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		if err := p.Validate(); err != nil {
			return err
		}
		if err := r.backend.RegisterRenderPipeline(p); err != nil {
			return fmt.Errorf("register pipeline %s: %w", key, err)
		}
		r.pipelineCache[key] = p
	}
	return nil
}

func (r *renderer) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return ErrReleased
	}
	return r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presentMode = mode
	if !r.released {
		r.backend.SetPresentMode(mode)
	}
}

func (r *renderer) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	if indexCount < 0 || len(indexData) < indexCount*4 {
		return fmt.Errorf("%s: %d index bytes cannot hold %d indices", provider.Label(), len(indexData), indexCount)
	}
	if err := r.live(); err != nil {
		return err
	}
	return r.backend.InitMeshBuffers(provider, vertexData, indexData, indexCount)
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferSizeOverrides map[int]uint64) error {
	if err := r.live(); err != nil {
		return err
	}
	return r.backend.InitBindGroup(provider, descriptor, bufferSizeOverrides)
}

func (r *renderer) InitTextureView(provider bind_group_provider.BindGroupProvider, binding int, stagingData common.TextureStagingData) error {
	want := int(stagingData.Width) * int(stagingData.Height) * 4
	if want == 0 || len(stagingData.Pixels) != want {
		return fmt.Errorf("%s: texture %dx%d needs %d bytes, got %d",
			provider.Label(), stagingData.Width, stagingData.Height, want, len(stagingData.Pixels))
	}
	if err := r.live(); err != nil {
		return err
	}
	return r.backend.InitTextureView(provider, binding, stagingData)
}

func (r *renderer) InitSampler(provider bind_group_provider.BindGroupProvider, binding int, samplerStagingData common.SamplerStagingData) error {
	if err := r.live(); err != nil {
		return err
	}
	return r.backend.InitSampler(provider, binding, samplerStagingData)
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	if r.live() != nil {
		return
	}
	r.backend.WriteBuffers(writes)
}

func (r *renderer) BeginFrame() error {
	if err := r.live(); err != nil {
		return err
	}
	return r.backend.BeginFrame()
}

func (r *renderer) DrawCall(pipelineKey string, mesh bind_group_provider.BindGroupProvider, bindGroups []bind_group_provider.BindGroupProvider) error {
	r.mu.Lock()
	p, exists := r.pipelineCache[pipelineKey]
	released := r.released
	r.mu.Unlock()

	if released {
		return ErrReleased
	}
	if !exists {
		return fmt.Errorf("render pipeline %q not registered", pipelineKey)
	}
	if mesh == nil || mesh.IndexCount() == 0 {
		return nil
	}
	for i, bg := range bindGroups {
		if bg.BindGroup() == nil {
			return fmt.Errorf("bind group %d (%s) not initialized", i, bg.Label())
		}
	}
	return r.backend.DrawCall(p, mesh, bindGroups)
}

func (r *renderer) EndFrame() error {
	if err := r.live(); err != nil {
		return err
	}
	return r.backend.EndFrame()
}

func (r *renderer) Present() {
	if r.live() != nil {
		return
	}
	r.backend.Present()
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	r.released = true
	for key, p := range r.pipelineCache {
		p.Release()
		delete(r.pipelineCache, key)
	}
	r.backend.Release()
}

func (r *renderer) live() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return ErrReleased
	}
	return nil
}
