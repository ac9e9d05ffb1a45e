package renderer

import (
	"github.com/Carmen-Shannon/oxy-atlas/common"
	"github.com/Carmen-Shannon/oxy-atlas/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-atlas/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the vertical blank before presenting. No tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents immediately. Lowest latency, may tear.
	PresentModeUncapped
)

// ParsePresentMode maps a configuration string to a PresentMode. Unknown values select VSync.
//
// Parameters:
//   - s: "vsync" or "uncapped"
//
// Returns:
//   - PresentMode: the matching mode
func ParsePresentMode(s string) PresentMode {
	if s == "uncapped" || s == "immediate" {
		return PresentModeUncapped
	}
	return PresentModeVSync
}

// MSAASampleCount is the number of samples per pixel of the main render pass.
// WebGPU guarantees 1 and 4; other counts depend on the adapter.
type MSAASampleCount uint32

const (
	MSAAOff MSAASampleCount = 1
	MSAA4x  MSAASampleCount = 4
)

// RendererBackend is the GPU API behind a Renderer. Every call happens on GPU objects owned by the
// backend; the Renderer adds the pipeline cache and argument checking on top.
type RendererBackend interface {
	// ConfigureSurface (re)creates the swapchain and the size-dependent attachments.
	ConfigureSurface(width, height int) error

	SetPresentMode(mode PresentMode)

	// RegisterRenderPipeline compiles the pipeline's shaders and stores the GPU pipeline on it.
	RegisterRenderPipeline(p pipeline.Pipeline) error

	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferSizeOverrides map[int]uint64) error
	InitTextureView(provider bind_group_provider.BindGroupProvider, binding int, stagingData common.TextureStagingData) error
	InitSampler(provider bind_group_provider.BindGroupProvider, binding int, samplerStagingData common.SamplerStagingData) error
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	BeginFrame() error
	DrawCall(p pipeline.Pipeline, mesh bind_group_provider.BindGroupProvider, bindGroups []bind_group_provider.BindGroupProvider) error
	EndFrame() error
	Present()

	// Release frees the device and everything created from it.
	Release()
}
