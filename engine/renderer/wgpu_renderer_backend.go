package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-atlas/common"
	"github.com/Carmen-Shannon/oxy-atlas/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-atlas/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-atlas/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// clearColor is the background behind the atlas quads.
var clearColor = wgpu.Color{R: 0.06, G: 0.06, B: 0.08, A: 1.0}

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	logger *slog.Logger

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	surfaceFormat wgpu.TextureFormat
	presentMode   wgpu.PresentMode
	sampleCount   MSAASampleCount

	// size-dependent attachments, recreated by ConfigureSurface
	msaaTexture          *wgpu.Texture
	msaaTextureView      *wgpu.TextureView
	depthTexture         *wgpu.Texture
	depthTextureView     *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor

	// per-frame state between BeginFrame and Present
	frameEncoder *wgpu.CommandEncoder
	framePass    *wgpu.RenderPassEncoder
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, sampleCount MSAASampleCount, logger *slog.Logger) (*wgpuRendererBackendImpl, error) {
	runtime.LockOSThread()
	b := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		logger:      logger,
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
		sampleCount: sampleCount,
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	adapter, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	b.adapter = adapter
	logger.Info("gpu adapter selected", "fallback", forceFallbackAdapter)

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "oxy-atlas device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	b.device = device
	b.queue = device.GetQueue()
	return b, nil
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	if len(capabilities.Formats) == 0 || len(capabilities.AlphaModes) == 0 {
		return errors.New("surface reports no supported formats")
	}
	b.surfaceFormat = capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	b.releaseAttachments()
	count := uint32(b.sampleCount)
	size := wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1}

	var err error
	if count > 1 {
		// the pass draws into the multisampled texture and resolves into the swapchain view
		b.msaaTexture, b.msaaTextureView, err = b.createAttachment("msaa", size, count, b.surfaceFormat)
		if err != nil {
			return err
		}
	}
	// depth sample count must match the color attachment
	b.depthTexture, b.depthTextureView, err = b.createAttachment("depth", size, count, wgpu.TextureFormatDepth24Plus)
	if err != nil {
		return err
	}

	storeOp := wgpu.StoreOpStore
	if count > 1 {
		storeOp = wgpu.StoreOpDiscard
	}
	b.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       b.msaaTextureView, // nil without MSAA, set in BeginFrame
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    storeOp,
			ClearValue: clearColor,
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthTextureView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	}
	b.logger.Debug("surface configured", "width", width, "height", height, "samples", count)
	return nil
}

func (b *wgpuRendererBackendImpl) createAttachment(label string, size wgpu.Extent3D, samples uint32, format wgpu.TextureFormat) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create %s attachment: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, fmt.Errorf("create %s attachment view: %w", label, err)
	}
	return tex, view, nil
}

// releaseAttachments must be called with the mutex held.
func (b *wgpuRendererBackendImpl) releaseAttachments() {
	for _, v := range []*wgpu.TextureView{b.msaaTextureView, b.depthTextureView} {
		if v != nil {
			v.Release()
		}
	}
	for _, t := range []*wgpu.Texture{b.msaaTexture, b.depthTexture} {
		if t != nil {
			t.Release()
		}
	}
	b.msaaTexture, b.msaaTextureView = nil, nil
	b.depthTexture, b.depthTextureView = nil, nil
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeUncapped:
		b.presentMode = wgpu.PresentModeImmediate
	default:
		b.presentMode = wgpu.PresentModeFifo
	}
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)

	vs, err := b.device.CreateShaderModule(vertexShader.Module())
	if err != nil {
		return fmt.Errorf("compile %s: %w", vertexShader.Key(), err)
	}
	defer vs.Release()
	fs, err := b.device.CreateShaderModule(fragmentShader.Module())
	if err != nil {
		return fmt.Errorf("compile %s: %w", fragmentShader.Key(), err)
	}
	defer fs.Release()

	descriptors := p.BindGroupLayoutDescriptors()
	layouts := make([]*wgpu.BindGroupLayout, len(descriptors))
	defer func() {
		for _, l := range layouts {
			if l != nil {
				l.Release()
			}
		}
	}()
	for g := range descriptors {
		layouts[g], err = b.device.CreateBindGroupLayout(&descriptors[g])
		if err != nil {
			return fmt.Errorf("bind group layout %d: %w", g, err)
		}
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return err
	}
	defer pipelineLayout.Release()

	depthCompare := wgpu.CompareFunctionLess
	if !p.DepthTestEnabled() {
		depthCompare = wgpu.CompareFunctionAlways
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey(),
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
			Buffers:    vertexShader.VertexLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets: []wgpu.ColorTargetState{{
				Format:    b.surfaceFormat,
				WriteMask: p.WriteMask(),
				Blend:     p.BlendState(),
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(b.sampleCount),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: p.DepthWriteEnabled(),
			DepthCompare:      depthCompare,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
	})
	if err != nil {
		return err
	}
	p.SetRenderPipeline(created)
	return nil
}

func (b *wgpuRendererBackendImpl) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(vertexData) == 0 || indexCount == 0 {
		provider.SetMesh(nil, nil, 0)
		return nil
	}
	vertices, err := b.uploadBuffer(provider.Label()+" vertices", vertexData, wgpu.BufferUsageVertex|wgpu.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	indices, err := b.uploadBuffer(provider.Label()+" indices", indexData, wgpu.BufferUsageIndex|wgpu.BufferUsageCopyDst)
	if err != nil {
		vertices.Release()
		return err
	}
	provider.SetMesh(vertices, indices, indexCount)
	return nil
}

// uploadBuffer must be called with the mutex held.
func (b *wgpuRendererBackendImpl) uploadBuffer(label string, data []byte, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %s: %w", label, err)
	}
	b.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

func (b *wgpuRendererBackendImpl) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferSizeOverrides map[int]uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(descriptor.Entries) == 0 {
		return nil
	}

	entries := make([]wgpu.BindGroupEntry, len(descriptor.Entries))
	for i, entry := range descriptor.Entries {
		binding := int(entry.Binding)
		switch {
		case entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
			tv := provider.TextureView(binding)
			if tv == nil {
				return fmt.Errorf("%s: texture binding %d has no view", provider.Label(), binding)
			}
			entries[i] = wgpu.BindGroupEntry{Binding: entry.Binding, TextureView: tv}
		case entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
			s := provider.Sampler(binding)
			if s == nil {
				return fmt.Errorf("%s: sampler binding %d has no sampler", provider.Label(), binding)
			}
			entries[i] = wgpu.BindGroupEntry{Binding: entry.Binding, Sampler: s}
		default:
			buf := provider.Buffer(binding)
			if buf == nil {
				size := entry.Buffer.MinBindingSize
				if override, ok := bufferSizeOverrides[binding]; ok {
					size = override
				}
				usage := wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
				if entry.Buffer.Type != wgpu.BufferBindingTypeUniform {
					usage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
				}
				var err error
				buf, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
					Label: fmt.Sprintf("%s binding %d", provider.Label(), binding),
					Size:  size,
					Usage: usage,
				})
				if err != nil {
					return err
				}
				provider.SetBuffer(binding, buf)
			}
			entries[i] = wgpu.BindGroupEntry{Binding: entry.Binding, Buffer: buf, Size: wgpu.WholeSize}
		}
	}

	layout, err := b.device.CreateBindGroupLayout(&descriptor)
	if err != nil {
		return err
	}
	defer layout.Release()

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label(),
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return err
	}
	provider.SetBindGroup(bindGroup)
	return nil
}

func (b *wgpuRendererBackendImpl) InitTextureView(provider bind_group_provider.BindGroupProvider, binding int, stagingData common.TextureStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	size := wgpu.Extent3D{Width: stagingData.Width, Height: stagingData.Height, DepthOrArrayLayers: 1}
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         provider.Label() + " texture",
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		Size:          size,
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return err
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: tex, Aspect: wgpu.TextureAspectAll},
		stagingData.Pixels,
		&wgpu.TextureDataLayout{
			BytesPerRow:  stagingData.Width * 4,
			RowsPerImage: stagingData.Height,
		},
		&size,
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return err
	}
	provider.SetTexture(binding, tex, view)
	return nil
}

func (b *wgpuRendererBackendImpl) InitSampler(provider bind_group_provider.BindGroupProvider, binding int, data common.SamplerStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         provider.Label() + " sampler",
		AddressModeU:  common.Coalesce(data.AddressModeU, wgpu.AddressModeClampToEdge),
		AddressModeV:  common.Coalesce(data.AddressModeV, wgpu.AddressModeClampToEdge),
		AddressModeW:  common.Coalesce(data.AddressModeW, wgpu.AddressModeClampToEdge),
		MagFilter:     common.Coalesce(data.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(data.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(data.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   data.LodMinClamp,
		LodMaxClamp:   common.Coalesce(data.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(data.MaxAnisotropy, 1),
	})
	if err != nil {
		return err
	}
	provider.SetSampler(binding, s)
	return nil
}

func (b *wgpuRendererBackendImpl) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, w := range writes {
		if buf := w.Provider.Buffer(w.Binding); buf != nil {
			b.queue.WriteBuffer(buf, w.Offset, w.Data)
		}
	}
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface != nil {
		return errors.New("previous frame not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("acquire surface texture: %w", err)
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	if b.sampleCount > 1 {
		b.renderPassDescriptor.ColorAttachments[0].ResolveTarget = view
	} else {
		b.renderPassDescriptor.ColorAttachments[0].View = view
	}

	b.frameEncoder = encoder
	b.framePass = encoder.BeginRenderPass(b.renderPassDescriptor)
	b.frameSurface = surfaceTexture
	b.frameView = view
	return nil
}

func (b *wgpuRendererBackendImpl) DrawCall(p pipeline.Pipeline, mesh bind_group_provider.BindGroupProvider, bindGroups []bind_group_provider.BindGroupProvider) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return errors.New("draw call outside a frame")
	}
	rp := p.RenderPipeline()
	if rp == nil {
		return fmt.Errorf("pipeline %s has no GPU pipeline", p.PipelineKey())
	}

	b.framePass.SetPipeline(rp)
	for i, bg := range bindGroups {
		b.framePass.SetBindGroup(uint32(i), bg.BindGroup(), nil)
	}
	b.framePass.SetVertexBuffer(0, mesh.VertexBuffer(), 0, wgpu.WholeSize)
	b.framePass.SetIndexBuffer(mesh.IndexBuffer(), wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	b.framePass.DrawIndexed(uint32(mesh.IndexCount()), 1, 0, 0, 0)
	return nil
}

func (b *wgpuRendererBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.framePass == nil {
		return errors.New("end frame without begin frame")
	}
	b.framePass.End()
	b.framePass = nil

	commandBuffer, err := b.frameEncoder.Finish(nil)
	b.frameEncoder.Release()
	b.frameEncoder = nil
	if err != nil {
		b.releaseFrameSurface()
		return fmt.Errorf("finish frame: %w", err)
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return
	}
	b.surface.Present()
	b.releaseFrameSurface()
}

// releaseFrameSurface must be called with the mutex held.
func (b *wgpuRendererBackendImpl) releaseFrameSurface() {
	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseFrameSurface()
	b.releaseAttachments()
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}
