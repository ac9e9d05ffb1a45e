package bind_group_provider

import (
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	mu *sync.Mutex

	label string

	// GPU handles below are created by the Renderer and released through Release.
	bindGroup    *wgpu.BindGroup
	buffers      map[int]*wgpu.Buffer
	textureViews map[int]*wgpu.TextureView
	textures     map[int]*wgpu.Texture
	samplers     map[int]*wgpu.Sampler

	vertexBuffer *wgpu.Buffer
	indexBuffer  *wgpu.Buffer
	indexCount   int
}

// BindGroupProvider owns the GPU resources behind one bind group slot or one mesh.
//
// The camera, the point light and the atlas material each hold a provider describing a
// uniform or texture bind group. The atlas mesh holds a provider whose vertex and index
// buffers feed the draw call. The Renderer fills the handles in during its Init* calls;
// the owner only ever reads them back or releases them.
type BindGroupProvider interface {
	// Release frees every GPU handle held by the provider. Calling it more than once is safe.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Ready reports whether the Renderer has created either a bind group or mesh buffers.
	//
	// Returns:
	//   - bool: true once GPU resources exist
	Ready() bool

	// BindGroup returns the created bind group, or nil.
	BindGroup() *wgpu.BindGroup

	// Buffer returns the uniform or storage buffer at a binding, or nil.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// TextureView returns the texture view at a binding, or nil.
	TextureView(binding int) *wgpu.TextureView

	// Sampler returns the sampler at a binding, or nil.
	Sampler(binding int) *wgpu.Sampler

	// VertexBuffer returns the mesh vertex buffer, or nil.
	VertexBuffer() *wgpu.Buffer

	// IndexBuffer returns the mesh index buffer, or nil.
	IndexBuffer() *wgpu.Buffer

	// IndexCount returns the number of indices the draw call issues.
	IndexCount() int

	// SetBindGroup stores the bind group. Any previous bind group is released.
	SetBindGroup(bg *wgpu.BindGroup)

	// SetBuffer stores a buffer for a binding. Any previous buffer at that binding is released.
	SetBuffer(binding int, buf *wgpu.Buffer)

	// SetTexture stores a texture and the view sampled from it. Any previous pair at that
	// binding is released.
	//
	// Parameters:
	//   - binding: the binding index the view is bound to
	//   - tex: the texture backing the view
	//   - tv: the view
	SetTexture(binding int, tex *wgpu.Texture, tv *wgpu.TextureView)

	// SetSampler stores a sampler for a binding. Any previous sampler at that binding is released.
	SetSampler(binding int, s *wgpu.Sampler)

	// SetMesh stores the vertex and index buffers of a mesh together with its index count.
	// Any previous buffers are released.
	//
	// Parameters:
	//   - vertices: the vertex buffer
	//   - indices: the index buffer
	//   - count: the index count
	SetMesh(vertices, indices *wgpu.Buffer, count int)
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty provider with the given debug label.
//
// Parameters:
//   - label: the debug label used for GPU object names
//
// Returns:
//   - BindGroupProvider: the new provider
func NewBindGroupProvider(label string) BindGroupProvider {
	return &bindGroupProvider{
		mu:           &sync.Mutex{},
		label:        label,
		buffers:      make(map[int]*wgpu.Buffer),
		textureViews: make(map[int]*wgpu.TextureView),
		textures:     make(map[int]*wgpu.Texture),
		samplers:     make(map[int]*wgpu.Sampler),
	}
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bindGroup != nil || p.vertexBuffer != nil
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bindGroup
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffers[binding]
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.textureViews[binding]
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.samplers[binding]
}

func (p *bindGroupProvider) VertexBuffer() *wgpu.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vertexBuffer
}

func (p *bindGroupProvider) IndexBuffer() *wgpu.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.indexBuffer
}

func (p *bindGroupProvider) IndexCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.indexCount
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bindGroup != nil && p.bindGroup != bg {
		p.bindGroup.Release()
	}
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if old := p.buffers[binding]; old != nil && old != buf {
		old.Release()
	}
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) SetTexture(binding int, tex *wgpu.Texture, tv *wgpu.TextureView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if old := p.textureViews[binding]; old != nil && old != tv {
		old.Release()
	}
	if old := p.textures[binding]; old != nil && old != tex {
		old.Release()
	}
	p.textureViews[binding] = tv
	p.textures[binding] = tex
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if old := p.samplers[binding]; old != nil && old != s {
		old.Release()
	}
	p.samplers[binding] = s
}

func (p *bindGroupProvider) SetMesh(vertices, indices *wgpu.Buffer, count int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseMesh()
	p.vertexBuffer = vertices
	p.indexBuffer = indices
	p.indexCount = count
}

func (p *bindGroupProvider) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	// the bind group references the views, samplers and buffers, so it goes first
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	for i, tv := range p.textureViews {
		if tv != nil {
			tv.Release()
		}
		delete(p.textureViews, i)
	}
	for i, tex := range p.textures {
		if tex != nil {
			tex.Release()
		}
		delete(p.textures, i)
	}
	for i, s := range p.samplers {
		if s != nil {
			s.Release()
		}
		delete(p.samplers, i)
	}
	for i, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, i)
	}
	p.releaseMesh()
}

// releaseMesh must be called with the mutex held.
func (p *bindGroupProvider) releaseMesh() {
	if p.vertexBuffer != nil {
		p.vertexBuffer.Release()
		p.vertexBuffer = nil
	}
	if p.indexBuffer != nil {
		p.indexBuffer.Release()
		p.indexBuffer = nil
	}
	p.indexCount = 0
}
