package scene

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-atlas/common"
	"github.com/Carmen-Shannon/oxy-atlas/engine/atlas"
	"github.com/Carmen-Shannon/oxy-atlas/engine/loader"
	"github.com/Carmen-Shannon/oxy-atlas/engine/renderer"
	"github.com/Carmen-Shannon/oxy-atlas/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-atlas/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-atlas/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-atlas/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRenderer struct {
	mu *sync.Mutex

	pipelines  map[string]pipeline.Pipeline
	resized    [][2]int
	meshes     int
	textures   int
	bindGroups []string
	frames     int
	draws      []string
	released   bool

	beginErr error
	panicOn  int
}

var _ renderer.Renderer = &fakeRenderer{}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{mu: &sync.Mutex{}, pipelines: make(map[string]pipeline.Pipeline)}
}

func (f *fakeRenderer) Pipeline(key string) pipeline.Pipeline {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pipelines[key]
}

func (f *fakeRenderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range pipelines {
		if err := p.Validate(); err != nil {
			return err
		}
		f.pipelines[p.PipelineKey()] = p
	}
	return nil
}

func (f *fakeRenderer) Resize(width, height int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resized = append(f.resized, [2]int{width, height})
	return nil
}

func (f *fakeRenderer) SetPresentMode(renderer.PresentMode) {}

func (f *fakeRenderer) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, _, _ []byte, indexCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meshes++
	provider.SetMesh(nil, nil, indexCount)
	return nil
}

func (f *fakeRenderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, _ wgpu.BindGroupLayoutDescriptor, _ map[int]uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bindGroups = append(f.bindGroups, provider.Label())
	return nil
}

func (f *fakeRenderer) InitTextureView(bind_group_provider.BindGroupProvider, int, common.TextureStagingData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.textures++
	return nil
}

func (f *fakeRenderer) InitSampler(bind_group_provider.BindGroupProvider, int, common.SamplerStagingData) error {
	return nil
}

func (f *fakeRenderer) WriteBuffers([]bind_group_provider.BufferWrite) {}

func (f *fakeRenderer) BeginFrame() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames++
	if f.panicOn > 0 && f.frames == f.panicOn {
		panic("device lost")
	}
	return f.beginErr
}

func (f *fakeRenderer) DrawCall(key string, _ bind_group_provider.BindGroupProvider, _ []bind_group_provider.BindGroupProvider) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draws = append(f.draws, key)
	return nil
}

func (f *fakeRenderer) EndFrame() error { return nil }
func (f *fakeRenderer) Present()        {}

func (f *fakeRenderer) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = true
}

func (f *fakeRenderer) snapshot() (frames int, draws []string, meshes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames, append([]string(nil), f.draws...), f.meshes
}

type fakeWindow struct {
	width, height int
	mouseDown     func(window.MouseButton, int32, int32)
	mouseUp       func(window.MouseButton, int32, int32)
	mouseMove     func(int32, int32)
	scroll        func(float32)
}

var _ window.Window = &fakeWindow{}

func (w *fakeWindow) SetUpdateCallback(func())                   {}
func (w *fakeWindow) SetResizeCallback(func(int, int))           {}
func (w *fakeWindow) SetScrollCallback(cb func(float32))         { w.scroll = cb }
func (w *fakeWindow) SetKeyDownCallback(func(uint32))            {}
func (w *fakeWindow) SetKeyUpCallback(func(uint32))              {}
func (w *fakeWindow) SetMouseMoveCallback(cb func(x, y int32))   { w.mouseMove = cb }
func (w *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor { return nil }
func (w *fakeWindow) IsRunning() bool                            { return true }
func (w *fakeWindow) Close() error                               { return nil }
func (w *fakeWindow) ProcessMessages()                           {}
func (w *fakeWindow) Width() int                                 { return w.width }
func (w *fakeWindow) Height() int                                { return w.height }
func (w *fakeWindow) SetMouseDownCallback(cb func(window.MouseButton, int32, int32)) {
	w.mouseDown = cb
}
func (w *fakeWindow) SetMouseUpCallback(cb func(window.MouseButton, int32, int32)) {
	w.mouseUp = cb
}

func mounted(t *testing.T, opts ...RuntimeBuilderOption) (Runtime, *fakeRenderer, *fakeWindow) {
	t.Helper()
	fr := newFakeRenderer()
	fw := &fakeWindow{width: 800, height: 600}
	opts = append([]RuntimeBuilderOption{
		WithRendererFactory(func(window.Window) (renderer.Renderer, error) { return fr, nil }),
		WithFrameLimit(500),
	}, opts...)
	rt := NewRuntime(opts...)
	require.NoError(t, rt.Mount(fw))
	t.Cleanup(rt.Dispose)
	return rt, fr, fw
}

func testMesh(t *testing.T, n int) (*atlas.Mesh, *loader.AtlasTexture) {
	t.Helper()
	points := make([]atlas.Point, n)
	for i := range points {
		points[i] = atlas.Point{X: float32(i) * 40}
	}
	layout := atlas.Compute(n, 32)
	mesh, err := atlas.Build(points, layout)
	require.NoError(t, err)
	tex := &loader.AtlasTexture{
		Staging: common.TextureStagingData{
			Pixels: make([]byte, layout.AtlasWidth*layout.AtlasHeight*4),
			Width:  uint32(layout.AtlasWidth),
			Height: uint32(layout.AtlasHeight),
		},
		Format:      "png",
		DoubleSided: true,
	}
	return mesh, tex
}

func TestShaderSourceLayouts(t *testing.T) {
	vs, err := shader.NewShader("vs", shader.ShaderTypeVertex, ShaderSource())
	require.NoError(t, err)
	fs, err := shader.NewShader("fs", shader.ShaderTypeFragment, ShaderSource())
	require.NoError(t, err)

	assert.Equal(t, "vs_main", vs.EntryPoint())
	assert.Equal(t, "fs_main", fs.EntryPoint())
	layouts := vs.VertexLayouts()
	require.Len(t, layouts, 1)
	assert.Equal(t, uint64(atlas.GPUVertexSize), layouts[0].ArrayStride)

	p := pipeline.NewPipeline("atlas", pipeline.WithVertexShader(vs), pipeline.WithFragmentShader(fs))
	groups := p.BindGroupLayoutDescriptors()
	require.Len(t, groups, 3)
	assert.Len(t, groups[groupCamera].Entries, 1)
	assert.Len(t, groups[groupLight].Entries, 1)
	assert.Len(t, groups[groupMaterial].Entries, 3)
	assert.Equal(t, uint64(80), groups[groupCamera].Entries[0].Buffer.MinBindingSize)
	assert.Equal(t, uint64(32), groups[groupLight].Entries[0].Buffer.MinBindingSize)
}

func TestMountIsIdempotent(t *testing.T) {
	calls := 0
	fr := newFakeRenderer()
	rt := NewRuntime(WithRendererFactory(func(window.Window) (renderer.Renderer, error) {
		calls++
		return fr, nil
	}))
	defer rt.Dispose()
	fw := &fakeWindow{width: 800, height: 600}

	require.NoError(t, rt.Mount(fw))
	require.NoError(t, rt.Mount(fw))
	assert.Equal(t, 1, calls)
	assert.NotNil(t, fr.Pipeline(PipelineDoubleSided))
	assert.NotNil(t, fr.Pipeline(PipelineSingleSided))
	assert.Len(t, fr.bindGroups, 2, "camera and light")
	assert.InDelta(t, 800.0/600.0, rt.Camera().Aspect(), 1e-6)
}

func TestMountRendererFailure(t *testing.T) {
	rt := NewRuntime(WithRendererFactory(func(window.Window) (renderer.Renderer, error) {
		return nil, errors.New("no adapter")
	}))
	err := rt.Mount(&fakeWindow{width: 1, height: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no adapter")
	assert.ErrorIs(t, rt.Start(), ErrNotMounted)
}

func TestOperationsBeforeMount(t *testing.T) {
	rt := NewRuntime()
	mesh, tex := testMesh(t, 1)
	assert.ErrorIs(t, rt.SetMesh(mesh, tex), ErrNotMounted)
	assert.ErrorIs(t, rt.Start(), ErrNotMounted)
	rt.Stop()
	rt.Stop()
	assert.False(t, rt.Running())
	assert.Nil(t, rt.Camera())
	rt.Dispose()
}

func TestSetMeshWhileStoppedUploadsImmediately(t *testing.T) {
	rt, fr, _ := mounted(t)
	mesh, tex := testMesh(t, 3)

	require.NoError(t, rt.SetMesh(mesh, tex))
	_, _, meshes := fr.snapshot()
	assert.Equal(t, 1, meshes)
	assert.Equal(t, 1, fr.textures)
	assert.Len(t, fr.bindGroups, 3)
}

func TestSetMeshRequiresTexture(t *testing.T) {
	rt, _, _ := mounted(t)
	mesh, _ := testMesh(t, 2)
	assert.ErrorIs(t, rt.SetMesh(mesh, nil), ErrMissingTexture)
	assert.NoError(t, rt.SetMesh(nil, nil))
}

func TestRenderLoopDrawsMesh(t *testing.T) {
	rt, fr, _ := mounted(t)
	mesh, tex := testMesh(t, 2)
	require.NoError(t, rt.SetMesh(mesh, tex))

	require.NoError(t, rt.Start())
	require.NoError(t, rt.Start())
	assert.True(t, rt.Running())
	require.Eventually(t, func() bool {
		_, draws, _ := fr.snapshot()
		return len(draws) >= 3
	}, 2*time.Second, 5*time.Millisecond)

	rt.Stop()
	assert.False(t, rt.Running())
	frames, draws, _ := fr.snapshot()
	assert.Equal(t, PipelineDoubleSided, draws[0])

	time.Sleep(20 * time.Millisecond)
	after, _, _ := fr.snapshot()
	assert.Equal(t, frames, after, "no frames after Stop returns")
	rt.Stop()
}

func TestSingleSidedTextureUsesCulledPipeline(t *testing.T) {
	rt, fr, _ := mounted(t)
	mesh, tex := testMesh(t, 1)
	tex.DoubleSided = false
	require.NoError(t, rt.SetMesh(mesh, tex))
	require.NoError(t, rt.Start())
	require.Eventually(t, func() bool {
		_, draws, _ := fr.snapshot()
		return len(draws) > 0
	}, 2*time.Second, 5*time.Millisecond)
	rt.Stop()
	_, draws, _ := fr.snapshot()
	assert.Equal(t, PipelineSingleSided, draws[0])
}

func TestEmptySceneRendersWithoutDraws(t *testing.T) {
	rt, fr, _ := mounted(t)
	require.NoError(t, rt.SetMesh(&atlas.Mesh{}, nil))
	require.NoError(t, rt.Start())
	require.Eventually(t, func() bool {
		frames, _, _ := fr.snapshot()
		return frames >= 3
	}, 2*time.Second, 5*time.Millisecond)
	rt.Stop()
	_, draws, _ := fr.snapshot()
	assert.Empty(t, draws)
}

func TestSetMeshWhileRunningDefersToFrame(t *testing.T) {
	rt, fr, _ := mounted(t)
	require.NoError(t, rt.Start())
	mesh, tex := testMesh(t, 4)
	require.NoError(t, rt.SetMesh(mesh, tex))

	require.Eventually(t, func() bool {
		_, draws, meshes := fr.snapshot()
		return meshes == 1 && len(draws) > 0
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, rt.SetMesh(nil, nil))
	require.Eventually(t, func() bool {
		_, before, _ := fr.snapshot()
		time.Sleep(30 * time.Millisecond)
		_, after, _ := fr.snapshot()
		return len(before) == len(after)
	}, 2*time.Second, 5*time.Millisecond, "clearing stops the draws")
	rt.Stop()
}

func TestFrameErrorIsFatal(t *testing.T) {
	fatal := make(chan error, 1)
	rt, fr, _ := mounted(t, WithFatalErrorCallback(func(err error) { fatal <- err }))
	fr.mu.Lock()
	fr.beginErr = errors.New("surface lost")
	fr.mu.Unlock()

	require.NoError(t, rt.Start())
	select {
	case err := <-fatal:
		assert.Contains(t, err.Error(), "surface lost")
	case <-time.After(2 * time.Second):
		t.Fatal("fatal callback not invoked")
	}
	require.Eventually(t, func() bool { return !rt.Running() }, time.Second, 5*time.Millisecond)
	require.Error(t, rt.Err())

	fr.mu.Lock()
	fr.beginErr = nil
	fr.mu.Unlock()
	require.NoError(t, rt.Start())
	assert.NoError(t, rt.Err())
	rt.Stop()
}

func TestFramePanicIsRecovered(t *testing.T) {
	rt, fr, _ := mounted(t)
	fr.mu.Lock()
	fr.panicOn = 2
	fr.mu.Unlock()

	require.NoError(t, rt.Start())
	require.Eventually(t, func() bool { return !rt.Running() }, 2*time.Second, 5*time.Millisecond)
	require.Error(t, rt.Err())
	assert.Contains(t, rt.Err().Error(), "device lost")
	rt.Stop()
}

func TestStopFromFatalCallback(t *testing.T) {
	done := make(chan struct{})
	var rt Runtime
	rt, fr, _ := mounted(t, WithFatalErrorCallback(func(error) {
		rt.Stop()
		close(done)
	}))
	fr.mu.Lock()
	fr.beginErr = errors.New("boom")
	fr.mu.Unlock()

	require.NoError(t, rt.Start())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop inside the fatal callback deadlocked")
	}
}

func TestFailureOfStoppedLoopIsNotReported(t *testing.T) {
	var calls int
	rt, _, _ := mounted(t, WithFatalErrorCallback(func(error) { calls++ }))
	require.NoError(t, rt.Start())

	// A loop that Stop already claimed reports its last frame error without the callback.
	rt.(*runtimeImpl).fail(make(chan struct{}), errors.New("surface lost"))
	assert.Zero(t, calls)
	assert.True(t, rt.Running(), "the attached loop keeps running")
	require.Error(t, rt.Err())
	rt.Stop()
}

func TestResize(t *testing.T) {
	rt, fr, _ := mounted(t)
	rt.Resize(1024, 512)
	rt.Resize(0, 512)
	assert.InDelta(t, 2, rt.Camera().Aspect(), 1e-6)
	fr.mu.Lock()
	assert.Equal(t, [][2]int{{1024, 512}}, fr.resized)
	fr.mu.Unlock()

	require.NoError(t, rt.Start())
	rt.Resize(300, 300)
	require.Eventually(t, func() bool {
		fr.mu.Lock()
		defer fr.mu.Unlock()
		return len(fr.resized) == 2
	}, 2*time.Second, 5*time.Millisecond)
	rt.Stop()
}

func TestPointerDragRotatesAndPans(t *testing.T) {
	rt, _, fw := mounted(t)
	controls := rt.Controls()
	home := controls.Position()

	fw.mouseDown(window.MouseButtonLeft, 400, 300)
	fw.mouseMove(500, 300)
	fw.mouseUp(window.MouseButtonLeft, 500, 300)
	assert.False(t, controls.Settled())
	for i := 0; i < 1000 && !controls.Settled(); i++ {
		controls.Update(1.0 / 60)
	}
	assert.NotEqual(t, home, controls.Position())
	assert.InDelta(t, 500, controls.Distance(), 0.01)

	fw.mouseMove(600, 300)
	assert.True(t, controls.Settled(), "moves after release are ignored")

	fw.mouseDown(window.MouseButtonRight, 0, 0)
	fw.mouseMove(50, 0)
	fw.mouseUp(window.MouseButtonRight, 50, 0)
	for i := 0; i < 1000 && !controls.Settled(); i++ {
		controls.Update(1.0 / 60)
	}
	assert.NotEqual(t, float32(0), controls.Target().X)

	fw.scroll(2)
	for i := 0; i < 1000 && !controls.Settled(); i++ {
		controls.Update(1.0 / 60)
	}
	assert.Less(t, controls.Distance(), float32(500))

	rt.ResetView()
	assert.Equal(t, home, controls.Position())
}

func TestDisposeReleasesAndUnbinds(t *testing.T) {
	fr := newFakeRenderer()
	fw := &fakeWindow{width: 640, height: 480}
	rt := NewRuntime(WithRendererFactory(func(window.Window) (renderer.Renderer, error) { return fr, nil }))
	require.NoError(t, rt.Mount(fw))
	mesh, tex := testMesh(t, 1)
	require.NoError(t, rt.SetMesh(mesh, tex))
	require.NoError(t, rt.Start())

	rt.Dispose()
	assert.False(t, rt.Running())
	assert.True(t, fr.released)
	assert.Nil(t, fw.mouseDown)
	assert.Nil(t, fw.scroll)
	assert.ErrorIs(t, rt.SetMesh(nil, nil), ErrNotMounted)
	rt.Dispose()

	require.NoError(t, rt.Mount(fw))
	rt.Dispose()
}
