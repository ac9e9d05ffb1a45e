// Package visualizer turns a dataset name into a rendered atlas point cloud. It fetches the
// coordinates and the sprite sheet concurrently, builds the quads once both arrive and hands
// them to the scene runtime, discarding any result a newer selection has superseded.
package visualizer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-atlas/engine/atlas"
	"github.com/Carmen-Shannon/oxy-atlas/engine/loader"
	"golang.org/x/sync/errgroup"
)

// DefaultTileEdge is the pixel edge of every square tile in the sprite sheet.
const DefaultTileEdge = 64

// DataSource fetches the two halves of a dataset. loader.Loader satisfies it.
type DataSource interface {
	FetchPoints(ctx context.Context, dataset string) ([]atlas.Point, error)
	FetchAtlasTexture(ctx context.Context, dataset string) (*loader.AtlasTexture, error)
}

// SceneRuntime is the part of scene.Runtime the visualizer drives.
type SceneRuntime interface {
	SetMesh(mesh *atlas.Mesh, tex *loader.AtlasTexture) error
	Start() error
	Stop()
	Running() bool
}

type visualizer struct {
	mu *sync.Mutex
	// sceneMu serialises every call into the runtime so a superseded load can never
	// interleave with the teardown done by a newer selection.
	sceneMu *sync.Mutex

	source      DataSource
	scene       SceneRuntime
	pool        worker.DynamicWorkerPool
	workers     int
	tileEdge    int
	loadTimeout time.Duration
	logger      *slog.Logger
	onState     func(Transition)

	state      State
	dataset    string
	err        error
	generation uint64
	cancel     context.CancelFunc
}

// Visualizer is the dataset state machine: Idle, Loading, Ready and Failed.
type Visualizer interface {
	// Select switches to dataset. The running view stops and is cleared, any load in flight is
	// cancelled and a new one starts. The call returns once the load is queued.
	//
	// Parameters:
	//   - dataset: the dataset name passed to both fetches
	Select(dataset string)

	// Reload selects the current dataset again.
	//
	// Returns:
	//   - bool: false if no dataset is selected
	Reload() bool

	// Close stops the view, clears it and cancels any load in flight. The state becomes Idle.
	Close()

	// Fail reports that the render loop of the displayed dataset stopped on err. A Ready
	// visualizer clears the view and becomes Failed, so Reload can recover it. Reports that
	// arrive in any other state, or after the loop was restarted, are ignored.
	//
	// Parameters:
	//   - err: the fatal render error
	Fail(err error)

	// Dispose closes the visualizer and stops its worker pool. No selection may follow.
	Dispose()

	// State returns the current state.
	State() State

	// Dataset returns the selected dataset, or "" when Idle.
	Dataset() string

	// Err returns the cause of StateFailed, or nil.
	Err() error
}

var _ Visualizer = &visualizer{}

// NewVisualizer creates an idle visualizer over a data source and a scene runtime.
//
// Parameters:
//   - source: fetches coordinates and atlases
//   - scene: displays the built mesh
//   - options: functional options to configure the visualizer
//
// Returns:
//   - Visualizer: the visualizer
func NewVisualizer(source DataSource, scene SceneRuntime, options ...VisualizerBuilderOption) Visualizer {
	if source == nil {
		panic("visualizer: NewVisualizer requires a non-nil DataSource")
	}
	if scene == nil {
		panic("visualizer: NewVisualizer requires a non-nil SceneRuntime")
	}

	v := &visualizer{
		mu:       &sync.Mutex{},
		sceneMu:  &sync.Mutex{},
		source:   source,
		scene:    scene,
		workers:  max(runtime.NumCPU()/2, 1),
		tileEdge: DefaultTileEdge,
		logger:   slog.Default(),
		state:    StateIdle,
	}
	for _, option := range options {
		option(v)
	}

	v.pool = worker.NewDynamicWorkerPool(v.workers, 256, 1*time.Second)
	return v
}

func (v *visualizer) Select(dataset string) {
	v.mu.Lock()
	v.generation++
	gen := v.generation
	if v.cancel != nil {
		v.cancel()
	}
	ctx, cancel := v.loadContext()
	v.cancel = cancel
	v.dataset = dataset
	v.err = nil
	tr := v.transition(StateLoading, gen, nil)
	v.mu.Unlock()

	v.clearScene()
	v.notify(tr)

	v.logger.Info("loading dataset", "dataset", dataset, "generation", gen)
	v.pool.SubmitTask(worker.Task{
		ID: int(gen),
		Do: func() (any, error) {
			defer cancel()
			v.load(ctx, gen, dataset)
			return nil, nil
		},
	})
}

func (v *visualizer) Reload() bool {
	dataset := v.Dataset()
	if dataset == "" {
		return false
	}
	v.Select(dataset)
	return true
}

func (v *visualizer) Close() {
	v.mu.Lock()
	v.generation++
	gen := v.generation
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.dataset = ""
	v.err = nil
	tr := v.transition(StateIdle, gen, nil)
	v.mu.Unlock()

	v.clearScene()
	v.notify(tr)
}

func (v *visualizer) Fail(err error) {
	if err == nil {
		return
	}
	v.mu.Lock()
	gen, dataset, ready := v.generation, v.dataset, v.state == StateReady
	v.mu.Unlock()
	if !ready {
		return
	}

	v.sceneMu.Lock()
	if !v.readyAt(gen) || v.scene.Running() {
		v.sceneMu.Unlock()
		v.logger.Debug("ignoring stale render failure", "dataset", dataset, "generation", gen, "error", err)
		return
	}
	v.scene.Stop()
	if clearErr := v.scene.SetMesh(nil, nil); clearErr != nil {
		v.logger.Warn("clear scene", "error", clearErr)
	}
	v.mu.Lock()
	tr := v.transition(StateFailed, gen, fmt.Errorf("render %s: %w", dataset, err))
	v.mu.Unlock()
	v.sceneMu.Unlock()

	v.notify(tr)
}

func (v *visualizer) Dispose() {
	v.Close()
	v.pool.Stop()
}

func (v *visualizer) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *visualizer) Dataset() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.dataset
}

func (v *visualizer) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// loadContext returns the context of a new load. Caller must hold the mutex.
func (v *visualizer) loadContext() (context.Context, context.CancelFunc) {
	if v.loadTimeout > 0 {
		return context.WithTimeout(context.Background(), v.loadTimeout)
	}
	return context.WithCancel(context.Background())
}

// transition moves to state and returns the change to report. Caller must hold the mutex.
func (v *visualizer) transition(to State, gen uint64, err error) Transition {
	tr := Transition{From: v.state, To: to, Dataset: v.dataset, Generation: gen, Err: err}
	v.state = to
	v.err = err
	return tr
}

func (v *visualizer) notify(tr Transition) {
	if tr.Err != nil {
		v.logger.Warn("visualizer state changed", "from", tr.From, "to", tr.To, "dataset", tr.Dataset, "error", tr.Err)
	} else {
		v.logger.Debug("visualizer state changed", "from", tr.From, "to", tr.To, "dataset", tr.Dataset)
	}
	if v.onState != nil {
		v.onState(tr)
	}
}

func (v *visualizer) current(gen uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.generation == gen
}

func (v *visualizer) readyAt(gen uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.generation == gen && v.state == StateReady
}

func (v *visualizer) clearScene() {
	v.sceneMu.Lock()
	defer v.sceneMu.Unlock()
	v.scene.Stop()
	if err := v.scene.SetMesh(nil, nil); err != nil {
		v.logger.Warn("clear scene", "error", err)
	}
}

// load fetches both halves of the dataset concurrently and presents them.
func (v *visualizer) load(ctx context.Context, gen uint64, dataset string) {
	var (
		points []atlas.Point
		tex    *loader.AtlasTexture
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := v.source.FetchPoints(gctx, dataset)
		if err != nil {
			return err
		}
		points = p
		return nil
	})
	g.Go(func() error {
		t, err := v.source.FetchAtlasTexture(gctx, dataset)
		if err != nil {
			return err
		}
		tex = t
		return nil
	})
	err := g.Wait()

	to, applied, err := v.apply(gen, dataset, points, tex, err)
	if !applied {
		v.logger.Debug("discarding superseded load", "dataset", dataset, "generation", gen)
		return
	}
	if to == StateReady {
		v.logger.Info("dataset ready", "dataset", dataset, "points", len(points))
	}
	v.finish(gen, to, err)
}

// apply hands a finished load to the runtime unless a newer selection replaced it.
func (v *visualizer) apply(gen uint64, dataset string, points []atlas.Point, tex *loader.AtlasTexture, fetchErr error) (State, bool, error) {
	v.sceneMu.Lock()
	defer v.sceneMu.Unlock()

	if !v.current(gen) {
		return StateLoading, false, nil
	}
	if fetchErr != nil {
		return StateFailed, true, fmt.Errorf("load %s: %w", dataset, fetchErr)
	}
	if err := v.present(points, tex); err != nil {
		return StateFailed, true, fmt.Errorf("present %s: %w", dataset, err)
	}
	return StateReady, true, nil
}

// present builds the mesh and starts the view. Caller must hold sceneMu.
func (v *visualizer) present(points []atlas.Point, tex *loader.AtlasTexture) error {
	layout := atlas.Compute(len(points), v.tileEdge)
	if tex != nil && !layout.Empty() && (tex.SourceWidth != layout.AtlasWidth || tex.SourceHeight != layout.AtlasHeight) {
		v.logger.Warn("atlas size does not match layout",
			"atlas_width", tex.SourceWidth,
			"atlas_height", tex.SourceHeight,
			"layout_width", layout.AtlasWidth,
			"layout_height", layout.AtlasHeight,
		)
	}
	if tex != nil && tex.Wrapped() {
		layout = atlas.NewGridLayout(len(points), v.tileEdge, tex.Columns)
	}

	mesh, err := atlas.Build(points, layout)
	if err != nil {
		return err
	}
	if err := v.scene.SetMesh(mesh, tex); err != nil {
		return err
	}
	if err := v.scene.Start(); err != nil {
		if clearErr := v.scene.SetMesh(nil, nil); clearErr != nil {
			v.logger.Warn("clear scene", "error", clearErr)
		}
		return fmt.Errorf("start render loop: %w", err)
	}
	return nil
}

// finish records the outcome of load gen unless a newer selection replaced it.
func (v *visualizer) finish(gen uint64, to State, err error) {
	v.mu.Lock()
	if v.generation != gen {
		v.mu.Unlock()
		return
	}
	tr := v.transition(to, gen, err)
	v.mu.Unlock()
	v.notify(tr)
}
