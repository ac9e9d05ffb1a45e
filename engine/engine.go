package engine

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-atlas/common"
	"github.com/Carmen-Shannon/oxy-atlas/engine/scene"
	"github.com/Carmen-Shannon/oxy-atlas/engine/visualizer"
	"github.com/Carmen-Shannon/oxy-atlas/engine/window"
)

// Keyboard camera speeds, per second of held key.
const (
	keyPanPixelsPerSecond = 400
	keyZoomStepsPerSecond = 4
)

// engine implements the Engine interface.
// Coordinates the window thread, the input tick goroutine and the scene runtime.
type engine struct {
	mu *sync.Mutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running atomic.Bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window     window.Window
	runtime    scene.Runtime
	visualizer visualizer.Visualizer
	source     visualizer.DataSource
	logger     *slog.Logger

	runtimeOptions    []scene.RuntimeBuilderOption
	visualizerOptions []visualizer.VisualizerBuilderOption

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)

	datasets       []string
	initialDataset string
	heldKeys       map[uint32]bool
}

// Engine is the viewer host. It owns the window message pump, translates keyboard input into
// camera motion and dataset changes, and wires the window to the scene runtime and visualizer.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Runtime returns the scene runtime drawing into the window.
	Runtime() scene.Runtime

	// Visualizer returns the dataset state machine.
	Visualizer() visualizer.Visualizer

	// Datasets returns the names cycled by the N and P keys.
	Datasets() []string

	// SetDatasets replaces the names cycled by the N and P keys.
	//
	// Parameters:
	//   - names: dataset names in cycling order
	SetDatasets(names []string)

	// SelectDataset loads a dataset by name.
	//
	// Parameters:
	//   - name: the dataset to display
	SelectDataset(name string)

	// NextDataset selects the dataset after the current one, wrapping around.
	NextDataset()

	// PreviousDataset selects the dataset before the current one, wrapping around.
	PreviousDataset()

	// TogglePause stops a running render loop, or restarts it when a dataset is ready.
	TogglePause()

	// SetTickRate sets the input tick rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers a function called each input tick after held keys are applied.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// Run mounts the runtime, selects the initial dataset and pumps window messages until the
	// window closes. Everything is torn down before it returns.
	//
	// Returns:
	//   - error: a mount failure, or the error that stopped the render loop if it is still stopped
	Run() error

	// Quit signals the engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine over a window and a data source. Both are required and
// NewEngine panics if either is missing.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:              &sync.Mutex{},
		tickRateChannel: make(chan time.Duration, 1),
		quitChannel:     make(chan struct{}),
		logger:          slog.Default(),
		engineTickRate:  time.Second / 60,
		heldKeys:        make(map[uint32]bool),
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window == nil {
		panic("engine: NewEngine requires a window")
	}
	if e.source == nil {
		panic("engine: NewEngine requires a data source")
	}

	if e.runtime == nil {
		opts := append([]scene.RuntimeBuilderOption{
			scene.WithLogger(e.logger),
			scene.WithFatalErrorCallback(e.onFatal),
		}, e.runtimeOptions...)
		e.runtime = scene.NewRuntime(opts...)
	}
	if e.visualizer == nil {
		opts := append([]visualizer.VisualizerBuilderOption{visualizer.WithLogger(e.logger)}, e.visualizerOptions...)
		e.visualizer = visualizer.NewVisualizer(e.source, e.runtime, opts...)
	}

	e.window.SetResizeCallback(func(width, height int) {
		e.runtime.Resize(width, height)
	})

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Runtime() scene.Runtime {
	return e.runtime
}

func (e *engine) Visualizer() visualizer.Visualizer {
	return e.visualizer
}

func (e *engine) Datasets() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.datasets)
}

func (e *engine) SetDatasets(names []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.datasets = slices.Clone(names)
}

func (e *engine) SelectDataset(name string) {
	e.visualizer.Select(name)
}

func (e *engine) NextDataset() {
	e.cycleDataset(1)
}

func (e *engine) PreviousDataset() {
	e.cycleDataset(-1)
}

// cycleDataset moves step places through the dataset list from the current selection.
func (e *engine) cycleDataset(step int) {
	e.mu.Lock()
	if len(e.datasets) == 0 {
		e.mu.Unlock()
		return
	}
	n := len(e.datasets)
	idx := slices.Index(e.datasets, e.visualizer.Dataset())
	if idx < 0 && step < 0 {
		idx = 0
	}
	next := e.datasets[((idx+step)%n+n)%n]
	e.mu.Unlock()

	e.SelectDataset(next)
}

func (e *engine) TogglePause() {
	if e.runtime.Running() {
		e.runtime.Stop()
		e.logger.Info("render loop paused")
		return
	}
	if e.visualizer.State() != visualizer.StateReady {
		return
	}
	if err := e.runtime.Start(); err != nil {
		e.logger.Warn("resume render loop", "error", err)
		return
	}
	e.logger.Info("render loop resumed")
}

func (e *engine) Run() error {
	if err := e.runtime.Mount(e.window); err != nil {
		return fmt.Errorf("mount scene: %w", err)
	}
	e.bindKeys()
	e.running.Store(true)
	e.handle()

	if name := e.startDataset(); name != "" {
		e.SelectDataset(name)
	} else {
		e.logger.Warn("no dataset to display")
	}

	e.window.ProcessMessages()

	e.Quit()
	e.wg.Wait()
	e.visualizer.Dispose()
	err := e.runtime.Err()
	e.runtime.Dispose()
	return err
}

// startDataset returns the configured dataset, falling back to the first known one.
func (e *engine) startDataset() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialDataset != "" {
		return e.initialDataset
	}
	if len(e.datasets) > 0 {
		return e.datasets[0]
	}
	return ""
}

// onFatal runs on the render goroutine after a frame error stopped the loop. The visualizer
// drops to Failed so the reload key can bring the dataset back.
func (e *engine) onFatal(err error) {
	e.logger.Error("scene stopped", "dataset", e.visualizer.Dataset(), "error", err)
	e.visualizer.Fail(err)
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running.Store(false)
		close(e.quitChannel)
	})
}

// handle launches the input tick and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(2)
	go e.handleEngine()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate input tick loop in its own goroutine.
// Applies held keys and fires the tick callback at the configured tick rate, and listens
// for dynamic rate changes via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	e.mu.Lock()
	rate := e.engineTickRate
	e.mu.Unlock()
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			e.applyHeldKeys(dt)

			e.mu.Lock()
			callback := e.tickCallback
			e.mu.Unlock()
			if callback != nil {
				callback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.mu.Lock()
			e.engineTickRate = newRate
			e.mu.Unlock()
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// SetTickRate sets the input tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	if e.running.Load() {
		// Non-blocking send - if channel is full, replace the pending value
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
		return
	}
	e.mu.Lock()
	e.engineTickRate = newRate
	e.mu.Unlock()
}

// SetTickCallback registers the function called each input tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tickCallback = callback
}

// bindKeys installs the keyboard handlers on the window.
func (e *engine) bindKeys() {
	e.window.SetKeyDownCallback(e.onKeyDown)
	e.window.SetKeyUpCallback(e.onKeyUp)
}

func (e *engine) onKeyDown(key uint32) {
	e.mu.Lock()
	repeat := e.heldKeys[key]
	e.heldKeys[key] = true
	e.mu.Unlock()
	if repeat {
		return
	}

	switch key {
	case common.KeyN:
		e.NextDataset()
	case common.KeyP:
		e.PreviousDataset()
	case common.KeyR:
		if e.shiftHeld() || e.visualizer.State() == visualizer.StateFailed {
			e.visualizer.Reload()
			return
		}
		e.runtime.ResetView()
	case common.KeySpace:
		e.TogglePause()
	}
}

func (e *engine) onKeyUp(key uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.heldKeys, key)
}

func (e *engine) shiftHeld() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.heldKeys[common.KeyLeftShift] || e.heldKeys[common.KeyRightShift]
}

// applyHeldKeys turns held WASD and QE keys into trackball pans and zooms.
func (e *engine) applyHeldKeys(dt float32) {
	e.mu.Lock()
	var dx, dy, zoom float32
	if e.heldKeys[common.KeyW] {
		dy++
	}
	if e.heldKeys[common.KeyS] {
		dy--
	}
	if e.heldKeys[common.KeyA] {
		dx++
	}
	if e.heldKeys[common.KeyD] {
		dx--
	}
	if e.heldKeys[common.KeyE] {
		zoom++
	}
	if e.heldKeys[common.KeyQ] {
		zoom--
	}
	e.mu.Unlock()

	controls := e.runtime.Controls()
	if controls == nil {
		return
	}
	if dx != 0 || dy != 0 {
		step := keyPanPixelsPerSecond * dt
		controls.Pan(dx*step, dy*step)
	}
	if zoom != 0 {
		controls.Zoom(zoom * keyZoomStepsPerSecond * dt)
	}
}
