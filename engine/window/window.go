package window

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// MouseButton identifies a pointer button reported by the window.
type MouseButton int

const (
	// MouseButtonLeft is the primary button; it rotates the trackball.
	MouseButtonLeft MouseButton = iota
	// MouseButtonRight is the secondary button; it pans the trackball.
	MouseButtonRight
	// MouseButtonMiddle is the wheel button; it dollies the trackball.
	MouseButtonMiddle
)

// Window is the canvas the viewer draws into. It owns the OS window, exposes the
// surface descriptor the renderer needs and forwards input through callbacks.
// Callbacks run on the goroutine that calls ProcessMessages.
type Window interface {
	// SetUpdateCallback sets a function invoked once per message pump iteration.
	SetUpdateCallback(callback func())

	// SetResizeCallback sets a function invoked with the new framebuffer size.
	//
	// Parameters:
	//   - callback: receives the new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetScrollCallback sets a function invoked on vertical scroll.
	//
	// Parameters:
	//   - callback: receives the scroll delta, positive away from the user
	SetScrollCallback(callback func(delta float32))

	// SetKeyDownCallback sets a function invoked on key press and key repeat.
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetKeyUpCallback sets a function invoked on key release.
	SetKeyUpCallback(callback func(keyCode uint32))

	// SetMouseDownCallback sets a function invoked when a mouse button is pressed.
	//
	// Parameters:
	//   - callback: receives the button and cursor position in pixels
	SetMouseDownCallback(callback func(button MouseButton, x, y int32))

	// SetMouseUpCallback sets a function invoked when a mouse button is released.
	//
	// Parameters:
	//   - callback: receives the button and cursor position in pixels
	SetMouseUpCallback(callback func(button MouseButton, x, y int32))

	// SetMouseMoveCallback sets a function invoked when the cursor moves.
	SetMouseMoveCallback(callback func(x, y int32))

	// SurfaceDescriptor returns the platform surface descriptor used to create a WebGPU surface.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the descriptor, or nil if the window is closed
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning reports whether the window is still open.
	IsRunning() bool

	// Close destroys the window. Calling Close twice returns an error.
	Close() error

	// ProcessMessages pumps OS events until the window closes. It must run on the main thread.
	ProcessMessages()

	// Width returns the framebuffer width in pixels.
	Width() int

	// Height returns the framebuffer height in pixels.
	Height() int
}

type engineWindow struct {
	mu *sync.Mutex

	title     string
	minWidth  int
	minHeight int
	maxWidth  int
	maxHeight int
	width     int
	height    int
	resizable bool

	internalWindow any

	onUpdate    func()
	onResize    func(width, height int)
	onScroll    func(delta float32)
	onKeyDown   func(keyCode uint32)
	onKeyUp     func(keyCode uint32)
	onMouseDown func(button MouseButton, x, y int32)
	onMouseUp   func(button MouseButton, x, y int32)
	onMouseMove func(x, y int32)
}

var _ Window = &engineWindow{}

// NewWindow opens a platform window with an explicit canvas size.
//
// Parameters:
//   - options: variadic list of WindowBuilderOption functions
//
// Returns:
//   - Window: the opened window
//   - error: an error if the platform window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		mu:        &sync.Mutex{},
		title:     "oxy-atlas",
		minWidth:  320,
		minHeight: 240,
		maxWidth:  7680,
		maxHeight: 4320,
		width:     1280,
		height:    720,
		resizable: true,
	}
	for _, opt := range options {
		opt(w)
	}
	if w.width <= 0 || w.height <= 0 {
		return nil, fmt.Errorf("window: invalid size %dx%d", w.width, w.height)
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("failed to create platform window: %w", err)
	}
	return w, nil
}

func (w *engineWindow) SetUpdateCallback(callback func()) {
	w.onUpdate = callback
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetKeyUpCallback(callback func(keyCode uint32)) {
	w.onKeyUp = callback
}

func (w *engineWindow) SetMouseDownCallback(callback func(button MouseButton, x, y int32)) {
	w.onMouseDown = callback
}

func (w *engineWindow) SetMouseUpCallback(callback func(button MouseButton, x, y int32)) {
	w.onMouseUp = callback
}

func (w *engineWindow) SetMouseMoveCallback(callback func(x, y int32)) {
	w.onMouseMove = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if ok := platformProcessMessages(w); !ok {
			break
		}
		if w.onUpdate != nil {
			w.onUpdate()
		}
		runtime.Gosched()
	}
}

func (w *engineWindow) Width() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width
}

func (w *engineWindow) Height() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.height
}

// setSize records a framebuffer size change. Minimised windows report 0x0, which is not
// forwarded since a zero-sized surface cannot be configured.
func (w *engineWindow) setSize(width, height int) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	w.mu.Lock()
	w.width, w.height = width, height
	w.mu.Unlock()
	return true
}
