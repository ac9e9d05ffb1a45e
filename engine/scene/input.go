package scene

import (
	"github.com/Carmen-Shannon/oxy-atlas/engine/window"
)

// middleDragZoomScale converts vertical middle-button drag pixels into zoom steps.
const middleDragZoomScale = 0.02

// bindPointer routes pointer input to the trackball: the left button rotates, the right button
// pans, the middle button and the scroll wheel zoom.
func (rt *runtimeImpl) bindPointer(w window.Window) {
	w.SetMouseDownCallback(rt.onMouseDown)
	w.SetMouseUpCallback(rt.onMouseUp)
	w.SetMouseMoveCallback(rt.onMouseMove)
	w.SetScrollCallback(rt.onScroll)
}

func (rt *runtimeImpl) unbindPointer(w window.Window) {
	w.SetMouseDownCallback(nil)
	w.SetMouseUpCallback(nil)
	w.SetMouseMoveCallback(nil)
	w.SetScrollCallback(nil)

	rt.pointer.mu.Lock()
	rt.pointer.dragging = false
	rt.pointer.mu.Unlock()
}

func (rt *runtimeImpl) onMouseDown(button window.MouseButton, x, y int32) {
	rt.pointer.mu.Lock()
	defer rt.pointer.mu.Unlock()
	rt.pointer.dragging = true
	rt.pointer.button = button
	rt.pointer.lastX, rt.pointer.lastY = x, y
}

func (rt *runtimeImpl) onMouseUp(button window.MouseButton, _, _ int32) {
	rt.pointer.mu.Lock()
	defer rt.pointer.mu.Unlock()
	if rt.pointer.button == button {
		rt.pointer.dragging = false
	}
}

func (rt *runtimeImpl) onMouseMove(x, y int32) {
	rt.pointer.mu.Lock()
	if !rt.pointer.dragging {
		rt.pointer.mu.Unlock()
		return
	}
	dx := float32(x - rt.pointer.lastX)
	dy := float32(y - rt.pointer.lastY)
	button := rt.pointer.button
	rt.pointer.lastX, rt.pointer.lastY = x, y
	rt.pointer.mu.Unlock()

	controls := rt.Controls()
	if controls == nil || (dx == 0 && dy == 0) {
		return
	}
	switch button {
	case window.MouseButtonLeft:
		controls.Rotate(dx, dy)
	case window.MouseButtonRight:
		controls.Pan(dx, dy)
	case window.MouseButtonMiddle:
		controls.Zoom(-dy * middleDragZoomScale)
	}
}

func (rt *runtimeImpl) onScroll(delta float32) {
	if controls := rt.Controls(); controls != nil {
		controls.Zoom(delta)
	}
}
