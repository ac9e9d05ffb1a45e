package window

// WindowBuilderOption is a functional option applied to a window during construction via NewWindow.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the window title.
//
// Parameters:
//   - title: the title shown by the window manager
//
// Returns:
//   - WindowBuilderOption: a function that applies the title option to a window
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize sets the initial canvas size in pixels.
//
// Parameters:
//   - width: the canvas width
//   - height: the canvas height
//
// Returns:
//   - WindowBuilderOption: a function that applies the size option to a window
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.width = width
		w.height = height
	}
}

// WithMinSize sets the smallest size the user may resize the window to.
func WithMinSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.minWidth = width
		w.minHeight = height
	}
}

// WithMaxSize sets the largest size the user may resize the window to.
func WithMaxSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.maxWidth = width
		w.maxHeight = height
	}
}

// WithResizable controls whether the user can resize the window.
func WithResizable(resizable bool) WindowBuilderOption {
	return func(w *engineWindow) {
		w.resizable = resizable
	}
}
