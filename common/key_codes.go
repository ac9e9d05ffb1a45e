package common

// Virtual key codes used by the viewer's keyboard bindings.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyW     = 87  // W key (ASCII), pan up
	KeyA     = 65  // A key (ASCII), pan left
	KeyS     = 83  // S key (ASCII), pan down
	KeyD     = 68  // D key (ASCII), pan right
	KeyQ     = 81  // Q key (ASCII), zoom out
	KeyE     = 69  // E key (ASCII), zoom in
	KeyN     = 78  // N key (ASCII), next dataset
	KeyP     = 80  // P key (ASCII), previous dataset
	KeyR     = 82  // R key (ASCII), reset camera / reload dataset
	KeySpace = 32  // Spacebar (ASCII), pause or resume rendering
	KeyEsc   = 256 // Escape key (GLFW)
)

// Additional non-printable keys
const (
	KeyLeftShift  = 340 // Left Shift (GLFW)
	KeyRightShift = 344 // Right Shift (GLFW)
)
