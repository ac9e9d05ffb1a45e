// Command oxy-atlas opens a window onto a dataset served as t-SNE coordinates and a sprite sheet
// of thumbnails, drawing one textured quad per image.
package main

import (
	"fmt"
	"os"
	"runtime"
)

func init() {
	// glfw must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "oxy-atlas:", err)
		os.Exit(1)
	}
}
