// Package common contains plain data types and helpers shared across the viewer. They are not
// interface-wrapped structs, just plain structs and functions.
package common

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/cogentcore/webgpu/wgpu"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TextureStagingData holds RGBA pixel data for a texture binding pending GPU upload.
// This is primarily used in the BindGroupProvider to stage texture data before creating the GPU texture and bind group.
type TextureStagingData struct {
	// Pixels is the RGBA pixel data, 4 bytes per pixel, row-major from the top-left corner.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// SamplerStagingData holds the configuration for a sampler binding pending GPU creation.
// Zero fields fall back to the renderer's linear/clamp defaults.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range.
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}

// StageImage converts any decoded image into tightly packed RGBA staging data.
//
// Parameters:
//   - img: the decoded source image
//
// Returns:
//   - TextureStagingData: RGBA pixels with the image's dimensions
//   - error: an error if the image has no pixels
func StageImage(img image.Image) (TextureStagingData, error) {
	if img == nil {
		return TextureStagingData{}, fmt.Errorf("image is nil")
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return TextureStagingData{}, fmt.Errorf("image has empty bounds %v", bounds)
	}

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*bounds.Dx() || bounds.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	return TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(bounds.Dx()),
		Height: uint32(bounds.Dy()),
	}, nil
}
