package loader

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/Carmen-Shannon/oxy-atlas/common"
	"github.com/anthonynsimon/bild/transform"
	"github.com/h2non/filetype"
	"golang.org/x/image/draw"
)

// AtlasTexture is a decoded sprite sheet staged for GPU upload.
type AtlasTexture struct {
	// Staging holds the RGBA pixels uploaded to the GPU.
	Staging common.TextureStagingData
	// Format is the sniffed image type, e.g. "png".
	Format string
	// SourceWidth and SourceHeight are the dimensions of the payload before any resampling.
	SourceWidth  int
	SourceHeight int
	// Columns is the tiles per row when a single-row strip too wide for the GPU was wrapped
	// into a grid. Zero means the atlas is staged in its delivered arrangement.
	Columns int
	// DoubleSided marks the quads textured with this atlas as visible from both sides.
	DoubleSided bool
}

// Wrapped reports whether the strip was rearranged into a grid of Columns tiles per row.
func (t *AtlasTexture) Wrapped() bool {
	return t.Columns > 0
}

// Resampled reports whether the staged pixels were scaled down from the source payload.
func (t *AtlasTexture) Resampled() bool {
	if t.Wrapped() {
		return false
	}
	return int(t.Staging.Width) != t.SourceWidth || int(t.Staging.Height) != t.SourceHeight
}

// decodeAtlas sniffs, decodes and stages an encoded sprite sheet. A single-row strip wider
// than maxDim is wrapped into a grid of square tiles at full resolution. Anything that still
// does not fit is resampled; UVs are normalized so the tile mapping is unchanged.
func decodeAtlas(dataset string, data []byte, maxDim int) (*AtlasTexture, error) {
	format := "unknown"
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		format = kind.Extension
	}
	fail := func(err error) error {
		return &TextureDecodeError{Dataset: dataset, Format: format, Err: err}
	}

	if len(data) == 0 {
		return nil, fail(errors.New("empty payload"))
	}
	if !filetype.IsImage(data) {
		return nil, fail(errors.New("payload is not an image"))
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fail(err)
	}

	b := img.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	if srcW == 0 || srcH == 0 {
		return nil, fail(fmt.Errorf("image has no pixels (%dx%d)", srcW, srcH))
	}

	columns := 0
	if grid, cols := wrapStrip(img, maxDim); grid != nil {
		img, columns = grid, cols
	} else if w, h := fitWithin(srcW, srcH, maxDim); w != srcW || h != srcH {
		img = transform.Resize(img, w, h, transform.Linear)
	}

	staged, err := common.StageImage(img)
	if err != nil {
		return nil, fail(err)
	}

	return &AtlasTexture{
		Staging:      staged,
		Format:       format,
		SourceWidth:  srcW,
		SourceHeight: srcH,
		Columns:      columns,
		DoubleSided:  true,
	}, nil
}

// fitWithin scales w x h down, preserving aspect ratio, so neither edge exceeds maxDim.
// A non-positive maxDim disables the limit.
func fitWithin(w, h, maxDim int) (int, int) {
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return w, h
	}
	if w >= h {
		return maxDim, max(1, h*maxDim/w)
	}
	return max(1, w*maxDim/h), maxDim
}

// wrapStrip cuts a single-row strip of square tiles, each as tall as the strip, and lays them
// out left to right, top to bottom in rows of maxDim/edge tiles. It returns nil when the strip
// already fits within maxDim or the grid would not fit either.
func wrapStrip(img image.Image, maxDim int) (image.Image, int) {
	b := img.Bounds()
	edge := b.Dy()
	if maxDim <= 0 || edge <= 0 || edge > maxDim || b.Dx() <= maxDim {
		return nil, 0
	}
	tiles := (b.Dx() + edge - 1) / edge
	cols := maxDim / edge
	rows := (tiles + cols - 1) / cols
	if rows*edge > maxDim {
		return nil, 0
	}

	dst := image.NewRGBA(image.Rect(0, 0, cols*edge, rows*edge))
	for i := range tiles {
		src := image.Rect(b.Min.X+i*edge, b.Min.Y, min(b.Min.X+(i+1)*edge, b.Max.X), b.Max.Y)
		at := image.Pt((i%cols)*edge, (i/cols)*edge)
		draw.Draw(dst, image.Rectangle{Min: at, Max: at.Add(src.Size())}, img, src.Min, draw.Src)
	}
	return dst, cols
}
