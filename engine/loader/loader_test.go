package loader

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/Carmen-Shannon/oxy-atlas/engine/atlas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		img.Set(x, 0, color.RGBA{R: uint8(x), G: 10, B: 20, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// encodeStrip renders a single-row sprite sheet of square tiles, tile i filled with tileColor(i).
func encodeStrip(t *testing.T, tiles, edge int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, tiles*edge, edge))
	for i := range tiles {
		draw.Draw(img, image.Rect(i*edge, 0, (i+1)*edge, edge), image.NewUniform(tileColor(i)), image.Point{}, draw.Src)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func tileColor(i int) color.RGBA {
	return color.RGBA{R: uint8(i), G: uint8(i >> 8), B: 7, A: 255}
}

// stagedPixel returns the RGBA bytes at (x, y) of a staged texture.
func stagedPixel(tex *AtlasTexture, x, y int) []byte {
	off := (y*int(tex.Staging.Width) + x) * 4
	return tex.Staging.Pixels[off : off+4]
}

type fakeServer struct {
	coordinates string
	spritesheet []byte
	names       string
	status      int
	hits        atomic.Int32
	lastDataset atomic.Value
	lastCookie  atomic.Value
}

func (f *fakeServer) start(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	handle := func(body func() []byte, contentType string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			f.hits.Add(1)
			f.lastDataset.Store(r.URL.Query().Get("dataset"))
			f.lastCookie.Store(r.Header.Get("Cookie"))
			if f.status != 0 {
				w.WriteHeader(f.status)
				return
			}
			w.Header().Set("Content-Type", contentType)
			_, _ = w.Write(body())
		}
	}
	mux.HandleFunc(CoordinatesPath, handle(func() []byte { return []byte(f.coordinates) }, "application/json"))
	mux.HandleFunc(SpritesheetPath, handle(func() []byte { return f.spritesheet }, "image/png"))
	mux.HandleFunc(DatasetNamesPath, handle(func() []byte { return []byte(f.names) }, "application/json"))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchPoints(t *testing.T) {
	f := &fakeServer{coordinates: `{"points":[{"x":1,"y":1,"z":1},{"x":0,"y":0,"z":0},{"x":-2.5,"y":3e2,"z":0.125}]}`}
	srv := f.start(t)

	l := NewLoader(BackendTypeHTTP, srv.URL+"/", WithHeader("Cookie", "session=abc"))
	points, err := l.FetchPoints(context.Background(), "my data")
	require.NoError(t, err)
	assert.Equal(t, []atlas.Point{{X: 1, Y: 1, Z: 1}, {X: 0, Y: 0, Z: 0}, {X: -2.5, Y: 300, Z: 0.125}}, points)
	assert.Equal(t, "my data", f.lastDataset.Load())
	assert.Equal(t, "session=abc", f.lastCookie.Load())
}

func TestFetchPointsEmpty(t *testing.T) {
	srv := (&fakeServer{coordinates: `{"points":[]}`}).start(t)
	points, err := NewLoader(BackendTypeHTTP, srv.URL).FetchPoints(context.Background(), "d")
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestFetchPointsErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		status     int
		wantFetch  bool
		wantStatus int
		wantIndex  int
		wantField  string
	}{
		{name: "server error", status: http.StatusInternalServerError, wantFetch: true, wantStatus: 500},
		{name: "not found", status: http.StatusNotFound, wantFetch: true, wantStatus: 404},
		{name: "not json", body: `<html>login</html>`, wantFetch: true},
		{name: "missing points", body: `{"coords":[]}`, wantIndex: -1, wantField: "points"},
		{name: "points not array", body: `{"points":5}`, wantIndex: -1, wantField: "points"},
		{name: "missing field", body: `{"points":[{"x":1,"y":2,"z":3},{"x":1,"z":3}]}`, wantIndex: 1, wantField: "y"},
		{name: "string field", body: `{"points":[{"x":"1","y":2,"z":3}]}`, wantIndex: 0, wantField: "x"},
		{name: "null field", body: `{"points":[{"x":1,"y":2,"z":null}]}`, wantIndex: 0, wantField: "z"},
		{name: "point not object", body: `{"points":[[1,2,3]]}`, wantIndex: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeServer{coordinates: tt.body, status: tt.status}
			srv := f.start(t)
			_, err := NewLoader(BackendTypeHTTP, srv.URL).FetchPoints(context.Background(), "d")
			require.Error(t, err)

			if tt.wantFetch {
				var fe *DataFetchError
				require.True(t, errors.As(err, &fe), "got %T: %v", err, err)
				assert.Equal(t, tt.wantStatus, fe.StatusCode)
				assert.Equal(t, ResourceCoordinates, fe.Resource)
				return
			}
			var me *MalformedDataError
			require.True(t, errors.As(err, &me), "got %T: %v", err, err)
			assert.Equal(t, tt.wantIndex, me.Index)
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, me.Field)
			}
			assert.Equal(t, int32(1), f.hits.Load(), "no retries")
		})
	}
}

func TestFetchPointsNetworkError(t *testing.T) {
	srv := (&fakeServer{}).start(t)
	url := srv.URL
	srv.Close()

	_, err := NewLoader(BackendTypeHTTP, url).FetchPoints(context.Background(), "d")
	var fe *DataFetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 0, fe.StatusCode)
}

func TestFetchPointsCanceled(t *testing.T) {
	srv := (&fakeServer{coordinates: `{"points":[]}`}).start(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(BackendTypeHTTP, srv.URL).FetchPoints(ctx, "d")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchAtlasTexture(t *testing.T) {
	srv := (&fakeServer{spritesheet: encodePNG(t, 20, 10)}).start(t)

	tex, err := NewLoader(BackendTypeHTTP, srv.URL).FetchAtlasTexture(context.Background(), "d")
	require.NoError(t, err)
	assert.True(t, tex.DoubleSided)
	assert.Equal(t, "png", tex.Format)
	assert.Equal(t, uint32(20), tex.Staging.Width)
	assert.Equal(t, uint32(10), tex.Staging.Height)
	assert.Len(t, tex.Staging.Pixels, 20*10*4)
	assert.Equal(t, []byte{5, 10, 20, 255}, tex.Staging.Pixels[5*4:5*4+4])
	assert.False(t, tex.Resampled())
}

func TestFetchAtlasTextureResampled(t *testing.T) {
	// Tiles taller than the limit cannot be wrapped, so the sheet is scaled down.
	srv := (&fakeServer{spritesheet: encodePNG(t, 64, 40)}).start(t)

	tex, err := NewLoader(BackendTypeHTTP, srv.URL, WithMaxTextureDimension(32)).FetchAtlasTexture(context.Background(), "d")
	require.NoError(t, err)
	assert.True(t, tex.Resampled())
	assert.False(t, tex.Wrapped())
	assert.Equal(t, uint32(32), tex.Staging.Width)
	assert.Equal(t, uint32(20), tex.Staging.Height)
	assert.Equal(t, 64, tex.SourceWidth)
}

func TestFetchAtlasTextureWrapsWideStrip(t *testing.T) {
	const tiles, edge = 200, 64
	srv := (&fakeServer{spritesheet: encodeStrip(t, tiles, edge)}).start(t)

	tex, err := NewLoader(BackendTypeHTTP, srv.URL).FetchAtlasTexture(context.Background(), "d")
	require.NoError(t, err)
	assert.True(t, tex.Wrapped())
	assert.False(t, tex.Resampled())
	assert.Equal(t, tiles*edge, tex.SourceWidth)
	assert.Equal(t, edge, tex.SourceHeight)

	// 8192 / 64 = 128 tiles per row, two rows.
	require.Equal(t, 128, tex.Columns)
	assert.Equal(t, uint32(128*edge), tex.Staging.Width)
	assert.Equal(t, uint32(2*edge), tex.Staging.Height)

	for _, i := range []int{0, 1, 127, 128, 199} {
		x, y := (i%128)*edge, (i/128)*edge
		c := tileColor(i)
		want := []byte{c.R, c.G, c.B, c.A}
		assert.Equal(t, want, stagedPixel(tex, x, y), "tile %d top-left", i)
		assert.Equal(t, want, stagedPixel(tex, x+edge-1, y+edge-1), "tile %d bottom-right", i)
	}
	// Cells past the last tile stay transparent.
	assert.Equal(t, []byte{0, 0, 0, 0}, stagedPixel(tex, 200%128*edge, edge))
}

func TestFetchAtlasTextureDecodeError(t *testing.T) {
	for name, payload := range map[string][]byte{
		"text":      []byte("definitely not an image"),
		"truncated": encodePNG(t, 8, 8)[:40],
		"empty":     {},
	} {
		t.Run(name, func(t *testing.T) {
			srv := (&fakeServer{spritesheet: payload}).start(t)
			_, err := NewLoader(BackendTypeHTTP, srv.URL).FetchAtlasTexture(context.Background(), "d")
			var de *TextureDecodeError
			require.True(t, errors.As(err, &de), "got %T: %v", err, err)
			assert.Equal(t, "d", de.Dataset)
		})
	}
}

func TestFetchAtlasTextureStatusError(t *testing.T) {
	srv := (&fakeServer{status: http.StatusForbidden}).start(t)
	_, err := NewLoader(BackendTypeHTTP, srv.URL).FetchAtlasTexture(context.Background(), "d")
	var fe *DataFetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusForbidden, fe.StatusCode)
	assert.Equal(t, ResourceSpritesheet, fe.Resource)
}

func TestFetchDatasetNames(t *testing.T) {
	srv := (&fakeServer{names: `["alpha","beta"]`}).start(t)
	names, err := NewLoader(BackendTypeHTTP, srv.URL).FetchDatasetNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, names)

	srv = (&fakeServer{names: `null`}).start(t)
	names, err = NewLoader(BackendTypeHTTP, srv.URL).FetchDatasetNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{}, names)
}

func TestFileBackend(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "beta"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "alpha"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "alpha", CoordinatesFile), []byte(`{"points":[{"x":1,"y":2,"z":3}]}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "alpha", SpritesheetFile), encodePNG(t, 4, 4), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "beta", CoordinatesFile), []byte(`{"points":[]}`), 0o644))

	l := NewLoader(BackendTypeFile, root)
	ctx := context.Background()

	names, err := l.FetchDatasetNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, names)

	points, err := l.FetchPoints(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, []atlas.Point{{X: 1, Y: 2, Z: 3}}, points)

	tex, err := l.FetchAtlasTexture(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, uint32(4), tex.Staging.Width)

	_, err = l.FetchAtlasTexture(ctx, "beta")
	var fe *DataFetchError
	require.True(t, errors.As(err, &fe))

	_, err = l.FetchPoints(ctx, "../alpha")
	require.True(t, errors.As(err, &fe))
}

func TestWrapStrip(t *testing.T) {
	strip := image.NewRGBA(image.Rect(0, 0, 70, 10))
	for x := range 70 {
		for y := range 10 {
			strip.Set(x, y, tileColor(x/10))
		}
	}

	grid, cols := wrapStrip(strip, 32)
	require.NotNil(t, grid)
	assert.Equal(t, 3, cols)
	assert.Equal(t, image.Rect(0, 0, 30, 30), grid.Bounds())
	assert.Equal(t, tileColor(4), grid.At(15, 15))
	assert.Equal(t, tileColor(6), grid.At(5, 29))

	grid, _ = wrapStrip(strip, 100)
	assert.Nil(t, grid, "fits already")
	grid, _ = wrapStrip(strip, 0)
	assert.Nil(t, grid, "no limit")
	grid, _ = wrapStrip(strip, 20)
	assert.Nil(t, grid, "4 rows of 10 exceed 20")
	grid, _ = wrapStrip(image.NewRGBA(image.Rect(0, 0, 100, 40)), 32)
	assert.Nil(t, grid, "tile taller than the limit")
}

func TestFitWithin(t *testing.T) {
	w, h := fitWithin(100, 10, 0)
	assert.Equal(t, []int{100, 10}, []int{w, h})
	w, h = fitWithin(100, 10, 50)
	assert.Equal(t, []int{50, 5}, []int{w, h})
	w, h = fitWithin(10, 100, 50)
	assert.Equal(t, []int{5, 50}, []int{w, h})
	w, h = fitWithin(100000, 1, 8192)
	assert.Equal(t, []int{8192, 1}, []int{w, h})
}
