package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-atlas/engine/atlas"
)

// LoaderBackendType identifies where dataset payloads are read from.
type LoaderBackendType int

const (
	// BackendTypeHTTP reads datasets from the dataset server's HTTP endpoints.
	BackendTypeHTTP LoaderBackendType = iota
	// BackendTypeFile reads datasets from a local directory with one subdirectory per dataset.
	BackendTypeFile
)

// DefaultMaxTextureDimension is the largest atlas edge uploaded without resampling.
// It matches the WebGPU default maxTextureDimension2D limit.
const DefaultMaxTextureDimension = 8192

// loader is the implementation of the Loader interface.
type loader struct {
	backendType LoaderBackendType
	backend     loaderBackend

	// pending backend configuration collected from builder options
	location string
	http     httpOptions

	maxTextureDimension int
	logger              *slog.Logger
}

// Loader retrieves the two halves of a dataset, its coordinates and its sprite sheet, plus
// the list of dataset names. Each call performs exactly one retrieval; there are no retries.
// All methods are safe for concurrent use.
type Loader interface {
	// FetchPoints retrieves and parses the dataset's coordinates, preserving their order.
	//
	// Parameters:
	//   - ctx: cancels the request
	//   - dataset: the dataset name
	//
	// Returns:
	//   - []atlas.Point: the ordered points (possibly empty)
	//   - error: *DataFetchError for transport, status or unparseable bodies, *MalformedDataError for a wrong shape
	FetchPoints(ctx context.Context, dataset string) ([]atlas.Point, error)

	// FetchAtlasTexture retrieves and decodes the dataset's sprite sheet into RGBA staging data.
	// The returned texture is double sided.
	//
	// Parameters:
	//   - ctx: cancels the request
	//   - dataset: the dataset name
	//
	// Returns:
	//   - *AtlasTexture: the decoded atlas ready for GPU upload
	//   - error: *DataFetchError for transport or status failures, *TextureDecodeError for undecodable payloads
	FetchAtlasTexture(ctx context.Context, dataset string) (*AtlasTexture, error)

	// FetchDatasetNames retrieves the names of the datasets available to the viewer.
	//
	// Returns:
	//   - []string: dataset names in server order
	//   - error: *DataFetchError on failure
	FetchDatasetNames(ctx context.Context) ([]string, error)
}

var _ Loader = &loader{}

// NewLoader creates a Loader for the given backend.
// For BackendTypeHTTP the location is the server base URL; for BackendTypeFile it is the
// dataset root directory.
//
// Parameters:
//   - backendType: the backend to read from
//   - location: the base URL or root directory
//   - options: variadic list of LoaderBuilderOption functions
//
// Returns:
//   - Loader: the configured loader
func NewLoader(backendType LoaderBackendType, location string, options ...LoaderBuilderOption) Loader {
	l := &loader{
		backendType:         backendType,
		location:            location,
		maxTextureDimension: DefaultMaxTextureDimension,
		logger:              slog.Default(),
	}
	for _, opt := range options {
		opt(l)
	}

	switch backendType {
	case BackendTypeFile:
		l.backend = newFileLoaderBackend(location)
	case BackendTypeHTTP:
		fallthrough
	default:
		l.backend = newHTTPLoaderBackend(location, l.http.client(), l.http.header)
	}
	return l
}

type rawCoordinates struct {
	Points *[]json.RawMessage `json:"points"`
}

func (l *loader) FetchPoints(ctx context.Context, dataset string) ([]atlas.Point, error) {
	start := time.Now()
	body, err := l.backend.Coordinates(ctx, dataset)
	if err != nil {
		return nil, err
	}

	points, err := parseCoordinates(dataset, body)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("fetched coordinates",
		"dataset", dataset,
		"points", len(points),
		"backend", l.backend.Describe(),
		"elapsed", time.Since(start),
	)
	return points, nil
}

func parseCoordinates(dataset string, body []byte) ([]atlas.Point, error) {
	var raw rawCoordinates
	if err := json.Unmarshal(body, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &MalformedDataError{Dataset: dataset, Index: -1, Field: typeErr.Field, Reason: err.Error()}
		}
		return nil, &DataFetchError{Resource: ResourceCoordinates, Dataset: dataset, Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	if raw.Points == nil {
		return nil, &MalformedDataError{Dataset: dataset, Index: -1, Field: "points", Reason: "missing points array"}
	}

	points := make([]atlas.Point, len(*raw.Points))
	for i, elem := range *raw.Points {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(elem, &fields); err != nil || fields == nil {
			return nil, &MalformedDataError{Dataset: dataset, Index: i, Reason: "point is not an object"}
		}
		var xyz [3]float32
		for k, name := range [3]string{"x", "y", "z"} {
			v, ok := fields[name]
			if !ok {
				return nil, &MalformedDataError{Dataset: dataset, Index: i, Field: name, Reason: "missing"}
			}
			var f float64
			if bytes.Equal(bytes.TrimSpace(v), []byte("null")) || json.Unmarshal(v, &f) != nil {
				return nil, &MalformedDataError{Dataset: dataset, Index: i, Field: name, Reason: "not a number"}
			}
			xyz[k] = float32(f)
		}
		points[i] = atlas.Point{X: xyz[0], Y: xyz[1], Z: xyz[2]}
	}
	return points, nil
}

func (l *loader) FetchAtlasTexture(ctx context.Context, dataset string) (*AtlasTexture, error) {
	start := time.Now()
	body, err := l.backend.Spritesheet(ctx, dataset)
	if err != nil {
		return nil, err
	}

	tex, err := decodeAtlas(dataset, body, l.maxTextureDimension)
	if err != nil {
		return nil, err
	}
	if tex.Wrapped() {
		l.logger.Info("sprite sheet exceeds max texture dimension, wrapped into grid",
			"dataset", dataset,
			"source", image.Pt(tex.SourceWidth, tex.SourceHeight),
			"uploaded", image.Pt(int(tex.Staging.Width), int(tex.Staging.Height)),
			"columns", tex.Columns,
		)
	}
	if tex.Resampled() {
		l.logger.Warn("sprite sheet exceeds max texture dimension, resampled",
			"dataset", dataset,
			"source", image.Pt(tex.SourceWidth, tex.SourceHeight),
			"uploaded", image.Pt(int(tex.Staging.Width), int(tex.Staging.Height)),
		)
	}
	l.logger.Debug("fetched sprite sheet",
		"dataset", dataset,
		"format", tex.Format,
		"bytes", len(body),
		"elapsed", time.Since(start),
	)
	return tex, nil
}

func (l *loader) FetchDatasetNames(ctx context.Context) ([]string, error) {
	body, err := l.backend.DatasetNames(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(body, &names); err != nil {
		return nil, &DataFetchError{Resource: ResourceDatasetNames, Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}
