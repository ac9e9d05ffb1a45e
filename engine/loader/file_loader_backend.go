package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// File names inside a dataset directory, mirroring the object layout the dataset server
// reads from its bucket: <root>/<dataset>/coordinates.json and the concatenated sprite sheet.
const (
	CoordinatesFile = "coordinates.json"
	SpritesheetFile = "spritesheet.png"
)

// fileLoaderBackendImpl reads datasets from a local directory tree.
type fileLoaderBackendImpl struct {
	root string
}

var _ loaderBackend = &fileLoaderBackendImpl{}

func newFileLoaderBackend(root string) *fileLoaderBackendImpl {
	return &fileLoaderBackendImpl{root: root}
}

func (b *fileLoaderBackendImpl) Describe() string {
	return "dir " + b.root
}

func (b *fileLoaderBackendImpl) Coordinates(ctx context.Context, dataset string) ([]byte, error) {
	return b.read(ctx, ResourceCoordinates, dataset, CoordinatesFile)
}

func (b *fileLoaderBackendImpl) Spritesheet(ctx context.Context, dataset string) ([]byte, error) {
	return b.read(ctx, ResourceSpritesheet, dataset, SpritesheetFile)
}

// DatasetNames lists every subdirectory of root that holds a coordinates file, sorted by name,
// encoded the same way the server's /dataset-names endpoint answers.
func (b *fileLoaderBackendImpl) DatasetNames(ctx context.Context) ([]byte, error) {
	fail := func(err error) error {
		return &DataFetchError{Resource: ResourceDatasetNames, Location: b.root, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, fail(err)
	}

	entries, err := os.ReadDir(b.root)
	if err != nil {
		return nil, fail(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(b.root, e.Name(), CoordinatesFile)); err == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	data, err := json.Marshal(names)
	if err != nil {
		return nil, fail(err)
	}
	return data, nil
}

func (b *fileLoaderBackendImpl) read(ctx context.Context, resource, dataset, file string) ([]byte, error) {
	location := filepath.Join(b.root, dataset, file)
	fail := func(err error) error {
		return &DataFetchError{Resource: resource, Dataset: dataset, Location: location, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, fail(err)
	}
	if dataset == "" || dataset == "." || dataset == ".." || strings.ContainsAny(dataset, `/\`) {
		return nil, fail(fmt.Errorf("invalid dataset name"))
	}

	data, err := os.ReadFile(location)
	if err != nil {
		return nil, fail(err)
	}
	return data, nil
}
