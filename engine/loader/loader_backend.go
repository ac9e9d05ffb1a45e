package loader

import "context"

// Resource names used in errors and logs.
const (
	ResourceCoordinates  = "coordinates"
	ResourceSpritesheet  = "spritesheet"
	ResourceDatasetNames = "dataset-names"
)

// loaderBackend defines how raw dataset payloads are retrieved. Backends only move bytes;
// parsing and decoding happen in the loader so every backend shares the same error semantics.
// Retrieval failures must be returned as *DataFetchError.
type loaderBackend interface {
	// Coordinates returns the raw coordinate JSON for a dataset.
	//
	// Parameters:
	//   - ctx: cancels the retrieval
	//   - dataset: the dataset name
	//
	// Returns:
	//   - []byte: the response body
	//   - error: a *DataFetchError on failure
	Coordinates(ctx context.Context, dataset string) ([]byte, error)

	// Spritesheet returns the raw encoded atlas image for a dataset.
	//
	// Parameters:
	//   - ctx: cancels the retrieval
	//   - dataset: the dataset name
	//
	// Returns:
	//   - []byte: the encoded image bytes
	//   - error: a *DataFetchError on failure
	Spritesheet(ctx context.Context, dataset string) ([]byte, error)

	// DatasetNames returns the raw JSON array of available dataset names.
	DatasetNames(ctx context.Context) ([]byte, error)

	// Describe returns a short human-readable description for logs.
	Describe() string
}
