package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Endpoint paths served by the dataset server.
const (
	CoordinatesPath  = "/coordinates-retrieval"
	SpritesheetPath  = "/spritesheet-retrieval"
	DatasetNamesPath = "/dataset-names"
)

// httpLoaderBackendImpl fetches dataset payloads from the dataset server over HTTP.
type httpLoaderBackendImpl struct {
	baseURL string
	client  *http.Client
	header  http.Header
}

var _ loaderBackend = &httpLoaderBackendImpl{}

// newHTTPLoaderBackend creates an HTTP backend rooted at baseURL. Requests carry the given
// headers, which is how a session cookie or bearer token reaches the server.
func newHTTPLoaderBackend(baseURL string, client *http.Client, header http.Header) *httpLoaderBackendImpl {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpLoaderBackendImpl{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		header:  header,
	}
}

func (b *httpLoaderBackendImpl) Describe() string {
	return "http " + b.baseURL
}

func (b *httpLoaderBackendImpl) Coordinates(ctx context.Context, dataset string) ([]byte, error) {
	return b.get(ctx, ResourceCoordinates, dataset, CoordinatesPath)
}

func (b *httpLoaderBackendImpl) Spritesheet(ctx context.Context, dataset string) ([]byte, error) {
	return b.get(ctx, ResourceSpritesheet, dataset, SpritesheetPath)
}

func (b *httpLoaderBackendImpl) DatasetNames(ctx context.Context) ([]byte, error) {
	return b.get(ctx, ResourceDatasetNames, "", DatasetNamesPath)
}

func (b *httpLoaderBackendImpl) endpoint(path, dataset string) string {
	u := b.baseURL + path
	if dataset != "" {
		u += "?" + url.Values{"dataset": {dataset}}.Encode()
	}
	return u
}

func (b *httpLoaderBackendImpl) get(ctx context.Context, resource, dataset, path string) ([]byte, error) {
	location := b.endpoint(path, dataset)
	fail := func(status int, err error) error {
		return &DataFetchError{
			Resource:   resource,
			Dataset:    dataset,
			Location:   location,
			StatusCode: status,
			Err:        err,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fail(0, err)
	}
	for k, vs := range b.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fail(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return nil, fail(resp.StatusCode, fmt.Errorf("unexpected status %q", resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail(resp.StatusCode, fmt.Errorf("failed to read body: %w", err))
	}
	return body, nil
}
