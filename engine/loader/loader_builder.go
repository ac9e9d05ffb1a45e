package loader

import (
	"log/slog"
	"net/http"
	"time"
)

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// httpOptions collects the HTTP backend settings before the backend is created.
type httpOptions struct {
	httpClient *http.Client
	timeout    time.Duration
	header     http.Header
}

func (o httpOptions) client() *http.Client {
	if o.httpClient != nil {
		return o.httpClient
	}
	return &http.Client{Timeout: o.timeout}
}

// WithHTTPClient sets the client used by the HTTP backend. It takes precedence over WithTimeout.
//
// Parameters:
//   - c: the HTTP client
//
// Returns:
//   - LoaderBuilderOption: a function that applies the client option to a loader
func WithHTTPClient(c *http.Client) LoaderBuilderOption {
	return func(l *loader) {
		l.http.httpClient = c
	}
}

// WithTimeout sets a per-request timeout on the default HTTP client. Zero means no timeout.
//
// Parameters:
//   - d: the request timeout
//
// Returns:
//   - LoaderBuilderOption: a function that applies the timeout option to a loader
func WithTimeout(d time.Duration) LoaderBuilderOption {
	return func(l *loader) {
		l.http.timeout = d
	}
}

// WithHeader adds a header sent with every HTTP request, such as a session cookie.
//
// Parameters:
//   - key: the header name
//   - value: the header value
//
// Returns:
//   - LoaderBuilderOption: a function that applies the header option to a loader
func WithHeader(key, value string) LoaderBuilderOption {
	return func(l *loader) {
		if l.http.header == nil {
			l.http.header = make(http.Header)
		}
		l.http.header.Add(key, value)
	}
}

// WithMaxTextureDimension sets the largest atlas edge uploaded without resampling.
// Zero or less disables resampling.
//
// Parameters:
//   - px: the maximum edge length in pixels
//
// Returns:
//   - LoaderBuilderOption: a function that applies the max texture option to a loader
func WithMaxTextureDimension(px int) LoaderBuilderOption {
	return func(l *loader) {
		l.maxTextureDimension = px
	}
}

// WithLogger sets the structured logger used for fetch diagnostics.
func WithLogger(logger *slog.Logger) LoaderBuilderOption {
	return func(l *loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}
