package loader

import (
	"fmt"
	"strings"
)

// DataFetchError reports a failed request: the transport failed, the server answered with a
// non-2xx status, or the body was not parseable at all.
type DataFetchError struct {
	// Resource names the endpoint that failed, e.g. "coordinates" or "spritesheet".
	Resource string
	// Dataset is the dataset the request was for; empty for the dataset name listing.
	Dataset string
	// Location is the URL or file path that was read.
	Location string
	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int
	Err        error
}

func (e *DataFetchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "loader: fetch %s", e.Resource)
	if e.Dataset != "" {
		fmt.Fprintf(&b, " for dataset %q", e.Dataset)
	}
	if e.Location != "" {
		fmt.Fprintf(&b, " from %s", e.Location)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *DataFetchError) Unwrap() error {
	return e.Err
}

// MalformedDataError reports a well-formed JSON body that does not have the expected shape.
// Index is the offending point's position, or -1 when the problem is not tied to one point.
type MalformedDataError struct {
	Dataset string
	Index   int
	Field   string
	Reason  string
}

func (e *MalformedDataError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("loader: malformed coordinates for dataset %q: %s", e.Dataset, e.Reason)
	}
	return fmt.Sprintf("loader: malformed coordinates for dataset %q: point %d field %q: %s", e.Dataset, e.Index, e.Field, e.Reason)
}

// TextureDecodeError reports a sprite sheet payload that could not be decoded into an image.
type TextureDecodeError struct {
	Dataset string
	// Format is the sniffed file type, or "unknown".
	Format string
	Err    error
}

func (e *TextureDecodeError) Error() string {
	return fmt.Sprintf("loader: decode sprite sheet for dataset %q (format %s): %v", e.Dataset, e.Format, e.Err)
}

func (e *TextureDecodeError) Unwrap() error {
	return e.Err
}
