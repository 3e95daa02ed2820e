package ingest

import (
	"errors"
	"fmt"
)

// ErrHTTPStatus is wrapped by a FetchError when the server answers with a
// non-2xx status.
var ErrHTTPStatus = errors.New("unexpected HTTP status")

// FetchError reports a network or HTTP failure for one source. The source
// contributes no stories.
type FetchError struct {
	Source string
	URL    string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s from %s: %v", e.Source, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a feed body that could not be parsed. The source
// contributes no stories.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
