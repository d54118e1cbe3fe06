// Package httprange parses the single-range form of the HTTP Range header.
package httprange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMalformed indicates a Range header that does not match
	// "bytes=<start>-<end?>". Multi-range requests are rejected with this
	// error; they are not supported.
	ErrMalformed = errors.New("malformed range header")

	// ErrUnsatisfiable indicates bounds that cannot be served from the file.
	ErrUnsatisfiable = errors.New("requested range not satisfiable")
)

// ByteRange holds 0-indexed inclusive byte offsets with
// 0 <= Start <= End < size.
type ByteRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes the range covers.
func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange formats the Content-Range header value for a file of the given
// size.
func (r ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, size)
}

// Parse interprets header against a file of size bytes. An empty header means
// no range was requested and yields (nil, nil). A missing end offset defaults
// to size-1. Bounds at or past the file size, or an inverted range, fail with
// ErrUnsatisfiable.
func Parse(header string, size int64) (*ByteRange, error) {
	if header == "" {
		return nil, nil
	}

	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, header)
	}
	if strings.Contains(spec, ",") {
		return nil, fmt.Errorf("%w: multi-range not supported: %q", ErrMalformed, header)
	}

	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, header)
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMalformed, header)
	}

	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformed, header)
		}
	}

	if start >= size || end >= size {
		return nil, fmt.Errorf("%w: %q against size %d", ErrUnsatisfiable, header, size)
	}
	if start > end {
		return nil, fmt.Errorf("%w: start %d > end %d", ErrUnsatisfiable, start, end)
	}

	return &ByteRange{Start: start, End: end}, nil
}
