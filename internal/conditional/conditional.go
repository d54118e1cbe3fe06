// Package conditional evaluates HTTP conditional-GET validators against
// stored file metadata.
package conditional

import (
	"net/http"
	"time"
)

// NotModified reports whether a request carrying the given validators can be
// answered with 304 instead of a body.
//
// If-None-Match wins over If-Modified-Since and matches by exact string
// equality with the stored ETag. If-Modified-Since must be in the fixed
// RFC 1123 GMT form; a value that does not parse is ignored and the request
// proceeds. Last-Modified comparison is at second resolution, since that is
// all the header carries.
func NotModified(ifNoneMatch, ifModifiedSince, etag string, lastModified time.Time) bool {
	if ifNoneMatch != "" && ifNoneMatch == etag {
		return true
	}

	if ifModifiedSince != "" {
		since, err := time.Parse(http.TimeFormat, ifModifiedSince)
		if err == nil && !since.Before(lastModified.UTC().Truncate(time.Second)) {
			return true
		}
	}

	return false
}
