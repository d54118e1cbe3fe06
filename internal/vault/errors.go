package vault

import "errors"

var (
	// ErrInvalidFilename flags a filename carrying path separators (or an
	// empty name) before any filesystem access happens.
	ErrInvalidFilename = errors.New("invalid filename")

	// ErrPathTraversal flags a resolved path that escapes the video root.
	ErrPathTraversal = errors.New("path escapes video root")

	// ErrNotFound flags a path that does not resolve to a regular file.
	ErrNotFound = errors.New("video file not found")
)
