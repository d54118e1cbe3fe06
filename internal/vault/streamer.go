package vault

import (
	"fmt"
	"io"
)

const (
	// ChunkSize is the read increment for streaming; consumers copying a
	// whole-file stream should use buffers of this size.
	ChunkSize = 64 * 1024

	// maxCachedRange bounds chunk-cache memory: only fully read ranges
	// strictly smaller than this are cached.
	maxCachedRange = 1 << 20
)

// StreamAll opens path for a whole-file stream. The caller owns the returned
// handle and must close it on completion or early disconnect.
func (s *Store) StreamAll(path string) (io.ReadCloser, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	return f, nil
}

// ReadRange returns the inclusive byte span [start,end] of the file as one
// blob, serving from the chunk cache when the same span was read before.
// Cached blobs are immutable; callers must not mutate the result.
//
// A short read mid-range (the file shrank after it was stat'd) stops the loop
// and returns the bytes gathered so far. The caller has typically already
// declared the full length in Content-Range by then, so this is logged.
func (s *Store) ReadRange(filename, path string, start, end int64) ([]byte, error) {
	key := fmt.Sprintf("%s-%d-%d", filename, start, end)
	if blob, ok := s.chunks.Get(key); ok {
		return blob, nil
	}

	f, err := s.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %q to %d: %w", path, start, err)
	}

	want := end - start + 1
	blob := make([]byte, 0, want)
	scratch := make([]byte, ChunkSize)

	for remaining := want; remaining > 0; {
		step := int64(ChunkSize)
		if remaining < step {
			step = remaining
		}

		n, err := f.Read(scratch[:step])
		if n > 0 {
			blob = append(blob, scratch[:n]...)
			remaining -= int64(n)
		}
		if remaining <= 0 {
			break
		}
		if err == io.EOF || (err == nil && n == 0) {
			s.logger.Warn("short read while serving range",
				"path", path,
				"start", start,
				"end", end,
				"read", len(blob),
				"expected", want,
			)
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %q range %d-%d: %w", path, start, end, err)
		}
	}

	if int64(len(blob)) < maxCachedRange {
		s.chunks.Set(key, blob)
	}

	return blob, nil
}
