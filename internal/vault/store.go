// Package vault resolves, fingerprints and streams video files underneath a
// single configured root directory.
package vault

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"

	"streamvault/internal/ttlcache"
)

// FileMetadata is the cache-friendly fingerprint of a file at stat time.
type FileMetadata struct {
	Size         int64
	LastModified time.Time
	ETag         string
}

// Store provides path-safe access to the files under its root. All filesystem
// access goes through the injected afero.Fs.
type Store struct {
	fs     afero.Fs
	root   string
	chunks *ttlcache.Cache[[]byte]
	logger *slog.Logger
}

// NewStore builds a Store over root. The chunk cache holds previously served
// byte ranges; pass the instance owned by the server so its size and TTL stay
// configurable.
func NewStore(fsys afero.Fs, root string, chunks *ttlcache.Cache[[]byte], logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		fs:     fsys,
		root:   filepath.Clean(root),
		chunks: chunks,
		logger: logger,
	}
}

// Root returns the cleaned root directory the store serves from.
func (s *Store) Root() string {
	return s.root
}

// Resolve validates (filename, subfolder) and returns the absolute path of the
// regular file they denote.
//
// The check is two-stage on purpose: separators in the leaf name are rejected
// syntactically before any filesystem access, then the joined path is
// re-verified to be a strict descendant of the root. The second stage catches
// escapes smuggled in through the subfolder.
func (s *Store) Resolve(filename, subfolder string) (string, error) {
	if filename == "" || strings.ContainsAny(filename, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}

	path := filepath.Join(s.root, subfolder, filename)
	rel, err := filepath.Rel(s.root, path)
	// Exact parent-escape check: a directory legitimately named "..archive"
	// must not trip it.
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathTraversal, path)
	}

	info, err := s.fs.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %q", ErrNotFound, path)
	}

	return path, nil
}

// Metadata stats path and derives its validator fingerprint. The ETag hashes
// only size and mtime, never content, so it is O(1) regardless of file size;
// collisions are acceptable for a cache validator.
func (s *Store) Metadata(path string) (FileMetadata, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		return FileMetadata{}, fmt.Errorf("stat %q: %w", path, err)
	}

	modified := info.ModTime()
	digest := xxhash.Sum64String(fmt.Sprintf("%d-%s", info.Size(), modified.Format(time.RFC3339Nano)))

	return FileMetadata{
		Size:         info.Size(),
		LastModified: modified,
		ETag:         fmt.Sprintf("%016x", digest),
	}, nil
}
