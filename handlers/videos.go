package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/spf13/afero"

	"streamvault/internal/conditional"
	"streamvault/internal/httprange"
	"streamvault/internal/ttlcache"
	"streamvault/internal/vault"
)

// VideoHandler serves recorded videos with conditional-GET and byte-range
// support over the vault store.
type VideoHandler struct {
	store  *vault.Store
	meta   *ttlcache.Cache[vault.FileMetadata]
	logger *slog.Logger
}

// NewVideoHandler wires the handler to its store and the server-owned
// metadata cache.
func NewVideoHandler(store *vault.Store, meta *ttlcache.Cache[vault.FileMetadata], logger *slog.Logger) *VideoHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &VideoHandler{store: store, meta: meta, logger: logger}
}

// GetVideo handles GET /api/videos?filename=&subfolder=.
func (h *VideoHandler) GetVideo(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	subfolder := r.URL.Query().Get("subfolder")
	rangeHeader := r.Header.Get("Range")

	logger := h.logger.With(
		"filename", filename,
		"subfolder", subfolder,
		"range", rangeHeader,
	)

	// Conditional short-circuit runs only against a warm metadata entry,
	// before any path validation or filesystem touch. On a cold cache the
	// request falls through to a stat and a body response.
	cacheKey := filename + "-" + subfolder
	if meta, ok := h.meta.Get(cacheKey); ok {
		if conditional.NotModified(
			r.Header.Get("If-None-Match"),
			r.Header.Get("If-Modified-Since"),
			meta.ETag,
			meta.LastModified,
		) {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	path, err := h.store.Resolve(filename, subfolder)
	if err != nil {
		logger.Error("path resolution failed", "error", err)
		writeVaultError(w, err)
		return
	}

	// Re-stat unconditionally: the warm entry may describe a file that
	// changed since it was cached.
	meta, err := h.store.Metadata(path)
	if err != nil {
		logger.Error("stat failed", "path", path, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	h.meta.Set(cacheKey, meta)

	if rangeHeader != "" {
		h.serveRange(w, r, logger, filename, path, meta)
		return
	}
	h.serveWhole(w, r, logger, path, meta)
}

func (h *VideoHandler) serveRange(w http.ResponseWriter, r *http.Request, logger *slog.Logger, filename, path string, meta vault.FileMetadata) {
	br, err := httprange.Parse(r.Header.Get("Range"), meta.Size)
	if err != nil {
		logger.Error("range rejected", "size", meta.Size, "error", err)
		if errors.Is(err, httprange.ErrMalformed) {
			http.Error(w, "malformed range header", http.StatusBadRequest)
			return
		}
		http.Error(w, "requested range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return
	}

	blob, err := h.store.ReadRange(filename, path, br.Start, br.End)
	if err != nil {
		logger.Error("range read failed", "path", path, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Range", br.ContentRange(meta.Size))
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", br.Length()))
	w.Header().Set("Content-Type", "video/mp4")
	w.WriteHeader(http.StatusPartialContent)
	if _, err := w.Write(blob); err != nil {
		logger.Warn("client disconnected mid-range", "path", path, "error", err)
	}
}

func (h *VideoHandler) serveWhole(w http.ResponseWriter, r *http.Request, logger *slog.Logger, path string, meta vault.FileMetadata) {
	rc, err := h.store.StreamAll(path)
	if err != nil {
		logger.Error("open failed", "path", path, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Length", fmt.Sprintf("%d", meta.Size))
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Header().Set("ETag", meta.ETag)
	w.Header().Set("Last-Modified", meta.LastModified.UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)

	buf := make([]byte, vault.ChunkSize)
	flusher, _ := w.(http.Flusher)
	for {
		n, readErr := rc.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				// Consumer went away; release the handle and stop reading.
				logger.Warn("client disconnected mid-stream", "path", path, "error", writeErr)
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr != nil {
			if readErr != io.EOF {
				logger.Error("read failed mid-stream", "path", path, "error", readErr)
			}
			return
		}
	}
}

func writeVaultError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, vault.ErrInvalidFilename):
		http.Error(w, "invalid filename", http.StatusBadRequest)
	case errors.Is(err, vault.ErrPathTraversal):
		http.Error(w, "invalid file path", http.StatusBadRequest)
	case errors.Is(err, vault.ErrNotFound):
		http.Error(w, "video file not found", http.StatusNotFound)
	default:
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// StaticMount exposes the video root read-only at a fixed URL prefix. It can
// be unmounted at shutdown, after which it answers 404.
type StaticMount struct {
	mu      sync.RWMutex
	handler http.Handler
}

// NewStaticMount serves root (within fsys) under prefix.
func NewStaticMount(fsys afero.Fs, root, prefix string) *StaticMount {
	files := afero.NewHttpFs(afero.NewReadOnlyFs(afero.NewBasePathFs(fsys, root)))
	return &StaticMount{handler: http.StripPrefix(prefix, http.FileServer(files))}
}

func (m *StaticMount) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	handler := m.handler
	m.mu.RUnlock()

	if handler == nil {
		http.NotFound(w, r)
		return
	}
	handler.ServeHTTP(w, r)
}

// Unmount clears the mount target.
func (m *StaticMount) Unmount() {
	m.mu.Lock()
	m.handler = nil
	m.mu.Unlock()
}
