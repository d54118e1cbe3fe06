package utils_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"

	"streamvault/handlers"
	"streamvault/internal/database"
	"streamvault/internal/ttlcache"
	"streamvault/internal/vault"
	"streamvault/services/recordings"
	"streamvault/utils"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	db, err := database.NewDB(database.Config{
		DatabasePath: filepath.Join(t.TempDir(), "catalog.db"),
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.DiscardHandler)
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/videos", 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	meta := ttlcache.New[vault.FileMetadata](50, 300*time.Second)
	chunks := ttlcache.New[[]byte](25, 60*time.Second)
	store := vault.NewStore(fs, "/videos", chunks, logger)

	return utils.NewRouter(utils.API{
		Videos: handlers.NewVideoHandler(store, meta, logger),
		Static: handlers.NewStaticMount(fs, "/videos", "/files"),
		Jobs:   handlers.NewJobsHandler(recordings.NewService(db.Jobs, logger), logger),
	}, logger)
}

func TestRouterRoutes(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos?filename=missing.mp4", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("videos route status = %d, want 404 for missing file", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("jobs route status = %d, want 200", rec.Code)
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/jobs", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("preflight status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestRouterSTTDisabled(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stt/upload", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("stt upload without engine = %d, want 404", rec.Code)
	}
}
