package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"streamvault/config"
	"streamvault/handlers"
	"streamvault/internal/database"
	"streamvault/internal/logging"
	"streamvault/internal/ttlcache"
	"streamvault/internal/vault"
	"streamvault/services/recordings"
	"streamvault/services/stt"
	"streamvault/utils"
)

func main() {
	settings := config.Load()
	logger := logging.New(logging.Options{Level: slog.LevelInfo, File: settings.LogFile})
	slog.SetDefault(logger)

	if err := run(settings, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(settings config.Settings, logger *slog.Logger) error {
	fs := afero.NewOsFs()
	if err := fs.MkdirAll(settings.VideoRootDir, 0o755); err != nil {
		return err
	}

	db, err := database.NewDB(database.Config{DatabasePath: settings.DatabasePath})
	if err != nil {
		return err
	}
	defer db.Close()

	metaCache := ttlcache.New[vault.FileMetadata](settings.MetaCacheEntries, settings.MetaCacheTTL)
	chunkCache := ttlcache.New[[]byte](settings.ChunkCacheEntries, settings.ChunkCacheTTL)

	store := vault.NewStore(fs, settings.VideoRootDir, chunkCache, logger)
	staticMount := handlers.NewStaticMount(fs, settings.VideoRootDir, "/files")
	jobsService := recordings.NewService(db.Jobs, logger)

	api := utils.API{
		Videos: handlers.NewVideoHandler(store, metaCache, logger),
		Static: staticMount,
		Jobs:   handlers.NewJobsHandler(jobsService, logger),
	}

	var sttService *stt.Service
	if settings.STTEngineURL != "" {
		engine := stt.NewHTTPEngine(settings.STTEngineURL, fs)
		sttService = stt.NewService(engine, fs, settings.ScratchDir, settings.STTWorkers, logger)
		api.STT = handlers.NewSTTHandler(sttService, logger)
		api.STTUploadLimit = utils.WithRateLimit(settings.UploadRatePerMinute)
	} else {
		logger.Info("STT engine not configured, transcription endpoints disabled")
	}

	router := utils.NewRouter(api, logger)

	server := &http.Server{
		Addr:    settings.ListenAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving",
			"addr", settings.ListenAddr,
			"video_root", settings.VideoRootDir,
			"db", settings.DatabasePath,
		)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	staticMount.Unmount()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	if sttService != nil {
		sttService.Close()
	}
	return nil
}
