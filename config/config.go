// Package config loads server settings from the environment.
package config

import (
	"os"
	"strconv"
	"time"
)

// Settings holds everything the server needs at startup. Values come from
// environment variables with sensible defaults for a local companion service.
type Settings struct {
	// ListenAddr is the host:port the HTTP server binds.
	ListenAddr string

	// VideoRootDir is the directory recorded videos are served from.
	VideoRootDir string

	// DatabasePath locates the recording-job catalog.
	DatabasePath string

	// ScratchDir receives uploaded audio awaiting transcription.
	ScratchDir string

	// STTEngineURL points at the external transcription engine; empty
	// disables the STT endpoints.
	STTEngineURL string

	// LogFile enables a rotating file sink next to console logging when set.
	LogFile string

	MetaCacheEntries  int
	MetaCacheTTL      time.Duration
	ChunkCacheEntries int
	ChunkCacheTTL     time.Duration

	// UploadRatePerMinute throttles STT uploads per client.
	UploadRatePerMinute int

	// STTWorkers bounds concurrent transcription jobs.
	STTWorkers int
}

// Load reads settings from the environment.
func Load() Settings {
	return Settings{
		ListenAddr:          ":" + getEnv("VIDEO_API_PORT", "6007"),
		VideoRootDir:        getEnv("VIDEO_ROOT_DIR", "downloads"),
		DatabasePath:        getEnv("DATABASE_PATH", "streamvault.db"),
		ScratchDir:          getEnv("STT_SCRATCH_DIR", os.TempDir()),
		STTEngineURL:        getEnv("STT_ENGINE_URL", ""),
		LogFile:             getEnv("LOG_FILE", ""),
		MetaCacheEntries:    getEnvInt("META_CACHE_ENTRIES", 50),
		MetaCacheTTL:        getEnvDuration("META_CACHE_TTL", 300*time.Second),
		ChunkCacheEntries:   getEnvInt("CHUNK_CACHE_ENTRIES", 25),
		ChunkCacheTTL:       getEnvDuration("CHUNK_CACHE_TTL", 60*time.Second),
		UploadRatePerMinute: getEnvInt("STT_UPLOAD_RATE_PER_MINUTE", 10),
		STTWorkers:          getEnvInt("STT_WORKERS", 2),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
