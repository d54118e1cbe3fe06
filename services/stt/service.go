// Package stt manages the speech-to-text task lifecycle around an external
// transcription engine. Task records live in memory only and are lost on
// restart.
package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
)

var (
	ErrTaskNotFound      = errors.New("stt task not found")
	ErrTaskNotCompleted  = errors.New("stt task not completed")
	ErrAlreadyProcessing = errors.New("stt task already processing")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// supportedExtensions mirrors what the recorder produces plus common audio
// containers.
var supportedExtensions = map[string]bool{
	".wav": true, ".mp3": true, ".mp4": true, ".m4a": true, ".flac": true,
	".aac": true, ".mov": true, ".avi": true, ".mkv": true, ".mpeg": true,
}

// Status is the lifecycle state of a task.
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Config carries the transcription parameters chosen at upload time.
type Config struct {
	Language       string `json:"language"`
	Model          string `json:"model"`
	ResponseFormat string `json:"response_format"`
}

// Engine transcribes an audio file. Implementations are black boxes; progress
// is reported through the callback as (fraction in [0,1], message).
type Engine interface {
	Transcribe(ctx context.Context, audioPath string, cfg Config, progress func(float64, string)) (string, error)
}

// Task is an immutable snapshot of a task record.
type Task struct {
	ID       string  `json:"task_id"`
	Filename string  `json:"filename"`
	Size     int64   `json:"file_size"`
	Status   Status  `json:"status"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
	Result   string  `json:"result,omitempty"`
	Error    string  `json:"error,omitempty"`
	Config   Config  `json:"config"`
}

type record struct {
	Task
	audioPath string
}

// Service owns the task table and the worker pool running transcriptions.
type Service struct {
	mu     sync.Mutex
	tasks  map[string]*record
	engine Engine
	fs     afero.Fs
	dir    string
	pool   *pool.Pool
	logger *slog.Logger
}

// NewService stores uploads under dir on fsys and runs at most workers
// transcriptions concurrently.
func NewService(engine Engine, fsys afero.Fs, dir string, workers int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if workers < 1 {
		workers = 1
	}
	return &Service{
		tasks:  make(map[string]*record),
		engine: engine,
		fs:     fsys,
		dir:    dir,
		pool:   pool.New().WithMaxGoroutines(workers),
		logger: logger,
	}
}

// Upload validates and persists an uploaded audio file and creates its task
// record.
func (s *Service) Upload(filename string, content io.Reader, cfg Config) (Task, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if filename == "" || !supportedExtensions[ext] {
		return Task{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return Task{}, fmt.Errorf("read upload: %w", err)
	}

	// The extension whitelist only checks the name; sniff the payload too so
	// a renamed text file is rejected before it reaches the engine.
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "audio/") &&
		!strings.HasPrefix(mtype.String(), "video/") &&
		!mtype.Is("application/octet-stream") {
		return Task{}, fmt.Errorf("%w: detected %s", ErrUnsupportedFormat, mtype)
	}

	id := uuid.NewString()
	audioPath := filepath.Join(s.dir, "stt-"+id+ext)
	if err := afero.WriteFile(s.fs, audioPath, data, 0o600); err != nil {
		return Task{}, fmt.Errorf("store upload: %w", err)
	}

	rec := &record{
		Task: Task{
			ID:       id,
			Filename: filename,
			Size:     int64(len(data)),
			Status:   StatusUploaded,
			Message:  "file uploaded",
			Config:   cfg,
		},
		audioPath: audioPath,
	}

	s.mu.Lock()
	s.tasks[id] = rec
	s.mu.Unlock()

	s.logger.Info("stt upload accepted", "task_id", id, "filename", filename, "size", rec.Size, "type", mtype.String())
	return rec.Task, nil
}

// Process schedules the transcription of an uploaded task on the worker pool.
func (s *Service) Process(ctx context.Context, id string) error {
	s.mu.Lock()
	rec, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return ErrTaskNotFound
	}
	if rec.Status == StatusProcessing {
		s.mu.Unlock()
		return ErrAlreadyProcessing
	}
	rec.Status = StatusProcessing
	rec.Progress = 0.1
	rec.Message = "processing started"
	cfg := rec.Config
	audioPath := rec.audioPath
	s.mu.Unlock()

	// The triggering request finishes long before the engine does; detach the
	// worker from its cancellation so a served 202 does not abort the job.
	ctx = context.WithoutCancel(ctx)

	s.pool.Go(func() {
		result, err := s.engine.Transcribe(ctx, audioPath, cfg, func(fraction float64, message string) {
			s.mu.Lock()
			if r, ok := s.tasks[id]; ok {
				r.Progress = fraction
				r.Message = message
			}
			s.mu.Unlock()
		})

		s.mu.Lock()
		defer s.mu.Unlock()
		r, ok := s.tasks[id]
		if !ok {
			// Deleted while in flight.
			return
		}
		if err != nil {
			r.Status = StatusError
			r.Error = err.Error()
			r.Message = "processing failed"
			s.logger.Error("stt processing failed", "task_id", id, "error", err)
			return
		}
		r.Status = StatusCompleted
		r.Result = result
		r.Progress = 1.0
		r.Message = "processing completed"
		s.logger.Info("stt processing completed", "task_id", id)
	})

	return nil
}

// Status returns a snapshot of the task.
func (s *Service) Status(id string) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tasks[id]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	return rec.Task, nil
}

// ResultFile is a downloadable rendering of a completed task.
type ResultFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Result renders the completed transcription in the format chosen at upload.
func (s *Service) Result(id string) (ResultFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tasks[id]
	if !ok {
		return ResultFile{}, ErrTaskNotFound
	}
	if rec.Status != StatusCompleted {
		return ResultFile{}, fmt.Errorf("%w: status %s", ErrTaskNotCompleted, rec.Status)
	}

	format := rec.Config.ResponseFormat
	if format == "" {
		format = "srt"
	}
	contentType := "text/plain"
	if format == "json" {
		contentType = "application/json"
	}

	stem := strings.TrimSuffix(rec.Filename, filepath.Ext(rec.Filename))
	return ResultFile{
		Name:        stem + "." + format,
		ContentType: contentType,
		Data:        []byte(rec.Result),
	}, nil
}

// Delete removes the task record and its scratch file.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	rec, ok := s.tasks[id]
	if ok {
		delete(s.tasks, id)
	}
	s.mu.Unlock()

	if !ok {
		return ErrTaskNotFound
	}
	if err := s.fs.Remove(rec.audioPath); err != nil {
		// The record is gone either way; the scratch dir is temporary.
		s.logger.Warn("could not remove stt scratch file", "path", rec.audioPath, "error", err)
	}
	return nil
}

// Close waits for in-flight transcriptions to finish.
func (s *Service) Close() {
	s.pool.Wait()
}
