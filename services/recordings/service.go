// Package recordings manages the catalog of live-stream recording jobs.
package recordings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"streamvault/internal/database"
	"streamvault/models"
)

var (
	ErrInvalidJob    = errors.New("invalid recording job")
	ErrInvalidStatus = errors.New("invalid job status")

	// ErrJobNotFound re-exports the repository sentinel so handlers only
	// depend on this package.
	ErrJobNotFound = database.ErrJobNotFound
)

// Service validates and persists recording jobs.
type Service struct {
	repo   *database.JobRepository
	logger *slog.Logger
}

func NewService(repo *database.JobRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// Create validates and stores a new job. Missing optional fields get the
// catalog defaults; a new job starts stopped unless a valid status is given.
func (s *Service) Create(ctx context.Context, job *models.RecordingJob) error {
	if err := validate(job); err != nil {
		return err
	}
	if job.Quality == "" {
		job.Quality = "original"
	}
	if job.SegmentTime <= 0 {
		job.SegmentTime = 1800
	}
	if job.Status == "" {
		job.Status = models.JobStopped
	} else if !models.ValidJobStatus(job.Status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, job.Status)
	}

	if err := s.repo.Create(ctx, job); err != nil {
		return err
	}
	s.logger.Info("recording job created", "id", job.ID, "streamer", job.StreamerName, "url", job.LiveURL)
	return nil
}

// Get returns one job.
func (s *Service) Get(ctx context.Context, id int64) (*models.RecordingJob, error) {
	return s.repo.Get(ctx, id)
}

// List returns all jobs, newest first.
func (s *Service) List(ctx context.Context) ([]*models.RecordingJob, error) {
	return s.repo.List(ctx)
}

// Update validates and rewrites an existing job.
func (s *Service) Update(ctx context.Context, job *models.RecordingJob) error {
	if job.ID <= 0 {
		return fmt.Errorf("%w: missing id", ErrInvalidJob)
	}
	if err := validate(job); err != nil {
		return err
	}
	if !models.ValidJobStatus(job.Status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, job.Status)
	}
	return s.repo.Update(ctx, job)
}

// UpdateStatus transitions a job's lifecycle state.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status models.JobStatus) error {
	if !models.ValidJobStatus(status) {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	s.logger.Info("recording job status changed", "id", id, "status", status)
	return nil
}

// Delete removes a job from the catalog.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("recording job deleted", "id", id)
	return nil
}

func validate(job *models.RecordingJob) error {
	if strings.TrimSpace(job.StreamerName) == "" {
		return fmt.Errorf("%w: streamer_name required", ErrInvalidJob)
	}
	parsed, err := url.Parse(job.LiveURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%w: live_url must be an http(s) URL", ErrInvalidJob)
	}
	return nil
}
