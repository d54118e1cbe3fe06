package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"streamvault/models"
)

// ErrJobNotFound is returned when no job row matches the given id.
var ErrJobNotFound = errors.New("recording job not found")

// JobRepository persists recording jobs.
type JobRepository struct {
	conn *sql.DB
}

// NewJobRepository creates a repository over an open connection.
func NewJobRepository(conn *sql.DB) *JobRepository {
	return &JobRepository{conn: conn}
}

const jobColumns = `id, streamer_name, live_url, quality, output_dir, status,
	segment_record, segment_time, scheduled_start, monitor_hours, remark,
	created_at, updated_at`

// Create inserts job and fills its ID and timestamps.
func (r *JobRepository) Create(ctx context.Context, job *models.RecordingJob) error {
	now := time.Now().UTC()
	result, err := r.conn.ExecContext(ctx, `
		INSERT INTO recording_jobs
			(streamer_name, live_url, quality, output_dir, status, segment_record,
			 segment_time, scheduled_start, monitor_hours, remark, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.StreamerName, job.LiveURL, job.Quality, job.OutputDir, job.Status,
		job.SegmentRecord, job.SegmentTime, job.ScheduledStart, job.MonitorHours,
		job.Remark, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert recording job: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert recording job id: %w", err)
	}
	job.ID = id
	job.CreatedAt = now
	job.UpdatedAt = now
	return nil
}

// Get loads one job by id.
func (r *JobRepository) Get(ctx context.Context, id int64) (*models.RecordingJob, error) {
	row := r.conn.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM recording_jobs WHERE id = ?`, id)
	return scanJob(row)
}

// List returns all jobs, newest first.
func (r *JobRepository) List(ctx context.Context) ([]*models.RecordingJob, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM recording_jobs ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list recording jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.RecordingJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Update rewrites the mutable fields of job.
func (r *JobRepository) Update(ctx context.Context, job *models.RecordingJob) error {
	now := time.Now().UTC()
	result, err := r.conn.ExecContext(ctx, `
		UPDATE recording_jobs
		SET streamer_name = ?, live_url = ?, quality = ?, output_dir = ?,
			status = ?, segment_record = ?, segment_time = ?, scheduled_start = ?,
			monitor_hours = ?, remark = ?, updated_at = ?
		WHERE id = ?`,
		job.StreamerName, job.LiveURL, job.Quality, job.OutputDir, job.Status,
		job.SegmentRecord, job.SegmentTime, job.ScheduledStart, job.MonitorHours,
		job.Remark, now, job.ID,
	)
	if err != nil {
		return fmt.Errorf("update recording job %d: %w", job.ID, err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return ErrJobNotFound
	}
	job.UpdatedAt = now
	return nil
}

// UpdateStatus transitions just the lifecycle state.
func (r *JobRepository) UpdateStatus(ctx context.Context, id int64, status models.JobStatus) error {
	result, err := r.conn.ExecContext(ctx,
		`UPDATE recording_jobs SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update recording job %d status: %w", id, err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return ErrJobNotFound
	}
	return nil
}

// Delete removes a job.
func (r *JobRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.conn.ExecContext(ctx, `DELETE FROM recording_jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recording job %d: %w", id, err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return ErrJobNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*models.RecordingJob, error) {
	var job models.RecordingJob
	err := row.Scan(
		&job.ID, &job.StreamerName, &job.LiveURL, &job.Quality, &job.OutputDir,
		&job.Status, &job.SegmentRecord, &job.SegmentTime, &job.ScheduledStart,
		&job.MonitorHours, &job.Remark, &job.CreatedAt, &job.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan recording job: %w", err)
	}
	return &job, nil
}
