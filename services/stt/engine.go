package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/spf13/afero"
)

// HTTPEngine drives an external transcription engine over its HTTP API:
// submit the audio, then poll the job until it settles.
type HTTPEngine struct {
	baseURL string
	client  *http.Client
	fs      afero.Fs

	// PollInterval defaults to 2s; tests shrink it.
	PollInterval time.Duration
}

// NewHTTPEngine talks to the engine at baseURL and reads audio from fsys.
func NewHTTPEngine(baseURL string, fsys afero.Fs) *HTTPEngine {
	return &HTTPEngine{
		baseURL:      baseURL,
		client:       &http.Client{Timeout: 60 * time.Second},
		fs:           fsys,
		PollInterval: 2 * time.Second,
	}
}

type engineJob struct {
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
	Text     string  `json:"text"`
	Error    string  `json:"error"`
}

// Transcribe implements Engine.
func (e *HTTPEngine) Transcribe(ctx context.Context, audioPath string, cfg Config, progress func(float64, string)) (string, error) {
	jobID, err := e.submit(ctx, audioPath, cfg)
	if err != nil {
		return "", fmt.Errorf("submit transcription: %w", err)
	}

	ticker := time.NewTicker(e.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		job, err := e.poll(ctx, jobID)
		if err != nil {
			return "", fmt.Errorf("poll transcription %s: %w", jobID, err)
		}

		switch job.Status {
		case "completed":
			progress(1.0, "transcription finished")
			return job.Text, nil
		case "failed":
			return "", fmt.Errorf("engine failed: %s", job.Error)
		default:
			progress(job.Progress, job.Message)
		}
	}
}

func (e *HTTPEngine) submit(ctx context.Context, audioPath string, cfg Config) (string, error) {
	data, err := afero.ReadFile(e.fs, audioPath)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	for field, value := range map[string]string{
		"language":        cfg.Language,
		"model":           cfg.Model,
		"response_format": cfg.ResponseFormat,
	} {
		if err := form.WriteField(field, value); err != nil {
			return "", err
		}
	}
	if err := form.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/transcriptions", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var job engineJob
	if err := e.doJSON(req, &job); err != nil {
		return "", err
	}
	if job.ID == "" {
		return "", fmt.Errorf("engine returned no job id")
	}
	return job.ID, nil
}

// poll retries transient failures so a briefly restarting engine does not
// fail the whole task.
func (e *HTTPEngine) poll(ctx context.Context, jobID string) (engineJob, error) {
	var job engineJob
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/v1/transcriptions/"+jobID, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			return e.doJSON(req, &job)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
	)
	return job, err
}

func (e *HTTPEngine) doJSON(req *http.Request, out any) error {
	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("engine status %d: %s", resp.StatusCode, payload)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
