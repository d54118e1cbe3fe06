package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"

	"streamvault/handlers"
	"streamvault/services/stt"
)

type instantEngine struct {
	result string
}

func (e *instantEngine) Transcribe(context.Context, string, stt.Config, func(float64, string)) (string, error) {
	return e.result, nil
}

// delayedEngine waits before answering and gives up if its context is
// cancelled first, the way a real polling client would.
type delayedEngine struct {
	delay  time.Duration
	result string
}

func (e *delayedEngine) Transcribe(ctx context.Context, _ string, _ stt.Config, _ func(float64, string)) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(e.delay):
		return e.result, nil
	}
}

func newSTTRouter(t *testing.T, engine stt.Engine) (*mux.Router, *stt.Service) {
	t.Helper()

	service := stt.NewService(engine, afero.NewMemMapFs(), "/scratch", 1, slog.New(slog.DiscardHandler))
	t.Cleanup(service.Close)

	handler := handlers.NewSTTHandler(service, slog.New(slog.DiscardHandler))
	r := mux.NewRouter()
	r.HandleFunc("/api/stt/upload", handler.Upload).Methods(http.MethodPost)
	r.HandleFunc("/api/stt/process/{taskID}", handler.Process).Methods(http.MethodPost)
	r.HandleFunc("/api/stt/status/{taskID}", handler.Status).Methods(http.MethodGet)
	r.HandleFunc("/api/stt/download/{taskID}", handler.Download).Methods(http.MethodGet)
	r.HandleFunc("/api/stt/task/{taskID}", handler.Delete).Methods(http.MethodDelete)
	return r, service
}

func multipartUpload(t *testing.T, filename string, payload []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(payload); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	for k, v := range fields {
		if err := form.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := form.Close(); err != nil {
		t.Fatalf("close form: %v", err)
	}
	return &body, form.FormDataContentType()
}

func riffPayload() []byte {
	b := []byte("RIFF????WAVEfmt ")
	return append(b, make([]byte, 64)...)
}

func TestSTTUploadAndLifecycle(t *testing.T) {
	t.Parallel()

	router, _ := newSTTRouter(t, &instantEngine{result: "subtitle text"})

	body, contentType := multipartUpload(t, "show.wav", riffPayload(), map[string]string{"response_format": "srt"})
	req := httptest.NewRequest(http.MethodPost, "/api/stt/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body)
	}
	var task stt.Task
	if err := json.NewDecoder(rec.Body).Decode(&task); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if task.ID == "" || task.Status != stt.StatusUploaded {
		t.Fatalf("upload response = %+v", task)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stt/process/"+task.ID, nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("process status = %d", rec.Code)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stt/status/"+task.ID, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status status = %d", rec.Code)
		}
		var snapshot stt.Task
		if err := json.NewDecoder(rec.Body).Decode(&snapshot); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		if snapshot.Status == stt.StatusCompleted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("task stuck in %q", snapshot.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stt/download/"+task.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="show.srt"` {
		t.Fatalf("Content-Disposition = %q", got)
	}
	if rec.Body.String() != "subtitle text" {
		t.Fatalf("download body = %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/stt/task/"+task.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stt/status/"+task.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status after delete = %d, want 404", rec.Code)
	}
}

// Processing runs on a background worker, so it must survive the Process
// request's context being cancelled once the 202 goes out. A recorder never
// cancels, so this goes through a real server.
func TestSTTProcessingOutlivesRequest(t *testing.T) {
	t.Parallel()

	router, _ := newSTTRouter(t, &delayedEngine{delay: 50 * time.Millisecond, result: "late text"})
	srv := httptest.NewServer(router)
	defer srv.Close()

	body, contentType := multipartUpload(t, "show.wav", riffPayload(), nil)
	resp, err := http.Post(srv.URL+"/api/stt/upload", contentType, body)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	var task stt.Task
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || task.ID == "" {
		t.Fatalf("upload status = %d, task %+v", resp.StatusCode, task)
	}

	resp, err = http.Post(srv.URL+"/api/stt/process/"+task.ID, "", nil)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("process status = %d, want 202", resp.StatusCode)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(srv.URL + "/api/stt/status/" + task.ID)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		var snapshot stt.Task
		if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		resp.Body.Close()

		switch snapshot.Status {
		case stt.StatusCompleted:
			if snapshot.Result != "late text" {
				t.Fatalf("result = %q", snapshot.Result)
			}
			return
		case stt.StatusError:
			t.Fatalf("task failed after request completed: %s", snapshot.Error)
		}
		if time.Now().After(deadline) {
			t.Fatalf("task stuck in %q", snapshot.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSTTUploadRejectsTextFile(t *testing.T) {
	t.Parallel()

	router, _ := newSTTRouter(t, &instantEngine{result: "subtitle text"})

	body, contentType := multipartUpload(t, "notes.txt", []byte("hello"), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/stt/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("upload status = %d, want 400", rec.Code)
	}
}

func TestSTTDownloadBeforeCompletion(t *testing.T) {
	t.Parallel()

	router, service := newSTTRouter(t, &instantEngine{result: "subtitle text"})

	task, err := service.Upload("show.wav", bytes.NewReader(riffPayload()), stt.Config{})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stt/download/"+task.ID, nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("download status = %d, want 400", rec.Code)
	}
}

func TestSTTUnknownTask(t *testing.T) {
	t.Parallel()

	router, _ := newSTTRouter(t, &instantEngine{result: "subtitle text"})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stt/process/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("process unknown status = %d, want 404", rec.Code)
	}
}
