package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"streamvault/services/stt"
)

// maxUploadBytes bounds STT uploads; recordings sent for transcription are
// audio tracks, not full videos.
const maxUploadBytes = 512 << 20

// STTHandler exposes the speech-to-text task lifecycle over HTTP.
type STTHandler struct {
	service *stt.Service
	logger  *slog.Logger
}

func NewSTTHandler(service *stt.Service, logger *slog.Logger) *STTHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &STTHandler{service: service, logger: logger}
}

// Upload accepts a multipart audio file plus transcription parameters and
// creates a task.
func (h *STTHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid multipart body", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "no file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	cfg := stt.Config{
		Language:       formValueOr(r, "language", "auto"),
		Model:          formValueOr(r, "model", "base"),
		ResponseFormat: formValueOr(r, "response_format", "srt"),
	}

	task, err := h.service.Upload(header.Filename, file, cfg)
	if err != nil {
		h.logger.Error("stt upload rejected", "filename", header.Filename, "error", err)
		writeSTTError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// Process starts transcription of an uploaded task.
func (h *STTHandler) Process(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["taskID"]
	if err := h.service.Process(r.Context(), id); err != nil {
		h.logger.Error("stt process failed", "task_id", id, "error", err)
		writeSTTError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": id, "message": "processing started"})
}

// Status reports a task snapshot.
func (h *STTHandler) Status(w http.ResponseWriter, r *http.Request) {
	task, err := h.service.Status(mux.Vars(r)["taskID"])
	if err != nil {
		writeSTTError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Download returns the completed transcription as an attachment.
func (h *STTHandler) Download(w http.ResponseWriter, r *http.Request) {
	file, err := h.service.Result(mux.Vars(r)["taskID"])
	if err != nil {
		writeSTTError(w, err)
		return
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(file.Data)))
	w.Write(file.Data)
}

// Delete removes a task and its uploaded file.
func (h *STTHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["taskID"]
	if err := h.service.Delete(id); err != nil {
		writeSTTError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"task_id": id, "message": "task deleted"})
}

func writeSTTError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, stt.ErrTaskNotFound):
		http.Error(w, "task not found", http.StatusNotFound)
	case errors.Is(err, stt.ErrTaskNotCompleted), errors.Is(err, stt.ErrAlreadyProcessing), errors.Is(err, stt.ErrUnsupportedFormat):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func formValueOr(r *http.Request, key, fallback string) string {
	if v := r.FormValue(key); v != "" {
		return v
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
