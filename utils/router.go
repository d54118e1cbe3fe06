package utils

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"streamvault/handlers"
)

// API groups the handler surfaces the router exposes. STT is optional:
// leaving it nil keeps the transcription routes unregistered.
type API struct {
	Videos *handlers.VideoHandler
	Static *handlers.StaticMount
	Jobs   *handlers.JobsHandler

	STT            *handlers.STTHandler
	STTUploadLimit mux.MiddlewareFunc
}

// allowCrossOrigin lets the recorder's webview call the service from any
// origin and answers preflights directly.
func allowCrossOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewRouter builds the service's full route table with CORS and request
// logging applied to every route. CORS wraps the router itself so preflights
// are answered even for method/route combinations mux would not match.
func NewRouter(api API, logger *slog.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(WithLogging(logger))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/videos", api.Videos.GetVideo).Methods(http.MethodGet)
	r.PathPrefix("/files/").Handler(api.Static)

	r.HandleFunc("/api/jobs", api.Jobs.Create).Methods(http.MethodPost)
	r.HandleFunc("/api/jobs", api.Jobs.List).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs/{jobID}", api.Jobs.Get).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs/{jobID}", api.Jobs.Update).Methods(http.MethodPut)
	r.HandleFunc("/api/jobs/{jobID}", api.Jobs.Delete).Methods(http.MethodDelete)
	r.HandleFunc("/api/jobs/{jobID}/status", api.Jobs.UpdateStatus).Methods(http.MethodPost)

	if api.STT != nil {
		upload := http.Handler(http.HandlerFunc(api.STT.Upload))
		if api.STTUploadLimit != nil {
			upload = api.STTUploadLimit(upload)
		}
		r.Handle("/api/stt/upload", upload).Methods(http.MethodPost)
		r.HandleFunc("/api/stt/process/{taskID}", api.STT.Process).Methods(http.MethodPost)
		r.HandleFunc("/api/stt/status/{taskID}", api.STT.Status).Methods(http.MethodGet)
		r.HandleFunc("/api/stt/download/{taskID}", api.STT.Download).Methods(http.MethodGet)
		r.HandleFunc("/api/stt/task/{taskID}", api.STT.Delete).Methods(http.MethodDelete)
	}

	return allowCrossOrigin(r)
}
