package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/anfastech/slaq-analysis/internal/core/ports"
	"github.com/anfastech/slaq-analysis/internal/observability/metrics"
)

const serviceName = "slaq-api"

type Options struct {
	MaxUploadBytes int64
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
}

type Router struct {
	submitter ports.RecordingSubmitter
	status    ports.RecordingStatusReader
	remover   ports.RecordingRemover
	analysis  ports.AnalysisService
	metrics   *metrics.HTTPServerMetrics
	options   Options
}

func NewRouter(
	submitter ports.RecordingSubmitter,
	status ports.RecordingStatusReader,
	remover ports.RecordingRemover,
	analysis ports.AnalysisService,
	httpMetrics *metrics.HTTPServerMetrics,
	options Options,
) *Router {
	if options.MaxUploadBytes <= 0 {
		options.MaxUploadBytes = 50 << 20
	}
	return &Router{
		submitter: submitter,
		status:    status,
		remover:   remover,
		analysis:  analysis,
		metrics:   httpMetrics,
		options:   options,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/analysis/health", rt.analysisHealth)
	mux.HandleFunc("/v1/recordings", rt.submitRecording)
	mux.HandleFunc("/v1/recordings/", rt.recordingByID)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	if rt.options.MaxInFlight > 0 {
		handler = backpressureMiddleware(handler, rt.options.MaxInFlight, 0)
	}
	if rt.options.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.options.RateLimitRPS, rt.options.RateLimitBurst)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// analysisHealth probes the external analysis service; the handler itself
// always answers 200 because reachability of the dependency is the payload,
// not this API's own health.
func (rt *Router) analysisHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, rt.analysis.CheckHealth(r.Context()))
}

func (rt *Router) submitRecording(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, rt.options.MaxUploadBytes)

	file, fileHeader, err := r.FormFile("audio")
	if err != nil {
		rt.recordSubmission("rejected", 0)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'audio' is required"})
		return
	}
	defer file.Close()

	rec, err := rt.submitter.Submit(r.Context(), ports.SubmitRequest{
		PatientID:  strings.TrimSpace(r.FormValue("patient_id")),
		Filename:   fileHeader.Filename,
		Language:   strings.TrimSpace(r.FormValue("language")),
		Transcript: r.FormValue("transcript"),
		Size:       fileHeader.Size,
		Body:       file,
	})
	if err != nil {
		rt.recordSubmission("rejected", 0)
		writeError(w, err)
		return
	}

	rt.recordSubmission("accepted", fileHeader.Size)
	writeJSON(w, http.StatusAccepted, rec)
}

func (rt *Router) recordingByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/recordings/")
	id, wantResult := strings.CutSuffix(rest, "/result")
	id = strings.Trim(id, "/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "recording id is required"})
		return
	}

	switch {
	case r.Method == http.MethodGet && wantResult:
		rt.getResult(w, r, id)
	case r.Method == http.MethodGet:
		rt.getStatus(w, r, id)
	case r.Method == http.MethodDelete && !wantResult:
		rt.deleteRecording(w, r, id)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) getStatus(w http.ResponseWriter, r *http.Request, id string) {
	status, err := rt.status.GetStatus(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordStatusPoll(serviceName, string(status.Status))
	}
	writeJSON(w, http.StatusOK, status)
}

func (rt *Router) getResult(w http.ResponseWriter, r *http.Request, id string) {
	result, err := rt.status.GetResult(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) deleteRecording(w http.ResponseWriter, r *http.Request, id string) {
	if err := rt.remover.Remove(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) recordSubmission(outcome string, size int64) {
	if rt.metrics != nil {
		rt.metrics.RecordSubmission(serviceName, outcome, size)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
