package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/surendar1863/student-edge-program/internal/app"
	"github.com/surendar1863/student-edge-program/internal/metrics"
	"github.com/surendar1863/student-edge-program/internal/models"
)

const requestIDHeader = "X-Request-ID"

type EvaluationHandler struct {
	service *app.Service
}

func NewEvaluationHandler(service *app.Service) *EvaluationHandler {
	return &EvaluationHandler{
		service: service,
	}
}

// Register mounts every route on mux.
func (h *EvaluationHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/sections/{section}/submissions", h.instrument(h.HandleSubmit))
	mux.HandleFunc("GET /api/v1/students/{roll}/sections/{section}/submission", h.instrument(h.HandleGetSubmission))
	mux.HandleFunc("GET /api/v1/students/{roll}/sections/{section}/evaluation", h.instrument(h.HandleEvaluation))
	mux.HandleFunc("PUT /api/v1/students/{roll}/sections/{section}/short-marks/{question}", h.instrument(h.HandleShortMark))
	mux.HandleFunc("PUT /api/v1/students/{roll}/marks/{question}", h.instrument(h.HandleMark))
	mux.HandleFunc("POST /api/v1/students/{roll}/marks", h.instrument(h.HandleBatchMarks))
	mux.HandleFunc("GET /api/v1/students/{roll}/report", h.instrument(h.HandleReport))
	mux.HandleFunc("GET /api/v1/dashboard", h.instrument(h.HandleDashboard))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *EvaluationHandler) instrument(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			duration := time.Since(start).Seconds()
			metrics.APIRequestDuration.WithLabelValues(
				r.Pattern,
				r.Method,
				strconv.Itoa(rec.status),
			).Observe(duration)
			logger.Debug.Printf("[%s] %s %s -> %d (%.3fs)", requestID, r.Method, r.URL.Path, rec.status, duration)
		}()

		if !h.service.ValidateHeaders(r.Header) {
			http.Error(rec, "these are not the droids you are looking for", http.StatusForbidden)
			return
		}
		next(rec, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error.Printf("Failed to encode response: %v", err)
	}
}

// writeError maps the error kinds to status codes.
func writeError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	var schema *models.SchemaMismatchError

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":    "validation failed",
			"problems": verr.Problems,
		})
	case errors.Is(err, models.ErrMissingQuestionBank), errors.Is(err, app.ErrSubmissionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": err.Error()})
	case errors.Is(err, models.ErrStoreUnavailable):
		logger.Error.Printf("Store failure: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"error": "store unavailable"})
	case errors.As(err, &schema):
		logger.Error.Printf("Schema mismatch: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
	default:
		logger.Error.Printf("ERROR: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "internal error"})
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Debug.Printf("Invalid request body on %s: %v", r.URL.Path, err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}
