package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/surendar1863/student-edge-program/internal/app"
	"github.com/surendar1863/student-edge-program/internal/models"
	"github.com/surendar1863/student-edge-program/internal/scoring"
	"github.com/surendar1863/student-edge-program/internal/submission"
)

type submitRequest struct {
	submission.Subject
	Responses map[string]interface{} `json:"responses"`
}

func (h *EvaluationHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	section := r.PathValue("section")

	var req submitRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sub, err := h.service.Submit(r.Context(), section, req.Subject, req.Responses)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

func (h *EvaluationHandler) HandleGetSubmission(w http.ResponseWriter, r *http.Request) {
	roll, section := r.PathValue("roll"), r.PathValue("section")

	sub, err := h.service.GetSubmission(r.Context(), roll, section)
	if err != nil {
		writeError(w, err)
		return
	}
	if sub == nil {
		http.Error(w, "No record found for this roll number", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *EvaluationHandler) HandleEvaluation(w http.ResponseWriter, r *http.Request) {
	roll, section := r.PathValue("roll"), r.PathValue("section")

	opts, err := h.scoringOptions(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	view, err := h.service.Evaluate(r.Context(), roll, section)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"view":    view,
		"summary": scoring.Summarize(opts, view),
	})
}

type markRequest struct {
	Marks     float64   `json:"marks"`
	Evaluator string    `json:"evaluator"`
	Section   string    `json:"section"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *EvaluationHandler) HandleMark(w http.ResponseWriter, r *http.Request) {
	var req markRequest
	if !decodeBody(w, r, &req) {
		return
	}

	in := app.MarkInput{
		Roll:       r.PathValue("roll"),
		QuestionID: r.PathValue("question"),
		Marks:      req.Marks,
		Evaluator:  req.Evaluator,
		Section:    req.Section,
		Timestamp:  req.Timestamp,
	}
	if err := h.service.RecordMark(r.Context(), in); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"saved": models.MarkKey(in.Roll, in.QuestionID),
	})
}

func (h *EvaluationHandler) HandleShortMark(w http.ResponseWriter, r *http.Request) {
	var req markRequest
	if !decodeBody(w, r, &req) {
		return
	}

	mark, err := h.service.RecordShortMark(r.Context(), app.ShortMarkInput{
		Roll:       r.PathValue("roll"),
		Section:    r.PathValue("section"),
		QuestionID: r.PathValue("question"),
		Marks:      req.Marks,
		Evaluator:  req.Evaluator,
		Timestamp:  req.Timestamp,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mark)
}

type batchMarksRequest struct {
	Evaluator string             `json:"evaluator"`
	Marks     map[string]float64 `json:"marks"`
}

func (h *EvaluationHandler) HandleBatchMarks(w http.ResponseWriter, r *http.Request) {
	roll := r.PathValue("roll")

	var req batchMarksRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Marks) == 0 {
		http.Error(w, "No marks given", http.StatusBadRequest)
		return
	}

	result, err := h.service.RecordMarks(r.Context(), roll, req.Evaluator, req.Marks)
	var berr *models.BatchError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.As(err, &berr):
		writeJSON(w, http.StatusMultiStatus, result)
	default:
		writeError(w, err)
	}
}

func (h *EvaluationHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	roll := r.PathValue("roll")

	opts, err := h.scoringOptions(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.service.Report(r.Context(), roll, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	logger.Debug.Printf("Report for %s: %s", roll, report)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"report": report,
		"total":  report.String(),
	})
}

func (h *EvaluationHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.service.Dashboard(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

// scoringOptions reads ?short_cap= and ?likert=raw on top of the configured
// scoring options.
func (h *EvaluationHandler) scoringOptions(r *http.Request) (scoring.Options, error) {
	opts := h.service.Config.ScoringOptions()
	q := r.URL.Query()

	if raw := q.Get("short_cap"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			return opts, errors.New("short_cap must be a positive number")
		}
		opts.ShortCap = v
	}
	switch q.Get("likert") {
	case "":
	case "raw":
		opts.LikertMode = scoring.LikertRawAverage
	case "marked":
		opts.LikertMode = scoring.LikertMarked
	default:
		return opts, errors.New("likert must be raw or marked")
	}
	return opts, nil
}
