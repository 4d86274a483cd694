package ui

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"launchlab/app"
	"launchlab/domain/core"
)

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAnalyze runs a full analysis for a run. Concurrency is bounded; a
// saturated engine sheds load with 503 instead of queueing indefinitely.
func (a *App) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, err := a.decodeAnalyzeRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	if !a.analyzeSem.TryAcquire(1) {
		respondError(w, http.StatusServiceUnavailable, errors.New("analysis capacity exhausted, retry later"))
		return
	}
	defer a.analyzeSem.Release(1)

	result, err := a.service.Analyze(r.Context(), req)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, result.Decision)
}

// handleQuick runs the classifier without persisting a decision.
func (a *App) handleQuick(w http.ResponseWriter, r *http.Request) {
	req, err := a.decodeAnalyzeRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	result, err := a.service.Quick(r.Context(), req)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (a *App) handleDecisionHistory(w http.ResponseWriter, r *http.Request) {
	runID, err := core.ParseRunID(chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondError(w, http.StatusBadRequest, errors.New("limit must be a non-negative integer"))
			return
		}
	}

	history, err := a.service.GetDecisionHistory(r.Context(), runID, limit)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

func (a *App) handleLatestDecision(w http.ResponseWriter, r *http.Request) {
	runID, err := core.ParseRunID(chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	d, err := a.service.GetLatestDecision(r.Context(), runID)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (a *App) handleFinalDecision(w http.ResponseWriter, r *http.Request) {
	runID, err := core.ParseRunID(chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	d, err := a.service.GetFinalDecision(r.Context(), runID)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (a *App) handleGetDecision(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseDecisionID(chi.URLParam(r, "decisionID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	d, err := a.service.GetDecision(r.Context(), id)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (a *App) handleFinalize(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseDecisionID(chi.URLParam(r, "decisionID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	d, err := a.service.Finalize(r.Context(), id)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

// handleReplay recomputes a stored decision and verifies its fingerprint.
func (a *App) handleReplay(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseDecisionID(chi.URLParam(r, "decisionID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	var req app.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	analysis, err := a.service.Replay(r.Context(), id, req)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, analysis)
}

// handleRunReport renders the report for a run's most recent decision.
func (a *App) handleRunReport(w http.ResponseWriter, r *http.Request) {
	runID, err := core.ParseRunID(chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	d, err := a.service.GetLatestDecision(r.Context(), runID)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(RenderReportHTML(d))
}

func (a *App) handleReport(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseDecisionID(chi.URLParam(r, "decisionID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	d, err := a.service.GetDecision(r.Context(), id)
	if err != nil {
		a.respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(RenderReportHTML(d))
}

func (a *App) decodeAnalyzeRequest(r *http.Request) (app.AnalyzeRequest, error) {
	runID, err := core.ParseRunID(chi.URLParam(r, "runID"))
	if err != nil {
		return app.AnalyzeRequest{}, err
	}

	var req app.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return app.AnalyzeRequest{}, errors.New("invalid request body")
	}
	req.RunID = runID
	return req, nil
}

// respondServiceError maps domain errors onto HTTP status codes.
func (a *App) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case core.IsNotFoundError(err), errors.Is(err, core.ErrNoFinalDecision):
		respondError(w, http.StatusNotFound, err)
	case core.IsValidationError(err), errors.Is(err, core.ErrSeedMismatch):
		respondError(w, http.StatusBadRequest, err)
	case core.IsFinalizedError(err):
		respondError(w, http.StatusConflict, err)
	case errors.Is(err, core.ErrNonDeterministic):
		respondError(w, http.StatusInternalServerError, err)
	default:
		a.logger.Error("request failed: %v", err)
		respondError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}
