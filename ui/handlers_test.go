package ui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"launchlab/adapters/memory"
	"launchlab/adapters/rng"
	"launchlab/app"
	"launchlab/domain/decision"
	"launchlab/internal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp() *App {
	logger := internal.NewLogger(internal.LogLevelError)
	service := app.NewDecisionService(memory.NewDecisionRepository(), rng.NewAdapter(), logger, decision.DefaultConfig(), 42)
	return NewApp(Config{MaxConcurrentAnalyses: 2}, service, logger)
}

func analyzeBody() *bytes.Buffer {
	return bytes.NewBufferString(`{
		"counts": [
			{"variant_id": "a", "clicks": 5000, "conversions": 500},
			{"variant_id": "b", "clicks": 5000, "conversions": 100}
		]
	}`)
}

func doRequest(t *testing.T, a *App, method, path string, body *bytes.Buffer) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, body)
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeEndpoint(t *testing.T) {
	a := newTestApp()

	rec := doRequest(t, a, http.MethodPost, "/api/runs/run-1/analyze", analyzeBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	var d decision.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, decision.TierConfident, d.Analysis.Confidence)
	require.NotNil(t, d.Analysis.WinnerID)
	assert.Equal(t, "a", d.Analysis.WinnerID.String())
	assert.Equal(t, decision.StatusDraft, d.Status)
}

func TestAnalyzeEndpointRejectsBadCounts(t *testing.T) {
	a := newTestApp()

	body := bytes.NewBufferString(`{"counts": [{"variant_id": "a", "clicks": 5, "conversions": 10}]}`)
	rec := doRequest(t, a, http.MethodPost, "/api/runs/run-1/analyze", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestQuickEndpoint(t *testing.T) {
	a := newTestApp()

	rec := doRequest(t, a, http.MethodPost, "/api/runs/run-1/quick", analyzeBody())
	require.Equal(t, http.StatusOK, rec.Code)

	var result decision.QuickResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, decision.TierConfident, result.Confidence)

	// Quick never persists.
	rec = doRequest(t, a, http.MethodGet, "/api/runs/run-1/decisions/latest", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFinalizeFlow(t *testing.T) {
	a := newTestApp()

	rec := doRequest(t, a, http.MethodPost, "/api/runs/run-1/analyze", analyzeBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	var d decision.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))

	rec = doRequest(t, a, http.MethodPost, fmt.Sprintf("/api/decisions/%s/finalize", d.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Second finalize conflicts.
	rec = doRequest(t, a, http.MethodPost, fmt.Sprintf("/api/decisions/%s/finalize", d.ID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Settled runs refuse new analyses.
	rec = doRequest(t, a, http.MethodPost, "/api/runs/run-1/analyze", analyzeBody())
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = doRequest(t, a, http.MethodGet, "/api/runs/run-1/decisions/final", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDecisionHistoryEndpoint(t *testing.T) {
	a := newTestApp()

	for i := 0; i < 3; i++ {
		rec := doRequest(t, a, http.MethodPost, "/api/runs/run-1/analyze", analyzeBody())
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doRequest(t, a, http.MethodGet, "/api/runs/run-1/decisions?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var history []decision.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Len(t, history, 2)

	rec = doRequest(t, a, http.MethodGet, "/api/runs/run-1/decisions?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportEndpoint(t *testing.T) {
	a := newTestApp()

	rec := doRequest(t, a, http.MethodPost, "/api/runs/run-1/analyze", analyzeBody())
	require.Equal(t, http.StatusCreated, rec.Code)
	var d decision.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))

	rec = doRequest(t, a, http.MethodGet, fmt.Sprintf("/api/decisions/%s/report", d.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.True(t, strings.Contains(rec.Body.String(), "Decision Report"))
	assert.True(t, strings.Contains(rec.Body.String(), "<table>"))
}

func TestUnknownDecisionReturns404(t *testing.T) {
	a := newTestApp()

	rec := doRequest(t, a, http.MethodGet, "/api/decisions/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
