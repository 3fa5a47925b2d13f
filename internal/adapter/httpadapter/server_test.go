package httpadapter_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/airquality-etl/internal/adapter/httpadapter"
	"github.com/couchcryptid/airquality-etl/internal/domain"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockProvider struct {
	analysis *domain.Analysis
}

func (m *mockProvider) Latest() (domain.Analysis, bool) {
	if m.analysis == nil {
		return domain.Analysis{}, false
	}
	return *m.analysis, true
}

func testAnalysis(t *testing.T) *domain.Analysis {
	t.Helper()
	start := time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC)
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 100}
	readings := make([]domain.Reading, len(values))
	for i, v := range values {
		readings[i] = domain.Reading{Timestamp: start.Add(time.Duration(i) * time.Hour), Concentration: v}
	}
	a, err := domain.Analyze(readings, domain.DefaultAnalysisConfig())
	require.NoError(t, err)
	return &a
}

func newTestServer(readyErr error, a *domain.Analysis) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, &mockProvider{analysis: a}, slog.Default())
}

func get(srv http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(newTestServer(nil, nil), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(newTestServer(nil, nil), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(newTestServer(fmt.Errorf("analysis has not completed yet"), nil), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(newTestServer(nil, nil), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestSummary_NoAnalysis(t *testing.T) {
	rec := get(newTestServer(nil, nil), "/api/summary")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSummary(t *testing.T) {
	a := testAnalysis(t)
	rec := get(newTestServer(nil, a), "/api/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, a.RunID.String(), body["run_id"])
	assert.InDelta(t, 59.05, body["threshold"], 1e-9)
	assert.Equal(t, float64(1), body["extreme_count"])

	byHour := body["by_hour"].([]any)
	require.Len(t, byHour, 10)
	assert.Nil(t, byHour[0].(map[string]any)["std_err"], "single-member group has no standard error")

	byMonth := body["by_month"].([]any)
	require.Len(t, byMonth, 1)
	assert.Equal(t, "May", byMonth[0].(map[string]any)["name"])
}

func TestSummary_PeaksAndRankings(t *testing.T) {
	rec := get(newTestServer(nil, testAnalysis(t)), "/api/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Peaks struct {
			PeakHour struct {
				Hour   int      `json:"hour"`
				Mean   float64  `json:"mean"`
				StdErr *float64 `json:"std_err"`
			} `json:"peak_hour"`
			LowestHour struct {
				Hour int `json:"hour"`
			} `json:"lowest_hour"`
			PeakMonth struct {
				Name   string   `json:"name"`
				StdDev *float64 `json:"std_dev"`
			} `json:"peak_month"`
		} `json:"peaks"`
		TopExtremeMonths []domain.GroupCount `json:"top_extreme_months"`
		TopExtremeHours  []domain.GroupCount `json:"top_extreme_hours"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, 9, body.Peaks.PeakHour.Hour)
	assert.Equal(t, 100.0, body.Peaks.PeakHour.Mean)
	assert.Nil(t, body.Peaks.PeakHour.StdErr, "single-member hour has no standard error")
	assert.Equal(t, 0, body.Peaks.LowestHour.Hour)
	assert.Equal(t, "May", body.Peaks.PeakMonth.Name)
	assert.NotNil(t, body.Peaks.PeakMonth.StdDev)

	assert.Equal(t, []domain.GroupCount{{Key: 5, Count: 1}}, body.TopExtremeMonths)
	assert.Equal(t, []domain.GroupCount{{Key: 9, Count: 1}}, body.TopExtremeHours)
}

func TestExtremes(t *testing.T) {
	a := testAnalysis(t)

	rec := get(newTestServer(nil, a), "/api/extremes")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Total  int `json:"total"`
		Events []struct {
			Concentration float64 `json:"concentration"`
			Weekday       string  `json:"weekday"`
		} `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Total)
	require.Len(t, body.Events, 1)
	assert.Equal(t, 100.0, body.Events[0].Concentration)
	assert.Equal(t, "Monday", body.Events[0].Weekday)
}

func TestExtremes_BadLimit(t *testing.T) {
	rec := get(newTestServer(nil, testAnalysis(t)), "/api/extremes?limit=-2")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
