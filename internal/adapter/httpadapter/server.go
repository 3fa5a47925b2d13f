package httpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/airquality-etl/internal/domain"
)

// AnalysisProvider exposes the latest completed analysis.
type AnalysisProvider interface {
	Latest() (domain.Analysis, bool)
}

// Server exposes probes, metrics, and read-only analysis endpoints.
type Server struct {
	httpServer *http.Server
	provider   AnalysisProvider
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics,
// /api/summary and /api/extremes routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, provider AnalysisProvider, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		provider: provider,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/extremes", s.handleExtremes)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	a, ok := s.provider.Latest()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no analysis available"})
		return
	}
	writeJSON(w, http.StatusOK, newSummaryResponse(a))
}

func (s *Server) handleExtremes(w http.ResponseWriter, r *http.Request) {
	a, ok := s.provider.Latest()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no analysis available"})
		return
	}

	limit := a.Config.TopN
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	writeJSON(w, http.StatusOK, extremesResponse{
		RunID:     a.RunID.String(),
		Threshold: a.Threshold,
		Total:     len(a.Extremes),
		Events:    domain.TopN(a.Extremes, limit),
	})
}

type statsResponse struct {
	N      int      `json:"n"`
	Min    float64  `json:"min"`
	Max    float64  `json:"max"`
	Mean   float64  `json:"mean"`
	Median float64  `json:"median"`
	StdDev *float64 `json:"std_dev"`
	P25    float64  `json:"p25"`
	P75    float64  `json:"p75"`
	P95    float64  `json:"p95"`
	CV     *float64 `json:"cv"`
}

type hourResponse struct {
	Hour   int      `json:"hour"`
	Mean   float64  `json:"mean"`
	StdErr *float64 `json:"std_err"`
	Count  int      `json:"count"`
}

type monthResponse struct {
	Month  int      `json:"month"`
	Name   string   `json:"name"`
	Mean   float64  `json:"mean"`
	Median float64  `json:"median"`
	StdDev *float64 `json:"std_dev"`
	Count  int      `json:"count"`
}

type peaksResponse struct {
	PeakHour    hourResponse  `json:"peak_hour"`
	LowestHour  hourResponse  `json:"lowest_hour"`
	PeakMonth   monthResponse `json:"peak_month"`
	LowestMonth monthResponse `json:"lowest_month"`
}

type summaryResponse struct {
	RunID        string                     `json:"run_id"`
	GeneratedAt  time.Time                  `json:"generated_at"`
	Config       domain.AnalysisConfig      `json:"config"`
	Coverage     domain.Coverage            `json:"coverage"`
	Stats        statsResponse              `json:"stats"`
	Threshold    float64                    `json:"threshold"`
	ExtremeCount int                        `json:"extreme_count"`
	ExtremeShare float64                    `json:"extreme_share"`
	ByHour       []hourResponse             `json:"by_hour"`
	ByMonth      []monthResponse            `json:"by_month"`
	MonthClass   []domain.MonthClassCount   `json:"month_class"`
	Guidelines   domain.GuidelineComparison `json:"guidelines"`
	Peaks        peaksResponse              `json:"peaks"`

	TopExtremeMonths []domain.GroupCount `json:"top_extreme_months"`
	TopExtremeHours  []domain.GroupCount `json:"top_extreme_hours"`
}

type extremesResponse struct {
	RunID     string                `json:"run_id"`
	Threshold float64               `json:"threshold"`
	Total     int                   `json:"total"`
	Events    []domain.HourlyRecord `json:"events"`
}

// newSummaryResponse maps NaN statistics to null, which encoding/json cannot
// represent otherwise.
func newSummaryResponse(a domain.Analysis) summaryResponse {
	s := a.Stats
	resp := summaryResponse{
		RunID:       a.RunID.String(),
		GeneratedAt: a.GeneratedAt,
		Config:      a.Config,
		Coverage:    a.Coverage,
		Stats: statsResponse{
			N: s.N, Min: s.Min, Max: s.Max, Mean: s.Mean, Median: s.Median,
			StdDev: nullable(s.StdDev),
			P25:    s.P25, P75: s.P75, P95: s.P95,
			CV: nullable(s.CV),
		},
		Threshold:    a.Threshold,
		ExtremeCount: a.ExtremeCount(),
		ExtremeShare: a.ExtremeShare(),
		MonthClass:   a.MonthClass,
		Guidelines:   a.Guidelines,
		Peaks: peaksResponse{
			PeakHour:    newHourResponse(a.Peaks.PeakHour),
			LowestHour:  newHourResponse(a.Peaks.LowestHour),
			PeakMonth:   newMonthResponse(a.Peaks.PeakMonth),
			LowestMonth: newMonthResponse(a.Peaks.LowestMonth),
		},
		TopExtremeMonths: a.TopExtremeMonths,
		TopExtremeHours:  a.TopExtremeHours,
	}
	for _, h := range a.ByHour {
		resp.ByHour = append(resp.ByHour, newHourResponse(h))
	}
	for _, m := range a.ByMonth {
		resp.ByMonth = append(resp.ByMonth, newMonthResponse(m))
	}
	return resp
}

func newHourResponse(h domain.HourOfDaySummary) hourResponse {
	return hourResponse{Hour: h.Hour, Mean: h.Mean, StdErr: nullable(h.StdErr), Count: h.Count}
}

func newMonthResponse(m domain.MonthlySummary) monthResponse {
	return monthResponse{
		Month: m.Month, Name: domain.MonthName(m.Month),
		Mean: m.Mean, Median: m.Median, StdDev: nullable(m.StdDev), Count: m.Count,
	}
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
