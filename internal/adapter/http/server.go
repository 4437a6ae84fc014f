package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/solar-forecast-etl/internal/domain"
	"github.com/couchcryptid/solar-forecast-etl/internal/forecast"
	"github.com/couchcryptid/solar-forecast-etl/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxRequestBytes bounds the forecast request body.
const maxRequestBytes = 1 << 16

// Forecaster serves hourly production forecasts.
type Forecaster interface {
	Forecast(ctx context.Context, location string, days int) (forecast.Result, error)
	Vocabulary() *domain.Vocabulary
}

// Server exposes health, readiness, metrics, and forecast HTTP endpoints.
type Server struct {
	httpServer *http.Server
	forecaster Forecaster
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics,
// /forecast and /vocabulary routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, forecaster Forecaster, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		forecaster: forecaster,
		metrics:    metrics,
		logger:     logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /forecast", s.handleForecast)
	mux.HandleFunc("GET /vocabulary", s.handleVocabulary)

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

type forecastRequest struct {
	Location     string `json:"location"`
	ForecastDays int    `json:"forecast_days"`
}

type dailyTotalJSON struct {
	Date      string  `json:"date"`
	EnergyKWh float64 `json:"energy_kwh"`
}

type summaryJSON struct {
	DailyTotals       []dailyTotalJSON `json:"daily_totals"`
	TotalEnergyKWh    float64          `json:"total_energy_kwh"`
	AvgDailyKWh       float64          `json:"avg_daily_kwh"`
	PeakHour          time.Time        `json:"peak_hour"`
	PeakProductionKWh float64          `json:"peak_production_kwh"`
}

type forecastResponse struct {
	Location       string      `json:"location"`
	Timestamps     []time.Time `json:"timestamps"`
	ForecastValues []float64   `json:"forecast_values"`
	CoveredHours   int         `json:"covered_hours"`
	Summary        summaryJSON `json:"summary"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	var req forecastRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.metrics.ForecastRequests.WithLabelValues("invalid").Inc()
		sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	result, err := s.forecaster.Forecast(r.Context(), req.Location, req.ForecastDays)
	if err != nil {
		if errors.Is(err, forecast.ErrInvalidRequest) {
			s.metrics.ForecastRequests.WithLabelValues("invalid").Inc()
			sharedobs.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		s.metrics.ForecastRequests.WithLabelValues("error").Inc()
		s.logger.Error("forecast failed", "location", req.Location, "error", err)
		sharedobs.WriteJSON(w, http.StatusBadGateway, errorResponse{Error: "forecast model unavailable"})
		return
	}

	s.metrics.ForecastRequests.WithLabelValues("success").Inc()
	sharedobs.WriteJSON(w, http.StatusOK, toForecastResponse(result))
}

func toForecastResponse(res forecast.Result) forecastResponse {
	out := forecastResponse{
		Location:       res.Location,
		Timestamps:     make([]time.Time, len(res.Points)),
		ForecastValues: make([]float64, len(res.Points)),
		Summary: summaryJSON{
			DailyTotals:       make([]dailyTotalJSON, len(res.Summary.DailyTotals)),
			TotalEnergyKWh:    res.Summary.TotalEnergyKWh,
			AvgDailyKWh:       res.Summary.AvgDailyKWh,
			PeakHour:          res.Summary.PeakHour,
			PeakProductionKWh: res.Summary.PeakProductionKWh,
		},
	}
	for i, p := range res.Points {
		out.Timestamps[i] = p.Timestamp
		out.ForecastValues[i] = p.EnergyKWh
		if p.Observed {
			out.CoveredHours++
		}
	}
	for i, d := range res.Summary.DailyTotals {
		out.Summary.DailyTotals[i] = dailyTotalJSON{Date: d.Date, EnergyKWh: d.EnergyKWh}
	}
	return out
}

func (s *Server) handleVocabulary(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.forecaster.Vocabulary())
}
