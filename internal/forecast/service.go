package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/couchcryptid/solar-forecast-etl/internal/domain"
	"github.com/jonboulle/clockwork"
)

// DefaultDays is the horizon used when a request does not name one.
const DefaultDays = 7

// Conditions used for hours no recorded forecast covers.
const (
	DefaultTemperature = 25.0
	DefaultCloudCover  = 30
	DefaultWindSpeed   = 5.0
)

// ErrInvalidRequest is wrapped by validation failures.
var ErrInvalidRequest = errors.New("invalid forecast request")

// Point is one hourly prediction.
type Point struct {
	Timestamp time.Time
	EnergyKWh float64
	// Observed is true when a recorded provider forecast covered the hour.
	Observed bool
}

// Result is a forecast horizon for one site.
type Result struct {
	Location string
	Points   []Point
	Summary  Summary
}

// Service produces forecasts. It owns the model and the frozen vocabulary.
type Service struct {
	model   Model
	encoder *domain.Encoder
	store   *LatestStore
	clock   clockwork.Clock
	maxDays int
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for the horizon start.
func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithMaxDays caps the requested horizon.
func WithMaxDays(days int) Option {
	return func(s *Service) { s.maxDays = days }
}

// NewService creates a forecast Service. A nil store serves default conditions only.
func NewService(model Model, encoder *domain.Encoder, store *LatestStore, logger *slog.Logger, opts ...Option) *Service {
	if store == nil {
		store = NewLatestStore()
	}
	s := &Service{
		model:   model,
		encoder: encoder,
		store:   store,
		clock:   clockwork.NewRealClock(),
		maxDays: 14,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Columns is the model input column order.
func (s *Service) Columns() []string { return s.encoder.Columns() }

// Vocabulary is the frozen weather vocabulary.
func (s *Service) Vocabulary() *domain.Vocabulary { return s.encoder.Vocabulary() }

// Store returns the latest-forecast store the service reads from.
func (s *Service) Store() *LatestStore { return s.store }

// Forecast predicts days*24 hourly points starting at the current hour in UTC.
func (s *Service) Forecast(ctx context.Context, location string, days int) (Result, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return Result{}, fmt.Errorf("%w: location is required", ErrInvalidRequest)
	}
	if days == 0 {
		days = DefaultDays
	}
	if days < 0 || days > s.maxDays {
		return Result{}, fmt.Errorf("%w: forecast_days must be between 1 and %d", ErrInvalidRequest, s.maxDays)
	}

	start := s.clock.Now().UTC().Truncate(time.Hour)
	hours := days * 24

	observations := make([]domain.WeatherObservation, hours)
	covered := make([]bool, hours)
	vectors := make([]domain.Vector, hours)
	for i := range hours {
		ts := start.Add(time.Duration(i) * time.Hour)
		obs, ok := s.conditionsAt(location, ts)
		observations[i] = obs
		covered[i] = ok
		vectors[i] = s.encoder.Features(obs).Vector(obs)
	}

	predictions, err := s.model.Predict(ctx, s.encoder.Columns(), vectors)
	if err != nil {
		return Result{}, fmt.Errorf("predict %s: %w", location, err)
	}
	if len(predictions) != hours {
		return Result{}, fmt.Errorf("predict %s: model returned %d values, want %d", location, len(predictions), hours)
	}

	points := make([]Point, hours)
	var coveredHours int
	for i := range points {
		points[i] = Point{
			Timestamp: observations[i].Timestamp,
			EnergyKWh: clampPrediction(observations[i].Timestamp.Hour(), predictions[i]),
			Observed:  covered[i],
		}
		if covered[i] {
			coveredHours++
		}
	}

	s.logger.Debug("forecast generated",
		"location", location,
		"hours", hours,
		"covered_hours", coveredHours,
	)

	return Result{Location: location, Points: points, Summary: Summarize(points)}, nil
}

// conditionsAt returns recorded conditions for the hour, or the defaults.
func (s *Service) conditionsAt(location string, ts time.Time) (domain.WeatherObservation, bool) {
	if entry, ok := s.store.Lookup(location, ts); ok {
		entry.Timestamp = ts
		return entry, true
	}
	temp, cloud, wind := DefaultTemperature, DefaultCloudCover, DefaultWindSpeed
	return domain.WeatherObservation{
		Timestamp:   ts,
		Location:    location,
		Temperature: &temp,
		CloudCover:  &cloud,
		WindSpeed:   &wind,
		IsForecast:  true,
	}, false
}

// clampPrediction applies the night mask and floors negative or null predictions at zero.
func clampPrediction(hour int, v float64) float64 {
	if domain.IsNight(hour) || math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
