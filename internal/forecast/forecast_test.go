package forecast

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/solar-forecast-etl/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func forecastRow(location string, ts time.Time, temp float64, cloud int, desc string) domain.WeatherObservation {
	return domain.WeatherObservation{
		Timestamp:          ts,
		Location:           location,
		Temperature:        ptr(temp),
		CloudCover:         ptr(cloud),
		WindSpeed:          ptr(3.0),
		WeatherDescription: ptr(desc),
		IsForecast:         true,
	}
}

type stubModel struct {
	values  []float64
	err     error
	columns []string
	vectors []domain.Vector
}

func (m *stubModel) Predict(_ context.Context, columns []string, vectors []domain.Vector) ([]float64, error) {
	m.columns, m.vectors = columns, vectors
	if m.err != nil {
		return nil, m.err
	}
	if m.values != nil {
		return m.values, nil
	}
	out := make([]float64, len(vectors))
	for i := range out {
		out[i] = 10
	}
	return out, nil
}

func TestFormulaModel_Predict(t *testing.T) {
	enc := domain.NewEncoder(domain.NewVocabulary([]string{"clear sky"}))
	obs := forecastRow("solar_farm_1", time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC), 25, 0, "clear sky")
	nullObs := obs
	nullObs.Temperature = nil

	got, err := NewFormulaModel(0).Predict(context.Background(), enc.Columns(), []domain.Vector{
		enc.Features(obs).Vector(obs),
		enc.Features(nullObs).Vector(nullObs),
	})
	require.NoError(t, err)
	assert.InDelta(t, 100, got[0], 1e-9)
	assert.True(t, math.IsNaN(got[1]))
}

func TestFormulaModel_RejectsBadInput(t *testing.T) {
	m := NewFormulaModel(100)

	_, err := m.Predict(context.Background(), []string{"hour_sin"}, []domain.Vector{{0}})
	require.Error(t, err)

	_, err = m.Predict(context.Background(), domain.BaseColumns, []domain.Vector{{1, 2}})
	require.Error(t, err)
}

func TestLatestStore_Lookup(t *testing.T) {
	base := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	store := NewLatestStore()
	store.Record([]domain.WeatherObservation{
		forecastRow("solar_farm_1", base.Add(3*time.Hour), 28, 40, "scattered clouds"),
		forecastRow("solar_farm_1", base, 30, 10, "clear sky"),
	})

	tests := []struct {
		name      string
		at        time.Time
		wantFound bool
		wantCloud int
	}{
		{"before first entry", base.Add(-time.Hour), false, 0},
		{"exact entry", base, true, 10},
		{"within window", base.Add(2 * time.Hour), true, 10},
		{"next entry", base.Add(4 * time.Hour), true, 40},
		{"past cover window", base.Add(6 * time.Hour), false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := store.Lookup("solar_farm_1", tt.at)
			assert.Equal(t, tt.wantFound, ok)
			if ok {
				assert.Equal(t, tt.wantCloud, *got.CloudCover)
			}
		})
	}

	_, ok := store.Lookup("solar_farm_2", base)
	assert.False(t, ok)
}

func TestLatestStore_RecordReplacesSameTimestamp(t *testing.T) {
	ts := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	store := NewLatestStore()
	store.Record([]domain.WeatherObservation{forecastRow("solar_farm_1", ts, 30, 10, "clear sky")})
	store.Record([]domain.WeatherObservation{forecastRow("solar_farm_1", ts, 20, 90, "overcast clouds")})

	assert.Equal(t, 1, store.Len("solar_farm_1"))
	got, ok := store.Lookup("solar_farm_1", ts)
	require.True(t, ok)
	assert.Equal(t, 90, *got.CloudCover)
	assert.Equal(t, []string{"solar_farm_1"}, store.Locations())
}

func TestLatestStore_BoundsEntries(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	store := NewLatestStore()
	rows := make([]domain.WeatherObservation, maxEntriesPerLocation+10)
	for i := range rows {
		rows[i] = forecastRow("solar_farm_1", base.Add(time.Duration(i)*time.Hour), 20, 0, "clear sky")
	}
	store.Record(rows)

	assert.Equal(t, maxEntriesPerLocation, store.Len("solar_farm_1"))
	_, ok := store.Lookup("solar_farm_1", base)
	assert.False(t, ok)
}

func TestLatestStore_ConcurrentAccess(t *testing.T) {
	store := NewLatestStore()
	base := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				ts := base.Add(time.Duration(i) * time.Hour)
				store.Record([]domain.WeatherObservation{forecastRow("solar_farm_1", ts, 20, g, "clear sky")})
				store.Lookup("solar_farm_1", ts)
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, 50, store.Len("solar_farm_1"))
}

func newTestService(model Model, store *LatestStore, now time.Time) *Service {
	enc := domain.NewEncoder(domain.NewVocabulary([]string{"clear sky", "overcast clouds"}))
	return NewService(model, enc, store, slog.Default(),
		WithClock(clockwork.NewFakeClockAt(now)),
		WithMaxDays(14),
	)
}

func TestService_Forecast_Horizon(t *testing.T) {
	now := time.Date(2024, 6, 15, 9, 41, 17, 0, time.UTC)
	svc := newTestService(NewFormulaModel(100), nil, now)

	res, err := svc.Forecast(context.Background(), "solar_farm_1", 2)
	require.NoError(t, err)

	require.Len(t, res.Points, 48)
	assert.Equal(t, time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC), res.Points[0].Timestamp)
	assert.Equal(t, time.Date(2024, 6, 17, 8, 0, 0, 0, time.UTC), res.Points[47].Timestamp)

	// Default conditions: 25 C, 30 % cloud -> 70 kWh in daylight.
	for _, p := range res.Points {
		assert.False(t, p.Observed)
		if domain.IsNight(p.Timestamp.Hour()) {
			assert.Equal(t, 0.0, p.EnergyKWh, p.Timestamp.String())
		} else {
			assert.InDelta(t, 70, p.EnergyKWh, 1e-9, p.Timestamp.String())
		}
	}
}

func TestService_Forecast_UsesRecordedConditions(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	store := NewLatestStore()
	store.Record([]domain.WeatherObservation{
		forecastRow("solar_farm_1", now, 25, 100, "overcast clouds"),
	})
	model := &stubModel{}
	svc := newTestService(model, store, now)

	res, err := svc.Forecast(context.Background(), "solar_farm_1", 1)
	require.NoError(t, err)

	assert.True(t, res.Points[0].Observed)
	assert.True(t, res.Points[2].Observed)
	assert.False(t, res.Points[3].Observed)

	require.Len(t, model.vectors, 24)
	assert.Len(t, model.columns, 9)
	assert.Equal(t, 100.0, model.vectors[0][1])
	assert.Equal(t, []float64{0, 1}, []float64(model.vectors[0][7:]))
	assert.Equal(t, 30.0, model.vectors[3][1])
	assert.Equal(t, []float64{0, 0}, []float64(model.vectors[3][7:]))
}

func TestService_Forecast_ClampsPredictions(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	values := make([]float64, 24)
	for i := range values {
		values[i] = -3
	}
	values[12] = math.NaN()
	values[13] = 55
	svc := newTestService(&stubModel{values: values}, nil, now)

	res, err := svc.Forecast(context.Background(), "solar_farm_1", 1)
	require.NoError(t, err)

	for i, p := range res.Points {
		if i == 13 {
			assert.Equal(t, 55.0, p.EnergyKWh)
			continue
		}
		assert.Equal(t, 0.0, p.EnergyKWh, "hour %d", i)
	}
}

func TestService_Forecast_DefaultDays(t *testing.T) {
	svc := newTestService(NewFormulaModel(100), nil, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	res, err := svc.Forecast(context.Background(), "solar_farm_1", 0)
	require.NoError(t, err)
	assert.Len(t, res.Points, DefaultDays*24)
}

func TestService_Forecast_InvalidRequests(t *testing.T) {
	svc := newTestService(NewFormulaModel(100), nil, time.Now())

	tests := []struct {
		name     string
		location string
		days     int
	}{
		{"empty location", "  ", 1},
		{"negative days", "solar_farm_1", -1},
		{"too many days", "solar_farm_1", 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Forecast(context.Background(), tt.location, tt.days)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestService_Forecast_ModelErrors(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	t.Run("model failure", func(t *testing.T) {
		svc := newTestService(&stubModel{err: errors.New("endpoint down")}, nil, now)
		_, err := svc.Forecast(context.Background(), "solar_farm_1", 1)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidRequest)
		assert.Contains(t, err.Error(), "endpoint down")
	})

	t.Run("short prediction", func(t *testing.T) {
		svc := newTestService(&stubModel{values: []float64{1}}, nil, now)
		_, err := svc.Forecast(context.Background(), "solar_farm_1", 1)
		require.Error(t, err)
	})
}

func TestSummarize(t *testing.T) {
	day1 := time.Date(2024, 6, 15, 22, 0, 0, 0, time.UTC)
	points := []Point{
		{Timestamp: day1, EnergyKWh: 0},
		{Timestamp: day1.Add(time.Hour), EnergyKWh: 4},
		{Timestamp: day1.Add(2 * time.Hour), EnergyKWh: 0},
		{Timestamp: day1.Add(14 * time.Hour), EnergyKWh: 80},
		{Timestamp: day1.Add(15 * time.Hour), EnergyKWh: 60},
	}

	s := Summarize(points)

	require.Len(t, s.DailyTotals, 2)
	assert.Equal(t, DailyTotal{Date: "2024-06-15", EnergyKWh: 4}, s.DailyTotals[0])
	assert.Equal(t, DailyTotal{Date: "2024-06-16", EnergyKWh: 140}, s.DailyTotals[1])
	assert.InDelta(t, 144, s.TotalEnergyKWh, 1e-9)
	assert.InDelta(t, 72, s.AvgDailyKWh, 1e-9)
	assert.Equal(t, day1.Add(14*time.Hour), s.PeakHour)
	assert.Equal(t, 80.0, s.PeakProductionKWh)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))
}
