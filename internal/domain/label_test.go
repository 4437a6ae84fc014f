package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedNoise replays a fixed sequence of draws, then zeros.
type fixedNoise struct {
	draws []float64
	calls int
}

func (n *fixedNoise) Rand() float64 {
	n.calls++
	if len(n.draws) == 0 {
		return 0
	}
	v := n.draws[0]
	n.draws = n.draws[1:]
	return v
}

func observedAt(hour int, temp *float64, cloud *int) WeatherObservation {
	return WeatherObservation{
		Timestamp:   time.Date(2024, 6, 15, hour, 0, 0, 0, time.UTC),
		Location:    "solar_farm_1",
		Temperature: temp,
		CloudCover:  cloud,
	}
}

func TestFormulaEnergy(t *testing.T) {
	tests := []struct {
		name  string
		temp  *float64
		cloud *int
		want  float64
	}{
		{"clear sky at reference temperature", ptr(25.0), ptr(0), 100},
		{"full cloud", ptr(25.0), ptr(100), 0},
		{"hot clear day", ptr(30.0), ptr(0), 102.5},
		{"cold half cloud", ptr(5.0), ptr(50), 45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, FormulaEnergy(tt.temp, tt.cloud, DefaultBaseCapacityKW), 1e-9)
		})
	}

	t.Run("null inputs", func(t *testing.T) {
		assert.True(t, math.IsNaN(FormulaEnergy(nil, ptr(0), DefaultBaseCapacityKW)))
		assert.True(t, math.IsNaN(FormulaEnergy(ptr(25.0), nil, DefaultBaseCapacityKW)))
	})
}

func TestFormulaEnergy_MonotonicInCloud(t *testing.T) {
	temp := ptr(18.0)
	prev := math.Inf(1)
	for c := 0; c <= 100; c++ {
		got := FormulaEnergy(temp, ptr(c), DefaultBaseCapacityKW)
		assert.LessOrEqual(t, got, prev, "cloud=%d", c)
		prev = got
	}
}

func TestIsNight(t *testing.T) {
	for hour := 0; hour < 24; hour++ {
		assert.Equal(t, hour < 6 || hour > 18, IsNight(hour), "hour=%d", hour)
	}
}

func TestLabeler_DropsForecastRows(t *testing.T) {
	rows := []WeatherObservation{
		observedAt(10, ptr(25.0), ptr(0)),
		{Timestamp: time.Date(2024, 6, 15, 15, 0, 0, 0, time.UTC), Location: "solar_farm_1", IsForecast: true},
		observedAt(11, ptr(25.0), ptr(50)),
	}

	got := NewLabeler(DefaultLabelConfig(), nil).Label(rows)

	require.Len(t, got, 2)
	assert.Equal(t, 10, got[0].Timestamp.Hour())
	assert.Equal(t, 11, got[1].Timestamp.Hour())
	for _, r := range got {
		assert.False(t, r.IsForecast)
	}
}

func TestLabeler_NoiseFreeValues(t *testing.T) {
	rows := []WeatherObservation{
		observedAt(12, ptr(25.0), ptr(0)),
		observedAt(12, ptr(25.0), ptr(100)),
	}
	got := NewLabeler(DefaultLabelConfig(), &fixedNoise{}).Label(rows)

	assert.InDelta(t, 100, got[0].SolarEnergyKWh, 1e-9)
	assert.InDelta(t, 0, got[1].SolarEnergyKWh, 1e-9)
}

func TestLabeler_FullCloudIsNoiseOnly(t *testing.T) {
	noise := &fixedNoise{draws: []float64{3.25}}
	got := NewLabeler(DefaultLabelConfig(), noise).Label([]WeatherObservation{observedAt(12, ptr(31.0), ptr(100))})
	assert.InDelta(t, 3.25, got[0].SolarEnergyKWh, 1e-9)
}

func TestLabeler_NightMaskOverridesEverything(t *testing.T) {
	rows := []WeatherObservation{
		observedAt(0, ptr(25.0), ptr(0)),
		observedAt(5, nil, nil),
		observedAt(19, ptr(40.0), ptr(10)),
		observedAt(23, ptr(25.0), ptr(0)),
	}
	noise := &fixedNoise{draws: []float64{7, -7, 4, 1}}
	got := NewLabeler(DefaultLabelConfig(), noise).Label(rows)

	require.Len(t, got, 4)
	for _, r := range got {
		assert.Equal(t, 0.0, r.SolarEnergyKWh, "hour=%d", r.Timestamp.Hour())
		assert.False(t, math.Signbit(r.SolarEnergyKWh))
	}
}

func TestLabeler_DaylightBoundaries(t *testing.T) {
	rows := []WeatherObservation{
		observedAt(6, ptr(25.0), ptr(0)),
		observedAt(18, ptr(25.0), ptr(0)),
	}
	got := NewLabeler(DefaultLabelConfig(), nil).Label(rows)
	assert.InDelta(t, 100, got[0].SolarEnergyKWh, 1e-9)
	assert.InDelta(t, 100, got[1].SolarEnergyKWh, 1e-9)
}

func TestLabeler_UsesStoredZoneHour(t *testing.T) {
	zone := time.FixedZone("CEST", 2*60*60)
	// 04:00 UTC is 06:00 local, so the row is daylight.
	row := WeatherObservation{
		Timestamp:   time.Date(2024, 6, 15, 6, 0, 0, 0, zone),
		Location:    "solar_farm_1",
		Temperature: ptr(25.0),
		CloudCover:  ptr(0),
	}
	got := NewLabeler(DefaultLabelConfig(), nil).Label([]WeatherObservation{row})
	assert.InDelta(t, 100, got[0].SolarEnergyKWh, 1e-9)
}

func TestLabeler_NullInputsGiveNullLabel(t *testing.T) {
	rows := []WeatherObservation{
		observedAt(12, nil, ptr(10)),
		observedAt(12, ptr(20.0), nil),
	}
	got, stats := NewLabeler(DefaultLabelConfig(), &fixedNoise{draws: []float64{1, 2}}).LabelWithStats(rows)

	assert.True(t, math.IsNaN(got[0].SolarEnergyKWh))
	assert.True(t, math.IsNaN(got[1].SolarEnergyKWh))
	assert.Equal(t, 2, stats.Null)
}

func TestLabeler_NoiseDrawnForEveryKeptRow(t *testing.T) {
	rows := []WeatherObservation{
		observedAt(2, ptr(25.0), ptr(0)),
		observedAt(12, nil, nil),
		{Timestamp: time.Date(2024, 6, 15, 13, 0, 0, 0, time.UTC), Location: "solar_farm_1", IsForecast: true},
		observedAt(13, ptr(25.0), ptr(0)),
	}
	noise := &fixedNoise{draws: []float64{9, 9, 1.5}}
	got := NewLabeler(DefaultLabelConfig(), noise).Label(rows)

	assert.Equal(t, 3, noise.calls)
	assert.InDelta(t, 101.5, got[2].SolarEnergyKWh, 1e-9)
}

func TestLabeler_NegativeLabels(t *testing.T) {
	rows := []WeatherObservation{observedAt(12, ptr(25.0), ptr(98))}

	t.Run("kept by default", func(t *testing.T) {
		got, stats := NewLabeler(DefaultLabelConfig(), &fixedNoise{draws: []float64{-6}}).LabelWithStats(rows)
		assert.InDelta(t, -4, got[0].SolarEnergyKWh, 1e-9)
		assert.Equal(t, 1, stats.Negative)
		assert.Equal(t, 0, stats.Clamped)
	})

	t.Run("clamped when configured", func(t *testing.T) {
		cfg := LabelConfig{BaseCapacityKW: DefaultBaseCapacityKW, ClampNegative: true}
		got, stats := NewLabeler(cfg, &fixedNoise{draws: []float64{-6}}).LabelWithStats(rows)
		assert.Equal(t, 0.0, got[0].SolarEnergyKWh)
		assert.Equal(t, 1, stats.Clamped)
	})
}

func TestLabeler_Stats(t *testing.T) {
	rows := []WeatherObservation{
		observedAt(3, ptr(25.0), ptr(0)),
		observedAt(12, ptr(25.0), ptr(0)),
		observedAt(13, nil, ptr(0)),
	}
	_, stats := NewLabeler(DefaultLabelConfig(), nil).LabelWithStats(rows)
	assert.Equal(t, LabelStats{Labeled: 3, Masked: 1, Null: 1}, stats)
}

func TestLabeler_DoesNotMutateInput(t *testing.T) {
	rows := []WeatherObservation{observedAt(12, ptr(25.0), ptr(0))}
	before := *rows[0].Temperature
	NewLabeler(DefaultLabelConfig(), &fixedNoise{draws: []float64{2}}).Label(rows)
	assert.Equal(t, before, *rows[0].Temperature)
}

func TestLabeler_CustomCapacity(t *testing.T) {
	got := NewLabeler(LabelConfig{BaseCapacityKW: 250}, nil).Label([]WeatherObservation{observedAt(12, ptr(25.0), ptr(0))})
	assert.InDelta(t, 250, got[0].SolarEnergyKWh, 1e-9)
}

func TestGaussianNoise_SeededIsReproducible(t *testing.T) {
	a := NewGaussianNoise(DefaultNoiseStdDev, 42)
	b := NewGaussianNoise(DefaultNoiseStdDev, 42)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Rand(), b.Rand())
	}
}

func TestGaussianNoise_Moments(t *testing.T) {
	n := NewGaussianNoise(DefaultNoiseStdDev, 7)
	const samples = 20000
	var sum, sumSq float64
	for i := 0; i < samples; i++ {
		x := n.Rand()
		sum += x
		sumSq += x * x
	}
	mean := sum / samples
	std := math.Sqrt(sumSq/samples - mean*mean)
	assert.InDelta(t, 0, mean, 0.2)
	assert.InDelta(t, DefaultNoiseStdDev, std, 0.2)
}
