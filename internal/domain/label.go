package domain

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Label formula constants for the notional installation.
const (
	DefaultBaseCapacityKW = 100.0
	DefaultNoiseStdDev    = 5.0
	ReferenceTempC        = 25.0
	TempCoefficient       = 0.005

	// Daylight is [DaylightStartHour, DaylightEndHour] inclusive.
	DaylightStartHour = 6
	DaylightEndHour   = 18
)

// Noise yields one additive noise draw per labeled row.
// *distuv.Normal satisfies it.
type Noise interface {
	Rand() float64
}

// NewGaussianNoise returns a seeded normal distribution with mean 0.
func NewGaussianNoise(stddev float64, seed uint64) *distuv.Normal {
	return &distuv.Normal{
		Mu:    0,
		Sigma: stddev,
		Src:   rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
	}
}

// LabelConfig parameterizes the synthetic production label.
type LabelConfig struct {
	BaseCapacityKW float64
	// ClampNegative floors daytime labels at zero. Off by default, matching the
	// unclamped reference labels.
	ClampNegative bool
}

// DefaultLabelConfig returns the 100 kW, unclamped configuration.
func DefaultLabelConfig() LabelConfig {
	return LabelConfig{BaseCapacityKW: DefaultBaseCapacityKW}
}

// LabelStats counts what happened to a labeled batch.
type LabelStats struct {
	Labeled  int
	Masked   int
	Null     int
	Negative int
	Clamped  int
}

// Labeler derives synthetic production labels from observed weather.
type Labeler struct {
	cfg   LabelConfig
	noise Noise
}

// NewLabeler creates a Labeler. A nil noise source disables noise.
func NewLabeler(cfg LabelConfig, noise Noise) *Labeler {
	if cfg.BaseCapacityKW == 0 {
		cfg.BaseCapacityKW = DefaultBaseCapacityKW
	}
	return &Labeler{cfg: cfg, noise: noise}
}

// Label keeps the non-forecast rows and attaches the synthetic label.
func (l *Labeler) Label(rows []WeatherObservation) []LabeledObservation {
	out, _ := l.LabelWithStats(rows)
	return out
}

// LabelWithStats is Label plus per-batch counters. Noise is drawn once per
// kept row, before masking, so the draw sequence does not depend on the mask.
func (l *Labeler) LabelWithStats(rows []WeatherObservation) ([]LabeledObservation, LabelStats) {
	var stats LabelStats
	out := make([]LabeledObservation, 0, len(rows))
	for _, row := range rows {
		if row.IsForecast {
			continue
		}

		energy := FormulaEnergy(row.Temperature, row.CloudCover, l.cfg.BaseCapacityKW)
		if l.noise != nil {
			energy += l.noise.Rand()
		}

		switch {
		case IsNight(row.Timestamp.Hour()):
			energy = 0
			stats.Masked++
		case math.IsNaN(energy):
			stats.Null++
		case energy < 0:
			stats.Negative++
			if l.cfg.ClampNegative {
				energy = 0
				stats.Clamped++
			}
		}

		out = append(out, LabeledObservation{WeatherObservation: row, SolarEnergyKWh: energy})
		stats.Labeled++
	}
	return out, stats
}

// FormulaEnergy is the noise-free production proxy. It returns NaN when
// either input is null.
func FormulaEnergy(temperature *float64, cloudCover *int, baseCapacityKW float64) float64 {
	if temperature == nil || cloudCover == nil {
		return math.NaN()
	}
	cloudFactor := (100 - float64(*cloudCover)) / 100
	tempFactor := 1 + (*temperature-ReferenceTempC)*TempCoefficient
	return cloudFactor * tempFactor * baseCapacityKW
}

// IsNight reports whether an hour of day falls outside the daylight window.
func IsNight(hour int) bool {
	return hour < DaylightStartHour || hour > DaylightEndHour
}
