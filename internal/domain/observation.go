package domain

import (
	"context"
	"time"
)

// RawDocument is one collected weather document as persisted by the
// collector: a "current" block plus the provider's forecast list.
type RawDocument struct {
	Timestamp string        `json:"timestamp"`
	Location  string        `json:"location"`
	Latitude  *float64      `json:"latitude,omitempty"`
	Longitude *float64      `json:"longitude,omitempty"`
	Current   *RawCurrent   `json:"current,omitempty"`
	Forecast  []RawForecast `json:"forecast,omitempty"`
}

// RawCurrent is the flattened current-conditions block written by the collector.
type RawCurrent struct {
	Temperature        *float64 `json:"temperature"`
	Clouds             *float64 `json:"clouds"` // cloud coverage in %
	WeatherDescription *string  `json:"weather_description"`
	WindSpeed          *float64 `json:"wind_speed"`
}

// RawForecast is one entry of the provider's 3-hourly forecast list. The
// schema differs from RawCurrent: values are nested and the time is a Unix
// epoch instead of an ISO-8601 string.
type RawForecast struct {
	Dt      *int64              `json:"dt"`
	Main    *ForecastMain       `json:"main,omitempty"`
	Clouds  *ForecastClouds     `json:"clouds,omitempty"`
	Wind    *ForecastWind       `json:"wind,omitempty"`
	Weather []ForecastCondition `json:"weather,omitempty"`
}

// ForecastMain holds the forecast entry's main measurements.
type ForecastMain struct {
	Temp *float64 `json:"temp"`
}

type ForecastClouds struct {
	All *float64 `json:"all"`
}

type ForecastWind struct {
	Speed *float64 `json:"speed"`
}

type ForecastCondition struct {
	Description *string `json:"description"`
}

// WeatherObservation is one flat row per (location, timestamp). Nil pointers
// are nulls and propagate through the pipeline.
type WeatherObservation struct {
	Timestamp          time.Time `json:"timestamp"`
	Location           string    `json:"location"`
	Temperature        *float64  `json:"temperature"`
	CloudCover         *int      `json:"cloud_cover"`
	WindSpeed          *float64  `json:"wind_speed"`
	WeatherDescription *string   `json:"weather_description"`
	IsForecast         bool      `json:"is_forecast"`
}

// LabeledObservation carries the synthetic production label. A NaN label
// means the formula inputs were null.
type LabeledObservation struct {
	WeatherObservation
	SolarEnergyKWh float64 `json:"-"`
}

// FeatureRow is a labeled observation with its derived calendar, cyclical and
// categorical features. It is the terminal training artifact.
type FeatureRow struct {
	LabeledObservation
	Features
}

// Vector returns the inference feature vector in encoder column order.
func (r FeatureRow) Vector() Vector {
	return r.Features.Vector(r.WeatherObservation)
}

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// FeatureRecord is the serialized shape published for every observation.
// Forecast rows carry no label.
type FeatureRecord struct {
	Location       string    `json:"location"`
	Timestamp      time.Time `json:"timestamp"`
	IsForecast     bool      `json:"is_forecast"`
	SolarEnergyKWh *float64  `json:"solar_energy_kwh"`
	Columns        []string  `json:"columns"`
	Values         Vector    `json:"values"`
	ProcessedAt    time.Time `json:"processed_at"`
}

// Key identifies the record on the sink topic.
func (r FeatureRecord) Key() string {
	return r.Location + "|" + r.Timestamp.UTC().Format(time.RFC3339)
}

// Kind is "forecast" or "observation".
func (r FeatureRecord) Kind() string {
	if r.IsForecast {
		return "forecast"
	}
	return "observation"
}
