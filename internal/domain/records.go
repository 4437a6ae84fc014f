package domain

import "math"

// Unlabeled wraps forecast rows for encoding. Their label is NaN.
func Unlabeled(rows []WeatherObservation) []LabeledObservation {
	out := make([]LabeledObservation, 0, len(rows))
	for _, row := range rows {
		out = append(out, LabeledObservation{WeatherObservation: row, SolarEnergyKWh: math.NaN()})
	}
	return out
}

// SplitForecast separates observed rows from forecast rows, keeping order.
func SplitForecast(rows []WeatherObservation) (observed, forecast []WeatherObservation) {
	for _, row := range rows {
		if row.IsForecast {
			forecast = append(forecast, row)
			continue
		}
		observed = append(observed, row)
	}
	return observed, forecast
}

// NewFeatureRecords serializes encoded rows for publishing. Forecast rows
// and null labels are published without a label.
func NewFeatureRecords(rows []FeatureRow, columns []string) []FeatureRecord {
	now := clock.Now()
	out := make([]FeatureRecord, len(rows))
	for i := range rows {
		row := &rows[i]
		rec := FeatureRecord{
			Location:    row.Location,
			Timestamp:   row.Timestamp,
			IsForecast:  row.IsForecast,
			Columns:     columns,
			Values:      row.Vector(),
			ProcessedAt: now,
		}
		if !row.IsForecast && !math.IsNaN(row.SolarEnergyKWh) {
			label := row.SolarEnergyKWh
			rec.SolarEnergyKWh = &label
		}
		out[i] = rec
	}
	return out
}
