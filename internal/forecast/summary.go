package forecast

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DailyTotal is the summed production of one calendar day (UTC).
type DailyTotal struct {
	Date      string
	EnergyKWh float64
}

// Summary holds dashboard statistics for a forecast horizon.
type Summary struct {
	DailyTotals       []DailyTotal
	TotalEnergyKWh    float64
	AvgDailyKWh       float64
	PeakHour          time.Time
	PeakProductionKWh float64
}

// Summarize computes daily totals, the horizon total, the average daily
// total and the peak hour. Points must be in time order.
func Summarize(points []Point) Summary {
	if len(points) == 0 {
		return Summary{}
	}

	var daily []DailyTotal
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.EnergyKWh
		date := p.Timestamp.UTC().Format(time.DateOnly)
		if n := len(daily); n > 0 && daily[n-1].Date == date {
			daily[n-1].EnergyKWh += p.EnergyKWh
			continue
		}
		daily = append(daily, DailyTotal{Date: date, EnergyKWh: p.EnergyKWh})
	}

	totals := make([]float64, len(daily))
	for i, d := range daily {
		totals[i] = d.EnergyKWh
	}

	peak := floats.MaxIdx(values)
	return Summary{
		DailyTotals:       daily,
		TotalEnergyKWh:    floats.Sum(values),
		AvgDailyKWh:       stat.Mean(totals, nil),
		PeakHour:          points[peak].Timestamp,
		PeakProductionKWh: values[peak],
	}
}
