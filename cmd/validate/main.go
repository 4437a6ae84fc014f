// Command validate re-runs the feature pipeline over a document set and
// checks the invariants every stage must hold: normalization row counts and
// ranges, label masking and formula parity, feature vector layout and the
// forecast horizon. It exits non-zero when any phase fails.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -docs data/mock/raw_observations.json \
//	  -vocabulary artifacts/vocabulary.json
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/couchcryptid/solar-forecast-etl/internal/domain"
	"github.com/couchcryptid/solar-forecast-etl/internal/forecast"
	"github.com/couchcryptid/solar-forecast-etl/internal/training"
	"github.com/jonboulle/clockwork"
)

const tolerance = 1e-9

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	docsPath := flag.String("docs", "data/mock/raw_observations.json", "path to a JSON document or array of documents")
	vocabPath := flag.String("vocabulary", "", "vocabulary artifact (default: fitted on -docs)")
	capacity := flag.Float64("base-capacity-kw", domain.DefaultBaseCapacityKW, "installation capacity for the synthetic label")
	flag.Parse()

	os.Exit(run(*docsPath, *vocabPath, *capacity))
}

func run(docsPath, vocabPath string, capacity float64) int {
	fmt.Println("=== Solar Feature Pipeline Validation ===")
	fmt.Println()

	data, err := os.ReadFile(docsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read documents: %v\n", err)
		return 1
	}
	docs, err := domain.DecodeDocuments(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	rows, err := domain.Normalize(docs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: normalize: %v\n", err)
		return 1
	}

	labeler := domain.NewLabeler(domain.LabelConfig{BaseCapacityKW: capacity}, nil)
	observed, _ := domain.SplitForecast(rows)
	labeled := labeler.Label(rows)

	vocab := domain.FitVocabulary(labeled)
	if vocabPath != "" {
		vocab, err = training.ReadVocabulary(vocabPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			return 1
		}
	}
	encoder := domain.NewEncoder(vocab)

	// ── Run validation phases ──
	phases := []*phase{
		validateNormalization(docs, rows),
		validateLabels(observed, labeled, capacity),
		validateFeatures(encoder, labeled),
		validateHorizon(encoder, rows, capacity),
	}

	// ── Report results ──
	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Documents: %d, rows: %d (%d observed), vocabulary: %d categories\n",
		len(docs), len(rows), len(observed), vocab.Len())

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: normalization ──

func validateNormalization(docs []domain.RawDocument, rows []domain.WeatherObservation) *phase {
	p := &phase{name: "Normalization (rows, zones, ranges)"}

	want := len(docs)
	for i := range docs {
		want += len(docs[i].Forecast)
	}
	if len(rows) != want {
		p.errorf("row count: got %d, want %d", len(rows), want)
	}

	for i, r := range rows {
		if r.IsForecast && r.Timestamp.Location() != time.UTC {
			p.errorf("row %d: forecast timestamp %s not in UTC", i, r.Timestamp)
		}
		if r.CloudCover != nil && (*r.CloudCover < 0 || *r.CloudCover > 100) {
			p.errorf("row %d: cloud cover %d outside [0,100]", i, *r.CloudCover)
		}
		if r.Location == "" {
			p.errorf("row %d: empty location", i)
		}
	}
	return p
}

// ── Phase 2: labels ──

func validateLabels(observed []domain.WeatherObservation, labeled []domain.LabeledObservation, capacity float64) *phase {
	p := &phase{name: "Labels (forecast drop, night mask, formula)"}

	if len(labeled) != len(observed) {
		p.errorf("labeled rows: got %d, want %d observed rows", len(labeled), len(observed))
		return p
	}

	for i, r := range labeled {
		if r.IsForecast {
			p.errorf("row %d: forecast row was labeled", i)
		}
		if !r.Timestamp.Equal(observed[i].Timestamp) || r.Location != observed[i].Location {
			p.errorf("row %d: order not preserved", i)
		}

		if domain.IsNight(r.Timestamp.Hour()) {
			if r.SolarEnergyKWh != 0 {
				p.errorf("row %d (%s %s): night label %v, want 0", i, r.Location, r.Timestamp, r.SolarEnergyKWh)
			}
			continue
		}

		want := domain.FormulaEnergy(r.Temperature, r.CloudCover, capacity)
		switch {
		case math.IsNaN(want) != math.IsNaN(r.SolarEnergyKWh):
			p.errorf("row %d: null label mismatch: got %v, want %v", i, r.SolarEnergyKWh, want)
		case !math.IsNaN(want) && math.Abs(want-r.SolarEnergyKWh) > tolerance:
			p.errorf("row %d: label %v, want %v", i, r.SolarEnergyKWh, want)
		}
	}
	return p
}

// ── Phase 3: features ──

func validateFeatures(encoder *domain.Encoder, labeled []domain.LabeledObservation) *phase {
	p := &phase{name: "Features (layout, cyclical, one-hot)"}

	columns := encoder.Columns()
	vocab := encoder.Vocabulary()
	for i, row := range encoder.Encode(labeled) {
		vec := row.Vector()
		if len(vec) != len(columns) {
			p.errorf("row %d: vector length %d, want %d", i, len(vec), len(columns))
			continue
		}
		if d := row.HourSin*row.HourSin + row.HourCos*row.HourCos - 1; math.Abs(d) > tolerance {
			p.errorf("row %d: hour sin²+cos² off by %v", i, d)
		}
		if d := row.MonthSin*row.MonthSin + row.MonthCos*row.MonthCos - 1; math.Abs(d) > tolerance {
			p.errorf("row %d: month sin²+cos² off by %v", i, d)
		}
		if row.DayOfWeek < 0 || row.DayOfWeek > 6 {
			p.errorf("row %d: day of week %d", i, row.DayOfWeek)
		}
		checkOneHot(p, i, encoder, vocab, row)
	}
	return p
}

func checkOneHot(p *phase, i int, encoder *domain.Encoder, vocab *domain.Vocabulary, row domain.FeatureRow) {
	var sum float64
	for _, v := range row.Weather {
		sum += v
	}
	known := encoder.Known(row.WeatherDescription)
	switch {
	case known && sum != 1:
		p.errorf("row %d: known description %q has indicator sum %v", i, *row.WeatherDescription, sum)
	case !known && sum != 0:
		p.errorf("row %d: unseen description has indicator sum %v", i, sum)
	}
	if !known {
		return
	}
	if got, ok := vocab.Decode(row.Weather); !ok || got != *row.WeatherDescription {
		p.errorf("row %d: decode %q, want %q", i, got, *row.WeatherDescription)
	}
}

// ── Phase 4: forecast horizon ──

func validateHorizon(encoder *domain.Encoder, rows []domain.WeatherObservation, capacity float64) *phase {
	p := &phase{name: "Forecast horizon (length, night, floor)"}

	_, forecastRows := domain.SplitForecast(rows)
	store := forecast.NewLatestStore()
	store.Record(forecastRows)

	start := time.Now().UTC()
	if len(forecastRows) > 0 {
		start = forecastRows[0].Timestamp
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := forecast.NewService(forecast.NewFormulaModel(capacity), encoder, store, logger,
		forecast.WithClock(clockwork.NewFakeClockAt(start)))

	for _, loc := range store.Locations() {
		res, err := svc.Forecast(context.Background(), loc, forecast.DefaultDays)
		if err != nil {
			p.errorf("%s: %v", loc, err)
			continue
		}
		if len(res.Points) != forecast.DefaultDays*24 {
			p.errorf("%s: %d points, want %d", loc, len(res.Points), forecast.DefaultDays*24)
		}
		for _, pt := range res.Points {
			if pt.EnergyKWh < 0 {
				p.errorf("%s %s: negative forecast %v", loc, pt.Timestamp, pt.EnergyKWh)
			}
			if domain.IsNight(pt.Timestamp.Hour()) && pt.EnergyKWh != 0 {
				p.errorf("%s %s: night forecast %v", loc, pt.Timestamp, pt.EnergyKWh)
			}
		}
		if math.Abs(res.Summary.TotalEnergyKWh-sumPoints(res.Points)) > 1e-6 {
			p.errorf("%s: summary total %v does not match points", loc, res.Summary.TotalEnergyKWh)
		}
	}
	return p
}

func sumPoints(points []forecast.Point) float64 {
	var s float64
	for _, pt := range points {
		s += pt.EnergyKWh
	}
	return s
}
