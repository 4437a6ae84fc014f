// Command genmock writes a deterministic fixture of collected weather
// documents: one document per location every -interval across a day, each
// with its short-range forecast entries. It runs the documents through the
// real normalizer before writing so the fixture always parses.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/raw_observations.json -seed 7
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/couchcryptid/solar-forecast-etl/internal/domain"
)

type site struct {
	name     string
	lat, lon float64
}

var sites = []site{
	{name: "solar_farm_1", lat: 51.5074, lon: -0.1278},
	{name: "solar_farm_2", lat: 48.8566, lon: 2.3522},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/mock/raw_observations.json", "output path for the raw document fixture")
	date := flag.String("date", "2024-06-15", "collection day (UTC)")
	interval := flag.Duration("interval", 3*time.Hour, "time between collections")
	entries := flag.Int("forecast-entries", 2, "forecast entries per document")
	seed := flag.Uint64("seed", 7, "random seed")
	nullDoc := flag.Int("null-temperature-doc", 13, "index of the document whose current temperature is omitted (-1 for none)")
	flag.Parse()

	day, err := time.Parse(time.DateOnly, *date)
	if err != nil {
		return fmt.Errorf("invalid -date: %w", err)
	}
	if *interval <= 0 || *interval > 24*time.Hour {
		return fmt.Errorf("invalid -interval %s", *interval)
	}

	g := &generator{rng: rand.New(rand.NewPCG(*seed, *seed)), interval: *interval, entries: *entries}

	var docs []domain.RawDocument //nolint:prealloc // size depends on interval
	for _, s := range sites {
		for ts := day; ts.Before(day.Add(24 * time.Hour)); ts = ts.Add(*interval) {
			docs = append(docs, g.document(s, ts))
		}
	}
	if *nullDoc >= 0 && *nullDoc < len(docs) && docs[*nullDoc].Current != nil {
		docs[*nullDoc].Current.Temperature = nil
	}

	rows, err := domain.Normalize(docs)
	if err != nil {
		return fmt.Errorf("generated fixture does not normalize: %w", err)
	}

	if err := writeJSON(*out, docs); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote %d documents (%d rows) to %s", len(docs), len(rows), *out)

	printStats(rows)
	return nil
}

type generator struct {
	rng      *rand.Rand
	interval time.Duration
	entries  int
}

func (g *generator) document(s site, ts time.Time) domain.RawDocument {
	temp, clouds, wind, desc := g.conditions(ts)
	doc := domain.RawDocument{
		Timestamp: ts.Format(time.RFC3339),
		Location:  s.name,
		Latitude:  ptr(s.lat),
		Longitude: ptr(s.lon),
		Current: &domain.RawCurrent{
			Temperature:        ptr(temp),
			Clouds:             ptr(clouds),
			WindSpeed:          ptr(wind),
			WeatherDescription: ptr(desc),
		},
	}
	for i := 1; i <= g.entries; i++ {
		at := ts.Add(time.Duration(i) * g.interval)
		temp, clouds, wind, desc := g.conditions(at)
		doc.Forecast = append(doc.Forecast, domain.RawForecast{
			Dt:      ptr(at.Unix()),
			Main:    &domain.ForecastMain{Temp: ptr(temp)},
			Clouds:  &domain.ForecastClouds{All: ptr(clouds)},
			Wind:    &domain.ForecastWind{Speed: ptr(wind)},
			Weather: []domain.ForecastCondition{{Description: ptr(desc)}},
		})
	}
	return doc
}

// conditions draws a diurnal temperature curve peaking mid-afternoon plus
// independent cloud cover and wind.
func (g *generator) conditions(ts time.Time) (temp, clouds, wind float64, desc string) {
	hour := float64(ts.Hour())
	temp = round2(21 + 7*math.Sin(2*math.Pi*(hour-9)/24) + g.rng.NormFloat64()*1.5)
	clouds = float64(g.rng.IntN(101))
	wind = round2(1 + g.rng.Float64()*7)
	desc = describe(clouds, g.rng.Float64())
	return temp, clouds, wind, desc
}

func describe(clouds, u float64) string {
	switch {
	case clouds > 90 && u < 0.3:
		return "light rain"
	case clouds < 11:
		return "clear sky"
	case clouds < 25:
		return "few clouds"
	case clouds < 50:
		return "scattered clouds"
	case clouds < 85:
		return "broken clouds"
	default:
		return "overcast clouds"
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func ptr[T any](v T) *T { return &v }

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(rows []domain.WeatherObservation) {
	descriptions := map[string]int{}
	var current, forecast, nullTemp int
	for _, r := range rows {
		if r.IsForecast {
			forecast++
		} else {
			current++
		}
		if r.Temperature == nil {
			nullTemp++
		}
		if r.WeatherDescription != nil {
			descriptions[*r.WeatherDescription]++
		}
	}

	fmt.Printf("\n=== Fixture Statistics ===\n")
	fmt.Printf("Current rows:  %d\n", current)
	fmt.Printf("Forecast rows: %d\n", forecast)
	fmt.Printf("Null temps:    %d\n", nullTemp)
	fmt.Printf("\nBy description:\n")

	keys := make([]string, 0, len(descriptions))
	for k := range descriptions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-18s %d\n", k, descriptions[k])
	}
}
