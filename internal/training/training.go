// Package training assembles the labeled, encoded training table from a
// corpus of raw documents and derives the artifacts the offline model
// fitting consumes: the frozen vocabulary, a train/test split and the
// seasonality series.
package training

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/couchcryptid/solar-forecast-etl/internal/domain"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Defaults for the train/test split.
const (
	DefaultTestFraction = 0.2
	DefaultSplitSeed    = 42
)

// ErrEmptyCorpus is returned when no current observation survives labeling.
var ErrEmptyCorpus = errors.New("training corpus has no observed rows")

// Set is one training table with the vocabulary it was encoded with.
type Set struct {
	RunID      uuid.UUID
	Rows       []domain.FeatureRow
	Vocabulary *domain.Vocabulary
	Columns    []string
}

// Build normalizes, labels and encodes docs. The vocabulary is fitted on the
// labeled rows, so forecast-only descriptions never become columns.
func Build(docs []domain.RawDocument, labeler *domain.Labeler) (*Set, error) {
	observations, err := domain.Normalize(docs)
	if err != nil {
		return nil, err
	}
	labeled := labeler.Label(observations)
	if len(labeled) == 0 {
		return nil, ErrEmptyCorpus
	}

	vocab := domain.FitVocabulary(labeled)
	encoder := domain.NewEncoder(vocab)
	return &Set{
		RunID:      uuid.New(),
		Rows:       encoder.Encode(labeled),
		Vocabulary: vocab,
		Columns:    encoder.Columns(),
	}, nil
}

// Split shuffles the rows with a seeded source and holds out
// ceil(len*testFraction) of them. The same seed always yields the same split.
func (s *Set) Split(testFraction float64, seed uint64) (train, test *Set, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction %v outside (0, 1)", testFraction)
	}
	n := len(s.Rows)
	nTest := int(math.Ceil(float64(n) * testFraction))
	if nTest >= n {
		return nil, nil, fmt.Errorf("cannot split %d rows with test fraction %v", n, testFraction)
	}

	perm := rand.New(rand.NewPCG(seed, seed)).Perm(n)
	test = s.subset(perm[:nTest])
	train = s.subset(perm[nTest:])
	return train, test, nil
}

func (s *Set) subset(idx []int) *Set {
	rows := make([]domain.FeatureRow, len(idx))
	for i, j := range idx {
		rows[i] = s.Rows[j]
	}
	return &Set{RunID: s.RunID, Rows: rows, Vocabulary: s.Vocabulary, Columns: s.Columns}
}

// SeriesPoint is one row of the seasonality model input: ds, y and the
// weather regressors.
type SeriesPoint struct {
	Location    string
	DS          time.Time
	Y           float64
	Temperature *float64
	CloudCover  *int
	WindSpeed   *float64
}

// Series returns the rows ordered by timestamp, then location.
func (s *Set) Series() []SeriesPoint {
	out := make([]SeriesPoint, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = SeriesPoint{
			Location:    r.Location,
			DS:          r.Timestamp,
			Y:           r.SolarEnergyKWh,
			Temperature: r.Temperature,
			CloudCover:  r.CloudCover,
			WindSpeed:   r.WindSpeed,
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DS.Equal(out[j].DS) {
			return out[i].DS.Before(out[j].DS)
		}
		return out[i].Location < out[j].Location
	})
	return out
}

// Stats summarizes the label column. Null labels are excluded from the
// moments and counted separately.
type Stats struct {
	Rows       int
	NullLabels int
	Mean       float64
	StdDev     float64
	Min        float64
	Max        float64
}

// Summary computes label statistics over the non-null labels.
func (s *Set) Summary() Stats {
	st := Stats{Rows: len(s.Rows)}
	labels := make([]float64, 0, len(s.Rows))
	for _, r := range s.Rows {
		if math.IsNaN(r.SolarEnergyKWh) {
			st.NullLabels++
			continue
		}
		labels = append(labels, r.SolarEnergyKWh)
	}
	if len(labels) == 0 {
		return st
	}
	st.Min = floats.Min(labels)
	st.Max = floats.Max(labels)
	if len(labels) == 1 {
		st.Mean = labels[0]
		return st
	}
	st.Mean, st.StdDev = stat.MeanStdDev(labels, nil)
	return st
}
