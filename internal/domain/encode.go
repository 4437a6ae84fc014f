package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Base inference columns, in order, ahead of the one-hot weather indicators.
const (
	ColTemperature = "temperature"
	ColCloudCover  = "cloud_cover"
	ColWindSpeed   = "wind_speed"
	ColHourSin     = "hour_sin"
	ColHourCos     = "hour_cos"
	ColMonthSin    = "month_sin"
	ColMonthCos    = "month_cos"

	weatherColumnPrefix = "weather_"
)

// BaseColumns lists the numeric columns shared by every vocabulary.
var BaseColumns = []string{
	ColTemperature, ColCloudCover, ColWindSpeed,
	ColHourSin, ColHourCos, ColMonthSin, ColMonthCos,
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Vocabulary is the frozen set of weather descriptions seen at training time.
// Column order follows the sorted description order and never changes after
// fitting.
type Vocabulary struct {
	values []string
	index  map[string]int
}

// FitVocabulary captures the distinct non-null descriptions of a training corpus.
func FitVocabulary(rows []LabeledObservation) *Vocabulary {
	seen := make(map[string]struct{})
	for i := range rows {
		if d := rows[i].WeatherDescription; d != nil {
			seen[*d] = struct{}{}
		}
	}
	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	return NewVocabulary(values)
}

// NewVocabulary builds a vocabulary from explicit values; duplicates are dropped.
func NewVocabulary(values []string) *Vocabulary {
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)

	v := &Vocabulary{
		values: make([]string, 0, len(sorted)),
		index:  make(map[string]int, len(sorted)),
	}
	for _, s := range sorted {
		if _, dup := v.index[s]; dup {
			continue
		}
		v.index[s] = len(v.values)
		v.values = append(v.values, s)
	}
	return v
}

// Len is the number of indicator columns.
func (v *Vocabulary) Len() int { return len(v.values) }

// Values returns a copy of the descriptions in column order.
func (v *Vocabulary) Values() []string { return append([]string(nil), v.values...) }

// Columns returns the indicator column names in order.
func (v *Vocabulary) Columns() []string {
	cols := make([]string, len(v.values))
	for i, s := range v.values {
		cols[i] = WeatherColumn(s)
	}
	return cols
}

// OneHot encodes a description. Unknown or null descriptions produce an
// all-zero vector of the same width.
func (v *Vocabulary) OneHot(description *string) ([]float64, bool) {
	out := make([]float64, len(v.values))
	if description == nil {
		return out, false
	}
	i, ok := v.index[*description]
	if !ok {
		return out, false
	}
	out[i] = 1
	return out, true
}

// Decode returns the description at the arg-max indicator. It reports false
// when no indicator is set, meaning none of the known categories.
func (v *Vocabulary) Decode(indicators []float64) (string, bool) {
	best, bestVal := -1, 0.0
	for i := 0; i < len(indicators) && i < len(v.values); i++ {
		if indicators[i] > bestVal {
			best, bestVal = i, indicators[i]
		}
	}
	if best < 0 {
		return "", false
	}
	return v.values[best], true
}

type vocabularyJSON struct {
	Values  []string `json:"values"`
	Columns []string `json:"columns"`
}

// MarshalJSON writes the descriptions and the full inference column order.
func (v *Vocabulary) MarshalJSON() ([]byte, error) {
	cols := append(append([]string(nil), BaseColumns...), v.Columns()...)
	return json.Marshal(vocabularyJSON{Values: v.values, Columns: cols})
}

// UnmarshalJSON restores a vocabulary persisted by MarshalJSON.
func (v *Vocabulary) UnmarshalJSON(data []byte) error {
	var raw vocabularyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode vocabulary: %w", err)
	}
	*v = *NewVocabulary(raw.Values)
	return nil
}

// WeatherColumn names the indicator column for a description,
// e.g. "clear sky" -> "weather_clear_sky".
func WeatherColumn(description string) string {
	slug := slugRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(description)), "_")
	return weatherColumnPrefix + strings.Trim(slug, "_")
}

// Features are the calendar, cyclical and categorical columns derived from
// one observation.
type Features struct {
	Hour      int       `json:"hour"`
	Day       int       `json:"day"`
	Month     int       `json:"month"`
	Year      int       `json:"year"`
	DayOfWeek int       `json:"dayofweek"` // Monday = 0
	HourSin   float64   `json:"hour_sin"`
	HourCos   float64   `json:"hour_cos"`
	MonthSin  float64   `json:"month_sin"`
	MonthCos  float64   `json:"month_cos"`
	Weather   []float64 `json:"weather"`
}

// Vector lays out the inference vector for an observation:
// temperature, cloud cover, wind speed, the cyclical pairs, then indicators.
// Null measurements are NaN.
func (f Features) Vector(obs WeatherObservation) Vector {
	vec := make(Vector, 0, len(BaseColumns)+len(f.Weather))
	vec = append(vec,
		floatOrNaN(obs.Temperature),
		intOrNaN(obs.CloudCover),
		floatOrNaN(obs.WindSpeed),
		f.HourSin, f.HourCos, f.MonthSin, f.MonthCos,
	)
	return append(vec, f.Weather...)
}

// Encoder appends features using a vocabulary fixed at training time.
type Encoder struct {
	vocab *Vocabulary
}

// NewEncoder creates an Encoder. A nil vocabulary encodes no indicators.
func NewEncoder(vocab *Vocabulary) *Encoder {
	if vocab == nil {
		vocab = NewVocabulary(nil)
	}
	return &Encoder{vocab: vocab}
}

// Vocabulary returns the frozen vocabulary.
func (e *Encoder) Vocabulary() *Vocabulary { return e.vocab }

// Columns is the inference column order.
func (e *Encoder) Columns() []string {
	return append(append([]string(nil), BaseColumns...), e.vocab.Columns()...)
}

// Encode derives features for every labeled row, preserving row order.
func (e *Encoder) Encode(rows []LabeledObservation) []FeatureRow {
	out := make([]FeatureRow, len(rows))
	for i := range rows {
		out[i] = FeatureRow{LabeledObservation: rows[i], Features: e.Features(rows[i].WeatherObservation)}
	}
	return out
}

// Features derives the feature columns for one observation in the zone the
// timestamp was stored with.
func (e *Encoder) Features(obs WeatherObservation) Features {
	ts := obs.Timestamp
	hour := ts.Hour()
	month := int(ts.Month())
	weather, _ := e.vocab.OneHot(obs.WeatherDescription)

	return Features{
		Hour:      hour,
		Day:       ts.Day(),
		Month:     month,
		Year:      ts.Year(),
		DayOfWeek: (int(ts.Weekday()) + 6) % 7,
		HourSin:   math.Sin(2 * math.Pi * float64(hour) / 24),
		HourCos:   math.Cos(2 * math.Pi * float64(hour) / 24),
		MonthSin:  math.Sin(2 * math.Pi * float64(month) / 12),
		MonthCos:  math.Cos(2 * math.Pi * float64(month) / 12),
		Weather:   weather,
	}
}

// Known reports whether the description is part of the vocabulary.
func (e *Encoder) Known(description *string) bool {
	if description == nil {
		return false
	}
	_, ok := e.vocab.index[*description]
	return ok
}

// Vector is an ordered numeric feature vector. NaN entries are nulls and
// serialize as JSON null.
type Vector []float64

// MarshalJSON encodes NaN and infinities as null.
func (v Vector) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			buf.WriteByte(',')
		}
		if math.IsNaN(x) || math.IsInf(x, 0) {
			buf.WriteString("null")
			continue
		}
		buf.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes nulls back to NaN.
func (v *Vector) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Vector, len(raw))
	for i, p := range raw {
		out[i] = floatOrNaN(p)
	}
	*v = out
	return nil
}

func floatOrNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

func intOrNaN(p *int) float64 {
	if p == nil {
		return math.NaN()
	}
	return float64(*p)
}
