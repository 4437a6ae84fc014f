package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrMissingField is wrapped by ParseError when a mandatory field is absent.
var ErrMissingField = errors.New("missing mandatory field")

// ParseError identifies the record that stopped a normalization batch.
// Forecast is -1 when the failing record is the document's current block.
type ParseError struct {
	Document int
	Forecast int
	Field    string
	Value    string
	Err      error
}

func (e *ParseError) Error() string {
	where := fmt.Sprintf("document %d current", e.Document)
	if e.Forecast >= 0 {
		where = fmt.Sprintf("document %d forecast[%d]", e.Document, e.Forecast)
	}
	if e.Value == "" {
		return fmt.Sprintf("parse %s: %s: %v", where, e.Field, e.Err)
	}
	return fmt.Sprintf("parse %s: %s %q: %v", where, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// naiveLayouts are accepted for timestamps that carry no zone; they are read as UTC.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// DecodeDocuments accepts a single JSON document or a JSON array of documents.
func DecodeDocuments(data []byte) ([]RawDocument, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("decode documents: empty payload")
	}
	if trimmed[0] == '[' {
		var docs []RawDocument
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, fmt.Errorf("decode documents: %w", err)
		}
		return docs, nil
	}
	var doc RawDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	return []RawDocument{doc}, nil
}

// Normalize flattens raw documents into observation rows: one row for each
// document's current block followed by one row per forecast entry. Missing
// measurements become nulls; a missing or malformed timestamp or location
// fails the whole batch.
func Normalize(docs []RawDocument) ([]WeatherObservation, error) {
	rows := make([]WeatherObservation, 0, countRows(docs))
	for i := range docs {
		doc := &docs[i]

		location := strings.TrimSpace(doc.Location)
		if location == "" {
			return nil, &ParseError{Document: i, Forecast: -1, Field: "location", Err: ErrMissingField}
		}

		ts, err := parseTimestamp(doc.Timestamp)
		if err != nil {
			return nil, &ParseError{Document: i, Forecast: -1, Field: "timestamp", Value: doc.Timestamp, Err: err}
		}

		rows = append(rows, currentRow(ts, location, doc.Current))

		for j := range doc.Forecast {
			entry := &doc.Forecast[j]
			if entry.Dt == nil {
				return nil, &ParseError{Document: i, Forecast: j, Field: "dt", Err: ErrMissingField}
			}
			rows = append(rows, forecastRow(location, entry))
		}
	}
	return rows, nil
}

func countRows(docs []RawDocument) int {
	n := len(docs)
	for i := range docs {
		n += len(docs[i].Forecast)
	}
	return n
}

func currentRow(ts time.Time, location string, cur *RawCurrent) WeatherObservation {
	row := WeatherObservation{Timestamp: ts, Location: location}
	if cur == nil {
		return row
	}
	row.Temperature = cur.Temperature
	row.CloudCover = cloudPercent(cur.Clouds)
	row.WindSpeed = cur.WindSpeed
	row.WeatherDescription = cur.WeatherDescription
	return row
}

func forecastRow(location string, entry *RawForecast) WeatherObservation {
	row := WeatherObservation{
		Timestamp:  time.Unix(*entry.Dt, 0).UTC(),
		Location:   location,
		IsForecast: true,
	}
	if entry.Main != nil {
		row.Temperature = entry.Main.Temp
	}
	if entry.Clouds != nil {
		row.CloudCover = cloudPercent(entry.Clouds.All)
	}
	if entry.Wind != nil {
		row.WindSpeed = entry.Wind.Speed
	}
	if len(entry.Weather) > 0 {
		row.WeatherDescription = entry.Weather[0].Description
	}
	return row
}

// parseTimestamp reads an ISO-8601 instant. "Z" and explicit offsets are kept
// as the stored zone; a zone-less value is taken as UTC.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrMissingField
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		if t.Location() != time.UTC {
			_, offset := t.Zone()
			if offset == 0 {
				t = t.UTC()
			}
		}
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("not an ISO-8601 timestamp")
}

// cloudPercent rounds a cloud coverage value to an integer percentage. Values
// outside [0,100] or non-finite values are treated as null.
func cloudPercent(v *float64) *int {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	if *v < 0 || *v > 100 {
		return nil
	}
	c := int(math.Round(*v))
	return &c
}
