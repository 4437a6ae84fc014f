// Package parquet writes the training table and the seasonality series as
// Parquet files.
package parquet

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/couchcryptid/solar-forecast-etl/internal/domain"
	"github.com/couchcryptid/solar-forecast-etl/internal/training"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
)

// FeatureRow is the on-disk layout of one training row. Weather holds the
// one-hot indicators in vocabulary order.
type FeatureRow struct {
	RunID              string    `parquet:"name=run_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Location           string    `parquet:"name=location, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Timestamp          int64     `parquet:"name=timestamp, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Temperature        *float64  `parquet:"name=temperature, type=DOUBLE, repetitiontype=OPTIONAL"`
	CloudCover         *int32    `parquet:"name=cloud_cover, type=INT32, repetitiontype=OPTIONAL"`
	WindSpeed          *float64  `parquet:"name=wind_speed, type=DOUBLE, repetitiontype=OPTIONAL"`
	WeatherDescription *string   `parquet:"name=weather_description, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	SolarEnergyKWh     *float64  `parquet:"name=solar_energy_kwh, type=DOUBLE, repetitiontype=OPTIONAL"`
	Hour               int32     `parquet:"name=hour, type=INT32"`
	Day                int32     `parquet:"name=day, type=INT32"`
	Month              int32     `parquet:"name=month, type=INT32"`
	Year               int32     `parquet:"name=year, type=INT32"`
	DayOfWeek          int32     `parquet:"name=dayofweek, type=INT32"`
	HourSin            float64   `parquet:"name=hour_sin, type=DOUBLE"`
	HourCos            float64   `parquet:"name=hour_cos, type=DOUBLE"`
	MonthSin           float64   `parquet:"name=month_sin, type=DOUBLE"`
	MonthCos           float64   `parquet:"name=month_cos, type=DOUBLE"`
	Weather            []float64 `parquet:"name=weather, type=LIST, valuetype=DOUBLE"`
}

// SeriesRow is the on-disk layout of one seasonality series point.
type SeriesRow struct {
	Location    string   `parquet:"name=location, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	DS          int64    `parquet:"name=ds, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Y           *float64 `parquet:"name=y, type=DOUBLE, repetitiontype=OPTIONAL"`
	Temperature *float64 `parquet:"name=temperature, type=DOUBLE, repetitiontype=OPTIONAL"`
	CloudCover  *int32   `parquet:"name=cloud_cover, type=INT32, repetitiontype=OPTIONAL"`
	WindSpeed   *float64 `parquet:"name=wind_speed, type=DOUBLE, repetitiontype=OPTIONAL"`
}

// Writer encodes rows with a fixed compression codec.
type Writer struct {
	codec       parquet.CompressionCodec
	parallelism int64
}

// NewWriter creates a Writer. compression is SNAPPY, GZIP or NONE; empty means SNAPPY.
func NewWriter(compression string) (*Writer, error) {
	codec, err := compressionCodec(compression)
	if err != nil {
		return nil, err
	}
	return &Writer{codec: codec, parallelism: 4}, nil
}

// WriteFeatures encodes the training rows of set to w.
func (pw *Writer) WriteFeatures(w io.Writer, set *training.Set) error {
	rows := make([]any, len(set.Rows))
	runID := set.RunID.String()
	for i := range set.Rows {
		rows[i] = toFeatureRow(runID, set.Rows[i])
	}
	return pw.write(w, new(FeatureRow), rows)
}

// WriteSeries encodes the seasonality series to w.
func (pw *Writer) WriteSeries(w io.Writer, series []training.SeriesPoint) error {
	rows := make([]any, len(series))
	for i, p := range series {
		rows[i] = SeriesRow{
			Location:    p.Location,
			DS:          p.DS.UnixMilli(),
			Y:           nullable(p.Y),
			Temperature: p.Temperature,
			CloudCover:  int32Ptr(p.CloudCover),
			WindSpeed:   p.WindSpeed,
		}
	}
	return pw.write(w, new(SeriesRow), rows)
}

// WriteFeaturesFile writes the training rows to a local file.
func (pw *Writer) WriteFeaturesFile(path string, set *training.Set) error {
	return pw.toFile(path, func(f source.ParquetFile) error {
		return pw.WriteFeatures(f, set)
	})
}

// WriteSeriesFile writes the seasonality series to a local file.
func (pw *Writer) WriteSeriesFile(path string, series []training.SeriesPoint) error {
	return pw.toFile(path, func(f source.ParquetFile) error {
		return pw.WriteSeries(f, series)
	})
}

func (pw *Writer) toFile(path string, fn func(source.ParquetFile) error) error {
	f, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func (pw *Writer) write(w io.Writer, schema any, rows []any) (err error) {
	p, err := writer.NewParquetWriterFromWriter(w, schema, pw.parallelism)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	p.CompressionType = pw.codec

	for i, row := range rows {
		if err := p.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	// WriteStop can panic on schema/value mismatches.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parquet writer panicked during WriteStop: %v", r)
		}
	}()
	if err := p.WriteStop(); err != nil {
		return fmt.Errorf("finalize parquet: %w", err)
	}
	return nil
}

func toFeatureRow(runID string, r domain.FeatureRow) FeatureRow {
	weather := r.Weather
	if weather == nil {
		weather = []float64{}
	}
	return FeatureRow{
		RunID:              runID,
		Location:           r.Location,
		Timestamp:          r.Timestamp.UnixMilli(),
		Temperature:        r.Temperature,
		CloudCover:         int32Ptr(r.CloudCover),
		WindSpeed:          r.WindSpeed,
		WeatherDescription: r.WeatherDescription,
		SolarEnergyKWh:     nullable(r.SolarEnergyKWh),
		Hour:               int32(r.Hour),
		Day:                int32(r.Day),
		Month:              int32(r.Month),
		Year:               int32(r.Year),
		DayOfWeek:          int32(r.DayOfWeek),
		HourSin:            r.HourSin,
		HourCos:            r.HourCos,
		MonthSin:           r.MonthSin,
		MonthCos:           r.MonthCos,
		Weather:            weather,
	}
}

func compressionCodec(name string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(name) {
	case "SNAPPY", "":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", name)
	}
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func int32Ptr(p *int) *int32 {
	if p == nil {
		return nil
	}
	v := int32(*p)
	return &v
}
