// Command train builds the labeled training table from collected weather
// documents and writes the artifacts consumed by offline model fitting: the
// train and test feature tables, the seasonality series and the frozen
// vocabulary the service loads through VOCABULARY_PATH.
//
// Usage:
//
//	go run ./cmd/train \
//	  -source-dir data/blobs \
//	  -locations solar_farm_1,solar_farm_2 \
//	  -out-dir artifacts
//
// Set -gcs-bucket instead of -source-dir to read from Cloud Storage.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/solar-forecast-etl/internal/adapter/blob"
	"github.com/couchcryptid/solar-forecast-etl/internal/adapter/parquet"
	"github.com/couchcryptid/solar-forecast-etl/internal/domain"
	"github.com/couchcryptid/solar-forecast-etl/internal/observability"
	"github.com/couchcryptid/solar-forecast-etl/internal/training"
)

func main() {
	if err := run(); err != nil {
		slog.Error("train failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	sourceDir := flag.String("source-dir", "", "local directory laid out as <location>/*.json")
	bucket := flag.String("gcs-bucket", "", "Cloud Storage bucket holding <location>/ prefixes")
	credentials := flag.String("gcs-credentials", "", "service account key file (default: application default credentials)")
	locations := flag.String("locations", "solar_farm_1,solar_farm_2", "comma-separated locations to load")
	outDir := flag.String("out-dir", "artifacts", "directory for the generated artifacts")
	compression := flag.String("compression", "SNAPPY", "parquet compression: SNAPPY, GZIP or NONE")
	testFraction := flag.Float64("test-fraction", training.DefaultTestFraction, "fraction of rows held out for testing")
	splitSeed := flag.Uint64("split-seed", training.DefaultSplitSeed, "train/test shuffle seed")
	capacity := flag.Float64("base-capacity-kw", domain.DefaultBaseCapacityKW, "installation capacity for the synthetic label")
	noiseStdDev := flag.Float64("noise-stddev", domain.DefaultNoiseStdDev, "label noise standard deviation (0 disables)")
	noiseSeed := flag.Uint64("noise-seed", 42, "label noise seed")
	clamp := flag.Bool("clamp-negative", false, "floor negative daytime labels at zero")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger := observability.NewLogger(*logLevel, "text")
	ctx := context.Background()

	if (*sourceDir == "") == (*bucket == "") {
		flag.Usage()
		return errors.New("exactly one of -source-dir or -gcs-bucket is required")
	}

	var src blob.Source
	if *bucket != "" {
		gcs, err := blob.NewGCSSource(ctx, *bucket, *credentials, logger)
		if err != nil {
			return err
		}
		defer gcs.Close() //nolint:errcheck // read-only client
		src = gcs
	} else {
		src = blob.NewDirSource(*sourceDir, logger)
	}

	docs, err := blob.LoadAll(ctx, src, splitList(*locations))
	if err != nil {
		return err
	}
	logger.Info("corpus loaded", "documents", len(docs))

	var noise domain.Noise
	if *noiseStdDev > 0 {
		noise = domain.NewGaussianNoise(*noiseStdDev, *noiseSeed)
	}
	labeler := domain.NewLabeler(domain.LabelConfig{BaseCapacityKW: *capacity, ClampNegative: *clamp}, noise)

	set, err := training.Build(docs, labeler)
	if err != nil {
		return err
	}
	train, test, err := set.Split(*testFraction, *splitSeed)
	if err != nil {
		return err
	}

	stats := set.Summary()
	logger.Info("training table built",
		"run_id", set.RunID,
		"rows", stats.Rows,
		"train_rows", len(train.Rows),
		"test_rows", len(test.Rows),
		"null_labels", stats.NullLabels,
		"label_mean", stats.Mean,
		"label_stddev", stats.StdDev,
		"label_min", stats.Min,
		"label_max", stats.Max,
		"columns", len(set.Columns),
	)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	w, err := parquet.NewWriter(*compression)
	if err != nil {
		return err
	}

	outputs := []struct {
		name  string
		write func(path string) error
	}{
		{"train.parquet", func(p string) error { return w.WriteFeaturesFile(p, train) }},
		{"test.parquet", func(p string) error { return w.WriteFeaturesFile(p, test) }},
		{"series.parquet", func(p string) error { return w.WriteSeriesFile(p, set.Series()) }},
		{"vocabulary.json", func(p string) error { return training.WriteVocabulary(p, set.Vocabulary) }},
	}
	for _, out := range outputs {
		path := filepath.Join(*outDir, out.name)
		if err := out.write(path); err != nil {
			return err
		}
		logger.Info("artifact written", "path", path)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
