package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/solar-forecast-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/solar-forecast-etl/internal/adapter/kafka"
	"github.com/couchcryptid/solar-forecast-etl/internal/adapter/scoring"
	"github.com/couchcryptid/solar-forecast-etl/internal/config"
	"github.com/couchcryptid/solar-forecast-etl/internal/domain"
	"github.com/couchcryptid/solar-forecast-etl/internal/forecast"
	"github.com/couchcryptid/solar-forecast-etl/internal/observability"
	"github.com/couchcryptid/solar-forecast-etl/internal/pipeline"
	"github.com/couchcryptid/solar-forecast-etl/internal/training"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// The vocabulary is frozen at training time; without one, no weather
	// indicators are encoded.
	vocab := domain.NewVocabulary(nil)
	if cfg.VocabularyPath != "" {
		vocab, err = training.ReadVocabulary(cfg.VocabularyPath)
		if err != nil {
			logger.Error("failed to load vocabulary", "path", cfg.VocabularyPath, "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("VOCABULARY_PATH not set, encoding without weather indicators")
	}
	metrics.VocabularySize.Set(float64(vocab.Len()))
	logger.Info("vocabulary loaded", "categories", vocab.Len())

	seed := cfg.NoiseSeed
	if !cfg.NoiseSeedSet {
		seed = rand.Uint64()
	}
	var noise domain.Noise
	if cfg.NoiseStdDev > 0 {
		noise = domain.NewGaussianNoise(cfg.NoiseStdDev, seed)
	}
	labeler := domain.NewLabeler(domain.LabelConfig{
		BaseCapacityKW: cfg.BaseCapacityKW,
		ClampNegative:  cfg.ClampNegative,
	}, noise)
	logger.Info("labeler configured",
		"base_capacity_kw", cfg.BaseCapacityKW,
		"noise_stddev", cfg.NoiseStdDev,
		"noise_seed", seed,
		"clamp_negative", cfg.ClampNegative,
	)

	encoder := domain.NewEncoder(vocab)
	store := forecast.NewLatestStore()

	// Forecast model (feature-flagged via SCORING_ENABLED / SCORING_ENDPOINT_URL).
	var model forecast.Model = forecast.NewFormulaModel(cfg.BaseCapacityKW)
	if cfg.ScoringEnabled {
		client := scoring.NewClient(cfg.ScoringEndpointURL, cfg.ScoringAPIKey, cfg.ScoringTimeout, metrics, logger)
		model = scoring.NewCachedModel(client, cfg.ScoringCacheSize, metrics)
		metrics.ScoringEnabled.Set(1)
		logger.Info("remote scoring enabled", "cache_size", cfg.ScoringCacheSize, "timeout", cfg.ScoringTimeout)
	} else {
		logger.Info("remote scoring disabled, using formula model")
	}
	service := forecast.NewService(model, encoder, store, logger, forecast.WithMaxDays(cfg.ForecastMaxDays))

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(labeler, encoder, store, logger, metrics)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, service, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
