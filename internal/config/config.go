package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Feature pipeline.
	VocabularyPath string
	BaseCapacityKW float64
	NoiseStdDev    float64
	NoiseSeed      uint64
	NoiseSeedSet   bool
	ClampNegative  bool

	// Remote scoring endpoint. When disabled the formula model serves forecasts.
	ScoringEndpointURL string
	ScoringAPIKey      string
	ScoringEnabled     bool
	ScoringTimeout     time.Duration
	ScoringCacheSize   int

	ForecastMaxDays int
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is applied first when present; variables
// already set in the environment take precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var errs *multierror.Error

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	scoringTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("SCORING_TIMEOUT", "5s"))
	if err != nil || scoringTimeout <= 0 {
		errs = multierror.Append(errs, errors.New("invalid SCORING_TIMEOUT"))
	}

	baseCapacity, err := parsePositiveFloat("BASE_CAPACITY_KW", 100)
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	noiseStdDev, err := parseNonNegativeFloat("NOISE_STDDEV", 5)
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	var noiseSeed uint64
	seedStr := os.Getenv("NOISE_SEED")
	if seedStr != "" {
		noiseSeed, err = strconv.ParseUint(seedStr, 10, 64)
		if err != nil {
			errs = multierror.Append(errs, errors.New("invalid NOISE_SEED: must be an unsigned integer"))
		}
	}

	clampNegative, err := parseBool("CLAMP_NEGATIVE_ENERGY", false)
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	maxDays, err := parsePositiveInt("FORECAST_MAX_DAYS", 14)
	if err != nil {
		errs = multierror.Append(errs, err)
	}

	scoringEndpoint := os.Getenv("SCORING_ENDPOINT_URL")
	scoringEnabled := scoringEndpoint != ""
	if v := os.Getenv("SCORING_ENABLED"); v != "" {
		scoringEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-weather-observations"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "solar-feature-rows"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "solar-forecast-etl"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		VocabularyPath: os.Getenv("VOCABULARY_PATH"),
		BaseCapacityKW: baseCapacity,
		NoiseStdDev:    noiseStdDev,
		NoiseSeed:      noiseSeed,
		NoiseSeedSet:   seedStr != "",
		ClampNegative:  clampNegative,

		ScoringEndpointURL: scoringEndpoint,
		ScoringAPIKey:      os.Getenv("SCORING_API_KEY"),
		ScoringEnabled:     scoringEnabled,
		ScoringTimeout:     scoringTimeout,
		ScoringCacheSize:   parseScoringCacheSize(),

		ForecastMaxDays: maxDays,
	}

	if len(cfg.KafkaBrokers) == 0 {
		errs = multierror.Append(errs, errors.New("KAFKA_BROKERS is required"))
	}
	if cfg.KafkaSourceTopic == "" {
		errs = multierror.Append(errs, errors.New("KAFKA_SOURCE_TOPIC is required"))
	}
	if cfg.KafkaSinkTopic == "" {
		errs = multierror.Append(errs, errors.New("KAFKA_SINK_TOPIC is required"))
	}
	if cfg.ScoringEnabled && cfg.ScoringEndpointURL == "" {
		errs = multierror.Append(errs, errors.New("SCORING_ENABLED is true but SCORING_ENDPOINT_URL is not set"))
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseScoringCacheSize() int {
	if s := os.Getenv("SCORING_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

func parsePositiveFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive number", key)
	}
	return v, nil
}

func parseNonNegativeFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s: must be a non-negative number", key)
	}
	return v, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: must be true or false", key)
	}
	return v, nil
}
