package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/solar-forecast-etl/internal/domain"
	"github.com/couchcryptid/solar-forecast-etl/internal/observability"
)

// ForecastRecorder receives the forecast rows of every transformed document.
// forecast.LatestStore implements it.
type ForecastRecorder interface {
	Record(rows []domain.WeatherObservation)
}

// FeatureTransformer implements Transformer with the normalize, label and
// encode stages.
type FeatureTransformer struct {
	labeler  *domain.Labeler
	encoder  *domain.Encoder
	recorder ForecastRecorder
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewTransformer creates a FeatureTransformer. Pass a nil recorder to skip
// recording forecast rows.
func NewTransformer(labeler *domain.Labeler, encoder *domain.Encoder, recorder ForecastRecorder, logger *slog.Logger, metrics *observability.Metrics) *FeatureTransformer {
	return &FeatureTransformer{
		labeler:  labeler,
		encoder:  encoder,
		recorder: recorder,
		logger:   logger,
		metrics:  metrics,
	}
}

// Transform decodes the message as one or more documents and returns one
// record per observation: labeled current rows first, then unlabeled forecast rows.
func (t *FeatureTransformer) Transform(_ context.Context, raw domain.RawEvent) ([]domain.FeatureRecord, error) {
	docs, err := domain.DecodeDocuments(raw.Value)
	if err != nil {
		return nil, err
	}

	rows, err := domain.Normalize(docs)
	if err != nil {
		return nil, err
	}

	observed, forecast := domain.SplitForecast(rows)
	labeled, stats := t.labeler.LabelWithStats(observed)
	t.metrics.ObserveLabelStats(stats.Labeled, stats.Masked, stats.Null, stats.Negative, stats.Clamped)

	t.countUnseen(rows)

	encoded := t.encoder.Encode(labeled)
	encoded = append(encoded, t.encoder.Encode(domain.Unlabeled(forecast))...)

	if t.recorder != nil && len(forecast) > 0 {
		t.recorder.Record(forecast)
	}

	t.logger.Debug("document transformed",
		"documents", len(docs),
		"observed", len(observed),
		"forecast", len(forecast),
		"masked", stats.Masked,
		"offset", raw.Offset,
	)

	return domain.NewFeatureRecords(encoded, t.encoder.Columns()), nil
}

func (t *FeatureTransformer) countUnseen(rows []domain.WeatherObservation) {
	for i := range rows {
		desc := rows[i].WeatherDescription
		if desc != nil && !t.encoder.Known(desc) {
			t.metrics.UnseenCategories.Inc()
			t.logger.Debug("weather description outside vocabulary",
				"description", *desc,
				"location", rows[i].Location,
			)
		}
	}
}
