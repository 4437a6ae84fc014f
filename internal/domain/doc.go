// Package domain models solar-farm weather documents and the feature
// pipeline that turns them into a regression-ready table.
//
// # Data Source
//
// A collector polls the weather provider for every configured site and
// persists one JSON document per poll under "<location>/<date>/<time>.json".
// Each document pairs a flattened "current" block with the provider's raw
// 3-hourly forecast list:
//
//	{
//	  "timestamp": "2024-06-15T12:00:00Z",
//	  "location": "solar_farm_1",
//	  "current": {"temperature": 30, "clouds": 0, "wind_speed": 2, "weather_description": "clear sky"},
//	  "forecast": [{"dt": 1718463600, "main": {"temp": 28.1}, "clouds": {"all": 20},
//	                "wind": {"speed": 3.4}, "weather": [{"description": "few clouds"}]}]
//	}
//
// The two blocks use different time representations: the current block has
// an ISO-8601 string, forecast entries a Unix epoch. [Normalize] reconciles
// both to time.Time. Every measurement is optional; absent values are nulls
// (nil pointers) and never fail a batch. Timestamp and location are the join
// keys and are mandatory; a bad value fails the batch with a [ParseError].
//
// # Pipeline
//
//	Normalize -> Labeler.Label -> Encoder.Encode
//
// Each stage returns a new slice and never mutates its input.
//
// # Synthetic Labels
//
// There is no metered production data, so [Labeler] derives a proxy for a
// notional 100 kW installation:
//
//	energy = (100 - cloud) / 100 * (1 + (temperature - 25) * 0.005) * 100
//
// plus N(0, 5) noise. Hours outside 06:00-18:00 (in the timestamp's own
// zone) are forced to exactly 0. Negative daytime values caused by noise are
// kept unless LabelConfig.ClampNegative is set.
//
// # Features
//
// [Encoder] adds hour, day, month, year and day of week (Monday = 0), the
// cyclical pairs sin/cos(2*pi*hour/24) and sin/cos(2*pi*month/12), and a
// one-hot encoding of the weather description over a [Vocabulary] fitted
// once on the training corpus. Descriptions outside the vocabulary encode to
// all zeros so the inference vector width never changes:
//
//	[temperature, cloud_cover, wind_speed, hour_sin, hour_cos, month_sin, month_cos, weather_*...]
package domain
