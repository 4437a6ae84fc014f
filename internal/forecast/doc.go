// Package forecast serves hourly solar production forecasts for a site.
//
// A [Service] owns the prediction [Model] and the vocabulary fitted at
// training time. For every hour of the requested horizon it looks up the most
// recent provider forecast recorded for the site in a [LatestStore], falls back
// to default conditions when none covers the hour, builds the feature vector
// in training column order and asks the model for a prediction. Night hours are
// forced to zero and negative predictions are floored at zero.
package forecast
