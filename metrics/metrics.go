// Package metrics exposes Prometheus instrumentation for training and
// prediction.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Prediction Metrics
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rent_predictions_total",
			Help: "Total number of prediction requests by model and outcome",
		},
		[]string{"model", "outcome"}, // outcome: ok, invalid_input, unavailable, invalid_output
	)

	PredictionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rent_prediction_duration_seconds",
			Help:    "Time spent producing a prediction, excluding comparables",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"model"},
	)

	PredictedRent = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rent_predicted_value",
			Help:    "Distribution of predicted monthly rents",
			Buckets: prometheus.ExponentialBuckets(1000, 2, 14),
		},
	)

	ModelReady = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rent_model_ready",
			Help: "1 when a model is loaded and predictions are served, 0 otherwise",
		},
	)

	// Comparables Metrics
	ComparablesLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rent_comparables_lookups_total",
			Help: "Total number of comparable-listing lookups by outcome",
		},
		[]string{"outcome"}, // ok, error, breaker_open
	)

	ComparablesReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rent_comparables_returned",
			Help:    "Number of comparable listings returned per lookup",
			Buckets: []float64{0, 1, 5, 10, 20, 30, 40, 50},
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rent_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rent_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Training Metrics
	TrainingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rent_training_runs_total",
			Help: "Total number of training runs by outcome",
		},
		[]string{"outcome"},
	)

	TrainingRowsDropped = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rent_training_rows_dropped",
			Help: "Rows dropped during cleaning in the last training run",
		},
	)
)

// RecordPrediction records one prediction attempt.
func RecordPrediction(model, outcome string, duration time.Duration, value float64) {
	PredictionsTotal.WithLabelValues(model, outcome).Inc()
	if outcome == "ok" {
		PredictionDuration.WithLabelValues(model).Observe(duration.Seconds())
		PredictedRent.Observe(value)
	}
}

// RecordComparables records one comparables lookup.
func RecordComparables(outcome string, n int) {
	ComparablesLookups.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		ComparablesReturned.Observe(float64(n))
	}
}

// SetModelReady flips the readiness gauge.
func SetModelReady(ready bool) {
	if ready {
		ModelReady.Set(1)
	} else {
		ModelReady.Set(0)
	}
}

// RecordAPIRequest records API request metrics.
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordTraining records the outcome of a training run.
func RecordTraining(err error, rowsDropped int) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	TrainingRuns.WithLabelValues(outcome).Inc()
	TrainingRowsDropped.Set(float64(rowsDropped))
}
