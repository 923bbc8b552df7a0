// Package metrics defines the Prometheus instrumentation for the risk
// prediction service and training pipeline. All metrics are created
// through promauto so registration happens at construction; tests use
// NewWithRegistry with an isolated registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus metric the process exposes.
type Metrics struct {
	// Prediction service metrics
	PredictionsTotal  prometheus.Counter   // Successful predictions served
	PredictionErrors  prometheus.Counter   // Predictions that failed after validation
	ValidationErrors  prometheus.Counter   // Requests rejected before reaching the model
	PredictionLatency prometheus.Histogram // End-to-end request latency in seconds
	RiskProbabilities prometheus.Histogram // Distribution of predicted probabilities
	AtRiskTotal       prometheus.Counter   // Predictions labelled at-risk
	ModelAge          prometheus.Gauge     // Age of the active model artifact in seconds

	// Training pipeline metrics
	TrainingRuns     prometheus.Counter // Completed training runs
	TrainingFailures prometheus.Counter // Aborted training runs
	RowsCleaned      prometheus.Counter // Raw rows successfully cleaned
	CleaningErrors   prometheus.Counter // Rows dropped or rejected during cleaning

	// System metrics
	ErrorsTotal prometheus.Counter // All errors encountered
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics against a custom registry, which
// keeps test runs isolated from the global state.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		PredictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of predictions served",
		}),
		PredictionErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_errors_total",
			Help: "Total number of predictions that failed after validation",
		}),
		ValidationErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "validation_errors_total",
			Help: "Total number of requests rejected by input validation",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "End-to-end prediction request latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}),
		RiskProbabilities: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "risk_probabilities",
			Help:    "Distribution of predicted risk probabilities",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		AtRiskTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "at_risk_predictions_total",
			Help: "Total number of predictions labelled at-risk",
		}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_age_seconds",
			Help: "Age of the active model artifact in seconds",
		}),
		TrainingRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "training_runs_total",
			Help: "Total number of completed training runs",
		}),
		TrainingFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "training_failures_total",
			Help: "Total number of aborted training runs",
		}),
		RowsCleaned: factory.NewCounter(prometheus.CounterOpts{
			Name: "rows_cleaned_total",
			Help: "Total number of raw rows successfully cleaned",
		}),
		CleaningErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "cleaning_errors_total",
			Help: "Total number of rows dropped or rejected during cleaning",
		}),
		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors encountered",
		}),
	}
}
