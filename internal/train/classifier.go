// Package train implements the offline model training pipeline:
// stratified splitting, cross-validated grid search over a set of
// classifier families, and evaluation on a held-out test set.
package train

import "math"

// Model kinds trained by the pipeline.
const (
	KindLogistic = "logistic_regression"
	KindForest   = "random_forest"
	KindBoost    = "gradient_boosting"
)

// Kinds lists the candidate model families in training order.
var Kinds = []string{KindLogistic, KindForest, KindBoost}

// Classifier is a fitted binary classifier.
type Classifier interface {
	// PredictProba returns the probability of the positive class.
	PredictProba(x []float64) float64
	// RawScore returns the additive output that local attributions
	// decompose: the log-odds margin for logistic and boosted models,
	// the averaged leaf probability for the forest.
	RawScore(x []float64) float64
	// Kind identifies the model family for serialization and
	// explainer dispatch.
	Kind() string
}

// trainable is a classifier that can be fitted in place.
type trainable interface {
	Classifier
	Fit(x [][]float64, y []int) error
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
