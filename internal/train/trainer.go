package train

import (
	"fmt"
	"math/rand"
	"time"

	"mindrisk/internal/clean"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Config controls a training run.
type Config struct {
	Seed         int64
	TestFraction float64
	Folds        int
	Threshold    float64
}

// DefaultConfig mirrors the reference pipeline: 80/20 split, 5-fold CV,
// a 0.5 decision threshold and a fixed seed for reproducibility.
func DefaultConfig() Config {
	return Config{
		Seed:         42,
		TestFraction: 0.2,
		Folds:        5,
		Threshold:    0.5,
	}
}

// Candidate is one model family's outcome: the best grid point found
// by cross-validation and its held-out test metrics.
type Candidate struct {
	Kind    string  `json:"kind"`
	Params  Params  `json:"params"`
	CVF1    float64 `json:"cv_f1"`
	CVFolds int     `json:"cv_folds"`
	Test    Metrics `json:"test"`
}

// Result is a completed training run.
type Result struct {
	RunID        string      `json:"run_id"`
	StartedAt    time.Time   `json:"started_at"`
	Duration     time.Duration `json:"duration"`
	Seed         int64       `json:"seed"`
	TrainRows    int         `json:"train_rows"`
	TestRows     int         `json:"test_rows"`
	FeatureNames []string    `json:"feature_names"`
	Candidates   []Candidate `json:"candidates"`
	BestKind     string      `json:"best_kind"`
	BestMetrics  Metrics     `json:"best_metrics"`

	Model  Classifier    `json:"-"`
	Scaler *clean.Scaler `json:"-"`
}

// Train runs the full selection pipeline on a cleaned frame: stratified
// split, scaler fit on the training side only, per-family grid search
// with stratified CV, refit on the whole training split and final
// scoring on the held-out test set. Best model wins on test F1,
// accuracy breaking ties.
func Train(frame *clean.Frame, cfg Config) (*Result, error) {
	if cfg.Folds < 2 {
		return nil, fmt.Errorf("training needs at least 2 folds, got %d", cfg.Folds)
	}

	start := time.Now()
	rng := rand.New(rand.NewSource(cfg.Seed))

	trainX, testX, trainY, testY, err := TrainTestSplit(frame.X, frame.Y, cfg.TestFraction, rng)
	if err != nil {
		return nil, fmt.Errorf("split dataset: %w", err)
	}

	scaler, err := clean.FitScaler(trainX)
	if err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}
	trainX = scaler.Apply(trainX)
	testX = scaler.Apply(testX)

	folds, err := StratifiedKFold(trainY, cfg.Folds, rng)
	if err != nil {
		return nil, fmt.Errorf("build folds: %w", err)
	}

	result := &Result{
		RunID:        uuid.NewString(),
		StartedAt:    start,
		Seed:         cfg.Seed,
		TrainRows:    len(trainX),
		TestRows:     len(testX),
		FeatureNames: frame.FeatureNames,
		Scaler:       scaler,
	}

	var bestModel Classifier
	bestF1, bestAcc := -1.0, -1.0

	for _, kind := range Kinds {
		log.Info().Str("model", kind).Msg("training candidate")

		params, cvScore, cvFolds, err := gridSearch(kind, trainX, trainY, folds, cfg.Threshold, cfg.Seed)
		if err != nil {
			return nil, fmt.Errorf("grid search %s: %w", kind, err)
		}

		model, err := newModel(kind, params, cfg.Seed)
		if err != nil {
			return nil, err
		}
		if err := model.Fit(trainX, trainY); err != nil {
			return nil, fmt.Errorf("fit %s: %w", kind, err)
		}

		test := Evaluate(model, testX, testY, cfg.Threshold)
		result.Candidates = append(result.Candidates, Candidate{
			Kind:    kind,
			Params:  params,
			CVF1:    cvScore,
			CVFolds: cvFolds,
			Test:    test,
		})

		log.Info().
			Str("model", kind).
			Str("params", params.String()).
			Float64("cv_f1", cvScore).
			Float64("test_f1", test.F1).
			Float64("test_accuracy", test.Accuracy).
			Float64("test_roc_auc", test.ROCAUC).
			Msg("candidate evaluated")

		if test.F1 > bestF1 || (test.F1 == bestF1 && test.Accuracy > bestAcc) {
			bestF1 = test.F1
			bestAcc = test.Accuracy
			bestModel = model
			result.BestKind = kind
			result.BestMetrics = test
		}
	}

	if bestModel == nil {
		return nil, fmt.Errorf("no candidate model could be trained")
	}

	result.Model = bestModel
	result.Duration = time.Since(start)

	log.Info().
		Str("run_id", result.RunID).
		Str("best", result.BestKind).
		Float64("f1", result.BestMetrics.F1).
		Dur("elapsed", result.Duration).
		Msg("training run complete")

	return result, nil
}
