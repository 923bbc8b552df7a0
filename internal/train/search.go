package train

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
)

// Params is one hyperparameter assignment for a model family.
type Params map[string]float64

// String renders parameters with stable key order for logs and reports.
func (p Params) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s := ""
	for i, k := range keys {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%s=%g", k, p[k])
	}
	return s
}

// grids returns the hyperparameter grid per model family, kept small
// deliberately: wider searches buy little on a survey-sized dataset.
func grids(kind string) []Params {
	switch kind {
	case KindLogistic:
		return []Params{
			{"c": 0.1},
			{"c": 1},
			{"c": 10},
		}
	case KindForest:
		var out []Params
		for _, trees := range []float64{50, 100} {
			for _, depth := range []float64{5, 10} {
				out = append(out, Params{"trees": trees, "max_depth": depth})
			}
		}
		return out
	case KindBoost:
		var out []Params
		for _, rounds := range []float64{50, 100} {
			for _, depth := range []float64{3, 5} {
				out = append(out, Params{"rounds": rounds, "max_depth": depth, "learning_rate": 0.1})
			}
		}
		return out
	}
	return nil
}

// newModel constructs an unfitted model of the given family.
func newModel(kind string, p Params, seed int64) (trainable, error) {
	switch kind {
	case KindLogistic:
		return NewLogisticRegression(p["c"]), nil
	case KindForest:
		return NewRandomForest(int(p["trees"]), int(p["max_depth"]), 0, seed), nil
	case KindBoost:
		return NewGradientBoosting(int(p["rounds"]), int(p["max_depth"]), p["learning_rate"], seed), nil
	}
	return nil, fmt.Errorf("unknown model kind %q", kind)
}

// crossValidate scores one grid point by mean F1 over stratified folds.
// A fold whose training portion lacks one of the classes is skipped
// with a warning rather than failing the search; the returned count
// says how many folds actually contributed.
func crossValidate(kind string, p Params, x [][]float64, y []int, folds [][]int, threshold float64, seed int64) (float64, int, error) {
	total := 0.0
	used := 0

	for f, holdout := range folds {
		inFold := make(map[int]bool, len(holdout))
		for _, i := range holdout {
			inFold[i] = true
		}

		var trainX, testX [][]float64
		var trainY, testY []int
		for i := range x {
			if inFold[i] {
				testX = append(testX, x[i])
				testY = append(testY, y[i])
			} else {
				trainX = append(trainX, x[i])
				trainY = append(trainY, y[i])
			}
		}

		if singleClass(trainY) || len(testY) == 0 {
			log.Warn().
				Str("model", kind).
				Int("fold", f).
				Msg("fold skipped: training portion has a single class")
			continue
		}

		model, err := newModel(kind, p, seed+int64(f))
		if err != nil {
			return 0, 0, err
		}
		if err := model.Fit(trainX, trainY); err != nil {
			return 0, 0, err
		}

		preds := make([]int, len(testX))
		for i, row := range testX {
			if model.PredictProba(row) >= threshold {
				preds[i] = 1
			}
		}
		total += F1Score(preds, testY)
		used++
	}

	if used == 0 {
		return 0, 0, nil
	}
	return total / float64(used), used, nil
}

func singleClass(y []int) bool {
	for _, v := range y[1:] {
		if v != y[0] {
			return false
		}
	}
	return true
}

// gridSearch finds the best grid point for one model family by CV F1.
// Grid points with no usable folds are discarded.
func gridSearch(kind string, x [][]float64, y []int, folds [][]int, threshold float64, seed int64) (Params, float64, int, error) {
	var bestParams Params
	bestScore := -1.0
	bestFolds := 0

	for _, p := range grids(kind) {
		score, used, err := crossValidate(kind, p, x, y, folds, threshold, seed)
		if err != nil {
			return nil, 0, 0, err
		}
		if used == 0 {
			log.Warn().Str("model", kind).Str("params", p.String()).Msg("grid point discarded: no usable folds")
			continue
		}
		log.Debug().
			Str("model", kind).
			Str("params", p.String()).
			Float64("cv_f1", score).
			Int("folds", used).
			Msg("grid point scored")

		if score > bestScore {
			bestScore = score
			bestParams = p
			bestFolds = used
		}
	}

	if bestParams == nil {
		return nil, 0, 0, fmt.Errorf("%s: every grid point was discarded", kind)
	}
	return bestParams, bestScore, bestFolds, nil
}
