package train

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClassifier returns preset probabilities keyed by the first
// feature value, for exercising Evaluate without fitting anything.
type fixedClassifier struct {
	probs map[float64]float64
}

func (f *fixedClassifier) PredictProba(x []float64) float64 { return f.probs[x[0]] }
func (f *fixedClassifier) RawScore(x []float64) float64     { return f.probs[x[0]] }
func (f *fixedClassifier) Kind() string                     { return "fixed" }

func TestConfusion(t *testing.T) {
	preds := []int{1, 1, 0, 0, 1, 0}
	y := []int{1, 0, 0, 1, 1, 0}

	tp, fp, tn, fn := confusion(preds, y)
	assert.Equal(t, 2, tp)
	assert.Equal(t, 1, fp)
	assert.Equal(t, 2, tn)
	assert.Equal(t, 1, fn)
}

func TestMetricsOnKnownConfusion(t *testing.T) {
	// tp=2 fp=1 tn=2 fn=1
	preds := []int{1, 1, 0, 0, 1, 0}
	y := []int{1, 0, 0, 1, 1, 0}

	assert.InDelta(t, 4.0/6.0, accuracy(preds, y), 1e-9)
	assert.InDelta(t, 2.0/3.0, precision(preds, y), 1e-9)
	assert.InDelta(t, 2.0/3.0, recall(preds, y), 1e-9)
	assert.InDelta(t, 2.0/3.0, F1Score(preds, y), 1e-9)
}

func TestMetrics_PerfectPrediction(t *testing.T) {
	preds := []int{1, 0, 1, 0}
	y := []int{1, 0, 1, 0}

	assert.Equal(t, 1.0, accuracy(preds, y))
	assert.Equal(t, 1.0, precision(preds, y))
	assert.Equal(t, 1.0, recall(preds, y))
	assert.Equal(t, 1.0, F1Score(preds, y))
}

func TestMetrics_DegenerateCases(t *testing.T) {
	// No positive predictions: precision and F1 are 0 by convention.
	preds := []int{0, 0, 0}
	y := []int{1, 0, 1}
	assert.Equal(t, 0.0, precision(preds, y))
	assert.Equal(t, 0.0, F1Score(preds, y))

	// No positive labels: recall is 0.
	y = []int{0, 0, 0}
	assert.Equal(t, 0.0, recall(preds, y))

	assert.Equal(t, 0.0, accuracy(nil, nil))
}

func TestROCAUC_PerfectSeparation(t *testing.T) {
	probs := []float64{0.1, 0.2, 0.8, 0.9}
	y := []int{0, 0, 1, 1}
	assert.InDelta(t, 1.0, rocAUC(probs, y), 1e-9)
}

func TestROCAUC_Inverted(t *testing.T) {
	probs := []float64{0.9, 0.8, 0.2, 0.1}
	y := []int{0, 0, 1, 1}
	assert.InDelta(t, 0.0, rocAUC(probs, y), 1e-9)
}

func TestROCAUC_Random(t *testing.T) {
	// Identical scores carry no ranking information.
	probs := []float64{0.5, 0.5, 0.5, 0.5}
	y := []int{0, 1, 0, 1}
	assert.InDelta(t, 0.5, rocAUC(probs, y), 1e-9)
}

func TestROCAUC_SingleClass(t *testing.T) {
	probs := []float64{0.1, 0.9}
	assert.Equal(t, 0.5, rocAUC(probs, []int{1, 1}))
	assert.Equal(t, 0.5, rocAUC(probs, []int{0, 0}))
}

func TestROCAUC_Ties(t *testing.T) {
	// One positive tied with one negative at 0.5, one clean pair.
	probs := []float64{0.1, 0.5, 0.5, 0.9}
	y := []int{0, 0, 1, 1}
	// Pairs: (0.5 vs 0.1)=1, (0.5 vs 0.5)=0.5, (0.9 vs 0.1)=1,
	// (0.9 vs 0.5)=1 over 4 pairs.
	assert.InDelta(t, 3.5/4.0, rocAUC(probs, y), 1e-9)
}

func TestEvaluate(t *testing.T) {
	m := &fixedClassifier{probs: map[float64]float64{
		1: 0.9,
		2: 0.6,
		3: 0.4,
		4: 0.1,
	}}
	x := [][]float64{{1}, {2}, {3}, {4}}
	y := []int{1, 0, 1, 0}

	got := Evaluate(m, x, y, 0.5)

	// Predictions at 0.5: 1,1,0,0 against labels 1,0,1,0.
	assert.InDelta(t, 0.5, got.Accuracy, 1e-9)
	assert.InDelta(t, 0.5, got.Precision, 1e-9)
	assert.InDelta(t, 0.5, got.Recall, 1e-9)
	assert.InDelta(t, 0.5, got.F1, 1e-9)
	// Ranking: positives at 0.9 and 0.4 against negatives 0.6 and 0.1.
	assert.InDelta(t, 0.75, got.ROCAUC, 1e-9)
}

func TestEvaluate_ThresholdBoundary(t *testing.T) {
	m := &fixedClassifier{probs: map[float64]float64{1: 0.5}}
	got := Evaluate(m, [][]float64{{1}}, []int{1}, 0.5)
	require.Equal(t, 1.0, got.Recall, "probability equal to threshold counts as positive")
}
