package train

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// separableSet generates two well-separated clusters with a seeded
// generator: negatives around the origin, positives around (3, 3).
func separableSet(n int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	x := make([][]float64, n)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		cx, cy := 0.0, 0.0
		if i%2 == 1 {
			cx, cy = 3.0, 3.0
			y[i] = 1
		}
		x[i] = []float64{cx + rng.NormFloat64()*0.5, cy + rng.NormFloat64()*0.5}
	}
	return x, y
}

func TestLogisticRegression_Fit(t *testing.T) {
	x, y := separableSet(200, 1)

	m := NewLogisticRegression(1.0)
	require.NoError(t, m.Fit(x, y))

	metrics := Evaluate(m, x, y, 0.5)
	assert.Greater(t, metrics.Accuracy, 0.95)
	assert.Greater(t, metrics.ROCAUC, 0.98)
}

func TestLogisticRegression_FitEmpty(t *testing.T) {
	m := NewLogisticRegression(1.0)
	assert.Error(t, m.Fit(nil, nil))
}

func TestLogisticRegression_Deterministic(t *testing.T) {
	x, y := separableSet(100, 2)

	a := NewLogisticRegression(1.0)
	require.NoError(t, a.Fit(x, y))
	b := NewLogisticRegression(1.0)
	require.NoError(t, b.Fit(x, y))

	assert.Equal(t, a.Weights, b.Weights)
	assert.Equal(t, a.Bias, b.Bias)
}

func TestLogisticRegression_Regularization(t *testing.T) {
	x, y := separableSet(100, 3)

	strong := NewLogisticRegression(0.01)
	require.NoError(t, strong.Fit(x, y))
	weak := NewLogisticRegression(100)
	require.NoError(t, weak.Fit(x, y))

	// Stronger regularization (smaller C) shrinks the weights.
	assert.Less(t, norm(strong.Weights), norm(weak.Weights))
}

func TestLogisticRegression_ProbaRange(t *testing.T) {
	x, y := separableSet(100, 4)
	m := NewLogisticRegression(1.0)
	require.NoError(t, m.Fit(x, y))

	for _, row := range x {
		p := m.PredictProba(row)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestRandomForest_Fit(t *testing.T) {
	x, y := separableSet(200, 5)

	m := NewRandomForest(50, 5, 0, 42)
	require.NoError(t, m.Fit(x, y))
	require.Len(t, m.Trees, 50)

	metrics := Evaluate(m, x, y, 0.5)
	assert.Greater(t, metrics.Accuracy, 0.95)
}

func TestRandomForest_Deterministic(t *testing.T) {
	x, y := separableSet(120, 6)

	a := NewRandomForest(20, 5, 0, 42)
	require.NoError(t, a.Fit(x, y))
	b := NewRandomForest(20, 5, 0, 42)
	require.NoError(t, b.Fit(x, y))

	for i, row := range x {
		assert.Equal(t, a.PredictProba(row), b.PredictProba(row), "row %d", i)
	}
}

func TestRandomForest_SeedChangesModel(t *testing.T) {
	x, y := separableSet(120, 7)

	a := NewRandomForest(10, 4, 0, 1)
	require.NoError(t, a.Fit(x, y))
	b := NewRandomForest(10, 4, 0, 2)
	require.NoError(t, b.Fit(x, y))

	differs := false
	for _, row := range x {
		if a.PredictProba(row) != b.PredictProba(row) {
			differs = true
			break
		}
	}
	assert.True(t, differs, "different seeds should grow different forests")
}

func TestRandomForest_ProbaRange(t *testing.T) {
	x, y := separableSet(100, 8)
	m := NewRandomForest(20, 5, 0, 42)
	require.NoError(t, m.Fit(x, y))

	for _, row := range x {
		p := m.PredictProba(row)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestGradientBoosting_Fit(t *testing.T) {
	x, y := separableSet(200, 9)

	m := NewGradientBoosting(50, 3, 0.1, 42)
	require.NoError(t, m.Fit(x, y))
	require.Len(t, m.Trees, 50)

	metrics := Evaluate(m, x, y, 0.5)
	assert.Greater(t, metrics.Accuracy, 0.95)
}

func TestGradientBoosting_Deterministic(t *testing.T) {
	x, y := separableSet(120, 10)

	a := NewGradientBoosting(20, 3, 0.1, 42)
	require.NoError(t, a.Fit(x, y))
	b := NewGradientBoosting(20, 3, 0.1, 42)
	require.NoError(t, b.Fit(x, y))

	for i, row := range x {
		assert.Equal(t, a.PredictProba(row), b.PredictProba(row), "row %d", i)
	}
}

func TestGradientBoosting_InitScoreMatchesBaseRate(t *testing.T) {
	x, y := separableSet(100, 11)

	m := NewGradientBoosting(1, 2, 0.1, 42)
	require.NoError(t, m.Fit(x, y))

	// Half the labels are positive, so the initial log-odds are ~0.
	assert.InDelta(t, 0.0, m.InitScore, 1e-9)
}

func TestTreeNode_Predict(t *testing.T) {
	tree := &TreeNode{
		Feature:   0,
		Threshold: 1.0,
		Value:     0.5,
		Left:      &TreeNode{Leaf: true, Value: 0.2},
		Right:     &TreeNode{Leaf: true, Value: 0.8},
	}

	assert.Equal(t, 0.2, tree.Predict([]float64{0.5}))
	assert.Equal(t, 0.8, tree.Predict([]float64{1.5}))
	assert.Equal(t, 0.2, tree.Predict([]float64{1.0}), "boundary goes left")
}

func TestKinds(t *testing.T) {
	assert.Equal(t, KindLogistic, NewLogisticRegression(1).Kind())
	assert.Equal(t, KindForest, NewRandomForest(1, 1, 0, 1).Kind())
	assert.Equal(t, KindBoost, NewGradientBoosting(1, 1, 0.1, 1).Kind())
}

func norm(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x * x
	}
	return s
}
