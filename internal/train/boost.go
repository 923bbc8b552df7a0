package train

import (
	"fmt"
	"math"
	"math/rand"
)

// GradientBoosting fits shallow regression trees to the log-loss
// gradient, stage by stage. Leaf values take a Newton step (gradient
// over hessian) and are stored pre-scaled by the learning rate, so
// the raw score is simply the initial log-odds plus the tree outputs.
type GradientBoosting struct {
	Trees        []*TreeNode `json:"trees"`
	InitScore    float64     `json:"init_score"`
	LearningRate float64     `json:"learning_rate"`
	NumRounds    int         `json:"num_rounds"`
	MaxDepth     int         `json:"max_depth"`
	MinLeaf      int         `json:"min_leaf"`
	Subsample    float64     `json:"subsample"`
	Seed         int64       `json:"seed"`
}

// NewGradientBoosting returns an unfitted booster.
func NewGradientBoosting(rounds, maxDepth int, learningRate float64, seed int64) *GradientBoosting {
	return &GradientBoosting{
		NumRounds:    rounds,
		MaxDepth:     maxDepth,
		MinLeaf:      2,
		LearningRate: learningRate,
		Subsample:    0.9,
		Seed:         seed,
	}
}

// Fit trains the ensemble. Row subsampling per round draws from the
// stored seed, so identical data and seed reproduce the model exactly.
func (m *GradientBoosting) Fit(x [][]float64, y []int) error {
	if len(x) == 0 {
		return fmt.Errorf("gradient boosting: empty training set")
	}

	pos := 0
	for _, label := range y {
		pos += label
	}
	base := float64(pos) / float64(len(y))
	// Clamp so a degenerate training set keeps a finite init score.
	base = math.Min(1-1e-6, math.Max(1e-6, base))
	m.InitScore = math.Log(base / (1 - base))

	rng := rand.New(rand.NewSource(m.Seed))
	cfg := treeConfig{maxDepth: m.MaxDepth, minLeaf: m.MinLeaf}

	scores := make([]float64, len(x))
	for i := range scores {
		scores[i] = m.InitScore
	}

	residuals := make([]float64, len(x))
	m.Trees = make([]*TreeNode, 0, m.NumRounds)

	for round := 0; round < m.NumRounds; round++ {
		for i := range x {
			residuals[i] = float64(y[i]) - sigmoid(scores[i])
		}

		idx := m.sampleRows(len(x), rng)
		tree := growTree(x, residuals, idx, cfg, rng, 0)
		m.newtonLeaves(tree, x, y, scores, idx)
		m.Trees = append(m.Trees, tree)

		for i, row := range x {
			scores[i] += tree.Predict(row)
		}
	}

	return nil
}

// newtonLeaves replaces each leaf's mean-residual value with the
// learning-rate-scaled Newton step and scales internal node values to
// match. Path attributions telescope through node values, so scaling
// everything by the learning rate keeps the decomposition exact.
func (m *GradientBoosting) newtonLeaves(tree *TreeNode, x [][]float64, y []int, scores []float64, idx []int) {
	type sums struct{ grad, hess float64 }
	leafSums := make(map[*TreeNode]*sums)

	for _, i := range idx {
		leaf := tree.leafFor(x[i])
		s, ok := leafSums[leaf]
		if !ok {
			s = &sums{}
			leafSums[leaf] = s
		}
		p := sigmoid(scores[i])
		s.grad += float64(y[i]) - p
		s.hess += p * (1 - p)
	}

	scaleNodes(tree, m.LearningRate)
	for leaf, s := range leafSums {
		if s.hess > 1e-12 {
			leaf.Value = m.LearningRate * s.grad / s.hess
		}
	}
}

func scaleNodes(n *TreeNode, factor float64) {
	if n == nil {
		return
	}
	n.Value *= factor
	scaleNodes(n.Left, factor)
	scaleNodes(n.Right, factor)
}

func (m *GradientBoosting) sampleRows(n int, rng *rand.Rand) []int {
	take := int(m.Subsample * float64(n))
	if take < 1 || take > n {
		take = n
	}
	perm := rng.Perm(n)
	idx := perm[:take]
	return idx
}

// RawScore returns the log-odds margin.
func (m *GradientBoosting) RawScore(x []float64) float64 {
	z := m.InitScore
	for _, tree := range m.Trees {
		z += tree.Predict(x)
	}
	return z
}

// PredictProba returns the positive-class probability.
func (m *GradientBoosting) PredictProba(x []float64) float64 {
	return sigmoid(m.RawScore(x))
}

// Kind identifies the model family.
func (m *GradientBoosting) Kind() string { return KindBoost }
