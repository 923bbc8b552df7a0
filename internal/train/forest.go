package train

import (
	"fmt"
	"math"
	"math/rand"
)

// RandomForest is a bagged ensemble of regression trees over 0/1
// targets; each tree's leaf value is the positive-class fraction of
// its bootstrap sample, and the forest prediction is the tree average.
type RandomForest struct {
	Trees       []*TreeNode `json:"trees"`
	NumTrees    int         `json:"num_trees"`
	MaxDepth    int         `json:"max_depth"`
	MinLeaf     int         `json:"min_leaf"`
	MaxFeatures int         `json:"max_features"`
	Seed        int64       `json:"seed"`
}

// NewRandomForest returns an unfitted forest. maxFeatures 0 selects
// sqrt(d) at fit time.
func NewRandomForest(numTrees, maxDepth, maxFeatures int, seed int64) *RandomForest {
	return &RandomForest{
		NumTrees:    numTrees,
		MaxDepth:    maxDepth,
		MinLeaf:     2,
		MaxFeatures: maxFeatures,
		Seed:        seed,
	}
}

// Fit grows the ensemble. All randomness (bootstrap draws, feature
// subsampling) derives from the stored seed.
func (m *RandomForest) Fit(x [][]float64, y []int) error {
	if len(x) == 0 {
		return fmt.Errorf("random forest: empty training set")
	}

	maxFeatures := m.MaxFeatures
	if maxFeatures < 1 {
		maxFeatures = int(math.Sqrt(float64(len(x[0]))))
		if maxFeatures < 1 {
			maxFeatures = 1
		}
	}

	targets := make([]float64, len(y))
	for i, label := range y {
		targets[i] = float64(label)
	}

	rng := rand.New(rand.NewSource(m.Seed))
	cfg := treeConfig{maxDepth: m.MaxDepth, minLeaf: m.MinLeaf, maxFeatures: maxFeatures}

	m.Trees = make([]*TreeNode, m.NumTrees)
	for t := 0; t < m.NumTrees; t++ {
		idx := make([]int, len(x))
		for i := range idx {
			idx[i] = rng.Intn(len(x))
		}
		m.Trees[t] = growTree(x, targets, idx, cfg, rng, 0)
	}

	return nil
}

// PredictProba averages the leaf values across trees.
func (m *RandomForest) PredictProba(x []float64) float64 {
	if len(m.Trees) == 0 {
		return 0
	}
	s := 0.0
	for _, tree := range m.Trees {
		s += tree.Predict(x)
	}
	p := s / float64(len(m.Trees))
	return math.Min(1, math.Max(0, p))
}

// RawScore for a forest is the probability itself: leaf values are
// already class fractions, so the additive decomposition lives in
// probability space.
func (m *RandomForest) RawScore(x []float64) float64 {
	return m.PredictProba(x)
}

// Kind identifies the model family.
func (m *RandomForest) Kind() string { return KindForest }
