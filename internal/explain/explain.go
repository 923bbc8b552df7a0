// Package explain computes additive per-feature attributions for the
// trained classifiers. The defining invariant: for any input, the base
// value plus the sum of the feature contributions equals the model's
// raw score exactly (up to float rounding). Linear models decompose in
// log-odds space against reference means; tree ensembles decompose
// along decision paths.
package explain

import (
	"fmt"
	"sort"

	"mindrisk/internal/train"
)

// Attribution is the local explanation of one prediction.
type Attribution struct {
	Base          float64            `json:"base"`
	Contributions map[string]float64 `json:"contributions"`
}

// FeatureImportance is one entry of a global ranking.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Explainer produces local and global attributions for one model.
type Explainer struct {
	model        train.Classifier
	featureNames []string
	refMean      []float64
}

// New builds an explainer. refX is the (scaled) reference matrix the
// linear decomposition centers on; tree models ignore it for local
// attributions but use it for the global ranking.
func New(m train.Classifier, featureNames []string, refX [][]float64) (*Explainer, error) {
	if len(refX) == 0 {
		return nil, fmt.Errorf("explainer needs a non-empty reference set")
	}
	if len(refX[0]) != len(featureNames) {
		return nil, fmt.Errorf("reference width %d does not match %d feature names", len(refX[0]), len(featureNames))
	}

	mean := make([]float64, len(featureNames))
	for _, row := range refX {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(len(refX))
	}

	return &Explainer{model: m, featureNames: featureNames, refMean: mean}, nil
}

// Local decomposes one prediction into per-feature contributions.
func (e *Explainer) Local(x []float64) (*Attribution, error) {
	if len(x) != len(e.featureNames) {
		return nil, fmt.Errorf("expected %d features, got %d", len(e.featureNames), len(x))
	}

	switch m := e.model.(type) {
	case *train.LogisticRegression:
		return e.linearLocal(m, x), nil
	case *train.RandomForest:
		base, contribs := forestPath(m, x)
		return e.attribution(base, contribs), nil
	case *train.GradientBoosting:
		base, contribs := boostPath(m, x)
		return e.attribution(base, contribs), nil
	}
	return nil, fmt.Errorf("no explainer for model kind %q", e.model.Kind())
}

// Global ranks features by mean absolute contribution over a reference
// matrix, largest first.
func (e *Explainer) Global(refX [][]float64) ([]FeatureImportance, error) {
	agg := make([]float64, len(e.featureNames))
	for _, row := range refX {
		attr, err := e.Local(row)
		if err != nil {
			return nil, err
		}
		for j, name := range e.featureNames {
			c := attr.Contributions[name]
			if c < 0 {
				c = -c
			}
			agg[j] += c
		}
	}

	out := make([]FeatureImportance, len(e.featureNames))
	for j, name := range e.featureNames {
		out[j] = FeatureImportance{Feature: name, Importance: agg[j] / float64(len(refX))}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	return out, nil
}

// TopK returns the k contributions with the largest magnitude.
func (a *Attribution) TopK(k int) []FeatureImportance {
	out := make([]FeatureImportance, 0, len(a.Contributions))
	for f, c := range a.Contributions {
		out = append(out, FeatureImportance{Feature: f, Importance: c})
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := abs(out[i].Importance), abs(out[j].Importance)
		if ai != aj {
			return ai > aj
		}
		return out[i].Feature < out[j].Feature
	})
	if k > 0 && k < len(out) {
		out = out[:k]
	}
	return out
}

// linearLocal: contribution_j = w_j * (x_j - mu_j), base = bias + w.mu,
// so base + sum(contribs) = bias + w.x = RawScore(x).
func (e *Explainer) linearLocal(m *train.LogisticRegression, x []float64) *Attribution {
	base := m.Bias
	contribs := make([]float64, len(x))
	for j, w := range m.Weights {
		base += w * e.refMean[j]
		contribs[j] = w * (x[j] - e.refMean[j])
	}
	return e.attribution(base, contribs)
}

// treePath walks one tree and attributes each split's value change to
// its split feature. The telescoping sum makes root value plus all
// contributions equal the leaf value exactly.
func treePath(root *train.TreeNode, x []float64, contribs []float64, scale float64) float64 {
	node := root
	for !node.Leaf {
		var next *train.TreeNode
		if x[node.Feature] <= node.Threshold {
			next = node.Left
		} else {
			next = node.Right
		}
		contribs[node.Feature] += scale * (next.Value - node.Value)
		node = next
	}
	return root.Value
}

func forestPath(m *train.RandomForest, x []float64) (float64, []float64) {
	contribs := make([]float64, len(x))
	base := 0.0
	scale := 1.0 / float64(len(m.Trees))
	for _, tree := range m.Trees {
		base += scale * treePath(tree, x, contribs, scale)
	}
	return base, contribs
}

func boostPath(m *train.GradientBoosting, x []float64) (float64, []float64) {
	contribs := make([]float64, len(x))
	base := m.InitScore
	for _, tree := range m.Trees {
		base += treePath(tree, x, contribs, 1)
	}
	return base, contribs
}

func (e *Explainer) attribution(base float64, contribs []float64) *Attribution {
	out := &Attribution{Base: base, Contributions: make(map[string]float64, len(contribs))}
	for j, name := range e.featureNames {
		out.Contributions[name] = contribs[j]
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
