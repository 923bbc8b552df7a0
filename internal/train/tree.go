package train

import (
	"math/rand"
	"sort"
)

// TreeNode is one node of a regression tree. Every node carries the
// mean target of the samples that reached it, not just the leaves:
// local attributions walk the path and attribute the value change at
// each split to its split feature.
type TreeNode struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      *TreeNode `json:"left,omitempty"`
	Right     *TreeNode `json:"right,omitempty"`
	Value     float64   `json:"value"`
	Leaf      bool      `json:"leaf"`
}

// Predict routes a sample to its leaf and returns the leaf value.
func (n *TreeNode) Predict(x []float64) float64 {
	return n.leafFor(x).Value
}

func (n *TreeNode) leafFor(x []float64) *TreeNode {
	node := n
	for !node.Leaf {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node
}

// treeConfig bounds tree growth. maxFeatures < 1 means "consider all".
type treeConfig struct {
	maxDepth    int
	minLeaf     int
	maxFeatures int
}

// growTree fits a least-squares regression tree on targets[idx].
// Feature subsampling (for forests) draws from rng, which is the only
// source of randomness.
func growTree(x [][]float64, targets []float64, idx []int, cfg treeConfig, rng *rand.Rand, depth int) *TreeNode {
	node := &TreeNode{Value: meanAt(targets, idx), Feature: -1}

	if depth >= cfg.maxDepth || len(idx) < 2*cfg.minLeaf || pure(targets, idx) {
		node.Leaf = true
		return node
	}

	feature, threshold, ok := bestSplit(x, targets, idx, cfg, rng)
	if !ok {
		node.Leaf = true
		return node
	}

	var left, right []int
	for _, i := range idx {
		if x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < cfg.minLeaf || len(right) < cfg.minLeaf {
		node.Leaf = true
		return node
	}

	node.Feature = feature
	node.Threshold = threshold
	node.Left = growTree(x, targets, left, cfg, rng, depth+1)
	node.Right = growTree(x, targets, right, cfg, rng, depth+1)
	return node
}

// bestSplit scans a feature subset for the split with the largest
// squared-error reduction, trying midpoints between consecutive
// distinct values.
func bestSplit(x [][]float64, targets []float64, idx []int, cfg treeConfig, rng *rand.Rand) (feature int, threshold float64, ok bool) {
	nFeatures := len(x[idx[0]])
	features := candidateFeatures(nFeatures, cfg.maxFeatures, rng)

	bestGain := 0.0
	parentSSE := sseAt(targets, idx)

	type cell struct{ v, t float64 }
	cells := make([]cell, 0, len(idx))

	for _, f := range features {
		cells = cells[:0]
		for _, i := range idx {
			cells = append(cells, cell{x[i][f], targets[i]})
		}
		sort.Slice(cells, func(a, b int) bool { return cells[a].v < cells[b].v })

		// Prefix sums over the sorted order allow O(1) SSE per split.
		var sumL, sqL float64
		var sumR, sqR float64
		for _, c := range cells {
			sumR += c.t
			sqR += c.t * c.t
		}

		for i := 0; i < len(cells)-1; i++ {
			t := cells[i].t
			sumL += t
			sqL += t * t
			sumR -= t
			sqR -= t * t

			if cells[i].v == cells[i+1].v {
				continue
			}
			nL := float64(i + 1)
			nR := float64(len(cells) - i - 1)
			if int(nL) < cfg.minLeaf || int(nR) < cfg.minLeaf {
				continue
			}

			sse := (sqL - sumL*sumL/nL) + (sqR - sumR*sumR/nR)
			gain := parentSSE - sse
			if gain > bestGain {
				bestGain = gain
				feature = f
				threshold = (cells[i].v + cells[i+1].v) / 2
				ok = true
			}
		}
	}

	return feature, threshold, ok
}

// candidateFeatures picks the feature subset for one split. With no
// subsampling the full range comes back in order, keeping single-tree
// growth deterministic without consuming rng state.
func candidateFeatures(n, max int, rng *rand.Rand) []int {
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	if max < 1 || max >= n || rng == nil {
		return all
	}
	rng.Shuffle(n, func(i, j int) { all[i], all[j] = all[j], all[i] })
	sub := all[:max]
	sort.Ints(sub)
	return sub
}

func meanAt(targets []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	s := 0.0
	for _, i := range idx {
		s += targets[i]
	}
	return s / float64(len(idx))
}

func sseAt(targets []float64, idx []int) float64 {
	m := meanAt(targets, idx)
	s := 0.0
	for _, i := range idx {
		d := targets[i] - m
		s += d * d
	}
	return s
}

func pure(targets []float64, idx []int) bool {
	for _, i := range idx[1:] {
		if targets[i] != targets[idx[0]] {
			return false
		}
	}
	return true
}
