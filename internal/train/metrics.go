package train

import "sort"

// Metrics holds the evaluation scores for one candidate model.
type Metrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	ROCAUC    float64 `json:"roc_auc"`
}

// Evaluate scores a fitted classifier on a labelled set. Labels are
// assigned by comparing the predicted probability against threshold.
func Evaluate(m Classifier, x [][]float64, y []int, threshold float64) Metrics {
	probs := make([]float64, len(x))
	preds := make([]int, len(x))
	for i, row := range x {
		probs[i] = m.PredictProba(row)
		if probs[i] >= threshold {
			preds[i] = 1
		}
	}

	return Metrics{
		Accuracy:  accuracy(preds, y),
		Precision: precision(preds, y),
		Recall:    recall(preds, y),
		F1:        F1Score(preds, y),
		ROCAUC:    rocAUC(probs, y),
	}
}

func confusion(preds, y []int) (tp, fp, tn, fn int) {
	for i, p := range preds {
		switch {
		case p == 1 && y[i] == 1:
			tp++
		case p == 1 && y[i] == 0:
			fp++
		case p == 0 && y[i] == 0:
			tn++
		default:
			fn++
		}
	}
	return
}

func accuracy(preds, y []int) float64 {
	if len(y) == 0 {
		return 0
	}
	tp, _, tn, _ := confusion(preds, y)
	return float64(tp+tn) / float64(len(y))
}

func precision(preds, y []int) float64 {
	tp, fp, _, _ := confusion(preds, y)
	if tp+fp == 0 {
		return 0
	}
	return float64(tp) / float64(tp+fp)
}

func recall(preds, y []int) float64 {
	tp, _, _, fn := confusion(preds, y)
	if tp+fn == 0 {
		return 0
	}
	return float64(tp) / float64(tp+fn)
}

// F1Score is the harmonic mean of precision and recall, the primary
// model-selection metric.
func F1Score(preds, y []int) float64 {
	p := precision(preds, y)
	r := recall(preds, y)
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// rocAUC computes the area under the ROC curve via the rank statistic,
// with tied scores assigned their average rank.
func rocAUC(probs []float64, y []int) float64 {
	type scored struct {
		p float64
		y int
	}
	items := make([]scored, len(probs))
	for i := range probs {
		items[i] = scored{probs[i], y[i]}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].p < items[j].p })

	var pos, neg int
	for _, it := range items {
		if it.y == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0.5
	}

	// Sum positive-class ranks, averaging ranks across ties.
	rankSum := 0.0
	i := 0
	for i < len(items) {
		j := i
		for j < len(items) && items[j].p == items[i].p {
			j++
		}
		avgRank := float64(i+j+1) / 2 // ranks are 1-based
		for k := i; k < j; k++ {
			if items[k].y == 1 {
				rankSum += avgRank
			}
		}
		i = j
	}

	u := rankSum - float64(pos)*float64(pos+1)/2
	return u / (float64(pos) * float64(neg))
}
