package train

import (
	"fmt"
	"math/rand"
	"sort"
)

// TrainTestSplit splits the dataset with stratification on the label so
// both sides keep the class balance. The split is deterministic for a
// given rng seed.
func TrainTestSplit(x [][]float64, y []int, testFraction float64, rng *rand.Rand) (trainX, testX [][]float64, trainY, testY []int, err error) {
	if len(x) != len(y) {
		return nil, nil, nil, nil, fmt.Errorf("feature rows (%d) and labels (%d) differ", len(x), len(y))
	}
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, nil, nil, fmt.Errorf("test fraction must be in (0, 1), got %f", testFraction)
	}

	classes, byClass := classIndices(y)
	for _, class := range classes {
		idx := byClass[class]
		shuffle(idx, rng)
		nTest := int(float64(len(idx)) * testFraction)
		if nTest == 0 && len(idx) > 1 {
			nTest = 1
		}
		if nTest == len(idx) {
			return nil, nil, nil, nil, fmt.Errorf("class %d has too few samples to split", class)
		}

		for i, j := range idx {
			if i < nTest {
				testX = append(testX, x[j])
				testY = append(testY, y[j])
			} else {
				trainX = append(trainX, x[j])
				trainY = append(trainY, y[j])
			}
		}
	}

	return trainX, testX, trainY, testY, nil
}

// StratifiedKFold assigns every sample to one of k folds, keeping the
// class balance per fold. Returns the held-out index set per fold.
func StratifiedKFold(y []int, k int, rng *rand.Rand) ([][]int, error) {
	if k < 2 {
		return nil, fmt.Errorf("fold count must be at least 2, got %d", k)
	}
	if k > len(y) {
		return nil, fmt.Errorf("fold count %d exceeds sample count %d", k, len(y))
	}

	folds := make([][]int, k)
	classes, byClass := classIndices(y)
	for _, class := range classes {
		idx := byClass[class]
		shuffle(idx, rng)
		for i, j := range idx {
			f := i % k
			folds[f] = append(folds[f], j)
		}
	}

	return folds, nil
}

// classIndices groups sample indices by label. Classes come back
// sorted so rng consumption order is stable across runs.
func classIndices(y []int) ([]int, map[int][]int) {
	byClass := make(map[int][]int)
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	return classes, byClass
}

func shuffle(idx []int, rng *rand.Rand) {
	rng.Shuffle(len(idx), func(i, j int) {
		idx[i], idx[j] = idx[j], idx[i]
	})
}
