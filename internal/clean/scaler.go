package clean

import (
	"fmt"
	"math"
)

// Scaler standardizes feature vectors to zero mean and unit variance
// using statistics from the training split. It is persisted alongside
// the model so inference scales identically.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// FitScaler computes per-feature mean and standard deviation.
// Zero-variance features scale with std 1 so they pass through shifted
// but not blown up.
func FitScaler(x [][]float64) (*Scaler, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("cannot fit scaler on empty matrix")
	}

	n := len(x[0])
	mean := make([]float64, n)
	std := make([]float64, n)

	for _, row := range x {
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= float64(len(x))
	}

	for _, row := range x {
		for j, v := range row {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / float64(len(x)))
		if std[j] == 0 {
			std[j] = 1
		}
	}

	return &Scaler{Mean: mean, Std: std}, nil
}

// Apply returns a scaled copy of the matrix.
func (s *Scaler) Apply(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		out[i] = s.ApplyRow(row)
	}
	return out
}

// ApplyRow returns a scaled copy of one feature vector.
func (s *Scaler) ApplyRow(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out
}
