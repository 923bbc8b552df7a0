package train

import "fmt"

// LogisticRegression is a binary logistic model fitted by full-batch
// gradient descent with L2 regularization. C is the inverse
// regularization strength, matching the usual convention.
type LogisticRegression struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
	C       float64   `json:"c"`
	Rate    float64   `json:"rate"`
	Epochs  int       `json:"epochs"`
}

// NewLogisticRegression returns an unfitted model with the given
// regularization setting.
func NewLogisticRegression(c float64) *LogisticRegression {
	return &LogisticRegression{
		C:      c,
		Rate:   0.1,
		Epochs: 500,
	}
}

// Fit trains the model. Fitting is deterministic: the optimizer starts
// from zero weights and takes a fixed number of full-batch steps.
func (m *LogisticRegression) Fit(x [][]float64, y []int) error {
	if len(x) == 0 {
		return fmt.Errorf("logistic regression: empty training set")
	}

	n := len(x)
	d := len(x[0])
	m.Weights = make([]float64, d)
	m.Bias = 0

	grad := make([]float64, d)
	for epoch := 0; epoch < m.Epochs; epoch++ {
		for j := range grad {
			grad[j] = 0
		}
		gradBias := 0.0

		for i, row := range x {
			err := sigmoid(m.RawScore(row)) - float64(y[i])
			for j, v := range row {
				grad[j] += err * v
			}
			gradBias += err
		}

		scale := 1.0 / float64(n)
		l2 := 1.0 / (m.C * float64(n))
		for j := range m.Weights {
			m.Weights[j] -= m.Rate * (grad[j]*scale + l2*m.Weights[j])
		}
		m.Bias -= m.Rate * gradBias * scale
	}

	return nil
}

// RawScore returns the log-odds margin.
func (m *LogisticRegression) RawScore(x []float64) float64 {
	z := m.Bias
	for j, w := range m.Weights {
		z += w * x[j]
	}
	return z
}

// PredictProba returns the positive-class probability.
func (m *LogisticRegression) PredictProba(x []float64) float64 {
	return sigmoid(m.RawScore(x))
}

// Kind identifies the model family.
func (m *LogisticRegression) Kind() string { return KindLogistic }
