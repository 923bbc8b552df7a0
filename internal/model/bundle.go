// Package model persists trained classifiers together with everything
// inference needs to reproduce the training-time transform: the fitted
// cleaner, the scaler, the ordered feature-name list and the drift
// baseline. Artifacts are immutable once written and versioned by
// training run.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mindrisk/internal/clean"
	"mindrisk/internal/drift"
	"mindrisk/internal/train"
)

// ErrNotTrained is returned when the service asks for a model before
// any training run has produced an active artifact.
var ErrNotTrained = errors.New("no trained model artifact is available")

// Metadata describes one artifact version.
type Metadata struct {
	Version      string        `json:"version"`
	RunID        string        `json:"run_id"`
	Kind         string        `json:"kind"`
	TrainedAt    time.Time     `json:"trained_at"`
	Metrics      train.Metrics `json:"metrics"`
	TrainingRows int           `json:"training_rows"`
	Seed         int64         `json:"seed"`
	FeatureNames []string      `json:"feature_names"`
}

// Bundle is a complete, loaded artifact: the classifier plus the exact
// preprocessing state it was trained with. A loaded bundle is read-only
// and safe to share across request goroutines.
type Bundle struct {
	Meta     Metadata
	Model    train.Classifier
	Cleaner  *clean.Cleaner
	Scaler   *clean.Scaler
	Baseline *drift.Baseline
}

// modelEnvelope wraps a serialized classifier with its family tag so
// the concrete type can be reconstructed on load.
type modelEnvelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

func encodeModel(m train.Classifier) ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", m.Kind(), err)
	}
	return json.MarshalIndent(modelEnvelope{Kind: m.Kind(), Payload: payload}, "", "  ")
}

func decodeModel(data []byte) (train.Classifier, error) {
	var env modelEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse model envelope: %w", err)
	}

	switch env.Kind {
	case train.KindLogistic:
		m := &train.LogisticRegression{}
		if err := json.Unmarshal(env.Payload, m); err != nil {
			return nil, fmt.Errorf("parse logistic model: %w", err)
		}
		return m, nil
	case train.KindForest:
		m := &train.RandomForest{}
		if err := json.Unmarshal(env.Payload, m); err != nil {
			return nil, fmt.Errorf("parse forest model: %w", err)
		}
		return m, nil
	case train.KindBoost:
		m := &train.GradientBoosting{}
		if err := json.Unmarshal(env.Payload, m); err != nil {
			return nil, fmt.Errorf("parse boosting model: %w", err)
		}
		return m, nil
	}
	return nil, fmt.Errorf("unknown model kind %q", env.Kind)
}
