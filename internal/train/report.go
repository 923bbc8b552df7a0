package train

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// WriteReport writes a human-readable summary and a JSON metrics dump
// for one training run into dir.
func WriteReport(dir string, r *Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	stamp := r.StartedAt.Format("20060102-150405")

	if err := writeSummary(filepath.Join(dir, "training_report_"+stamp+".txt"), r); err != nil {
		return err
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run result: %w", err)
	}
	jsonPath := filepath.Join(dir, "training_metrics_"+stamp+".json")
	if err := os.WriteFile(jsonPath, data, 0o600); err != nil {
		return fmt.Errorf("write metrics json: %w", err)
	}

	return nil
}

func writeSummary(path string, r *Result) error {
	var b strings.Builder

	b.WriteString("MENTAL HEALTH RISK PREDICTION - TRAINING REPORT\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	fmt.Fprintf(&b, "Run ID:       %s\n", r.RunID)
	fmt.Fprintf(&b, "Started:      %s\n", r.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Duration:     %s\n", r.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "Seed:         %d\n", r.Seed)
	fmt.Fprintf(&b, "Train rows:   %d\n", r.TrainRows)
	fmt.Fprintf(&b, "Test rows:    %d\n", r.TestRows)
	fmt.Fprintf(&b, "Features:     %d\n", len(r.FeatureNames))
	fmt.Fprintf(&b, "Best model:   %s\n\n", r.BestKind)

	b.WriteString("CANDIDATES\n")
	b.WriteString(strings.Repeat("-", 60) + "\n")
	for _, c := range r.Candidates {
		marker := " "
		if c.Kind == r.BestKind {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %s (%s)\n", marker, c.Kind, c.Params)
		fmt.Fprintf(&b, "    cv F1:      %.4f (%d folds)\n", c.CVF1, c.CVFolds)
		fmt.Fprintf(&b, "    accuracy:   %.4f\n", c.Test.Accuracy)
		fmt.Fprintf(&b, "    precision:  %.4f\n", c.Test.Precision)
		fmt.Fprintf(&b, "    recall:     %.4f\n", c.Test.Recall)
		fmt.Fprintf(&b, "    F1:         %.4f\n", c.Test.F1)
		fmt.Fprintf(&b, "    ROC-AUC:    %.4f\n", c.Test.ROCAUC)
	}

	return os.WriteFile(path, []byte(b.String()), 0o600)
}
