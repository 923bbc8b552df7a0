package model

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindrisk/internal/clean"
	"mindrisk/internal/drift"
	"mindrisk/internal/train"
)

func fittedSet(seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	x := make([][]float64, 60)
	y := make([]int, 60)
	for i := range x {
		off := 0.0
		if i%2 == 1 {
			off = 3.0
			y[i] = 1
		}
		x[i] = []float64{off + rng.NormFloat64()*0.5, off + rng.NormFloat64()*0.5}
	}
	return x, y
}

func testBundle(t *testing.T, m train.Classifier, trainedAt time.Time) *Bundle {
	t.Helper()
	names := []string{"feature_a", "feature_b"}
	return &Bundle{
		Meta: Metadata{
			RunID:        "run-" + trainedAt.Format("150405.000"),
			Kind:         m.Kind(),
			TrainedAt:    trainedAt,
			TrainingRows: 60,
			Seed:         42,
			FeatureNames: names,
		},
		Model: m,
		Cleaner: &clean.Cleaner{
			Encoders:  map[string]*clean.Encoder{"Gender": {Classes: []string{"Female", "Male"}, Default: 0}},
			AgeMedian: 31,
			Fitted:    true,
		},
		Scaler:   &clean.Scaler{Mean: []float64{1, 1}, Std: []float64{2, 2}},
		Baseline: drift.FitBaseline(names, [][]float64{{0, 0}, {1, 1}, {2, 2}}),
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	x, y := fittedSet(1)

	fit := map[string]func() train.Classifier{
		train.KindLogistic: func() train.Classifier {
			m := train.NewLogisticRegression(1.0)
			require.NoError(t, m.Fit(x, y))
			return m
		},
		train.KindForest: func() train.Classifier {
			m := train.NewRandomForest(20, 5, 0, 42)
			require.NoError(t, m.Fit(x, y))
			return m
		},
		train.KindBoost: func() train.Classifier {
			m := train.NewGradientBoosting(20, 3, 0.1, 42)
			require.NoError(t, m.Fit(x, y))
			return m
		},
	}

	for kind, build := range fit {
		t.Run(kind, func(t *testing.T) {
			mgr, err := NewManager(t.TempDir())
			require.NoError(t, err)

			orig := build()
			b := testBundle(t, orig, time.Now())

			version, err := mgr.Save(b)
			require.NoError(t, err)

			loaded, err := mgr.Load(version)
			require.NoError(t, err)
			assert.Equal(t, kind, loaded.Model.Kind())

			for _, row := range x[:10] {
				assert.InDelta(t, orig.PredictProba(row), loaded.Model.PredictProba(row), 1e-12)
				assert.InDelta(t, orig.RawScore(row), loaded.Model.RawScore(row), 1e-12)
			}
		})
	}
}

func TestSaveLoad_PreservesPreprocessing(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	b := testBundle(t, &train.LogisticRegression{Weights: []float64{1, 2}, Bias: 0.5}, time.Now())
	version, err := mgr.Save(b)
	require.NoError(t, err)

	loaded, err := mgr.Load(version)
	require.NoError(t, err)

	assert.Equal(t, b.Cleaner.AgeMedian, loaded.Cleaner.AgeMedian)
	assert.True(t, loaded.Cleaner.Fitted)
	assert.Equal(t, b.Cleaner.Encoders["Gender"].Classes, loaded.Cleaner.Encoders["Gender"].Classes)
	assert.Equal(t, b.Scaler.Mean, loaded.Scaler.Mean)
	assert.Equal(t, b.Scaler.Std, loaded.Scaler.Std)
	assert.Equal(t, b.Baseline.FeatureNames, loaded.Baseline.FeatureNames)
	assert.Equal(t, b.Baseline.Mean, loaded.Baseline.Mean)
	assert.Equal(t, b.Meta.FeatureNames, loaded.Meta.FeatureNames)
	assert.Equal(t, version, loaded.Meta.Version)
}

func TestSave_SetsVersionAndActivates(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	b := testBundle(t, &train.LogisticRegression{Weights: []float64{1, 2}}, time.Now())
	version, err := mgr.Save(b)
	require.NoError(t, err)

	assert.Equal(t, version, b.Meta.Version)

	active, err := mgr.Active()
	require.NoError(t, err)
	assert.Equal(t, version, active.Version)
	assert.True(t, active.IsActive)
}

func TestSave_WritesFeatureList(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(dir)
	require.NoError(t, err)

	b := testBundle(t, &train.LogisticRegression{Weights: []float64{1, 2}}, time.Now())
	version, err := mgr.Save(b)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "features-"+version+".txt"))
	require.NoError(t, err)
	assert.Equal(t, "feature_a\nfeature_b\n", string(data))
}

func TestActive_NotTrained(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	_, err = mgr.Active()
	assert.ErrorIs(t, err, ErrNotTrained)

	_, err = mgr.LoadActive()
	assert.ErrorIs(t, err, ErrNotTrained)
}

func TestActivate_UnknownVersion(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, mgr.Activate("no-such-version"))
}

func TestRollback(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	now := time.Now()
	b1 := testBundle(t, &train.LogisticRegression{Weights: []float64{1, 2}}, now.Add(-time.Hour))
	v1, err := mgr.Save(b1)
	require.NoError(t, err)

	b2 := testBundle(t, &train.LogisticRegression{Weights: []float64{3, 4}}, now)
	v2, err := mgr.Save(b2)
	require.NoError(t, err)
	require.NotEqual(t, v1, v2)

	active, err := mgr.Active()
	require.NoError(t, err)
	require.Equal(t, v2, active.Version)

	require.NoError(t, mgr.Rollback())

	active, err = mgr.Active()
	require.NoError(t, err)
	assert.Equal(t, v1, active.Version)
}

func TestRollback_SingleVersion(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	b := testBundle(t, &train.LogisticRegression{Weights: []float64{1, 2}}, time.Now())
	_, err = mgr.Save(b)
	require.NoError(t, err)

	assert.Error(t, mgr.Rollback())
}

func TestVersions_NewestFirst(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	now := time.Now()
	older, err := mgr.Save(testBundle(t, &train.LogisticRegression{Weights: []float64{1, 2}}, now.Add(-time.Hour)))
	require.NoError(t, err)
	newer, err := mgr.Save(testBundle(t, &train.LogisticRegression{Weights: []float64{3, 4}}, now))
	require.NoError(t, err)

	versions := mgr.Versions()
	require.Len(t, versions, 2)
	assert.Equal(t, newer, versions[0].Version)
	assert.Equal(t, older, versions[1].Version)
}

func TestNewManager_ReloadsManifest(t *testing.T) {
	dir := t.TempDir()

	mgr, err := NewManager(dir)
	require.NoError(t, err)
	version, err := mgr.Save(testBundle(t, &train.LogisticRegression{Weights: []float64{1, 2}}, time.Now()))
	require.NoError(t, err)

	reopened, err := NewManager(dir)
	require.NoError(t, err)

	active, err := reopened.Active()
	require.NoError(t, err)
	assert.Equal(t, version, active.Version)

	loaded, err := reopened.LoadActive()
	require.NoError(t, err)
	assert.Equal(t, train.KindLogistic, loaded.Model.Kind())
}

func TestLoad_MissingVersion(t *testing.T) {
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	_, err = mgr.Load("20990101-000000")
	assert.Error(t, err)
}
