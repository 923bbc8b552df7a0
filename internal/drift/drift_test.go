package drift

import (
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniformRows(n int, lo, hi float64, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = []float64{lo + rng.Float64()*(hi-lo)}
	}
	return rows
}

func TestFitBaseline(t *testing.T) {
	names := []string{"a", "b"}
	x := [][]float64{{0, 10}, {2, 20}, {4, 30}}

	b := FitBaseline(names, x)

	assert.Equal(t, names, b.FeatureNames)
	assert.InDelta(t, 2.0, b.Mean[0], 1e-9)
	assert.InDelta(t, 20.0, b.Mean[1], 1e-9)
	assert.InDelta(t, math.Sqrt(8.0/3.0), b.Std[0], 1e-9)
	assert.Equal(t, 0.0, b.Min[0])
	assert.Equal(t, 4.0, b.Max[0])
	assert.Equal(t, 10.0, b.Min[1])
	assert.Equal(t, 30.0, b.Max[1])

	require.Len(t, b.Edges[0], numBins+1)
	assert.Equal(t, 0.0, b.Edges[0][0])
	assert.InDelta(t, 4.0, b.Edges[0][numBins], 1e-9)

	// Bin proportions sum to one.
	for j := range names {
		sum := 0.0
		for _, p := range b.Props[j] {
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestFitBaseline_ConstantFeature(t *testing.T) {
	b := FitBaseline([]string{"c"}, [][]float64{{5}, {5}, {5}})

	assert.Equal(t, 5.0, b.Min[0])
	assert.Equal(t, 5.0, b.Max[0])
	// Degenerate range still yields usable edges.
	assert.Less(t, b.Edges[0][0], b.Edges[0][numBins])
	assert.InDelta(t, 1.0, b.Props[0][0], 1e-9)
}

func TestBinFor(t *testing.T) {
	edges := binEdges(0, 10)

	assert.Equal(t, 0, binFor(edges, -5))
	assert.Equal(t, 0, binFor(edges, 0))
	assert.Equal(t, 0, binFor(edges, 0.5))
	assert.Equal(t, 4, binFor(edges, 4.5))
	assert.Equal(t, numBins-1, binFor(edges, 9.9))
	assert.Equal(t, numBins-1, binFor(edges, 10))
	assert.Equal(t, numBins-1, binFor(edges, 100))
}

func TestDetector_NoDriftOnSameDistribution(t *testing.T) {
	base := uniformRows(2000, 0, 10, 1)
	b := FitBaseline([]string{"a"}, base)
	det := NewDetector(b, 0.2, time.Minute)

	for _, row := range uniformRows(2000, 0, 10, 2) {
		det.Observe(row)
	}

	rep := det.Snapshot()
	require.Len(t, rep.Features, 1)
	assert.Equal(t, int64(2000), rep.Samples)
	assert.Less(t, rep.Features[0].PSI, 0.1)
	assert.False(t, rep.Features[0].Drifted)
	assert.InDelta(t, 5.0, rep.Features[0].ObservedMean, 0.5)
}

func TestDetector_DetectsShiftedDistribution(t *testing.T) {
	base := uniformRows(2000, 0, 10, 3)
	b := FitBaseline([]string{"a"}, base)
	det := NewDetector(b, 0.2, time.Minute)

	// Everything lands in the top bins.
	for _, row := range uniformRows(200, 9, 10, 4) {
		det.Observe(row)
	}

	rep := det.Snapshot()
	assert.Greater(t, rep.Features[0].PSI, 0.2)
	assert.True(t, rep.Features[0].Drifted)
	assert.GreaterOrEqual(t, rep.Features[0].ObservedMin, 9.0)
	assert.LessOrEqual(t, rep.Features[0].ObservedMax, 10.0)
}

func TestDetector_SnapshotBeforeObservations(t *testing.T) {
	b := FitBaseline([]string{"a"}, uniformRows(100, 0, 1, 5))
	det := NewDetector(b, 0.2, time.Minute)

	rep := det.Snapshot()
	assert.Equal(t, int64(0), rep.Samples)
	require.Len(t, rep.Features, 1)
	assert.Equal(t, 0.0, rep.Features[0].PSI)
	assert.Equal(t, 0.0, rep.Features[0].ObservedMean)
	assert.False(t, rep.Features[0].Drifted)
}

func TestDetector_ShortVectorIgnoresMissingTail(t *testing.T) {
	b := FitBaseline([]string{"a", "b"}, [][]float64{{0, 0}, {10, 10}})
	det := NewDetector(b, 0.2, time.Minute)

	det.Observe([]float64{5})

	rep := det.Snapshot()
	assert.Equal(t, int64(1), rep.Samples)
	assert.InDelta(t, 5.0, rep.Features[0].ObservedMean, 1e-9)
	assert.Equal(t, 0.0, rep.Features[1].ObservedMean)
}

func TestDetector_ConcurrentObserve(t *testing.T) {
	b := FitBaseline([]string{"a"}, uniformRows(500, 0, 10, 6))
	det := NewDetector(b, 0.2, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			for _, row := range uniformRows(100, 0, 10, seed) {
				det.Observe(row)
			}
		}(int64(g + 10))
	}
	wg.Wait()

	rep := det.Snapshot()
	assert.Equal(t, int64(800), rep.Samples)
}

func TestPSI_MatchesHandComputation(t *testing.T) {
	// Baseline evenly split over two occupied bins, observations all in
	// one of them.
	b := FitBaseline([]string{"a"}, [][]float64{{0.5}, {9.5}})
	det := NewDetector(b, 0.2, time.Minute)
	det.Observe([]float64{0.5})

	const eps = 1e-4
	want := 0.0
	for k := 0; k < numBins; k++ {
		obs, exp := eps, eps
		if k == 0 {
			obs = 1.0
		}
		if k == 0 || k == numBins-1 {
			exp = 0.5
		}
		want += (obs - exp) * math.Log(obs/exp)
	}
	assert.InDelta(t, want, det.psi(0), 1e-9)
}
