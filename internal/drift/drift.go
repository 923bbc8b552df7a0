// Package drift monitors whether the feature distribution seen at
// inference time still resembles the training data. Only aggregate
// statistics are kept: individual requests are never stored, which the
// service's privacy rules require.
package drift

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const numBins = 10

// Baseline captures the per-feature training distribution the detector
// compares against. It is computed once at training time and persisted
// with the model artifact.
type Baseline struct {
	FeatureNames []string    `json:"feature_names"`
	Mean         []float64   `json:"mean"`
	Std          []float64   `json:"std"`
	Min          []float64   `json:"min"`
	Max          []float64   `json:"max"`
	Edges        [][]float64 `json:"edges"`
	Props        [][]float64 `json:"props"`
}

// FitBaseline computes the reference distribution from the cleaned,
// unscaled training matrix.
func FitBaseline(names []string, x [][]float64) *Baseline {
	d := len(names)
	b := &Baseline{
		FeatureNames: names,
		Mean:         make([]float64, d),
		Std:          make([]float64, d),
		Min:          make([]float64, d),
		Max:          make([]float64, d),
		Edges:        make([][]float64, d),
		Props:        make([][]float64, d),
	}

	for j := 0; j < d; j++ {
		b.Min[j] = math.Inf(1)
		b.Max[j] = math.Inf(-1)
	}

	for _, row := range x {
		for j, v := range row {
			b.Mean[j] += v
			if v < b.Min[j] {
				b.Min[j] = v
			}
			if v > b.Max[j] {
				b.Max[j] = v
			}
		}
	}
	n := float64(len(x))
	for j := range b.Mean {
		b.Mean[j] /= n
	}
	for _, row := range x {
		for j, v := range row {
			d := v - b.Mean[j]
			b.Std[j] += d * d
		}
	}
	for j := range b.Std {
		b.Std[j] = math.Sqrt(b.Std[j] / n)
	}

	for j := 0; j < d; j++ {
		b.Edges[j] = binEdges(b.Min[j], b.Max[j])
		counts := make([]float64, numBins)
		for _, row := range x {
			counts[binFor(b.Edges[j], row[j])]++
		}
		props := make([]float64, numBins)
		for k, c := range counts {
			props[k] = c / n
		}
		b.Props[j] = props
	}

	return b
}

func binEdges(lo, hi float64) []float64 {
	if hi <= lo {
		hi = lo + 1
	}
	edges := make([]float64, numBins+1)
	step := (hi - lo) / numBins
	for i := range edges {
		edges[i] = lo + float64(i)*step
	}
	return edges
}

func binFor(edges []float64, v float64) int {
	if v <= edges[0] {
		return 0
	}
	if v >= edges[len(edges)-1] {
		return numBins - 1
	}
	for i := 1; i < len(edges); i++ {
		if v < edges[i] {
			return i - 1
		}
	}
	return numBins - 1
}

// FeatureStatus is the drift state of one feature.
type FeatureStatus struct {
	Name         string  `json:"name"`
	PSI          float64 `json:"psi"`
	ObservedMean float64 `json:"observed_mean"`
	BaselineMean float64 `json:"baseline_mean"`
	ObservedMin  float64 `json:"observed_min"`
	ObservedMax  float64 `json:"observed_max"`
	Drifted      bool    `json:"drifted"`
}

// Report is a point-in-time drift snapshot.
type Report struct {
	Samples   int64           `json:"samples"`
	Features  []FeatureStatus `json:"features"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Detector accumulates inference-time feature statistics and raises a
// log alert when the population stability index of any feature crosses
// the threshold. Safe for concurrent use.
type Detector struct {
	mu        sync.Mutex
	baseline  *Baseline
	counts    [][]float64
	sum       []float64
	min       []float64
	max       []float64
	samples   int64
	threshold float64
	cooldown  time.Duration
	lastAlert time.Time
}

// NewDetector builds a detector over the training baseline. threshold
// is the PSI level that counts as drift (0.2 is the usual alerting
// point); cooldown bounds alert frequency.
func NewDetector(b *Baseline, threshold float64, cooldown time.Duration) *Detector {
	d := len(b.FeatureNames)
	det := &Detector{
		baseline:  b,
		counts:    make([][]float64, d),
		sum:       make([]float64, d),
		min:       make([]float64, d),
		max:       make([]float64, d),
		threshold: threshold,
		cooldown:  cooldown,
	}
	for j := 0; j < d; j++ {
		det.counts[j] = make([]float64, numBins)
		det.min[j] = math.Inf(1)
		det.max[j] = math.Inf(-1)
	}
	return det
}

// Observe folds one (unscaled) feature vector into the aggregates and
// raises an alert when drift is detected.
func (d *Detector) Observe(vec []float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for j, v := range vec {
		if j >= len(d.counts) {
			break
		}
		d.counts[j][binFor(d.baseline.Edges[j], v)]++
		d.sum[j] += v
		if v < d.min[j] {
			d.min[j] = v
		}
		if v > d.max[j] {
			d.max[j] = v
		}
	}
	d.samples++

	d.maybeAlert()
}

// maybeAlert checks PSI per feature under the lock.
func (d *Detector) maybeAlert() {
	if d.samples < 50 || time.Since(d.lastAlert) < d.cooldown {
		return
	}
	for j, name := range d.baseline.FeatureNames {
		psi := d.psi(j)
		if psi > d.threshold {
			log.Warn().
				Str("feature", name).
				Float64("psi", psi).
				Float64("threshold", d.threshold).
				Int64("samples", d.samples).
				Msg("input distribution drift detected")
			d.lastAlert = time.Now()
			return
		}
	}
}

func (d *Detector) psi(j int) float64 {
	const eps = 1e-4
	total := float64(d.samples)
	if total == 0 {
		return 0
	}

	psi := 0.0
	for k := 0; k < numBins; k++ {
		obs := d.counts[j][k] / total
		exp := d.baseline.Props[j][k]
		if obs < eps {
			obs = eps
		}
		if exp < eps {
			exp = eps
		}
		psi += (obs - exp) * math.Log(obs/exp)
	}
	return psi
}

// Snapshot returns the current drift report.
func (d *Detector) Snapshot() Report {
	d.mu.Lock()
	defer d.mu.Unlock()

	rep := Report{Samples: d.samples, UpdatedAt: time.Now()}
	for j, name := range d.baseline.FeatureNames {
		st := FeatureStatus{
			Name:         name,
			PSI:          d.psi(j),
			BaselineMean: d.baseline.Mean[j],
		}
		if d.samples > 0 {
			st.ObservedMean = d.sum[j] / float64(d.samples)
			st.ObservedMin = d.min[j]
			st.ObservedMax = d.max[j]
		}
		st.Drifted = st.PSI > d.threshold
		rep.Features = append(rep.Features, st)
	}
	return rep
}
