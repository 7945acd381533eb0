// Package anomaly implements an isolation forest over dense float64 feature rows.
package anomaly

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

const (
	DefaultTrees         = 100
	DefaultSampleSize    = 256
	DefaultContamination = 0.01
	DefaultSeed          = 42

	eulerGamma = 0.5772156649015329
)

// Options configures Fit. Zero values select the defaults.
type Options struct {
	Trees         int
	SampleSize    int
	Contamination float64
	Seed          int64
}

func (o Options) withDefaults() Options {
	if o.Trees <= 0 {
		o.Trees = DefaultTrees
	}
	if o.SampleSize <= 0 {
		o.SampleSize = DefaultSampleSize
	}
	if o.Contamination == 0 {
		o.Contamination = DefaultContamination
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	return o
}

type node struct {
	feature int
	split   float64
	left    *node
	right   *node
	size    int // leaf only
}

func (n *node) isLeaf() bool {
	return n.left == nil
}

// Forest is a fitted isolation forest.
type Forest struct {
	trees      []*node
	sampleSize int
	dims       int
	threshold  float64
	scores     []float64
}

// Fit grows the forest on data and derives the anomaly threshold from the training scores.
func Fit(data [][]float64, opts Options) (*Forest, error) {
	opts = opts.withDefaults()
	if len(data) == 0 {
		return nil, errors.New("no rows to fit")
	}
	if opts.Contamination <= 0 || opts.Contamination > 0.5 {
		return nil, fmt.Errorf("contamination must be in (0, 0.5], got %v", opts.Contamination)
	}
	dims := len(data[0])
	if dims == 0 {
		return nil, errors.New("rows have no features")
	}
	for i, row := range data {
		if len(row) != dims {
			return nil, fmt.Errorf("row %d has %d features, expected %d", i, len(row), dims)
		}
	}

	psi := opts.SampleSize
	if psi > len(data) {
		psi = len(data)
	}
	heightLimit := int(math.Ceil(math.Log2(float64(psi))))

	rng := rand.New(rand.NewSource(opts.Seed))
	f := &Forest{
		trees:      make([]*node, 0, opts.Trees),
		sampleSize: psi,
		dims:       dims,
	}
	for t := 0; t < opts.Trees; t++ {
		perm := rng.Perm(len(data))[:psi]
		sample := make([][]float64, psi)
		for i, idx := range perm {
			sample[i] = data[idx]
		}
		f.trees = append(f.trees, grow(sample, 0, heightLimit, rng))
	}

	f.scores = make([]float64, len(data))
	for i, row := range data {
		f.scores[i] = f.score(row)
	}
	f.threshold = percentile(f.scores, 1-opts.Contamination)
	return f, nil
}

func grow(rows [][]float64, depth, limit int, rng *rand.Rand) *node {
	if depth >= limit || len(rows) <= 1 {
		return &node{size: len(rows)}
	}

	// only features that still vary inside this node can split it
	dims := len(rows[0])
	candidates := make([]int, 0, dims)
	mins := make([]float64, dims)
	maxs := make([]float64, dims)
	for d := 0; d < dims; d++ {
		lo, hi := rows[0][d], rows[0][d]
		for _, r := range rows[1:] {
			lo = math.Min(lo, r[d])
			hi = math.Max(hi, r[d])
		}
		mins[d], maxs[d] = lo, hi
		if hi > lo {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return &node{size: len(rows)}
	}

	feature := candidates[rng.Intn(len(candidates))]
	split := mins[feature] + rng.Float64()*(maxs[feature]-mins[feature])

	var left, right [][]float64
	for _, r := range rows {
		if r[feature] < split {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	return &node{
		feature: feature,
		split:   split,
		left:    grow(left, depth+1, limit, rng),
		right:   grow(right, depth+1, limit, rng),
	}
}

func pathLength(x []float64, n *node, depth int) float64 {
	for !n.isLeaf() {
		if x[n.feature] < n.split {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return float64(depth) + averagePath(n.size)
}

// averagePath is c(n), the mean path length of an unsuccessful BST search over n points.
func averagePath(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	harmonic := math.Log(fn-1) + eulerGamma
	return 2*harmonic - 2*(fn-1)/fn
}

func (f *Forest) score(x []float64) float64 {
	var total float64
	for _, t := range f.trees {
		total += pathLength(x, t, 0)
	}
	mean := total / float64(len(f.trees))
	c := averagePath(f.sampleSize)
	if c == 0 {
		return 1
	}
	return math.Pow(2, -mean/c)
}

// Score returns the anomaly score of x in (0, 1]; values near 1 are easy to isolate.
func (f *Forest) Score(x []float64) (float64, error) {
	if len(x) != f.dims {
		return 0, fmt.Errorf("expected %d features, got %d", f.dims, len(x))
	}
	return f.score(x), nil
}

// Threshold is the score above which a row is an anomaly.
func (f *Forest) Threshold() float64 {
	return f.threshold
}

// TrainingScores returns the scores of the fitted rows, in input order.
func (f *Forest) TrainingScores() []float64 {
	out := make([]float64, len(f.scores))
	copy(out, f.scores)
	return out
}

// Outliers returns indexes of training rows whose score is strictly above the threshold.
func (f *Forest) Outliers() []int {
	var idx []int
	for i, s := range f.scores {
		if s > f.threshold {
			idx = append(idx, i)
		}
	}
	return idx
}

// percentile uses linear interpolation between closest ranks, q in [0, 1].
func percentile(values []float64, q float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
