// Package forest implements a bagged ensemble of CART classification trees.
//
// Trees are grown on bootstrap samples with optional class-balanced weights.
// Each tree draws from its own source seeded with Seed+index and lands in a
// fixed slot, so a fit is reproducible no matter how the workers interleave.
package forest

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"pricetier/internal/utils"
)

// Forest is a random forest classifier over the classes 0..NClasses-1.
// All fields are exported so a fitted forest encodes with gob.
type Forest struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int
	Bootstrap       bool
	Balanced        bool
	Seed            int64
	Workers         int
	NClasses        int

	NFeatures   int
	Trees       []*Tree
	Importances []float64
}

// Option configures a Forest.
type Option func(*Forest)

func WithNEstimators(n int) Option     { return func(f *Forest) { f.NEstimators = n } }
func WithMaxDepth(d int) Option        { return func(f *Forest) { f.MaxDepth = d } }
func WithMinSamplesSplit(n int) Option { return func(f *Forest) { f.MinSamplesSplit = n } }
func WithMinSamplesLeaf(n int) Option  { return func(f *Forest) { f.MinSamplesLeaf = n } }
func WithBootstrap(b bool) Option      { return func(f *Forest) { f.Bootstrap = b } }
func WithBalanced(b bool) Option       { return func(f *Forest) { f.Balanced = b } }
func WithSeed(seed int64) Option       { return func(f *Forest) { f.Seed = seed } }
func WithWorkers(n int) Option         { return func(f *Forest) { f.Workers = n } }
func WithNClasses(n int) Option        { return func(f *Forest) { f.NClasses = n } }

// WithMaxFeatures sets how many features each split considers. Zero means sqrt(p).
func WithMaxFeatures(k int) Option { return func(f *Forest) { f.MaxFeatures = k } }

// ErrNotFitted is returned when predicting with a forest that has no trees.
var ErrNotFitted = errors.New("forest: not fitted")

// New returns an unfitted forest.
func New(opts ...Option) *Forest {
	f := &Forest{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Bootstrap:       true,
		Workers:         1,
		NClasses:        2,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fit grows the ensemble on X (n x p) and labels y in [0, NClasses).
func (f *Forest) Fit(X [][]float64, y []int) error {
	if err := f.validate(X, y); err != nil {
		return err
	}
	n := len(X)
	p := len(X[0])

	classWeight := make([]float64, f.NClasses)
	for k := range classWeight {
		classWeight[k] = 1
	}
	if f.Balanced {
		classWeight = balancedWeights(y, f.NClasses)
	}

	params := treeParams{
		maxDepth:        f.MaxDepth,
		minSamplesSplit: max(f.MinSamplesSplit, 2),
		minSamplesLeaf:  max(f.MinSamplesLeaf, 1),
		maxFeatures:     f.MaxFeatures,
		nClasses:        f.NClasses,
	}
	if params.maxFeatures <= 0 {
		params.maxFeatures = max(1, int(math.Sqrt(float64(p))))
	}

	trees := make([]*Tree, f.NEstimators)
	pool := utils.NewWorkerPool(f.Workers)
	for i := 0; i < f.NEstimators; i++ {
		idx := i
		pool.Submit(func() {
			rnd := rand.New(rand.NewSource(f.Seed + int64(idx)))
			rows, w := f.sample(n, y, classWeight, rnd)
			trees[idx] = fitTree(X, y, w, rows, params, rnd)
		})
	}
	pool.Wait()

	f.NFeatures = p
	f.Trees = trees
	f.Importances = make([]float64, p)
	for _, t := range trees {
		for j, v := range t.Importances {
			f.Importances[j] += v
		}
	}
	normalize(f.Importances)
	return nil
}

// sample draws the bootstrap for one tree and returns the distinct rows drawn
// together with per-row weights.
func (f *Forest) sample(n int, y []int, classWeight []float64, rnd *rand.Rand) ([]int, []float64) {
	w := make([]float64, n)
	if !f.Bootstrap {
		rows := make([]int, n)
		for i := range rows {
			rows[i] = i
			w[i] = classWeight[y[i]]
		}
		return rows, w
	}

	counts := make([]int, n)
	for i := 0; i < n; i++ {
		counts[rnd.Intn(n)]++
	}
	rows := make([]int, 0, n)
	for i, c := range counts {
		if c == 0 {
			continue
		}
		rows = append(rows, i)
		w[i] = float64(c) * classWeight[y[i]]
	}
	return rows, w
}

func (f *Forest) validate(X [][]float64, y []int) error {
	if len(X) == 0 {
		return errors.New("forest: empty X")
	}
	if len(y) != len(X) {
		return fmt.Errorf("forest: X has %d rows, y has %d", len(X), len(y))
	}
	if f.NEstimators < 1 {
		return fmt.Errorf("forest: NEstimators must be positive, got %d", f.NEstimators)
	}
	if f.NClasses < 2 {
		return fmt.Errorf("forest: NClasses must be at least 2, got %d", f.NClasses)
	}
	p := len(X[0])
	if p == 0 {
		return errors.New("forest: X has no features")
	}
	for i, row := range X {
		if len(row) != p {
			return fmt.Errorf("forest: row %d has %d features, want %d", i, len(row), p)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("forest: row %d feature %d is not finite", i, j)
			}
		}
		if y[i] < 0 || y[i] >= f.NClasses {
			return fmt.Errorf("forest: label %d at row %d outside [0, %d)", y[i], i, f.NClasses)
		}
	}
	return nil
}

// balancedWeights returns n / (k * n_c) for each class c present in y, where k
// is the number of distinct classes. Absent classes get zero weight.
func balancedWeights(y []int, nClasses int) []float64 {
	counts := make([]int, nClasses)
	for _, c := range y {
		counts[c]++
	}
	present := 0
	for _, c := range counts {
		if c > 0 {
			present++
		}
	}
	w := make([]float64, nClasses)
	for c, cnt := range counts {
		if cnt > 0 {
			w[c] = float64(len(y)) / (float64(present) * float64(cnt))
		}
	}
	return w
}

// PredictProba averages the leaf distributions of every tree.
func (f *Forest) PredictProba(X [][]float64) ([][]float64, error) {
	if len(f.Trees) == 0 {
		return nil, ErrNotFitted
	}
	out := make([][]float64, len(X))
	for i, x := range X {
		if len(x) != f.NFeatures {
			return nil, fmt.Errorf("forest: row %d has %d features, want %d", i, len(x), f.NFeatures)
		}
		proba := make([]float64, f.NClasses)
		for _, t := range f.Trees {
			for k, v := range t.predict(x) {
				proba[k] += v
			}
		}
		for k := range proba {
			proba[k] /= float64(len(f.Trees))
		}
		out[i] = proba
	}
	return out, nil
}

// Predict returns the most probable class per row. Ties go to the lower class.
func (f *Forest) Predict(X [][]float64) ([]int, error) {
	proba, err := f.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, p := range proba {
		best := 0
		for k := 1; k < len(p); k++ {
			if p[k] > p[best] {
				best = k
			}
		}
		out[i] = best
	}
	return out, nil
}
