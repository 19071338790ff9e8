package forest

import (
	"bytes"
	"encoding/gob"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blobs returns rows whose class is decided by the first feature alone; the
// second feature is noise.
func blobs(n int, seed int64) ([][]float64, []int) {
	rnd := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range X {
		c := i % 3
		X[i] = []float64{float64(c)*10 + rnd.Float64(), rnd.Float64() * 30}
		y[i] = c
	}
	return X, y
}

func TestForest_FitPredictSeparable(t *testing.T) {
	X, y := blobs(90, 1)
	f := New(WithNEstimators(20), WithNClasses(3), WithSeed(0), WithWorkers(4), WithMaxFeatures(2))
	require.NoError(t, f.Fit(X, y))

	pred, err := f.Predict(X)
	require.NoError(t, err)
	correct := 0
	for i := range y {
		if pred[i] == y[i] {
			correct++
		}
	}
	assert.Equal(t, len(y), correct)

	pred, err = f.Predict([][]float64{{0.5, 3}, {10.5, 3}, {20.5, 3}})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, pred)
}

func TestForest_ProbabilitiesSumToOne(t *testing.T) {
	X, y := blobs(60, 2)
	f := New(WithNEstimators(10), WithNClasses(4), WithBalanced(true))
	require.NoError(t, f.Fit(X, y))

	proba, err := f.PredictProba(X)
	require.NoError(t, err)
	for _, p := range proba {
		require.Len(t, p, 4)
		sum := 0.0
		for _, v := range p {
			assert.GreaterOrEqual(t, v, 0.0)
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
		assert.Zero(t, p[3])
	}
}

func TestForest_DeterministicAcrossWorkerCounts(t *testing.T) {
	X, y := blobs(120, 3)

	a := New(WithNEstimators(15), WithNClasses(3), WithSeed(7), WithWorkers(1))
	require.NoError(t, a.Fit(X, y))
	b := New(WithNEstimators(15), WithNClasses(3), WithSeed(7), WithWorkers(8))
	require.NoError(t, b.Fit(X, y))

	assert.Equal(t, a.Trees, b.Trees)
	assert.Equal(t, a.Importances, b.Importances)
}

func TestForest_Importances(t *testing.T) {
	X, y := blobs(150, 4)
	f := New(WithNEstimators(30), WithNClasses(3), WithMaxFeatures(2))
	require.NoError(t, f.Fit(X, y))

	require.Len(t, f.Importances, 2)
	assert.InDelta(t, 1.0, f.Importances[0]+f.Importances[1], 1e-9)
	assert.Greater(t, f.Importances[0], f.Importances[1])
}

func TestForest_GobRoundTrip(t *testing.T) {
	X, y := blobs(60, 5)
	f := New(WithNEstimators(5), WithNClasses(3))
	require.NoError(t, f.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(f))
	var loaded Forest
	require.NoError(t, gob.NewDecoder(&buf).Decode(&loaded))

	want, err := f.PredictProba(X)
	require.NoError(t, err)
	got, err := loaded.PredictProba(X)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestForest_MaxDepth(t *testing.T) {
	X, y := blobs(90, 6)
	f := New(WithNEstimators(5), WithNClasses(3), WithMaxDepth(1))
	require.NoError(t, f.Fit(X, y))
	for _, tree := range f.Trees {
		assert.LessOrEqual(t, tree.Depth(), 1)
	}
}

func TestForest_FitErrors(t *testing.T) {
	tests := []struct {
		name string
		X    [][]float64
		y    []int
	}{
		{name: "empty", X: nil, y: nil},
		{name: "length mismatch", X: [][]float64{{1}, {2}}, y: []int{0}},
		{name: "ragged", X: [][]float64{{1, 2}, {2}}, y: []int{0, 1}},
		{name: "nan", X: [][]float64{{1}, {math.NaN()}}, y: []int{0, 1}},
		{name: "label out of range", X: [][]float64{{1}, {2}}, y: []int{0, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(WithNEstimators(2), WithNClasses(4))
			assert.Error(t, f.Fit(tt.X, tt.y))
		})
	}
}

func TestForest_PredictBeforeFit(t *testing.T) {
	_, err := New().Predict([][]float64{{1}})
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestBalancedWeights(t *testing.T) {
	w := balancedWeights([]int{0, 0, 0, 1}, 3)
	assert.InDelta(t, 4.0/6.0, w[0], 1e-12)
	assert.InDelta(t, 2.0, w[1], 1e-12)
	assert.Zero(t, w[2])
}
