package dataset

import (
	"fmt"
	"math"
	"math/rand"

	"pricetier/internal/model"
)

// Split configuration used for every training run.
const (
	DefaultTestRatio = 0.15
	DefaultSplitSeed = 1
)

// SplitResult holds the train/test partition of a frame.
type SplitResult struct {
	XTrain [][]float64
	XTest  [][]float64
	YTrain []int
	YTest  []int
}

// Split partitions the frame into train and test sets. The permutation comes
// from a source seeded with seed only, so the same frame and seed always give
// the same partition. The test set size is ceil(n*testRatio).
func Split(f *Frame, features []string, target string, testRatio float64, seed int64) (*SplitResult, error) {
	if missing := f.Missing(append(append([]string(nil), features...), target)...); len(missing) > 0 {
		return nil, &model.MissingColumnsError{Columns: missing}
	}
	if testRatio <= 0 || testRatio >= 1 {
		return nil, fmt.Errorf("split: test ratio %v out of (0, 1): %w", testRatio, model.ErrInvalidInput)
	}

	n := f.Len()
	// 100*0.15 is 15.000000000000002 in float64; the epsilon keeps it at 15.
	nTest := int(math.Ceil(float64(n)*testRatio - 1e-9))
	if nTest < 1 || n-nTest < 1 {
		return nil, fmt.Errorf("split: %d rows cannot fill both sets: %w", n, model.ErrInvalidInput)
	}

	X, err := f.Select(features)
	if err != nil {
		return nil, err
	}
	yCol, err := f.Select([]string{target})
	if err != nil {
		return nil, err
	}
	y := make([]int, n)
	for i, v := range yCol {
		if math.IsNaN(v[0]) {
			return nil, fmt.Errorf("split: row %d has no %s: %w", i, target, model.ErrInvalidInput)
		}
		y[i] = int(v[0])
	}

	rnd := rand.New(rand.NewSource(seed))
	indices := rnd.Perm(n)

	res := &SplitResult{
		XTrain: make([][]float64, 0, n-nTest),
		XTest:  make([][]float64, 0, nTest),
		YTrain: make([]int, 0, n-nTest),
		YTest:  make([]int, 0, nTest),
	}
	for i, idx := range indices {
		if i < nTest {
			res.XTest = append(res.XTest, X[idx])
			res.YTest = append(res.YTest, y[idx])
		} else {
			res.XTrain = append(res.XTrain, X[idx])
			res.YTrain = append(res.YTrain, y[idx])
		}
	}
	return res, nil
}
