package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pricetier/internal/model"
)

// stubModel returns fixed outputs regardless of input.
type stubModel struct {
	pred        []int
	proba       [][]float64
	importances []float64
	err         error
}

func (s *stubModel) Predict(X [][]float64) ([]int, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.pred, nil
}

func (s *stubModel) PredictProba(X [][]float64) ([][]float64, error) {
	return s.proba, nil
}

func (s *stubModel) FeatureImportances() ([]float64, error) {
	return s.importances, nil
}

func (s *stubModel) FeatureNames() []string {
	return []string{"neighbourhood", "room_type", "accommodates", "bathrooms", "bedrooms"}
}

func TestEvaluator_Report(t *testing.T) {
	m := &stubModel{
		pred: []int{0, 1, 1, 2},
		proba: [][]float64{
			{0.9, 0.1, 0, 0},
			{0.2, 0.7, 0.1, 0},
			{0.1, 0.6, 0.3, 0},
			{0, 0.2, 0.8, 0},
		},
		importances: []float64{0.1, 0.4, 0.2, 0.1, 0.2},
	}
	X := make([][]float64, 4)
	y := []int{0, 1, 2, 2}

	report, err := NewEvaluator(zap.NewNop()).Evaluate(m, X, y)
	require.NoError(t, err)

	assert.InDelta(t, 0.75, report.Accuracy, 1e-12)
	assert.Equal(t, [][]int{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 1, 1, 0},
		{0, 0, 0, 0},
	}, report.ConfusionMatrix)

	// Class 3 has no positives and is skipped; classes 0, 1 and 2 separate perfectly.
	assert.InDelta(t, 1.0, report.ROCAUC, 1e-12)

	assert.Equal(t, model.FeatureImportances{
		{Feature: "room_type", Importance: 0.4},
		{Feature: "accommodates", Importance: 0.2},
		{Feature: "bedrooms", Importance: 0.2},
		{Feature: "neighbourhood", Importance: 0.1},
		{Feature: "bathrooms", Importance: 0.1},
	}, report.FeatureImportances)

	low := report.ClassificationReport["low"]
	assert.InDelta(t, 0.5, low.Precision, 1e-12)
	assert.InDelta(t, 1.0, low.Recall, 1e-12)
	assert.InDelta(t, 2.0/3.0, low.F1Score, 1e-12)
	assert.Equal(t, 1, low.Support)

	mid := report.ClassificationReport["mid"]
	assert.InDelta(t, 1.0, mid.Precision, 1e-12)
	assert.InDelta(t, 0.5, mid.Recall, 1e-12)
	assert.Equal(t, 2, mid.Support)

	high, ok := report.ClassificationReport["high"]
	require.True(t, ok)
	assert.Equal(t, model.ClassMetrics{}, high)

	assert.Len(t, report.ClassificationReport, 4)
	assert.NotContains(t, report.ClassificationReport, "macro avg")
	assert.NotContains(t, report.ClassificationReport, "weighted avg")
}

func TestEvaluator_PredictionFailure(t *testing.T) {
	cause := errors.New("boom")
	m := &stubModel{err: cause}
	_, err := NewEvaluator(zap.NewNop()).Evaluate(m, [][]float64{{1}}, []int{0})
	assert.ErrorIs(t, err, model.ErrEvaluation)
	assert.ErrorIs(t, err, cause)
}

func TestEvaluator_NotFittedClassifier(t *testing.T) {
	clf := NewClassifier(testTrainingConfig(), zap.NewNop())
	_, err := NewEvaluator(zap.NewNop()).Evaluate(clf, [][]float64{{1, 1, 1, 1, 1}}, []int{0})
	assert.ErrorIs(t, err, model.ErrEvaluation)
	assert.ErrorIs(t, err, model.ErrNotFitted)
}

func TestEvaluator_SingleClassTestSet(t *testing.T) {
	m := &stubModel{
		pred:        []int{1, 1},
		proba:       [][]float64{{0, 1, 0, 0}, {0, 1, 0, 0}},
		importances: make([]float64, 5),
	}
	report, err := NewEvaluator(zap.NewNop()).Evaluate(m, make([][]float64, 2), []int{1, 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, report.ROCAUC)
	assert.Equal(t, 1.0, report.Accuracy)
}

func TestEvaluator_TrainedClassifier(t *testing.T) {
	clf := trainedClassifier(t)
	X, y := tierData(40)

	report, err := NewEvaluator(zap.NewNop()).Evaluate(clf, X, y)
	require.NoError(t, err)
	assert.Greater(t, report.Accuracy, 0.9)
	assert.Greater(t, report.ROCAUC, 0.9)
	assert.Len(t, report.FeatureImportances, 5)
	for i := 1; i < len(report.FeatureImportances); i++ {
		assert.GreaterOrEqual(t, report.FeatureImportances[i-1].Importance, report.FeatureImportances[i].Importance)
	}
}
