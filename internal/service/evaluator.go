package service

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"pricetier/internal/mapping"
	"pricetier/internal/model"
)

// Model is what the evaluator needs from a trained classifier.
type Model interface {
	Predict(X [][]float64) ([]int, error)
	PredictProba(X [][]float64) ([][]float64, error)
	FeatureImportances() ([]float64, error)
	FeatureNames() []string
}

// Evaluator scores a trained model on held-out data.
type Evaluator struct {
	logger *zap.Logger
}

// NewEvaluator creates an Evaluator
func NewEvaluator(logger *zap.Logger) *Evaluator {
	return &Evaluator{logger: logger}
}

// Evaluate computes accuracy, one-vs-rest ROC-AUC, the confusion matrix,
// feature importances and per-class precision/recall/F1.
func (e *Evaluator) Evaluate(m Model, X [][]float64, y []int) (*model.EvaluationReport, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("%w: %d rows and %d labels", model.ErrEvaluation, len(X), len(y))
	}
	pred, err := m.Predict(X)
	if err != nil {
		return nil, fmt.Errorf("%w: predict: %w", model.ErrEvaluation, err)
	}
	proba, err := m.PredictProba(X)
	if err != nil {
		return nil, fmt.Errorf("%w: predict proba: %w", model.ErrEvaluation, err)
	}

	labels := mapping.CategoryLabels()
	for _, c := range y {
		if c < 0 || c >= len(labels) {
			return nil, fmt.Errorf("%w: label %d is not a category", model.ErrEvaluation, c)
		}
	}
	for _, c := range pred {
		if c < 0 || c >= len(labels) {
			return nil, fmt.Errorf("%w: predicted class %d is not a category", model.ErrEvaluation, c)
		}
	}

	report := &model.EvaluationReport{
		Accuracy:        Accuracy(y, pred),
		ROCAUC:          e.rocAUC(y, proba, len(labels)),
		ConfusionMatrix: ConfusionMatrix(y, pred, len(labels)),
	}

	importances, err := m.FeatureImportances()
	if err != nil {
		return nil, fmt.Errorf("%w: feature importances: %w", model.ErrEvaluation, err)
	}
	report.FeatureImportances = SortedImportances(m.FeatureNames(), importances)
	report.ClassificationReport = ClassificationReport(report.ConfusionMatrix, labels)

	e.logger.Info("Model evaluated",
		zap.Float64("accuracy", report.Accuracy),
		zap.Float64("roc_auc", report.ROCAUC),
		zap.Int("rows", len(y)))
	return report, nil
}

// Accuracy is the fraction of exact matches.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue))
}

// ConfusionMatrix counts rows by true class (row) and predicted class (column).
func ConfusionMatrix(yTrue, yPred []int, k int) [][]int {
	cm := make([][]int, k)
	for i := range cm {
		cm[i] = make([]int, k)
	}
	for i := range yTrue {
		cm[yTrue[i]][yPred[i]]++
	}
	return cm
}

// rocAUC averages the one-vs-rest AUC of every class that has both positive
// and negative rows. Classes without both are skipped.
func (e *Evaluator) rocAUC(y []int, proba [][]float64, k int) float64 {
	sum := 0.0
	scored := 0
	for c := 0; c < k; c++ {
		scores := make([]float64, len(y))
		classes := make([]bool, len(y))
		pos := 0
		for i := range y {
			scores[i] = proba[i][c]
			classes[i] = y[i] == c
			if classes[i] {
				pos++
			}
		}
		if pos == 0 || pos == len(y) {
			continue
		}
		stat.SortWeightedLabeled(scores, classes, nil)
		tpr, fpr, _ := stat.ROC(nil, scores, classes, nil)
		sum += integrate.Trapezoidal(fpr, tpr)
		scored++
	}
	if scored == 0 {
		e.logger.Warn("ROC-AUC undefined: no class has both positive and negative rows")
		return 0
	}
	return sum / float64(scored)
}

// SortedImportances pairs names with importances, sorted descending. Ties keep
// feature order.
func SortedImportances(names []string, importances []float64) model.FeatureImportances {
	out := make(model.FeatureImportances, 0, len(names))
	for i, n := range names {
		v := 0.0
		if i < len(importances) {
			v = importances[i]
		}
		out = append(out, model.FeatureImportance{Feature: n, Importance: v})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Importance > out[b].Importance })
	return out
}

// ClassificationReport derives precision, recall, F1 and support per label from
// a confusion matrix. Labels without support are reported with zeros.
func ClassificationReport(cm [][]int, labels []string) map[string]model.ClassMetrics {
	report := make(map[string]model.ClassMetrics, len(labels))
	for c := range labels {
		tp := cm[c][c]
		support, predicted := 0, 0
		for j := range labels {
			support += cm[c][j]
			predicted += cm[j][c]
		}
		m := model.ClassMetrics{
			Precision: ratio(tp, predicted),
			Recall:    ratio(tp, support),
			Support:   support,
		}
		if m.Precision+m.Recall > 0 {
			m.F1Score = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		report[labels[c]] = m
	}
	return report
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
