package model

import (
	"bytes"
	"encoding/json"
)

// EvaluationReport holds held-out metrics for a trained classifier
type EvaluationReport struct {
	Accuracy             float64                 `json:"accuracy"`
	ROCAUC               float64                 `json:"roc_auc"`
	FeatureImportances   FeatureImportances      `json:"feature_importances"`
	ConfusionMatrix      [][]int                 `json:"confusion_matrix"`
	ClassificationReport map[string]ClassMetrics `json:"classification_report"`
}

// ClassMetrics are the per-class scores of the classification report
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1Score   float64 `json:"f1-score"`
	Support   int     `json:"support"`
}

// FeatureImportance is the weight of one feature in the trained model
type FeatureImportance struct {
	Feature    string
	Importance float64
}

// FeatureImportances is kept in descending order of importance.
type FeatureImportances []FeatureImportance

// MarshalJSON writes the importances as a JSON object preserving slice order.
func (f FeatureImportances) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, fi := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(fi.Feature)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(fi.Importance)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an importances object back in document order.
func (f *FeatureImportances) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return err
	}
	out := FeatureImportances{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var v float64
		if err := dec.Decode(&v); err != nil {
			return err
		}
		out = append(out, FeatureImportance{Feature: name, Importance: v})
	}
	*f = out
	return nil
}
