package service

import (
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pricetier/internal/forest"
	"pricetier/internal/mapping"
	"pricetier/internal/model"
)

// artifactVersion is bumped whenever the Artifact layout changes.
const artifactVersion = 1

// TrainingConfig holds the classifier hyperparameters.
type TrainingConfig struct {
	NEstimators int
	Seed        int64
	Balanced    bool
	Workers     int
}

// DefaultTrainingConfig returns the configuration every training run uses.
func DefaultTrainingConfig() TrainingConfig {
	return TrainingConfig{
		NEstimators: 500,
		Seed:        0,
		Balanced:    true,
		Workers:     4,
	}
}

// Artifact is the persisted form of a trained classifier. It records the
// feature schema and mapping tables it was trained against.
type Artifact struct {
	Version        int
	RunID          string
	TrainedAt      time.Time
	FeatureNames   []string
	MappingVersion string
	Labels         []string
	Config         TrainingConfig
	Forest         *forest.Forest
}

// Classifier is a bagged-tree price tier classifier.
// A fitted classifier is read-only and safe for concurrent prediction.
type Classifier struct {
	config   TrainingConfig
	artifact *Artifact
	logger   *zap.Logger
}

// NewClassifier creates an unfitted classifier
func NewClassifier(config TrainingConfig, logger *zap.Logger) *Classifier {
	return &Classifier{config: config, logger: logger}
}

// Train fits the classifier on X and the category labels y.
func (c *Classifier) Train(X [][]float64, y []int) error {
	if err := validateTraining(X, y); err != nil {
		return err
	}

	f := forest.New(
		forest.WithNEstimators(c.config.NEstimators),
		forest.WithSeed(c.config.Seed),
		forest.WithBalanced(c.config.Balanced),
		forest.WithWorkers(c.config.Workers),
		forest.WithNClasses(mapping.NumCategories),
	)

	start := time.Now()
	c.logger.Info("Training classifier",
		zap.Int("rows", len(X)),
		zap.Int("n_estimators", c.config.NEstimators),
		zap.Int64("seed", c.config.Seed),
		zap.Bool("balanced", c.config.Balanced),
		zap.Int("workers", c.config.Workers))

	if err := f.Fit(X, y); err != nil {
		return fmt.Errorf("%w: %v", model.ErrTraining, err)
	}

	c.artifact = &Artifact{
		Version:        artifactVersion,
		RunID:          uuid.NewString(),
		TrainedAt:      time.Now().UTC(),
		FeatureNames:   append([]string(nil), mapping.FeatureNames...),
		MappingVersion: mapping.Version(),
		Labels:         mapping.CategoryLabels(),
		Config:         c.config,
		Forest:         f,
	}
	c.logger.Info("Classifier trained",
		zap.String("run_id", c.artifact.RunID),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func validateTraining(X [][]float64, y []int) error {
	if len(X) == 0 {
		return fmt.Errorf("%w: no training rows", model.ErrTraining)
	}
	if len(X) != len(y) {
		return fmt.Errorf("%w: %d rows but %d labels", model.ErrTraining, len(X), len(y))
	}
	width := len(mapping.FeatureNames)
	seen := make(map[int]struct{}, mapping.NumCategories)
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d features, want %d", model.ErrTraining, i, len(row), width)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: row %d has a non-finite value", model.ErrTraining, i)
			}
		}
		if y[i] < 0 || y[i] >= mapping.NumCategories {
			return fmt.Errorf("%w: label %d at row %d is not a category", model.ErrTraining, y[i], i)
		}
		seen[y[i]] = struct{}{}
	}
	if len(seen) < 2 {
		return fmt.Errorf("%w: need at least 2 classes, got %d", model.ErrTraining, len(seen))
	}
	return nil
}

// Predict returns one category per row.
func (c *Classifier) Predict(X [][]float64) ([]int, error) {
	if c.artifact == nil {
		return nil, model.ErrNotFitted
	}
	return c.artifact.Forest.Predict(X)
}

// PredictProba returns a distribution over the categories per row.
func (c *Classifier) PredictProba(X [][]float64) ([][]float64, error) {
	if c.artifact == nil {
		return nil, model.ErrNotFitted
	}
	return c.artifact.Forest.PredictProba(X)
}

// FeatureImportances returns the mean impurity decrease per feature, in feature order.
func (c *Classifier) FeatureImportances() ([]float64, error) {
	if c.artifact == nil {
		return nil, model.ErrNotFitted
	}
	return append([]float64(nil), c.artifact.Forest.Importances...), nil
}

// FeatureNames returns the feature schema the classifier was trained on.
func (c *Classifier) FeatureNames() []string {
	if c.artifact == nil {
		return append([]string(nil), mapping.FeatureNames...)
	}
	return append([]string(nil), c.artifact.FeatureNames...)
}

// RunID identifies the training run, empty before training.
func (c *Classifier) RunID() string {
	if c.artifact == nil {
		return ""
	}
	return c.artifact.RunID
}

// TrainedAt is the training time, zero before training.
func (c *Classifier) TrainedAt() time.Time {
	if c.artifact == nil {
		return time.Time{}
	}
	return c.artifact.TrainedAt
}

// Save writes the fitted classifier to path as a gob artifact.
func (c *Classifier) Save(path string) error {
	if c.artifact == nil {
		return model.ErrNotFitted
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(c.artifact); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode model: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("move model file: %w", err)
	}

	c.logger.Info("Model saved", zap.String("path", path), zap.String("run_id", c.artifact.RunID))
	return nil
}

// LoadClassifier reads an artifact written by Save. It refuses artifacts built
// against a different feature schema or mapping tables.
func LoadClassifier(path string, logger *zap.Logger) (*Classifier, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", model.ErrModelNotFound, filepath.Base(path))
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", model.ErrModelNotFound, filepath.Base(path))
		}
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()

	var a Artifact
	if err := gob.NewDecoder(f).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", filepath.Base(path), err)
	}
	if a.Forest == nil || len(a.Forest.Trees) == 0 {
		return nil, fmt.Errorf("decode model %s: %w", filepath.Base(path), model.ErrNotFitted)
	}
	if a.Version != artifactVersion {
		return nil, fmt.Errorf("%w: artifact version %d, want %d", model.ErrSchemaMismatch, a.Version, artifactVersion)
	}
	if !slices.Equal(a.FeatureNames, mapping.FeatureNames) {
		return nil, fmt.Errorf("%w: features %v, want %v", model.ErrSchemaMismatch, a.FeatureNames, mapping.FeatureNames)
	}
	if a.MappingVersion != mapping.Version() {
		return nil, fmt.Errorf("%w: mapping version %s, want %s", model.ErrSchemaMismatch, a.MappingVersion, mapping.Version())
	}

	return &Classifier{config: a.Config, artifact: &a, logger: logger}, nil
}
