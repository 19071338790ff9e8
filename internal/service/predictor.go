package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pricetier/internal/mapping"
	"pricetier/internal/model"
)

// PredictionCache stores served categories keyed by model run and feature vector.
type PredictionCache interface {
	GetCategory(ctx context.Context, key string) (int, bool, error)
	SetCategory(ctx context.Context, key string, category int) error
}

// PredictionStore records served predictions.
type PredictionStore interface {
	LogPrediction(ctx context.Context, rec *model.PredictionRecord) error
}

// ModelLoader opens a classifier artifact.
type ModelLoader func(path string, logger *zap.Logger) (*Classifier, error)

// Predictor serves single-listing predictions.
type Predictor struct {
	modelDir string
	load     ModelLoader
	cache    PredictionCache
	store    PredictionStore
	logger   *zap.Logger
}

// PredictorOption configures a Predictor.
type PredictorOption func(*Predictor)

// WithPredictionCache enables the prediction cache.
func WithPredictionCache(c PredictionCache) PredictorOption {
	return func(p *Predictor) { p.cache = c }
}

// WithPredictionStore enables prediction logging.
func WithPredictionStore(s PredictionStore) PredictorOption {
	return func(p *Predictor) { p.store = s }
}

// WithModelLoader replaces the artifact loader.
func WithModelLoader(l ModelLoader) PredictorOption {
	return func(p *Predictor) { p.load = l }
}

// NewPredictor creates a Predictor serving artifacts from modelDir.
func NewPredictor(modelDir string, logger *zap.Logger, opts ...PredictorOption) *Predictor {
	p := &Predictor{
		modelDir: modelDir,
		load:     LoadClassifier,
		logger:   logger,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Predict loads the requested model, validates and encodes the listing, and
// returns its price category. Errors carry a kind through model.KindOf.
func (p *Predictor) Predict(ctx context.Context, req *model.PredictRequest) (*model.PredictResponse, error) {
	path, err := p.resolveModelPath(req.ModelFile.ModelPath)
	if err != nil {
		return nil, err
	}

	clf, err := p.load(path, p.logger)
	if err != nil {
		return nil, err
	}

	if missing := MissingInputFields(&req.InputData); len(missing) > 0 {
		return nil, &model.MissingColumnsError{Columns: missing}
	}
	in := &req.InputData

	vec, err := InputVector(in, clf.FeatureNames())
	if err != nil {
		return nil, err
	}

	key := cacheKey(clf.RunID(), vec)
	category, hit := p.cached(ctx, key)
	if !hit {
		pred, err := clf.Predict([][]float64{vec})
		if err != nil {
			return nil, fmt.Errorf("predict: %w", err)
		}
		category = pred[0]
		p.remember(ctx, key, category)
	}

	label, err := mapping.DecodeCategory(category)
	if err != nil {
		return nil, fmt.Errorf("decode prediction: %w", err)
	}

	p.logger.Info("Prediction served",
		zap.Int64("id", *in.ID),
		zap.String("model_run_id", clf.RunID()),
		zap.String("price_category", label),
		zap.Bool("cached", hit))

	if p.store != nil {
		rec := &model.PredictionRecord{
			RequestID:     uuid.NewString(),
			ListingID:     *in.ID,
			ModelPath:     req.ModelFile.ModelPath,
			ModelRunID:    clf.RunID(),
			Category:      category,
			PriceCategory: label,
			Features:      vec,
			CreatedAt:     time.Now().UTC(),
		}
		// Log prediction (non-blocking)
		go func() {
			if err := p.store.LogPrediction(context.Background(), rec); err != nil {
				p.logger.Warn("Failed to log prediction", zap.Error(err))
			}
		}()
	}

	return &model.PredictResponse{ID: *in.ID, PriceCategory: label}, nil
}

// resolveModelPath joins a client-supplied artifact name onto the model folder.
// Names that would leave the folder are rejected.
func (p *Predictor) resolveModelPath(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: model_path is required", model.ErrInvalidInput)
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: model_path must be relative to the model folder", model.ErrInvalidInput)
	}
	clean := filepath.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: model_path escapes the model folder", model.ErrInvalidInput)
	}
	return filepath.Join(p.modelDir, clean), nil
}

func (p *Predictor) cached(ctx context.Context, key string) (int, bool) {
	if p.cache == nil {
		return 0, false
	}
	category, ok, err := p.cache.GetCategory(ctx, key)
	if err != nil {
		p.logger.Warn("Prediction cache read failed", zap.Error(err))
		return 0, false
	}
	return category, ok
}

func (p *Predictor) remember(ctx context.Context, key string, category int) {
	if p.cache == nil {
		return
	}
	if err := p.cache.SetCategory(ctx, key, category); err != nil {
		p.logger.Warn("Prediction cache write failed", zap.Error(err))
	}
}

// MissingInputFields lists the required request fields that are absent: the
// listing id followed by the model features, in feature order.
func MissingInputFields(in *model.ListingInput) []string {
	var missing []string
	if in.ID == nil {
		missing = append(missing, "id")
	}
	for _, name := range mapping.FeatureNames {
		if !inputHas(in, name) {
			missing = append(missing, name)
		}
	}
	return missing
}

func inputHas(in *model.ListingInput, name string) bool {
	switch name {
	case mapping.ColNeighbourhood:
		return in.Neighbourhood != nil
	case mapping.ColRoomType:
		return in.RoomType != nil
	case mapping.ColAccommodates:
		return in.Accommodates != nil
	case mapping.ColBathrooms:
		return in.Bathrooms != nil
	case mapping.ColBedrooms:
		return in.Bedrooms != nil
	}
	return false
}

// InputVector encodes a request listing in the given feature order. Unknown
// categories fail with model.ErrUnknownCategory.
func InputVector(in *model.ListingInput, features []string) ([]float64, error) {
	vec := make([]float64, 0, len(features))
	for _, name := range features {
		switch name {
		case mapping.ColNeighbourhood:
			code, err := mapping.EncodeNeighbourhood(*in.Neighbourhood)
			if err != nil {
				return nil, err
			}
			vec = append(vec, float64(code))
		case mapping.ColRoomType:
			code, err := mapping.EncodeRoomType(*in.RoomType)
			if err != nil {
				return nil, err
			}
			vec = append(vec, float64(code))
		case mapping.ColAccommodates:
			vec = append(vec, float64(*in.Accommodates))
		case mapping.ColBathrooms:
			vec = append(vec, *in.Bathrooms)
		case mapping.ColBedrooms:
			vec = append(vec, *in.Bedrooms)
		default:
			return nil, fmt.Errorf("%w: feature %q is not accepted by the endpoint", model.ErrSchemaMismatch, name)
		}
	}
	return vec, nil
}

func cacheKey(runID string, vec []float64) string {
	parts := make([]string, len(vec))
	for i, v := range vec {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return "prediction:" + runID + ":" + strings.Join(parts, ",")
}
