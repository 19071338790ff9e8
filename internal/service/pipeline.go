package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"pricetier/internal/dataset"
	"pricetier/internal/mapping"
	"pricetier/internal/model"
)

// ListingStore persists cleaned listings with their encoded vectors.
type ListingStore interface {
	SaveListings(ctx context.Context, listings []model.StoredListing) (int, error)
}

// PipelinePaths locates the input file and the per-run output folders.
type PipelinePaths struct {
	Source          string
	ProcessedFolder string
	ModelFolder     string
	ResultsFolder   string
}

// RunResult describes the outputs of one training run.
type RunResult struct {
	RunID         string
	ProcessedPath string
	ModelPath     string
	ReportPath    string
	Report        *model.EvaluationReport
}

// Pipeline runs a full training pass: read, clean, encode, split, train,
// evaluate and persist.
type Pipeline struct {
	paths     PipelinePaths
	training  TrainingConfig
	testRatio float64
	splitSeed int64
	store     ListingStore
	cleaner   *Cleaner
	encoder   *Encoder
	evaluator *Evaluator
	logger    *zap.Logger
	now       func() time.Time
}

// NewPipeline creates a Pipeline. store may be nil.
func NewPipeline(paths PipelinePaths, store ListingStore, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		paths:     paths,
		training:  DefaultTrainingConfig(),
		testRatio: dataset.DefaultTestRatio,
		splitSeed: dataset.DefaultSplitSeed,
		store:     store,
		cleaner:   NewCleaner(logger),
		encoder:   NewEncoder(logger),
		evaluator: NewEvaluator(logger),
		logger:    logger,
		now:       time.Now,
	}
}

// Run executes the pipeline. Output files share one timestamp suffix.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	stamp := p.now().Format("20060102_150405")

	table, err := dataset.ReadTable(p.paths.Source)
	if err != nil {
		return nil, err
	}
	p.logger.Info("File loaded",
		zap.String("path", p.paths.Source),
		zap.Int("rows", table.Len()),
		zap.Int("columns", len(table.Header)))

	listings, err := p.cleaner.Clean(table)
	if err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}

	res := &RunResult{
		ProcessedPath: filepath.Join(p.paths.ProcessedFolder, "processed_listings_"+stamp+".csv"),
		ModelPath:     filepath.Join(p.paths.ModelFolder, "model_"+stamp+".gob"),
		ReportPath:    filepath.Join(p.paths.ResultsFolder, "results_"+stamp+".json"),
	}

	if err := dataset.WriteListingsFile(res.ProcessedPath, listings); err != nil {
		return nil, err
	}
	p.logger.Info("Data saved", zap.String("path", res.ProcessedPath), zap.Int("rows", len(listings)))

	frame, stored := p.encoder.Encode(listings)
	if p.store != nil {
		saved, err := p.store.SaveListings(ctx, stored)
		if err != nil {
			return nil, fmt.Errorf("store listings: %w", err)
		}
		p.logger.Info("Listings stored", zap.Int("saved", saved))
	}

	split, err := dataset.Split(frame, mapping.FeatureNames, mapping.ColCategory, p.testRatio, p.splitSeed)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	p.logger.Info("Data split",
		zap.Int("train_rows", len(split.XTrain)),
		zap.Int("test_rows", len(split.XTest)),
		zap.Float64("test_ratio", p.testRatio),
		zap.Int64("seed", p.splitSeed))

	clf := NewClassifier(p.training, p.logger)
	if err := clf.Train(split.XTrain, split.YTrain); err != nil {
		return nil, err
	}
	res.RunID = clf.RunID()

	report, err := p.evaluator.Evaluate(clf, split.XTest, split.YTest)
	if err != nil {
		return nil, err
	}
	res.Report = report

	if err := clf.Save(res.ModelPath); err != nil {
		return nil, err
	}
	if err := WriteReport(res.ReportPath, report); err != nil {
		return nil, err
	}
	p.logger.Info("Training run complete",
		zap.String("run_id", res.RunID),
		zap.String("model", res.ModelPath),
		zap.String("report", res.ReportPath))
	return res, nil
}

// WriteReport writes the evaluation report as indented JSON.
func WriteReport(path string, report *model.EvaluationReport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
