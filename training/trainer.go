// Package training runs the offline fit-evaluate-select pipeline and writes
// the winning model as an artifact.
package training

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"rent-estimator/artifact"
	"rent-estimator/config"
	"rent-estimator/ml"
	"rent-estimator/models"
	"rent-estimator/services"
	"rent-estimator/storage"
	"rent-estimator/utils"
)

// Trainer fits every configured candidate on the same split and keeps the
// best one.
type Trainer struct {
	cfg     *config.TrainingConfig
	logger  *utils.Logger
	cleaner *services.Cleaner
	schema  models.FeatureSchema
	newID   func() string
}

// NewTrainer returns a Trainer. A nil cfg uses config.DefaultTrainingConfig.
func NewTrainer(cfg *config.TrainingConfig, logger *utils.Logger) *Trainer {
	if cfg == nil {
		cfg = config.DefaultTrainingConfig()
	}
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &Trainer{
		cfg:     cfg,
		logger:  logger,
		cleaner: services.NewCleaner(logger),
		schema:  models.DefaultSchema(),
		newID:   uuid.NewString,
	}
}

// dataset is the cleaned, column-split view of the training rows.
type dataset struct {
	numeric     [][]float64
	categorical [][]string
	target      []float64
}

func (d dataset) subset(idx []int) dataset {
	out := dataset{
		numeric:     make([][]float64, len(idx)),
		categorical: make([][]string, len(idx)),
		target:      make([]float64, len(idx)),
	}
	for k, i := range idx {
		out.numeric[k] = d.numeric[i]
		out.categorical[k] = d.categorical[i]
		out.target[k] = d.target[i]
	}
	return out
}

// candidate is one fitted (or failed) estimator of a run.
type candidate struct {
	report   models.CandidateReport
	kind     ml.Kind
	pipeline *ml.Pipeline
}

// Train reads datasetPath, fits and scores the candidates and atomically
// writes the winner to artifactPath. A missing column yields a
// *models.SchemaError; every other failure is a *models.TrainingError. On
// error no artifact is written and any previous one is left as is. The
// returned report is populated as far as the run got, even on error.
func (t *Trainer) Train(ctx context.Context, datasetPath, artifactPath string) (*models.TrainingReport, error) {
	report := &models.TrainingReport{
		DatasetPath:  datasetPath,
		ArtifactPath: artifactPath,
		StartedAt:    time.Now(),
	}
	defer func() { report.FinishedAt = time.Now() }()

	raw, err := storage.ReadDataset(datasetPath, t.schema)
	if err != nil {
		var schemaErr *models.SchemaError
		if errors.As(err, &schemaErr) {
			t.logger.Error("[train] Dataset %s is missing columns: %v", datasetPath, schemaErr.Missing)
			return report, schemaErr
		}
		return report, &models.TrainingError{Stage: "load", Err: err}
	}
	report.RowsRead = len(raw)
	t.logger.Info("[train] Read %d rows from %s", len(raw), datasetPath)

	cleaned := t.cleaner.CleanDataset(raw)
	report.RowsDropped = cleaned.Dropped
	if cleaned.Dropped > 0 {
		t.logger.Warn("[train] Dropped %d of %d rows during cleaning: %v",
			cleaned.Dropped, len(raw), cleaned.Reasons)
	}

	data := toDataset(cleaned.Records)
	split := t.cfg.Split
	if keep := ml.SampleRows(len(data.target), split.SampleRows, split.Seed); len(keep) < len(data.target) {
		t.logger.Info("[train] Sampling %d of %d cleaned rows", len(keep), len(data.target))
		data = data.subset(keep)
	}

	trainIdx, testIdx, err := ml.TrainTestSplit(len(data.target), split.TestRatio, split.Seed)
	if err != nil {
		return report, &models.TrainingError{Stage: "split", Err: err}
	}
	train, test := data.subset(trainIdx), data.subset(testIdx)
	report.TrainRows, report.TestRows = len(trainIdx), len(testIdx)
	t.logger.Info("[train] Split %d rows → train %d / test %d (seed %d)",
		len(data.target), len(trainIdx), len(testIdx), split.Seed)

	candidates, err := t.fitCandidates(ctx, train, test)
	if err != nil {
		return report, &models.TrainingError{Stage: "fit", Err: err}
	}
	for _, c := range candidates {
		report.Candidates = append(report.Candidates, c.report)
	}

	best, err := selectBest(candidates)
	if err != nil {
		return report, &models.TrainingError{Stage: "select", Err: err}
	}
	report.Selected = string(best.kind)
	t.logger.Info("[train] Selected %s (R² %.4f, RMSE %.2f)",
		best.kind, best.report.R2, best.report.RMSE)

	modelID := t.newID()
	a, err := artifact.New(modelID, best.pipeline, artifact.Metrics{
		R2:   best.report.R2,
		RMSE: best.report.RMSE,
		MAE:  best.report.MAE,
	})
	if err != nil {
		return report, &models.TrainingError{Stage: "persist", Err: err}
	}
	a.TrainRows, a.TestRows = report.TrainRows, report.TestRows
	for _, c := range candidates {
		s := artifact.CandidateSummary{Kind: c.kind}
		if c.report.Failed() {
			s.Error = c.report.Err.Error()
		} else {
			s.Metrics = artifact.Metrics{R2: c.report.R2, RMSE: c.report.RMSE, MAE: c.report.MAE}
		}
		a.Candidates = append(a.Candidates, s)
	}

	if err := artifact.Save(artifactPath, a); err != nil {
		return report, &models.TrainingError{Stage: "persist", Err: err}
	}
	report.ModelID = modelID
	t.logger.Info("[train] Model %s written to %s", modelID, artifactPath)
	return report, nil
}

// fitCandidates trains every configured candidate concurrently. A candidate
// that fails is reported, not fatal; only cancellation aborts the run.
func (t *Trainer) fitCandidates(ctx context.Context, train, test dataset) ([]*candidate, error) {
	out := make([]*candidate, len(t.cfg.Candidates))

	g, gctx := errgroup.WithContext(ctx)
	if t.cfg.Parallelism > 0 {
		g.SetLimit(t.cfg.Parallelism)
	}
	for i, cc := range t.cfg.Candidates {
		params := t.cfg.ParamsFor(cc)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = t.fitOne(cc.Kind, params, train, test)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Trainer) fitOne(kind ml.Kind, params ml.Params, train, test dataset) (c *candidate) {
	log := t.logger.With("candidate", kind)
	start := time.Now()
	c = &candidate{kind: kind, report: models.CandidateReport{Kind: string(kind)}}

	defer func() {
		if r := recover(); r != nil {
			c.pipeline = nil
			c.report.Err = fmt.Errorf("panic during fit: %v", r)
		}
		c.report.Duration = time.Since(start)
		if c.report.Failed() {
			log.Warn("[train] Candidate failed after %s: %v", c.report.Duration, c.report.Err)
		}
	}()

	est, err := ml.New(kind, params)
	if err != nil {
		c.report.Err = err
		return c
	}
	pipe := ml.NewPipeline(t.schema, est)
	if err := pipe.Fit(train.numeric, train.categorical, train.target); err != nil {
		c.report.Err = err
		return c
	}
	pred, err := pipe.Predict(test.numeric, test.categorical)
	if err != nil {
		c.report.Err = err
		return c
	}

	c.report.R2 = ml.R2(test.target, pred)
	c.report.RMSE = ml.RMSE(test.target, pred)
	c.report.MAE = ml.MAE(test.target, pred)
	if !finite(c.report.R2) || !finite(c.report.RMSE) || !finite(c.report.MAE) {
		c.report.Err = fmt.Errorf("non-finite metrics (R² %v, RMSE %v)", c.report.R2, c.report.RMSE)
		return c
	}
	c.pipeline = pipe
	log.Info("[train] R² %.4f | RMSE %.2f | MAE %.2f | %s",
		c.report.R2, c.report.RMSE, c.report.MAE, time.Since(start).Round(time.Millisecond))
	return c
}

// selectBest picks the candidate with the strictly highest R². Exact ties go
// to the simpler kind.
func selectBest(cands []*candidate) (*candidate, error) {
	var best *candidate
	for _, c := range cands {
		if c == nil || c.report.Failed() || c.pipeline == nil {
			continue
		}
		if best == nil ||
			c.report.R2 > best.report.R2 ||
			(c.report.R2 == best.report.R2 && c.kind.Rank() < best.kind.Rank()) {
			best = c
		}
	}
	if best == nil {
		return nil, errors.New("every candidate failed to fit")
	}
	return best, nil
}

func toDataset(records []models.TrainingRecord) dataset {
	d := dataset{
		numeric:     make([][]float64, len(records)),
		categorical: make([][]string, len(records)),
		target:      make([]float64, len(records)),
	}
	for i, r := range records {
		d.numeric[i] = r.Numeric()
		d.categorical[i] = r.Categorical()
		d.target[i] = r.Rent
	}
	return d
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
