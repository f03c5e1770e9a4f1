// Package inference serves rent estimates from a trained artifact.
package inference

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"rent-estimator/artifact"
	"rent-estimator/metrics"
	"rent-estimator/ml"
	"rent-estimator/models"
	"rent-estimator/utils"
)

// State is the lifecycle state of a Service. It is fixed at load time.
type State int

const (
	StateUnavailable State = iota
	StateReady
)

func (s State) String() string {
	if s == StateReady {
		return "ready"
	}
	return "unavailable"
}

// Options configures a Service.
type Options struct {
	Limits      Limits
	Logger      *utils.Logger
	Comparables *Comparables
}

// Service predicts rents with one loaded pipeline. The pipeline is never
// modified after construction, so every method is safe for concurrent use.
type Service struct {
	state       State
	artifact    *artifact.Artifact
	pipeline    *ml.Pipeline
	loadErr     error
	limits      Limits
	logger      *utils.Logger
	comparables *Comparables
}

// CategoryChoices lists the values offered for one categorical feature.
type CategoryChoices struct {
	Feature string   `json:"feature"`
	Values  []string `json:"values"`
}

// Load reads the artifact at path. The returned Service is never nil: when
// loading fails it is Unavailable and the *models.LoadError is also returned,
// so the host process can keep running and report the condition.
func Load(path string, opts Options) (*Service, error) {
	s := newService(opts)

	a, err := artifact.Load(path)
	if err != nil {
		s.loadErr = err
		s.logger.Error("[inference] Model unavailable: %v", err)
		metrics.SetModelReady(false)
		return s, err
	}
	if err := s.install(a); err != nil {
		lerr := &models.LoadError{Path: path, Err: err}
		s.loadErr = lerr
		s.logger.Error("[inference] Model unavailable: %v", lerr)
		metrics.SetModelReady(false)
		return s, lerr
	}
	s.logger.Info("[inference] Loaded %s model %s from %s (R² %.4f)",
		a.Kind, a.ModelID, path, a.Metrics.R2)
	metrics.SetModelReady(true)
	return s, nil
}

// NewService serves an artifact already in memory.
func NewService(a *artifact.Artifact, opts Options) (*Service, error) {
	s := newService(opts)
	if err := s.install(a); err != nil {
		s.loadErr = &models.LoadError{Err: err}
		return s, s.loadErr
	}
	return s, nil
}

func newService(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = utils.NopLogger()
	}
	if opts.Limits.MaxSize <= 0 || opts.Limits.MaxRent <= 0 {
		def := DefaultLimits()
		if opts.Limits.MaxSize <= 0 {
			opts.Limits.MaxSize = def.MaxSize
		}
		if opts.Limits.MaxRent <= 0 {
			opts.Limits.MaxRent = def.MaxRent
		}
	}
	return &Service{
		state:       StateUnavailable,
		limits:      opts.Limits,
		logger:      opts.Logger,
		comparables: opts.Comparables,
	}
}

func (s *Service) install(a *artifact.Artifact) error {
	if a == nil {
		return errors.New("nil artifact")
	}
	if !a.Schema.Equal(models.DefaultSchema()) {
		return fmt.Errorf("artifact feature schema %v does not match %v", a.Schema.Features(), models.DefaultSchema().Features())
	}
	p, err := a.Pipeline()
	if err != nil {
		return err
	}
	s.artifact = a
	s.pipeline = p
	s.state = StateReady
	return nil
}

// State reports whether predictions are served.
func (s *Service) State() State { return s.state }

// LoadErr is the error that left the service Unavailable, if any.
func (s *Service) LoadErr() error { return s.loadErr }

// ModelID is the id of the loaded model, or "".
func (s *Service) ModelID() string {
	if s.artifact == nil {
		return ""
	}
	return s.artifact.ModelID
}

// Kind is the loaded estimator kind, or "".
func (s *Service) Kind() ml.Kind {
	if s.artifact == nil {
		return ""
	}
	return s.artifact.Kind
}

// Metrics are the held-out scores recorded at training time.
func (s *Service) Metrics() artifact.Metrics {
	if s.artifact == nil {
		return artifact.Metrics{}
	}
	return s.artifact.Metrics
}

// Predict validates req and returns the estimated monthly rent. Invalid input
// yields a *models.ValidationError; an Unavailable service, an unusable
// estimator output or a cancelled ctx yields a *models.PredictionError.
func (s *Service) Predict(ctx context.Context, req *models.PredictionRequest) (*models.PredictionResult, error) {
	start := time.Now()
	model := string(s.Kind())
	if model == "" {
		model = "none"
	}

	if req == nil {
		return nil, &models.ValidationError{Field: "request", Message: "is required"}
	}
	if err := ValidateRequest(req, s.limits); err != nil {
		metrics.RecordPrediction(model, "invalid_input", 0, 0)
		return nil, err
	}
	if s.state != StateReady {
		metrics.RecordPrediction(model, "unavailable", 0, 0)
		return nil, &models.PredictionError{Err: models.ErrModelUnavailable}
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordPrediction(model, "cancelled", 0, 0)
		return nil, &models.PredictionError{Err: err}
	}

	value, err := s.pipeline.PredictOne(req.Numeric(), req.Categorical())
	if err != nil {
		metrics.RecordPrediction(model, "invalid_output", 0, 0)
		s.logger.Error("[inference] Pipeline error: %v", err)
		return nil, &models.PredictionError{Err: models.ErrInvalidPrediction, Detail: err.Error()}
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 || value > s.limits.MaxRent {
		metrics.RecordPrediction(model, "invalid_output", 0, 0)
		s.logger.Warn("[inference] Rejected estimate %v for %+v", value, *req)
		return nil, &models.PredictionError{
			Err:    models.ErrInvalidPrediction,
			Detail: fmt.Sprintf("estimate %v outside [0, %g]", value, s.limits.MaxRent),
		}
	}

	value = math.Round(value*100) / 100
	metrics.RecordPrediction(model, "ok", time.Since(start), value)
	return &models.PredictionResult{
		PredictedRent: value,
		ModelUsed:     s.artifact.Kind.DisplayName(),
		ModelID:       s.artifact.ModelID,
		AccuracyTier:  s.artifact.Kind.AccuracyTier(),
	}, nil
}

// FindComparables returns listings priced near predicted. It works whether or
// not a model is loaded.
func (s *Service) FindComparables(ctx context.Context, predicted float64, filters models.ComparableFilters) ([]*models.Listing, error) {
	return s.comparables.Find(ctx, predicted, filters)
}

// Categories returns, per categorical feature in schema order, the values
// learned at training time with models.AnyValue first. An Unavailable
// service returns nil.
func (s *Service) Categories() []CategoryChoices {
	if s.state != StateReady {
		return nil
	}
	pre := s.pipeline.Preprocessor
	out := make([]CategoryChoices, len(pre.Schema.Categorical))
	for j, name := range pre.Schema.Categorical {
		values := make([]string, 0, len(pre.Encoder.Categories[j])+1)
		values = append(values, models.AnyValue)
		for _, v := range pre.Encoder.Categories[j] {
			if v != models.AnyValue {
				values = append(values, v)
			}
		}
		out[j] = CategoryChoices{Feature: name, Values: slices.Clip(values)}
	}
	return out
}
