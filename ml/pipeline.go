package ml

import (
	"errors"
	"fmt"

	"rent-estimator/models"
)

// Pipeline is a preprocessor followed by an estimator. Once fitted it is
// read-only and safe for concurrent Predict calls.
type Pipeline struct {
	Preprocessor *Preprocessor
	Estimator    Estimator
}

// NewPipeline pairs a fresh preprocessor for schema with est.
func NewPipeline(schema models.FeatureSchema, est Estimator) *Pipeline {
	return &Pipeline{Preprocessor: NewPreprocessor(schema), Estimator: est}
}

// Fit learns the preprocessor on the given rows, then fits the estimator on
// the encoded matrix.
func (p *Pipeline) Fit(numeric [][]float64, categorical [][]string, y []float64) error {
	if err := p.Preprocessor.Fit(numeric, categorical); err != nil {
		return err
	}
	X, err := p.Preprocessor.Transform(numeric, categorical)
	if err != nil {
		return err
	}
	return p.Estimator.Fit(X, y)
}

// Predict encodes the rows with the fitted preprocessor and predicts them.
func (p *Pipeline) Predict(numeric [][]float64, categorical [][]string) ([]float64, error) {
	if p.Estimator == nil {
		return nil, errors.New("pipeline: no estimator")
	}
	X, err := p.Preprocessor.Transform(numeric, categorical)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return p.Estimator.Predict(X), nil
}

// PredictOne predicts a single row.
func (p *Pipeline) PredictOne(numeric []float64, categorical []string) (float64, error) {
	out, err := p.Predict([][]float64{numeric}, [][]string{categorical})
	if err != nil {
		return 0, err
	}
	return out[0], nil
}

// Kind is the estimator kind.
func (p *Pipeline) Kind() Kind { return p.Estimator.Kind() }
