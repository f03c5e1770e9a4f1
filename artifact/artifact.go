// Package artifact persists a fitted pipeline with the metadata needed to
// serve it: feature schema, held-out metrics and model id.
package artifact

import (
	"errors"
	"fmt"
	"time"

	"rent-estimator/ml"
	"rent-estimator/models"
)

// FormatVersion is bumped whenever the on-disk layout changes incompatibly.
const FormatVersion = 1

// Metrics are the held-out scores of a fitted candidate.
type Metrics struct {
	R2   float64 `json:"r2"`
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
}

// CandidateSummary records how every candidate of the run scored, so the
// artifact documents why its model won.
type CandidateSummary struct {
	Kind    ml.Kind `json:"kind"`
	Metrics Metrics `json:"metrics"`
	Error   string  `json:"error,omitempty"`
}

// Artifact is the persisted model. Exactly one of Linear, Forest and Boosted
// is set, matching Kind.
type Artifact struct {
	FormatVersion int                  `json:"format_version"`
	ModelID       string               `json:"model_id"`
	CreatedAt     time.Time            `json:"created_at"`
	Kind          ml.Kind              `json:"kind"`
	Schema        models.FeatureSchema `json:"schema"`
	Preprocessor  *ml.Preprocessor     `json:"preprocessor"`
	Metrics       Metrics              `json:"metrics"`
	TrainRows     int                  `json:"train_rows"`
	TestRows      int                  `json:"test_rows"`
	Candidates    []CandidateSummary   `json:"candidates,omitempty"`

	Linear  *ml.LinearRegression `json:"linear,omitempty"`
	Forest  *ml.RandomForest     `json:"random_forest,omitempty"`
	Boosted *ml.GradientBoosting `json:"gradient_boosting,omitempty"`
}

// New packages a fitted pipeline.
func New(modelID string, p *ml.Pipeline, m Metrics) (*Artifact, error) {
	if p == nil || p.Preprocessor == nil || p.Estimator == nil {
		return nil, errors.New("artifact: incomplete pipeline")
	}
	a := &Artifact{
		FormatVersion: FormatVersion,
		ModelID:       modelID,
		CreatedAt:     time.Now().UTC(),
		Kind:          p.Kind(),
		Schema:        p.Preprocessor.Schema,
		Preprocessor:  p.Preprocessor,
		Metrics:       m,
	}
	switch est := p.Estimator.(type) {
	case *ml.LinearRegression:
		a.Linear = est
	case *ml.RandomForest:
		a.Forest = est
	case *ml.GradientBoosting:
		a.Boosted = est
	default:
		return nil, fmt.Errorf("artifact: unsupported estimator %T", p.Estimator)
	}
	return a, nil
}

// Pipeline rebuilds the fitted pipeline. It validates the artifact first.
func (a *Artifact) Pipeline() (*ml.Pipeline, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &ml.Pipeline{Preprocessor: a.Preprocessor, Estimator: a.estimator()}, nil
}

func (a *Artifact) estimator() ml.Estimator {
	switch a.Kind {
	case ml.KindLinear:
		if a.Linear != nil {
			return a.Linear
		}
	case ml.KindRandomForest:
		if a.Forest != nil {
			return a.Forest
		}
	case ml.KindGradientBoosting:
		if a.Boosted != nil {
			return a.Boosted
		}
	}
	return nil
}

// Validate checks that the artifact is internally consistent: known kind,
// matching payload, fitted preprocessor and estimator dimensions that agree
// with the encoded width.
func (a *Artifact) Validate() error {
	if a.FormatVersion != FormatVersion {
		return fmt.Errorf("unsupported format version %d", a.FormatVersion)
	}
	if !a.Kind.Valid() {
		return fmt.Errorf("unknown model kind %q", a.Kind)
	}
	est := a.estimator()
	if est == nil {
		return fmt.Errorf("no %s payload", a.Kind)
	}
	if a.Preprocessor == nil || !a.Preprocessor.Fitted() {
		return errors.New("preprocessor missing or unfitted")
	}
	if !a.Preprocessor.Schema.Equal(a.Schema) {
		return errors.New("preprocessor schema differs from artifact schema")
	}

	width := a.Preprocessor.Width()
	switch m := est.(type) {
	case *ml.LinearRegression:
		if len(m.Coef) != width {
			return fmt.Errorf("linear model has %d coefficients, encoded width is %d", len(m.Coef), width)
		}
	case *ml.RandomForest:
		if len(m.Trees) == 0 {
			return errors.New("random forest has no trees")
		}
		for i, t := range m.Trees {
			if err := checkTree(t, width); err != nil {
				return fmt.Errorf("tree %d: %w", i, err)
			}
		}
	case *ml.GradientBoosting:
		for i, t := range m.Trees {
			if err := checkTree(t, width); err != nil {
				return fmt.Errorf("tree %d: %w", i, err)
			}
		}
	}
	return nil
}

func checkTree(t *ml.RegressionTree, width int) error {
	if t == nil || len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	n := len(t.Nodes)
	for i, node := range t.Nodes {
		if node.Left < 0 {
			continue
		}
		if node.Feature < 0 || node.Feature >= width {
			return fmt.Errorf("node %d splits on feature %d, encoded width is %d", i, node.Feature, width)
		}
		// children are always appended after their parent
		if node.Left <= i || node.Left >= n || node.Right <= i || node.Right >= n {
			return fmt.Errorf("node %d has invalid children %d/%d", i, node.Left, node.Right)
		}
	}
	return nil
}
