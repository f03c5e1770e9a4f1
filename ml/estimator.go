package ml

import (
	"fmt"
	"runtime"
)

// Kind identifies one of the supported regression estimators.
type Kind string

const (
	KindLinear           Kind = "linear"
	KindRandomForest     Kind = "random_forest"
	KindGradientBoosting Kind = "gradient_boosting"
)

// Kinds lists every estimator in simplicity order.
var Kinds = []Kind{KindLinear, KindRandomForest, KindGradientBoosting}

// Rank orders kinds from simplest to most expensive. Model selection uses it
// to break exact metric ties.
func (k Kind) Rank() int {
	switch k {
	case KindLinear:
		return 0
	case KindRandomForest:
		return 1
	case KindGradientBoosting:
		return 2
	default:
		return len(Kinds)
	}
}

// Valid reports whether k is a known estimator kind.
func (k Kind) Valid() bool { return k.Rank() < len(Kinds) }

// DisplayName is the human-readable estimator name.
func (k Kind) DisplayName() string {
	switch k {
	case KindLinear:
		return "Linear Regression"
	case KindRandomForest:
		return "Random Forest"
	case KindGradientBoosting:
		return "Gradient Boosting"
	default:
		return string(k)
	}
}

// AccuracyTier is the coarse accuracy label shown next to an estimate.
func (k Kind) AccuracyTier() string {
	switch k {
	case KindGradientBoosting:
		return "High"
	case KindRandomForest:
		return "Medium-High"
	case KindLinear:
		return "Medium"
	default:
		return "Basic"
	}
}

// Estimator is a regression model over an already-encoded feature matrix.
// Predict must not mutate the estimator so a fitted model can serve
// concurrent callers.
type Estimator interface {
	Kind() Kind
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) []float64
}

// Params carries the hyperparameters for every estimator kind. Fields that do
// not apply to a kind are ignored.
type Params struct {
	NEstimators     int     `yaml:"n_estimators" json:"n_estimators"`
	MaxDepth        int     `yaml:"max_depth" json:"max_depth"` // 0 => unlimited
	MinSamplesSplit int     `yaml:"min_samples_split" json:"min_samples_split"`
	MinSamplesLeaf  int     `yaml:"min_samples_leaf" json:"min_samples_leaf"`
	MaxFeatures     float64 `yaml:"max_features" json:"max_features"` // fraction of columns tried per split; 0 => all
	LearningRate    float64 `yaml:"learning_rate" json:"learning_rate"`
	Seed            int64   `yaml:"seed" json:"seed"`
	Workers         int     `yaml:"workers" json:"workers"`
}

// DefaultParams returns the hyperparameters used when a training config does
// not override them.
func DefaultParams(kind Kind) Params {
	p := Params{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Seed:            42,
		Workers:         runtime.GOMAXPROCS(0),
	}
	switch kind {
	case KindRandomForest:
		p.NEstimators = 100
	case KindGradientBoosting:
		p.NEstimators = 100
		p.MaxDepth = 3
		p.LearningRate = 0.1
	}
	return p
}

// New builds an unfitted estimator of the given kind.
func New(kind Kind, p Params) (Estimator, error) {
	switch kind {
	case KindLinear:
		return NewLinearRegression(), nil
	case KindRandomForest:
		return NewRandomForest(p), nil
	case KindGradientBoosting:
		return NewGradientBoosting(p), nil
	default:
		return nil, fmt.Errorf("ml: unknown estimator kind %q", kind)
	}
}
