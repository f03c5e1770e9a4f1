package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"rent-estimator/ml"
)

// TrainingConfig controls one offline training run. It is read from YAML:
//
//	split:
//	  test_ratio: 0.2
//	  seed: 42
//	  sample_rows: 500000
//	parallelism: 3
//	candidates:
//	  - kind: linear
//	  - kind: random_forest
//	    params: {n_estimators: 100}
type TrainingConfig struct {
	Split       SplitConfig       `yaml:"split"`
	Parallelism int               `yaml:"parallelism"`
	Candidates  []CandidateConfig `yaml:"candidates"`
}

// SplitConfig describes the train/test partition.
type SplitConfig struct {
	TestRatio  float64 `yaml:"test_ratio"`
	Seed       int64   `yaml:"seed"`
	SampleRows int     `yaml:"sample_rows"` // 0 => use every cleaned row
}

// CandidateConfig names one estimator to try and optionally overrides its
// hyperparameters.
type CandidateConfig struct {
	Kind   ml.Kind    `yaml:"kind"`
	Params *ml.Params `yaml:"params"`
}

// DefaultTrainingConfig tries every estimator kind with default
// hyperparameters on an 80/20 split seeded with 42.
func DefaultTrainingConfig() *TrainingConfig {
	cfg := &TrainingConfig{
		Split:       SplitConfig{TestRatio: 0.2, Seed: 42},
		Parallelism: len(ml.Kinds),
	}
	for _, k := range ml.Kinds {
		cfg.Candidates = append(cfg.Candidates, CandidateConfig{Kind: k})
	}
	return cfg
}

// LoadTrainingConfig reads path. An empty path returns the defaults.
func LoadTrainingConfig(path string) (*TrainingConfig, error) {
	if path == "" {
		return DefaultTrainingConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	cfg := DefaultTrainingConfig()
	cfg.Candidates = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(cfg.Candidates) == 0 {
		cfg.Candidates = DefaultTrainingConfig().Candidates
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and candidate kinds.
func (c *TrainingConfig) Validate() error {
	if c.Split.TestRatio <= 0 || c.Split.TestRatio >= 1 {
		return fmt.Errorf("split.test_ratio %v outside (0, 1)", c.Split.TestRatio)
	}
	if c.Split.SampleRows < 0 {
		return fmt.Errorf("split.sample_rows must not be negative")
	}
	seen := make(map[ml.Kind]bool)
	for _, cand := range c.Candidates {
		if !cand.Kind.Valid() {
			return fmt.Errorf("unknown candidate kind %q", cand.Kind)
		}
		if seen[cand.Kind] {
			return fmt.Errorf("candidate %q listed twice", cand.Kind)
		}
		seen[cand.Kind] = true
	}
	return nil
}

// ParamsFor resolves the hyperparameters for a candidate: the kind defaults,
// overridden by any non-zero field in the YAML, with the split seed used when
// the candidate does not set its own.
func (c *TrainingConfig) ParamsFor(cand CandidateConfig) ml.Params {
	p := ml.DefaultParams(cand.Kind)
	p.Seed = c.Split.Seed
	if o := cand.Params; o != nil {
		if o.NEstimators > 0 {
			p.NEstimators = o.NEstimators
		}
		if o.MaxDepth > 0 {
			p.MaxDepth = o.MaxDepth
		}
		if o.MinSamplesSplit > 0 {
			p.MinSamplesSplit = o.MinSamplesSplit
		}
		if o.MinSamplesLeaf > 0 {
			p.MinSamplesLeaf = o.MinSamplesLeaf
		}
		if o.MaxFeatures > 0 {
			p.MaxFeatures = o.MaxFeatures
		}
		if o.LearningRate > 0 {
			p.LearningRate = o.LearningRate
		}
		if o.Seed != 0 {
			p.Seed = o.Seed
		}
		if o.Workers > 0 {
			p.Workers = o.Workers
		}
	}
	return p
}
