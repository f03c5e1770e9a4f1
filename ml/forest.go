package ml

import (
	"errors"
	"fmt"
	"math/rand"

	"rent-estimator/utils"
)

// RandomForest averages regression trees grown on bootstrap samples. Tree i is
// seeded with Seed+i, so a fit is reproducible regardless of scheduling.
type RandomForest struct {
	Params Params            `json:"params"`
	Trees  []*RegressionTree `json:"trees"`
}

// NewRandomForest returns an unfitted forest.
func NewRandomForest(p Params) *RandomForest {
	if p.NEstimators <= 0 {
		p.NEstimators = 100
	}
	return &RandomForest{Params: p}
}

func (rf *RandomForest) Kind() Kind { return KindRandomForest }

// Fit grows every tree in parallel on a bounded worker pool.
func (rf *RandomForest) Fit(X [][]float64, y []float64) error {
	n, p, err := checkXY(X, y)
	if err != nil {
		return fmt.Errorf("randomforest: %w", err)
	}

	trees := make([]*RegressionTree, rf.Params.NEstimators)
	pool := utils.NewWorkerPool(rf.Params.Workers)

	for i := range trees {
		pool.Submit(func() error {
			seed := rf.Params.Seed + int64(i)
			rnd := rand.New(rand.NewSource(seed))
			sample := make([]int, n)
			for j := range sample {
				sample[j] = rnd.Intn(n)
			}
			tree := newRegressionTree(rf.Params, p, seed)
			tree.fit(X, y, sample)
			trees[i] = tree
			return nil
		})
	}
	if err := pool.Wait(); err != nil {
		return fmt.Errorf("randomforest: %w", err)
	}

	rf.Trees = trees
	return nil
}

// Predict returns the mean of the per-tree predictions.
func (rf *RandomForest) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	if len(rf.Trees) == 0 {
		return out
	}
	for i, row := range X {
		sum := 0.0
		for _, t := range rf.Trees {
			sum += t.PredictRow(row)
		}
		out[i] = sum / float64(len(rf.Trees))
	}
	return out
}

// GradientBoosting fits shallow regression trees to the residuals of the
// running prediction, shrinking each step by LearningRate.
type GradientBoosting struct {
	Params Params            `json:"params"`
	Init   float64           `json:"init"`
	Trees  []*RegressionTree `json:"trees"`
}

// NewGradientBoosting returns an unfitted booster.
func NewGradientBoosting(p Params) *GradientBoosting {
	if p.NEstimators <= 0 {
		p.NEstimators = 100
	}
	if p.LearningRate <= 0 {
		p.LearningRate = 0.1
	}
	if p.MaxDepth <= 0 {
		p.MaxDepth = 3
	}
	return &GradientBoosting{Params: p}
}

func (gb *GradientBoosting) Kind() Kind { return KindGradientBoosting }

// Fit runs NEstimators boosting rounds under squared loss.
func (gb *GradientBoosting) Fit(X [][]float64, y []float64) error {
	n, p, err := checkXY(X, y)
	if err != nil {
		return fmt.Errorf("gradientboosting: %w", err)
	}
	if gb.Params.LearningRate > 1 {
		return errors.New("gradientboosting: learning rate must be in (0, 1]")
	}

	init := 0.0
	for _, v := range y {
		init += v
	}
	init /= float64(n)

	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	pred := make([]float64, n)
	for i := range pred {
		pred[i] = init
	}
	resid := make([]float64, n)

	trees := make([]*RegressionTree, 0, gb.Params.NEstimators)
	for m := 0; m < gb.Params.NEstimators; m++ {
		for i := range resid {
			resid[i] = y[i] - pred[i]
		}
		tree := newRegressionTree(gb.Params, p, gb.Params.Seed+int64(m))
		tree.fit(X, resid, all)
		for i, row := range X {
			pred[i] += gb.Params.LearningRate * tree.PredictRow(row)
		}
		trees = append(trees, tree)
	}

	gb.Init = init
	gb.Trees = trees
	return nil
}

// Predict returns Init plus the shrunken sum of every tree.
func (gb *GradientBoosting) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		sum := gb.Init
		for _, t := range gb.Trees {
			sum += gb.Params.LearningRate * t.PredictRow(row)
		}
		out[i] = sum
	}
	return out
}
