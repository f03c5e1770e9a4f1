package models

import "time"

// CandidateReport holds the held-out evaluation of one fitted candidate.
type CandidateReport struct {
	Kind     string
	R2       float64
	RMSE     float64
	MAE      float64
	Duration time.Duration
	Err      error
}

// Failed reports whether the candidate could not be fit or scored.
func (c CandidateReport) Failed() bool { return c.Err != nil }

// TrainingReport summarises one training run.
type TrainingReport struct {
	DatasetPath  string
	ArtifactPath string
	ModelID      string
	RowsRead     int
	RowsDropped  int
	TrainRows    int
	TestRows     int
	Candidates   []CandidateReport
	Selected     string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Best returns the report of the selected candidate, or nil.
func (r *TrainingReport) Best() *CandidateReport {
	for i := range r.Candidates {
		if r.Candidates[i].Kind == r.Selected {
			return &r.Candidates[i]
		}
	}
	return nil
}
