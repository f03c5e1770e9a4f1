package services

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"rent-estimator/models"
	"rent-estimator/utils"
)

// InsightService summarises a training run for the console.
type InsightService struct {
	logger *utils.Logger
	out    io.Writer
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger, out: os.Stdout}
}

// WithOutput redirects Print, mainly for tests.
func (s *InsightService) WithOutput(w io.Writer) *InsightService {
	s.out = w
	return s
}

// Ranked returns the candidates ordered as the selector saw them: successful
// fits by descending R², then failures, in input order otherwise.
func (s *InsightService) Ranked(r *models.TrainingReport) []models.CandidateReport {
	out := make([]models.CandidateReport, len(r.Candidates))
	copy(out, r.Candidates)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Failed() != b.Failed() {
			return !a.Failed()
		}
		if a.Failed() {
			return false
		}
		return a.R2 > b.R2
	})
	return out
}

func (s *InsightService) Print(r *models.TrainingReport) {
	w := s.out
	sep := strings.Repeat("═", 62)
	thin := strings.Repeat("─", 62)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  🏠 RENT MODEL TRAINING SUMMARY\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Dataset\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Source        : %s\n", r.DatasetPath)
	fmt.Fprintf(w, "  Rows read     : \033[1m%d\033[0m\n", r.RowsRead)
	fmt.Fprintf(w, "  Rows dropped  : \033[1m%d\033[0m\n", r.RowsDropped)
	fmt.Fprintf(w, "  Train / test  : \033[1m%d / %d\033[0m\n", r.TrainRows, r.TestRows)
	fmt.Fprintln(w)

	// Candidates
	fmt.Fprintf(w, "\033[1;33m  Candidates (held-out test set)\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  %-20s %10s %12s %12s %8s\n", "model", "R²", "RMSE", "MAE", "time")
	for _, c := range s.Ranked(r) {
		marker := " "
		if c.Kind == r.Selected {
			marker = "\033[1;32m★\033[0m"
		}
		if c.Failed() {
			fmt.Fprintf(w, "%s %-20s \033[1;31mfailed: %s\033[0m\n", marker, c.Kind, truncate(c.Err.Error(), 36))
			continue
		}
		fmt.Fprintf(w, "%s %-20s %10.4f %12.2f %12.2f %8s\n",
			marker, c.Kind, c.R2, c.RMSE, c.MAE, c.Duration.Round(time.Millisecond))
	}
	fmt.Fprintln(w)

	// Selection
	if best := r.Best(); best != nil {
		s.logger.Debug("[insights] Printing summary for model %s", r.ModelID)
		fmt.Fprintf(w, "\033[1;33m  Selected Model\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  Model    : \033[1;32m%s\033[0m (R² %.4f)\n", best.Kind, best.R2)
		fmt.Fprintf(w, "  Model ID : %s\n", r.ModelID)
		fmt.Fprintf(w, "  Artifact : %s\n", r.ArtifactPath)
		fmt.Fprintf(w, "  Took     : %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	} else {
		fmt.Fprintf(w, "  \033[1;31mNo model selected\033[0m\n")
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
