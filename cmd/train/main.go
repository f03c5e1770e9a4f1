// Command train fits the candidate rent models on a CSV dataset, keeps the
// best one and writes it as a model artifact.
//
//	train [-config training.yaml] [-artifact model.json] [-report runs.csv] [dataset.csv]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"rent-estimator/config"
	"rent-estimator/metrics"
	"rent-estimator/models"
	"rent-estimator/services"
	"rent-estimator/storage"
	"rent-estimator/training"
	"rent-estimator/utils"
)

func main() {
	cfg := config.Load()

	dataset := flag.String("dataset", cfg.DatasetPath, "training dataset CSV")
	artifactPath := flag.String("artifact", cfg.ArtifactPath, "where to write the model artifact")
	trainingConfig := flag.String("config", cfg.TrainingConfig, "training YAML (split, candidates, hyper-parameters)")
	reportPath := flag.String("report", cfg.ReportPath, "optional CSV for the per-candidate run summary")
	flag.Parse()
	if flag.NArg() > 0 {
		*dataset = flag.Arg(0)
	}

	logger := utils.NewLoggerWithOptions(utils.LoggerOptions{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info("=== Rent model training starting ===")

	tc, err := config.LoadTrainingConfig(*trainingConfig)
	if err != nil {
		logger.Error("Invalid training config: %v", err)
		os.Exit(1)
	}
	logger.Info("Config: dataset %s | artifact %s | test ratio %.2f | seed %d | parallelism %d",
		*dataset, *artifactPath, tc.Split.TestRatio, tc.Split.Seed, tc.Parallelism)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	trainer := training.NewTrainer(tc, logger)
	report, err := trainer.Train(ctx, *dataset, *artifactPath)
	metrics.RecordTraining(err, report.RowsDropped)

	services.NewInsightService(logger).Print(report)

	if *reportPath != "" {
		if werr := writeReport(*reportPath, report); werr != nil {
			logger.Error("Failed to write run report: %v", werr)
		} else {
			logger.Info("Run report written to %s", *reportPath)
		}
	}

	if err != nil {
		logger.Error("Training failed: %v", err)
		os.Exit(1)
	}
	fmt.Printf("  Done. Model %s → %s\n\n", report.ModelID, *artifactPath)
}

func writeReport(path string, report *models.TrainingReport) error {
	w, err := storage.NewCSVWriter(path)
	if err != nil {
		return err
	}
	defer w.Close()
	return w.WriteReport(report)
}
