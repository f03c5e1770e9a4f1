package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"rent-estimator/models"
)

// CSVWriter writes training run summaries to a CSV file, one row per
// candidate. It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)

	// Write header
	if err := w.Write([]string{
		"model_id", "candidate", "selected", "r2", "rmse", "mae", "duration_ms", "error",
		"rows_read", "rows_dropped", "train_rows", "test_rows", "finished_at",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteReport appends one row per candidate of r.
func (c *CSVWriter) WriteReport(r *models.TrainingReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, cand := range r.Candidates {
		errText := ""
		if cand.Err != nil {
			errText = cand.Err.Error()
		}
		row := []string{
			r.ModelID,
			cand.Kind,
			strconv.FormatBool(cand.Kind == r.Selected),
			formatMetric(cand.R2, cand.Failed()),
			formatMetric(cand.RMSE, cand.Failed()),
			formatMetric(cand.MAE, cand.Failed()),
			strconv.FormatInt(cand.Duration.Milliseconds(), 10),
			errText,
			strconv.Itoa(r.RowsRead),
			strconv.Itoa(r.RowsDropped),
			strconv.Itoa(r.TrainRows),
			strconv.Itoa(r.TestRows),
			r.FinishedAt.Format(time.RFC3339),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

func formatMetric(v float64, failed bool) string {
	if failed {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
