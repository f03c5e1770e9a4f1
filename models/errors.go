package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrModelUnavailable is returned by predictions while no model is loaded.
	ErrModelUnavailable = errors.New("prediction temporarily unavailable")

	// ErrInvalidPrediction is returned when the estimator output fails the
	// sanity checks.
	ErrInvalidPrediction = errors.New("could not compute an estimate for these inputs")
)

// SchemaError reports dataset columns required for training that are absent.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("dataset: missing required columns: %s", strings.Join(e.Missing, ", "))
}

// TrainingError wraps a failure that aborted a training run.
type TrainingError struct {
	Stage string
	Err   error
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("training: %s: %v", e.Stage, e.Err)
}

func (e *TrainingError) Unwrap() error { return e.Err }

// LoadError reports an artifact that could not be loaded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("artifact: load %q: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ValidationError names the request field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// PredictionError is returned when no estimate can be produced. Err is one of
// ErrModelUnavailable, ErrInvalidPrediction or the context error of a
// cancelled request.
type PredictionError struct {
	Err    error
	Detail string
}

func (e *PredictionError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Detail)
}

func (e *PredictionError) Unwrap() error { return e.Err }
