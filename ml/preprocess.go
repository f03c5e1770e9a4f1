package ml

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"gonum.org/v1/gonum/stat"

	"rent-estimator/models"
)

// StandardScaler rescales each numeric column to zero mean and unit variance
// using the population standard deviation of the data it was fit on.
type StandardScaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// Fit learns per-column mean and standard deviation. A constant column gets a
// std of 1 so it transforms to zero instead of dividing by zero.
func (s *StandardScaler) Fit(X [][]float64) error {
	if len(X) == 0 {
		return errors.New("scaler: empty input")
	}
	cols := len(X[0])
	s.Mean = make([]float64, cols)
	s.Std = make([]float64, cols)
	col := make([]float64, len(X))
	for j := 0; j < cols; j++ {
		for i, row := range X {
			if len(row) != cols {
				return fmt.Errorf("scaler: row %d has %d columns, want %d", i, len(row), cols)
			}
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j], s.Std[j] = mean, std
	}
	return nil
}

// TransformRow writes the scaled values of row into dst.
func (s *StandardScaler) TransformRow(row, dst []float64) {
	for j, v := range row {
		dst[j] = (v - s.Mean[j]) / s.Std[j]
	}
}

// OneHotEncoder maps each categorical column to indicator columns, one per
// category seen during Fit. Values never seen encode as all zeros.
type OneHotEncoder struct {
	Categories [][]string `json:"categories"`
}

// Fit collects the sorted vocabulary of every column.
func (e *OneHotEncoder) Fit(rows [][]string) error {
	if len(rows) == 0 {
		return errors.New("encoder: empty input")
	}
	cols := len(rows[0])
	e.Categories = make([][]string, cols)
	for j := 0; j < cols; j++ {
		seen := make(map[string]struct{})
		for i, row := range rows {
			if len(row) != cols {
				return fmt.Errorf("encoder: row %d has %d columns, want %d", i, len(row), cols)
			}
			seen[row[j]] = struct{}{}
		}
		vocab := make([]string, 0, len(seen))
		for v := range seen {
			vocab = append(vocab, v)
		}
		sort.Strings(vocab)
		e.Categories[j] = vocab
	}
	return nil
}

// Width is the number of indicator columns the encoder produces.
func (e *OneHotEncoder) Width() int {
	n := 0
	for _, c := range e.Categories {
		n += len(c)
	}
	return n
}

// TransformRow writes the indicator block for row into dst, which must be
// zeroed and Width() long.
func (e *OneHotEncoder) TransformRow(row []string, dst []float64) {
	offset := 0
	for j, vocab := range e.Categories {
		if k, ok := slices.BinarySearch(vocab, row[j]); ok {
			dst[offset+k] = 1
		}
		offset += len(vocab)
	}
}

// Preprocessor is the column transform shared by every candidate: scaled
// numeric columns followed by one-hot categorical columns, in schema order.
type Preprocessor struct {
	Schema  models.FeatureSchema `json:"schema"`
	Scaler  StandardScaler       `json:"scaler"`
	Encoder OneHotEncoder        `json:"encoder"`
}

// NewPreprocessor returns an unfitted preprocessor for schema.
func NewPreprocessor(schema models.FeatureSchema) *Preprocessor {
	return &Preprocessor{Schema: schema}
}

// Fit learns scaling parameters and vocabularies from training rows only.
func (p *Preprocessor) Fit(numeric [][]float64, categorical [][]string) error {
	if len(numeric) != len(categorical) {
		return fmt.Errorf("preprocess: %d numeric rows but %d categorical rows", len(numeric), len(categorical))
	}
	if len(numeric) == 0 {
		return errors.New("preprocess: empty input")
	}
	if err := p.checkRow(numeric[0], categorical[0]); err != nil {
		return err
	}
	if err := p.Scaler.Fit(numeric); err != nil {
		return fmt.Errorf("preprocess: %w", err)
	}
	if err := p.Encoder.Fit(categorical); err != nil {
		return fmt.Errorf("preprocess: %w", err)
	}
	return nil
}

// Fitted reports whether Fit has completed.
func (p *Preprocessor) Fitted() bool {
	return len(p.Scaler.Mean) == len(p.Schema.Numeric) &&
		len(p.Encoder.Categories) == len(p.Schema.Categorical) &&
		len(p.Schema.Numeric)+len(p.Schema.Categorical) > 0
}

// Width is the length of an encoded row.
func (p *Preprocessor) Width() int {
	return len(p.Schema.Numeric) + p.Encoder.Width()
}

// TransformRow encodes one row with the fitted parameters. It never refits.
func (p *Preprocessor) TransformRow(numeric []float64, categorical []string) ([]float64, error) {
	if !p.Fitted() {
		return nil, errors.New("preprocess: not fitted")
	}
	if err := p.checkRow(numeric, categorical); err != nil {
		return nil, err
	}
	out := make([]float64, p.Width())
	p.Scaler.TransformRow(numeric, out[:len(numeric)])
	p.Encoder.TransformRow(categorical, out[len(numeric):])
	return out, nil
}

// Transform encodes many rows.
func (p *Preprocessor) Transform(numeric [][]float64, categorical [][]string) ([][]float64, error) {
	if len(numeric) != len(categorical) {
		return nil, fmt.Errorf("preprocess: %d numeric rows but %d categorical rows", len(numeric), len(categorical))
	}
	out := make([][]float64, len(numeric))
	for i := range numeric {
		row, err := p.TransformRow(numeric[i], categorical[i])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = row
	}
	return out, nil
}

// OutputNames names every encoded column, e.g. "Size" or "City=Delhi".
func (p *Preprocessor) OutputNames() []string {
	names := make([]string, 0, p.Width())
	names = append(names, p.Schema.Numeric...)
	for j, vocab := range p.Encoder.Categories {
		for _, v := range vocab {
			names = append(names, p.Schema.Categorical[j]+"="+v)
		}
	}
	return names
}

func (p *Preprocessor) checkRow(numeric []float64, categorical []string) error {
	if len(numeric) != len(p.Schema.Numeric) {
		return fmt.Errorf("preprocess: got %d numeric features, schema has %d", len(numeric), len(p.Schema.Numeric))
	}
	if len(categorical) != len(p.Schema.Categorical) {
		return fmt.Errorf("preprocess: got %d categorical features, schema has %d", len(categorical), len(p.Schema.Categorical))
	}
	return nil
}
