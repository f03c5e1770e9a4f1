package ml

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// LinearRegression is ordinary least squares with an intercept. It solves the
// centered problem with a truncated SVD, so collinear one-hot blocks and
// underdetermined systems yield the minimum-norm solution instead of failing.
type LinearRegression struct {
	Intercept float64   `json:"intercept"`
	Coef      []float64 `json:"coef"`
}

// NewLinearRegression returns an unfitted model.
func NewLinearRegression() *LinearRegression { return &LinearRegression{} }

func (m *LinearRegression) Kind() Kind { return KindLinear }

// Fit solves min |y - Xw - b|. Deterministic for a given input.
func (m *LinearRegression) Fit(X [][]float64, y []float64) error {
	n, p, err := checkXY(X, y)
	if err != nil {
		return fmt.Errorf("linear: %w", err)
	}

	xMean := make([]float64, p)
	yMean := 0.0
	for i, row := range X {
		for j, v := range row {
			xMean[j] += v
		}
		yMean += y[i]
	}
	for j := range xMean {
		xMean[j] /= float64(n)
	}
	yMean /= float64(n)

	data := make([]float64, 0, n*p)
	yc := make([]float64, n)
	for i, row := range X {
		for j, v := range row {
			data = append(data, v-xMean[j])
		}
		yc[i] = y[i] - yMean
	}

	coef, err := minNormSolve(mat.NewDense(n, p, data), mat.NewVecDense(n, yc))
	if err != nil {
		return fmt.Errorf("linear: %w", err)
	}

	intercept := yMean
	for j, w := range coef {
		intercept -= w * xMean[j]
	}
	m.Coef = coef
	m.Intercept = intercept
	return nil
}

// Predict returns Xw + b for every row.
func (m *LinearRegression) Predict(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		sum := m.Intercept
		for j, v := range row {
			if j < len(m.Coef) {
				sum += m.Coef[j] * v
			}
		}
		out[i] = sum
	}
	return out
}

// minNormSolve returns the minimum-norm least-squares solution of a·x = b,
// discarding singular values below the usual rcond cutoff.
func minNormSolve(a *mat.Dense, b *mat.VecDense) ([]float64, error) {
	n, p := a.Dims()

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, errors.New("svd factorization failed")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	sv := svd.Values(nil)

	if len(sv) == 0 || sv[0] == 0 {
		return make([]float64, p), nil
	}
	cutoff := sv[0] * float64(max(n, p)) * 2.220446049250313e-16

	var uty mat.VecDense
	uty.MulVec(u.T(), b)
	scaled := mat.NewVecDense(len(sv), nil)
	for i, s := range sv {
		if s > cutoff {
			scaled.SetVec(i, uty.AtVec(i)/s)
		}
	}

	var x mat.VecDense
	x.MulVec(&v, scaled)

	out := make([]float64, p)
	for j := range out {
		out[j] = x.AtVec(j)
		if math.IsNaN(out[j]) || math.IsInf(out[j], 0) {
			return nil, errors.New("non-finite coefficient")
		}
	}
	return out, nil
}

func checkXY(X [][]float64, y []float64) (n, p int, err error) {
	n = len(X)
	if n == 0 {
		return 0, 0, errors.New("empty X")
	}
	if len(y) != n {
		return 0, 0, fmt.Errorf("X has %d rows but y has %d", n, len(y))
	}
	p = len(X[0])
	if p == 0 {
		return 0, 0, errors.New("X has no columns")
	}
	for i, row := range X {
		if len(row) != p {
			return 0, 0, fmt.Errorf("row %d has %d columns, want %d", i, len(row), p)
		}
	}
	return n, p, nil
}
