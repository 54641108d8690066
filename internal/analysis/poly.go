package analysis

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Polynomial is a fitted model in a normalized variable u = (x-Offset)/Scale.
// Coefficients are in ascending order of power of u.
type Polynomial struct {
	Coefficients []float64 `json:"coefficients"`
	Offset       float64   `json:"offset"`
	Scale        float64   `json:"scale"`
}

// Degree of the polynomial.
func (p Polynomial) Degree() int {
	return len(p.Coefficients) - 1
}

// Predict evaluates the polynomial at x using Horner's method.
func (p Polynomial) Predict(x float64) float64 {
	scale := p.Scale
	if scale == 0 {
		scale = 1
	}
	u := (x - p.Offset) / scale

	var y float64
	for i := len(p.Coefficients) - 1; i >= 0; i-- {
		y = y*u + p.Coefficients[i]
	}
	return y
}

// PredictAll evaluates the polynomial at every x.
func (p Polynomial) PredictAll(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = p.Predict(x)
	}
	return out
}

// PolyFit fits a least-squares polynomial of the given degree to (x, y).
// The x axis is mapped onto [0, 1] to keep the Vandermonde matrix well conditioned.
func PolyFit(x, y []float64, degree int) (Polynomial, error) {
	if len(x) != len(y) {
		return Polynomial{}, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(x), len(y))
	}
	if degree < 0 {
		return Polynomial{}, errors.New("degree must not be negative")
	}
	if len(x) <= degree {
		return Polynomial{}, fmt.Errorf("%w: need more than %d for degree %d, got %d", ErrTooFewPoints, degree, degree, len(x))
	}

	lo, hi := x[0], x[0]
	for _, v := range x {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	scale := hi - lo
	if scale == 0 {
		scale = 1
	}

	cols := degree + 1
	a := mat.NewDense(len(x), cols, nil)
	for i, v := range x {
		u := (v - lo) / scale
		pow := 1.0
		for j := 0; j < cols; j++ {
			a.Set(i, j, pow)
			pow *= u
		}
	}
	b := mat.NewVecDense(len(y), append([]float64(nil), y...))

	var beta mat.VecDense
	if err := beta.SolveVec(a, b); err != nil {
		return Polynomial{}, fmt.Errorf("least squares solve: %w", err)
	}

	coef := make([]float64, cols)
	for j := range coef {
		coef[j] = beta.AtVec(j)
	}
	return Polynomial{Coefficients: coef, Offset: lo, Scale: scale}, nil
}
