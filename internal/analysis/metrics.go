package analysis

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrLengthMismatch is returned when actual and predicted differ in length.
	ErrLengthMismatch = errors.New("actual and predicted lengths differ")
	// ErrEmpty is returned for empty inputs.
	ErrEmpty = errors.New("empty input")
	// ErrTooFewPoints is returned when a series is too short for a fit or split.
	ErrTooFewPoints = errors.New("too few points")
	// ErrInvalidRatio is returned for a train ratio outside (0, 1).
	ErrInvalidRatio = errors.New("train ratio must be in (0, 1)")
)

// Grade is a coarse label for an R² score.
type Grade string

const (
	GradeExcellent Grade = "excellent"
	GradeGood      Grade = "good"
	GradePoor      Grade = "poor"
)

// Metrics summarizes forecast accuracy. MAPE is a percentage.
type Metrics struct {
	RMSE float64 `json:"rmse"`
	MAE  float64 `json:"mae"`
	MAPE float64 `json:"mape"`
	R2   float64 `json:"r2"`
}

// Grade classifies the R² score.
func (m Metrics) Grade() Grade {
	switch {
	case m.R2 > 0.9:
		return GradeExcellent
	case m.R2 > 0.7:
		return GradeGood
	default:
		return GradePoor
	}
}

// Evaluate compares predicted against actual.
//
// R² follows the usual convention of 1 - SSres/SStot; when actual is
// constant it is 1 for a perfect prediction and 0 otherwise. Zero actual
// values are skipped for MAPE.
func Evaluate(actual, predicted []float64) (Metrics, error) {
	if len(actual) != len(predicted) {
		return Metrics{}, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(actual), len(predicted))
	}
	if len(actual) == 0 {
		return Metrics{}, ErrEmpty
	}

	n := float64(len(actual))
	var mean float64
	for _, a := range actual {
		mean += a
	}
	mean /= n

	var sse, sae, sape, sst float64
	var nape int
	for i, a := range actual {
		d := a - predicted[i]
		sse += d * d
		sae += math.Abs(d)
		if a != 0 {
			sape += math.Abs(d / a)
			nape++
		}
		sst += (a - mean) * (a - mean)
	}

	m := Metrics{
		RMSE: math.Sqrt(sse / n),
		MAE:  sae / n,
	}
	if nape > 0 {
		m.MAPE = sape / float64(nape) * 100
	}
	switch {
	case sst > 0:
		m.R2 = 1 - sse/sst
	case sse == 0:
		m.R2 = 1
	}
	return m, nil
}
