package analysis

import (
	"errors"
	"fmt"

	"github.com/i474232898/iot-weather-simulator/internal/sensor"
)

// DefaultTrainRatio is the chronological share of samples used for fitting.
const DefaultTrainRatio = 0.8

// Parameter names a measured quantity of a SensorReading.
type Parameter string

const (
	Temperature Parameter = "temperature"
	Humidity    Parameter = "humidity"
	Pressure    Parameter = "pressure"
	DewPoint    Parameter = "dewPoint"
)

// Parameters lists every parameter in report order.
var Parameters = []Parameter{Temperature, Humidity, Pressure, DewPoint}

// Degree is the polynomial degree fitted for p. Pressure varies too little
// for a cubic term to help.
func (p Parameter) Degree() int {
	if p == Pressure {
		return 2
	}
	return 3
}

// Valid reports whether p is a known parameter.
func (p Parameter) Valid() bool {
	for _, known := range Parameters {
		if p == known {
			return true
		}
	}
	return false
}

// Values extracts p from each reading.
func (p Parameter) Values(readings []sensor.SensorReading) []float64 {
	out := make([]float64, len(readings))
	for i, r := range readings {
		switch p {
		case Temperature:
			out[i] = r.Temperature
		case Humidity:
			out[i] = r.Humidity
		case Pressure:
			out[i] = r.Pressure
		case DewPoint:
			out[i] = r.DewPoint
		}
	}
	return out
}

// Split returns the training size for a chronological split of n samples.
func Split(n int, ratio float64) (train int, err error) {
	if !(ratio > 0 && ratio < 1) {
		return 0, fmt.Errorf("%w, got %v", ErrInvalidRatio, ratio)
	}
	train = int(float64(n) * ratio)
	if train == 0 || train == n {
		return 0, fmt.Errorf("%w: split of %d samples at %v leaves an empty partition", ErrTooFewPoints, n, ratio)
	}
	return train, nil
}

// ParameterReport is the fit and test-set accuracy for one parameter.
type ParameterReport struct {
	Parameter Parameter  `json:"parameter"`
	Model     Polynomial `json:"model"`
	Metrics   Metrics    `json:"metrics"`
	Grade     Grade      `json:"grade"`
}

// Report is the result of EvaluateSeries.
type Report struct {
	TrainSize  int               `json:"trainSize"`
	TestSize   int               `json:"testSize"`
	Parameters []ParameterReport `json:"parameters"`
}

// EvaluateSeries fits each parameter against the minute index on the first
// ratio of readings and scores it on the rest.
func EvaluateSeries(readings []sensor.SensorReading, ratio float64) (Report, error) {
	if len(readings) == 0 {
		return Report{}, ErrEmpty
	}
	train, err := Split(len(readings), ratio)
	if err != nil {
		return Report{}, err
	}

	index := make([]float64, len(readings))
	for i := range index {
		index[i] = float64(i)
	}

	report := Report{TrainSize: train, TestSize: len(readings) - train}
	for _, p := range Parameters {
		values := p.Values(readings)

		model, err := PolyFit(index[:train], values[:train], p.Degree())
		if err != nil {
			return Report{}, fmt.Errorf("fit %s: %w", p, err)
		}
		m, err := Evaluate(values[train:], model.PredictAll(index[train:]))
		if err != nil {
			return Report{}, fmt.Errorf("evaluate %s: %w", p, err)
		}

		report.Parameters = append(report.Parameters, ParameterReport{
			Parameter: p,
			Model:     model,
			Metrics:   m,
			Grade:     m.Grade(),
		})
	}
	return report, nil
}

// Forecast fits p on every reading and extrapolates steps minutes past the end.
func Forecast(readings []sensor.SensorReading, p Parameter, steps int) ([]float64, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("unknown parameter %q", p)
	}
	if steps <= 0 {
		return nil, errors.New("steps must be greater than zero")
	}

	index := make([]float64, len(readings))
	for i := range index {
		index[i] = float64(i)
	}
	model, err := PolyFit(index, p.Values(readings), p.Degree())
	if err != nil {
		return nil, fmt.Errorf("fit %s: %w", p, err)
	}

	out := make([]float64, steps)
	for i := range out {
		out[i] = model.Predict(float64(len(readings) + i))
	}
	return out, nil
}
