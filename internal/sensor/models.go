package sensor

import (
	"errors"
	"fmt"
	"time"

	"github.com/i474232898/iot-weather-simulator/internal/common"
)

var (
	// ErrInvalidConfig is returned before generation when a SeriesConfig cannot be used.
	ErrInvalidConfig = errors.New("invalid series configuration")

	// ErrDomain is returned by DewPoint for inputs outside the Magnus formula's domain.
	ErrDomain = errors.New("dew point domain error")

	// ErrInvalidReading is returned for readings that a station could not have produced.
	ErrInvalidReading = errors.New("invalid sensor reading")
)

// DefaultDurationMinutes is five hours of one-minute samples.
const DefaultDurationMinutes = 300

// SensorReading is one simulated minute of station output.
type SensorReading struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperatureC"`
	Humidity    float64   `json:"humidityPercent"`
	Pressure    float64   `json:"pressureHpa"`
	DewPoint    float64   `json:"dewPointC"`
}

// SeriesConfig describes a single generation run.
type SeriesConfig struct {
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"durationMinutes"`
	Seed            int64     `json:"seed"`
}

// Validate checks the config without producing any samples.
func (c SeriesConfig) Validate() error {
	if c.Start.IsZero() {
		return errors.Join(ErrInvalidConfig, errors.New("start timestamp is required"))
	}
	if c.DurationMinutes <= 0 {
		return errors.Join(ErrInvalidConfig, errors.New("duration must be greater than zero minutes"))
	}
	return nil
}

// SpanHours is the configured series length in hours.
func (c SeriesConfig) SpanHours() float64 {
	return float64(c.DurationMinutes) / 60.0
}

// Range is a closed interval used for noise amplitudes and clamps.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies in the closed interval.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Profile holds the instrument noise amplitudes and clamp bounds.
// Temperature carries no clamp.
type Profile struct {
	TemperatureNoise Range `json:"temperatureNoise"`
	HumidityNoise    Range `json:"humidityNoise"`
	PressureNoise    Range `json:"pressureNoise"`
	DewPointNoise    Range `json:"dewPointNoise"`

	HumidityBounds Range `json:"humidityBounds"`
	PressureBounds Range `json:"pressureBounds"`
	DewPointBounds Range `json:"dewPointBounds"`
}

// DefaultProfile matches a winter morning station in Gurugram.
func DefaultProfile() Profile {
	return Profile{
		TemperatureNoise: Range{-0.3, 0.3},
		HumidityNoise:    Range{-2.0, 2.0},
		PressureNoise:    Range{-0.2, 0.2},
		DewPointNoise:    Range{-0.1, 0.1},

		HumidityBounds: Range{40.0, 60.0},
		PressureBounds: Range{1016.5, 1019.0},
		DewPointBounds: Range{0.2, 13.3},
	}
}

// Check verifies that r is finite and inside the clamp bounds.
func (p Profile) Check(r SensorReading) error {
	if !common.Finite(r.Temperature, r.Humidity, r.Pressure, r.DewPoint) {
		return fmt.Errorf("%w: non-finite value", ErrInvalidReading)
	}
	bounded := []struct {
		name  string
		v     float64
		limit Range
	}{
		{"humidity", r.Humidity, p.HumidityBounds},
		{"pressure", r.Pressure, p.PressureBounds},
		{"dew point", r.DewPoint, p.DewPointBounds},
	}
	for _, b := range bounded {
		if !b.limit.Contains(b.v) {
			return fmt.Errorf("%w: %s %.1f outside [%.1f, %.1f]", ErrInvalidReading, b.name, b.v, b.limit.Min, b.limit.Max)
		}
	}
	return nil
}
