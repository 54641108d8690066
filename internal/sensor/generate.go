package sensor

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/i474232898/iot-weather-simulator/internal/common"
)

// Generator produces synthetic series for a fixed Profile. It holds no
// mutable state; each call seeds its own random stream, so a Generator can be
// shared between goroutines.
type Generator struct {
	profile Profile
}

// NewGenerator creates a Generator using the given profile.
func NewGenerator(p Profile) *Generator {
	return &Generator{profile: p}
}

// Profile returns the generator's noise and clamp settings.
func (g *Generator) Profile() Profile {
	return g.profile
}

// Generate builds the series for cfg with the default profile.
func Generate(cfg SeriesConfig) ([]SensorReading, error) {
	return NewGenerator(DefaultProfile()).Generate(cfg)
}

// Generate builds one reading per minute starting at cfg.Start.
//
// Random draws per minute happen in a fixed order: temperature, humidity,
// pressure, dew point.
func (g *Generator) Generate(cfg SeriesConfig) ([]SensorReading, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rng := newRand(cfg.Seed)
	span := cfg.SpanHours()
	p := g.profile

	readings := make([]SensorReading, 0, cfg.DurationMinutes)
	for minute := 0; minute < cfg.DurationMinutes; minute++ {
		h := float64(minute) / 60.0

		temp := common.Round1(BaseTemperature(h) + uniform(rng, p.TemperatureNoise))

		humidity := common.Round1(BaseHumidity(h) + uniform(rng, p.HumidityNoise))
		humidity = common.Clamp(humidity, p.HumidityBounds.Min, p.HumidityBounds.Max)

		pressure := common.Round1(BasePressure(h, span) + uniform(rng, p.PressureNoise))
		pressure = common.Clamp(pressure, p.PressureBounds.Min, p.PressureBounds.Max)

		dp, err := DewPoint(temp, humidity)
		if err != nil {
			return nil, fmt.Errorf("minute %d: %w", minute, err)
		}
		dp = common.Round1(dp + uniform(rng, p.DewPointNoise))
		dp = common.Clamp(dp, p.DewPointBounds.Min, p.DewPointBounds.Max)

		readings = append(readings, SensorReading{
			Timestamp:   cfg.Start.Add(time.Duration(minute) * time.Minute),
			Temperature: temp,
			Humidity:    humidity,
			Pressure:    pressure,
			DewPoint:    dp,
		})
	}

	return readings, nil
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), 0))
}

// uniform draws from [r.Min, r.Max).
func uniform(rng *rand.Rand, r Range) float64 {
	return r.Min + (r.Max-r.Min)*rng.Float64()
}
