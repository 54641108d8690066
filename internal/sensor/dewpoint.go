package sensor

import (
	"fmt"
	"math"

	"github.com/i474232898/iot-weather-simulator/internal/common"
)

// Magnus-Tetens coefficients.
const (
	MagnusA = 17.27
	MagnusB = 237.7
)

// DewPoint returns the dew point in °C for a temperature in °C and a relative
// humidity in percent. Humidity must be positive.
func DewPoint(tempC, humidityPct float64) (float64, error) {
	if !(humidityPct > 0) {
		return 0, fmt.Errorf("%w: humidity must be positive, got %v", ErrDomain, humidityPct)
	}

	alpha := (MagnusA*tempC)/(MagnusB+tempC) + math.Log(humidityPct/100.0)
	dp := (MagnusB * alpha) / (MagnusA - alpha)

	if !common.Finite(dp) {
		return 0, fmt.Errorf("%w: non-finite dew point for t=%v rh=%v", ErrDomain, tempC, humidityPct)
	}
	return dp, nil
}
