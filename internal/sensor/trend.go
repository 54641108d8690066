package sensor

// Trend constants for the 09:00 to 14:00 winter profile. The breakpoint is
// fixed in hours and does not scale with the configured span.
const (
	TrendBreakpointHours = 4.0

	tempStart   = 16.0
	tempRise    = 7.0
	tempFall    = 1.0
	humidStart  = 58.0
	humidDrop   = 17.0
	humidRise   = 2.0
	pressStart  = 1018.5
	pressDrift  = 0.4
	afterBreakH = 1.0
)

// BaseTemperature is the noise-free temperature at h hours after start.
func BaseTemperature(h float64) float64 {
	if h <= TrendBreakpointHours {
		return tempStart + tempRise*(h/TrendBreakpointHours)
	}
	return tempStart + tempRise - tempFall*((h-TrendBreakpointHours)/afterBreakH)
}

// BaseHumidity mirrors the temperature curve: falling until the breakpoint, then recovering.
func BaseHumidity(h float64) float64 {
	if h <= TrendBreakpointHours {
		return humidStart - humidDrop*(h/TrendBreakpointHours)
	}
	return humidStart - humidDrop + humidRise*((h-TrendBreakpointHours)/afterBreakH)
}

// BasePressure drifts linearly over the whole span of spanHours.
func BasePressure(h, spanHours float64) float64 {
	return pressStart - pressDrift*(h/spanHours)
}
