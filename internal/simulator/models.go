package simulator

import (
	"time"

	"github.com/i474232898/iot-weather-simulator/internal/sensor"
)

// Source records how a series entered the system.
type Source string

const (
	SourceGenerated Source = "generated"
	SourceImported  Source = "imported"
)

// SeriesInfo is the metadata of a stored series, without its readings.
type SeriesInfo struct {
	ID        string              `json:"id"`
	Source    Source              `json:"source"`
	Config    sensor.SeriesConfig `json:"config"`
	Length    int                 `json:"length"`
	CreatedAt time.Time           `json:"createdAt"` // always UTC
}

// Series is a stored, ordered sequence of readings.
type Series struct {
	SeriesInfo
	Readings []sensor.SensorReading `json:"readings"`
}

// Info returns the metadata of s with Length filled in.
func (s Series) Info() SeriesInfo {
	info := s.SeriesInfo
	info.Length = len(s.Readings)
	return info
}

// PublishResult reports one replay step.
type PublishResult struct {
	SeriesID  string               `json:"seriesId"`
	Index     int                  `json:"index"`
	Reading   sensor.SensorReading `json:"reading"`
	Delivered []string             `json:"delivered"`
	Failed    map[string]string    `json:"failed,omitempty"`
}
