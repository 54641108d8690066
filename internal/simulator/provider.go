package simulator

import (
	"context"
	"errors"
	"time"

	"github.com/i474232898/iot-weather-simulator/internal/sensor"
)

// Publisher abstracts a sink for live readings (e.g. Blynk cloud, a webhook).
type Publisher interface {
	Name() string
	Publish(ctx context.Context, r sensor.SensorReading) error
}

// ErrNotFound is returned by a Store when no series or readings match a query.
var ErrNotFound = errors.New("no series data found")

// Store is the contract the in-memory store and the SQLite store must satisfy.
type Store interface {
	Save(s Series) error
	Get(id string) (Series, error)
	List() ([]SeriesInfo, error)
	Range(id string, from, to time.Time) ([]sensor.SensorReading, error)
	Close() error
}
