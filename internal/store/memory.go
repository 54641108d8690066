package store

import (
	"sort"
	"sync"
	"time"

	"github.com/i474232898/iot-weather-simulator/internal/sensor"
	"github.com/i474232898/iot-weather-simulator/internal/simulator"
)

// ErrNotFound is returned when no series or readings match a query.
var ErrNotFound = simulator.ErrNotFound

// MemoryStore is a concurrency-safe in-memory implementation of a series store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: series id
	data  map[string]simulator.Series
	order []string // insertion order, oldest first

	// retention configuration
	maxSeries int           // max number of series kept
	maxAge    time.Duration // optional max age for series
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxSeries is <= 0, it is treated as unlimited.
func NewMemoryStore(maxSeries int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:      make(map[string]simulator.Series),
		maxSeries: maxSeries,
		maxAge:    maxAge,
	}
}

// Save stores a series and enforces retention.
func (s *MemoryStore) Save(series simulator.Series) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[series.ID]; !ok {
		s.order = append(s.order, series.ID)
	}
	s.data[series.ID] = series

	// Enforce retention by count.
	if s.maxSeries > 0 && len(s.order) > s.maxSeries {
		over := len(s.order) - s.maxSeries
		for _, id := range s.order[:over] {
			delete(s.data, id)
		}
		s.order = s.order[over:]
	}

	// Enforce retention by age, never evicting the series just saved.
	if s.maxAge > 0 {
		cutoff := time.Now().Add(-s.maxAge)
		kept := s.order[:0]
		for _, id := range s.order {
			if id != series.ID && s.data[id].CreatedAt.Before(cutoff) {
				delete(s.data, id)
				continue
			}
			kept = append(kept, id)
		}
		s.order = kept
	}
	return nil
}

// Get returns the series with the given id.
func (s *MemoryStore) Get(id string) (simulator.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series, ok := s.data[id]
	if !ok {
		return simulator.Series{}, ErrNotFound
	}
	return series, nil
}

// List returns metadata for every stored series, newest first.
func (s *MemoryStore) List() ([]simulator.SeriesInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]simulator.SeriesInfo, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.data[id].Info())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Range returns the readings of a series between from and to (inclusive).
func (s *MemoryStore) Range(id string, from, to time.Time) ([]sensor.SensorReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series, ok := s.data[id]
	if !ok || len(series.Readings) == 0 {
		return nil, ErrNotFound
	}

	var result []sensor.SensorReading
	for _, r := range series.Readings {
		if !r.Timestamp.Before(from) && !r.Timestamp.After(to) {
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
