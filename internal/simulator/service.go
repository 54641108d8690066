package simulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/i474232898/iot-weather-simulator/internal/analysis"
	"github.com/i474232898/iot-weather-simulator/internal/sensor"
)

var (
	// ErrNotReplayed is returned by Latest before any reading of a series was published.
	ErrNotReplayed = errors.New("series has not been replayed yet")
	// ErrPublishFailed is returned when every publisher rejected a reading.
	ErrPublishFailed = errors.New("all publishers failed")
)

// Service orchestrates series generation, persistence and replay to publishers.
type Service struct {
	store      Store
	publishers []Publisher
	generator  *sensor.Generator

	mu      sync.Mutex
	cursors map[string]int
	latest  map[string]sensor.SensorReading
}

// NewService creates a new Service.
func NewService(store Store, generator *sensor.Generator, publishers []Publisher) *Service {
	if generator == nil {
		generator = sensor.NewGenerator(sensor.DefaultProfile())
	}
	return &Service{
		store:      store,
		publishers: publishers,
		generator:  generator,
		cursors:    make(map[string]int),
		latest:     make(map[string]sensor.SensorReading),
	}
}

// Profile exposes the generator's noise and clamp settings.
func (s *Service) Profile() sensor.Profile {
	return s.generator.Profile()
}

// Create generates a series for cfg and stores it.
func (s *Service) Create(cfg sensor.SeriesConfig) (Series, error) {
	readings, err := s.generator.Generate(cfg)
	if err != nil {
		return Series{}, err
	}

	series := Series{
		SeriesInfo: SeriesInfo{
			ID:        uuid.NewString(),
			Source:    SourceGenerated,
			Config:    cfg,
			CreatedAt: time.Now().UTC(),
		},
		Readings: readings,
	}
	series.SeriesInfo = series.Info()

	if err := s.store.Save(series); err != nil {
		return Series{}, fmt.Errorf("save series: %w", err)
	}
	log.Info().
		Str("series", series.ID).
		Int("minutes", cfg.DurationMinutes).
		Int64("seed", cfg.Seed).
		Msg("generated series")
	return series, nil
}

// Import stores a series read from the tabular CSV layout. Timestamps are
// interpreted in loc and must be one minute apart. Every row must fit the
// generator profile's clamp bounds.
func (s *Service) Import(r io.Reader, loc *time.Location) (Series, error) {
	readings, err := sensor.ReadCSV(r, loc)
	if err != nil {
		return Series{}, err
	}
	if len(readings) == 0 {
		return Series{}, errors.New("table has no readings")
	}
	profile := s.generator.Profile()
	for i, reading := range readings {
		// Line 1 is the header.
		if err := profile.Check(reading); err != nil {
			return Series{}, fmt.Errorf("line %d: %w", i+2, err)
		}
		if i == 0 {
			continue
		}
		if d := reading.Timestamp.Sub(readings[i-1].Timestamp); d != time.Minute {
			return Series{}, fmt.Errorf("line %d: %v after the previous row, want 1m", i+2, d)
		}
	}

	series := Series{
		SeriesInfo: SeriesInfo{
			ID:     uuid.NewString(),
			Source: SourceImported,
			Config: sensor.SeriesConfig{
				Start:           readings[0].Timestamp,
				DurationMinutes: len(readings),
			},
			CreatedAt: time.Now().UTC(),
		},
		Readings: readings,
	}
	series.SeriesInfo = series.Info()

	if err := s.store.Save(series); err != nil {
		return Series{}, fmt.Errorf("save series: %w", err)
	}
	log.Info().Str("series", series.ID).Int("rows", len(readings)).Msg("imported series")
	return series, nil
}

// Get delegates to the underlying store.
func (s *Service) Get(id string) (Series, error) {
	return s.store.Get(id)
}

// List delegates to the underlying store.
func (s *Service) List() ([]SeriesInfo, error) {
	return s.store.List()
}

// Range delegates to the underlying store.
func (s *Service) Range(id string, from, to time.Time) ([]sensor.SensorReading, error) {
	return s.store.Range(id, from, to)
}

// Evaluate fits the polynomial models on a chronological split of the series.
func (s *Service) Evaluate(id string, ratio float64) (analysis.Report, error) {
	series, err := s.store.Get(id)
	if err != nil {
		return analysis.Report{}, err
	}
	return analysis.EvaluateSeries(series.Readings, ratio)
}

// ForecastPoint is one extrapolated minute.
type ForecastPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Forecast extrapolates parameter for steps minutes past the end of the series.
func (s *Service) Forecast(id string, p analysis.Parameter, steps int) ([]ForecastPoint, error) {
	series, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	values, err := analysis.Forecast(series.Readings, p, steps)
	if err != nil {
		return nil, err
	}

	last := series.Readings[len(series.Readings)-1].Timestamp
	out := make([]ForecastPoint, len(values))
	for i, v := range values {
		out[i] = ForecastPoint{
			Timestamp: last.Add(time.Duration(i+1) * time.Minute),
			Value:     v,
		}
	}
	return out, nil
}

// PublishNext sends the next reading of the series to every publisher
// concurrently. The cursor wraps to the first reading after the last one.
// Partial success is allowed; an error is returned only if every publisher
// failed.
func (s *Service) PublishNext(ctx context.Context, id string) (PublishResult, error) {
	series, err := s.lookup(id)
	if err != nil {
		return PublishResult{}, err
	}
	if len(series.Readings) == 0 {
		return PublishResult{}, errors.New("series has no readings")
	}

	s.mu.Lock()
	idx := s.cursors[id] % len(series.Readings)
	s.cursors[id] = idx + 1
	reading := series.Readings[idx]
	s.latest[id] = reading
	s.mu.Unlock()

	result := PublishResult{
		SeriesID:  id,
		Index:     idx,
		Reading:   reading,
		Delivered: []string{},
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, p := range s.publishers {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := p.Publish(ctx, reading)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Log and continue; we want partial success when possible.
				log.Warn().Err(err).Str("publisher", p.Name()).Str("series", id).Msg("publish failed")
				if result.Failed == nil {
					result.Failed = make(map[string]string)
				}
				result.Failed[p.Name()] = err.Error()
				return
			}
			result.Delivered = append(result.Delivered, p.Name())
		}()
	}
	wg.Wait()

	if len(s.publishers) > 0 && len(result.Delivered) == 0 {
		return result, ErrPublishFailed
	}
	return result, nil
}

// Latest returns the reading most recently published for the series.
func (s *Service) Latest(id string) (sensor.SensorReading, error) {
	if _, err := s.lookup(id); err != nil {
		return sensor.SensorReading{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.latest[id]
	if !ok {
		return sensor.SensorReading{}, ErrNotReplayed
	}
	return r, nil
}

// lookup fetches a series for replay and drops the replay state of series
// the store no longer holds.
func (s *Service) lookup(id string) (Series, error) {
	series, err := s.store.Get(id)
	if errors.Is(err, ErrNotFound) {
		s.mu.Lock()
		delete(s.cursors, id)
		delete(s.latest, id)
		s.mu.Unlock()
	}
	return series, err
}
