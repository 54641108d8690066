package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"

	"github.com/i474232898/iot-weather-simulator/internal/simulator"
)

// Replayer is the part of the simulator service the scheduler drives.
type Replayer interface {
	PublishNext(ctx context.Context, id string) (simulator.PublishResult, error)
}

// Scheduler periodically replays the next reading of a series, emulating a
// station that reports once per interval.
type Scheduler struct {
	scheduler *gocron.Scheduler
	replayer  Replayer
	seriesID  string
	interval  time.Duration
}

// New creates a new Scheduler.
func New(seriesID string, interval time.Duration, replayer Replayer) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		replayer:  replayer,
		seriesID:  seriesID,
		interval:  interval,
	}
}

// Start schedules the replay job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.seriesID == "" {
		log.Info().Msg("scheduler: no series to replay; nothing to schedule")
		return nil
	}

	interval := s.interval
	if interval <= 0 {
		interval = time.Minute
	}

	_, err := s.scheduler.Every(interval).Do(s.tick)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	log.Info().Str("series", s.seriesID).Dur("interval", interval).Msg("scheduler: replay started")
	return nil
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := s.replayer.PublishNext(ctx, s.seriesID)
	if err != nil {
		log.Error().Err(err).Str("series", s.seriesID).Msg("scheduler: replay failed")
		return
	}
	log.Debug().
		Str("series", s.seriesID).
		Int("index", res.Index).
		Strs("delivered", res.Delivered).
		Msg("scheduler: reading published")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
