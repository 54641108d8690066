package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/i474232898/iot-weather-simulator/internal/simulator"
)

type countingReplayer struct {
	calls atomic.Int32
}

func (c *countingReplayer) PublishNext(_ context.Context, id string) (simulator.PublishResult, error) {
	n := c.calls.Add(1)
	return simulator.PublishResult{SeriesID: id, Index: int(n - 1)}, nil
}

func TestSchedulerReplays(t *testing.T) {
	r := &countingReplayer{}
	s := New("series-1", 20*time.Millisecond, r)
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Stop()

	assert.Eventually(t, func() bool { return r.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerWithoutSeries(t *testing.T) {
	r := &countingReplayer{}
	s := New("", time.Millisecond, r)
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Stop()

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), r.calls.Load())
}
