package publish

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/iot-weather-simulator/internal/sensor"
)

var reading = sensor.SensorReading{
	Timestamp:   time.Date(2025, 11, 26, 9, 0, 0, 0, time.UTC),
	Temperature: 16.2,
	Humidity:    57.4,
	Pressure:    1018.5,
	DewPoint:    7.7,
}

var fastBackoff = BackoffConfig{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}

func TestBlynkPublishEncodesPins(t *testing.T) {
	urls := make(chan *url.URL, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		urls <- r.URL
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewBlynkPublisher(srv.Client(), srv.URL+"/", "tok123")
	require.NoError(t, p.Publish(context.Background(), reading))

	got := <-urls
	assert.Equal(t, "/external/api/batch/update", got.Path)
	q := got.Query()
	assert.Equal(t, "tok123", q.Get("token"))
	assert.Equal(t, "16.2", q.Get(PinTemperature))
	assert.Equal(t, "57.4", q.Get(PinHumidity))
	assert.Equal(t, "1018.5", q.Get(PinPressure))
	assert.Equal(t, "7.7", q.Get(PinDewPoint))
}

func TestBlynkPublishRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewBlynkPublisher(srv.Client(), srv.URL, "tok").WithBackoff(fastBackoff)
	require.NoError(t, p.Publish(context.Background(), reading))
	assert.Equal(t, int32(3), calls.Load())
}

func TestBlynkPublishDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewBlynkPublisher(srv.Client(), srv.URL, "tok").WithBackoff(fastBackoff)
	err := p.Publish(context.Background(), reading)
	assert.ErrorIs(t, err, errUnexpected)
	assert.Equal(t, int32(1), calls.Load())
}

func TestBlynkPublishInvalidToken(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid token."}}`))
	}))
	defer srv.Close()

	p := NewBlynkPublisher(srv.Client(), srv.URL, "wrong").WithBackoff(fastBackoff)
	err := p.Publish(context.Background(), reading)
	assert.ErrorIs(t, err, ErrBlynkToken)
	assert.ErrorContains(t, err, "Invalid token.")
	assert.Equal(t, int32(1), calls.Load())
}

func TestBlynkPublishWithoutToken(t *testing.T) {
	p := NewBlynkPublisher(http.DefaultClient, "", "")
	assert.Error(t, p.Publish(context.Background(), reading))
}
