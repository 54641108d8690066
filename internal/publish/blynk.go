package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/iot-weather-simulator/internal/sensor"
)

// Virtual pins the station firmware writes to.
const (
	PinTemperature = "V0"
	PinHumidity    = "V1"
	PinPressure    = "V2"
	PinDewPoint    = "V3"
)

// DefaultBlynkURL is the public Blynk cloud.
const DefaultBlynkURL = "https://blynk.cloud"

// ErrBlynkToken is returned when Blynk rejects the device auth token.
var ErrBlynkToken = errors.New("blynk rejected the auth token")

// blynkErrorBody is the JSON body Blynk sends with 4xx responses.
type blynkErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// BlynkPublisher pushes readings to Blynk virtual pins over the HTTP API.
type BlynkPublisher struct {
	name    string
	token   string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewBlynkPublisher creates a publisher for the device identified by token.
func NewBlynkPublisher(client *http.Client, baseURL, token string) *BlynkPublisher {
	if baseURL == "" {
		baseURL = DefaultBlynkURL
	}
	return &BlynkPublisher{
		name:    "blynk",
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/") + "/external/api/batch/update",
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: DefaultBackoff,
		},
		circuit: newBreaker("blynk"),
	}
}

// WithBackoff overrides the retry policy.
func (p *BlynkPublisher) WithBackoff(b BackoffConfig) *BlynkPublisher {
	p.httpCfg.Backoff = b
	return p
}

func (p *BlynkPublisher) Name() string {
	return p.name
}

func (p *BlynkPublisher) Publish(ctx context.Context, r sensor.SensorReading) error {
	if p.token == "" {
		return fmt.Errorf("blynk auth token is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		u := fmt.Sprintf("%s?%s", p.baseURL, p.values(r).Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	return doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest, classifyBlynk)
}

// classifyBlynk extends classifyStatus with Blynk's error body so that a bad
// token is reported as ErrBlynkToken.
func classifyBlynk(resp *http.Response) error {
	if resp.StatusCode < 400 || resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return classifyStatus(resp)
	}

	var body blynkErrorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4<<10)).Decode(&body)
	msg := body.Error.Message

	if resp.StatusCode == http.StatusUnauthorized ||
		resp.StatusCode == http.StatusForbidden ||
		strings.Contains(strings.ToLower(msg), "token") {
		return permanent(fmt.Errorf("%w: %d %s", ErrBlynkToken, resp.StatusCode, msg))
	}
	if msg != "" {
		return permanent(fmt.Errorf("%w: %d %s", errUnexpected, resp.StatusCode, msg))
	}
	return classifyStatus(resp)
}

func (p *BlynkPublisher) values(r sensor.SensorReading) url.Values {
	values := url.Values{}
	values.Set("token", p.token)
	values.Set(PinTemperature, strconv.FormatFloat(r.Temperature, 'f', 1, 64))
	values.Set(PinHumidity, strconv.FormatFloat(r.Humidity, 'f', 1, 64))
	values.Set(PinPressure, strconv.FormatFloat(r.Pressure, 'f', 1, 64))
	values.Set(PinDewPoint, strconv.FormatFloat(r.DewPoint, 'f', 1, 64))
	return values
}
