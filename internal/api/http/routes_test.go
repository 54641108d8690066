package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/iot-weather-simulator/internal/simulator"
	"github.com/i474232898/iot-weather-simulator/internal/store"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	app := fiber.New()
	svc := simulator.NewService(store.NewMemoryStore(10, 0), nil, nil)
	RegisterRoutes(app, svc)
	return app
}

func do(t *testing.T, app *fiber.App, method, target, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return resp
}

func createSeries(t *testing.T, app *fiber.App, body string) simulator.SeriesInfo {
	t.Helper()
	resp := do(t, app, http.MethodPost, "/api/v1/series", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}
	var info simulator.SeriesInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return info
}

// TestCreateSeriesValidation verifies that the create endpoint rejects
// missing or out-of-range fields.
func TestCreateSeriesValidation(t *testing.T) {
	app := newTestApp(t)

	bodies := []string{
		`{"start":"2025-11-26T09:00:00Z","durationMinutes":0,"seed":42}`,
		`{"start":"2025-11-26T09:00:00Z","durationMinutes":300}`,
		`{"durationMinutes":300,"seed":42}`,
		`{"start":"yesterday","durationMinutes":300,"seed":42}`,
	}
	for _, b := range bodies {
		resp := do(t, app, http.MethodPost, "/api/v1/series", b)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %s: expected status %d, got %d", b, http.StatusBadRequest, resp.StatusCode)
		}
	}
}

func TestCreateAndFetchSeries(t *testing.T) {
	app := newTestApp(t)
	info := createSeries(t, app, `{"start":"2025-11-26T09:00:00Z","durationMinutes":300,"seed":42}`)
	if info.Length != 300 {
		t.Fatalf("expected 300 readings, got %d", info.Length)
	}

	resp := do(t, app, http.MethodGet, "/api/v1/series/"+info.ID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	var series simulator.Series
	if err := json.NewDecoder(resp.Body).Decode(&series); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(series.Readings) != 300 {
		t.Fatalf("expected 300 readings, got %d", len(series.Readings))
	}

	resp = do(t, app, http.MethodGet, "/api/v1/series/"+info.ID+"/table.csv", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 301 {
		t.Fatalf("expected 301 csv lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[1], "26-11-2025,09:00:00 AM,") {
		t.Fatalf("unexpected first row %q", lines[1])
	}

	resp = do(t, app, http.MethodGet, "/api/v1/series/"+info.ID+"/readings?from=2025-11-26T10:00:00Z&to=2025-11-26T10:04:00Z", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	resp = do(t, app, http.MethodGet, "/api/v1/series/"+info.ID+"/evaluation", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	resp = do(t, app, http.MethodGet, "/api/v1/series/"+info.ID+"/forecast?parameter=humidity&steps=5", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func TestSeriesErrors(t *testing.T) {
	app := newTestApp(t)
	info := createSeries(t, app, `{"start":"2025-11-26T09:00:00Z","durationMinutes":10,"seed":1}`)

	cases := []struct {
		method, target string
		want           int
	}{
		{http.MethodGet, "/api/v1/series/unknown", http.StatusNotFound},
		{http.MethodGet, "/api/v1/series/" + info.ID + "/latest", http.StatusNotFound},
		{http.MethodGet, "/api/v1/series/" + info.ID + "/readings?from=2030-01-01T00:00:00Z&to=2030-01-02T00:00:00Z", http.StatusNotFound},
		{http.MethodGet, "/api/v1/series/" + info.ID + "/readings?from=2025-11-26T10:00:00Z", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/series/" + info.ID + "/evaluation?train=1.5", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/series/" + info.ID + "/evaluation?train=abc", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/series/" + info.ID + "/forecast?parameter=wind", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/series/" + info.ID + "/forecast?steps=xyz", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/series/" + info.ID + "/forecast?steps=0", http.StatusBadRequest},
	}
	for _, tc := range cases {
		resp := do(t, app, tc.method, tc.target, "")
		if resp.StatusCode != tc.want {
			t.Fatalf("%s %s: expected status %d, got %d", tc.method, tc.target, tc.want, resp.StatusCode)
		}
	}

	resp := do(t, app, http.MethodPost, "/api/v1/series/"+info.ID+"/publish", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	resp = do(t, app, http.MethodGet, "/api/v1/series/"+info.ID+"/latest", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

// TestShortSeriesAnalysis verifies that a series too short for the fitted
// polynomials is reported as unprocessable instead of a server error.
func TestShortSeriesAnalysis(t *testing.T) {
	app := newTestApp(t)
	info := createSeries(t, app, `{"start":"2025-11-26T09:00:00Z","durationMinutes":3,"seed":42}`)

	for _, target := range []string{
		"/api/v1/series/" + info.ID + "/evaluation",
		"/api/v1/series/" + info.ID + "/forecast?parameter=temperature&steps=5",
	} {
		resp := do(t, app, http.MethodGet, target, "")
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("%s: expected status %d, got %d", target, http.StatusUnprocessableEntity, resp.StatusCode)
		}
	}
}

func TestDewPointEndpoint(t *testing.T) {
	app := newTestApp(t)

	resp := do(t, app, http.MethodGet, "/api/v1/dewpoint?temperature=20&humidity=50", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	resp = do(t, app, http.MethodGet, "/api/v1/dewpoint?temperature=20&humidity=0", "")
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, resp.StatusCode)
	}

	resp = do(t, app, http.MethodGet, "/api/v1/dewpoint?temperature=20", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestImportEndpoint(t *testing.T) {
	app := newTestApp(t)
	body := "Date,Time,Temperature (°C),Humidity (%),Pressure (hPa),Dew Point (°C)\n" +
		"26-11-2025,09:00:00 AM,16.1,57.9,1018.4,7.6\n" +
		"26-11-2025,09:01:00 AM,16.2,58.3,1018.6,7.9\n"

	req := httptest.NewRequest(http.MethodPost, "/api/v1/series/import", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/csv")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}

	header := "Date,Time,Temperature (°C),Humidity (%),Pressure (hPa),Dew Point (°C)\n"
	rejected := []string{
		"garbage",
		header + "26-11-2025,09:00:00 AM,NaN,57.9,1018.4,7.6\n",
		header + "26-11-2025,09:00:00 AM,16.2,-5,99999,Inf\n",
		header + "26-11-2025,09:00:00 AM,16.2,75.0,1018.4,7.6\n",
	}
	for _, b := range rejected {
		req = httptest.NewRequest(http.MethodPost, "/api/v1/series/import", strings.NewReader(b))
		resp, err = app.Test(req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %q: expected status %d, got %d", b, http.StatusBadRequest, resp.StatusCode)
		}
	}

	resp = do(t, app, http.MethodGet, "/api/v1/series", "")
	var list struct {
		Series []simulator.SeriesInfo `json:"series"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Series) != 1 {
		t.Fatalf("expected only the valid import to be stored, got %d series", len(list.Series))
	}
}
