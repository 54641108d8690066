package sensor

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowFormatting(t *testing.T) {
	r := SensorReading{
		Timestamp:   time.Date(2025, 11, 26, 13, 5, 0, 0, time.UTC),
		Temperature: 22.97,
		Humidity:    41,
		Pressure:    1018.1,
		DewPoint:    9.2,
	}

	assert.Equal(t, []string{"26-11-2025", "01:05:00 PM", "23.0", "41.0", "1018.1", "9.2"}, Row(r))

	r.Timestamp = time.Date(2025, 11, 26, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "09:00:00 AM", Row(r)[1])
}

func TestCSVRoundTrip(t *testing.T) {
	cfg := defaultConfig()
	cfg.DurationMinutes = 30
	readings, err := Generate(cfg)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, readings))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 31)
	assert.Equal(t, "Date,Time,Temperature (°C),Humidity (%),Pressure (hPa),Dew Point (°C)", lines[0])

	back, err := ReadCSV(&buf, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, readings, back)
}

func TestReadCSVRejectsBadInput(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""), time.UTC)
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("a,b,c,d,e,f\n"), time.UTC)
	assert.Error(t, err)

	body := strings.Join(Columns, ",") + "\n26-11-2025,09:00:00 AM,x,50.0,1018.0,7.0\n"
	_, err = ReadCSV(strings.NewReader(body), time.UTC)
	assert.ErrorContains(t, err, "line 2")

	for _, row := range []string{
		"26-11-2025,09:00:00 AM,NaN,50.0,1018.0,7.0",
		"26-11-2025,09:00:00 AM,16.2,50.0,+Inf,7.0",
		"26-11-2025,09:00:00 AM,16.2,50.0,1018.0,-inf",
	} {
		body := strings.Join(Columns, ",") + "\n26-11-2025,08:59:00 AM,16.0,50.0,1018.0,7.0\n" + row + "\n"
		_, err := ReadCSV(strings.NewReader(body), time.UTC)
		assert.ErrorIs(t, err, ErrInvalidReading, row)
		assert.ErrorContains(t, err, "line 3", row)
	}
}

func TestProfileCheck(t *testing.T) {
	p := DefaultProfile()
	ok := SensorReading{Temperature: 30, Humidity: 40, Pressure: 1019.0, DewPoint: 0.2}
	assert.NoError(t, p.Check(ok))

	bad := []SensorReading{
		{Temperature: math.NaN(), Humidity: 50, Pressure: 1018, DewPoint: 7},
		{Temperature: 16, Humidity: -5, Pressure: 1018, DewPoint: 7},
		{Temperature: 16, Humidity: 50, Pressure: 99999, DewPoint: 7},
		{Temperature: 16, Humidity: 50, Pressure: 1018, DewPoint: 13.4},
		{Temperature: 16, Humidity: 50, Pressure: 1018, DewPoint: math.Inf(1)},
	}
	for _, r := range bad {
		assert.ErrorIs(t, p.Check(r), ErrInvalidReading)
	}
}
