package sensor

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/i474232898/iot-weather-simulator/internal/common"
)

// Layouts used by the persisted spreadsheet files.
const (
	DateLayout     = "02-01-2006"
	TimeLayout     = "03:04:05 PM"
	DateTimeLayout = DateLayout + " " + TimeLayout
)

// Columns is the header row of the tabular export.
var Columns = []string{
	"Date",
	"Time",
	"Temperature (°C)",
	"Humidity (%)",
	"Pressure (hPa)",
	"Dew Point (°C)",
}

// Row renders r in column order.
func Row(r SensorReading) []string {
	return []string{
		r.Timestamp.Format(DateLayout),
		r.Timestamp.Format(TimeLayout),
		formatValue(r.Temperature),
		formatValue(r.Humidity),
		formatValue(r.Pressure),
		formatValue(r.DewPoint),
	}
}

// ParseRow is the inverse of Row. Timestamps are interpreted in loc.
func ParseRow(rec []string, loc *time.Location) (SensorReading, error) {
	if len(rec) != len(Columns) {
		return SensorReading{}, fmt.Errorf("expected %d columns, got %d", len(Columns), len(rec))
	}

	ts, err := time.ParseInLocation(DateTimeLayout, rec[0]+" "+rec[1], loc)
	if err != nil {
		return SensorReading{}, fmt.Errorf("invalid date/time %q %q: %w", rec[0], rec[1], err)
	}

	var vals [4]float64
	for i := range vals {
		v, err := strconv.ParseFloat(rec[i+2], 64)
		if err != nil {
			return SensorReading{}, fmt.Errorf("invalid %s value %q: %w", Columns[i+2], rec[i+2], err)
		}
		if !common.Finite(v) {
			return SensorReading{}, fmt.Errorf("%w: %s value %q is not finite", ErrInvalidReading, Columns[i+2], rec[i+2])
		}
		vals[i] = v
	}

	return SensorReading{
		Timestamp:   ts,
		Temperature: vals[0],
		Humidity:    vals[1],
		Pressure:    vals[2],
		DewPoint:    vals[3],
	}, nil
}

// WriteCSV writes the header followed by one row per reading.
func WriteCSV(w io.Writer, readings []SensorReading) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range readings {
		if err := cw.Write(Row(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a table written by WriteCSV. The header row is required.
func ReadCSV(r io.Reader, loc *time.Location) ([]SensorReading, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Columns)

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty table")
		}
		return nil, err
	}
	for i, col := range Columns {
		if header[i] != col {
			return nil, fmt.Errorf("unexpected column %d: got %q, want %q", i, header[i], col)
		}
	}

	var out []SensorReading
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		reading, err := ParseRow(rec, loc)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, reading)
	}
	return out, nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
