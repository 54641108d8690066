package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/i474232898/iot-weather-simulator/internal/sensor"
)

// StartLayout is the format of SIM_START, matching the spreadsheet's date convention.
const StartLayout = "02-01-2006 15:04:05"

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

type AppConfig struct {
	// Series generated at startup and replayed by the scheduler.
	Series   sensor.SeriesConfig
	Location *time.Location

	// ReplayInterval controls how often the next reading is published.
	ReplayInterval time.Duration

	BlynkToken   string
	BlynkBaseURL string
	HTTPTimeout  time.Duration

	StoreDriver string
	SQLitePath  string

	// In-memory store retention.
	StoreMaxSeries int           // max number of series kept (0 = unlimited)
	StoreMaxAge    time.Duration // max age of series (0 = unlimited)

	LogLevel zerolog.Level
	Port     string
}

// Load reads configuration from the environment, after merging envFile when
// it exists, with sensible defaults.
func Load(envFile string) (*AppConfig, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Info().Err(err).Str("file", envFile).Msg("no .env file loaded")
	}
	cfg := &AppConfig{}

	tz := getenvDefault("SIM_TIMEZONE", "Asia/Kolkata")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid SIM_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	startStr := getenvDefault("SIM_START", "26-11-2025 09:00:00")
	start, err := time.ParseInLocation(StartLayout, startStr, loc)
	if err != nil {
		return nil, errors.Join(sensor.ErrInvalidConfig, fmt.Errorf("invalid SIM_START %q: %w", startStr, err))
	}

	seed, err := strconv.ParseInt(getenvDefault("SIM_SEED", "42"), 10, 64)
	if err != nil {
		return nil, errors.Join(sensor.ErrInvalidConfig, fmt.Errorf("invalid SIM_SEED: %w", err))
	}

	minutes, err := getenvInt("SIM_DURATION_MINUTES", sensor.DefaultDurationMinutes)
	if err != nil {
		return nil, errors.Join(sensor.ErrInvalidConfig, err)
	}

	cfg.Series = sensor.SeriesConfig{
		Start:           start,
		DurationMinutes: minutes,
		Seed:            seed,
	}
	if err := cfg.Series.Validate(); err != nil {
		return nil, err
	}

	if cfg.ReplayInterval, err = getenvDuration("REPLAY_INTERVAL", "1m"); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}

	cfg.BlynkToken = os.Getenv("BLYNK_TOKEN")
	cfg.BlynkBaseURL = getenvDefault("BLYNK_BASE_URL", "https://blynk.cloud")

	cfg.StoreDriver = strings.ToLower(getenvDefault("STORE_DRIVER", DriverMemory))
	switch cfg.StoreDriver {
	case DriverMemory, DriverSQLite:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: want %s or %s", cfg.StoreDriver, DriverMemory, DriverSQLite)
	}
	cfg.SQLitePath = getenvDefault("SQLITE_PATH", "series.db")

	if cfg.StoreMaxSeries, err = getenvInt("STORE_MAX_SERIES", 16); err != nil {
		return nil, err
	}
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}

	level, err := zerolog.ParseLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level
	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
