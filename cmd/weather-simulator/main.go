package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"

	httpapi "github.com/i474232898/iot-weather-simulator/internal/api/http"
	"github.com/i474232898/iot-weather-simulator/internal/config"
	"github.com/i474232898/iot-weather-simulator/internal/publish"
	"github.com/i474232898/iot-weather-simulator/internal/scheduler"
	"github.com/i474232898/iot-weather-simulator/internal/sensor"
	"github.com/i474232898/iot-weather-simulator/internal/simulator"
	"github.com/i474232898/iot-weather-simulator/internal/store"
)

func main() {
	envFile := flag.String("env-file", ".env", "dotenv file to load before reading the environment")
	port := flag.StringP("port", "p", "", "HTTP port, overrides PORT")
	noReplay := flag.Bool("no-replay", false, "generate the startup series but do not replay it")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration.
	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)
	if *port != "" {
		cfg.Port = *port
	}

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, !*noReplay)
	stop()
	if err != nil {
		log.Fatal().Err(err).Msg("simulator stopped")
	}
}

// run serves until ctx is done. Every resource it opens is released before
// it returns, including on startup failures.
func run(ctx context.Context, cfg *config.AppConfig, replay bool) error {
	seriesStore, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	defer func() {
		if err := seriesStore.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close store")
		}
	}()

	// Shared HTTP client for outbound publisher calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Publishers with resilience (backoff + circuit breaker).
	var pubs []simulator.Publisher
	if cfg.BlynkToken != "" {
		pubs = append(pubs, publish.NewBlynkPublisher(httpClient, cfg.BlynkBaseURL, cfg.BlynkToken))
	} else {
		log.Info().Msg("BLYNK_TOKEN not set; replay will only update the latest reading")
	}

	service := simulator.NewService(seriesStore, sensor.NewGenerator(sensor.DefaultProfile()), pubs)

	// Startup series, stamped in the station's local time.
	series, err := service.Create(cfg.Series)
	if err != nil {
		return fmt.Errorf("generate startup series: %w", err)
	}
	logSummary(series)

	replayID := ""
	if replay {
		replayID = series.ID
	}
	sched := scheduler.New(replayID, cfg.ReplayInterval, service)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "iot-weather-simulator",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":        "ok",
			"service":       "iot-weather-simulator",
			"replaySeries":  replayID,
			"replayEvery":   cfg.ReplayInterval.String(),
			"storageDriver": cfg.StoreDriver,
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service)

	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen on port %s: %w", cfg.Port, err)
	}
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Msg("http server listening")
		if err := app.Listener(ln); err != nil {
			log.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	// Shutdown can run before the server goroutine registered ln.
	_ = ln.Close()
	return nil
}

func openStore(cfg *config.AppConfig) (simulator.Store, error) {
	if cfg.StoreDriver == config.DriverSQLite {
		s, err := store.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return store.NewMemoryStore(cfg.StoreMaxSeries, cfg.StoreMaxAge), nil
}

func logSummary(s simulator.Series) {
	if len(s.Readings) == 0 {
		return
	}
	first := s.Readings[0]
	minT, maxT := first.Temperature, first.Temperature
	minH, maxH := first.Humidity, first.Humidity
	minP, maxP := first.Pressure, first.Pressure
	minD, maxD := first.DewPoint, first.DewPoint
	for _, r := range s.Readings[1:] {
		minT, maxT = min(minT, r.Temperature), max(maxT, r.Temperature)
		minH, maxH = min(minH, r.Humidity), max(maxH, r.Humidity)
		minP, maxP = min(minP, r.Pressure), max(maxP, r.Pressure)
		minD, maxD = min(minD, r.DewPoint), max(maxD, r.DewPoint)
	}

	log.Info().
		Str("series", s.ID).
		Int("entries", len(s.Readings)).
		Str("temperature", rangeString(minT, maxT, "°C")).
		Str("humidity", rangeString(minH, maxH, "%")).
		Str("pressure", rangeString(minP, maxP, " hPa")).
		Str("dewPoint", rangeString(minD, maxD, "°C")).
		Msg("startup series ready")
}

func rangeString(lo, hi float64, unit string) string {
	return fmt.Sprintf("%.1f%s - %.1f%s", lo, unit, hi, unit)
}
