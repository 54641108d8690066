package httpapi

import (
	"bytes"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/iot-weather-simulator/internal/analysis"
	"github.com/i474232898/iot-weather-simulator/internal/sensor"
	"github.com/i474232898/iot-weather-simulator/internal/simulator"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *simulator.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/profile", func(c *fiber.Ctx) error {
		return c.JSON(service.Profile())
	})

	v1.Get("/dewpoint", func(c *fiber.Ctx) error {
		var q dewPointQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		dp, err := sensor.DewPoint(*q.Temperature, *q.Humidity)
		if err != nil {
			return mapError(err)
		}
		return c.JSON(fiber.Map{
			"temperatureC":    *q.Temperature,
			"humidityPercent": *q.Humidity,
			"dewPointC":       dp,
		})
	})

	v1.Post("/series", func(c *fiber.Ctx) error {
		var req createSeriesRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		start, err := parseTime(req.Start)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		series, err := service.Create(sensor.SeriesConfig{
			Start:           start,
			DurationMinutes: req.DurationMinutes,
			Seed:            *req.Seed,
		})
		if err != nil {
			return mapError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(series.Info())
	})

	v1.Post("/series/import", func(c *fiber.Ctx) error {
		loc := time.UTC
		if tz := c.Query("tz"); tz != "" {
			l, err := time.LoadLocation(tz)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid tz")
			}
			loc = l
		}

		series, err := service.Import(bytes.NewReader(c.Body()), loc)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(series.Info())
	})

	v1.Get("/series", func(c *fiber.Ctx) error {
		list, err := service.List()
		if err != nil {
			return mapError(err)
		}
		return c.JSON(fiber.Map{"series": list})
	})

	v1.Get("/series/:id", func(c *fiber.Ctx) error {
		series, err := service.Get(c.Params("id"))
		if err != nil {
			return mapError(err)
		}
		return c.JSON(series)
	})

	v1.Get("/series/:id/table.csv", func(c *fiber.Ctx) error {
		series, err := service.Get(c.Params("id"))
		if err != nil {
			return mapError(err)
		}

		var buf bytes.Buffer
		if err := sensor.WriteCSV(&buf, series.Readings); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to render table")
		}
		c.Attachment("iot_sensor_readings.csv")
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		return c.Send(buf.Bytes())
	})

	v1.Get("/series/:id/readings", func(c *fiber.Ctx) error {
		var req rangeQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		id := c.Params("id")
		readings, err := service.Range(id, req.From, req.To)
		if err != nil {
			return mapError(err)
		}
		return c.JSON(fiber.Map{
			"seriesId": id,
			"from":     req.From,
			"to":       req.To,
			"readings": readings,
		})
	})

	v1.Get("/series/:id/latest", func(c *fiber.Ctx) error {
		r, err := service.Latest(c.Params("id"))
		if err != nil {
			return mapError(err)
		}
		return c.JSON(r)
	})

	v1.Post("/series/:id/publish", func(c *fiber.Ctx) error {
		res, err := service.PublishNext(c.UserContext(), c.Params("id"))
		if err != nil && !errors.Is(err, simulator.ErrPublishFailed) {
			return mapError(err)
		}
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(res)
		}
		return c.JSON(res)
	})

	v1.Get("/series/:id/evaluation", func(c *fiber.Ctx) error {
		var q evaluationQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		report, err := service.Evaluate(c.Params("id"), q.Train)
		if err != nil {
			return mapError(err)
		}
		return c.JSON(report)
	})

	v1.Get("/series/:id/forecast", func(c *fiber.Ctx) error {
		var q forecastQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		p := analysis.Parameter(q.Parameter)
		points, err := service.Forecast(c.Params("id"), p, q.Steps)
		if err != nil {
			return mapError(err)
		}
		return c.JSON(fiber.Map{
			"seriesId":  c.Params("id"),
			"parameter": p,
			"degree":    p.Degree(),
			"points":    points,
		})
	})
}

// mapError translates domain errors into HTTP errors.
func mapError(err error) error {
	switch {
	case errors.Is(err, simulator.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "no series data for request")
	case errors.Is(err, simulator.ErrNotReplayed):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, sensor.ErrInvalidConfig):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, sensor.ErrDomain),
		errors.Is(err, analysis.ErrTooFewPoints),
		errors.Is(err, analysis.ErrEmpty):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, analysis.ErrInvalidRatio):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

// createSeriesRequest is the body of POST /series.
type createSeriesRequest struct {
	Start           string `json:"start" validate:"required"`
	DurationMinutes int    `json:"durationMinutes" validate:"required,gt=0,lte=10080"`
	Seed            *int64 `json:"seed" validate:"required"`
}

type dewPointQuery struct {
	Temperature *float64 `validate:"required"`
	Humidity    *float64 `validate:"required"`
}

func (q *dewPointQuery) bind(c *fiber.Ctx) error {
	var err error
	if q.Temperature, err = queryFloat(c, "temperature"); err != nil {
		return err
	}
	if q.Humidity, err = queryFloat(c, "humidity"); err != nil {
		return err
	}
	return validate.Struct(q)
}

type evaluationQuery struct {
	Train float64 `validate:"gt=0,lt=1"`
}

func (q *evaluationQuery) bind(c *fiber.Ctx) error {
	q.Train = analysis.DefaultTrainRatio
	train, err := queryFloat(c, "train")
	if err != nil {
		return err
	}
	if train != nil {
		q.Train = *train
	}
	return validate.Struct(q)
}

type forecastQuery struct {
	Parameter string `validate:"required,oneof=temperature humidity pressure dewPoint"`
	Steps     int    `validate:"gt=0,lte=1440"`
}

func (q *forecastQuery) bind(c *fiber.Ctx) error {
	q.Parameter = c.Query("parameter", string(analysis.Temperature))
	q.Steps = 60
	if s := c.Query("steps"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return errors.New("invalid steps")
		}
		q.Steps = n
	}
	return validate.Struct(q)
}

// rangeQuery holds query parameters for the readings endpoint.
type rangeQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (r *rangeQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	r.From = from
	r.To = to
	return nil
}

func queryFloat(c *fiber.Ctx, key string) (*float64, error) {
	s := c.Query(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.New("invalid " + key)
	}
	return &v, nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
