package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/snorkelcast/snorkelcast/internal/forecast"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, engine *forecast.Engine) {
	v1 := app.Group("/api/v1")

	v1.Get("/forecast", func(c *fiber.Ctx) error {
		q, err := parseForecastQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		hours, err := engine.Forecast(c.UserContext(), forecast.Request{
			Lat:         q.Lat,
			Lon:         q.Lon,
			Timezone:    q.Timezone,
			Hours:       q.Hours,
			LocationKey: q.Location,
		})
		if err != nil {
			// The engine only errors on contract violations.
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		loc, err := time.LoadLocation(q.Timezone)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "unknown timezone")
		}

		// The engine returns the full horizon; presentation drops hours
		// already in the past.
		now := time.Now().In(loc)
		future := make([]forecast.HourlyRecord, 0, len(hours))
		for _, h := range hours {
			if !h.Time.Before(now) {
				future = append(future, h)
			}
		}

		return c.JSON(forecastResponse{
			Lat:       q.Lat,
			Lon:       q.Lon,
			Timezone:  q.Timezone,
			Location:  q.Location,
			Hours:     future,
			HighTides: highTides(future),
			Summary:   summarize(future),
		})
	})
}

type forecastQuery struct {
	Lat      float64 `validate:"gte=-90,lte=90"`
	Lon      float64 `validate:"gte=-180,lte=180"`
	Timezone string  `validate:"required"`
	Hours    int     `validate:"gte=1,lte=168"`
	Location string
}

func parseForecastQuery(c *fiber.Ctx) (forecastQuery, error) {
	var q forecastQuery

	latStr := c.Query("lat")
	lonStr := c.Query("lon")
	if latStr == "" || lonStr == "" {
		return q, errors.New("lat and lon query parameters are required")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return q, errors.New("lat must be a number")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return q, errors.New("lon must be a number")
	}

	q.Lat = lat
	q.Lon = lon
	q.Timezone = c.Query("timezone")
	q.Hours = c.QueryInt("hours", forecast.DefaultHorizon)
	q.Location = c.Query("location")

	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

type forecastResponse struct {
	Lat       float64                 `json:"lat"`
	Lon       float64                 `json:"lon"`
	Timezone  string                  `json:"timezone"`
	Location  string                  `json:"location,omitempty"`
	Hours     []forecast.HourlyRecord `json:"hours"`
	HighTides []time.Time             `json:"highTides"`
	Summary   forecastSummary         `json:"summary"`
}

type forecastSummary struct {
	TotalHours int        `json:"totalHours"`
	OKCount    int        `json:"okCount"`
	PercentOK  int        `json:"percentOk"`
	EarliestOK *time.Time `json:"earliestOk"`
	LatestOK   *time.Time `json:"latestOk"`
}

func summarize(hours []forecast.HourlyRecord) forecastSummary {
	s := forecastSummary{TotalHours: len(hours)}
	for _, h := range hours {
		if !h.OK {
			continue
		}
		s.OKCount++
		t := h.Time
		if s.EarliestOK == nil {
			s.EarliestOK = &t
		}
		latest := t
		s.LatestOK = &latest
	}
	if s.TotalHours > 0 {
		s.PercentOK = int(float64(s.OKCount)/float64(s.TotalHours)*100 + 0.5)
	}
	return s
}

func highTides(hours []forecast.HourlyRecord) []time.Time {
	tides := make([]time.Time, 0, 4)
	for _, h := range hours {
		if h.IsHighTide {
			tides = append(tides, h.Time)
		}
	}
	return tides
}
