package httpapi

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/pvlabs/solar-irradiance-api/internal/climate"
	"github.com/pvlabs/solar-irradiance-api/internal/forecast"
)

var validate = validator.New()

// ForecastUnit is the unit of every predicted irradiance value.
const ForecastUnit = "W/m²"

// HistoricalClient is the climate-data capability the historical endpoint needs.
type HistoricalClient interface {
	Hourly(ctx context.Context, lat, lon float64, start, end, parameter, community string) (climate.Series, error)
}

// Forecaster is the prediction capability the forecast endpoint needs.
type Forecaster interface {
	Forecast(ctx context.Context, lat, lon float64, start, end string) ([]forecast.Prediction, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, hist HistoricalClient, fc Forecaster, defaultCommunity string) {
	v1 := app.Group("/v1")

	v1.Get("/irradiance/historical", func(c *fiber.Ctx) error {
		var req historicalQuery
		if err := req.bind(c, defaultCommunity); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		series, err := hist.Hourly(c.UserContext(),
			req.Lat, req.Lon, req.Start, req.End, req.Parameter, req.Community)
		if err != nil {
			var apiErr *climate.APIError
			if errors.As(err, &apiErr) {
				// Surface the provider's error payload verbatim.
				return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
					"detail": apiErr.Errors,
				})
			}
			return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
		}

		return c.JSON(fiber.Map{
			"location":   locationMap(req.Lat, req.Lon),
			"unit":       series.Unit,
			"irradiance": series.Data,
		})
	})

	v1.Get("/irradiance/forecast", func(c *fiber.Ctx) error {
		var req forecastQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		predictions, err := fc.Forecast(c.UserContext(), req.Lat, req.Lon, req.Start, req.End)
		if err != nil {
			switch {
			case errors.Is(err, forecast.ErrHorizonExceeded), errors.Is(err, forecast.ErrInvalidWindow):
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			case errors.Is(err, forecast.ErrProviderUnavailable):
				return fiber.NewError(fiber.StatusBadGateway, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to compute forecast")
		}

		values := make(map[string]float64, len(predictions))
		for _, p := range predictions {
			values[p.Time.Format("2006-01-02 15:04")] = math.Round(p.Irradiance*100) / 100
		}

		return c.JSON(fiber.Map{
			"location": locationMap(req.Lat, req.Lon),
			"unit":     ForecastUnit,
			"forecast": values,
		})
	})
}

func locationMap(lat, lon float64) fiber.Map {
	return fiber.Map{"lat": lat, "lon": lon}
}

// coordinateQuery holds the lat/lon query parameters shared by both endpoints.
type coordinateQuery struct {
	Lat float64 `validate:"gte=-90,lte=90"`
	Lon float64 `validate:"gte=-180,lte=180"`
}

func (q *coordinateQuery) bind(c *fiber.Ctx) error {
	latStr := c.Query("lat")
	lonStr := c.Query("lon")
	if latStr == "" || lonStr == "" {
		return errors.New("lat and lon query parameters are required")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return fmt.Errorf("invalid lat: %q", latStr)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return fmt.Errorf("invalid lon: %q", lonStr)
	}

	q.Lat = lat
	q.Lon = lon
	return validate.Struct(q)
}

// historicalQuery holds query parameters for the historical endpoint.
type historicalQuery struct {
	coordinateQuery
	Start     string `validate:"required,len=8,numeric"`
	End       string `validate:"required,len=8,numeric"`
	Parameter string
	Community string
}

func (q *historicalQuery) bind(c *fiber.Ctx, defaultCommunity string) error {
	if err := q.coordinateQuery.bind(c); err != nil {
		return err
	}

	q.Start = c.Query("start")
	q.End = c.Query("end")

	// Both the singular and plural spellings are accepted.
	q.Parameter = c.Query("parameter", c.Query("parameters", "temperature"))
	q.Community = c.Query("community", defaultCommunity)

	if err := validate.Struct(q); err != nil {
		return errors.New("start and end are required in YYYYMMDD form")
	}
	return nil
}

// forecastQuery holds query parameters for the forecast endpoint.
type forecastQuery struct {
	coordinateQuery
	Start string `validate:"required,len=10,numeric"`
	End   string `validate:"required,len=10,numeric"`
}

func (q *forecastQuery) bind(c *fiber.Ctx) error {
	if err := q.coordinateQuery.bind(c); err != nil {
		return err
	}

	q.Start = c.Query("start")
	q.End = c.Query("end")

	if err := validate.Struct(q); err != nil {
		return errors.New("start and end are required in YYYYMMDDHH form")
	}
	return nil
}
