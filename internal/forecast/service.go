package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// hourLayout is the request format for forecast window bounds (YYYYMMDDHH).
const hourLayout = "2006010215"

// lagContext is the amount of extra history fetched before the requested
// start so the longest cloud-cover lag has data to draw on.
const lagContext = 72 * time.Hour

var (
	// ErrInvalidWindow reports a malformed or reversed forecast window.
	ErrInvalidWindow = errors.New("invalid forecast window")

	// ErrHorizonExceeded reports a forecast window longer than the
	// configured maximum horizon.
	ErrHorizonExceeded = errors.New("forecast horizon exceeded")

	// ErrProviderUnavailable reports a failure fetching weather data from
	// the forecast provider.
	ErrProviderUnavailable = errors.New("forecast provider unavailable")
)

// WeatherSource fetches hourly forecast weather for a coordinate and window.
type WeatherSource interface {
	Hourly(ctx context.Context, lat, lon float64, from, to time.Time) (Table, error)
}

// Service runs the irradiance forecast pipeline: fetch weather, derive
// features, predict, post-process, trim to the requested window.
type Service struct {
	source  WeatherSource
	model   Regressor
	horizon time.Duration
}

// NewService creates a forecast Service with the given maximum horizon.
func NewService(source WeatherSource, model Regressor, horizon time.Duration) *Service {
	return &Service{
		source:  source,
		model:   model,
		horizon: horizon,
	}
}

// Forecast predicts hourly irradiance for [start, end], both in YYYYMMDDHH
// form, UTC. The fetch window is extended 72 hours before start to supply
// lag context; warm-up rows never appear in the result. An empty result is
// returned when no row survives lag-context filtering.
func (s *Service) Forecast(ctx context.Context, lat, lon float64, startStr, endStr string) ([]Prediction, error) {
	start, err := time.ParseInLocation(hourLayout, startStr, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: start %q is not in YYYYMMDDHH form", ErrInvalidWindow, startStr)
	}
	end, err := time.ParseInLocation(hourLayout, endStr, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: end %q is not in YYYYMMDDHH form", ErrInvalidWindow, endStr)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s is before start %s", ErrInvalidWindow, endStr, startStr)
	}
	if end.Sub(start) > s.horizon {
		return nil, fmt.Errorf("%w: requested span %s is over the %s maximum horizon",
			ErrHorizonExceeded, end.Sub(start), s.horizon)
	}

	table, err := s.source.Hourly(ctx, lat, lon, start.Add(-lagContext), end)
	if err != nil {
		return nil, err
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	features := BuildFeatures(table, lat, lon)

	predictions, err := Predict(features, s.model)
	if err != nil {
		return nil, err
	}

	// Drop warm-up rows and any hours past the requested end; the
	// day-granular upstream fetch over-covers the window on both sides.
	trimmed := predictions[:0]
	for _, p := range predictions {
		if p.Time.Before(start) || p.Time.After(end) {
			continue
		}
		trimmed = append(trimmed, p)
	}
	return trimmed, nil
}
