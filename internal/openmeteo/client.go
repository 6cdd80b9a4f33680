package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pvlabs/solar-irradiance-api/internal/forecast"
	"github.com/pvlabs/solar-irradiance-api/internal/upstream"
)

// hourlyVariables are the forecast variables requested from Open-Meteo,
// in the order they map onto the weather table columns.
const hourlyVariables = "temperature_2m,relative_humidity_2m,cloud_cover,precipitation"

// timeLayout is Open-Meteo's hourly timestamp format.
const timeLayout = "2006-01-02T15:04"

// Client fetches hourly forecast weather from the Open-Meteo API.
type Client struct {
	baseURL string
	doer    *upstream.Doer
}

// NewClient creates an Open-Meteo Client. No API key is required.
func NewClient(httpClient *http.Client, baseURL string, retries int) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		doer: upstream.NewDoer(httpClient, "open-meteo", upstream.Backoff{
			MaxRetries:      retries,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		}),
	}
}

// Hourly fetches temperature, relative humidity, cloud cover and
// precipitation at hourly resolution for the calendar days covering
// [from, to], in UTC, and zips the response arrays into a weather table.
func (c *Client) Hourly(ctx context.Context, lat, lon float64, from, to time.Time) (forecast.Table, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
		values.Set("hourly", hourlyVariables)
		values.Set("timezone", "UTC")
		values.Set("start_date", from.UTC().Format("2006-01-02"))
		values.Set("end_date", to.UTC().Format("2006-01-02"))

		u := fmt.Sprintf("%s/v1/forecast?%s", c.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := c.doer.Do(ctx, buildRequest)
	if err != nil {
		return forecast.Table{}, fmt.Errorf("%w: %v", forecast.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Hourly struct {
			Time             []string  `json:"time"`
			Temperature      []float64 `json:"temperature_2m"`
			RelativeHumidity []float64 `json:"relative_humidity_2m"`
			CloudCover       []float64 `json:"cloud_cover"`
			Precipitation    []float64 `json:"precipitation"`
		} `json:"hourly"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return forecast.Table{}, fmt.Errorf("%w: decode response: %v", forecast.ErrProviderUnavailable, err)
	}

	h := payload.Hourly
	n := len(h.Time)
	if n == 0 {
		return forecast.Table{}, fmt.Errorf("%w: response contains no hourly data", forecast.ErrProviderUnavailable)
	}
	if len(h.Temperature) != n || len(h.RelativeHumidity) != n || len(h.CloudCover) != n || len(h.Precipitation) != n {
		return forecast.Table{}, fmt.Errorf("%w: hourly arrays do not match %d timestamps", forecast.ErrProviderUnavailable, n)
	}

	times := make([]time.Time, n)
	for i, raw := range h.Time {
		ts, err := time.ParseInLocation(timeLayout, raw, time.UTC)
		if err != nil {
			return forecast.Table{}, fmt.Errorf("%w: bad hourly timestamp %q", forecast.ErrProviderUnavailable, raw)
		}
		times[i] = ts
	}

	return forecast.Table{
		Times:            times,
		Temperature:      h.Temperature,
		RelativeHumidity: h.RelativeHumidity,
		CloudCover:       h.CloudCover,
		Precipitation:    h.Precipitation,
	}, nil
}
