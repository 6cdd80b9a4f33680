package climate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pvlabs/solar-irradiance-api/internal/upstream"
)

// parameterCodes maps user-facing variable names to NASA POWER parameter codes.
var parameterCodes = map[string]string{
	"total_irradiance":     "ALLSKY_SFC_SW_DWN",
	"clear_sky_irradiance": "CLRSKY_SFC_SW_DWN",
	"temperature":          "T2M",
	"wind_speed":           "WS2M",
	"relative_humidity":    "RH2M",
	"precipitation":        "PRECTOTCORR",
	"surface_pressure":     "PS",
	"cloud_cover":          "CLOUD_AMT",
}

// ValidParameters returns the sorted list of accepted user-facing
// parameter names.
func ValidParameters() []string {
	names := make([]string, 0, len(parameterCodes))
	for name := range parameterCodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ErrUnexpectedFormat reports a success response whose payload did not have
// the expected nested parameter/unit structure.
var ErrUnexpectedFormat = errors.New("unexpected response format from NASA POWER API")

// UnknownParameterError reports a parameter name missing from the lookup
// table. Detected before any network call.
type UnknownParameterError struct {
	Name string
}

func (e *UnknownParameterError) Error() string {
	return fmt.Sprintf("unknown parameter %q, valid options: %s", e.Name, strings.Join(ValidParameters(), ", "))
}

// APIError carries the provider's own error payload, verbatim.
type APIError struct {
	Errors json.RawMessage
}

func (e *APIError) Error() string {
	return string(e.Errors)
}

// Series is an hourly value series for one climate parameter, keyed by the
// provider's YYYYMMDDHH timestamp strings.
type Series struct {
	Data map[string]float64
	Unit string
}

// Client fetches historical climate data from the NASA POWER hourly API.
type Client struct {
	baseURL string
	doer    *upstream.Doer
}

// NewClient creates a climate Client. retries controls outbound retry
// attempts; the default deployment uses 0.
func NewClient(httpClient *http.Client, baseURL string, retries int) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		doer:    newDoer(httpClient, "nasa-power", retries),
	}
}

// Hourly fetches one parameter for a coordinate and YYYYMMDD date range.
// parameter is the user-facing name; community is the POWER community tag.
func (c *Client) Hourly(ctx context.Context, lat, lon float64, start, end, parameter, community string) (Series, error) {
	code, ok := parameterCodes[parameter]
	if !ok {
		return Series{}, &UnknownParameterError{Name: parameter}
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("parameters", code)
		values.Set("community", community)
		values.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
		values.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
		values.Set("start", start)
		values.Set("end", end)
		values.Set("format", "JSON")

		u := fmt.Sprintf("%s/api/temporal/hourly/point?%s", c.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := c.doer.Do(ctx, buildRequest)
	if err != nil {
		return Series{}, fmt.Errorf("climate data request failed: %w", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Properties struct {
			Parameter map[string]map[string]float64 `json:"parameter"`
		} `json:"properties"`
		Parameters map[string]struct {
			Units string `json:"units"`
		} `json:"parameters"`
		Errors json.RawMessage `json:"errors"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Series{}, fmt.Errorf("decode climate data response: %w", err)
	}

	data, haveData := payload.Properties.Parameter[code]
	meta, haveMeta := payload.Parameters[code]
	if haveData && haveMeta && meta.Units != "" {
		return Series{Data: data, Unit: meta.Units}, nil
	}

	if len(payload.Errors) > 0 {
		return Series{}, &APIError{Errors: payload.Errors}
	}

	return Series{}, ErrUnexpectedFormat
}

func newDoer(httpClient *http.Client, name string, retries int) *upstream.Doer {
	return upstream.NewDoer(httpClient, name, upstream.Backoff{
		MaxRetries:      retries,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	})
}
