package climate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testHTTPClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Second}
}

// TestUnknownParameter verifies that a name outside the lookup table fails
// before any network call and that the error enumerates the valid options.
func TestUnknownParameter(t *testing.T) {
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer ts.Close()

	client := NewClient(testHTTPClient(), ts.URL, 0)

	_, err := client.Hourly(context.Background(), 52.37, 4.9, "20230101", "20230102", "humidity_index", "RE")
	if err == nil {
		t.Fatal("expected an error for unknown parameter")
	}

	var unknownErr *UnknownParameterError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected UnknownParameterError, got %T: %v", err, err)
	}
	if calls != 0 {
		t.Fatalf("expected no upstream calls, got %d", calls)
	}
	for _, name := range ValidParameters() {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("error %q does not list valid option %q", err.Error(), name)
		}
	}
}

// TestKnownParametersNeverRejected checks the other half of the lookup-table
// contract: every valid name maps to a provider code and reaches the upstream.
func TestKnownParametersNeverRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("parameters")
		w.Write([]byte(`{
			"properties": {"parameter": {"` + code + `": {"2023010100": 1.5}}},
			"parameters": {"` + code + `": {"units": "C"}}
		}`))
	}))
	defer ts.Close()

	client := NewClient(testHTTPClient(), ts.URL, 0)

	for _, name := range ValidParameters() {
		if _, err := client.Hourly(context.Background(), 52.37, 4.9, "20230101", "20230102", name, "RE"); err != nil {
			t.Fatalf("parameter %q unexpectedly rejected: %v", name, err)
		}
	}
}

func TestHourlySuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("parameters") != "T2M" {
			t.Errorf("expected parameters=T2M, got %q", q.Get("parameters"))
		}
		if q.Get("community") != "RE" {
			t.Errorf("expected community=RE, got %q", q.Get("community"))
		}
		if q.Get("format") != "JSON" {
			t.Errorf("expected format=JSON, got %q", q.Get("format"))
		}
		if q.Get("start") != "20230101" || q.Get("end") != "20230102" {
			t.Errorf("unexpected date range: start=%q end=%q", q.Get("start"), q.Get("end"))
		}

		w.Write([]byte(`{
			"properties": {"parameter": {"T2M": {"2023010100": 3.2, "2023010101": 3.4}}},
			"parameters": {"T2M": {"units": "C"}}
		}`))
	}))
	defer ts.Close()

	client := NewClient(testHTTPClient(), ts.URL, 0)

	series, err := client.Hourly(context.Background(), 52.37, 4.9, "20230101", "20230102", "temperature", "RE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Unit != "C" {
		t.Fatalf("expected unit C, got %q", series.Unit)
	}
	if len(series.Data) != 2 {
		t.Fatalf("expected 2 values, got %d", len(series.Data))
	}
	if series.Data["2023010100"] != 3.2 {
		t.Fatalf("unexpected value for 2023010100: %v", series.Data["2023010100"])
	}
}

// TestProviderErrorPayload checks that a provider-side error payload is
// surfaced verbatim.
func TestProviderErrorPayload(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors": ["bad key"]}`))
	}))
	defer ts.Close()

	client := NewClient(testHTTPClient(), ts.URL, 0)

	_, err := client.Hourly(context.Background(), 52.37, 4.9, "20230101", "20230102", "temperature", "RE")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if string(apiErr.Errors) != `["bad key"]` {
		t.Fatalf("unexpected error payload: %s", apiErr.Errors)
	}
}

func TestUnexpectedFormat(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"something": "else"}`))
	}))
	defer ts.Close()

	client := NewClient(testHTTPClient(), ts.URL, 0)

	_, err := client.Hourly(context.Background(), 52.37, 4.9, "20230101", "20230102", "temperature", "RE")
	if !errors.Is(err, ErrUnexpectedFormat) {
		t.Fatalf("expected ErrUnexpectedFormat, got %v", err)
	}
}

func TestUpstreamStatusFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	client := NewClient(testHTTPClient(), ts.URL, 0)

	_, err := client.Hourly(context.Background(), 52.37, 4.9, "20230101", "20230102", "temperature", "RE")
	if err == nil {
		t.Fatal("expected an error for a 503 response")
	}
}
