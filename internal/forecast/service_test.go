package forecast

import (
	"context"
	"errors"
	"testing"
	"time"
)

// stubSource serves a synthetic contiguous hourly table covering exactly the
// requested window, and records the window it was asked for.
type stubSource struct {
	from, to time.Time
	calls    int
	err      error
}

func (s *stubSource) Hourly(ctx context.Context, lat, lon float64, from, to time.Time) (Table, error) {
	s.calls++
	s.from = from
	s.to = to
	if s.err != nil {
		return Table{}, s.err
	}
	n := int(to.Sub(from)/time.Hour) + 1
	return hourlyTable(from, n), nil
}

func TestForecastHorizonBoundary(t *testing.T) {
	source := &stubSource{}
	svc := NewService(source, &fakeRegressor{Constant: 50}, 240*time.Hour)

	// Exactly at the horizon: succeeds.
	if _, err := svc.Forecast(context.Background(), 52.37, 4.9, "2023010100", "2023011100"); err != nil {
		t.Fatalf("span equal to the horizon should succeed, got %v", err)
	}

	// One hour beyond: fails.
	_, err := svc.Forecast(context.Background(), 52.37, 4.9, "2023010100", "2023011101")
	if !errors.Is(err, ErrHorizonExceeded) {
		t.Fatalf("expected ErrHorizonExceeded, got %v", err)
	}
}

func TestForecastInvalidWindow(t *testing.T) {
	svc := NewService(&stubSource{}, &fakeRegressor{}, 240*time.Hour)

	cases := []struct {
		name       string
		start, end string
	}{
		{"garbage start", "not-a-time", "2023010100"},
		{"garbage end", "2023010100", "tomorrow"},
		{"day precision only", "20230101", "20230102"},
		{"end before start", "2023010200", "2023010100"},
	}
	for _, tc := range cases {
		_, err := svc.Forecast(context.Background(), 52.37, 4.9, tc.start, tc.end)
		if !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("%s: expected ErrInvalidWindow, got %v", tc.name, err)
		}
	}
}

func TestForecastExtendsWindowForLagContext(t *testing.T) {
	source := &stubSource{}
	svc := NewService(source, &fakeRegressor{Constant: 50}, 240*time.Hour)

	start := time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC)
	if _, err := svc.Forecast(context.Background(), 52.37, 4.9, "2023010500", "2023010600"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantFrom := start.Add(-72 * time.Hour)
	if !source.from.Equal(wantFrom) {
		t.Fatalf("fetch window should start at %s, got %s", wantFrom, source.from)
	}
}

// TestForecastTrimsWarmupRows checks that no warm-up hour ever leaks into the
// result even though the fetch window begins 72 hours early.
func TestForecastTrimsWarmupRows(t *testing.T) {
	source := &stubSource{}
	svc := NewService(source, &fakeRegressor{Constant: 50}, 240*time.Hour)

	start := time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 1, 6, 0, 0, 0, 0, time.UTC)

	preds, err := svc.Forecast(context.Background(), 52.37, 4.9, "2023010500", "2023010600")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 25 requested hours, all with full lag context.
	if len(preds) != 25 {
		t.Fatalf("expected 25 predictions, got %d", len(preds))
	}
	for _, p := range preds {
		if p.Time.Before(start) {
			t.Fatalf("warm-up row %s leaked into the result", p.Time)
		}
		if p.Time.After(end) {
			t.Fatalf("row %s is past the requested end", p.Time)
		}
	}
	if !preds[0].Time.Equal(start) {
		t.Fatalf("first prediction should be at %s, got %s", start, preds[0].Time)
	}
	if !preds[len(preds)-1].Time.Equal(end) {
		t.Fatalf("last prediction should be at %s, got %s", end, preds[len(preds)-1].Time)
	}
}

func TestForecastDeterministic(t *testing.T) {
	source := &stubSource{}
	svc := NewService(source, &fakeRegressor{Constant: 50}, 240*time.Hour)

	first, err := svc.Forecast(context.Background(), 52.37, 4.9, "2023010500", "2023010600")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Forecast(context.Background(), 52.37, 4.9, "2023010500", "2023010600")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("runs differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("row %d differs between identical runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

// TestForecastEmptyWithoutLagContext covers the degenerate case where the
// provider returns too little history for any row to have full lag context.
type shortSource struct{}

func (shortSource) Hourly(ctx context.Context, lat, lon float64, from, to time.Time) (Table, error) {
	return hourlyTable(from, 10), nil
}

func TestForecastEmptyWithoutLagContext(t *testing.T) {
	svc := NewService(shortSource{}, &fakeRegressor{Constant: 50}, 240*time.Hour)

	preds, err := svc.Forecast(context.Background(), 52.37, 4.9, "2023010500", "2023010600")
	if err != nil {
		t.Fatalf("expected empty result, got error %v", err)
	}
	if len(preds) != 0 {
		t.Fatalf("expected no predictions, got %d", len(preds))
	}
}

func TestForecastPropagatesProviderFailure(t *testing.T) {
	source := &stubSource{err: ErrProviderUnavailable}
	svc := NewService(source, &fakeRegressor{}, 240*time.Hour)

	_, err := svc.Forecast(context.Background(), 52.37, 4.9, "2023010500", "2023010600")
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}
