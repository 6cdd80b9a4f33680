package forecast

import (
	"math"
	"time"

	"github.com/klausbrunner/gosolarpos"
)

// CloudCoverLags are the lag offsets, in hours, reconstructed for the
// cloud-cover column. The longest lag determines how much warm-up context
// the pipeline fetches before the requested window.
var CloudCoverLags = []int{1, 2, 3, 24, 48, 72}

// daysPerYear is the period used for the cyclical day-of-year encoding.
// Fixed at 365 even in leap years; the trained model's feature distribution
// depends on it.
const daysPerYear = 365

// FeatureTable is a Table enriched with the derived columns the regressor
// consumes. Row count and index are identical to the source table.
type FeatureTable struct {
	Table

	Hour        []int
	DayOfYear   []int
	SinDoy      []float64
	CosDoy      []float64
	SolarZenith []float64

	Lat float64
	Lon float64

	// CloudCoverLag maps a lag offset in hours to the lagged column.
	// Entries whose offset falls before the first table row are math.NaN.
	CloudCoverLag map[int][]float64
}

// BuildFeatures derives time, solar-geometry and lagged cloud-cover features
// from the raw weather table for the given coordinate.
func BuildFeatures(t Table, lat, lon float64) FeatureTable {
	n := t.Len()

	ft := FeatureTable{
		Table:         t,
		Hour:          make([]int, n),
		DayOfYear:     make([]int, n),
		SinDoy:        make([]float64, n),
		CosDoy:        make([]float64, n),
		SolarZenith:   make([]float64, n),
		Lat:           lat,
		Lon:           lon,
		CloudCoverLag: make(map[int][]float64, len(CloudCoverLags)),
	}

	for i, ts := range t.Times {
		ts = ts.UTC()
		doy := ts.YearDay()

		ft.Hour[i] = ts.Hour()
		ft.DayOfYear[i] = doy
		ft.SinDoy[i] = math.Sin(2 * math.Pi * float64(doy) / daysPerYear)
		ft.CosDoy[i] = math.Cos(2 * math.Pi * float64(doy) / daysPerYear)
		ft.SolarZenith[i] = solarZenith(ts, lat, lon)
	}

	for _, lag := range CloudCoverLags {
		col := make([]float64, n)
		for i := range t.Times {
			col[i] = laggedCloudCover(t, i, lag)
		}
		ft.CloudCoverLag[lag] = col
	}

	return ft
}

// laggedCloudCover returns the cloud cover from lag hours before row i,
// or NaN when that hour is not present in the table.
func laggedCloudCover(t Table, i, lag int) float64 {
	j := i - lag
	if j < 0 {
		return math.NaN()
	}
	// Guard against gaps in the hourly index.
	want := t.Times[i].Add(-time.Duration(lag) * time.Hour)
	if !t.Times[j].Equal(want) {
		return math.NaN()
	}
	return t.CloudCover[j]
}

// solarZenith computes the apparent solar zenith angle in degrees
// (0 = sun overhead, >90 = below the horizon) using the Grena3 algorithm.
func solarZenith(ts time.Time, lat, lon float64) float64 {
	deltaT := gosolarpos.EstimateDeltaT(ts)
	// Standard atmosphere; refraction correction near the horizon.
	_, zenith := gosolarpos.Grena3(ts, lat, lon, deltaT, 1013.25, 15.0)
	return zenith
}
