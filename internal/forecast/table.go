package forecast

import (
	"fmt"
	"time"
)

// Table is an hour-indexed table of raw forecast variables, one entry per
// forecast hour. Timestamps are UTC and strictly increasing.
type Table struct {
	Times            []time.Time
	Temperature      []float64
	RelativeHumidity []float64
	CloudCover       []float64
	Precipitation    []float64
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Times)
}

// Validate checks that all columns have the same length and that the
// timestamp index is strictly increasing with no duplicates.
func (t Table) Validate() error {
	n := len(t.Times)
	if len(t.Temperature) != n || len(t.RelativeHumidity) != n ||
		len(t.CloudCover) != n || len(t.Precipitation) != n {
		return fmt.Errorf("column length mismatch: %d timestamps, %d/%d/%d/%d values",
			n, len(t.Temperature), len(t.RelativeHumidity), len(t.CloudCover), len(t.Precipitation))
	}
	for i := 1; i < n; i++ {
		if !t.Times[i].After(t.Times[i-1]) {
			return fmt.Errorf("timestamp index not strictly increasing at row %d (%s)", i, t.Times[i])
		}
	}
	return nil
}

// Prediction pairs a forecast hour with its predicted irradiance in W/m².
type Prediction struct {
	Time       time.Time
	Irradiance float64
}
