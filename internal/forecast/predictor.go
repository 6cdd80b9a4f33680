package forecast

import (
	"fmt"
	"math"

	"github.com/dmitryikh/leaves"
)

// nightZenithDeg is the zenith angle beyond which the sun is below the
// horizon and irradiance is forced to zero.
const nightZenithDeg = 90.0

// Regressor is the pre-trained model capability the predictor consumes.
// Implementations must be safe for concurrent use; the loaded model is
// shared read-only across requests.
type Regressor interface {
	Predict(rows [][]float64) ([]float64, error)
}

// XGBRegressor wraps a leaves gradient-boosted ensemble loaded from the
// artifact produced by the offline training pipeline.
type XGBRegressor struct {
	model *leaves.Ensemble
}

// LoadXGBRegressor reads an XGBoost model file from disk.
func LoadXGBRegressor(path string) (*XGBRegressor, error) {
	model, err := leaves.XGEnsembleFromFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	return &XGBRegressor{model: model}, nil
}

// Predict runs the ensemble over a dense feature matrix, one prediction per row.
func (r *XGBRegressor) Predict(rows [][]float64) ([]float64, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	ncols := len(rows[0])
	vals := make([]float64, 0, len(rows)*ncols)
	for i, row := range rows {
		if len(row) != ncols {
			return nil, fmt.Errorf("feature row %d has %d columns, want %d", i, len(row), ncols)
		}
		vals = append(vals, row...)
	}

	preds := make([]float64, len(rows))
	if err := r.model.PredictDense(vals, len(rows), ncols, preds, 0, 1); err != nil {
		return nil, fmt.Errorf("model prediction: %w", err)
	}
	return preds, nil
}

// featureRow assembles the model's feature vector for row i. The order is
// fixed by the training pipeline and must not change.
func featureRow(ft FeatureTable, i int) []float64 {
	row := make([]float64, 0, 9+len(CloudCoverLags))
	row = append(row,
		ft.Temperature[i],
		ft.RelativeHumidity[i],
		ft.Precipitation[i],
		ft.CloudCover[i],
		ft.SolarZenith[i],
		ft.SinDoy[i],
		ft.CosDoy[i],
		ft.Lat,
		ft.Lon,
	)
	for _, lag := range CloudCoverLags {
		row = append(row, ft.CloudCoverLag[lag][i])
	}
	return row
}

// Predict selects the model features from the enriched table, drops rows
// with incomplete lag context, runs the regressor, and applies the physical
// post-processing rules: predictions are clamped to zero and night-time
// rows (zenith beyond the horizon) are forced to zero.
func Predict(ft FeatureTable, model Regressor) ([]Prediction, error) {
	var (
		rows    [][]float64
		indices []int
	)

	for i := 0; i < ft.Len(); i++ {
		row := featureRow(ft, i)
		if hasNaN(row) {
			continue
		}
		rows = append(rows, row)
		indices = append(indices, i)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	values, err := model.Predict(rows)
	if err != nil {
		return nil, err
	}
	if len(values) != len(rows) {
		return nil, fmt.Errorf("model returned %d predictions for %d rows", len(values), len(rows))
	}

	out := make([]Prediction, len(values))
	for k, v := range values {
		i := indices[k]
		if v < 0 {
			v = 0
		}
		if ft.SolarZenith[i] > nightZenithDeg {
			v = 0
		}
		out[k] = Prediction{Time: ft.Times[i], Irradiance: v}
	}
	return out, nil
}

func hasNaN(row []float64) bool {
	for _, v := range row {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
