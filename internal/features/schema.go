package features

import (
	"fmt"
	"math"
	"strings"

	"cropadvisor/domain/core"
	"cropadvisor/domain/crop"
)

// SchemaVersion pins the column order and categorical encoding below. Any
// change to either must bump it, and model manifests must be re-exported.
const SchemaVersion = "crop-features/v1"

// UnclassifiedCode encodes RainfallUnclassified in the feature vector.
const UnclassifiedCode = -1.0

// Column names in vector order.
const (
	ColumnNPK                 = "NPK"
	ColumnTHI                 = "THI"
	ColumnRainfallLevel       = "rainfall_level"
	ColumnPHCategory          = "ph_category"
	ColumnTempRainInteraction = "temp_rain_interaction"
	ColumnPHRainInteraction   = "ph_rain_interaction"
)

// Schema describes how EngineeredFeatures serialize into the classifier's
// input vector.
type Schema struct {
	Version string
	Columns []string
}

// DefaultSchema is the layout the shipped classifiers were trained with: the
// raw columns first, then the engineered columns in the order they were added.
var DefaultSchema = Schema{
	Version: SchemaVersion,
	Columns: []string{
		crop.FieldNitrogen,
		crop.FieldPhosphorus,
		crop.FieldPotassium,
		crop.FieldTemperature,
		crop.FieldHumidity,
		crop.FieldPH,
		crop.FieldRainfall,
		ColumnNPK,
		ColumnTHI,
		ColumnRainfallLevel,
		ColumnPHCategory,
		ColumnTempRainInteraction,
		ColumnPHRainInteraction,
	},
}

// Width is the vector length.
func (s Schema) Width() int {
	return len(s.Columns)
}

// Encode writes f into a new vector in column order. Ordinal categories use
// their declared codes (rainfall 0..3 with -1 for unclassified, pH 0..2).
func (s Schema) Encode(f crop.EngineeredFeatures) []float64 {
	rainfall := UnclassifiedCode
	if f.RainfallLevel.Classified() {
		rainfall = float64(f.RainfallLevel)
	}

	o := f.Observation
	return []float64{
		o.Nitrogen,
		o.Phosphorus,
		o.Potassium,
		o.Temperature,
		o.Humidity,
		o.PH,
		o.Rainfall,
		f.NPKAverage,
		f.TempHumidityIndex,
		rainfall,
		float64(f.PHCategory),
		f.TempRainInteraction,
		f.PHRainInteraction,
	}
}

// CheckFinite reports the first column of f's vector that is NaN or infinite.
func (s Schema) CheckFinite(f crop.EngineeredFeatures) error {
	for i, v := range s.Encode(f) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return core.NewInvalidInputError(s.Columns[i], "overflows")
		}
	}
	return nil
}

// Verify checks that a model artifact was exported against this schema.
// A mismatch would not error at inference time, it would silently mispredict,
// so it is reported as core.ErrSchemaMismatch.
func (s Schema) Verify(version string, columns []string) error {
	if version != s.Version {
		return fmt.Errorf("%w: model expects schema %q, engine provides %q", core.ErrSchemaMismatch, version, s.Version)
	}
	if len(columns) != len(s.Columns) {
		return fmt.Errorf("%w: model expects %d columns, engine provides %d", core.ErrSchemaMismatch, len(columns), len(s.Columns))
	}
	for i, col := range columns {
		if strings.TrimSpace(col) != s.Columns[i] {
			return fmt.Errorf("%w: column %d is %q in the model, %q in the engine", core.ErrSchemaMismatch, i, col, s.Columns[i])
		}
	}
	return nil
}
