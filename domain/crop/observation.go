package crop

import (
	"math"
	"strconv"
	"strings"

	"cropadvisor/domain/core"
)

// Canonical raw field keys. These are the column names the classifier was
// trained on, so CSV headers and sensor payloads use them too.
const (
	FieldNitrogen    = "N"
	FieldPhosphorus  = "P"
	FieldPotassium   = "K"
	FieldTemperature = "temperature"
	FieldHumidity    = "humidity"
	FieldPH          = "ph"
	FieldRainfall    = "rainfall"
)

// ObservationFields lists the raw fields in training column order.
var ObservationFields = []string{
	FieldNitrogen,
	FieldPhosphorus,
	FieldPotassium,
	FieldTemperature,
	FieldHumidity,
	FieldPH,
	FieldRainfall,
}

var fieldAliases = map[string]string{
	"n":           FieldNitrogen,
	"nitrogen":    FieldNitrogen,
	"p":           FieldPhosphorus,
	"phosphorus":  FieldPhosphorus,
	"k":           FieldPotassium,
	"potassium":   FieldPotassium,
	"temperature": FieldTemperature,
	"temp":        FieldTemperature,
	"humidity":    FieldHumidity,
	"ph":          FieldPH,
	"rainfall":    FieldRainfall,
	"rain":        FieldRainfall,
}

// CanonicalField maps a header or payload key onto its canonical field name.
func CanonicalField(key string) (string, bool) {
	field, ok := fieldAliases[strings.ToLower(strings.TrimSpace(key))]
	return field, ok
}

// RawObservation is one set of soil and climate readings.
// Values outside the agronomic range are accepted as-is.
type RawObservation struct {
	Nitrogen    float64 `json:"N" db:"nitrogen"`
	Phosphorus  float64 `json:"P" db:"phosphorus"`
	Potassium   float64 `json:"K" db:"potassium"`
	Temperature float64 `json:"temperature" db:"temperature"`
	Humidity    float64 `json:"humidity" db:"humidity"`
	PH          float64 `json:"ph" db:"ph"`
	Rainfall    float64 `json:"rainfall" db:"rainfall"`
}

// Values returns the raw readings in ObservationFields order.
func (o RawObservation) Values() []float64 {
	return []float64{o.Nitrogen, o.Phosphorus, o.Potassium, o.Temperature, o.Humidity, o.PH, o.Rainfall}
}

// Validate rejects NaN and infinite readings. Out-of-range finite values pass.
func (o RawObservation) Validate() error {
	for i, v := range o.Values() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return core.NewInvalidInputError(ObservationFields[i], "is not a finite number")
		}
	}
	return nil
}

// Fingerprint identifies the observation by the exact bits of its readings.
func (o RawObservation) Fingerprint() core.Hash {
	return core.HashFloats(o.Values()...)
}

// ParseObservation builds an observation from untyped key/value pairs such as a
// CSV row or form values. Keys are matched through CanonicalField.
func ParseObservation(values map[string]string) (RawObservation, error) {
	canonical := make(map[string]string, len(values))
	for key, value := range values {
		if field, ok := CanonicalField(key); ok {
			canonical[field] = value
		}
	}

	parsed := make([]float64, len(ObservationFields))
	for i, field := range ObservationFields {
		raw, ok := canonical[field]
		if !ok || strings.TrimSpace(raw) == "" {
			return RawObservation{}, core.NewInvalidInputError(field, "is missing")
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return RawObservation{}, core.NewInvalidInputError(field, "is not numeric: "+strconv.Quote(raw))
		}
		parsed[i] = v
	}

	obs := RawObservation{
		Nitrogen:    parsed[0],
		Phosphorus:  parsed[1],
		Potassium:   parsed[2],
		Temperature: parsed[3],
		Humidity:    parsed[4],
		PH:          parsed[5],
		Rainfall:    parsed[6],
	}
	if err := obs.Validate(); err != nil {
		return RawObservation{}, err
	}
	return obs, nil
}

// ObservationPayload is the JSON request shape. Pointers distinguish a missing
// field from an explicit zero.
type ObservationPayload struct {
	Nitrogen    *float64 `json:"N"`
	Phosphorus  *float64 `json:"P"`
	Potassium   *float64 `json:"K"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	PH          *float64 `json:"ph"`
	Rainfall    *float64 `json:"rainfall"`
}

// Observation converts the payload, failing with ErrInvalidInput on the first
// missing field.
func (p ObservationPayload) Observation() (RawObservation, error) {
	fields := []*float64{p.Nitrogen, p.Phosphorus, p.Potassium, p.Temperature, p.Humidity, p.PH, p.Rainfall}
	for i, f := range fields {
		if f == nil {
			return RawObservation{}, core.NewInvalidInputError(ObservationFields[i], "is missing")
		}
	}
	obs := RawObservation{
		Nitrogen:    *p.Nitrogen,
		Phosphorus:  *p.Phosphorus,
		Potassium:   *p.Potassium,
		Temperature: *p.Temperature,
		Humidity:    *p.Humidity,
		PH:          *p.PH,
		Rainfall:    *p.Rainfall,
	}
	if err := obs.Validate(); err != nil {
		return RawObservation{}, err
	}
	return obs, nil
}
