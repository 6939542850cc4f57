package crop

import (
	"encoding/json"
	"testing"

	"cropadvisor/domain/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRow() map[string]string {
	return map[string]string{
		"N":           "90",
		"P":           "42",
		"K":           "43",
		"temperature": "20.8",
		"humidity":    "82.0",
		"ph":          "6.5",
		"rainfall":    "202.9",
	}
}

func TestParseObservation_Valid(t *testing.T) {
	obs, err := ParseObservation(validRow())
	require.NoError(t, err)

	assert.Equal(t, RawObservation{
		Nitrogen: 90, Phosphorus: 42, Potassium: 43,
		Temperature: 20.8, Humidity: 82, PH: 6.5, Rainfall: 202.9,
	}, obs)
}

func TestParseObservation_AliasesAndWhitespace(t *testing.T) {
	obs, err := ParseObservation(map[string]string{
		" Nitrogen ":  " 10 ",
		"PHOSPHORUS":  "20",
		"potassium":   "30",
		"Temp":        "25",
		"Humidity":    "60",
		"pH":          "7",
		"Rain":        "100",
		"ignored_col": "whatever",
	})
	require.NoError(t, err)
	assert.Equal(t, 10.0, obs.Nitrogen)
	assert.Equal(t, 25.0, obs.Temperature)
	assert.Equal(t, 100.0, obs.Rainfall)
}

func TestParseObservation_OutOfRangeAccepted(t *testing.T) {
	row := validRow()
	row["N"] = "-500"
	row["humidity"] = "250"
	row["ph"] = "19"

	obs, err := ParseObservation(row)
	require.NoError(t, err)
	assert.Equal(t, -500.0, obs.Nitrogen)
	assert.Equal(t, 19.0, obs.PH)
}

func TestParseObservation_InvalidInput(t *testing.T) {
	cases := map[string]func(map[string]string){
		"missing field":     func(r map[string]string) { delete(r, "ph") },
		"blank field":       func(r map[string]string) { r["K"] = "  " },
		"non numeric":       func(r map[string]string) { r["rainfall"] = "lots" },
		"NaN":               func(r map[string]string) { r["temperature"] = "NaN" },
		"infinite":          func(r map[string]string) { r["humidity"] = "+Inf" },
		"numeric with unit": func(r map[string]string) { r["N"] = "90kg" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			row := validRow()
			mutate(row)
			_, err := ParseObservation(row)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrInvalidInput)
		})
	}
}

func TestObservationPayload_MissingField(t *testing.T) {
	var payload ObservationPayload
	require.NoError(t, json.Unmarshal([]byte(`{"N":0,"P":42,"K":43,"temperature":20.8,"humidity":82,"ph":6.5}`), &payload))

	_, err := payload.Observation()
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	assert.Contains(t, err.Error(), "rainfall")
}

func TestObservationPayload_ExplicitZeroIsPresent(t *testing.T) {
	var payload ObservationPayload
	require.NoError(t, json.Unmarshal([]byte(`{"N":0,"P":0,"K":0,"temperature":0,"humidity":0,"ph":0,"rainfall":0}`), &payload))

	obs, err := payload.Observation()
	require.NoError(t, err)
	assert.Equal(t, RawObservation{}, obs)
}

func TestFingerprint_Deterministic(t *testing.T) {
	a, err := ParseObservation(validRow())
	require.NoError(t, err)
	b, err := ParseObservation(validRow())
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.Rainfall = 203
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}
