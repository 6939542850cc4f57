package features

import (
	"testing"

	"cropadvisor/domain/core"
	"cropadvisor/domain/crop"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaEncode_ColumnOrder(t *testing.T) {
	f := Engineer(referenceObservation())
	vec := DefaultSchema.Encode(f)

	require.Len(t, vec, DefaultSchema.Width())
	assert.Equal(t, 13, DefaultSchema.Width())

	byColumn := make(map[string]float64, len(vec))
	for i, col := range DefaultSchema.Columns {
		byColumn[col] = vec[i]
	}

	assert.Equal(t, 90.0, byColumn[crop.FieldNitrogen])
	assert.Equal(t, 202.9, byColumn[crop.FieldRainfall])
	assert.InDelta(t, f.NPKAverage, byColumn[ColumnNPK], tolerance)
	assert.Equal(t, 3.0, byColumn[ColumnRainfallLevel])
	assert.Equal(t, 1.0, byColumn[ColumnPHCategory])
	assert.InDelta(t, 1318.85, byColumn[ColumnPHRainInteraction], tolerance)
}

func TestSchemaEncode_Unclassified(t *testing.T) {
	obs := referenceObservation()
	obs.Rainfall = 0
	vec := DefaultSchema.Encode(Engineer(obs))

	assert.Equal(t, UnclassifiedCode, vec[9])
}

func TestSchemaVerify(t *testing.T) {
	columns := append([]string(nil), DefaultSchema.Columns...)
	require.NoError(t, DefaultSchema.Verify(SchemaVersion, columns))

	err := DefaultSchema.Verify("crop-features/v0", columns)
	assert.ErrorIs(t, err, core.ErrSchemaMismatch)
	assert.ErrorIs(t, err, core.ErrModelUnavailable)

	assert.ErrorIs(t, DefaultSchema.Verify(SchemaVersion, columns[:12]), core.ErrSchemaMismatch)

	swapped := append([]string(nil), columns...)
	swapped[9], swapped[10] = swapped[10], swapped[9]
	err = DefaultSchema.Verify(SchemaVersion, swapped)
	assert.ErrorIs(t, err, core.ErrSchemaMismatch)
	assert.Contains(t, err.Error(), "column 9")
}
