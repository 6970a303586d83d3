package postgres

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/agro-analytics-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload(t *testing.T) {
	rec, err := decodePayload([]byte(`{"Fecha":"19/02/2026 02:00 p.m.","Temp":21.35,"Precip":"0.2","Vmax":null}`))
	require.NoError(t, err)

	assert.Equal(t, "19/02/2026 02:00 p.m.", rec["Fecha"])
	assert.Equal(t, json.Number("21.35"), rec["Temp"])
	assert.Equal(t, "0.2", rec["Precip"])
	assert.Contains(t, rec, "Vmax")
	assert.Nil(t, rec["Vmax"])
}

func TestDecodePayload_NormalizesLikeStoreDocuments(t *testing.T) {
	rec, err := decodePayload([]byte(`{"timestamp_extraccion_lote":{"_seconds":1771513200,"_nanoseconds":0},"temperatura":19,"precipitacion":0}`))
	require.NoError(t, err)

	n := domain.NewNormalizer(time.UTC)
	out, fb := n.Normalize(rec)

	assert.False(t, fb.Timestamp)
	assert.False(t, fb.Numeric())
	assert.True(t, time.Unix(1771513200, 0).Equal(out.Timestamp))
	assert.Equal(t, 19.0, out.TemperatureC)
}

func TestDecodePayload_Null(t *testing.T) {
	rec, err := decodePayload([]byte(`null`))
	require.NoError(t, err)
	assert.NotNil(t, rec)
	assert.Empty(t, rec)
}

func TestDecodePayload_Invalid(t *testing.T) {
	_, err := decodePayload([]byte(`[1,2,3]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode telemetry payload")
}
