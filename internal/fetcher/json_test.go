package fetcher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testCoords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func TestDecodeJSONObject(t *testing.T) {
	got, err := DecodeJSONObject[testCoords](strings.NewReader(`{"lat":52.52,"lng":13.405}`))
	require.NoError(t, err)
	assert.InDelta(t, 52.52, got.Lat, 1e-9)
	assert.InDelta(t, 13.405, got.Lng, 1e-9)
}

func TestDecodeJSONObject_Invalid(t *testing.T) {
	_, err := DecodeJSONObject[testCoords](strings.NewReader(`{"lat":`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "json: decode object")
}
