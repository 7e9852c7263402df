package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSales(t *testing.T) {
	t.Parallel()

	v, err := ParseSales("1.234,56")
	require.NoError(t, err)
	assert.InDelta(t, 1234.56, v, 1e-9)

	v, err = ParseSales("-12,5")
	require.NoError(t, err)
	assert.InDelta(t, -12.5, v, 1e-9)

	_, err = ParseSales("abc")
	assert.Error(t, err)

	_, err = ParseSales("  ")
	assert.ErrorIs(t, err, errEmpty)
}

func TestParseVolume_TruncatesDecimals(t *testing.T) {
	t.Parallel()

	v, err := ParseVolume("1.234,0")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), v)

	v, err = ParseVolume("12,9")
	require.NoError(t, err)
	assert.Equal(t, int64(12), v, "fractional part is dropped, not rounded")

	_, err = ParseVolume("1x")
	assert.Error(t, err)
}

func TestParseTickets(t *testing.T) {
	t.Parallel()

	v, err := ParseTickets("12.345")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), v)
}

func TestParseStoreID(t *testing.T) {
	t.Parallel()

	id, err := ParseStoreID("123 - HIPER PALERMO")
	require.NoError(t, err)
	assert.Equal(t, 123, id)

	id, err = ParseStoreID("45-EXPRESS")
	require.NoError(t, err)
	assert.Equal(t, 45, id)

	_, err = ParseStoreID("SIN CODIGO - X")
	assert.Error(t, err)
}

func TestParseWholeNumber(t *testing.T) {
	t.Parallel()

	n, err := ParseWholeNumber("123.0")
	require.NoError(t, err)
	assert.Equal(t, 123, n)

	_, err = ParseWholeNumber("12.5")
	assert.Error(t, err)

	_, err = ParseWholeNumber("TOTAL")
	assert.Error(t, err)
}
