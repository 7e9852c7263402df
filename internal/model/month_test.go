package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMonth(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Month{
		"Agosto":      Agosto,
		" agosto ":    Agosto,
		"Agosto 2025": Agosto,
		"DICIEMBRE":   Diciembre,
		"8":           Agosto,
		"01":          Enero,
	} {
		got, err := ParseMonth(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "Agostito", "13", "0"} {
		_, err := ParseMonth(in)
		assert.Error(t, err, in)
	}
}

func TestMonthNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Septiembre", Septiembre.String())
	assert.Equal(t, "sep", Septiembre.Key())
	assert.Equal(t, "SEP", Septiembre.RegistryColumn())
	assert.Equal(t, 9, Septiembre.Ordinal())
	assert.Len(t, AllMonths(), 12)
	assert.False(t, Month(0).Valid())
}
