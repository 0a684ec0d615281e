package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFlag(t *testing.T) {
	tests := []struct {
		raw  string
		want Flag
	}{
		{"True", FlagTrue},
		{"true", FlagTrue},
		{"TRUE", FlagTrue},
		{"1", FlagTrue},
		{"1.0", FlagTrue},
		{" 1 ", FlagTrue},
		{"False", FlagFalse},
		{"false", FlagFalse},
		{"0", FlagFalse},
		{"0.0", FlagFalse},
		{"", FlagUnknown},
		{"   ", FlagUnknown},
		{"maybe", FlagUnknown},
		{"N/A", FlagUnknown},
		{"2", FlagUnknown},
		{"0.5", FlagUnknown},
		{"NaN", FlagUnknown},
		{"yes", FlagUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeFlag(tt.raw))
		})
	}
}

func TestNormalizePostalCode(t *testing.T) {
	assert.Equal(t, "12345", NormalizePostalCode("12345.0"))
	assert.Equal(t, "12345", NormalizePostalCode(" 12345 "))
	assert.Equal(t, "02134", NormalizePostalCode("02134"))
	assert.Equal(t, "02134", NormalizePostalCode("02134.0"))
	assert.Equal(t, "", NormalizePostalCode(""))
	assert.Equal(t, ".0", NormalizePostalCode(".0"), "bare suffix has no digits to keep")
	assert.Equal(t, "12345-6789", NormalizePostalCode("12345-6789"))
	assert.Equal(t, "ab.0", NormalizePostalCode("ab.0"), "non-numeric values are left alone")
	assert.Equal(t, "12345.5", NormalizePostalCode("12345.5"))
}

func TestNormalizeIdentifier(t *testing.T) {
	assert.Equal(t, "1234567890", NormalizeIdentifier("1234567890.0"))
	assert.Equal(t, "1234567890", NormalizeIdentifier("1234567890"))
}

func TestParseCoordinate(t *testing.T) {
	t.Run("number", func(t *testing.T) {
		v, ok, err := ParseCoordinate(" 31.02 ")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.InDelta(t, 31.02, v, 1e-9)
	})

	t.Run("blank", func(t *testing.T) {
		_, ok, err := ParseCoordinate("")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("malformed", func(t *testing.T) {
		_, _, err := ParseCoordinate("north")
		require.ErrorIs(t, err, ErrMalformedCoordinate)
	})
}

func TestGeoValid(t *testing.T) {
	assert.True(t, Geo{Lat: 90, Lon: 180}.Valid())
	assert.True(t, Geo{Lat: -90, Lon: -180}.Valid())
	assert.True(t, Geo{Lat: 0, Lon: 0}.Valid())
	assert.False(t, Geo{Lat: 90.0001, Lon: 0}.Valid())
	assert.False(t, Geo{Lat: 0, Lon: -180.5}.Valid())
	assert.False(t, Geo{Lat: math.NaN(), Lon: 0}.Valid())
	assert.False(t, Geo{Lat: 0, Lon: math.Inf(1)}.Valid())
}
