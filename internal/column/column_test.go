package column

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKindRoundTrip(t *testing.T) {
	cases := map[string]Kind{
		"int8":      KindInt8,
		"short":     KindInt16,
		"int":       KindInt32,
		"long":      KindInt64,
		"float":     KindFloat32,
		"double":    KindFloat64,
		"string":    KindText,
		"timestamp": KindTimestamp,
	}
	for input, want := range cases {
		got, err := ParseKind(input)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestParseKindUnknown(t *testing.T) {
	_, err := ParseKind("bogus")
	assert.Error(t, err)
}

func TestKindIsNumeric(t *testing.T) {
	assert.True(t, KindFloat64.IsNumeric())
	assert.True(t, KindTimestamp.IsNumeric())
	assert.False(t, KindText.IsNumeric())
}

func TestUnitsEquivalentSynonyms(t *testing.T) {
	assert.True(t, UnitsEquivalent("degrees_north", "degree_north"))
	assert.True(t, UnitsEquivalent("degrees_north", "degrees N"))
	assert.True(t, UnitsEquivalent("m", "meters"))
	assert.False(t, UnitsEquivalent("degrees_north", "degrees_east"))
}

func TestUnitsEquivalentFallbackNormalizesWhitespaceAndCase(t *testing.T) {
	assert.True(t, UnitsEquivalent("  Celsius ", "celsius"))
}

func TestDescriptorEffectiveLayersOverride(t *testing.T) {
	d := Descriptor{
		Source: Attrs{
			"units":       TextAttr("degrees_north"),
			"valid_range": VectorAttr([]float64{-90, 90}),
			"scratch":     TextAttr("drop-me"),
		},
		Override: Attrs{
			"units":   TextAttr("degree_north"),
			"scratch": TextAttr("null"),
		},
	}
	eff := d.Effective()
	assert.Equal(t, "degree_north", eff["units"].Text())
	assert.True(t, eff["valid_range"].IsVector())
	_, stillPresent := eff["scratch"]
	assert.False(t, stillPresent)
}
