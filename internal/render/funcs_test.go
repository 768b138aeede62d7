package render

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "1,250,000", formatNumber(json.Number("1250000")))
	assert.Equal(t, "42", formatNumber(42))
	assert.Equal(t, "1,234", formatNumber("1,234"))
	assert.Equal(t, "n/a", formatNumber("n/a"))
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$1,250,000", formatMoney(json.Number("1250000")))
	assert.Equal(t, "-$500", formatMoney(-500.0))
	assert.Equal(t, "TBD", formatMoney("TBD"))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "5.3%", formatPercent(json.Number("5.26")))
	assert.Equal(t, "0.0%", formatPercent(0))
}

func TestDefaultValue(t *testing.T) {
	assert.Equal(t, "n/a", defaultValue("n/a", nil))
	assert.Equal(t, "n/a", defaultValue("n/a", ""))
	assert.Equal(t, "n/a", defaultValue("n/a", []any{}))
	assert.Equal(t, "x", defaultValue("n/a", "x"))
	assert.Equal(t, 0, defaultValue("n/a", 0))
}

func TestToJSON(t *testing.T) {
	out, err := toJSON([]any{json.Number("40.7128"), json.Number("-74.006")})
	require.NoError(t, err)
	assert.Equal(t, "[40.7128,-74.006]", string(out))
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "a, b", join(", ", []any{"a", "b"}))
	assert.Equal(t, "solo", join(", ", "solo"))
}
