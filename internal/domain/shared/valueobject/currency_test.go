package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	t.Run("normalizes case and whitespace", func(t *testing.T) {
		c, err := ParseCurrency(" usd ")
		require.NoError(t, err)
		assert.Equal(t, USD, c)
	})

	t.Run("rejects malformed codes", func(t *testing.T) {
		for _, code := range []string{"", "US", "USDX", "U$D"} {
			_, err := ParseCurrency(code)
			assert.Error(t, err, code)
		}
	})
}

func TestCurrency_Scale(t *testing.T) {
	assert.Equal(t, int32(2), USD.Scale())
	assert.Equal(t, int32(2), TRY.Scale())
	assert.Equal(t, int32(0), JPY.Scale())
	assert.Equal(t, int32(3), KWD.Scale())
}

func TestParseRoundingMode(t *testing.T) {
	m, err := ParseRoundingMode("")
	require.NoError(t, err)
	assert.Equal(t, RoundHalfUp, m)

	m, err = ParseRoundingMode("HALF_EVEN")
	require.NoError(t, err)
	assert.Equal(t, RoundHalfEven, m)

	_, err = ParseRoundingMode("ceiling")
	assert.Error(t, err)
}

func TestRoundingMode_Round(t *testing.T) {
	half := decimal.RequireFromString("10.125")

	t.Run("half up rounds away from zero", func(t *testing.T) {
		assert.Equal(t, "10.13", RoundHalfUp.Round(half, USD).StringFixed(2))
		assert.Equal(t, "-10.13", RoundHalfUp.Round(half.Neg(), USD).StringFixed(2))
	})

	t.Run("half even rounds to even digit", func(t *testing.T) {
		assert.Equal(t, "10.12", RoundHalfEven.Round(half, USD).StringFixed(2))
	})

	t.Run("none keeps full precision", func(t *testing.T) {
		assert.True(t, RoundNone.Round(half, USD).Equal(half))
	})

	t.Run("uses the currency minor unit", func(t *testing.T) {
		assert.Equal(t, "100", RoundHalfUp.Round(decimal.RequireFromString("99.5"), JPY).String())
		assert.Equal(t, "1.235", RoundHalfUp.Round(decimal.RequireFromString("1.2345"), KWD).String())
	})
}
