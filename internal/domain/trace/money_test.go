package trace

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	t.Run("ParsesWholeAndFraction", func(t *testing.T) {
		got, err := ParseAmount("25.50")
		require.NoError(t, err)
		assert.Equal(t, int64(2550), got)
	})

	t.Run("ParsesWholeOnly", func(t *testing.T) {
		got, err := ParseAmount("24")
		require.NoError(t, err)
		assert.Equal(t, int64(2400), got)
	})

	t.Run("ParsesSingleFractionDigit", func(t *testing.T) {
		got, err := ParseAmount("26.5")
		require.NoError(t, err)
		assert.Equal(t, int64(2650), got)
	})

	t.Run("ParsesZero", func(t *testing.T) {
		got, err := ParseAmount("0")
		require.NoError(t, err)
		assert.Equal(t, int64(0), got)
	})

	t.Run("ParsesBareFraction", func(t *testing.T) {
		got, err := ParseAmount(".75")
		require.NoError(t, err)
		assert.Equal(t, int64(75), got)
	})

	t.Run("TrimsWhitespace", func(t *testing.T) {
		got, err := ParseAmount(" 28.00 ")
		require.NoError(t, err)
		assert.Equal(t, int64(2800), got)
	})

	t.Run("RejectsNegative", func(t *testing.T) {
		_, err := ParseAmount("-1.00")
		assert.ErrorIs(t, err, ErrNegativeAmount)
	})

	t.Run("RejectsEmpty", func(t *testing.T) {
		_, err := ParseAmount("")
		assert.ErrorIs(t, err, ErrMalformedAmount)
	})

	t.Run("RejectsTooManyFractionDigits", func(t *testing.T) {
		_, err := ParseAmount("1.234")
		assert.ErrorIs(t, err, ErrMalformedAmount)
	})

	t.Run("RejectsOverflow", func(t *testing.T) {
		// One cent above math.MaxInt64 minor units
		_, err := ParseAmount("92233720368547758.08")
		assert.ErrorIs(t, err, ErrMalformedAmount)

		_, err = ParseAmount("99999999999999999999.00")
		assert.ErrorIs(t, err, ErrMalformedAmount)
	})

	t.Run("ParsesLargestAmount", func(t *testing.T) {
		got, err := ParseAmount("92233720368547758.07")
		require.NoError(t, err)
		assert.Equal(t, int64(math.MaxInt64), got)
	})

	t.Run("RejectsNonNumeric", func(t *testing.T) {
		_, err := ParseAmount("12a.50")
		assert.ErrorIs(t, err, ErrMalformedAmount)

		_, err = ParseAmount("1.2.3")
		assert.ErrorIs(t, err, ErrMalformedAmount)
	})
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "25.50", FormatAmount(2550))
	assert.Equal(t, "24.00", FormatAmount(2400))
	assert.Equal(t, "0.05", FormatAmount(5))
	assert.Equal(t, "0.00", FormatAmount(0))
	assert.Equal(t, "-3.25", FormatAmount(-325))
}

func TestAmountRoundTrip(t *testing.T) {
	for _, s := range []string{"25.50", "24.00", "26.50", "28.00", "0.01"} {
		minor, err := ParseAmount(s)
		require.NoError(t, err)
		assert.Equal(t, s, FormatAmount(minor))
	}
}
