package trace

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Monetary amounts are stored as int64 minor units (cents). Decimal form only
// exists at the API boundary; these helpers do the edge conversion with
// integer arithmetic so no float rounding ever reaches the ledger.

// ErrNegativeAmount rejects negative monetary input
var ErrNegativeAmount = errors.New("amount must not be negative")

// ErrMalformedAmount rejects input that is not a plain decimal number
var ErrMalformedAmount = errors.New("amount must be a decimal number with at most two fraction digits")

// ParseAmount converts a human-readable decimal string such as "25.50" into
// minor units (2550). At most two fraction digits are accepted.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMalformedAmount
	}
	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeAmount
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, ErrMalformedAmount
	}
	for len(frac) < 2 {
		frac += "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrMalformedAmount
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, ErrMalformedAmount
	}
	if units > (math.MaxInt64-cents)/100 {
		return 0, ErrMalformedAmount
	}
	return units*100 + cents, nil
}

// FormatAmount renders minor units back to decimal form: 2550 -> "25.50"
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}
