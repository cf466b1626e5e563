package valueobject

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	TRY Currency = "TRY"
	SAR Currency = "SAR"
	AED Currency = "AED"
	EGP Currency = "EGP"
	KWD Currency = "KWD"
	BHD Currency = "BHD"
	JOD Currency = "JOD"
	JPY Currency = "JPY"
	CNY Currency = "CNY"
)

// DefaultCurrency is used when neither the entry nor the transaction names one
const DefaultCurrency = USD

// minorUnits lists currencies whose minor unit differs from two decimals
var minorUnits = map[Currency]int32{
	JPY: 0,
	KWD: 3,
	BHD: 3,
	JOD: 3,
}

// ParseCurrency normalizes and validates a three letter currency code
func ParseCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if !c.IsValid() {
		return "", fmt.Errorf("invalid currency code %q", code)
	}
	return c, nil
}

// IsValid reports whether c looks like an ISO 4217 alphabetic code
func (c Currency) IsValid() bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// Scale returns the number of decimals of the currency's minor unit
func (c Currency) Scale() int32 {
	if s, ok := minorUnits[c]; ok {
		return s
	}
	return 2
}

// String returns the currency code
func (c Currency) String() string {
	return string(c)
}

// RoundingMode selects how amounts are rounded to a currency's minor unit
type RoundingMode string

const (
	// RoundHalfUp rounds half away from zero
	RoundHalfUp RoundingMode = "half_up"
	// RoundHalfEven rounds half to the nearest even digit
	RoundHalfEven RoundingMode = "half_even"
	// RoundNone compares amounts at full precision
	RoundNone RoundingMode = "none"
)

// ParseRoundingMode converts a configuration value into a RoundingMode
func ParseRoundingMode(s string) (RoundingMode, error) {
	switch m := RoundingMode(strings.ToLower(strings.TrimSpace(s))); m {
	case RoundHalfUp, RoundHalfEven, RoundNone:
		return m, nil
	case "":
		return RoundHalfUp, nil
	default:
		return "", fmt.Errorf("unknown rounding mode %q", s)
	}
}

// Round rounds amount to the currency's minor unit using mode
func (m RoundingMode) Round(amount decimal.Decimal, c Currency) decimal.Decimal {
	switch m {
	case RoundNone:
		return amount
	case RoundHalfEven:
		return amount.RoundBank(c.Scale())
	default:
		return amount.Round(c.Scale())
	}
}
