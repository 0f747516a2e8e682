package models

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// monetaryPrecision is the number of decimal places an amount may carry
const monetaryPrecision = 2

var (
	errNonFiniteAmount = errors.New("amount is not a finite number")
	errSubCentAmount   = fmt.Errorf("amount has more than %d decimal places", monetaryPrecision)
)

// AmountFromFloat converts a parsed float into a decimal amount.
// NaN, infinities and fractions of a cent are rejected; the amount is never rounded.
func AmountFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, errNonFiniteAmount
	}
	d := decimal.NewFromFloat(f)
	if !WholeCents(d) {
		return decimal.Zero, errSubCentAmount
	}
	return d, nil
}

// WholeCents reports whether d has no fraction of a cent
func WholeCents(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(monetaryPrecision))
}

// FactorFromFloat converts a threshold multiplier without rounding
func FactorFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, errNonFiniteAmount
	}
	return decimal.NewFromFloat(f), nil
}
