package fixedpoint

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// ErrInvalidDecimal is returned when a human-readable amount cannot be
// represented as an unsigned fixed-point integer.
var ErrInvalidDecimal = errors.New("fixedpoint: invalid decimal amount")

// ToDecimal renders an unsigned integer with the given number of decimals.
// Display only; engine arithmetic never goes through decimal.
func ToDecimal(x *uint256.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(x.ToBig(), -decimals)
}

// ToSignedDecimal is ToDecimal for int256 values.
func ToSignedDecimal(x *uint256.Int, decimals int32) decimal.Decimal {
	if x.Sign() < 0 {
		return ToDecimal(new(uint256.Int).Neg(x), decimals).Neg()
	}
	return ToDecimal(x, decimals)
}

// SignedString renders an int256 value in base 10.
func SignedString(x *uint256.Int) string {
	if x.Sign() < 0 {
		return "-" + new(uint256.Int).Neg(x).Dec()
	}
	return x.Dec()
}

// FromDecimal parses a human-readable amount ("0.75") into an integer with the
// given number of decimals, truncating extra precision.
func FromDecimal(d decimal.Decimal, decimals int32) (*uint256.Int, error) {
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %s is negative", ErrInvalidDecimal, d)
	}
	scaled := d.Shift(decimals).Truncate(0)
	v, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, fmt.Errorf("%w: %s", ErrOverflow, d)
	}
	return v, nil
}

// ParseWad parses a decimal string into a WAD value.
func ParseWad(s string) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecimal, s)
	}
	return FromDecimal(d, Decimals)
}
