package fixedpoint

import (
	"encoding/json"
	"errors"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Ratio is a signed WAD value that may be undefined. It is the sentinel for
// divisions by zero (an LTV with no collateral, an interest rate against a
// zero origination price) so callers can render a placeholder instead of
// propagating an error or a NaN.
type Ratio struct {
	v  uint256.Int
	ok bool
}

// Defined wraps v. v is copied.
func Defined(v *uint256.Int) Ratio {
	r := Ratio{ok: true}
	r.v.Set(v)
	return r
}

// Undefined returns the "no value" sentinel.
func Undefined() Ratio {
	return Ratio{}
}

// RatioOf converts a (value, error) pair from PercentChange or DivWad into a
// Ratio. ErrDivideByZero becomes Undefined; any other error is returned.
func RatioOf(v *uint256.Int, err error) (Ratio, error) {
	if errors.Is(err, ErrDivideByZero) {
		return Undefined(), nil
	}
	if err != nil {
		return Undefined(), err
	}
	return Defined(v), nil
}

// IsDefined reports whether r carries a value.
func (r Ratio) IsDefined() bool { return r.ok }

// Value returns a copy of the value, or nil when undefined.
func (r Ratio) Value() *uint256.Int {
	if !r.ok {
		return nil
	}
	return new(uint256.Int).Set(&r.v)
}

// Decimal returns the ratio as a signed decimal (0.25 for 25e16).
func (r Ratio) Decimal() (decimal.Decimal, bool) {
	if !r.ok {
		return decimal.Zero, false
	}
	return ToSignedDecimal(&r.v, Decimals), true
}

// String renders the signed WAD integer, or "undefined".
func (r Ratio) String() string {
	if !r.ok {
		return "undefined"
	}
	return SignedString(&r.v)
}

// MarshalJSON encodes the signed WAD integer as a string, or null.
func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.ok {
		return []byte("null"), nil
	}
	return json.Marshal(SignedString(&r.v))
}
