// Package fixedpoint implements WAD-scaled (1e18) integer arithmetic with the
// same truncation rules as the lending contracts.
//
// Every value is a 256-bit EVM word (holiman/uint256). Unsigned operations use
// EVM unsigned semantics. Signed values (percent changes, logarithms) are
// int256 two's complement in the same type, exactly as the EVM stores them.
// Never use float64 here: the numbers shown to a user must match what the
// contract computes.
package fixedpoint

import (
	"errors"

	"github.com/holiman/uint256"
)

// Decimals is the scale of a WAD value.
const Decimals = 18

var (
	// ErrDivideByZero is returned for a zero divisor. Callers treat it as a
	// sentinel ("undefined"), never as a failure to surface.
	ErrDivideByZero = errors.New("fixedpoint: divide by zero")

	// ErrOverflow is returned when a result does not fit in 256 bits. The
	// contract reverts in the same situation.
	ErrOverflow = errors.New("fixedpoint: overflow")

	// ErrUndefined is returned by LnWad for non-positive inputs.
	ErrUndefined = errors.New("fixedpoint: logarithm of non-positive value")
)

// WAD returns a fresh copy of 1e18.
func WAD() *uint256.Int {
	return new(uint256.Int).Set(wad)
}

var wad = uint256.NewInt(1_000_000_000_000_000_000)

// FromUint64 scales an integer to WAD: FromUint64(3) == 3e18.
func FromUint64(v uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(v), wad)
}

// MulWad returns floor(a*b / 1e18).
func MulWad(a, b *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulDivOverflow(a, b, wad)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// DivWad returns floor(a*1e18 / b).
func DivWad(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivideByZero
	}
	z, overflow := new(uint256.Int).MulDivOverflow(a, wad, b)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Rescale converts value between token decimal scales. Narrowing floors.
func Rescale(value *uint256.Int, fromDecimals, toDecimals uint8) (*uint256.Int, error) {
	switch {
	case fromDecimals == toDecimals:
		return new(uint256.Int).Set(value), nil
	case toDecimals > fromDecimals:
		factor, err := pow10(toDecimals - fromDecimals)
		if err != nil {
			return nil, err
		}
		z, overflow := new(uint256.Int).MulOverflow(value, factor)
		if overflow {
			return nil, ErrOverflow
		}
		return z, nil
	default:
		factor, err := pow10(fromDecimals - toDecimals)
		if err != nil {
			// 10^n beyond 2^256 divides every representable value down to zero.
			return new(uint256.Int), nil
		}
		return new(uint256.Int).Div(value, factor), nil
	}
}

// pow10 returns 10^n or ErrOverflow when n > 77.
func pow10(n uint8) (*uint256.Int, error) {
	if n > 77 {
		return nil, ErrOverflow
	}
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(n))), nil
}

// PercentChange returns (to - from) / from as a signed WAD, truncated toward
// zero. A zero from value yields ErrDivideByZero.
func PercentChange(from, to *uint256.Int) (*uint256.Int, error) {
	if from.IsZero() {
		return nil, ErrDivideByZero
	}
	if from.Sign() < 0 || to.Sign() < 0 {
		// Prices above int256 max cannot come from the contract.
		return nil, ErrOverflow
	}
	diff := new(uint256.Int).Sub(to, from)
	neg := diff.Sign() < 0
	mag := new(uint256.Int).Abs(diff)
	num, overflow := new(uint256.Int).MulOverflow(mag, wad)
	if overflow || num.Sign() < 0 {
		return nil, ErrOverflow
	}
	num.Div(num, from)
	if neg {
		num.Neg(num)
	}
	return num, nil
}

// Neg returns -x as an int256 value.
func Neg(x *uint256.Int) *uint256.Int {
	return new(uint256.Int).Neg(x)
}

// SignedSub returns a - b as an int256 value. Both inputs must be below
// 2^255; prices and amounts coming from the contract always are.
func SignedSub(a, b *uint256.Int) *uint256.Int {
	return new(uint256.Int).Sub(a, b)
}
