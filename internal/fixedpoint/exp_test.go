package fixedpoint

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

// Expected values are the outputs of the contract library for the same inputs.

func TestExpWad(t *testing.T) {
	tests := []struct {
		name string
		in   *uint256.Int
		want string
	}{
		{"zero", new(uint256.Int), "1000000000000000000"},
		{"one", WAD(), "2718281828459045235"},
		{"minus one", Neg(WAD()), "367879441171442321"},
		{"at lower bound", Neg(u("42139678854452767551")), "0"},
		{"far below lower bound", Neg(FromUint64(1000)), "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpWad(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got.Dec())
		})
	}
}

func TestExpWadOverflow(t *testing.T) {
	_, err := ExpWad(u("135305999368893231589"))
	require.ErrorIs(t, err, ErrOverflow)
}

func TestLnWad(t *testing.T) {
	tests := []struct {
		name string
		in   *uint256.Int
		want string
	}{
		{"one", WAD(), "0"},
		{"two", FromUint64(2), "693147180559945309"},
		{"three tenths", u("300000000000000000"), "-1203972804325935993"},
		{"one wei", uint256.NewInt(1), "-41446531673892822313"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LnWad(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, SignedString(got))
		})
	}
}

func TestLnWadUndefined(t *testing.T) {
	_, err := LnWad(new(uint256.Int))
	require.ErrorIs(t, err, ErrUndefined)

	_, err = LnWad(Neg(WAD()))
	require.ErrorIs(t, err, ErrUndefined)
}

func TestPowWad(t *testing.T) {
	tests := []struct {
		name string
		x    *uint256.Int
		y    *uint256.Int
		want string
	}{
		{"zero exponent", u("300000000000000000"), new(uint256.Int), "1000000000000000000"},
		{"unit exponent rounds down", u("300000000000000000"), WAD(), "299999999999999999"},
		{"square", u("500000000000000000"), FromUint64(2), "249999999999999999"},
		{"square root", FromUint64(2), u("500000000000000000"), "1414213562373095047"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PowWad(tt.x, tt.y)
			require.NoError(t, err)
			require.Equal(t, tt.want, got.Dec())
		})
	}
}
