package fixedpoint

import "github.com/holiman/uint256"

// The routines below evaluate exp and ln with rational approximations in a
// 2^96 intermediate basis. They reproduce the contract library step by step:
// sdiv truncates toward zero, >> on signed words is arithmetic, and every
// multiplication wraps at 256 bits. Changing the order of any operation
// changes the low bits of auction prices.

var (
	// exp(x) < 0.5 wei for x at or below this bound; the result is 0.
	expMinInput = negDecimal("42139678854452767551")
	// exp(x) no longer fits in int256 at or above this bound.
	expMaxInput = uint256.MustFromDecimal("135305999368893231589")

	pow5to18 = uint256.NewInt(3814697265625)
	ln2X96   = uint256.MustFromDecimal("54916777467707473351141471128")
	half96   = new(uint256.Int).Lsh(uint256.NewInt(1), 95)

	expP1 = uint256.MustFromDecimal("1346386616545796478920950773328")
	expP2 = uint256.MustFromDecimal("57155421227552351082224309758442")
	expP3 = uint256.MustFromDecimal("94201549194550492254356042504812")
	expP4 = uint256.MustFromDecimal("28719021644029726153956944680412240")
	expP5 = new(uint256.Int).Lsh(uint256.MustFromDecimal("4385272521454847904659076985693276"), 96)

	expQ1 = uint256.MustFromDecimal("2855989394907223263936484059900")
	expQ2 = uint256.MustFromDecimal("50020603652535783019961831881945")
	expQ3 = uint256.MustFromDecimal("533845033583426703283633433725380")
	expQ4 = uint256.MustFromDecimal("3604857256930695427073651918091429")
	expQ5 = uint256.MustFromDecimal("14423608567350463180887372962807573")
	expQ6 = uint256.MustFromDecimal("26449188498355588339934803723976023")

	expScale = uint256.MustFromDecimal("3822833074963236453042738258902158003155416615667")

	lnP1 = uint256.MustFromDecimal("3273285459638523848632254066296")
	lnP2 = uint256.MustFromDecimal("24828157081833163892658089445524")
	lnP3 = uint256.MustFromDecimal("43456485725739037958740375743393")
	lnP4 = uint256.MustFromDecimal("11111509109440967052023855526967")
	lnP5 = uint256.MustFromDecimal("45023709667254063763336534515857")
	lnP6 = uint256.MustFromDecimal("14706773417378608786704636184526")
	lnP7 = new(uint256.Int).Lsh(uint256.MustFromDecimal("795164235651350426258249787498"), 96)

	lnQ1 = uint256.MustFromDecimal("5573035233440673466300451813936")
	lnQ2 = uint256.MustFromDecimal("71694874799317883764090561454958")
	lnQ3 = uint256.MustFromDecimal("283447036172924575727196451306956")
	lnQ4 = uint256.MustFromDecimal("401686690394027663651624208769553")
	lnQ5 = uint256.MustFromDecimal("204048457590392012362485061816622")
	lnQ6 = uint256.MustFromDecimal("31853899698501571402653359427138")
	lnQ7 = uint256.MustFromDecimal("909429971244387300277376558375")

	lnScale  = uint256.MustFromDecimal("1677202110996718588342820967067443963516166")
	lnLn2    = uint256.MustFromDecimal("16597577552685614221487285958193947469193820559219878177908093499208371")
	lnOffset = uint256.MustFromDecimal("600920179829731861736702779321621459595472258049074101567377883020018308")
)

func negDecimal(s string) *uint256.Int {
	return new(uint256.Int).Neg(uint256.MustFromDecimal(s))
}

// mulShr96 returns (a*b) >> 96 with int256 semantics.
func mulShr96(a, b *uint256.Int) *uint256.Int {
	z := new(uint256.Int).Mul(a, b)
	return z.SRsh(z, 96)
}

// int256FromInt64 encodes v as a two's complement word.
func int256FromInt64(v int64) *uint256.Int {
	if v >= 0 {
		return uint256.NewInt(uint64(v))
	}
	return new(uint256.Int).Neg(uint256.NewInt(uint64(-v)))
}

// int64FromInt256 decodes a small two's complement word.
func int64FromInt256(x *uint256.Int) int64 {
	if x.Sign() < 0 {
		return -int64(new(uint256.Int).Neg(x).Uint64())
	}
	return int64(x.Uint64())
}

// ExpWad returns e^x for a signed WAD exponent x.
func ExpWad(x *uint256.Int) (*uint256.Int, error) {
	if !x.Sgt(expMinInput) {
		return new(uint256.Int), nil
	}
	if !x.Slt(expMaxInput) {
		return nil, ErrOverflow
	}

	// Convert to a 2^96 basis: x * 2^96 / 1e18 == (x << 78) / 5^18.
	v := new(uint256.Int).Lsh(x, 78)
	v.SDiv(v, pow5to18)

	// Factor out powers of two so that exp(x) = exp(x') * 2^k with k = round(x / ln 2).
	k := new(uint256.Int).Lsh(v, 96)
	k.SDiv(k, ln2X96)
	k.Add(k, half96)
	k.SRsh(k, 96)
	v.Sub(v, new(uint256.Int).Mul(k, ln2X96))

	// (6, 7)-term rational approximation; p is monic.
	y := new(uint256.Int).Add(v, expP1)
	y = mulShr96(y, v)
	y.Add(y, expP2)
	p := new(uint256.Int).Add(y, v)
	p.Sub(p, expP3)
	p = mulShr96(p, y)
	p.Add(p, expP4)
	p.Mul(p, v)
	p.Add(p, expP5)

	q := new(uint256.Int).Sub(v, expQ1)
	q = mulShr96(q, v)
	q.Add(q, expQ2)
	q = mulShr96(q, v)
	q.Sub(q, expQ3)
	q = mulShr96(q, v)
	q.Add(q, expQ4)
	q = mulShr96(q, v)
	q.Sub(q, expQ5)
	q = mulShr96(q, v)
	q.Add(q, expQ6)

	// q has no real roots, so the division is always defined.
	r := new(uint256.Int).SDiv(p, q)

	// Apply the scale factor, 2^k and the 1e18 / 2^96 base conversion in one step.
	r.Mul(r, expScale)
	r.Rsh(r, uint(195-int64FromInt256(k)))
	return r, nil
}

// LnWad returns the natural logarithm of a positive WAD value as a signed WAD.
func LnWad(x *uint256.Int) (*uint256.Int, error) {
	if x.Sign() <= 0 {
		return nil, ErrUndefined
	}

	// Reduce to (1, 2) * 2^96; ln(2^k * x) = k * ln 2 + ln x.
	k := int64(x.BitLen()-1) - 96
	v := new(uint256.Int).Lsh(x, uint(159-k))
	v.Rsh(v, 159)

	// (8, 8)-term rational approximation; p is monic.
	p := new(uint256.Int).Add(v, lnP1)
	p = mulShr96(p, v)
	p.Add(p, lnP2)
	p = mulShr96(p, v)
	p.Add(p, lnP3)
	p = mulShr96(p, v)
	p.Sub(p, lnP4)
	p = mulShr96(p, v)
	p.Sub(p, lnP5)
	p = mulShr96(p, v)
	p.Sub(p, lnP6)
	p.Mul(p, v)
	p.Sub(p, lnP7)

	q := new(uint256.Int).Add(v, lnQ1)
	q = mulShr96(q, v)
	q.Add(q, lnQ2)
	q = mulShr96(q, v)
	q.Add(q, lnQ3)
	q = mulShr96(q, v)
	q.Add(q, lnQ4)
	q = mulShr96(q, v)
	q.Add(q, lnQ5)
	q = mulShr96(q, v)
	q.Add(q, lnQ6)
	q = mulShr96(q, v)
	q.Add(q, lnQ7)

	r := new(uint256.Int).SDiv(p, q)

	// Scale, add k * ln 2 and ln(2^96 / 1e18), then convert back to base 1e18.
	r.Mul(r, lnScale)
	r.Add(r, new(uint256.Int).Mul(lnLn2, int256FromInt64(k)))
	r.Add(r, lnOffset)
	r.SRsh(r, 174)
	return r, nil
}

// PowWad returns x^y for a positive WAD base and a signed WAD exponent,
// evaluated as e^(ln(x) * y).
func PowWad(x, y *uint256.Int) (*uint256.Int, error) {
	ln, err := LnWad(x)
	if err != nil {
		return nil, err
	}
	e := new(uint256.Int).Mul(ln, y)
	e.SDiv(e, wad)
	return ExpWad(e)
}
