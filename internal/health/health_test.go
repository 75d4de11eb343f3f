package health

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/perpdebt/vault-engine/internal/fixedpoint"
	"github.com/perpdebt/vault-engine/internal/model"
	"github.com/perpdebt/vault-engine/internal/oracle"
)

func w(s string) *uint256.Int {
	v, err := fixedpoint.ParseWad(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestComputeLTV(t *testing.T) {
	ltv, err := ComputeLTV(w("2"), w("10"), w("1.5"))
	require.NoError(t, err)
	require.Equal(t, "300000000000000000", ltv.String())
}

func TestComputeLTVNoCollateral(t *testing.T) {
	ltv, err := ComputeLTV(w("2"), new(uint256.Int), w("1.5"))
	require.NoError(t, err)
	require.False(t, ltv.IsDefined())
	require.False(t, IsLiquidatable(ltv, w("0.5")), "undefined ltv never liquidates")
}

func TestIsLiquidatableBoundary(t *testing.T) {
	maxLTV := w("0.5")

	require.True(t, IsLiquidatable(fixedpoint.Defined(w("0.5")), maxLTV), "equal to max is liquidatable")
	require.True(t, IsLiquidatable(fixedpoint.Defined(w("0.51")), maxLTV))
	require.False(t, IsLiquidatable(fixedpoint.Defined(w("0.499999999999999999")), maxLTV))
}

func TestCollateralValue(t *testing.T) {
	v, err := CollateralValue(3, uint256.NewInt(1_500_000), 6)
	require.NoError(t, err)
	require.Equal(t, w("4.5").Dec(), v.Dec())

	v, err = CollateralValue(0, uint256.NewInt(1_500_000), 6)
	require.NoError(t, err)
	require.True(t, v.IsZero())
}

func TestMaxDebt(t *testing.T) {
	d, err := MaxDebt(w("10"), w("0.5"), w("2"))
	require.NoError(t, err)
	require.Equal(t, w("2.5").Dec(), d.Dec())

	ltv, err := ComputeLTV(d, w("10"), w("2"))
	require.NoError(t, err)
	require.True(t, IsLiquidatable(ltv, w("0.5")), "max debt sits on the boundary")

	_, err = MaxDebt(w("10"), w("0.5"), new(uint256.Int))
	require.ErrorIs(t, err, fixedpoint.ErrDivideByZero)
}

func TestTargetMarkChange(t *testing.T) {
	prev := model.ControllerPrices{Target: w("1"), Mark: w("1")}
	cur := model.ControllerPrices{Target: w("1.1"), Mark: w("1")}

	require.Equal(t, "100000000000000000", TargetMarkChange(prev, cur).String())
	require.Equal(t, "-90909090909090909", TargetMarkChange(cur, prev).String())

	zeroMark := model.ControllerPrices{Target: w("1"), Mark: new(uint256.Int)}
	require.False(t, TargetMarkChange(zeroMark, cur).IsDefined())
	require.False(t, TargetMarkChange(prev, zeroMark).IsDefined())
}

func TestEvaluate(t *testing.T) {
	require := require.New(t)

	in := Input{
		Debt:               w("4"),
		CollateralCount:    2,
		Oracle:             &oracle.Message{Price: w("5"), Timestamp: 90, PriceType: oracle.Lower},
		ReferencePrice:     w("1.25"),
		MaxLTV:             w("0.5"),
		UnderlyingDecimals: 18,
		ChainTime:          100,
	}

	rep, err := Evaluate(in)
	require.NoError(err)
	require.False(rep.Stale)
	require.Equal(w("10").Dec(), rep.CollateralValue.Dec())
	require.Equal(w("0.5").Dec(), rep.LTV.String())
	require.True(rep.Liquidatable)
	require.Equal(w("4").Dec(), rep.MaxDebt.Dec())
}

func TestEvaluateStaleOracle(t *testing.T) {
	in := Input{
		Debt:            w("4"),
		CollateralCount: 2,
		Oracle:          &oracle.Message{Price: w("5"), Timestamp: 101},
		ReferencePrice:  w("1.25"),
		MaxLTV:          w("0.5"),
		ChainTime:       100,
	}

	rep, err := Evaluate(in)
	require.NoError(t, err)
	require.True(t, rep.Stale)
	require.False(t, rep.LTV.IsDefined())
	require.False(t, rep.Liquidatable)
	require.Nil(t, rep.CollateralValue)

	in.Oracle = nil
	rep, err = Evaluate(in)
	require.NoError(t, err)
	require.True(t, rep.Stale)
}
