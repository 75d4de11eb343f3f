// Package health mirrors the controller's loan-to-value checks for display.
// Liquidation itself happens on-chain; nothing here triggers it.
package health

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/perpdebt/vault-engine/internal/fixedpoint"
	"github.com/perpdebt/vault-engine/internal/model"
)

// ComputeLTV values debt in the underlying at the reference price and divides
// by the collateral value. No collateral yields an undefined ratio.
func ComputeLTV(debt, collateralValue, referencePrice *uint256.Int) (fixedpoint.Ratio, error) {
	if collateralValue.IsZero() {
		return fixedpoint.Undefined(), nil
	}
	owed, err := fixedpoint.MulWad(debt, referencePrice)
	if err != nil {
		return fixedpoint.Undefined(), fmt.Errorf("health: debt value: %w", err)
	}
	return fixedpoint.RatioOf(fixedpoint.DivWad(owed, collateralValue))
}

// IsLiquidatable applies the controller's operator: ltv >= maxLTV.
// An undefined ltv is never liquidatable.
func IsLiquidatable(ltv fixedpoint.Ratio, maxLTV *uint256.Int) bool {
	v := ltv.Value()
	if v == nil {
		return false
	}
	return !v.Lt(maxLTV)
}

// CollateralValue prices count tokens at the oracle price. The oracle quotes
// in the underlying's decimals; the result is WAD.
func CollateralValue(count uint64, oraclePrice *uint256.Int, underlyingDecimals uint8) (*uint256.Int, error) {
	total, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(count), oraclePrice)
	if overflow {
		return nil, fixedpoint.ErrOverflow
	}
	return fixedpoint.Rescale(total, underlyingDecimals, fixedpoint.Decimals)
}

// MaxDebt is the debt at which ComputeLTV reaches maxLTV.
func MaxDebt(collateralValue, maxLTV, referencePrice *uint256.Int) (*uint256.Int, error) {
	limit, err := fixedpoint.MulWad(collateralValue, maxLTV)
	if err != nil {
		return nil, err
	}
	return fixedpoint.DivWad(limit, referencePrice)
}

// TargetMarkChange is the percent change of target/mark between two
// snapshots. A zero mark or zero previous ratio yields undefined.
func TargetMarkChange(prev, cur model.ControllerPrices) fixedpoint.Ratio {
	before, err := fixedpoint.DivWad(prev.Target, prev.Mark)
	if err != nil {
		return fixedpoint.Undefined()
	}
	after, err := fixedpoint.DivWad(cur.Target, cur.Mark)
	if err != nil {
		return fixedpoint.Undefined()
	}
	r, err := fixedpoint.RatioOf(fixedpoint.PercentChange(before, after))
	if err != nil {
		return fixedpoint.Undefined()
	}
	return r
}
