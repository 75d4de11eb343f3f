package health

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/perpdebt/vault-engine/internal/fixedpoint"
	"github.com/perpdebt/vault-engine/internal/oracle"
)

// Input is one snapshot of everything needed to judge a vault.
type Input struct {
	Debt               *uint256.Int
	CollateralCount    uint64
	Oracle             *oracle.Message
	ReferencePrice     *uint256.Int
	MaxLTV             *uint256.Int
	UnderlyingDecimals uint8
	ChainTime          uint64
}

// Report is the display view of a vault's health.
type Report struct {
	LTV             fixedpoint.Ratio `json:"ltv"`
	MaxLTV          *uint256.Int     `json:"max_ltv"`
	Liquidatable    bool             `json:"liquidatable"`
	CollateralValue *uint256.Int     `json:"collateral_value,omitempty"`
	MaxDebt         *uint256.Int     `json:"max_debt,omitempty"`
	Stale           bool             `json:"stale"`
}

// Evaluate builds a Report. A missing or unsynced oracle message leaves every
// price-derived field empty and marks the report stale.
func Evaluate(in Input) (Report, error) {
	rep := Report{LTV: fixedpoint.Undefined(), MaxLTV: in.MaxLTV}
	if !oracle.IsSynced(in.Oracle, in.ChainTime) {
		rep.Stale = true
		return rep, nil
	}

	value, err := CollateralValue(in.CollateralCount, in.Oracle.Price, in.UnderlyingDecimals)
	if err != nil {
		return rep, fmt.Errorf("health: collateral value: %w", err)
	}
	rep.CollateralValue = value

	ltv, err := ComputeLTV(in.Debt, value, in.ReferencePrice)
	if err != nil {
		return rep, err
	}
	rep.LTV = ltv
	rep.Liquidatable = IsLiquidatable(ltv, in.MaxLTV)

	maxDebt, err := MaxDebt(value, in.MaxLTV, in.ReferencePrice)
	switch {
	case errors.Is(err, fixedpoint.ErrDivideByZero):
	case err != nil:
		return rep, fmt.Errorf("health: max debt: %w", err)
	default:
		rep.MaxDebt = maxDebt
	}
	return rep, nil
}
