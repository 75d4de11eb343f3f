// Package auction prices Dutch-decay liquidation auctions.
//
// The price at time t is startPrice * (1 - decay)^(t / period) with a
// fractional exponent, computed with the same fixed-point routines as the
// auction contract so the number shown matches what a buyer pays.
package auction

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/perpdebt/vault-engine/internal/fixedpoint"
)

// HourSeconds is the look-back for HourlyPriceChange.
const HourSeconds = 3600

// ErrInvalidParams is returned for a zero period or a decay above 100%.
var ErrInvalidParams = errors.New("auction: invalid parameters")

// Params are the immutable pricing inputs of an auction.
type Params struct {
	StartPrice     *uint256.Int
	PeriodSeconds  uint64
	DecayPerPeriod *uint256.Int
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if p.StartPrice == nil || p.DecayPerPeriod == nil {
		return fmt.Errorf("%w: missing price or decay", ErrInvalidParams)
	}
	if p.PeriodSeconds == 0 {
		return fmt.Errorf("%w: zero period", ErrInvalidParams)
	}
	if p.DecayPerPeriod.Gt(fixedpoint.WAD()) {
		return fmt.Errorf("%w: decay %s exceeds 1e18", ErrInvalidParams, p.DecayPerPeriod.Dec())
	}
	return nil
}

// CurrentPrice returns the clearing price secondsElapsed after the start.
// It equals startPrice at zero, never increases and never goes below zero.
func CurrentPrice(startPrice *uint256.Int, secondsElapsed, periodSeconds uint64, decayPerPeriod *uint256.Int) (*uint256.Int, error) {
	p := Params{StartPrice: startPrice, PeriodSeconds: periodSeconds, DecayPerPeriod: decayPerPeriod}
	return p.PriceAt(secondsElapsed)
}

// PriceAt is CurrentPrice for p.
func (p Params) PriceAt(secondsElapsed uint64) (*uint256.Int, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if secondsElapsed == 0 {
		return new(uint256.Int).Set(p.StartPrice), nil
	}

	base := new(uint256.Int).Sub(fixedpoint.WAD(), p.DecayPerPeriod)
	if base.IsZero() {
		return new(uint256.Int), nil
	}

	exponent, err := fixedpoint.DivWad(uint256.NewInt(secondsElapsed), uint256.NewInt(p.PeriodSeconds))
	if err != nil {
		return nil, err
	}
	factor, err := fixedpoint.PowWad(base, exponent)
	if err != nil {
		return nil, fmt.Errorf("auction: decay factor: %w", err)
	}
	return fixedpoint.MulWad(p.StartPrice, factor)
}

// HourlyPriceChange is PriceAt(elapsed) - PriceAt(elapsed - 1h) as a signed
// value. The earlier point is clamped to the auction start.
func (p Params) HourlyPriceChange(secondsElapsed uint64) (*uint256.Int, error) {
	now, err := p.PriceAt(secondsElapsed)
	if err != nil {
		return nil, err
	}
	var earlier uint64
	if secondsElapsed > HourSeconds {
		earlier = secondsElapsed - HourSeconds
	}
	before, err := p.PriceAt(earlier)
	if err != nil {
		return nil, err
	}
	return fixedpoint.SignedSub(now, before), nil
}

// HourlyPriceChange is Params.HourlyPriceChange with explicit arguments.
func HourlyPriceChange(startPrice *uint256.Int, secondsElapsed, periodSeconds uint64, decayPerPeriod *uint256.Int) (*uint256.Int, error) {
	p := Params{StartPrice: startPrice, PeriodSeconds: periodSeconds, DecayPerPeriod: decayPerPeriod}
	return p.HourlyPriceChange(secondsElapsed)
}
