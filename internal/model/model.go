// Package model defines the indexed on-chain records the engine reads.
// Every amount and price is a raw EVM word (holiman/uint256), never float64.
package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// DebtEventKind distinguishes debt increases from decreases.
type DebtEventKind string

const (
	DebtIncrease DebtEventKind = "increase"
	DebtDecrease DebtEventKind = "decrease"
)

// DebtEvent is an immutable debt change emitted by a controller.
// Schema: {vault, kind, amount, reference price, timestamp}
type DebtEvent struct {
	ID             string        `json:"id" db:"id"`
	VaultID        string        `json:"vault_id" db:"vault_id"`
	Kind           DebtEventKind `json:"kind" db:"kind"`
	Amount         *uint256.Int  `json:"amount" db:"amount"`
	ReferencePrice *uint256.Int  `json:"reference_price" db:"reference_price"` // target price at the event
	Timestamp      uint64        `json:"timestamp" db:"timestamp"`
}

// Vault is one account's position in one collateral collection under one
// controller.
type Vault struct {
	ID              string         `json:"id" db:"id"`
	Controller      common.Address `json:"controller" db:"controller"`
	Account         common.Address `json:"account" db:"account"`
	Collateral      common.Address `json:"collateral" db:"collateral"`
	CollateralCount uint64         `json:"collateral_count" db:"collateral_count"`
	Debt            *uint256.Int   `json:"debt" db:"debt"`
	UpdatedAt       uint64         `json:"updated_at" db:"updated_at"`
}

// Auction is a Dutch-decay liquidation auction of one collateral token.
// Only EndTimestamp and EndPrice change, once, when the auction closes.
type Auction struct {
	ID             string         `json:"id" db:"id"`
	VaultID        string         `json:"vault_id" db:"vault_id"`
	Collateral     common.Address `json:"collateral" db:"collateral"`
	TokenID        string         `json:"token_id" db:"token_id"`
	StartPrice     *uint256.Int   `json:"start_price" db:"start_price"`
	StartTimestamp uint64         `json:"start_timestamp" db:"start_timestamp"`
	PeriodSeconds  uint64         `json:"period_seconds" db:"period_seconds"`
	DecayPerPeriod *uint256.Int   `json:"decay_per_period" db:"decay_per_period"` // WAD fraction
	EndTimestamp   *uint64        `json:"end_timestamp,omitempty" db:"end_timestamp"`
	EndPrice       *uint256.Int   `json:"end_price,omitempty" db:"end_price"`
}

// Ended reports whether external state has closed the auction.
func (a *Auction) Ended() bool {
	return a.EndTimestamp != nil
}

// ControllerPrices is a controller's target and mark price at one instant.
type ControllerPrices struct {
	Controller common.Address `json:"controller" db:"controller"`
	Target     *uint256.Int   `json:"target" db:"target"`
	Mark       *uint256.Int   `json:"mark" db:"mark"`
	Timestamp  uint64         `json:"timestamp" db:"timestamp"`
}
