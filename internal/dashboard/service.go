// Package dashboard serves the engine's derived views over HTTP and
// WebSocket: per-loan ledgers, vault health, controller prices and live
// auction prices.
//
// Every view is recomputed from a fresh store snapshot; nothing derived is
// cached or written back.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/perpdebt/vault-engine/internal/auction"
	"github.com/perpdebt/vault-engine/internal/config"
	"github.com/perpdebt/vault-engine/internal/events"
	"github.com/perpdebt/vault-engine/internal/fixedpoint"
	"github.com/perpdebt/vault-engine/internal/health"
	"github.com/perpdebt/vault-engine/internal/ledger"
	"github.com/perpdebt/vault-engine/internal/metrics"
	"github.com/perpdebt/vault-engine/internal/model"
	"github.com/perpdebt/vault-engine/internal/oracle"
	"github.com/perpdebt/vault-engine/internal/store"
)

// ErrUnknownController is returned for vaults whose controller has no
// configured risk parameters.
var ErrUnknownController = errors.New("dashboard: unknown controller")

// DaySeconds is the look-back for TargetMarkChange.
const DaySeconds = 86400

// Service builds views from the store and the controller registry.
type Service struct {
	store       store.Store
	controllers config.Registry
	logger      *slog.Logger
}

// NewService creates a new dashboard service.
func NewService(st store.Store, controllers config.Registry, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: st, controllers: controllers, logger: logger}
}

// --- Views ---

// LoansView is a vault's debt history folded into loans.
type LoansView struct {
	VaultID        string                      `json:"vault_id"`
	ReferencePrice *uint256.Int                `json:"reference_price"`
	Loans          []ledger.EffectiveLoanState `json:"loans"`
	Unattributed   []ledger.Unattributed       `json:"unattributed"`
	TotalRepaid    *uint256.Int                `json:"total_repaid"`
}

// HealthView is a vault's loan-to-value status.
type HealthView struct {
	VaultID         string       `json:"vault_id"`
	Debt            *uint256.Int `json:"debt"`
	CollateralCount uint64       `json:"collateral_count"`
	ReferencePrice  *uint256.Int `json:"reference_price"`
	ChainTime       uint64       `json:"chain_time"`
	OracleTimestamp uint64       `json:"oracle_timestamp,omitempty"`
	health.Report
}

// PricesView is a controller's target and mark with the day-over-day change
// of target/mark.
type PricesView struct {
	Controller       common.Address   `json:"controller"`
	Target           *uint256.Int     `json:"target"`
	Mark             *uint256.Int     `json:"mark"`
	Timestamp        uint64           `json:"timestamp"`
	ComparedTo       uint64           `json:"compared_to,omitempty"`
	TargetMarkChange fixedpoint.Ratio `json:"target_mark_change"`
}

// SyncedView reports whether the newest oracle message may be used now.
type SyncedView struct {
	Collateral common.Address   `json:"collateral"`
	PriceType  oracle.PriceType `json:"price_type"`
	Timestamp  uint64           `json:"timestamp,omitempty"`
	ChainTime  uint64           `json:"chain_time"`
	Synced     bool             `json:"synced"`
}

// Vault returns the indexed vault record.
func (s *Service) Vault(ctx context.Context, vaultID string) (*model.Vault, error) {
	return s.store.GetVault(ctx, vaultID)
}

// Loans folds a vault's debt events into per-loan states.
func (s *Service) Loans(ctx context.Context, vaultID string) (*LoansView, error) {
	vault, err := s.store.GetVault(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListDebtEvents(ctx, vaultID)
	if err != nil {
		return nil, fmt.Errorf("list debt events: %w", err)
	}
	prices, err := s.store.GetControllerPrices(ctx, vault.Controller, 0)
	if err != nil {
		return nil, fmt.Errorf("controller prices: %w", err)
	}

	loans, repayments, err := events.Split(records)
	if err != nil {
		return nil, err
	}
	res, err := ledger.Allocate(loans, repayments)
	if err != nil {
		return nil, err
	}
	states, err := ledger.Summarize(loans, res, prices.Target)
	if err != nil {
		return nil, err
	}
	if n := len(res.Unattributed); n > 0 {
		metrics.UnattributedRepayments.Add(float64(n))
		s.logger.Warn("repayments not attributable to any loan",
			"vault_id", vaultID, "slices", n, "amount", res.TotalUnattributed().Dec())
	}

	unattributed := res.Unattributed
	if unattributed == nil {
		unattributed = []ledger.Unattributed{}
	}
	return &LoansView{
		VaultID:        vault.ID,
		ReferencePrice: prices.Target,
		Loans:          states,
		Unattributed:   unattributed,
		TotalRepaid:    res.TotalApplied(),
	}, nil
}

// Health evaluates a vault against its controller's max LTV. Stale or
// missing oracle prices yield a report with an undefined LTV.
func (s *Service) Health(ctx context.Context, vaultID string) (*HealthView, error) {
	vault, err := s.store.GetVault(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	ctrl, ok := s.controllers.Lookup(vault.Controller)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownController, vault.Controller.Hex())
	}

	chain, err := s.store.ChainTime(ctx)
	if err != nil {
		return nil, err
	}
	prices, err := s.store.GetControllerPrices(ctx, vault.Controller, 0)
	if err != nil {
		return nil, fmt.Errorf("controller prices: %w", err)
	}
	// Target is quoted in the underlying; the health math runs on WAD.
	reference, err := fixedpoint.Rescale(prices.Target, ctrl.UnderlyingDecimals, fixedpoint.Decimals)
	if err != nil {
		return nil, fmt.Errorf("rescale target: %w", err)
	}

	valuation, err := s.valuationMessage(ctx, ctrl, vault.Collateral, chain)
	if err != nil {
		return nil, err
	}

	rep, err := health.Evaluate(health.Input{
		Debt:               vault.Debt,
		CollateralCount:    vault.CollateralCount,
		Oracle:             valuation,
		ReferencePrice:     reference,
		MaxLTV:             ctrl.MaxLTV,
		UnderlyingDecimals: ctrl.UnderlyingDecimals,
		ChainTime:          chain,
	})
	if err != nil {
		return nil, err
	}
	if rep.Stale {
		metrics.StaleOracleReads.Inc()
	}

	view := &HealthView{
		VaultID:         vault.ID,
		Debt:            vault.Debt,
		CollateralCount: vault.CollateralCount,
		ReferencePrice:  reference,
		ChainTime:       chain,
		Report:          rep,
	}
	if valuation != nil {
		view.OracleTimestamp = valuation.Timestamp
	}
	return view, nil
}

// valuationMessage returns the message used to value collateral, or nil when
// any required price kind is missing or not yet synced.
func (s *Service) valuationMessage(ctx context.Context, ctrl config.Controller, collateral common.Address, chain uint64) (*oracle.Message, error) {
	var msgs []*oracle.Message
	for _, pt := range ctrl.Requirements.Types() {
		m, err := s.store.LatestOracleMessage(ctx, collateral, pt)
		if store.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("oracle message: %w", err)
		}
		msgs = append(msgs, m)
	}

	resolved, err := ctrl.Requirements.Resolve(msgs)
	if errors.Is(err, oracle.ErrMissingPriceType) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !resolved.Synced(chain) {
		return nil, nil
	}
	return resolved[ctrl.ValuationPriceType], nil
}

// Prices returns a controller's newest prices compared with a day earlier.
func (s *Service) Prices(ctx context.Context, controller common.Address) (*PricesView, error) {
	cur, err := s.store.GetControllerPrices(ctx, controller, 0)
	if err != nil {
		return nil, err
	}
	view := &PricesView{
		Controller:       controller,
		Target:           cur.Target,
		Mark:             cur.Mark,
		Timestamp:        cur.Timestamp,
		TargetMarkChange: fixedpoint.Undefined(),
	}
	if cur.Timestamp <= DaySeconds {
		return view, nil
	}

	prev, err := s.store.GetControllerPrices(ctx, controller, cur.Timestamp-DaySeconds)
	if store.IsNotFound(err) {
		return view, nil
	}
	if err != nil {
		return nil, err
	}
	view.ComparedTo = prev.Timestamp
	view.TargetMarkChange = health.TargetMarkChange(*prev, *cur)
	return view, nil
}

// AuctionQuote prices an auction. A nil elapsed uses the current chain time.
// Ended auctions always report their recorded end price.
func (s *Service) AuctionQuote(ctx context.Context, auctionID string, elapsed *uint64) (auction.PriceQuote, error) {
	a, err := s.store.GetAuction(ctx, auctionID)
	if err != nil {
		return auction.PriceQuote{}, err
	}
	if elapsed != nil && !a.Ended() {
		return auction.QuoteAt(a, *elapsed)
	}
	chain, err := s.store.ChainTime(ctx)
	if err != nil {
		return auction.PriceQuote{}, err
	}
	return auction.Quote(a, chain)
}

// OracleSynced checks the newest message of one kind for a collection.
func (s *Service) OracleSynced(ctx context.Context, collateral common.Address, pt oracle.PriceType) (*SyncedView, error) {
	chain, err := s.store.ChainTime(ctx)
	if err != nil {
		return nil, err
	}
	view := &SyncedView{Collateral: collateral, PriceType: pt, ChainTime: chain}

	msg, err := s.store.LatestOracleMessage(ctx, collateral, pt)
	if store.IsNotFound(err) {
		return view, nil
	}
	if err != nil {
		return nil, err
	}
	view.Timestamp = msg.Timestamp
	view.Synced = oracle.IsSynced(msg, chain)
	return view, nil
}

// Auctions lists auctions, newest first.
func (s *Service) Auctions(ctx context.Context, activeOnly bool) ([]model.Auction, error) {
	return s.store.ListAuctions(ctx, activeOnly)
}

// Vaults lists a controller's vaults.
func (s *Service) Vaults(ctx context.Context, controller common.Address) ([]model.Vault, error) {
	return s.store.ListVaults(ctx, controller)
}
