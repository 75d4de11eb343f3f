// Package store defines read access to indexed on-chain state.
// The indexer owns the tables; the engine never writes derived values back.
// Implementations include PostgreSQL (indexer tables), Redis (read-through
// cache), and in-memory (for testing and local runs).
package store

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/perpdebt/vault-engine/internal/model"
	"github.com/perpdebt/vault-engine/internal/oracle"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// IsNotFound reports whether err means a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Store is the read interface over indexed state.
type Store interface {
	// --- Vaults ---

	// GetVault retrieves a vault by its canonical id.
	GetVault(ctx context.Context, id string) (*model.Vault, error)

	// ListVaults returns the vaults of one controller.
	ListVaults(ctx context.Context, controller common.Address) ([]model.Vault, error)

	// --- Debt history ---

	// ListDebtEvents returns a vault's debt events in indexer order. Callers
	// must not assume they are sorted.
	ListDebtEvents(ctx context.Context, vaultID string) ([]model.DebtEvent, error)

	// --- Auctions ---

	// GetAuction retrieves an auction by id.
	GetAuction(ctx context.Context, id string) (*model.Auction, error)

	// ListAuctions returns auctions, optionally only those still active.
	ListAuctions(ctx context.Context, activeOnly bool) ([]model.Auction, error)

	// --- Prices ---

	// LatestOracleMessage returns the newest message of one price type for a
	// collateral collection.
	LatestOracleMessage(ctx context.Context, collateral common.Address, priceType oracle.PriceType) (*oracle.Message, error)

	// GetControllerPrices returns the newest target/mark snapshot at or before
	// at. An at of zero means the newest overall.
	GetControllerPrices(ctx context.Context, controller common.Address, at uint64) (*model.ControllerPrices, error)

	// ChainTime returns the timestamp of the newest indexed block.
	ChainTime(ctx context.Context) (uint64, error)
}
