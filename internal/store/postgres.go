package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/perpdebt/vault-engine/internal/model"
	"github.com/perpdebt/vault-engine/internal/oracle"
)

// PostgresStore implements Store over the indexer's tables.
// Amounts and prices are NUMERIC(78,0) so every uint256 fits exactly;
// they are read back as TEXT and parsed into uint256.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const vaultColumns = `id, controller, account, collateral, collateral_count, debt::TEXT, updated_at`

func (s *PostgresStore) GetVault(ctx context.Context, id string) (*model.Vault, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+vaultColumns+` FROM vaults WHERE id = $1`, strings.ToLower(id))
	if err != nil {
		return nil, fmt.Errorf("get vault %s: %w", id, err)
	}
	defer rows.Close()

	vaults, err := scanVaults(rows)
	if err != nil {
		return nil, fmt.Errorf("get vault %s: %w", id, err)
	}
	if len(vaults) == 0 {
		return nil, fmt.Errorf("vault %s: %w", id, ErrNotFound)
	}
	return &vaults[0], nil
}

func (s *PostgresStore) ListVaults(ctx context.Context, controller common.Address) ([]model.Vault, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+vaultColumns+` FROM vaults WHERE controller = $1 ORDER BY id`, addr(controller))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanVaults(rows)
}

func (s *PostgresStore) ListDebtEvents(ctx context.Context, vaultID string) ([]model.DebtEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, vault_id, kind, amount::TEXT, reference_price::TEXT, timestamp
		 FROM debt_events WHERE vault_id = $1 ORDER BY block_number, log_index`,
		strings.ToLower(vaultID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDebtEvents(rows)
}

const auctionColumns = `id, vault_id, collateral, token_id, start_price::TEXT, start_timestamp,
	period_seconds, decay_per_period::TEXT, end_timestamp, end_price::TEXT`

func (s *PostgresStore) GetAuction(ctx context.Context, id string) (*model.Auction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+auctionColumns+` FROM auctions WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get auction %s: %w", id, err)
	}
	defer rows.Close()

	auctions, err := scanAuctions(rows)
	if err != nil {
		return nil, fmt.Errorf("get auction %s: %w", id, err)
	}
	if len(auctions) == 0 {
		return nil, fmt.Errorf("auction %s: %w", id, ErrNotFound)
	}
	return &auctions[0], nil
}

func (s *PostgresStore) ListAuctions(ctx context.Context, activeOnly bool) ([]model.Auction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+auctionColumns+` FROM auctions
		 WHERE NOT $1 OR end_timestamp IS NULL
		 ORDER BY start_timestamp DESC`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAuctions(rows)
}

func (s *PostgresStore) LatestOracleMessage(ctx context.Context, collateral common.Address, priceType oracle.PriceType) (*oracle.Message, error) {
	var priceS string
	var ts int64

	err := s.pool.QueryRow(ctx,
		`SELECT price::TEXT, timestamp
		 FROM oracle_messages WHERE collateral = $1 AND price_type = $2
		 ORDER BY timestamp DESC LIMIT 1`, addr(collateral), string(priceType)).
		Scan(&priceS, &ts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("oracle message %s/%s: %w", collateral.Hex(), priceType, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest oracle message %s/%s: %w", collateral.Hex(), priceType, err)
	}

	price, err := parseUint(priceS)
	if err != nil {
		return nil, err
	}
	return &oracle.Message{
		Collateral: collateral,
		Price:      price,
		Timestamp:  uint64(ts),
		PriceType:  priceType,
	}, nil
}

func (s *PostgresStore) GetControllerPrices(ctx context.Context, controller common.Address, at uint64) (*model.ControllerPrices, error) {
	var targetS, markS string
	var ts int64

	err := s.pool.QueryRow(ctx,
		`SELECT target::TEXT, mark::TEXT, timestamp
		 FROM controller_prices
		 WHERE controller = $1 AND ($2 = 0 OR timestamp <= $2)
		 ORDER BY timestamp DESC LIMIT 1`, addr(controller), int64(at)).
		Scan(&targetS, &markS, &ts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("controller prices %s at %d: %w", controller.Hex(), at, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("controller prices %s: %w", controller.Hex(), err)
	}

	p := model.ControllerPrices{Controller: controller, Timestamp: uint64(ts)}
	if p.Target, err = parseUint(targetS); err != nil {
		return nil, err
	}
	if p.Mark, err = parseUint(markS); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) ChainTime(ctx context.Context) (uint64, error) {
	var ts int64
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(timestamp), 0) FROM blocks`).Scan(&ts)
	if err != nil {
		return 0, fmt.Errorf("chain time: %w", err)
	}
	return uint64(ts), nil
}

// pgxRows is the subset of pgx.Rows the scanners need.
type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanVaults(rows pgxRows) ([]model.Vault, error) {
	var vaults []model.Vault
	for rows.Next() {
		var v model.Vault
		var controller, account, collateral, debtS string
		var count, updated int64

		if err := rows.Scan(&v.ID, &controller, &account, &collateral,
			&count, &debtS, &updated); err != nil {
			return nil, err
		}

		debt, err := parseUint(debtS)
		if err != nil {
			return nil, fmt.Errorf("vault %s debt: %w", v.ID, err)
		}
		v.Controller = common.HexToAddress(controller)
		v.Account = common.HexToAddress(account)
		v.Collateral = common.HexToAddress(collateral)
		v.CollateralCount = uint64(count)
		v.Debt = debt
		v.UpdatedAt = uint64(updated)

		vaults = append(vaults, v)
	}
	return vaults, rows.Err()
}

func scanDebtEvents(rows pgxRows) ([]model.DebtEvent, error) {
	var events []model.DebtEvent
	for rows.Next() {
		var e model.DebtEvent
		var kind, amountS, refS string
		var ts int64

		if err := rows.Scan(&e.ID, &e.VaultID, &kind, &amountS, &refS, &ts); err != nil {
			return nil, err
		}

		var err error
		if e.Amount, err = parseUint(amountS); err != nil {
			return nil, fmt.Errorf("debt event %s amount: %w", e.ID, err)
		}
		if e.ReferencePrice, err = parseUint(refS); err != nil {
			return nil, fmt.Errorf("debt event %s reference price: %w", e.ID, err)
		}
		e.Kind = model.DebtEventKind(kind)
		e.Timestamp = uint64(ts)

		events = append(events, e)
	}
	return events, rows.Err()
}

func scanAuctions(rows pgxRows) ([]model.Auction, error) {
	var auctions []model.Auction
	for rows.Next() {
		var a model.Auction
		var collateral, startS, decayS string
		var start, period int64
		var end *int64
		var endPriceS *string

		if err := rows.Scan(&a.ID, &a.VaultID, &collateral, &a.TokenID,
			&startS, &start, &period, &decayS, &end, &endPriceS); err != nil {
			return nil, err
		}

		var err error
		if a.StartPrice, err = parseUint(startS); err != nil {
			return nil, fmt.Errorf("auction %s start price: %w", a.ID, err)
		}
		if a.DecayPerPeriod, err = parseUint(decayS); err != nil {
			return nil, fmt.Errorf("auction %s decay: %w", a.ID, err)
		}
		if end != nil {
			ts := uint64(*end)
			a.EndTimestamp = &ts
		}
		if endPriceS != nil {
			if a.EndPrice, err = parseUint(*endPriceS); err != nil {
				return nil, fmt.Errorf("auction %s end price: %w", a.ID, err)
			}
		}
		a.Collateral = common.HexToAddress(collateral)
		a.StartTimestamp = uint64(start)
		a.PeriodSeconds = uint64(period)

		auctions = append(auctions, a)
	}
	return auctions, rows.Err()
}

// parseUint parses a NUMERIC rendered as text.
func parseUint(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("parse numeric %q: %w", s, err)
	}
	return v, nil
}

// addr renders an address the way the indexer stores it.
func addr(a common.Address) string {
	return strings.ToLower(a.Hex())
}
