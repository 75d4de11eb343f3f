package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/perpdebt/vault-engine/internal/model"
	"github.com/perpdebt/vault-engine/internal/oracle"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. The engine never writes, so entries only expire; keep ttl below the
// feed interval. A Redis outage degrades to direct primary reads.
type CachedStore struct {
	primary Store
	rdb     redis.Cmdable
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb redis.Cmdable, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetVault(ctx context.Context, id string) (*model.Vault, error) {
	var v model.Vault
	if s.get(ctx, vaultKey(id), &v) {
		return &v, nil
	}

	// Cache miss: read from primary.
	got, err := s.primary.GetVault(ctx, id)
	if err != nil {
		return nil, err
	}
	s.set(ctx, vaultKey(id), got)
	return got, nil
}

func (s *CachedStore) ListDebtEvents(ctx context.Context, vaultID string) ([]model.DebtEvent, error) {
	var events []model.DebtEvent
	if s.get(ctx, eventsKey(vaultID), &events) {
		return events, nil
	}

	events, err := s.primary.ListDebtEvents(ctx, vaultID)
	if err != nil {
		return nil, err
	}
	s.set(ctx, eventsKey(vaultID), events)
	return events, nil
}

func (s *CachedStore) GetAuction(ctx context.Context, id string) (*model.Auction, error) {
	var a model.Auction
	if s.get(ctx, auctionKey(id), &a) {
		return &a, nil
	}

	got, err := s.primary.GetAuction(ctx, id)
	if err != nil {
		return nil, err
	}
	s.set(ctx, auctionKey(id), got)
	return got, nil
}

func (s *CachedStore) LatestOracleMessage(ctx context.Context, collateral common.Address, priceType oracle.PriceType) (*oracle.Message, error) {
	var m oracle.Message
	key := oracleMsgKey(collateral, priceType)
	if s.get(ctx, key, &m) {
		return &m, nil
	}

	got, err := s.primary.LatestOracleMessage(ctx, collateral, priceType)
	if err != nil {
		return nil, err
	}
	s.set(ctx, key, got)
	return got, nil
}

func (s *CachedStore) GetControllerPrices(ctx context.Context, controller common.Address, at uint64) (*model.ControllerPrices, error) {
	var p model.ControllerPrices
	key := pricesKey(controller, at)
	if s.get(ctx, key, &p) {
		return &p, nil
	}

	got, err := s.primary.GetControllerPrices(ctx, controller, at)
	if err != nil {
		return nil, err
	}
	s.set(ctx, key, got)
	return got, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListVaults(ctx context.Context, controller common.Address) ([]model.Vault, error) {
	return s.primary.ListVaults(ctx, controller)
}

func (s *CachedStore) ListAuctions(ctx context.Context, activeOnly bool) ([]model.Auction, error) {
	return s.primary.ListAuctions(ctx, activeOnly)
}

func (s *CachedStore) ChainTime(ctx context.Context) (uint64, error) {
	return s.primary.ChainTime(ctx)
}

// --- Cache helpers ---

func (s *CachedStore) get(ctx context.Context, key string, dst any) bool {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *CachedStore) set(ctx context.Context, key string, v any) {
	if data, err := json.Marshal(v); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
}

func vaultKey(id string) string { return fmt.Sprintf("vault:%s", strings.ToLower(id)) }
func eventsKey(id string) string { return fmt.Sprintf("debt_events:%s", strings.ToLower(id)) }
func auctionKey(id string) string { return fmt.Sprintf("auction:%s", id) }

func oracleMsgKey(collateral common.Address, pt oracle.PriceType) string {
	return fmt.Sprintf("oracle:%s:%s", addr(collateral), pt)
}

func pricesKey(controller common.Address, at uint64) string {
	return fmt.Sprintf("prices:%s:%d", addr(controller), at)
}
