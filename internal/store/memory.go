package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/perpdebt/vault-engine/internal/model"
	"github.com/perpdebt/vault-engine/internal/oracle"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. The Put methods stand in for the indexer.
type MemoryStore struct {
	mu        sync.RWMutex
	vaults    map[string]*model.Vault
	events    map[string][]model.DebtEvent
	auctions  map[string]*model.Auction
	messages  map[oracleKey][]oracle.Message
	prices    map[common.Address][]model.ControllerPrices
	chainTime uint64
}

type oracleKey struct {
	collateral common.Address
	priceType  oracle.PriceType
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		vaults:   make(map[string]*model.Vault),
		events:   make(map[string][]model.DebtEvent),
		auctions: make(map[string]*model.Auction),
		messages: make(map[oracleKey][]oracle.Message),
		prices:   make(map[common.Address][]model.ControllerPrices),
	}
}

// --- Seeding ---

// PutVault inserts or replaces a vault.
func (s *MemoryStore) PutVault(v *model.Vault) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to avoid external mutation.
	cp := *v
	s.vaults[v.ID] = &cp
}

// AppendDebtEvents appends events for their vaults in the given order.
func (s *MemoryStore) AppendDebtEvents(evs ...model.DebtEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ev := range evs {
		s.events[ev.VaultID] = append(s.events[ev.VaultID], ev)
	}
}

// PutAuction inserts or replaces an auction.
func (s *MemoryStore) PutAuction(a *model.Auction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *a
	s.auctions[a.ID] = &cp
}

// PutOracleMessage records a signed price message.
func (s *MemoryStore) PutOracleMessage(msg *oracle.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := oracleKey{msg.Collateral, msg.PriceType}
	s.messages[k] = append(s.messages[k], *msg)
}

// PutControllerPrices records a target/mark snapshot.
func (s *MemoryStore) PutControllerPrices(p *model.ControllerPrices) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prices[p.Controller] = append(s.prices[p.Controller], *p)
}

// SetChainTime sets the newest block timestamp.
func (s *MemoryStore) SetChainTime(ts uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chainTime = ts
}

// --- Store ---

func (s *MemoryStore) GetVault(_ context.Context, id string) (*model.Vault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vaults[id]
	if !ok {
		return nil, fmt.Errorf("vault %s: %w", id, ErrNotFound)
	}
	cp := *v
	return &cp, nil
}

func (s *MemoryStore) ListVaults(_ context.Context, controller common.Address) ([]model.Vault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vaults := make([]model.Vault, 0)
	for _, v := range s.vaults {
		if v.Controller == controller {
			vaults = append(vaults, *v)
		}
	}
	sort.Slice(vaults, func(i, j int) bool { return vaults[i].ID < vaults[j].ID })
	return vaults, nil
}

func (s *MemoryStore) ListDebtEvents(_ context.Context, vaultID string) ([]model.DebtEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]model.DebtEvent(nil), s.events[vaultID]...), nil
}

func (s *MemoryStore) GetAuction(_ context.Context, id string) (*model.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.auctions[id]
	if !ok {
		return nil, fmt.Errorf("auction %s: %w", id, ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) ListAuctions(_ context.Context, activeOnly bool) ([]model.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	auctions := make([]model.Auction, 0, len(s.auctions))
	for _, a := range s.auctions {
		if activeOnly && a.Ended() {
			continue
		}
		auctions = append(auctions, *a)
	}
	sort.Slice(auctions, func(i, j int) bool {
		return auctions[i].StartTimestamp > auctions[j].StartTimestamp
	})
	return auctions, nil
}

func (s *MemoryStore) LatestOracleMessage(_ context.Context, collateral common.Address, priceType oracle.PriceType) (*oracle.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *oracle.Message
	msgs := s.messages[oracleKey{collateral, priceType}]
	for i := range msgs {
		if latest == nil || msgs[i].Timestamp > latest.Timestamp {
			latest = &msgs[i]
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("oracle message %s/%s: %w", collateral.Hex(), priceType, ErrNotFound)
	}
	cp := *latest
	return &cp, nil
}

func (s *MemoryStore) GetControllerPrices(_ context.Context, controller common.Address, at uint64) (*model.ControllerPrices, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *model.ControllerPrices
	snaps := s.prices[controller]
	for i := range snaps {
		p := &snaps[i]
		if at != 0 && p.Timestamp > at {
			continue
		}
		if best == nil || p.Timestamp > best.Timestamp {
			best = p
		}
	}
	if best == nil {
		return nil, fmt.Errorf("controller prices %s at %d: %w", controller.Hex(), at, ErrNotFound)
	}
	cp := *best
	return &cp, nil
}

func (s *MemoryStore) ChainTime(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.chainTime, nil
}
