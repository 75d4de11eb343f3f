package store

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/perpdebt/vault-engine/internal/model"
	"github.com/perpdebt/vault-engine/internal/oracle"
)

var (
	controllerA = common.HexToAddress("0x3b29c19ff2fcea0ff98d0ef5b184354d74ea74b0")
	collection  = common.HexToAddress("0xb7f7f6c52f2e2fdb1963eab30438024864c313f6")
)

func TestMemoryStore_VaultCopies(t *testing.T) {
	s := NewMemoryStore()
	s.PutVault(&model.Vault{ID: "v1", Controller: controllerA, CollateralCount: 2, Debt: uint256.NewInt(10)})

	v, err := s.GetVault(context.Background(), "v1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v.CollateralCount = 99

	again, _ := s.GetVault(context.Background(), "v1")
	if again.CollateralCount != 2 {
		t.Errorf("caller mutation leaked into store: count=%d", again.CollateralCount)
	}

	_, err = s.GetVault(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_DebtEventsKeepInsertOrder(t *testing.T) {
	s := NewMemoryStore()
	s.AppendDebtEvents(
		model.DebtEvent{ID: "b", VaultID: "v1", Timestamp: 20},
		model.DebtEvent{ID: "a", VaultID: "v1", Timestamp: 10},
		model.DebtEvent{ID: "c", VaultID: "v2", Timestamp: 5},
	)

	evs, err := s.ListDebtEvents(context.Background(), "v1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(evs) != 2 || evs[0].ID != "b" || evs[1].ID != "a" {
		t.Errorf("expected [b a], got %+v", evs)
	}
}

func TestMemoryStore_ListAuctionsActiveOnly(t *testing.T) {
	s := NewMemoryStore()
	end := uint64(500)
	s.PutAuction(&model.Auction{ID: "live", StartTimestamp: 200})
	s.PutAuction(&model.Auction{ID: "done", StartTimestamp: 100, EndTimestamp: &end})

	all, _ := s.ListAuctions(context.Background(), false)
	if len(all) != 2 || all[0].ID != "live" {
		t.Errorf("expected newest first, got %+v", all)
	}
	active, _ := s.ListAuctions(context.Background(), true)
	if len(active) != 1 || active[0].ID != "live" {
		t.Errorf("expected only live auction, got %+v", active)
	}
}

func TestMemoryStore_LatestOracleMessage(t *testing.T) {
	s := NewMemoryStore()
	for _, ts := range []uint64{10, 30, 20} {
		s.PutOracleMessage(&oracle.Message{Collateral: collection, Price: uint256.NewInt(ts), Timestamp: ts, PriceType: oracle.Lower})
	}
	s.PutOracleMessage(&oracle.Message{Collateral: collection, Price: uint256.NewInt(1), Timestamp: 99, PriceType: oracle.Spot})

	m, err := s.LatestOracleMessage(context.Background(), collection, oracle.Lower)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Timestamp != 30 {
		t.Errorf("expected newest lower message at 30, got %d", m.Timestamp)
	}

	_, err = s.LatestOracleMessage(context.Background(), collection, oracle.TWAP)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_ControllerPricesAt(t *testing.T) {
	s := NewMemoryStore()
	for _, ts := range []uint64{100, 200, 300} {
		s.PutControllerPrices(&model.ControllerPrices{Controller: controllerA, Target: uint256.NewInt(ts), Mark: uint256.NewInt(1), Timestamp: ts})
	}

	cases := map[uint64]uint64{0: 300, 250: 200, 200: 200, 1000: 300}
	for at, want := range cases {
		p, err := s.GetControllerPrices(context.Background(), controllerA, at)
		if err != nil {
			t.Fatalf("at %d: unexpected error: %v", at, err)
		}
		if p.Timestamp != want {
			t.Errorf("at %d: expected snapshot %d, got %d", at, want, p.Timestamp)
		}
	}

	_, err := s.GetControllerPrices(context.Background(), controllerA, 50)
	if !IsNotFound(err) {
		t.Errorf("expected ErrNotFound before first snapshot, got %v", err)
	}
}
