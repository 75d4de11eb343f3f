package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"github.com/perpdebt/vault-engine/internal/auction"
	"github.com/perpdebt/vault-engine/internal/metrics"
	"github.com/perpdebt/vault-engine/internal/oracle"
	"github.com/perpdebt/vault-engine/internal/store"
	"github.com/perpdebt/vault-engine/internal/vaultid"
)

// Routes mounts the read API on r. hub may be nil when live feeds are off.
func (s *Service) Routes(r chi.Router, hub *Hub) {
	r.Get("/vaults/{vaultID}", s.GetVault)
	r.Get("/vaults/{vaultID}/loans", s.GetLoans)
	r.Get("/vaults/{vaultID}/health", s.GetHealth)
	r.Get("/controllers/{controller}/prices", s.GetPrices)
	r.Get("/controllers/{controller}/vaults", s.ListVaults)
	r.Get("/auctions", s.ListAuctions)
	r.Get("/auctions/{auctionID}/price", s.GetAuctionPrice)
	r.Get("/oracle/{collateral}/synced", s.GetOracleSynced)
	if hub != nil {
		r.Get("/ws", hub.ServeWS)
	}
}

// --- HTTP Handlers ---

// GetVault handles GET /api/v1/vaults/{vaultID}
func (s *Service) GetVault(w http.ResponseWriter, r *http.Request) {
	id, ok := vaultParam(w, r)
	if !ok {
		return
	}
	vault, err := s.Vault(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vault)
}

// GetLoans handles GET /api/v1/vaults/{vaultID}/loans
func (s *Service) GetLoans(w http.ResponseWriter, r *http.Request) {
	id, ok := vaultParam(w, r)
	if !ok {
		return
	}
	start := time.Now()
	view, err := s.Loans(r.Context(), id)
	metrics.ObserveRecompute("loans", start, err)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetHealth handles GET /api/v1/vaults/{vaultID}/health
func (s *Service) GetHealth(w http.ResponseWriter, r *http.Request) {
	id, ok := vaultParam(w, r)
	if !ok {
		return
	}
	start := time.Now()
	view, err := s.Health(r.Context(), id)
	metrics.ObserveRecompute("health", start, err)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetPrices handles GET /api/v1/controllers/{controller}/prices
func (s *Service) GetPrices(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r, "controller")
	if !ok {
		return
	}
	view, err := s.Prices(r.Context(), addr)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ListVaults handles GET /api/v1/controllers/{controller}/vaults
func (s *Service) ListVaults(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r, "controller")
	if !ok {
		return
	}
	vaults, err := s.Vaults(r.Context(), addr)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vaults)
}

// ListAuctions handles GET /api/v1/auctions?active=true
func (s *Service) ListAuctions(w http.ResponseWriter, r *http.Request) {
	activeOnly := false
	if v := r.URL.Query().Get("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, "active must be a boolean", http.StatusBadRequest)
			return
		}
		activeOnly = b
	}
	auctions, err := s.Auctions(r.Context(), activeOnly)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, auctions)
}

// GetAuctionPrice handles GET /api/v1/auctions/{auctionID}/price?elapsed=
func (s *Service) GetAuctionPrice(w http.ResponseWriter, r *http.Request) {
	auctionID := chi.URLParam(r, "auctionID")

	var elapsed *uint64
	if v := r.URL.Query().Get("elapsed"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(w, "elapsed must be a non-negative integer", http.StatusBadRequest)
			return
		}
		elapsed = &n
	}

	start := time.Now()
	quote, err := s.AuctionQuote(r.Context(), auctionID, elapsed)
	metrics.ObserveRecompute("auction", start, err)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// GetOracleSynced handles GET /api/v1/oracle/{collateral}/synced?type=
func (s *Service) GetOracleSynced(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r, "collateral")
	if !ok {
		return
	}
	pt := oracle.Lower
	if v := r.URL.Query().Get("type"); v != "" {
		parsed, err := oracle.ParsePriceType(v)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		pt = parsed
	}
	view, err := s.OracleSynced(r.Context(), addr, pt)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// --- Helpers ---

func vaultParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := vaultid.Canonical(chi.URLParam(r, "vaultID"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return id, true
}

func addressParam(w http.ResponseWriter, r *http.Request, name string) (common.Address, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if !common.IsHexAddress(raw) {
		writeError(w, "invalid "+name+" address", http.StatusBadRequest)
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}

// fail maps domain errors onto status codes. Anything unrecognised is logged
// and reported as a 500 without leaking the cause.
func (s *Service) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case store.IsNotFound(err):
		writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrUnknownController), errors.Is(err, auction.ErrInvalidParams):
		writeError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, "request cancelled", http.StatusServiceUnavailable)
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
