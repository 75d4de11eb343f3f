package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/perpdebt/vault-engine/internal/config"
	"github.com/perpdebt/vault-engine/internal/dashboard"
	"github.com/perpdebt/vault-engine/internal/store"
)

func testRouter(t *testing.T, origins []string) http.Handler {
	t.Helper()
	cfg := &config.Config{Server: config.ServerConfig{AllowedOrigins: origins}}
	svc := dashboard.NewService(store.NewMemoryStore(), config.Registry{}, nil)
	return newRouter(cfg, svc, dashboard.NewHub(origins, nil))
}

func preflight(h http.Handler, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auctions", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCORS_PreflightAllowedOrigin(t *testing.T) {
	h := testRouter(t, []string{"https://app.example"})

	rec := preflight(h, "https://app.example")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodGet)
}

func TestCORS_PreflightForeignOrigin(t *testing.T) {
	h := testRouter(t, []string{"https://app.example"})

	rec := preflight(h, "https://evil.example")
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_SimpleRequest(t *testing.T) {
	h := testRouter(t, []string{"https://app.example"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
	require.JSONEq(t, `{"status":"ok","service":"vault-engine"}`, rec.Body.String())
}

func TestCORS_EmptyListAllowsAnyOrigin(t *testing.T) {
	h := testRouter(t, nil)

	rec := preflight(h, "https://anywhere.example")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
