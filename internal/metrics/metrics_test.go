package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/vaults/{vaultID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/vaults/{vaultID}", "418"))
	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/vaults/"+id, nil))
	}
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/vaults/{vaultID}", "418"))

	if after-before != 3 {
		t.Errorf("expected 3 requests under one route label, got %v", after-before)
	}
}

func TestObserveRecompute(t *testing.T) {
	okBefore := testutil.ToFloat64(Recomputations.WithLabelValues("auction"))
	errBefore := testutil.ToFloat64(RecomputeErrors.WithLabelValues("auction"))

	ObserveRecompute("auction", time.Now(), nil)
	ObserveRecompute("auction", time.Now(), errors.New("boom"))

	if got := testutil.ToFloat64(Recomputations.WithLabelValues("auction")) - okBefore; got != 2 {
		t.Errorf("expected 2 recomputations, got %v", got)
	}
	if got := testutil.ToFloat64(RecomputeErrors.WithLabelValues("auction")) - errBefore; got != 1 {
		t.Errorf("expected 1 error, got %v", got)
	}
}

func TestStatusWriterHijackUnsupported(t *testing.T) {
	sw := &statusWriter{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	if _, _, err := sw.Hijack(); err == nil {
		t.Error("expected error from recorder without Hijacker")
	}
}
