// Package metrics provides Prometheus instrumentation for the vault engine.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Recomputations counts view recomputations, partitioned by view kind.
	Recomputations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vault_engine_recomputations_total",
		Help: "Total number of view recomputations",
	}, []string{"kind"})

	// RecomputeErrors counts recomputations that failed to produce a value.
	RecomputeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vault_engine_recompute_errors_total",
		Help: "View recomputations that failed",
	}, []string{"kind"})

	// RecomputeLatency tracks the time to build one snapshot.
	RecomputeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vault_engine_recompute_latency_seconds",
		Help:    "View recomputation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	// ActiveFeeds tracks running feed jobs.
	ActiveFeeds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vault_engine_active_feeds",
		Help: "Number of running live feed jobs",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vault_engine_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// StaleOracleReads counts health evaluations made without a synced price.
	StaleOracleReads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vault_engine_stale_oracle_reads_total",
		Help: "Health evaluations skipped because the oracle message was not synced",
	})

	// UnattributedRepayments counts repayment slices no loan could absorb.
	UnattributedRepayments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vault_engine_unattributed_repayments_total",
		Help: "Repayment slices left over after every loan was repaid",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vault_engine_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vault_engine_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRecompute records one view recomputation, from a feed tick or a request.
func ObserveRecompute(kind string, start time.Time, err error) {
	Recomputations.WithLabelValues(kind).Inc()
	RecomputeLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		RecomputeErrors.WithLabelValues(kind).Inc()
	}
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := routePattern(r)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// routePattern uses the chi route pattern for the path label to avoid high
// cardinality. Unrouted requests share one label.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
