package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/perpdebt/vault-engine/internal/config"
	"github.com/perpdebt/vault-engine/internal/dashboard"
	"github.com/perpdebt/vault-engine/internal/logging"
	"github.com/perpdebt/vault-engine/internal/metrics"
	"github.com/perpdebt/vault-engine/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup("vault-engine", cfg.Server.Env, cfg.Server.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("vault-engine exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Initialize store ---
	st, cleanup, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if len(cfg.Controllers) == 0 {
		logger.Warn("no controllers configured; health views will return 422")
	}

	// --- Dashboard service and live feeds ---
	svc := dashboard.NewService(st, cfg.Controllers, logger)
	hub := dashboard.NewHub(cfg.Server.AllowedOrigins, logger)
	feeds := dashboard.NewFeeds(svc, hub, cfg.Feed.Interval, logger)
	hub.Track(feeds)
	defer feeds.Close()

	// --- Server ---
	r := newRouter(cfg, svc, hub)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("vault-engine listening", "port", cfg.Server.Port, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down vault-engine...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("vault-engine stopped")
	return err
}

// openStore picks PostgreSQL when DATABASE_URL is set, optionally behind a
// Redis read-through cache, and the in-memory store otherwise.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store (no indexed data)")
		return store.NewMemoryStore(), func() {}, nil
	}

	var cleanup []func()
	closeAll := func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	cleanup = append(cleanup, pool.Close)
	if err := pool.Ping(ctx); err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("database ping failed: %w", err)
	}
	var st store.Store = store.NewPostgresStore(pool)
	logger.Info("connected to PostgreSQL")

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
		st = store.NewCachedStore(st, rdb, cfg.CacheTTL)
		logger.Info("Redis cache enabled", "ttl", cfg.CacheTTL)
	}
	return st, closeAll, nil
}

// newRouter mounts the health, metrics and dashboard routes.
func newRouter(cfg *config.Config, svc *dashboard.Service, hub *dashboard.Hub) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metrics.Middleware)
	// An empty origin list allows every origin.
	r.Use(cors.New(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}).Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"vault-engine"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket connections must outlive the request timeout.
		r.Group(func(r chi.Router) {
			r.Get("/ws", hub.ServeWS)
		})
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			svc.Routes(r, nil)
		})
	})
	return r
}
