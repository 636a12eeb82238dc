package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/marketsearch/internal/config"
	"github.com/kailas-cloud/marketsearch/internal/db"
	"github.com/kailas-cloud/marketsearch/internal/db/breaker"
	"github.com/kailas-cloud/marketsearch/internal/db/postgrest"
	"github.com/kailas-cloud/marketsearch/internal/db/sqlstore"
	dbValkey "github.com/kailas-cloud/marketsearch/internal/db/valkey"
	logpkg "github.com/kailas-cloud/marketsearch/internal/logger"
	"github.com/kailas-cloud/marketsearch/internal/metrics"
	creatorrepo "github.com/kailas-cloud/marketsearch/internal/repository/creator"
	listingrepo "github.com/kailas-cloud/marketsearch/internal/repository/listing"
	"github.com/kailas-cloud/marketsearch/internal/repository/media"
	ratelimitrepo "github.com/kailas-cloud/marketsearch/internal/repository/ratelimit"
	chiTransport "github.com/kailas-cloud/marketsearch/internal/transport/chi"
	healthuc "github.com/kailas-cloud/marketsearch/internal/usecase/health"
	predictiveuc "github.com/kailas-cloud/marketsearch/internal/usecase/predictive"
	ratelimituc "github.com/kailas-cloud/marketsearch/internal/usecase/ratelimit"
	"github.com/kailas-cloud/marketsearch/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting marketsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("build_date", version.Date),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("ratelimit_backend", cfg.RateLimit.Backend),
	)

	// Register search metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	ctx := context.Background()

	store, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Fatal("Failed to open store", zap.Error(err))
	}
	defer store.Close()
	logger.Info("Connected to store")

	limiter, closeLimiter, err := buildLimiter(ctx, cfg.RateLimit)
	if err != nil {
		logger.Fatal("Failed to create rate limiter", zap.Error(err))
	}
	defer closeLimiter()

	gate := ratelimituc.NewGate(limiter, policies(cfg.RateLimit), logger)

	// Repositories
	listings := listingrepo.New(store, logger, cfg.Search.PhotoCap)
	creators := creatorrepo.New(store, logger)
	images := media.NewResolver(cfg.Media.BaseURL, cfg.Media.ListingBucket)
	avatars := media.NewResolver(cfg.Media.BaseURL, cfg.Media.AvatarBucket)

	// Use cases
	predictiveSvc := predictiveuc.New(gate, listings, creators, images, avatars, logger,
		predictiveuc.Config{Timeout: cfg.Search.Timeout()})
	healthSvc := healthuc.New(store, limiter)

	trusted, err := cfg.HTTP.TrustedProxyPrefixes()
	if err != nil {
		logger.Fatal("Invalid trusted proxies", zap.Error(err))
	}
	server := chiTransport.NewServer(predictiveSvc, healthSvc, logger, cfg.HTTP.OpsAPIKeys).
		WithTrustedProxies(trusted)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// openStore connects the configured backend, waits for it and wraps it in the
// circuit breaker.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (db.Store, error) {
	readiness := time.Duration(cfg.ReadinessTimeout) * time.Second

	var base db.Store
	switch cfg.Driver {
	case config.DriverPostgREST:
		s, err := postgrest.NewStore(postgrest.Config{
			URL:    cfg.URL,
			APIKey: cfg.APIKey,
			Schema: cfg.Schema,
		})
		if err != nil {
			return nil, fmt.Errorf("postgrest: %w", err)
		}
		if err := s.WaitForReady(ctx, readiness); err != nil {
			s.Close()
			return nil, fmt.Errorf("postgrest not ready: %w", err)
		}
		base = s
	case config.DriverPostgres, config.DriverSQLite:
		s, err := sqlstore.Open(ctx, sqlstore.Config{
			Driver:         cfg.Driver,
			DSN:            cfg.DSN,
			MaxOpenConns:   cfg.MaxOpenConns,
			ConnectTimeout: readiness,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cfg.Driver, err)
		}
		if cfg.AutoMigrate {
			if err := s.ApplySchema(ctx); err != nil {
				s.Close()
				return nil, fmt.Errorf("apply schema: %w", err)
			}
			logger.Info("Schema applied")
		}
		base = s
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}

	return breaker.New(base, breaker.Config{
		Name:                "store",
		ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
		OpenTimeout:         time.Duration(cfg.Breaker.OpenTimeoutSec) * time.Second,
		HalfOpenRequests:    cfg.Breaker.HalfOpenRequests,
	}, logger, metrics.BreakerRecorder{}), nil
}

// limiterBackend is a rate limiter that can also report health.
type limiterBackend interface {
	ratelimituc.Limiter
	healthuc.Pinger
}

func buildLimiter(ctx context.Context, cfg config.RateLimitConfig) (limiterBackend, func(), error) {
	switch cfg.Backend {
	case config.BackendValkey:
		s, err := dbValkey.NewStore(dbValkey.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("valkey: %w", err)
		}
		if err := s.WaitForReady(ctx, 10*time.Second); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("valkey not ready: %w", err)
		}
		return ratelimitrepo.NewValkey(s, instanceID()), s.Close, nil
	default:
		return ratelimitrepo.NewMemory(), func() {}, nil
	}
}

func policies(cfg config.RateLimitConfig) map[ratelimituc.Channel]ratelimituc.Policy {
	out := ratelimituc.DefaultPolicies()
	for name, p := range cfg.Channels {
		out[ratelimituc.Channel(name)] = ratelimituc.Policy{MaxRequests: p.MaxRequests, Window: p.Window()}
	}
	return out
}

// instanceID names this replica in shared limiter state.
func instanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "marketsearch"
	}
	return host + "-" + uuid.NewString()[:8]
}
