package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/api"
	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/api/handlers"
	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/catalog"
	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/config"
	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/downstream"
	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/logger"
	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/query"
	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/tracing"
	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/view"
)

// App holds all dependencies for the service
type App struct {
	Config *config.Config
	Server *http.Server
	Redis  *redis.Client
	Tracer *tracing.TracerProvider
}

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("config load failed")
	}
	// again, now that .env has been read
	logger.Setup(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg)
	if err != nil {
		zlog.Fatal().Err(err).Msg("app init failed")
	}

	go func() {
		zlog.Info().Str("addr", cfg.HTTPAddr).Str("env", cfg.AppEnv).Msg("discovery service listening")
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal().Err(err).Msg("server crashed")
		}
	}()

	<-ctx.Done()
	zlog.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	app.Close(shutdownCtx)
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	// 1) Tracing
	tp, err := tracing.InitTracing(ctx, tracing.Config{
		ServiceName:    "discovery-service",
		ServiceVersion: "1.0.0",
		Environment:    cfg.AppEnv,
		OTLPEndpoint:   cfg.OTelEndpoint,
		Enabled:        cfg.OTelEnabled,
		SampleRatio:    cfg.OTelSampleRatio,
	})
	if err != nil {
		return nil, err
	}

	// 2) Redis, optional
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		rdb = redis.NewClient(opt)

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			zlog.Warn().Err(err).Msg("redis ping failed: shared cache and limiter will fail open")
		}
	} else {
		zlog.Warn().Msg("REDIS_URL empty: using in-process cache and rate limiter")
	}

	// 3) Upstream
	var (
		pacer    downstream.Pacer
		observer downstream.RateObserver
	)
	switch cfg.PacingMode {
	case config.PacingTokenBucket:
		tb := downstream.NewTokenBucket(cfg.PacingRPS, cfg.PacingBurst)
		pacer, observer = tb, tb
	default:
		pacer = downstream.FixedDelay{Delay: cfg.PacingDelay}
	}

	httpClient := downstream.NewClient(downstream.ClientConfig{Timeout: cfg.RequestTimeout})
	discovery := downstream.NewDiscoveryClient(cfg.BaseURL, httpClient, observer)

	// 4) Catalog
	var cache catalog.Cache = catalog.NewMemoryCache(cfg.CacheTTL)
	if rdb != nil {
		cache = catalog.Tiered{Local: cache, Shared: catalog.NewRedisCache(rdb, cfg.CacheTTL)}
	}

	builder := query.Builder{
		APIKey:      cfg.APIKey,
		PageSize:    cfg.PageSize,
		Precedence:  query.ParsePrecedence(cfg.KeywordPrecedence),
		DateEnabled: cfg.DateFilterEnabled,
	}
	loader := catalog.NewLoader(discovery, builder, pacer,
		catalog.WithCache(cache),
		catalog.WithTimeout(cfg.LoadTimeout),
	)

	// 5) Transport
	renderer, err := view.NewRenderer()
	if err != nil {
		return nil, err
	}
	sessions := catalog.NewSessions(ctx, loader, cfg.SessionTTL)
	category := handlers.NewCategoryHandler(sessions, renderer, cfg.LoadTimeout)

	var checkers []handlers.ReadinessChecker
	if rdb != nil {
		checkers = append(checkers, handlers.NewRedisChecker(rdb))
	}
	ready := handlers.NewReadinessHandler(checkers...)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api.NewRouter(cfg, category, ready, rdb),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	zlog.Info().
		Str("base_url", cfg.BaseURL).
		Str("pacing", cfg.PacingMode).
		Str("keyword_precedence", cfg.KeywordPrecedence).
		Bool("redis", rdb != nil).
		Bool("tracing", cfg.OTelEnabled).
		Msg("discovery service configured")

	return &App{Config: cfg, Server: srv, Redis: rdb, Tracer: tp}, nil
}

// Close drains in-flight requests, then releases Redis and the tracer.
func (a *App) Close(ctx context.Context) {
	if err := a.Server.Shutdown(ctx); err != nil {
		zlog.Error().Err(err).Msg("http shutdown")
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Tracer != nil {
		if err := a.Tracer.Shutdown(ctx); err != nil {
			zlog.Error().Err(err).Msg("tracer shutdown")
		}
	}
}
