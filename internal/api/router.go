package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/api/handlers"
	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/config"
	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/logger"
	"github.com/baechuer/real-time-ressys/services/discovery-service/middleware"
)

const serviceName = "discovery-service"

func NewRouter(
	cfg *config.Config,
	category *handlers.CategoryHandler,
	ready *handlers.ReadinessHandler,
	rdb *redis.Client,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger.Log))
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Metrics)

	// probes and scrapes stay outside tracing and rate limiting
	r.Get("/healthz", ready.Healthz)
	r.Get("/readyz", ready.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if cfg.OTelEnabled {
			r.Use(middleware.Tracing(serviceName))
		}

		if cfg.RLEnabled {
			if rdb == nil {
				r.Use(httprate.LimitByIP(cfg.RLLimit, cfg.RLWindow))
			} else {
				r.Use(middleware.NewRedisRateLimiter(rdb).Middleware(middleware.RateLimitConfig{
					Limit:  cfg.RLLimit,
					Window: cfg.RLWindow,
					KeyFn:  middleware.KeyByIP,
				}))
			}
		}

		r.Get("/kategori/{slug}", category.Page)
		r.Get("/api/categories/{slug}", category.JSON)
	})

	return r
}
