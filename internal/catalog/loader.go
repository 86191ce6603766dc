// Package catalog loads and holds the three collections behind a category
// page.
package catalog

import (
	"context"
	"net/url"
	"time"

	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/downstream"
	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/logger"
	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/query"
	"github.com/baechuer/real-time-ressys/services/discovery-service/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

// Fetcher reads one Discovery API collection per call.
type Fetcher interface {
	Events(ctx context.Context, q url.Values) ([]domain.EventRecord, error)
	Attractions(ctx context.Context, q url.Values) ([]domain.AttractionRecord, error)
	Venues(ctx context.Context, q url.Values) ([]domain.VenueRecord, error)
}

type Option func(*Loader)

// WithCache caches complete listings. Partial results are never cached.
func WithCache(c Cache) Option {
	return func(l *Loader) { l.cache = c }
}

// WithTimeout bounds one full load, pacing included.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) { l.timeout = d }
}

// Loader runs the three requests of a page load one after the other.
type Loader struct {
	fetcher Fetcher
	builder query.Builder
	pacer   downstream.Pacer
	cache   Cache
	timeout time.Duration

	group singleflight.Group
}

func NewLoader(f Fetcher, b query.Builder, p downstream.Pacer, opts ...Option) *Loader {
	l := &Loader{
		fetcher: f,
		builder: b,
		pacer:   p,
		timeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches events, attractions and venues for f, in that order, with the
// pacer consulted before each request. The first failure stops the sequence
// and an empty listing is returned with the error.
//
// Concurrent loads of the same query share one upstream sequence. The shared
// sequence is detached from any single caller, so a caller giving up only
// stops that caller from waiting.
func (l *Loader) Load(ctx context.Context, f domain.FilterState) (domain.Listing, error) {
	q := l.builder.Build(f)
	key := query.CacheKey(q)
	log := logger.Ctx(ctx).With().Str("query", key).Logger()

	if l.cache != nil {
		cached, ok, err := l.cache.Get(ctx, key)
		switch {
		case err != nil:
			cacheLookups.WithLabelValues("error").Inc()
			log.Warn().Err(err).Msg("listing cache get failed")
		case ok:
			cacheLookups.WithLabelValues("hit").Inc()
			log.Debug().Msg("listing cache hit")
			return cached, nil
		default:
			cacheLookups.WithLabelValues("miss").Inc()
		}
	}

	ch := l.group.DoChan(key, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()

		listing, err := l.fetchAll(lctx, q)
		if err != nil {
			loadsTotal.WithLabelValues(downstream.Kind(err)).Inc()
			log.Warn().Err(err).Msg("page load failed")
			return listing, err
		}

		loadsTotal.WithLabelValues("ok").Inc()
		if l.cache != nil {
			if err := l.cache.Set(lctx, key, listing); err != nil {
				log.Warn().Err(err).Msg("listing cache set failed")
			}
		}
		return listing, nil
	})

	select {
	case <-ctx.Done():
		return domain.Listing{}, ctx.Err()
	case res := <-ch:
		return res.Val.(domain.Listing), res.Err
	}
}

func (l *Loader) fetchAll(ctx context.Context, q url.Values) (out domain.Listing, err error) {
	ctx, span := tracing.StartSpan(ctx, "catalog.Load")
	span.SetAttributes(attribute.String("discovery.keyword", q.Get("keyword")))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	steps := []func(context.Context) error{
		func(ctx context.Context) error {
			events, err := l.fetcher.Events(ctx, q)
			out.Events = events
			return err
		},
		func(ctx context.Context) error {
			attractions, err := l.fetcher.Attractions(ctx, q)
			out.Attractions = attractions
			return err
		},
		func(ctx context.Context) error {
			venues, err := l.fetcher.Venues(ctx, q)
			out.Venues = venues
			return err
		},
	}

	// a listing is all three collections or nothing; what an aborted run
	// fetched is discarded
	for i, step := range steps {
		if err := l.pacer.Wait(ctx, i); err != nil {
			return domain.Listing{}, err
		}
		if err := step(ctx); err != nil {
			return domain.Listing{}, err
		}
	}
	return out, nil
}
