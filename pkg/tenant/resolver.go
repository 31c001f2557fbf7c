package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/satizap/gateway/pkg/environment"
	"github.com/satizap/gateway/pkg/logger"
)

const tracerName = "github.com/satizap/gateway/pkg/tenant"

// Request is the part of an inbound request the resolver looks at.
type Request struct {
	Host string
	Path string
}

// Options are the per-request switches derived from the environment.
type Options struct {
	// EnableFallback permits path-based routing on loopback hosts.
	// It only has an effect in development.
	EnableFallback bool
	// CacheEnabled consults the cache. It has no effect in production.
	CacheEnabled bool
}

// Result is the outcome of a resolution. Context is nil when the request has
// no usable tenant; Extraction is always populated.
type Result struct {
	Extraction Extraction
	Context    *Context
}

// Resolver runs extraction, validation, cache and persistence lookup in
// that order.
type Resolver struct {
	provider      Provider
	env           environment.Environment
	cache         Cache
	lookupTimeout time.Duration
	breaker       *Breaker
	coalesce      bool
	group         singleflight.Group
	observer      Observer
	logger        *slog.Logger
	tracer        trace.Tracer
}

// NewResolver creates a resolver backed by provider. Without WithCache it
// uses NewCacheForEnvironment(env).
func NewResolver(provider Provider, env environment.Environment, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		provider:      provider,
		env:           env,
		lookupTimeout: DefaultLookupTimeout,
		observer:      nopObserver{},
		logger:        logger.Discard(),
		tracer:        otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = NewCacheForEnvironment(env)
	}
	return r
}

// Cache exposes the resolver's cache for administrative operations.
func (r *Resolver) Cache() Cache {
	return r.cache
}

// Resolve returns the tenant owning req. Missing, invalid, unknown and
// inactive tenants produce a Result with a nil Context and no error. Only a
// Provider failure returns an error, wrapped with ErrLookupFailed or
// ErrLookupUnavailable.
func (r *Resolver) Resolve(ctx context.Context, req Request, opts Options) (Result, error) {
	ext := Extract(req.Host, req.Path, ExtractEnv{
		Development: r.env.IsDevelopment() && opts.EnableFallback,
	})
	res := Result{Extraction: ext}
	if ext.Identifier == "" || !ext.Valid {
		return res, nil
	}

	id := ext.Identifier
	useCache := opts.CacheEnabled && !r.env.IsProduction()

	var (
		t      *Tenant
		cached bool
	)
	if useCache {
		t, cached = r.cache.Get(ctx, id)
		r.observer.CacheLookup(cached)
	}

	if !cached {
		var err error
		if t, err = r.lookup(ctx, id); err != nil {
			return res, err
		}
		if useCache {
			r.cache.Set(ctx, id, t)
		}
	}

	// Inactive is reported exactly like not found.
	if t == nil || !t.Active {
		r.logger.DebugContext(ctx, "tenant not resolved", logger.Tenant(id), logger.Method(string(ext.Method)))
		return res, nil
	}

	res.Context = &Context{Tenant: t, Identifier: id}
	return res, nil
}

// lookup runs guardedLookup, optionally shared between concurrent callers.
// A shared call runs detached from the caller that started it and is bounded
// by the lookup timeout; each caller stops waiting when its own ctx ends.
func (r *Resolver) lookup(ctx context.Context, id string) (*Tenant, error) {
	if !r.coalesce {
		return r.guardedLookup(ctx, id)
	}
	ch := r.group.DoChan(id, func() (any, error) {
		return r.guardedLookup(context.WithoutCancel(ctx), id)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %q: %w", ErrLookupFailed, id, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		t, _ := res.Val.(*Tenant)
		return t, nil
	}
}

// guardedLookup calls the provider under the breaker and lookup timeout.
// Errors caused by the caller's own context ending are not breaker failures.
func (r *Resolver) guardedLookup(ctx context.Context, id string) (*Tenant, error) {
	caller := ctx
	if r.breaker != nil && !r.breaker.Allow() {
		return nil, fmt.Errorf("%w: %q", ErrLookupUnavailable, id)
	}

	ctx, span := r.tracer.Start(ctx, "tenant.lookup", trace.WithAttributes(
		attribute.String("tenant.identifier", id),
	))
	defer span.End()

	if r.lookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.lookupTimeout)
		defer cancel()
	}

	start := time.Now()
	t, err := r.provider.GetBySubdomain(ctx, id)
	if errors.Is(err, ErrTenantNotFound) {
		t, err = nil, nil
	}
	r.observer.Lookup(time.Since(start), err)

	if err != nil {
		if r.breaker != nil && caller.Err() == nil {
			r.breaker.RecordFailure()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return nil, fmt.Errorf("%w: %q: %w", ErrLookupFailed, id, err)
	}

	if r.breaker != nil {
		r.breaker.RecordSuccess()
	}
	span.SetAttributes(attribute.Bool("tenant.found", t != nil))
	return t, nil
}
