package tenant

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// DefaultLookupTimeout bounds a single Provider call. The production
// fail-open policy depends on a hung lookup turning into an error.
const DefaultLookupTimeout = 3 * time.Second

// Observer receives resolver events, typically to feed metrics.
type Observer interface {
	CacheLookup(hit bool)
	Lookup(duration time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) CacheLookup(bool) {}
func (nopObserver) Lookup(time.Duration, error) {}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithCache replaces the environment default cache.
func WithCache(c Cache) ResolverOption {
	return func(r *Resolver) {
		if c != nil {
			r.cache = c
		}
	}
}

// WithLookupTimeout bounds each Provider call. Zero disables the bound.
func WithLookupTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		if d >= 0 {
			r.lookupTimeout = d
		}
	}
}

// WithBreaker guards Provider calls with b. Nil disables the breaker.
func WithBreaker(b *Breaker) ResolverOption {
	return func(r *Resolver) { r.breaker = b }
}

// WithCoalescing collapses concurrent lookups of the same identifier into a
// single Provider call.
func WithCoalescing() ResolverOption {
	return func(r *Resolver) { r.coalesce = true }
}

func WithObserver(o Observer) ResolverOption {
	return func(r *Resolver) {
		if o != nil {
			r.observer = o
		}
	}
}

func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithTracer(t trace.Tracer) ResolverOption {
	return func(r *Resolver) {
		if t != nil {
			r.tracer = t
		}
	}
}
