package tenant

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// WithContext attaches a resolved tenant to ctx.
func WithContext(ctx context.Context, tc *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, tc)
}

// FromContext returns the tenant resolved for the request, if any.
func FromContext(ctx context.Context) (*Context, bool) {
	tc, ok := ctx.Value(contextKey{}).(*Context)
	if !ok || tc == nil || tc.Tenant == nil {
		return nil, false
	}
	return tc, true
}

// MustFromContext panics if no tenant was resolved. Use only behind routes
// the request gate always resolves.
func MustFromContext(ctx context.Context) *Context {
	tc, ok := FromContext(ctx)
	if !ok {
		panic(ErrNoTenantInContext)
	}
	return tc
}

// LoggerExtractor tags log records with the resolved tenant slug.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if tc, ok := FromContext(ctx); ok {
			return slog.String("tenant", tc.Identifier), true
		}
		return slog.Attr{}, false
	}
}
