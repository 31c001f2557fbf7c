package gate

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/satizap/gateway/pkg/environment"
	"github.com/satizap/gateway/pkg/logger"
	"github.com/satizap/gateway/pkg/rbac"
	"github.com/satizap/gateway/pkg/tenant"
)

// Resolver is the part of tenant.Resolver the gate depends on.
type Resolver interface {
	Resolve(ctx context.Context, req tenant.Request, opts tenant.Options) (tenant.Result, error)
}

// Observer receives one event per gated request.
type Observer interface {
	Decision(kind Kind, duration time.Duration)
}

type nopObserver struct{}

func (nopObserver) Decision(Kind, time.Duration) {}

// Gate decides, per request, whether and how tenant context is attached.
type Gate struct {
	resolver Resolver
	env      environment.Environment
	policy   *rbac.Policy
	failOpen bool
	logger   *slog.Logger
	observer Observer
	now      func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithAccessControl enables the session check on admin paths.
func WithAccessControl(p *rbac.Policy) Option {
	return func(g *Gate) { g.policy = p }
}

// WithFailOpen controls what a production lookup failure does: continue
// without tenant (true, the default) or answer 503.
func WithFailOpen(failOpen bool) Option {
	return func(g *Gate) { g.failOpen = failOpen }
}

func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(g *Gate) {
		if o != nil {
			g.observer = o
		}
	}
}

// WithClock replaces time.Now for diagnostic timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

func New(resolver Resolver, env environment.Environment, opts ...Option) *Gate {
	g := &Gate{
		resolver: resolver,
		env:      env,
		failOpen: true,
		logger:   logger.Discard(),
		observer: nopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Evaluate runs the gate state machine for r without writing anything.
func (g *Gate) Evaluate(r *http.Request) Decision {
	ctx := r.Context()
	path := r.URL.Path

	if ShouldBypass(path) {
		return Decision{Kind: Continue}
	}

	needsTenant := NeedsTenantContext(path)

	var d Decision
	if g.policy != nil && rbac.IsAdminPath(path) {
		access := g.policy.Check(r)
		if !access.Allowed {
			g.logger.DebugContext(ctx, "admin access denied",
				logger.Component("gate"), logger.Path(path), logger.Role(access.Session.Role.String()), logger.Error(access.Err))
			return Decision{Kind: Redirect, Location: access.Location, Err: access.Err}
		}
		d.Session = &access.Session
		d.setHeader(HeaderUserRole, access.Session.Role.String())
		d.setHeader(HeaderUserAssociation, access.Session.AssociationID)
		d.setHeader(HeaderUserEmail, access.Session.Email)
	}

	if !needsTenant {
		d.Kind = Continue
		return d
	}

	devLocal := g.env.IsDevelopment() && tenant.IsLoopback(tenant.Hostname(r.Host))
	res, err := g.resolver.Resolve(ctx, tenant.Request{Host: r.Host, Path: path}, tenant.Options{
		EnableFallback: devLocal,
		CacheEnabled:   !g.env.IsProduction(),
	})
	d.Extraction = res.Extraction

	switch {
	case err != nil:
		return g.lookupFailed(ctx, r, d, err, devLocal)
	case res.Context != nil:
		return withTenant(d, res.Context)
	default:
		return g.tenantMissing(ctx, d, devLocal)
	}
}

func withTenant(d Decision, tc *tenant.Context) Decision {
	d.Kind = ContinueWithTenant
	d.Tenant = tc
	d.setHeader(HeaderTenantID, tc.Tenant.ID.String())
	d.setHeader(HeaderTenantSubdomain, tc.Identifier)
	d.setHeader(HeaderTenantName, tc.Tenant.Name)
	return d
}

func (g *Gate) tenantMissing(ctx context.Context, d Decision, devLocal bool) Decision {
	ext := d.Extraction
	g.logger.DebugContext(ctx, "no tenant for request",
		logger.Component("gate"), logger.Tenant(ext.Identifier), logger.Method(string(ext.Method)))

	if !devLocal {
		d.Kind = Redirect
		d.Location = NotFoundPath
		return d
	}

	if ext.Method == tenant.MethodPathBased && ext.Identifier != "" && ext.Valid {
		d.Kind = Redirect
		d.Location = g.devErrorURL("tenant-not-found", fmt.Sprintf("association %q not found", ext.Identifier), ext.Identifier)
		return d
	}

	d.Kind = ContinueDiagnostic
	d.setHeader(HeaderDevTenantMissing, "true")
	d.setHeader(HeaderDevFallbackMode, string(ext.Method))
	d.setHeader(HeaderDevRequestedTenant, ext.Identifier)
	d.setHeader(HeaderDevErrorMessage, ext.InvalidReason)
	return d
}

func (g *Gate) lookupFailed(ctx context.Context, r *http.Request, d Decision, err error, devLocal bool) Decision {
	g.logger.ErrorContext(ctx, "tenant resolution failed",
		logger.Component("gate"),
		logger.Tenant(d.Extraction.Identifier),
		logger.Host(r.Host),
		logger.Path(r.URL.Path),
		logger.Error(err),
	)
	d.Err = err

	switch {
	case devLocal:
		d.Kind = Redirect
		d.Location = g.devErrorURL("middleware-error", err.Error(), d.Extraction.Identifier)
		d.setHeader(HeaderDevMiddlewareError, "true")
		d.setHeader(HeaderDevErrorMessage, err.Error())
	case g.failOpen:
		d.Kind = Continue
	default:
		d.Kind = Unavailable
	}
	return d
}

func (g *Gate) devErrorURL(kind, message, slug string) string {
	q := url.Values{}
	q.Set("type", kind)
	q.Set("message", message)
	if slug != "" {
		q.Set("tenant", slug)
	}
	q.Set("timestamp", g.now().UTC().Format(time.RFC3339))
	return DevErrorPath + "?" + q.Encode()
}

// Middleware applies Evaluate to every request. Redirects use 307 so the
// method and body survive.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		for _, h := range managedHeaders {
			r.Header.Del(h)
		}

		d := g.Evaluate(r)
		g.observer.Decision(d.Kind, time.Since(start))

		for key, values := range d.Headers {
			w.Header()[key] = values
		}

		switch d.Kind {
		case Redirect:
			http.Redirect(w, r, d.Location, http.StatusTemporaryRedirect)
			return
		case Unavailable:
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}

		ctx := r.Context()
		if d.Tenant != nil {
			ctx = tenant.WithContext(ctx, d.Tenant)
		}
		if d.Session != nil {
			ctx = rbac.WithSession(ctx, *d.Session)
		}
		r = r.WithContext(ctx)
		for key, values := range d.Headers {
			r.Header[key] = values
		}
		next.ServeHTTP(w, r)
	})
}
