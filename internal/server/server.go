// Package server assembles the gateway HTTP surface: operational endpoints
// outside the request gate and the gated application routes behind it.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/satizap/gateway/internal/metrics"
	"github.com/satizap/gateway/pkg/environment"
	"github.com/satizap/gateway/pkg/gate"
	"github.com/satizap/gateway/pkg/httpserver"
	"github.com/satizap/gateway/pkg/logger"
	"github.com/satizap/gateway/pkg/requestid"
	"github.com/satizap/gateway/pkg/tenant"
)

const defaultReadinessTimeout = 2 * time.Second

// Server owns the route table. Build one with New and serve Handler.
type Server struct {
	env              environment.Environment
	gate             *gate.Gate
	cache            tenant.Cache
	metrics          *metrics.Metrics
	logger           *slog.Logger
	checks           []httpserver.Check
	readinessTimeout time.Duration
	accessControl    bool
	serviceName      string
	now              func() time.Time
}

type Option func(*Server)

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics instruments every route and exposes GET /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithReadinessChecks sets the probes run by GET /readyz.
func WithReadinessChecks(timeout time.Duration, checks ...httpserver.Check) Option {
	return func(s *Server) {
		if timeout > 0 {
			s.readinessTimeout = timeout
		}
		s.checks = append(s.checks, checks...)
	}
}

// WithAccessControl marks admin sessions as enforced by the gate. When false,
// the admin endpoints accept requests without a session.
func WithAccessControl(enabled bool) Option {
	return func(s *Server) { s.accessControl = enabled }
}

func WithServiceName(name string) Option {
	return func(s *Server) {
		if name != "" {
			s.serviceName = name
		}
	}
}

func New(g *gate.Gate, cache tenant.Cache, env environment.Environment, opts ...Option) *Server {
	s := &Server{
		env:              env,
		gate:             g,
		cache:            cache,
		logger:           logger.Discard(),
		readinessTimeout: defaultReadinessTimeout,
		accessControl:    true,
		serviceName:      "satizap-gateway",
		now:              time.Now,
	}
	if s.cache == nil {
		s.cache = tenant.NoOpCache{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the full route table wrapped in OpenTelemetry
// instrumentation.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestid.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(environment.Middleware(s.env))
	if s.metrics != nil {
		r.Use(s.metrics.Instrument)
	}

	r.Get("/healthz", httpserver.LivenessHandler())
	r.Get("/readyz", httpserver.ReadinessHandler(s.logger, s.readinessTimeout, s.checks...))
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(s.gate.Middleware)

		r.Get("/", s.wrap(s.home))
		r.Get(gate.NotFoundPath, s.wrap(s.associationNotFound))
		r.Get(gate.DevErrorPath, s.wrap(s.devError))

		r.Get("/api/tenant-info", s.wrap(s.tenantInfo))
		r.Get("/api/admin/tenant-cache", s.wrap(s.requireAdmin(s.cacheStats)))
		r.Delete("/api/admin/tenant-cache", s.wrap(s.requireAdmin(s.cacheClear)))

		scoped := s.wrap(s.tenantScoped)
		for _, p := range []string{"/satizap", "/api/patients", "/api/messages"} {
			r.Get(p, scoped)
			r.Get(p+"/*", scoped)
		}
		r.Get("/{slug}", scoped)
		r.Get("/{slug}/*", scoped)
	})

	return otelhttp.NewHandler(r, s.serviceName)
}

func (s *Server) logRenderError(r *http.Request, err error) {
	s.logger.ErrorContext(r.Context(), "render response",
		logger.Component("server"),
		logger.Method(r.Method),
		logger.Path(r.URL.Path),
		logger.Error(err),
	)
}
