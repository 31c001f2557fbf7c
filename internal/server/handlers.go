package server

import (
	"net/http"
	"time"

	"github.com/satizap/gateway/pkg/rbac"
	"github.com/satizap/gateway/pkg/tenant"
)

type homeView struct {
	Service     string `json:"service"`
	Environment string `json:"environment"`
	Tenant      string `json:"tenant,omitempty"`
}

func (s *Server) home(r *http.Request) Response {
	v := homeView{Service: s.serviceName, Environment: s.env.String()}
	if tc, ok := tenant.FromContext(r.Context()); ok {
		v.Tenant = tc.Identifier
	}
	return JSON(v)
}

func (s *Server) associationNotFound(*http.Request) Response {
	return JSONError(ErrAssociationNotFound)
}

type devErrorView struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Tenant    string `json:"tenant,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// devError echoes the diagnostic the gate redirected with. It does not exist
// outside development.
func (s *Server) devError(r *http.Request) Response {
	if !s.env.IsDevelopment() {
		return JSONError(ErrNotFound)
	}
	q := r.URL.Query()
	return JSON(devErrorView{
		Type:      q.Get("type"),
		Message:   q.Get("message"),
		Tenant:    q.Get("tenant"),
		Timestamp: q.Get("timestamp"),
	})
}

func (s *Server) tenantInfo(r *http.Request) Response {
	tc, ok := tenant.FromContext(r.Context())
	if !ok {
		return JSONError(ErrTenantNotResolved)
	}
	return JSON(tc.Tenant, WithMeta(map[string]any{"identifier": tc.Identifier}))
}

type scopedView struct {
	Tenant string `json:"tenant"`
	Path   string `json:"path"`
}

func (s *Server) tenantScoped(r *http.Request) Response {
	tc, ok := tenant.FromContext(r.Context())
	if !ok {
		return JSONError(ErrTenantNotResolved)
	}
	return JSON(scopedView{Tenant: tc.Identifier, Path: r.URL.Path})
}

// requireAdmin lets only the admin role through. Managers are refused even
// though the gate lets them reach their own admin pages.
func (s *Server) requireAdmin(next HandlerFunc) HandlerFunc {
	return func(r *http.Request) Response {
		sess, ok := rbac.SessionFromContext(r.Context())
		switch {
		case !ok && !s.accessControl:
			return next(r)
		case !ok || sess.Role != rbac.RoleAdmin:
			return JSONError(ErrForbidden)
		}
		return next(r)
	}
}

func (s *Server) cacheStats(r *http.Request) Response {
	return JSON(s.cache.Stats(r.Context()))
}

type clearView struct {
	Cleared   bool      `json:"cleared"`
	ClearedAt time.Time `json:"cleared_at"`
}

func (s *Server) cacheClear(r *http.Request) Response {
	s.cache.Clear(r.Context())
	s.logger.InfoContext(r.Context(), "tenant cache cleared")
	return JSON(clearView{Cleared: true, ClearedAt: s.now().UTC()})
}
