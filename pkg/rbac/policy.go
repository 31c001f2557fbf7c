package rbac

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	DefaultCookieName    = "session"
	DefaultLoginPath     = "/login"
	DefaultDashboardPath = "/admin/dashboard"
)

var adminPrefixes = []string{"/admin", "/api/admin"}

// IsAdminPath reports whether path belongs to the protected admin area.
func IsAdminPath(path string) bool {
	for _, prefix := range adminPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// ManagerCanAccess reports whether a manager of associationID may open path.
// Routes match on whole segments: manager 45 is not let into association 456,
// and /admin/dashboard does not cover /admin/dashboard-export.
func ManagerCanAccess(path, associationID string) bool {
	if underPath(path, DefaultDashboardPath) {
		return true
	}
	if associationID == "" {
		return false
	}
	return underPath(path, "/admin/associations/"+associationID) ||
		underPath(path, "/api/admin/associations/"+associationID)
}

func underPath(path, base string) bool {
	return path == base || strings.HasPrefix(path, base+"/")
}

// Decision is the outcome of Policy.Check. When Allowed is false, Location is
// where the request must be redirected and Err explains why.
type Decision struct {
	Allowed  bool
	Location string
	Session  Session
	Err      error
}

// Policy authorises admin-area requests from their session cookie.
type Policy struct {
	codec         *Codec
	cookieName    string
	loginPath     string
	dashboardPath string
}

// PolicyOption configures a Policy.
type PolicyOption func(*Policy)

func WithCookieName(name string) PolicyOption {
	return func(p *Policy) {
		if name != "" {
			p.cookieName = name
		}
	}
}

func WithLoginPath(path string) PolicyOption {
	return func(p *Policy) {
		if path != "" {
			p.loginPath = path
		}
	}
}

func NewPolicy(codec *Codec, opts ...PolicyOption) *Policy {
	p := &Policy{
		codec:         codec,
		cookieName:    DefaultCookieName,
		loginPath:     DefaultLoginPath,
		dashboardPath: DefaultDashboardPath,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Check authorises r. It does not look at whether r is an admin path; callers
// gate on IsAdminPath first.
func (p *Policy) Check(r *http.Request) Decision {
	cookie, err := r.Cookie(p.cookieName)
	if err != nil || cookie.Value == "" {
		return p.toLogin(r, ErrNoSession)
	}

	s, err := p.codec.Parse(cookie.Value)
	if err != nil {
		return p.toLogin(r, err)
	}

	switch s.Role {
	case RoleAdmin:
		return Decision{Allowed: true, Session: s}
	case RoleManager:
		if ManagerCanAccess(r.URL.Path, s.AssociationID) {
			return Decision{Allowed: true, Session: s}
		}
		return Decision{Location: p.dashboardPath, Session: s, Err: ErrForbidden}
	default:
		return p.toLogin(r, ErrUnknownRole)
	}
}

// LoginURL is the login redirect target preserving path.
func (p *Policy) LoginURL(path string) string {
	return p.loginPath + "?" + url.Values{"redirect": {path}}.Encode()
}

func (p *Policy) toLogin(r *http.Request, err error) Decision {
	return Decision{Location: p.LoginURL(r.URL.Path), Err: err}
}
