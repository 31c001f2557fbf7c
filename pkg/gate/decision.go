package gate

import (
	"net/http"

	"github.com/satizap/gateway/pkg/rbac"
	"github.com/satizap/gateway/pkg/tenant"
)

// Kind is the terminal state of the gate for one request.
type Kind int

const (
	// Continue forwards the request without tenant context.
	Continue Kind = iota
	// ContinueWithTenant forwards the request with tenant headers and context.
	ContinueWithTenant
	// Redirect sends the client to Decision.Location.
	Redirect
	// ContinueDiagnostic forwards the request with X-Dev-* headers. Only
	// produced in development on a loopback host.
	ContinueDiagnostic
	// Unavailable answers 503. Only produced when fail-open is disabled.
	Unavailable
)

func (k Kind) String() string {
	switch k {
	case Continue:
		return "continue"
	case ContinueWithTenant:
		return "continue_with_tenant"
	case Redirect:
		return "redirect"
	case ContinueDiagnostic:
		return "continue_diagnostic"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Decision is what the gate decided for a request. Headers are applied to
// both the forwarded request and the response.
type Decision struct {
	Kind       Kind
	Location   string
	Headers    http.Header
	Tenant     *tenant.Context
	Session    *rbac.Session
	Extraction tenant.Extraction
	// Err is the lookup or access-control error behind the decision, if any.
	Err error
}

func (d *Decision) setHeader(key, value string) {
	if value == "" {
		return
	}
	if d.Headers == nil {
		d.Headers = make(http.Header)
	}
	d.Headers.Set(key, value)
}
