package gate

import (
	"strings"

	"github.com/satizap/gateway/pkg/tenant"
)

// Request headers set by the gate. Inbound values are always discarded so a
// client cannot spoof them.
const (
	HeaderTenantID        = "X-Tenant-ID"
	HeaderTenantSubdomain = "X-Tenant-Subdomain"
	HeaderTenantName      = "X-Tenant-Name"

	HeaderUserRole        = "X-User-Role"
	HeaderUserAssociation = "X-User-Association"
	HeaderUserEmail       = "X-User-Email"

	HeaderDevTenantMissing   = "X-Dev-Tenant-Missing"
	HeaderDevRequestedTenant = "X-Dev-Requested-Tenant"
	HeaderDevFallbackMode    = "X-Dev-Fallback-Mode"
	HeaderDevMiddlewareError = "X-Dev-Middleware-Error"
	HeaderDevErrorMessage    = "X-Dev-Error-Message"
)

var managedHeaders = []string{
	HeaderTenantID, HeaderTenantSubdomain, HeaderTenantName,
	HeaderUserRole, HeaderUserAssociation, HeaderUserEmail,
	HeaderDevTenantMissing, HeaderDevRequestedTenant, HeaderDevFallbackMode,
	HeaderDevMiddlewareError, HeaderDevErrorMessage,
}

const (
	NotFoundPath = "/association-not-found"
	DevErrorPath = "/dev-error"
)

var (
	bypassPrefixes = []string{"/_next", "/api/upload", "/favicon"}
	publicPrefixes = []string{NotFoundPath, DevErrorPath}
	tenantPrefixes = []string{"/satizap", "/api/tenant-info", "/api/patients", "/api/messages"}
)

// ShouldBypass reports whether path is never tenant-resolved: framework
// assets, uploads, the favicon, and any dotted path outside /admin.
func ShouldBypass(path string) bool {
	if hasAnyPrefix(path, bypassPrefixes) {
		return true
	}
	return strings.Contains(path, ".") && !strings.HasPrefix(path, "/admin")
}

// IsPublicRoute reports whether path is served without a tenant.
func IsPublicRoute(path string) bool {
	return path == "/" || hasAnyPrefix(path, publicPrefixes)
}

// NeedsTenantContext reports whether path requires a resolved tenant: one of
// the tenant-scoped families, or a first segment that is a valid slug.
func NeedsTenantContext(path string) bool {
	if IsPublicRoute(path) {
		return false
	}
	if hasAnyPrefix(path, tenantPrefixes) {
		return true
	}
	segment, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	return segment != "" && tenant.ValidateSlug(segment).Valid
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
