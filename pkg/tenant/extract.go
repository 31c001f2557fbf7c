package tenant

import (
	"net"
	"strings"
)

// Method records how an identifier was derived from a request.
type Method string

const (
	MethodSubdomain    Method = "subdomain"
	MethodPathBased    Method = "path-based"
	MethodCustomDomain Method = "custom-domain"
	MethodFallback     Method = "fallback"
)

// Extraction is the per-request result of Extract. An invalid candidate is
// still reported in Identifier so callers can tell "no tenant in the URL"
// from "malformed tenant in the URL".
type Extraction struct {
	Identifier    string
	Method        Method
	Valid         bool
	InvalidReason string
}

// ExtractEnv carries the environment bits the extractor depends on.
// Development enables path-based routing on loopback hosts.
type ExtractEnv struct {
	Development bool
}

// RoutingMode is the routing strategy selected from the host shape.
type RoutingMode int

const (
	ModeNone RoutingMode = iota
	ModePathBased
	ModeSubdomain
	ModeCustomDomain
)

func (m RoutingMode) String() string {
	switch m {
	case ModePathBased:
		return "path-based"
	case ModeSubdomain:
		return "subdomain"
	case ModeCustomDomain:
		return "custom-domain"
	default:
		return "none"
	}
}

type strategy func(hostname, path string, env ExtractEnv) Extraction

var strategies = map[RoutingMode]strategy{
	ModeNone:         extractNone,
	ModePathBased:    extractFromPath,
	ModeSubdomain:    extractFromSubdomain,
	ModeCustomDomain: extractFromCustomDomain,
}

// Extract derives a candidate tenant identifier from a Host header and URL
// path. It has no side effects. Identifiers are lower-cased here and nowhere
// else, so "TenantA" and "tenanta" always resolve identically.
func Extract(host, path string, env ExtractEnv) Extraction {
	hostname := Hostname(host)
	return strategies[SelectMode(hostname)](hostname, path, env)
}

// Hostname strips the port from a Host header value and lower-cases it.
func Hostname(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	} else {
		host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	}
	return strings.TrimSuffix(strings.ToLower(host), ".")
}

// IsLoopback reports whether hostname addresses the local machine.
func IsLoopback(hostname string) bool {
	return hostname == "localhost" || strings.HasPrefix(hostname, "127.0.0.1") || hostname == "::1"
}

// SelectMode picks the routing strategy for an already stripped hostname.
func SelectMode(hostname string) RoutingMode {
	switch {
	// A loopback literal is also an IP, so it must be checked first.
	case IsLoopback(hostname):
		return ModePathBased
	case hostname == "" || net.ParseIP(hostname) != nil:
		return ModeNone
	}

	switch parts := strings.Split(hostname, "."); {
	case len(parts) >= 3:
		return ModeSubdomain
	case len(parts) == 2:
		return ModeCustomDomain
	default:
		return ModeNone
	}
}

func fallback(reason string) Extraction {
	return Extraction{Method: MethodFallback, InvalidReason: reason}
}

func candidate(identifier string, method Method) Extraction {
	identifier = strings.ToLower(identifier)
	v := ValidateSlug(identifier)
	return Extraction{
		Identifier:    identifier,
		Method:        method,
		Valid:         v.Valid,
		InvalidReason: v.Reason,
	}
}

func extractNone(_, _ string, _ ExtractEnv) Extraction {
	return fallback("no tenant routing signal in host")
}

func extractFromPath(_, path string, env ExtractEnv) Extraction {
	if !env.Development {
		return fallback("path-based routing disabled")
	}
	if path == "" {
		return fallback("no path")
	}
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			return candidate(segment, MethodPathBased)
		}
	}
	return fallback("root path")
}

func extractFromSubdomain(hostname, _ string, _ ExtractEnv) Extraction {
	label, _, _ := strings.Cut(hostname, ".")
	return candidate(label, MethodSubdomain)
}

func extractFromCustomDomain(hostname, _ string, _ ExtractEnv) Extraction {
	label, _, _ := strings.Cut(hostname, ".")
	return candidate(label, MethodCustomDomain)
}
