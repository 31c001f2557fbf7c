package tenant

import "errors"

var (
	// ErrTenantNotFound may be returned by a Provider for a missing tenant.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrLookupFailed wraps any other Provider error.
	ErrLookupFailed = errors.New("tenant lookup failed")

	// ErrLookupUnavailable is returned without calling the Provider while the
	// lookup circuit breaker is open.
	ErrLookupUnavailable = errors.New("tenant lookup unavailable")

	// ErrNoTenantInContext is returned when a handler requires a tenant that
	// was not resolved for the request.
	ErrNoTenantInContext = errors.New("no tenant in context")
)
