// Package tenant resolves which association (tenant) an inbound request
// belongs to.
//
// Resolution is a fixed pipeline:
//
//  1. Extract derives a candidate identifier from the Host header and URL
//     path. The routing mode is picked once from the host shape: path-based
//     on loopback hosts in development, subdomain for tenant.domain.tld,
//     custom-domain for an apex like tenant.com.
//  2. ValidateSlug checks the candidate against length, format, reserved
//     words and static file extensions.
//  3. A Cache short-circuits repeat lookups outside production. A cached nil
//     is a confirmed absence and is honoured until its TTL expires.
//  4. The Provider performs the persistence lookup. Inactive tenants are
//     treated exactly like missing ones.
//
// Expected outcomes (no identifier, invalid identifier, unknown or inactive
// tenant) are reported as data in Result. Only a failing Provider produces an
// error, wrapped with ErrLookupFailed, so callers can tell "does not exist"
// apart from "could not determine".
//
//	resolver := tenant.NewResolver(store, env,
//		tenant.WithCache(tenant.NewMemoryCache()),
//		tenant.WithLookupTimeout(3*time.Second),
//	)
//	res, err := resolver.Resolve(ctx, tenant.Request{Host: r.Host, Path: r.URL.Path},
//		tenant.Options{EnableFallback: true, CacheEnabled: true})
package tenant
