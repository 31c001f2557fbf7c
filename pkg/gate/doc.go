// Package gate is the HTTP entry point of tenant resolution.
//
// For every request the Gate walks a fixed state machine:
//
//  1. Skip-check: static assets, framework files and uploads pass through
//     untouched.
//  2. Classify: public pages never need a tenant; the tenant-scoped path
//     families (chat entry, tenant-info, patients and messages APIs) do.
//  3. Access control: admin paths must carry a valid session (see package
//     rbac).
//  4. Resolve: the tenant.Resolver runs and its outcome is turned into a
//     Decision according to the environment.
//
// In production an unknown or inactive tenant redirects to
// /association-not-found. In development on a loopback host the gate
// redirects to /dev-error with the details, or continues with X-Dev-*
// diagnostic headers when there is no concrete slug to report.
//
// A failing lookup is logged. Production fails open by default and the
// request continues without tenant context; WithFailOpen(false) answers 503
// instead.
package gate
