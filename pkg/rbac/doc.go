// Package rbac guards the admin area of the gateway.
//
// An admin session is an HS256 JWT stored in the "session" cookie. Its claims
// carry the user's role, the association they manage and their email. Two
// roles exist:
//
//   - admin: every path under /admin and /api/admin
//   - manager: only the shared dashboard plus the routes of their own
//     association; any other admin path redirects to the dashboard
//
// A missing, expired or otherwise unusable session redirects to the login page
// with the original path preserved in the redirect query parameter. The user
// never learns which of those it was.
//
//	codec, err := rbac.NewCodec(cfg.SessionSecret, rbac.WithTokenTTL(12*time.Hour))
//	policy := rbac.NewPolicy(codec)
//
//	if d := policy.Check(r); !d.Allowed {
//		http.Redirect(w, r, d.Location, http.StatusTemporaryRedirect)
//		return
//	}
package rbac
