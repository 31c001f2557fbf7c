package rbac

import "errors"

var (
	// ErrMissingSecret is returned by NewCodec without a signing secret.
	ErrMissingSecret = errors.New("rbac.missing_secret")

	// ErrNoSession is reported when the request carries no session cookie.
	ErrNoSession = errors.New("rbac.no_session")

	// ErrInvalidSession covers bad signatures, expiry and malformed claims.
	ErrInvalidSession = errors.New("rbac.invalid_session")

	// ErrUnknownRole is reported for a well-formed session with a role the
	// gateway does not know.
	ErrUnknownRole = errors.New("rbac.unknown_role")

	// ErrForbidden is reported when a manager requests another association's
	// routes.
	ErrForbidden = errors.New("rbac.forbidden")
)
