package rbac

import "github.com/golang-jwt/jwt/v5"

// Role names an admin-area role.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }

// Session is the decoded payload of a session cookie.
type Session struct {
	Role          Role
	AssociationID string
	Email         string
}

// Claims is the JWT body of a session token.
type Claims struct {
	Role          string `json:"role"`
	AssociationID string `json:"associationId,omitempty"`
	Email         string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
