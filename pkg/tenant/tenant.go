package tenant

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Tenant is an association as seen by the resolver. It is owned by the admin
// CRUD flows and is read-only here.
type Tenant struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Subdomain    string    `json:"subdomain"`
	Active       bool      `json:"is_active"`
	WordPressURL string    `json:"wordpress_url,omitempty"`
	LogoURL      string    `json:"logo_url,omitempty"`
	PrimaryColor string    `json:"primary_color,omitempty"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Provider loads an association by its subdomain slug.
//
// A missing association is reported either as (nil, nil) or as
// ErrTenantNotFound; both mean "confirmed absent". Any other error is a
// lookup failure.
type Provider interface {
	GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error)
}

// ProviderFunc adapts an ordinary function to the Provider interface.
type ProviderFunc func(ctx context.Context, subdomain string) (*Tenant, error)

func (f ProviderFunc) GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	return f(ctx, subdomain)
}

// Context is a successful resolution: an active tenant plus the identifier it
// was resolved from. It is created per request and never mutated.
type Context struct {
	Tenant     *Tenant
	Identifier string
}
