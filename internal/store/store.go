// Package store reads associations from PostgreSQL.
package store

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/satizap/gateway/pkg/pg"
	"github.com/satizap/gateway/pkg/tenant"
)

// Migrations holds the schema owned by this package, under MigrationsDir.
//
//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsDir = "migrations"

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const selectBySubdomain = `
SELECT id, name, subdomain, is_active, wordpress_url, logo_url, primary_color,
       description, created_at, updated_at
FROM associations
WHERE lower(subdomain) = lower($1)
LIMIT 1`

// AssociationStore implements tenant.Provider over the associations table.
type AssociationStore struct {
	db Querier
}

var _ tenant.Provider = (*AssociationStore)(nil)

func NewAssociationStore(db Querier) *AssociationStore {
	return &AssociationStore{db: db}
}

// GetBySubdomain returns (nil, nil) when no association has subdomain.
func (s *AssociationStore) GetBySubdomain(ctx context.Context, subdomain string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := s.db.QueryRow(ctx, selectBySubdomain, subdomain).Scan(
		&t.ID,
		&t.Name,
		&t.Subdomain,
		&t.Active,
		&t.WordPressURL,
		&t.LogoURL,
		&t.PrimaryColor,
		&t.Description,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if pg.IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select association %q: %w", subdomain, err)
	}
	return &t, nil
}
