// Package pg connects the gateway to PostgreSQL through pgx/v5 and applies
// schema migrations with goose.
//
//	var cfg pg.Config // parsed by internal/config
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, store.Migrations, "migrations", cfg, log); err != nil {
//		return err
//	}
//
// Errors are joined with the package sentinels, so errors.Is works against
// both the sentinel and the driver error.
package pg
