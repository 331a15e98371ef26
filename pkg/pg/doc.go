// Package pg opens a pgx connection pool with retries, applies goose
// migrations and exposes a health check for readiness probes.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, migrations.FS, log); err != nil {
//		return err
//	}
package pg
