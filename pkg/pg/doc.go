// Package pg bootstraps the PostgreSQL layer on top of pgx/v5.
//
// Connect opens a *pgxpool.Pool from Config (populated by env tags) and
// retries while the database comes up. Migrate runs goose migrations from an
// fs.FS, normally an embed.FS compiled into the binary, through the same pool.
// Healthcheck returns a readiness check, and the Is*Error helpers classify
// driver errors without leaking pgx types to callers.
//
// # Usage
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
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
