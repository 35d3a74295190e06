package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/subsync/pkg/config"
	"github.com/dmitrymomot/subsync/pkg/httpserver"
	"github.com/dmitrymomot/subsync/pkg/jwt"
	"github.com/dmitrymomot/subsync/pkg/logger"
	"github.com/dmitrymomot/subsync/pkg/pg"
	"github.com/dmitrymomot/subsync/pkg/redis"
	"github.com/dmitrymomot/subsync/svc/access"
	"github.com/dmitrymomot/subsync/svc/api"
	"github.com/dmitrymomot/subsync/svc/billing"
)

type serveConfig struct {
	HTTP    httpserver.Config
	PG      pg.Config
	Redis   redis.Config
	Billing billing.Config
	Access  access.Config
	API     api.Config
}

var errMissingJWTSecret = errors.New("SUPABASE_JWT_SECRET is required")

func newServeCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log, err := newLogger(cmd)
			if err != nil {
				return err
			}
			var cfg serveConfig
			if err := config.Load(&cfg); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, migrate, log)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply pending migrations before serving")
	return cmd
}

func serve(ctx context.Context, cfg serveConfig, migrate bool, log *slog.Logger) error {
	if cfg.Access.JWTSecret == "" {
		return errMissingJWTSecret
	}

	processor, err := billing.NewStripeProcessor(cfg.Billing, billing.WithStripeLogger(log))
	if err != nil {
		return err
	}
	tokens, err := jwt.NewFromString(cfg.Access.JWTSecret,
		jwt.WithAudience(cfg.Access.JWTAudience),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		return err
	}
	if cfg.Billing.StripeWebhookSecret == "" {
		log.WarnContext(ctx, "STRIPE_WEBHOOK_SECRET is empty, every webhook will be rejected")
	}

	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return err
	}
	defer pool.Close()

	if migrate {
		if err := pg.Migrate(ctx, pool, cfg.PG, billing.Migrations(), log); err != nil {
			return err
		}
	}

	db := stdlib.OpenDBFromPool(pool)
	defer func() { _ = db.Close() }()

	checks := []httpserver.Check{pg.Healthcheck(pool)}

	var events billing.EventLog = billing.NewMemoryEventLog(cfg.Billing.EventLogSize, cfg.Billing.EventLogTTL)
	if cfg.Redis.Enabled() {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		events = billing.NewRedisEventLog(client, cfg.Billing.EventLogTTL)
		checks = append(checks, redis.Healthcheck(client))
	} else {
		log.InfoContext(ctx, "REDIS_URL not set, processed events are tracked in memory")
	}

	svc := billing.NewService(cfg.Billing, billing.NewPostgresStore(db), processor, events, log)
	handler := api.New(cfg.API, svc, tokens,
		api.WithLogger(log),
		api.WithReadinessChecks(checks...),
	).Handle()

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
	log.InfoContext(ctx, "starting server", slog.String("addr", cfg.HTTP.Addr), logger.Component("serve"))
	if err := srv.Run(ctx, handler); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
