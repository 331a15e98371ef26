package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/replyflow/db/migrations"
	"github.com/dmitrymomot/replyflow/pkg/config"
	"github.com/dmitrymomot/replyflow/pkg/httpserver"
	"github.com/dmitrymomot/replyflow/pkg/logger"
	"github.com/dmitrymomot/replyflow/pkg/pg"
	"github.com/dmitrymomot/replyflow/pkg/redis"
	"github.com/dmitrymomot/replyflow/pkg/usage"
	usagepg "github.com/dmitrymomot/replyflow/pkg/usage/postgres"
	usageredis "github.com/dmitrymomot/replyflow/pkg/usage/redis"
)

var errPlanNeedsPersistentStore = errors.New("plan changes need USAGE_STORE=postgres or redis")

// backend is the opened usage store plus what the commands need around it.
type backend struct {
	store   usage.Store
	setPlan func(ctx context.Context, p usage.Plan) error
	checks  map[string]httpserver.Check
	close   func()
}

type backendOptions struct {
	migrate bool
}

func openBackend(ctx context.Context, cfg appConfig, log *slog.Logger, opts backendOptions) (*backend, error) {
	switch cfg.Store {
	case storeMemory:
		log.WarnContext(ctx, "using in-memory usage store; counters are lost on restart", logger.Component("store"))
		store := usage.NewMemoryStore()
		return &backend{
			store:   store,
			setPlan: func(context.Context, usage.Plan) error { return errPlanNeedsPersistentStore },
			checks:  map[string]httpserver.Check{},
			close:   func() {},
		}, nil

	case storeRedis:
		var rcfg redis.Config
		if err := config.Load(&rcfg); err != nil {
			return nil, err
		}
		client, err := redis.Connect(ctx, rcfg)
		if err != nil {
			return nil, err
		}
		store := usageredis.New(client, usageredis.WithKeyPrefix(rcfg.KeyPrefix))
		return &backend{
			store:   store,
			setPlan: store.SetPlan,
			checks:  map[string]httpserver.Check{"redis": redis.Healthcheck(client)},
			close:   func() { _ = client.Close() },
		}, nil

	default:
		var pcfg pg.Config
		if err := config.Load(&pcfg); err != nil {
			return nil, err
		}
		pool, err := pg.Connect(ctx, pcfg)
		if err != nil {
			return nil, err
		}
		if opts.migrate {
			if err := pg.Migrate(ctx, pool, pcfg, migrations.FS, log); err != nil {
				pool.Close()
				return nil, err
			}
		}
		store := usagepg.New(pool)
		return &backend{
			store:   store,
			setPlan: store.SetPlan,
			checks:  map[string]httpserver.Check{"postgres": pg.Healthcheck(pool)},
			close:   pool.Close,
		}, nil
	}
}
