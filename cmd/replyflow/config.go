package main

import (
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/replyflow/pkg/config"
	"github.com/dmitrymomot/replyflow/pkg/environment"
	"github.com/dmitrymomot/replyflow/pkg/logger"
	"github.com/dmitrymomot/replyflow/pkg/quota"
	"github.com/dmitrymomot/replyflow/pkg/requestid"
)

// Store backends selectable with USAGE_STORE.
const (
	storePostgres = "postgres"
	storeRedis    = "redis"
	storeMemory   = "memory"
)

type appConfig struct {
	Env         string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"replyflow"`
	Store       string `env:"USAGE_STORE" envDefault:"postgres"`
	ActionsFile string `env:"QUOTA_ACTIONS_FILE"`
	AutoMigrate bool   `env:"PG_AUTO_MIGRATE" envDefault:"true"`
}

func loadAppConfig() (appConfig, error) {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return appConfig{}, err
	}
	switch cfg.Store {
	case storePostgres, storeRedis, storeMemory:
	default:
		return appConfig{}, fmt.Errorf("unknown USAGE_STORE %q: want postgres, redis or memory", cfg.Store)
	}
	return cfg, nil
}

func newLogger(cfg appConfig) *slog.Logger {
	log := logger.New(
		logger.WithEnvironment(environment.Parse(cfg.Env), cfg.ServiceName),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	)
	logger.SetAsDefault(log)
	return log
}

func loadPolicy(cfg appConfig) (quota.Policy, error) {
	if cfg.ActionsFile == "" {
		return quota.DefaultPolicy(), nil
	}
	return quota.LoadPolicy(cfg.ActionsFile)
}
