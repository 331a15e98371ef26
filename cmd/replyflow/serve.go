package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/replyflow/handler"
	"github.com/dmitrymomot/replyflow/modules/replytool"
	"github.com/dmitrymomot/replyflow/pkg/automation"
	"github.com/dmitrymomot/replyflow/pkg/config"
	"github.com/dmitrymomot/replyflow/pkg/httpserver"
	"github.com/dmitrymomot/replyflow/pkg/logger"
	"github.com/dmitrymomot/replyflow/pkg/quota"
	"github.com/dmitrymomot/replyflow/pkg/usage"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	var httpCfg httpserver.Config
	if err := config.Load(&httpCfg); err != nil {
		return err
	}
	var scriptCfg automation.Config
	if err := config.Load(&scriptCfg); err != nil {
		return err
	}
	if scriptCfg.URL == "" {
		log.WarnContext(ctx, "APPS_SCRIPT_URL is not set; action requests will fail", logger.Component("automation"))
	}

	policy, err := loadPolicy(cfg)
	if err != nil {
		return err
	}

	be, err := openBackend(ctx, cfg, log, backendOptions{migrate: cfg.AutoMigrate})
	if err != nil {
		return err
	}
	defer be.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	usageSvc := usage.NewService(be.store, usage.WithLogger(log))
	gate := quota.NewGate(usageSvc, automation.NewFromConfig(scriptCfg),
		quota.WithPolicy(policy),
		quota.WithLogger(log),
		quota.WithMetrics(quota.NewMetrics(reg)),
	)
	errHandler := handler.NewErrorHandler(log, replytool.MapError)

	router := replytool.Router(replytool.RouterOptions{
		Script:       replytool.NewScriptService(gate, errHandler),
		Usage:        replytool.NewUsageService(usageSvc, errHandler),
		Readiness:    be.checks,
		ReadyTimeout: 3 * time.Second,
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Logger:       log,
	})

	log.InfoContext(ctx, "starting replyflow",
		logger.Component("main"),
		logger.Action("serve"),
		slog.String("store", cfg.Store),
		slog.Int("actions", len(policy)),
	)
	return httpserver.New(httpCfg, httpserver.WithLogger(log)).Run(ctx, router)
}
