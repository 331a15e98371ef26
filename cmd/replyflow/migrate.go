package main

import (
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/replyflow/db/migrations"
	"github.com/dmitrymomot/replyflow/pkg/config"
	"github.com/dmitrymomot/replyflow/pkg/pg"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending PostgreSQL migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadAppConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			var pcfg pg.Config
			if err := config.Load(&pcfg); err != nil {
				return err
			}
			pool, err := pg.Connect(cmd.Context(), pcfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			return pg.Migrate(cmd.Context(), pool, pcfg, migrations.FS, log)
		},
	}
}
