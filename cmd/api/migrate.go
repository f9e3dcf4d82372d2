package main

import (
	"github.com/spf13/cobra"

	"github.com/deskline/ticket-tracker/internal/persistence"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			if err := persistence.RunMigrations(cmd.Context(), rt.pg.PoolHandle(), rt.logger); err != nil {
				return err
			}
			rt.logger.Info("migrations complete")
			return nil
		},
	}
}
