package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deskline/ticket-tracker/internal/events"
	"github.com/deskline/ticket-tracker/internal/persistence"
	"github.com/deskline/ticket-tracker/internal/repository"
	"github.com/deskline/ticket-tracker/internal/service"
)

// newGrantAdminCmd promotes an existing account to admin. It is the only way
// to create the first admin, since role management itself requires one.
func newGrantAdminCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "grant-admin",
		Short: "Grant the admin role to a registered user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return errors.New("--email is required")
			}
			rt, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.close()

			pool := rt.pg.PoolHandle()
			redis := persistence.NewRedis(rt.cfg.Redis, rt.logger)
			defer redis.Close()

			dispatcher := events.NewInMemoryDispatcher()
			service.NewAuditService(dispatcher, rt.logger, repository.NewAuditRepository(pool)).RegisterHandlers()

			admin := service.NewAdminService(service.AdminDependencies{
				UserRepo:   repository.NewUserRepository(pool),
				RoleStore:  rt.roleStore(redis, nil),
				Dispatcher: dispatcher,
				Logger:     rt.logger,
			})

			user, err := admin.BootstrapAdmin(cmd.Context(), email)
			if err != nil {
				return err
			}
			rt.logger.Info("admin granted", zap.String("user_id", user.ID), zap.String("email", user.Email))
			fmt.Fprintf(cmd.OutOrStdout(), "granted admin to %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the account to promote")
	return cmd
}
