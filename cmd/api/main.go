package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deskline/ticket-tracker/internal/config"
	"github.com/deskline/ticket-tracker/internal/observability"
	"github.com/deskline/ticket-tracker/internal/persistence"
	"github.com/deskline/ticket-tracker/internal/repository"
	"github.com/deskline/ticket-tracker/internal/service"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "ticket-tracker",
		Short:        "Role-gated support ticket tracker",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newGrantAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runtime holds the pieces every command needs.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	pg     *persistence.Postgres
}

func bootstrap(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &runtime{cfg: cfg, logger: logger, pg: pg}, nil
}

// roleStore builds the role accessor with the Redis cache when one is
// configured, so every process writing roles keeps the shared cache current.
func (r *runtime) roleStore(redis *persistence.Redis, metrics *observability.Metrics) *service.RoleStore {
	var cache service.RoleCache
	if redis.Enabled() {
		cache = persistence.NewRoleCache(redis)
	}
	return service.NewRoleStore(service.RoleStoreDependencies{
		RoleRepo: repository.NewRoleRepository(r.pg.PoolHandle()),
		Cache:    cache,
		CacheTTL: r.cfg.Redis.RoleCacheTTL(),
		Logger:   r.logger,
		Metrics:  metrics,
	})
}

func (r *runtime) close() {
	r.pg.Close()
	_ = r.logger.Sync()
}
