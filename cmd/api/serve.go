package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/deskline/ticket-tracker/internal/api/http"
	"github.com/deskline/ticket-tracker/internal/api/http/handlers"
	"github.com/deskline/ticket-tracker/internal/auth"
	"github.com/deskline/ticket-tracker/internal/events"
	"github.com/deskline/ticket-tracker/internal/observability"
	"github.com/deskline/ticket-tracker/internal/persistence"
	"github.com/deskline/ticket-tracker/internal/repository"
	"github.com/deskline/ticket-tracker/internal/service"
	"github.com/deskline/ticket-tracker/internal/worker"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			rt, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer rt.close()
			cfg, logger := rt.cfg, rt.logger

			if cfg.Postgres.RunMigrations {
				if err := persistence.RunMigrations(ctx, rt.pg.PoolHandle(), logger); err != nil {
					return err
				}
			}

			redis := persistence.NewRedis(cfg.Redis, logger)
			defer redis.Close()

			metrics := observability.NewMetrics()
			dispatcher := events.NewInMemoryDispatcher()

			pool := rt.pg.PoolHandle()
			userRepo := repository.NewUserRepository(pool)
			ticketRepo := repository.NewTicketRepository(pool)
			commentRepo := repository.NewCommentRepository(pool)

			var redisCheck handlers.Pinger
			if redis.Enabled() {
				redisCheck = redis
			}

			roleStore := rt.roleStore(redis, metrics)
			authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
				UserRepo:    userRepo,
				RoleStore:   roleStore,
				Revocations: auth.NewRedisRevocationStore(redis.Client),
				Logger:      logger,
			})
			ticketService := service.NewTicketService(service.TicketDependencies{
				TicketRepo:  ticketRepo,
				CommentRepo: commentRepo,
				Dispatcher:  dispatcher,
				Logger:      logger,
				Metrics:     metrics,
			})
			adminService := service.NewAdminService(service.AdminDependencies{
				UserRepo:   userRepo,
				RoleStore:  roleStore,
				Dispatcher: dispatcher,
				Logger:     logger,
				Metrics:    metrics,
			})
			worker.StartAuditWorker(service.NewAuditService(dispatcher, logger, repository.NewAuditRepository(pool)))

			app := fiber.New(fiber.Config{
				AppName:               cfg.App.Name,
				DisableStartupMessage: true,
				ReadTimeout:           15 * time.Second,
				WriteTimeout:          15 * time.Second,
			})
			httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
			httptransport.RegisterRoutes(app, httptransport.RouteConfig{
				Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, rt.pg, redisCheck),
				Auth:           handlers.NewAuthHandler(authService),
				Tickets:        handlers.NewTicketsHandler(ticketService),
				Admin:          handlers.NewAdminHandler(adminService),
				AuthMiddleware: auth.NewAuthMiddleware(authService.Resolver(), roleStore),
				Metrics:        metrics,
			})

			errCh := make(chan error, 1)
			go func() {
				logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
				errCh <- app.Listen(cfg.App.Addr())
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-waitForShutdown():
				logger.Info("shutting down", zap.String("signal", sig.String()))
			}
			return app.ShutdownWithTimeout(10 * time.Second)
		},
	}
}

func waitForShutdown() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return sigCh
}
