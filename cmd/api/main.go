package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/fabrimaq/maintenance-service/internal/api/http"
	"github.com/fabrimaq/maintenance-service/internal/api/http/handlers"
	"github.com/fabrimaq/maintenance-service/internal/auth"
	"github.com/fabrimaq/maintenance-service/internal/config"
	"github.com/fabrimaq/maintenance-service/internal/events"
	"github.com/fabrimaq/maintenance-service/internal/observability"
	"github.com/fabrimaq/maintenance-service/internal/persistence"
	"github.com/fabrimaq/maintenance-service/internal/repository"
	"github.com/fabrimaq/maintenance-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	machineRepo := repository.NewMachineRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	observationRepo := repository.NewObservationRepository(pool)
	scheduleRepo := repository.NewScheduleRepository(pool)
	lifecycleStore := repository.NewLifecycleStore(pool)

	dispatcher := events.NewInMemoryDispatcher()
	notifier := events.NewRedisNotifier(redis.Client, cfg.Redis.EventChannel, logger)
	notifier.Register(dispatcher)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:      ticketRepo,
		ObservationRepo: observationRepo,
		UserRepo:        userRepo,
		MachineRepo:     machineRepo,
		Dispatcher:      dispatcher,
	})
	lifecycleService := service.NewLifecycleService(service.LifecycleDependencies{
		Store:      lifecycleStore,
		UserRepo:   userRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	scheduleService := service.NewScheduleService(service.ScheduleDependencies{
		ScheduleRepo: scheduleRepo,
		Store:        lifecycleStore,
		UserRepo:     userRepo,
		MachineRepo:  machineRepo,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	authMiddleware := auth.NewMiddleware(tokens, userRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(tokens, userRepo),
		Tickets:        handlers.NewTicketsHandler(ticketService, lifecycleService),
		Schedules:      handlers.NewSchedulesHandler(scheduleService),
		AuthMiddleware: authMiddleware,
	})

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		metricsServer = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics listen", zap.Error(err))
			}
		}()
	}

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if metricsServer != nil {
		_ = metricsServer.Shutdown(context.Background())
	}
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
