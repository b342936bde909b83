package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/placementops/ticketing/internal/api/http"
	"github.com/placementops/ticketing/internal/api/http/handlers"
	"github.com/placementops/ticketing/internal/auth"
	"github.com/placementops/ticketing/internal/config"
	"github.com/placementops/ticketing/internal/events"
	"github.com/placementops/ticketing/internal/observability"
	"github.com/placementops/ticketing/internal/persistence"
	"github.com/placementops/ticketing/internal/rbac"
	"github.com/placementops/ticketing/internal/repository"
	"github.com/placementops/ticketing/internal/repository/memstore"
	"github.com/placementops/ticketing/internal/service"
	"github.com/placementops/ticketing/internal/storage"
	"github.com/placementops/ticketing/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing := observability.InitTracing(cfg.App.Name, cfg.App.Version, logger)
	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, cfg.App.Name, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	store, err := openStore(ctx, cfg, pg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, cfg.App.Name, logger)
	defer redis.Close()

	permissions := rbac.Default()
	if cfg.RBAC.PermissionsFile != "" {
		permissions, err = rbac.Load(cfg.RBAC.PermissionsFile)
		if err != nil {
			logger.Fatal("failed to load permission table", zap.Error(err))
		}
	}

	blobs, err := storage.NewFilesystemStore(cfg.Storage.Root, cfg.Storage.Bucket, cfg.Storage.PublicBaseURL)
	if err != nil {
		logger.Fatal("failed to open attachment storage", zap.Error(err))
	}

	var slaCache service.SLACache
	if redis.Enabled() {
		slaCache = service.NewRedisSLACache(redis.Client, cfg.SLA.CacheTTL())
	}

	dispatcher := events.NewInMemoryDispatcher()
	slaService := service.NewSLAService(service.SLADependencies{Store: store, Cache: slaCache, Logger: logger})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{Logger: logger})
	activityService := service.NewActivityService(service.ActivityDependencies{Store: store, Blobs: blobs, Logger: logger})
	ticketService := service.NewTicketService(service.TicketDependencies{
		Store:       store,
		SLA:         slaService,
		Assignments: assignmentService,
		Activity:    activityService,
		Blobs:       blobs,
		Permissions: permissions,
		Metrics:     metrics,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	onboardingService := service.NewOnboardingService(service.OnboardingDependencies{
		Store:       store,
		Permissions: permissions,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	notificationService := service.NewNotificationService(dispatcher, store, logger, cfg.Notification)
	workerDone := worker.StartNotificationWorker(ctx, notificationService, logger)

	if missing, err := slaService.MissingTypes(ctx); err != nil {
		logger.Warn("unable to check SLA table", zap.Error(err))
	} else if len(missing) > 0 {
		types := make([]string, 0, len(missing))
		for _, t := range missing {
			types = append(types, string(t))
		}
		logger.Warn("ticket types without SLA rows cannot be created", zap.Strings("ticket_types", types))
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokens, store.Repos().Users)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.Storage.MaxUploadBytes + 1<<20,
		ErrorHandler: httptransport.ErrorHandler,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Dependency{
			"postgres": pg,
			"redis":    redis,
		}),
		Tickets:        handlers.NewTicketsHandler(ticketService, int64(cfg.Storage.MaxUploadBytes)),
		Clients:        handlers.NewClientsHandler(onboardingService),
		SLA:            handlers.NewSLAHandler(slaService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
		FilesDir:       blobs.Dir(),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	cancel()
	<-workerDone

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	if err := shutdownTracing(flushCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}

// openStore uses Postgres when a DSN is configured and the in-memory store otherwise.
func openStore(ctx context.Context, cfg *config.Config, pg *persistence.Postgres, logger *zap.Logger) (repository.Store, error) {
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				return nil, err
			}
		}
		return repository.NewPostgresStore(pg.Pool), nil
	}

	store := memstore.New()
	var seed *memstore.Seed
	if cfg.App.SeedFile != "" {
		loaded, err := memstore.LoadSeed(cfg.App.SeedFile)
		if err != nil {
			return nil, err
		}
		seed = loaded
	}
	if err := store.Apply(ctx, seed, time.Now().UTC()); err != nil {
		return nil, err
	}
	logger.Warn("running with the in-memory store; data is lost on restart")
	return store, nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
