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

	httptransport "github.com/spec-kit/clinic-identity-service/internal/api/http"
	"github.com/spec-kit/clinic-identity-service/internal/api/http/handlers"
	"github.com/spec-kit/clinic-identity-service/internal/auth"
	"github.com/spec-kit/clinic-identity-service/internal/config"
	"github.com/spec-kit/clinic-identity-service/internal/events"
	"github.com/spec-kit/clinic-identity-service/internal/mailer"
	"github.com/spec-kit/clinic-identity-service/internal/observability"
	"github.com/spec-kit/clinic-identity-service/internal/persistence"
	"github.com/spec-kit/clinic-identity-service/internal/repository"
	"github.com/spec-kit/clinic-identity-service/internal/service"
	"github.com/spec-kit/clinic-identity-service/internal/worker"
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

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	accountRepo := repository.NewAccountRepository(pg.PoolHandle())
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	sessions := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	mail := mailer.NewHTTPMailer(cfg.Mail, cfg.App.FrontendURL)

	tokenService := service.NewTokenService(service.TokenDependencies{
		Accounts:   accountRepo,
		Hasher:     hasher,
		Mail:       mail,
		Dispatcher: dispatcher,
		Logger:     logger,
	}, cfg.Token.VerificationTTL(), cfg.Token.ResetTTL())

	authService := service.NewAuthService(service.AuthDependencies{
		Accounts:   accountRepo,
		Hasher:     hasher,
		Sessions:   sessions,
		Tokens:     tokenService,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	adminService := service.NewAdminService(accountRepo, tokenService, dispatcher, logger)

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Mail)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(sessions, accountRepo)
	rateLimiter := httptransport.NewRateLimiter(redis.Client, logger,
		cfg.Auth.LoginRateLimit, time.Duration(cfg.Auth.LoginRateWindowSec)*time.Second)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	accountsHandler := handlers.NewAccountsHandler(authService, tokenService)
	adminHandler := handlers.NewAdminHandler(adminService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Accounts:       accountsHandler,
		Admin:          adminHandler,
		AuthMiddleware: authMiddleware,
		RateLimiter:    rateLimiter,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
