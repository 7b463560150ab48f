package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/clinic-identity-service/internal/auth"
	"github.com/spec-kit/clinic-identity-service/internal/config"
	"github.com/spec-kit/clinic-identity-service/internal/domain"
	"github.com/spec-kit/clinic-identity-service/internal/observability"
	"github.com/spec-kit/clinic-identity-service/internal/persistence"
	"github.com/spec-kit/clinic-identity-service/internal/repository"
)

// Seeds the administrator account. Idempotent: a second run is a no-op.
// The admin email is pre-verified; there is no inbox to confirm.
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

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		logger.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD are required")
	}

	ctx := context.Background()

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

	accounts := repository.NewAccountRepository(pg.PoolHandle())

	if _, err := accounts.GetByEmail(ctx, adminEmail); err == nil {
		logger.Info("admin account already exists", zap.String("email", adminEmail))
		return
	} else if !errors.Is(err, pgx.ErrNoRows) {
		logger.Fatal("failed to check for existing admin", zap.Error(err))
	}

	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	hash, err := hasher.Hash(adminPassword)
	if err != nil {
		logger.Fatal("failed to hash admin password", zap.Error(err))
	}

	admin := &domain.Account{
		Email:         adminEmail,
		PasswordHash:  hash,
		Role:          domain.RoleAdmin,
		EmailVerified: true,
		IsActive:      true,
	}
	if err := accounts.Create(ctx, admin); err != nil {
		logger.Fatal("failed to create admin account", zap.Error(err))
	}

	logger.Info("admin account created; change the password after first login",
		zap.String("email", admin.Email), zap.String("id", admin.ID))
}
