package main

import (
	"context"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/campus-market/backend/internal/config"
	"github.com/campus-market/backend/internal/domain"
	"github.com/campus-market/backend/internal/observability"
	"github.com/campus-market/backend/internal/persistence"
	"github.com/campus-market/backend/internal/repository"
	"github.com/campus-market/backend/internal/service"
	apperrors "github.com/campus-market/backend/pkg/util/errorutil"
)

// admin-seed creates the first back-office account from ADMIN_NAME,
// ADMIN_EMAIL, ADMIN_PASSWORD and optionally ADMIN_ROLE (ADMIN or MODERATOR).
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

	name := os.Getenv("ADMIN_NAME")
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	role := domain.AdminRole(strings.ToUpper(os.Getenv("ADMIN_ROLE")))
	if role == "" {
		role = domain.AdminRoleAdmin
	}
	if name == "" || email == "" || password == "" {
		logger.Fatal("ADMIN_NAME, ADMIN_EMAIL and ADMIN_PASSWORD must be set")
	}

	ctx := context.Background()
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	admins := service.NewAdminService(*cfg, repository.NewAdminRepository(pg.PoolHandle()))
	admin, err := admins.CreateAdmin(ctx, name, email, password, role)
	switch {
	case apperrors.HasCode(err, apperrors.CodeConflict):
		logger.Info("admin already exists", zap.String("email", email))
	case err != nil:
		logger.Fatal("failed to create admin", zap.Error(err))
	default:
		logger.Info("admin created", zap.String("id", admin.ID), zap.String("role", string(admin.Role)))
	}
}
