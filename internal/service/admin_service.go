package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/campus-market/backend/internal/auth"
	"github.com/campus-market/backend/internal/config"
	"github.com/campus-market/backend/internal/domain"
	"github.com/campus-market/backend/internal/repository"
	apperrors "github.com/campus-market/backend/pkg/util/errorutil"
)

// AdminService manages back-office accounts.
type AdminService struct {
	admins     repository.AdminRepository
	bcryptCost int
}

// NewAdminService constructs the service.
func NewAdminService(cfg config.Config, admins repository.AdminRepository) *AdminService {
	return &AdminService{admins: admins, bcryptCost: cfg.Auth.BcryptCost}
}

// CreateAdmin registers an operator. The email must be unused.
func (s *AdminService) CreateAdmin(ctx context.Context, name, email, password string, role domain.AdminRole) (*domain.Admin, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if err := requireFields(map[string]string{"name": name, "email": email, "password": password}); err != nil {
		return nil, err
	}
	if role != domain.AdminRoleAdmin && role != domain.AdminRoleModerator {
		return nil, apperrors.NewValidationError("unknown admin role", map[string]any{"role": role})
	}

	if _, err := s.admins.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	admin := &domain.Admin{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := s.admins.Create(ctx, admin); err != nil {
		if repository.IsUniqueViolation(err, repository.AdminEmailConstraint) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
		}
		return nil, apperrors.MapError(err)
	}
	return admin, nil
}
