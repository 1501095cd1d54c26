package user

import (
	"context"
	"fmt"
	"log/slog"

	errors "github.com/frahmantamala/school-management/internal"
)

type Service struct {
	repo   Repository
	perms  PermissionLister
	logger *slog.Logger
}

func NewService(repo Repository, perms PermissionLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		perms:  perms,
		logger: logger,
	}
}

// GetByID returns the profile with its effective permissions.
func (s *Service) GetByID(ctx context.Context, userID string) (*User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load user", fmt.Errorf("get user by id: %w", err))
	}
	if u == nil {
		return nil, errors.ErrUserNotFound
	}

	perms, err := s.perms.UserPermissions(ctx, userID)
	if err != nil {
		s.logger.Error("failed to resolve user permissions", "user_id", userID, "error", err)
		return nil, errors.NewInternalError("Failed to load user permissions", err)
	}

	return FromDataModelWithPermissions(u, perms), nil
}

func (s *Service) GetPermissions(ctx context.Context, userID string) ([]string, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Permissions, nil
}
