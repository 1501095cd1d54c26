package permission

import (
	"context"
	"fmt"
	"log/slog"

	errors "github.com/frahmantamala/school-management/internal"
	rbacDatamodel "github.com/frahmantamala/school-management/internal/core/datamodel/rbac"
	"gorm.io/datatypes"
)

// Role is a system role with the names of the permissions it grants.
type Role struct {
	ID          string
	Name        string
	Description string
	IsDefault   bool
	IsSystem    bool
	Permissions []string
}

type RepositoryAPI interface {
	Store
	UserExists(ctx context.Context, userID string) (bool, error)
	// FindRoleByName returns nil, nil when the role does not exist.
	FindRoleByName(ctx context.Context, name string) (*rbacDatamodel.SystemRole, error)
	ListRoles(ctx context.Context) ([]Role, error)
	ListAssignments(ctx context.Context, userID string) ([]Assignment, error)
	CreateAssignment(ctx context.Context, assignment *rbacDatamodel.UserRoleAssignment) error
	DeleteAssignments(ctx context.Context, ids []string) (int64, error)
	SyncCatalog(ctx context.Context, permissions []Definition, roles []RoleDefinition) error
}

// Service manages roles and role assignments. Authorization decisions are made by the Evaluator.
type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// SyncRegistry makes the database catalog match the in-code registry. It only adds.
func (s *Service) SyncRegistry(ctx context.Context) error {
	if err := s.repo.SyncCatalog(ctx, Catalog(), DefaultRoles()); err != nil {
		s.logger.ErrorContext(ctx, "failed to sync permission registry", "error", err)
		return fmt.Errorf("sync permission registry: %w", err)
	}
	s.logger.InfoContext(ctx, "permission registry synced",
		"permissions", len(catalog),
		"roles", len(defaultRoles))
	return nil
}

func (s *Service) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list roles", "error", err)
		return nil, errors.NewInternalError("failed to list roles", err)
	}

	responses := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		perms := r.Permissions
		if perms == nil {
			perms = []string{}
		}
		responses = append(responses, RoleResponse{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			IsDefault:   r.IsDefault,
			IsSystem:    r.IsSystem,
			Permissions: perms,
		})
	}
	return responses, nil
}

func (s *Service) ListUserAssignments(ctx context.Context, userID string) ([]AssignmentResponse, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	assignments, err := s.repo.ListAssignments(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list assignments", "user_id", userID, "error", err)
		return nil, errors.NewInternalError("failed to list role assignments", err)
	}

	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		responses = append(responses, toAssignmentResponse(userID, a))
	}
	return responses, nil
}

// AssignRoleToUser grants a role, optionally scoped by a context. The same role may be
// held several times with different contexts, but not twice with an equal one.
func (s *Service) AssignRoleToUser(ctx context.Context, req AssignRoleRequest, assignedBy string) (*AssignmentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireUser(ctx, req.UserID); err != nil {
		return nil, err
	}

	role, err := s.repo.FindRoleByName(ctx, req.Role)
	if err != nil {
		return nil, errors.NewInternalError("failed to load role", err)
	}
	if role == nil {
		return nil, errors.ErrRoleNotFound
	}

	existing, err := s.repo.ListAssignments(ctx, req.UserID)
	if err != nil {
		return nil, errors.NewInternalError("failed to list role assignments", err)
	}
	for _, a := range existing {
		if a.RoleID == role.ID && a.Context.Equal(req.Context) {
			return nil, errors.ErrDuplicateAssignment
		}
	}

	raw, err := req.Context.Marshal()
	if err != nil {
		return nil, errors.NewValidationError("invalid role context", errors.ErrCodeInvalidContext).WithCause(err)
	}

	row := &rbacDatamodel.UserRoleAssignment{
		UserID:    req.UserID,
		RoleID:    role.ID,
		Context:   datatypes.JSON(raw),
		ExpiresAt: req.ExpiresAt,
	}
	if assignedBy != "" {
		row.AssignedBy = &assignedBy
	}
	if err := s.repo.CreateAssignment(ctx, row); err != nil {
		s.logger.ErrorContext(ctx, "failed to create assignment", "user_id", req.UserID, "role", req.Role, "error", err)
		return nil, errors.NewInternalError("failed to assign role", err)
	}

	s.logger.InfoContext(ctx, "role assigned",
		"assignment_id", row.ID,
		"user_id", req.UserID,
		"role", role.Name,
		"assigned_by", assignedBy)

	assignment := Assignment{
		ID:        row.ID,
		RoleID:    role.ID,
		RoleName:  role.Name,
		Context:   req.Context,
		ExpiresAt: req.ExpiresAt,
	}
	if reloaded, err := s.repo.ListAssignments(ctx, req.UserID); err == nil {
		for _, a := range reloaded {
			if a.ID == row.ID {
				assignment = a
				break
			}
		}
	}
	resp := toAssignmentResponse(req.UserID, assignment)
	return &resp, nil
}

// RemoveRoleFromUser deletes matching assignments and reports how many were removed.
func (s *Service) RemoveRoleFromUser(ctx context.Context, req RemoveRoleRequest) (int, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	assignments, err := s.repo.ListAssignments(ctx, req.UserID)
	if err != nil {
		return 0, errors.NewInternalError("failed to list role assignments", err)
	}

	var ids []string
	for _, a := range assignments {
		if a.RoleName != req.Role {
			continue
		}
		if req.Context != nil && !a.Context.Equal(req.Context) {
			continue
		}
		ids = append(ids, a.ID)
	}
	if len(ids) == 0 {
		return 0, errors.ErrAssignmentNotFound
	}

	removed, err := s.repo.DeleteAssignments(ctx, ids)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to delete assignments", "user_id", req.UserID, "role", req.Role, "error", err)
		return 0, errors.NewInternalError("failed to remove role", err)
	}

	s.logger.InfoContext(ctx, "role removed", "user_id", req.UserID, "role", req.Role, "removed", removed)
	return int(removed), nil
}

func (s *Service) requireUser(ctx context.Context, userID string) error {
	ok, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return errors.NewInternalError("failed to load user", err)
	}
	if !ok {
		return errors.ErrUserNotFound
	}
	return nil
}
