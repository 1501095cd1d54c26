package student

import (
	"context"
	"log/slog"

	errors "github.com/frahmantamala/school-management/internal"
	"github.com/frahmantamala/school-management/internal/permission"
)

type Service struct {
	repo   RepositoryAPI
	scoper Scoper
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, scoper Scoper, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		scoper: scoper,
		logger: logger,
	}
}

// ListStudents returns the students userID may view. Rows outside the caller's
// scope are filtered by the query, never loaded.
func (s *Service) ListStudents(ctx context.Context, userID string, page Page) ([]Student, error) {
	page = page.Normalize()

	scope, err := s.scoper.ResourceScope(ctx, userID, permission.StudentsView)
	if err != nil {
		s.logger.Error("failed to resolve student scope", "user_id", userID, "error", err)
		return nil, errors.NewInternalError("Failed to list students", err)
	}
	if scope.IsEmpty() {
		return []Student{}, nil
	}

	rows, err := s.repo.List(ctx, scope, page)
	if err != nil {
		s.logger.Error("failed to list students", "user_id", userID, "error", err)
		return nil, errors.NewInternalError("Failed to list students", err)
	}
	return fromDataModels(rows), nil
}

// GetStudent expects access to have been checked by the resource middleware.
func (s *Service) GetStudent(ctx context.Context, id string) (*Student, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load student", err)
	}
	if row == nil {
		return nil, errors.ErrStudentNotFound
	}
	st := FromDataModel(row)
	return &st, nil
}

func (s *Service) ListGroupStudents(ctx context.Context, groupID string) (*Group, []Student, error) {
	g, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return nil, nil, errors.NewInternalError("Failed to load group", err)
	}
	if g == nil {
		return nil, nil, errors.ErrGroupNotFound
	}

	rows, err := s.repo.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, nil, errors.NewInternalError("Failed to list group students", err)
	}
	return &Group{ID: g.ID, Name: g.Name, Description: g.Description}, fromDataModels(rows), nil
}
