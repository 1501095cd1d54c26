package postgres

import (
	"context"
	"errors"

	schoolDatamodel "github.com/frahmantamala/school-management/internal/core/datamodel/school"
	"github.com/frahmantamala/school-management/internal/permission"
	"github.com/frahmantamala/school-management/internal/student"
	"gorm.io/gorm"
)

type StudentRepository struct {
	db *gorm.DB
}

func NewStudentRepository(db *gorm.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

var _ student.RepositoryAPI = (*StudentRepository)(nil)

// List applies scope as a predicate. An empty scope matches nothing.
func (r *StudentRepository) List(ctx context.Context, scope permission.Scope, page student.Page) ([]schoolDatamodel.Student, error) {
	students := []schoolDatamodel.Student{}
	if scope.IsEmpty() {
		return students, nil
	}

	q := r.db.WithContext(ctx).Model(&schoolDatamodel.Student{})
	if !scope.All {
		switch {
		case len(scope.StudentIDs) > 0 && len(scope.GroupIDs) > 0:
			q = q.Where("id IN ? OR group_id IN ?", scope.StudentIDs, scope.GroupIDs)
		case len(scope.StudentIDs) > 0:
			q = q.Where("id IN ?", scope.StudentIDs)
		default:
			q = q.Where("group_id IN ?", scope.GroupIDs)
		}
	}

	err := q.Order("last_name ASC, first_name ASC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&students).Error
	return students, err
}

func (r *StudentRepository) GetByID(ctx context.Context, id string) (*schoolDatamodel.Student, error) {
	var s schoolDatamodel.Student
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *StudentRepository) GetGroup(ctx context.Context, id string) (*schoolDatamodel.Group, error) {
	var g schoolDatamodel.Group
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

func (r *StudentRepository) ListByGroup(ctx context.Context, groupID string) ([]schoolDatamodel.Student, error) {
	students := []schoolDatamodel.Student{}
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("last_name ASC, first_name ASC").
		Find(&students).Error
	return students, err
}
