package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/school-management/internal/auth"
	userDatamodel "github.com/frahmantamala/school-management/internal/core/datamodel/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

var _ auth.RepositoryAPI = (*Repository)(nil)

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*userDatamodel.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *Repository) GetUserByID(ctx context.Context, userID string) (*userDatamodel.User, error) {
	return r.first(ctx, "id = ?", userID)
}

func (r *Repository) first(ctx context.Context, query string, arg any) (*userDatamodel.User, error) {
	var user userDatamodel.User
	err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
