package user

import (
	"context"
	"time"

	userDatamodel "github.com/frahmantamala/school-management/internal/core/datamodel/user"
)

type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	IsActive    bool      `json:"is_active"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (u *User) HasPermission(permission string) bool {
	for _, p := range u.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return userDatamodel.Role(u.Role) == userDatamodel.RoleAdmin
}

// Repository returns nil, nil for unknown ids.
type Repository interface {
	GetByID(ctx context.Context, id string) (*userDatamodel.User, error)
}

// PermissionLister is the slice of the authorizer the user service needs.
type PermissionLister interface {
	UserPermissions(ctx context.Context, userID string) ([]string, error)
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        string(u.Role),
		IsActive:    u.IsActive,
		Permissions: []string{},
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func FromDataModelWithPermissions(u *userDatamodel.User, permissions []string) *User {
	domainUser := FromDataModel(u)
	if permissions != nil {
		domainUser.Permissions = permissions
	}
	return domainUser
}
