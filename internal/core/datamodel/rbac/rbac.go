package rbac

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Permission struct {
	ID          string    `gorm:"primaryKey;size:36"`
	Name        string    `gorm:"column:name;uniqueIndex;not null"`
	Description string    `gorm:"column:description"`
	Category    string    `gorm:"column:category;index"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (Permission) TableName() string {
	return "permissions"
}

func (p *Permission) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

type SystemRole struct {
	ID          string    `gorm:"primaryKey;size:36"`
	Name        string    `gorm:"column:name;uniqueIndex;not null"`
	Description string    `gorm:"column:description"`
	IsDefault   bool      `gorm:"column:is_default"`
	IsSystem    bool      `gorm:"column:is_system"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (SystemRole) TableName() string {
	return "system_roles"
}

func (r *SystemRole) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// RolePermission links a role to a permission; the pair is the primary key.
type RolePermission struct {
	RoleID       string    `gorm:"column:role_id;primaryKey;size:36"`
	PermissionID string    `gorm:"column:permission_id;primaryKey;size:36"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (RolePermission) TableName() string {
	return "role_permissions"
}

// UserRoleAssignment grants a role to a user, optionally scoped by Context
// (for example {"groupId": "..."} or {"studentIds": [...]}).
type UserRoleAssignment struct {
	ID         string         `gorm:"primaryKey;size:36"`
	UserID     string         `gorm:"column:user_id;size:36;not null;index"`
	RoleID     string         `gorm:"column:role_id;size:36;not null;index"`
	AssignedBy *string        `gorm:"column:assigned_by;size:36"`
	Context    datatypes.JSON `gorm:"column:context"`
	ExpiresAt  *time.Time     `gorm:"column:expires_at"`
	CreatedAt  time.Time      `gorm:"column:created_at"`
}

func (UserRoleAssignment) TableName() string {
	return "user_role_assignments"
}

func (a *UserRoleAssignment) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
