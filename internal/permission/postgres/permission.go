package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	rbacDatamodel "github.com/frahmantamala/school-management/internal/core/datamodel/rbac"
	schoolDatamodel "github.com/frahmantamala/school-management/internal/core/datamodel/school"
	userDatamodel "github.com/frahmantamala/school-management/internal/core/datamodel/user"
	"github.com/frahmantamala/school-management/internal/permission"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PermissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

var _ permission.RepositoryAPI = (*PermissionRepository)(nil)

// GetSubject loads the user's coarse role and every assignment with the names of the
// permissions its role grants.
func (r *PermissionRepository) GetSubject(ctx context.Context, userID string) (*permission.Subject, error) {
	var user userDatamodel.User
	err := r.db.WithContext(ctx).Select("id", "role").Where("id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, permission.ErrSubjectNotFound
		}
		return nil, err
	}

	assignments, err := r.ListAssignments(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &permission.Subject{
		UserID:      user.ID,
		Role:        user.Role,
		Assignments: assignments,
	}, nil
}

func (r *PermissionRepository) ListAssignments(ctx context.Context, userID string) ([]permission.Assignment, error) {
	var rows []rbacDatamodel.UserRoleAssignment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load role assignments: %w", err)
	}
	if len(rows) == 0 {
		return []permission.Assignment{}, nil
	}

	roleIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		roleIDs = append(roleIDs, row.RoleID)
	}
	roles, err := r.rolesByID(ctx, roleIDs)
	if err != nil {
		return nil, err
	}

	assignments := make([]permission.Assignment, 0, len(rows))
	for _, row := range rows {
		role, ok := roles[row.RoleID]
		if !ok {
			continue
		}
		c, err := permission.ParseContext(row.Context)
		if err != nil {
			return nil, fmt.Errorf("assignment %s: %w", row.ID, err)
		}
		assignments = append(assignments, permission.Assignment{
			ID:          row.ID,
			RoleID:      row.RoleID,
			RoleName:    role.Name,
			Permissions: role.Permissions,
			Context:     c,
			ExpiresAt:   row.ExpiresAt,
		})
	}
	return assignments, nil
}

type rolePermissionRow struct {
	RoleID          string
	RoleName        string
	RoleDescription string
	IsDefault       bool
	IsSystem        bool
	PermissionName  *string
}

func (r *PermissionRepository) rolesByID(ctx context.Context, roleIDs []string) (map[string]*permission.Role, error) {
	q := r.db.WithContext(ctx).
		Table("system_roles AS r").
		Select("r.id AS role_id, r.name AS role_name, r.description AS role_description, r.is_default, r.is_system, p.name AS permission_name").
		Joins("LEFT JOIN role_permissions rp ON rp.role_id = r.id").
		Joins("LEFT JOIN permissions p ON p.id = rp.permission_id").
		Order("r.name ASC, p.name ASC")
	if roleIDs != nil {
		q = q.Where("r.id IN ?", roleIDs)
	}

	var rows []rolePermissionRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("load role permissions: %w", err)
	}

	roles := make(map[string]*permission.Role)
	for _, row := range rows {
		role, ok := roles[row.RoleID]
		if !ok {
			role = &permission.Role{
				ID:          row.RoleID,
				Name:        row.RoleName,
				Description: row.RoleDescription,
				IsDefault:   row.IsDefault,
				IsSystem:    row.IsSystem,
				Permissions: []string{},
			}
			roles[row.RoleID] = role
		}
		if row.PermissionName != nil {
			role.Permissions = append(role.Permissions, *row.PermissionName)
		}
	}
	return roles, nil
}

func (r *PermissionRepository) ListRoles(ctx context.Context) ([]permission.Role, error) {
	byID, err := r.rolesByID(ctx, nil)
	if err != nil {
		return nil, err
	}
	roles := make([]permission.Role, 0, len(byID))
	for _, role := range byID {
		roles = append(roles, *role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

func (r *PermissionRepository) StudentInGroup(ctx context.Context, studentID, groupID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&schoolDatamodel.Student{}).
		Where("id = ? AND group_id = ?", studentID, groupID).
		Count(&count).Error
	return count > 0, err
}

func (r *PermissionRepository) ListPermissionNames(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&rbacDatamodel.Permission{}).
		Order("name ASC").
		Pluck("name", &names).Error
	return names, err
}

func (r *PermissionRepository) UserExists(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&userDatamodel.User{}).Where("id = ?", userID).Count(&count).Error
	return count > 0, err
}

func (r *PermissionRepository) FindRoleByName(ctx context.Context, name string) (*rbacDatamodel.SystemRole, error) {
	var role rbacDatamodel.SystemRole
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func (r *PermissionRepository) CreateAssignment(ctx context.Context, assignment *rbacDatamodel.UserRoleAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *PermissionRepository) DeleteAssignments(ctx context.Context, ids []string) (int64, error) {
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&rbacDatamodel.UserRoleAssignment{})
	return res.RowsAffected, res.Error
}

// SyncCatalog inserts missing permissions, roles and role grants in one transaction.
// Existing rows keep their ids; descriptions and flags are refreshed.
func (r *PermissionRepository) SyncCatalog(ctx context.Context, defs []permission.Definition, roles []permission.RoleDefinition) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		permIDs := make(map[string]string, len(defs))
		for _, def := range defs {
			var p rbacDatamodel.Permission
			err := tx.Where(rbacDatamodel.Permission{Name: def.Name}).
				Assign(map[string]interface{}{
					"description": def.Description,
					"category":    def.Category,
				}).
				FirstOrCreate(&p).Error
			if err != nil {
				return fmt.Errorf("sync permission %s: %w", def.Name, err)
			}
			permIDs[def.Name] = p.ID
		}

		for _, def := range roles {
			var role rbacDatamodel.SystemRole
			err := tx.Where(rbacDatamodel.SystemRole{Name: def.Name}).
				Assign(map[string]interface{}{
					"description": def.Description,
					"is_default":  def.IsDefault,
					"is_system":   def.IsSystem,
				}).
				FirstOrCreate(&role).Error
			if err != nil {
				return fmt.Errorf("sync role %s: %w", def.Name, err)
			}

			for _, name := range def.Permissions {
				permID, ok := permIDs[name]
				if !ok {
					return fmt.Errorf("role %s grants unknown permission %s", def.Name, name)
				}
				err := tx.Clauses(clause.OnConflict{DoNothing: true}).
					Create(&rbacDatamodel.RolePermission{RoleID: role.ID, PermissionID: permID}).Error
				if err != nil {
					return fmt.Errorf("grant %s to %s: %w", name, def.Name, err)
				}
			}
		}
		return nil
	})
}
