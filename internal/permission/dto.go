package permission

import (
	"time"

	errors "github.com/frahmantamala/school-management/internal"
	"github.com/frahmantamala/school-management/internal/core/common/validation"
)

type AssignRoleRequest struct {
	UserID    string     `json:"user_id"`
	Role      string     `json:"role"`
	Context   Context    `json:"context,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (r AssignRoleRequest) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("user_id", r.UserID).Required()
	v.Field("role", r.Role).Required().MaxLength(64)
	v.Field("expires_at", r.ExpiresAt).Future()
	v.Field("context", r.Context).Custom(validateContext)
	return v.Validate()
}

// RemoveRoleRequest removes every assignment of Role, or only the one whose
// context equals Context when it is given.
type RemoveRoleRequest struct {
	UserID  string  `json:"user_id"`
	Role    string  `json:"role"`
	Context Context `json:"context,omitempty"`
}

func (r RemoveRoleRequest) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("user_id", r.UserID).Required()
	v.Field("role", r.Role).Required()
	v.Field("context", r.Context).Custom(validateContext)
	return v.Validate()
}

func validateContext(value interface{}) *errors.AppError {
	c, _ := value.(Context)
	if raw, ok := c[ContextGroupID]; ok {
		if _, ok := scalarString(raw); !ok {
			return errors.NewValidationFieldError("context."+ContextGroupID, "groupId must be a non-empty string", errors.ErrCodeInvalidContext)
		}
	}
	if raw, ok := c[ContextStudentIDs]; ok {
		list, isList := raw.([]any)
		if !isList || len(c.StudentIDs()) != len(list) {
			return errors.NewValidationFieldError("context."+ContextStudentIDs, "studentIds must be a list of ids", errors.ErrCodeInvalidContext)
		}
	}
	return nil
}

type RoleResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	IsDefault   bool     `json:"is_default"`
	IsSystem    bool     `json:"is_system"`
	Permissions []string `json:"permissions"`
}

type RolesResponse struct {
	Roles []RoleResponse `json:"roles"`
}

type AssignmentResponse struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Role        string     `json:"role"`
	Permissions []string   `json:"permissions"`
	Context     Context    `json:"context"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type AssignmentsResponse struct {
	Assignments []AssignmentResponse `json:"assignments"`
}

type RemoveRoleResponse struct {
	Removed int `json:"removed"`
}

type UserPermissionsResponse struct {
	UserID      string   `json:"user_id"`
	Permissions []string `json:"permissions"`
}

func toAssignmentResponse(userID string, a Assignment) AssignmentResponse {
	ctx := a.Context
	if ctx == nil {
		ctx = Context{}
	}
	perms := a.Permissions
	if perms == nil {
		perms = []string{}
	}
	return AssignmentResponse{
		ID:          a.ID,
		UserID:      userID,
		Role:        a.RoleName,
		Permissions: perms,
		Context:     ctx,
		ExpiresAt:   a.ExpiresAt,
	}
}
