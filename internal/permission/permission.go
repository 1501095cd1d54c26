package permission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	userDatamodel "github.com/frahmantamala/school-management/internal/core/datamodel/user"
)

// ResourceType names a concrete resource kind that assignments can be scoped to.
type ResourceType string

const (
	ResourceGroup   ResourceType = "group"
	ResourceStudent ResourceType = "student"
)

// Well-known context keys.
const (
	ContextGroupID    = "groupId"
	ContextStudentIDs = "studentIds"
)

var (
	ErrSubjectNotFound = errors.New("permission: user not found")
	ErrRoleNotFound    = errors.New("permission: role not found")
)

// Context scopes a role assignment to a subset of resources.
type Context map[string]any

// ParseContext decodes a stored JSON context. Empty input and JSON null yield an empty context.
func ParseContext(raw []byte) (Context, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Context{}, nil
	}
	var c Context
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode role context: %w", err)
	}
	if c == nil {
		c = Context{}
	}
	return c, nil
}

func (c Context) IsEmpty() bool {
	return len(c) == 0
}

// Covers reports whether every key in want is present in c with an equal value.
// Extra keys in c are ignored.
func (c Context) Covers(want Context) bool {
	for k, wv := range want {
		sv, ok := c[k]
		if !ok || !jsonEqual(sv, wv) {
			return false
		}
	}
	return true
}

// Equal reports whether both contexts hold exactly the same keys and values.
func (c Context) Equal(other Context) bool {
	return len(c) == len(other) && c.Covers(other)
}

func (c Context) GroupID() (string, bool) {
	v, ok := c[ContextGroupID]
	if !ok {
		return "", false
	}
	return scalarString(v)
}

func (c Context) StudentIDs() []string {
	v, ok := c[ContextStudentIDs]
	if !ok {
		return nil
	}
	var ids []string
	switch list := v.(type) {
	case []any:
		for _, item := range list {
			if s, ok := scalarString(item); ok {
				ids = append(ids, s)
			}
		}
	case []string:
		ids = append(ids, list...)
	}
	return ids
}

func (c Context) Marshal() ([]byte, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c)
}

// jsonEqual compares two values as they would appear in a JSON document,
// so 1 and 1.0 or a []string and an equivalent []any compare equal.
func jsonEqual(a, b any) bool {
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, t != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case json.Number:
		return t.String(), true
	}
	return "", false
}

// Assignment is a role held by a user together with its scope.
type Assignment struct {
	ID          string
	RoleID      string
	RoleName    string
	Permissions []string
	Context     Context
	ExpiresAt   *time.Time
}

func (a Assignment) Grants(permission string) bool {
	for _, p := range a.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

func (a Assignment) ExpiredAt(now time.Time) bool {
	return a.ExpiresAt != nil && !a.ExpiresAt.After(now)
}

// Subject is everything the evaluator needs to know about a user.
type Subject struct {
	UserID      string
	Role        userDatamodel.Role
	Assignments []Assignment
}

func (s *Subject) IsAdmin() bool {
	return s != nil && s.Role == userDatamodel.RoleAdmin
}

// Store loads authorization data.
type Store interface {
	// GetSubject returns ErrSubjectNotFound when the user does not exist.
	GetSubject(ctx context.Context, userID string) (*Subject, error)
	StudentInGroup(ctx context.Context, studentID, groupID string) (bool, error)
	ListPermissionNames(ctx context.Context) ([]string, error)
}

// Authorizer is the single authorization capability consumed by handlers and middleware.
type Authorizer interface {
	HasPermission(ctx context.Context, userID, permission string, scope Context) (bool, error)
	HasAnyPermission(ctx context.Context, userID string, permissions []string, scope Context) (bool, error)
	HasAllPermissions(ctx context.Context, userID string, permissions []string, scope Context) (bool, error)
	UserPermissions(ctx context.Context, userID string) ([]string, error)
	CanAccessResource(ctx context.Context, userID, permission string, resourceType ResourceType, resourceID string) (bool, error)
	ResourceScope(ctx context.Context, userID, permission string) (Scope, error)
}
