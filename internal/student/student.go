package student

import (
	"context"
	"time"

	schoolDatamodel "github.com/frahmantamala/school-management/internal/core/datamodel/school"
	"github.com/frahmantamala/school-management/internal/permission"
)

type Student struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	GroupID   *string   `json:"group_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Group struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Page bounds list queries. Zero values fall back to the defaults.
type Page struct {
	Limit  int
	Offset int
}

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

func (p Page) Normalize() Page {
	if p.Limit <= 0 || p.Limit > MaxLimit {
		p.Limit = DefaultLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// RepositoryAPI returns nil, nil for unknown ids.
type RepositoryAPI interface {
	List(ctx context.Context, scope permission.Scope, page Page) ([]schoolDatamodel.Student, error)
	GetByID(ctx context.Context, id string) (*schoolDatamodel.Student, error)
	GetGroup(ctx context.Context, id string) (*schoolDatamodel.Group, error)
	ListByGroup(ctx context.Context, groupID string) ([]schoolDatamodel.Student, error)
}

// Scoper resolves which students and groups a permission reaches for a user.
type Scoper interface {
	ResourceScope(ctx context.Context, userID, permission string) (permission.Scope, error)
}

func FromDataModel(s *schoolDatamodel.Student) Student {
	return Student{
		ID:        s.ID,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		GroupID:   s.GroupID,
		CreatedAt: s.CreatedAt,
	}
}

func fromDataModels(rows []schoolDatamodel.Student) []Student {
	out := make([]Student, 0, len(rows))
	for i := range rows {
		out = append(out, FromDataModel(&rows[i]))
	}
	return out
}
