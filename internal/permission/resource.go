package permission

import (
	"context"
	"fmt"

	userDatamodel "github.com/frahmantamala/school-management/internal/core/datamodel/user"
)

// CanAccessResource checks a permission against one concrete group or student.
// The first assignment that matches wins.
func (e *Evaluator) CanAccessResource(ctx context.Context, userID, permission string, resourceType ResourceType, resourceID string) (bool, error) {
	s, err := e.subject(ctx, userID)
	if err != nil {
		e.metrics.RecordPermissionError("resource")
		return false, err
	}
	allowed, err := e.canAccess(ctx, s, permission, resourceType, resourceID)
	if err != nil {
		e.metrics.RecordPermissionError("resource")
		return false, err
	}
	e.metrics.RecordPermissionDecision("resource", allowed)
	return allowed, nil
}

func (e *Evaluator) canAccess(ctx context.Context, s *Subject, permission string, resourceType ResourceType, resourceID string) (bool, error) {
	if s == nil {
		return false, nil
	}
	if s.IsAdmin() {
		return true, nil
	}
	for _, a := range s.Assignments {
		if !a.Grants(permission) {
			continue
		}
		if a.Context.IsEmpty() {
			return true, nil
		}

		switch resourceType {
		case ResourceGroup:
			if groupID, ok := a.Context.GroupID(); ok && groupID == resourceID {
				return true, nil
			}
		case ResourceStudent:
			if s.Role == userDatamodel.RoleParent && contains(a.Context.StudentIDs(), resourceID) {
				return true, nil
			}
			groupID, ok := a.Context.GroupID()
			if !ok {
				continue
			}
			member, err := e.store.StudentInGroup(ctx, resourceID, groupID)
			if err != nil {
				return false, fmt.Errorf("check student %s in group %s: %w", resourceID, groupID, err)
			}
			if member {
				return true, nil
			}
		}
	}
	return false, nil
}

// ResourceScope folds every assignment granting permission into one Scope.
// Listing queries apply it as a predicate.
func (e *Evaluator) ResourceScope(ctx context.Context, userID, permission string) (Scope, error) {
	s, err := e.subject(ctx, userID)
	if err != nil {
		return Scope{}, err
	}
	if s == nil {
		return Scope{}, nil
	}
	if s.IsAdmin() {
		return AllScope(), nil
	}

	var scope Scope
	for _, a := range s.Assignments {
		if !a.Grants(permission) {
			continue
		}
		if a.Context.IsEmpty() {
			return AllScope(), nil
		}
		if s.Role == userDatamodel.RoleParent {
			scope = scope.Union(Scope{StudentIDs: a.Context.StudentIDs()})
		}
		if groupID, ok := a.Context.GroupID(); ok {
			scope = scope.Union(Scope{GroupIDs: []string{groupID}})
		}
	}
	return scope, nil
}
