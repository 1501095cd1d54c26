package permission

import "sort"

// Scope is the set of resources a permission reaches for one user. Repositories
// translate it into a query predicate instead of re-deriving ownership per route.
type Scope struct {
	All        bool     `json:"all"`
	GroupIDs   []string `json:"group_ids,omitempty"`
	StudentIDs []string `json:"student_ids,omitempty"`
}

func AllScope() Scope {
	return Scope{All: true}
}

func (s Scope) IsEmpty() bool {
	return !s.All && len(s.GroupIDs) == 0 && len(s.StudentIDs) == 0
}

func (s Scope) Union(other Scope) Scope {
	if s.All || other.All {
		return AllScope()
	}
	return Scope{
		GroupIDs:   mergeIDs(s.GroupIDs, other.GroupIDs),
		StudentIDs: mergeIDs(s.StudentIDs, other.StudentIDs),
	}
}

func (s Scope) AllowsGroup(groupID string) bool {
	return s.All || contains(s.GroupIDs, groupID)
}

// AllowsStudent checks a student by id and by the group it currently belongs to.
func (s Scope) AllowsStudent(studentID string, groupID *string) bool {
	if s.All || contains(s.StudentIDs, studentID) {
		return true
	}
	return groupID != nil && contains(s.GroupIDs, *groupID)
}

func mergeIDs(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, id := range list {
			if _, ok := seen[id]; ok || id == "" {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
