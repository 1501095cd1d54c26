package permission

import (
	"sort"
	"strings"
)

const (
	StudentsView   = "students.view"
	StudentsCreate = "students.create"
	StudentsEdit   = "students.edit"
	StudentsDelete = "students.delete"

	GroupsView   = "groups.view"
	GroupsManage = "groups.manage"

	TasksView   = "tasks.view"
	TasksCreate = "tasks.create"
	TasksEdit   = "tasks.edit"

	AssessmentsView   = "assessments.view"
	AssessmentsCreate = "assessments.create"
	AssessmentsGrade  = "assessments.grade"

	AttendanceView   = "attendance.view"
	AttendanceRecord = "attendance.record"

	UsersView   = "users.view"
	UsersManage = "users.manage"
	RolesManage = "roles.manage"

	TranslationsManage  = "translations.manage"
	TranslationsPublish = "translations.publish"

	ReportsView = "reports.view"
)

// Definition is one catalog entry.
type Definition struct {
	Name        string
	Description string
	Category    string
}

var catalog = []Definition{
	{StudentsView, "View student profiles", "students"},
	{StudentsCreate, "Enroll new students", "students"},
	{StudentsEdit, "Edit student profiles", "students"},
	{StudentsDelete, "Remove students", "students"},
	{GroupsView, "View groups and their members", "groups"},
	{GroupsManage, "Create and edit groups", "groups"},
	{TasksView, "View tasks", "tasks"},
	{TasksCreate, "Create tasks", "tasks"},
	{TasksEdit, "Edit tasks", "tasks"},
	{AssessmentsView, "View assessments", "assessments"},
	{AssessmentsCreate, "Create assessments", "assessments"},
	{AssessmentsGrade, "Grade assessments", "assessments"},
	{AttendanceView, "View attendance", "attendance"},
	{AttendanceRecord, "Record attendance", "attendance"},
	{UsersView, "View users", "users"},
	{UsersManage, "Create and edit users", "users"},
	{RolesManage, "Assign and revoke roles", "users"},
	{TranslationsManage, "Edit translation keys and texts", "translations"},
	{TranslationsPublish, "Publish translations", "translations"},
	{ReportsView, "View reports", "reports"},
}

// RoleDefinition is a seeded system role and its default grants.
type RoleDefinition struct {
	Name        string
	Description string
	IsDefault   bool
	IsSystem    bool
	Permissions []string
}

const (
	RoleNameAdmin   = "ADMIN"
	RoleNameTeacher = "TEACHER"
	RoleNameParent  = "PARENT"
	RoleNameStudent = "STUDENT"
	RoleNameViewer  = "VIEWER"
)

var defaultRoles = []RoleDefinition{
	{
		Name:        RoleNameAdmin,
		Description: "Full administrative access",
		IsSystem:    true,
		Permissions: Names(),
	},
	{
		Name:        RoleNameTeacher,
		Description: "Teaching staff scoped to their groups",
		IsSystem:    true,
		Permissions: []string{
			StudentsView, StudentsEdit, GroupsView,
			TasksView, TasksCreate, TasksEdit,
			AssessmentsView, AssessmentsCreate, AssessmentsGrade,
			AttendanceView, AttendanceRecord,
		},
	},
	{
		Name:        RoleNameParent,
		Description: "Parents scoped to their children",
		IsSystem:    true,
		Permissions: []string{StudentsView, TasksView, AssessmentsView, AttendanceView},
	},
	{
		Name:        RoleNameStudent,
		Description: "Students",
		IsSystem:    true,
		Permissions: []string{TasksView, AssessmentsView},
	},
	{
		Name:        RoleNameViewer,
		Description: "Read-only access",
		IsDefault:   true,
		IsSystem:    true,
		Permissions: []string{StudentsView, GroupsView, ReportsView},
	},
}

// Catalog returns a copy of every known permission.
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// DefaultRoles returns the seeded roles.
func DefaultRoles() []RoleDefinition {
	out := make([]RoleDefinition, len(defaultRoles))
	for i, r := range defaultRoles {
		r.Permissions = append([]string(nil), r.Permissions...)
		out[i] = r
	}
	return out
}

func Names() []string {
	names := make([]string, 0, len(catalog))
	for _, d := range catalog {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return names
}

func Describe(name string) string {
	for _, d := range catalog {
		if d.Name == name {
			return d.Description
		}
	}
	return ""
}

func Known(name string) bool {
	return Describe(name) != ""
}

// CategoryOf returns the leading segment of a dot-path permission name.
func CategoryOf(name string) string {
	if i := strings.IndexByte(name, '.'); i > 0 {
		return name[:i]
	}
	return name
}
