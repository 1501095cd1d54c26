package student_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	apperrors "github.com/frahmantamala/school-management/internal"
	schoolDatamodel "github.com/frahmantamala/school-management/internal/core/datamodel/school"
	"github.com/frahmantamala/school-management/internal/permission"
	"github.com/frahmantamala/school-management/internal/student"
	"github.com/frahmantamala/school-management/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type mockRepo struct {
	students  []schoolDatamodel.Student
	groups    map[string]schoolDatamodel.Group
	lastScope *permission.Scope
	lastPage  student.Page
	listErr   error
}

func (m *mockRepo) List(_ context.Context, scope permission.Scope, page student.Page) ([]schoolDatamodel.Student, error) {
	m.lastScope = &scope
	m.lastPage = page
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []schoolDatamodel.Student
	for _, s := range m.students {
		if scope.AllowsStudent(s.ID, s.GroupID) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockRepo) GetByID(_ context.Context, id string) (*schoolDatamodel.Student, error) {
	for i := range m.students {
		if m.students[i].ID == id {
			return &m.students[i], nil
		}
	}
	return nil, nil
}

func (m *mockRepo) GetGroup(_ context.Context, id string) (*schoolDatamodel.Group, error) {
	g, ok := m.groups[id]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (m *mockRepo) ListByGroup(_ context.Context, groupID string) ([]schoolDatamodel.Student, error) {
	var out []schoolDatamodel.Student
	for _, s := range m.students {
		if s.GroupID != nil && *s.GroupID == groupID {
			out = append(out, s)
		}
	}
	return out, nil
}

type mockScoper struct {
	scopes map[string]permission.Scope
	err    error
}

func (m *mockScoper) ResourceScope(_ context.Context, userID, perm string) (permission.Scope, error) {
	if m.err != nil {
		return permission.Scope{}, m.err
	}
	Expect(perm).To(Equal(permission.StudentsView))
	return m.scopes[userID], nil
}

func ptr(s string) *string { return &s }

var _ = Describe("Student", func() {
	var (
		repo    *mockRepo
		scoper  *mockScoper
		service *student.Service
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = &mockRepo{
			students: []schoolDatamodel.Student{
				{ID: "s1", FirstName: "Ada", LastName: "Jansen", GroupID: ptr("g1")},
				{ID: "s2", FirstName: "Bram", LastName: "de Vries", GroupID: ptr("g2")},
				{ID: "s3", FirstName: "Cas", LastName: "Bakker"},
			},
			groups: map[string]schoolDatamodel.Group{
				"g1": {ID: "g1", Name: "Group 1A"},
			},
		}
		scoper = &mockScoper{scopes: map[string]permission.Scope{
			"admin":  permission.AllScope(),
			"tutor":  {GroupIDs: []string{"g1"}},
			"parent": {StudentIDs: []string{"s3"}},
		}}
		service = student.NewService(repo, scoper, logger.Discard())
	})

	Describe("ListStudents", func() {
		It("should return everything for an unrestricted scope", func() {
			got, err := service.ListStudents(ctx, "admin", student.Page{})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(3))
			Expect(repo.lastPage.Limit).To(Equal(student.DefaultLimit))
		})

		It("should only return students in the tutor's group", func() {
			got, err := service.ListStudents(ctx, "tutor", student.Page{Limit: 5})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
			Expect(got[0].ID).To(Equal("s1"))
			Expect(repo.lastScope.GroupIDs).To(Equal([]string{"g1"}))
		})

		It("should return students listed by id", func() {
			got, err := service.ListStudents(ctx, "parent", student.Page{})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
			Expect(got[0].ID).To(Equal("s3"))
		})

		It("should not query when the scope is empty", func() {
			got, err := service.ListStudents(ctx, "stranger", student.Page{})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeEmpty())
			Expect(repo.lastScope).To(BeNil())
		})

		It("should hide scope resolution failures", func() {
			scoper.err = errors.New("store down")
			_, err := service.ListStudents(ctx, "admin", student.Page{})
			Expect(err).To(MatchError(ContainSubstring("Failed to list students")))
		})

		It("should clamp oversized pages", func() {
			_, err := service.ListStudents(ctx, "admin", student.Page{Limit: 1000, Offset: -3})
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.lastPage).To(Equal(student.Page{Limit: student.DefaultLimit, Offset: 0}))
		})
	})

	Describe("GetStudent", func() {
		It("should map unknown ids to not found", func() {
			_, err := service.GetStudent(ctx, "nope")
			Expect(err).To(MatchError(apperrors.ErrStudentNotFound))
		})

		It("should return the student", func() {
			st, err := service.GetStudent(ctx, "s2")
			Expect(err).NotTo(HaveOccurred())
			Expect(st.FirstName).To(Equal("Bram"))
		})
	})

	Describe("ListGroupStudents", func() {
		It("should return the group with its members", func() {
			g, students, err := service.ListGroupStudents(ctx, "g1")
			Expect(err).NotTo(HaveOccurred())
			Expect(g.Name).To(Equal("Group 1A"))
			Expect(students).To(HaveLen(1))
		})

		It("should map unknown groups to not found", func() {
			_, _, err := service.ListGroupStudents(ctx, "g9")
			Expect(err).To(MatchError(apperrors.ErrGroupNotFound))
		})
	})

	Describe("Handler", func() {
		var handler *student.Handler

		BeforeEach(func() {
			handler = student.NewHandler(service, logger.Discard())
		})

		It("should require a session user for listings", func() {
			rec := httptest.NewRecorder()
			handler.ListStudents(rec, httptest.NewRequest(http.MethodGet, "/api/students", nil))
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})

		It("should list within the caller's scope", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/students?limit=10&offset=0", nil)
			req = req.WithContext(apperrors.ContextWithUser(req.Context(), &apperrors.SessionUser{ID: "tutor", Role: "TUTOR"}))
			rec := httptest.NewRecorder()

			handler.ListStudents(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			var body student.StudentsResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Students).To(HaveLen(1))
			Expect(body.Limit).To(Equal(10))
		})

		It("should read the id checked by the resource middleware", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/students/s1", nil)
			req = req.WithContext(apperrors.ContextWithResourceID(req.Context(), "s1"))
			rec := httptest.NewRecorder()

			handler.GetStudent(rec, req)

			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"first_name":"Ada"`))
		})

		It("should answer 404 for an unknown group", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/groups/g9/students", nil)
			req = req.WithContext(apperrors.ContextWithResourceID(req.Context(), "g9"))
			rec := httptest.NewRecorder()

			handler.ListGroupStudents(rec, req)

			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})
	})
})
