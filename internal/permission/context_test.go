package permission_test

import (
	"github.com/frahmantamala/school-management/internal/permission"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Context", func() {
	It("should parse empty and null documents as empty", func() {
		for _, raw := range []string{"", "  ", "null", "{}"} {
			c, err := permission.ParseContext([]byte(raw))
			Expect(err).NotTo(HaveOccurred())
			Expect(c.IsEmpty()).To(BeTrue(), raw)
		}
	})

	It("should reject documents that are not objects", func() {
		_, err := permission.ParseContext([]byte(`["G1"]`))
		Expect(err).To(HaveOccurred())
	})

	It("should read groupId and studentIds", func() {
		c, err := permission.ParseContext([]byte(`{"groupId":"G1","studentIds":["s1","s2"],"term":"2024"}`))
		Expect(err).NotTo(HaveOccurred())

		groupID, ok := c.GroupID()
		Expect(ok).To(BeTrue())
		Expect(groupID).To(Equal("G1"))
		Expect(c.StudentIDs()).To(Equal([]string{"s1", "s2"}))
	})

	It("should cover subsets only", func() {
		stored := permission.Context{"groupId": "G1", "term": "2024"}

		Expect(stored.Covers(permission.Context{"groupId": "G1"})).To(BeTrue())
		Expect(stored.Covers(permission.Context{})).To(BeTrue())
		Expect(stored.Covers(permission.Context{"groupId": "G2"})).To(BeFalse())
		Expect(permission.Context{"groupId": "G1"}.Covers(stored)).To(BeFalse())
	})

	It("should compare lists by value", func() {
		a := permission.Context{"studentIds": []any{"s1", "s2"}}
		b := permission.Context{"studentIds": []string{"s1", "s2"}}
		Expect(a.Equal(b)).To(BeTrue())
		Expect(a.Equal(permission.Context{"studentIds": []string{"s2", "s1"}})).To(BeFalse())
	})

	It("should marshal nil as an empty object", func() {
		var c permission.Context
		raw, err := c.Marshal()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).To(Equal("{}"))
	})
})

var _ = Describe("Scope", func() {
	It("should union and dedupe ids", func() {
		s := permission.Scope{GroupIDs: []string{"G3", "G1"}}.
			Union(permission.Scope{GroupIDs: []string{"G1"}, StudentIDs: []string{"s9"}})

		Expect(s.GroupIDs).To(Equal([]string{"G1", "G3"}))
		Expect(s.StudentIDs).To(Equal([]string{"s9"}))
		Expect(s.AllowsGroup("G3")).To(BeTrue())
		Expect(s.AllowsGroup("G2")).To(BeFalse())
	})

	It("should absorb everything into All", func() {
		s := permission.Scope{GroupIDs: []string{"G1"}}.Union(permission.AllScope())
		Expect(s.All).To(BeTrue())
		Expect(s.GroupIDs).To(BeEmpty())
		Expect(s.AllowsStudent("any", nil)).To(BeTrue())
	})

	It("should allow listed students regardless of group", func() {
		s := permission.Scope{StudentIDs: []string{"s1"}}
		Expect(s.AllowsStudent("s1", nil)).To(BeTrue())
		Expect(s.AllowsStudent("s2", nil)).To(BeFalse())
		Expect(s.IsEmpty()).To(BeFalse())
		Expect(permission.Scope{}.IsEmpty()).To(BeTrue())
	})
})

var _ = Describe("Registry", func() {
	It("should only grant catalog permissions from the default roles", func() {
		for _, role := range permission.DefaultRoles() {
			for _, name := range role.Permissions {
				Expect(permission.Known(name)).To(BeTrue(), role.Name+" -> "+name)
			}
		}
	})

	It("should seed TEACHER with assessments.grade", func() {
		var teacher *permission.RoleDefinition
		for _, role := range permission.DefaultRoles() {
			if role.Name == permission.RoleNameTeacher {
				r := role
				teacher = &r
			}
		}
		Expect(teacher).NotTo(BeNil())
		Expect(teacher.Permissions).To(ContainElement(permission.AssessmentsGrade))
	})

	It("should derive the category from the dot path", func() {
		Expect(permission.CategoryOf("students.view")).To(Equal("students"))
		Expect(permission.CategoryOf("plain")).To(Equal("plain"))
	})
})
