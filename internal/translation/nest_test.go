package translation_test

import (
	"github.com/frahmantamala/school-management/internal/translation"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Namespace building", func() {
	It("should strip the namespace prefix and nest the rest", func() {
		out := translation.BuildNamespace("dashboard", map[string]string{
			"dashboard.title":         "Dashboard",
			"dashboard.cards.pending": "Pending",
			"dashboard.cards.done":    "Done",
			"greeting":                "Hello",
		})
		Expect(out).To(Equal(map[string]any{
			"title": "Dashboard",
			"cards": map[string]any{
				"pending": "Pending",
				"done":    "Done",
			},
			"greeting": "Hello",
		}))
	})

	It("should keep the leaf when a key is also a prefix", func() {
		out := translation.BuildNamespace("common", map[string]string{
			"menu":      "Menu",
			"menu.open": "Open",
		})
		Expect(out).To(Equal(map[string]any{"menu": "Menu"}))
	})

	It("should return an empty object for no entries", func() {
		Expect(translation.BuildNamespace("common", nil)).To(BeEmpty())
	})

	It("should not strip a bare namespace name", func() {
		Expect(translation.RelativeKey("common", "common")).To(Equal("common"))
		Expect(translation.RelativeKey("common", "common.save")).To(Equal("save"))
		Expect(translation.RelativeKey("common", "commonly.used")).To(Equal("commonly.used"))
	})

	It("should group entries by language and namespace", func() {
		category := "dashboard"
		grouped := translation.GroupEntries([]translation.Entry{
			{Key: "save", LanguageCode: "en", Text: "Save"},
			{Key: "save", LanguageCode: "nl", Text: "Opslaan"},
			{Key: "dashboard.title", Category: &category, LanguageCode: "en", Text: "Dashboard"},
		})
		Expect(grouped["en"]["common"]).To(Equal(map[string]string{"save": "Save"}))
		Expect(grouped["en"]["dashboard"]).To(Equal(map[string]string{"dashboard.title": "Dashboard"}))
		Expect(grouped["nl"]).NotTo(HaveKey("dashboard"))
	})

	DescribeTable("key validation",
		func(key string, valid bool) {
			Expect(translation.KeyPattern.MatchString(key)).To(Equal(valid))
		},
		Entry("simple", "save", true),
		Entry("dotted", "dashboard.welcome_title", true),
		Entry("camel segment", "tasks.dueDate", true),
		Entry("uppercase start", "Save", false),
		Entry("leading dot", ".save", false),
		Entry("trailing dot", "save.", false),
		Entry("double dot", "a..b", false),
		Entry("spaces", "a b", false),
	)
})
