package middleware_test

import (
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/school-management/internal/transport/middleware"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CORS", func() {
	var reached bool

	serve := func(allowed string, req *http.Request) *httptest.ResponseRecorder {
		reached = false
		h := middleware.CORS(allowed)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reached = true
			w.WriteHeader(http.StatusOK)
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	It("should echo a listed origin", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/translations", nil)
		req.Header.Set("Origin", "https://app.school.test")

		rec := serve("https://app.school.test, https://admin.school.test", req)

		Expect(reached).To(BeTrue())
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://app.school.test"))
	})

	It("should not expose headers to unknown origins", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/translations", nil)
		req.Header.Set("Origin", "https://evil.test")

		rec := serve("https://app.school.test", req)

		Expect(reached).To(BeTrue())
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
	})

	It("should send no CORS headers when no origin is configured", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/translations", nil)
		req.Header.Set("Origin", "https://evil.example")

		rec := serve("", req)

		Expect(reached).To(BeTrue())
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
		Expect(rec.Header().Get("Access-Control-Allow-Credentials")).To(BeEmpty())
	})

	It("should echo a listed origin with credentials", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/translations", nil)
		req.Header.Set("Origin", "https://admin.school.test")

		rec := serve("https://app.school.test,https://admin.school.test", req)

		Expect(rec.Header().Get("Access-Control-Allow-Credentials")).To(Equal("true"))
	})

	It("should not allow credentials for a wildcard", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/translations", nil)
		req.Header.Set("Origin", "https://evil.example")

		rec := serve("*", req)

		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
		Expect(rec.Header().Get("Access-Control-Allow-Credentials")).To(BeEmpty())
	})

	It("should answer preflight requests without calling the handler", func() {
		req := httptest.NewRequest(http.MethodOptions, "/api/translations/publish", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)

		rec := serve("*", req)

		Expect(reached).To(BeFalse())
		Expect(rec.Code).To(BeNumerically("<", 300))
		Expect(rec.Header().Get("Access-Control-Allow-Methods")).To(ContainSubstring("POST"))
	})
})
