package swagger_test

import (
	"net/http"
	"net/http/httptest"

	"github.com/frahmantamala/school-management/internal/transport/swagger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("OpenAPI document", func() {
	var h *swagger.Handler

	BeforeEach(func() {
		var err error
		h, err = swagger.NewHandler()
		Expect(err).NotTo(HaveOccurred())
	})

	It("should describe the public translation endpoints", func() {
		paths := h.Document().Paths
		for _, p := range []string{
			"/translations",
			"/translations/languages",
			"/translations/namespace/{namespace}",
			"/translations/publish",
			"/cms/publish",
		} {
			Expect(paths.Find(p)).NotTo(BeNil(), p)
		}
	})

	It("should describe the scoped school endpoints", func() {
		op := h.Document().Paths.Find("/students/{id}").Get
		Expect(op).NotTo(BeNil())
		Expect(op.Responses.Status(http.StatusForbidden)).NotTo(BeNil())
		Expect(op.Responses.Status(http.StatusNotFound)).NotTo(BeNil())
	})

	It("should serve the raw document", func() {
		rec := httptest.NewRecorder()
		h.ServeSpec(rec, httptest.NewRequest(http.MethodGet, swagger.SpecPath, nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(Equal("application/yaml"))
		Expect(rec.Body.String()).To(HavePrefix("openapi: 3.0.3"))
	})
})
