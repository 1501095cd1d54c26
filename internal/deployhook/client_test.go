package deployhook_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	apperrors "github.com/frahmantamala/school-management/internal"
	"github.com/frahmantamala/school-management/internal/deployhook"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Client", func() {
	var (
		lg       *slog.Logger
		received map[string]any
		status   int
		body     string
		server   *httptest.Server
	)

	BeforeEach(func() {
		lg = slog.New(slog.NewTextHandler(io.Discard, nil))
		received = nil
		status = http.StatusCreated
		body = `{"job":{"id":"job_123","state":"PENDING","createdAt":1700000000000}}`
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			Expect(r.Method).To(Equal(http.MethodPost))
			Expect(r.Header.Get("Content-Type")).To(Equal("application/json"))
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
			w.WriteHeader(status)
			_, _ = io.WriteString(w, body)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("should be disabled without a url", func() {
		Expect(deployhook.NewClient(deployhook.Config{}, lg).Enabled()).To(BeFalse())
		var nilClient *deployhook.Client
		Expect(nilClient.Enabled()).To(BeFalse())

		_, err := deployhook.NewClient(deployhook.Config{}, lg).Trigger(context.Background(), deployhook.Meta{})
		Expect(err).To(HaveOccurred())
	})

	It("should post the ref and translation metadata", func() {
		client := deployhook.NewClient(deployhook.Config{URL: server.URL}, lg)
		Expect(client.Enabled()).To(BeTrue())

		result, err := client.Trigger(context.Background(), deployhook.Meta{
			TranslationVersion: "v1700000000000",
			PublicationID:      "pub-1",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.StatusCode).To(Equal(http.StatusCreated))
		Expect(result.JobID).To(Equal("job_123"))
		Expect(result.JobState).To(Equal("PENDING"))

		Expect(received["ref"]).To(Equal("main"))
		Expect(received["meta"]).To(Equal(map[string]any{
			"translationVersion": "v1700000000000",
			"publicationId":      "pub-1",
		}))
	})

	It("should use the configured ref and omit an empty publication id", func() {
		client := deployhook.NewClient(deployhook.Config{URL: server.URL, Ref: "production"}, lg)
		_, err := client.Trigger(context.Background(), deployhook.Meta{TranslationVersion: "v1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(received["ref"]).To(Equal("production"))
		Expect(received["meta"]).To(Equal(map[string]any{"translationVersion": "v1"}))
	})

	It("should tolerate a body without job details", func() {
		status = http.StatusOK
		body = "ok"
		result, err := deployhook.NewClient(deployhook.Config{URL: server.URL}, lg).
			Trigger(context.Background(), deployhook.Meta{TranslationVersion: "v1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.JobID).To(BeEmpty())
	})

	It("should fail on a non-2xx answer", func() {
		status = http.StatusBadGateway
		_, err := deployhook.NewClient(deployhook.Config{URL: server.URL}, lg).
			Trigger(context.Background(), deployhook.Meta{TranslationVersion: "v1"})
		Expect(err).To(MatchError(ContainSubstring("status 502")))
		Expect(err).To(MatchError(apperrors.ErrDeployHookFailed))
		appErr, ok := apperrors.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.StatusCode).To(Equal(http.StatusBadGateway))
	})

	It("should give up after the timeout", func() {
		slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer slow.Close()

		client := deployhook.NewClient(deployhook.Config{URL: slow.URL, Timeout: 50 * time.Millisecond}, lg)
		_, err := client.Trigger(context.Background(), deployhook.Meta{TranslationVersion: "v1"})
		Expect(err).To(MatchError(apperrors.ErrDeployHookFailed))
	})
})
