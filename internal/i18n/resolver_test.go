package i18n_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/school-management/internal/i18n"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Resolver", func() {
	var (
		server  *translationServer
		client  *i18n.Client
		catalog *i18n.Catalog
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		server = newTranslationServer()
		server.set("common", "nl", `{"save":"Opslaan","greeting":"Hallo {{name}}"}`)
		client = i18n.NewClient(i18n.ClientConfig{BaseURL: server.URL, RetryDelay: 5 * time.Millisecond},
			slog.New(slog.NewTextHandler(io.Discard, nil)))
		catalog = i18n.NewCatalog(map[string]map[string]map[string]any{
			"en": {
				"common":    {"save": "Save", "cancel": "Cancel"},
				"dashboard": {"title": "Dashboard"},
			},
			"nl": {
				"common": {"save": "Save", "cancel": "Annuleren"},
			},
		})
	})

	AfterEach(func() {
		server.Close()
	})

	It("should serve static strings until the dynamic fetch resolves", func() {
		server.gate = make(chan struct{})
		r := i18n.NewResolver(client, catalog, "common", "nl")
		Expect(r.Ready()).To(BeFalse())

		done := make(chan error, 1)
		go func() { done <- r.Load(ctx) }()

		Eventually(r.IsLoading).Should(BeTrue())
		Expect(r.T("save", nil)).To(Equal("Save"))

		close(server.gate)
		Eventually(done).Should(Receive(BeNil()))
		Expect(r.IsLoading()).To(BeFalse())
		Expect(r.Ready()).To(BeTrue())
		Expect(r.T("save", nil)).To(Equal("Opslaan"))
	})

	It("should keep static keys the dynamic result lacks", func() {
		r := i18n.NewResolver(client, catalog, "common", "nl")
		Expect(r.Load(ctx)).To(Succeed())
		Expect(r.T("cancel", nil)).To(Equal("Annuleren"))
		Expect(r.Merged()).To(Equal(map[string]any{
			"save":     "Opslaan",
			"cancel":   "Annuleren",
			"greeting": "Hallo {{name}}",
		}))
	})

	It("should use dynamic translations alone without fallback", func() {
		r := i18n.NewResolver(client, catalog, "common", "nl", i18n.WithoutFallback())
		Expect(r.Merged()).To(BeEmpty())

		Expect(r.Load(ctx)).To(Succeed())
		Expect(r.Merged()).NotTo(HaveKey("cancel"))
		Expect(r.T("save", nil)).To(Equal("Opslaan"))
	})

	It("should interpolate and keep missing placeholders", func() {
		r := i18n.NewResolver(client, catalog, "common", "nl")
		Expect(r.Load(ctx)).To(Succeed())
		Expect(r.T("greeting", map[string]any{"name": "Sam"})).To(Equal("Hallo Sam"))
		Expect(r.T("greeting", nil)).To(Equal("Hallo {{name}}"))
	})

	It("should never fail for a missing key", func() {
		r := i18n.NewResolver(client, catalog, "common", "nl")
		Expect(r.Load(ctx)).To(Succeed())
		Expect(r.T("nonexistent.key", nil)).To(Equal("nonexistent.key"))
		Expect(r.T("save.deeper", nil)).To(Equal("save.deeper"))
		Expect(r.T("", nil)).To(Equal(""))
	})

	It("should resolve through the static engine when the merged object misses", func() {
		r := i18n.NewResolver(client, catalog, "dashboard", "nl", i18n.WithoutFallback())
		Expect(r.Load(ctx)).To(Succeed())
		Expect(r.T("title", nil)).To(Equal("Dashboard"))
	})

	It("should keep serving static strings when the fetch fails", func() {
		server.status = http.StatusNotFound
		r := i18n.NewResolver(client, catalog, "common", "nl")
		Expect(r.Load(ctx)).NotTo(Succeed())
		Expect(r.Err()).To(HaveOccurred())
		Expect(r.Ready()).To(BeFalse())
		Expect(r.T("cancel", nil)).To(Equal("Annuleren"))
	})

	It("should start ready from a preloaded cache", func() {
		Expect(client.Preload(ctx, "nl", "common")).To(Succeed())
		r := i18n.NewResolver(client, catalog, "common", "nl-BE")
		Expect(r.Ready()).To(BeTrue())
		Expect(r.T("save", nil)).To(Equal("Opslaan"))
	})

	It("should work without a client", func() {
		r := i18n.NewResolver(nil, catalog, "common", "en")
		Expect(r.Load(ctx)).To(Succeed())
		Expect(r.T("save", nil)).To(Equal("Save"))
	})
})

var _ = Describe("Hybrid", func() {
	var (
		server  *translationServer
		client  *i18n.Client
		catalog *i18n.Catalog
	)

	BeforeEach(func() {
		server = newTranslationServer()
		server.set("dashboard", "nl", `{"cards":{"students":"Leerlingen"}}`)
		client = i18n.NewClient(i18n.ClientConfig{BaseURL: server.URL}, slog.New(slog.NewTextHandler(io.Discard, nil)))
		catalog = i18n.NewCatalog(map[string]map[string]map[string]any{
			"en": {"dashboard": {"title": "Dashboard", "cards": map[string]any{"students": "Students", "groups": "Groups"}}},
		})
	})

	AfterEach(func() {
		server.Close()
	})

	It("should defer to the catalog until the resolver is ready", func() {
		r := i18n.NewResolver(client, catalog, "dashboard", "nl", i18n.WithoutFallback())
		h := i18n.NewHybrid(r, catalog)
		Expect(h.T("cards.students", nil)).To(Equal("Students"))

		Expect(r.Load(context.Background())).To(Succeed())
		Expect(h.T("cards.students", nil)).To(Equal("Leerlingen"))
	})

	It("should use the dynamic subtree even when it lacks the leaf", func() {
		r := i18n.NewResolver(client, catalog, "dashboard", "nl", i18n.WithoutFallback())
		Expect(r.Load(context.Background())).To(Succeed())
		h := i18n.NewHybrid(r, catalog)

		Expect(h.T("title", nil)).To(Equal("Dashboard"))
		Expect(h.T("cards.groups", nil)).To(Equal("Groups"))
		Expect(h.T("missing.key", nil)).To(Equal("missing.key"))
	})
})
