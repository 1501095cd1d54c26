package i18n_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frahmantamala/school-management/internal/i18n"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// translationServer serves namespace objects keyed by "namespace:language".
type translationServer struct {
	*httptest.Server
	mu      sync.Mutex
	bodies  map[string]string
	status  int
	failFor int
	hits    atomic.Int32
	gate    chan struct{}
}

func newTranslationServer() *translationServer {
	s := &translationServer{bodies: map[string]string{}, status: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/translations/namespace/{namespace}", func(w http.ResponseWriter, r *http.Request) {
		n := s.hits.Add(1)
		s.mu.Lock()
		gate, status, failFor := s.gate, s.status, s.failFor
		body, ok := s.bodies[r.PathValue("namespace")+":"+r.URL.Query().Get("language")]
		s.mu.Unlock()
		if gate != nil {
			<-gate
		}
		if int(n) <= failFor {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		if !ok {
			body = "{}"
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	})
	s.Server = httptest.NewServer(mux)
	return s
}

func (s *translationServer) set(namespace, lang, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies[namespace+":"+lang] = body
}

var _ = Describe("Client", func() {
	var (
		server *translationServer
		client *i18n.Client
		now    time.Time
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		server = newTranslationServer()
		server.set("common", "nl", `{"save":"Opslaan"}`)
		server.set("dashboard", "nl", `{"title":"Overzicht"}`)
		now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		client = i18n.NewClient(i18n.ClientConfig{
			BaseURL:    server.URL + "/",
			RetryDelay: 5 * time.Millisecond,
		}, slog.New(slog.NewTextHandler(io.Discard, nil)), i18n.WithClock(func() time.Time { return now }))
	})

	AfterEach(func() {
		server.Close()
	})

	It("should fetch with the base language and cache the result", func() {
		data, err := client.Fetch(ctx, "common", "nl-BE")
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal(map[string]any{"save": "Opslaan"}))

		_, err = client.Fetch(ctx, "common", "nl")
		Expect(err).NotTo(HaveOccurred())
		Expect(server.hits.Load()).To(BeEquivalentTo(1))

		cached, ok := client.Cached("common", "nl")
		Expect(ok).To(BeTrue())
		Expect(cached).To(Equal(data))
	})

	It("should refetch once the entry is stale", func() {
		_, err := client.Fetch(ctx, "common", "nl")
		Expect(err).NotTo(HaveOccurred())

		server.set("common", "nl", `{"save":"Bewaren"}`)
		now = now.Add(i18n.DefaultStaleTime + time.Second)
		data, err := client.Fetch(ctx, "common", "nl")
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal(map[string]any{"save": "Bewaren"}))
		Expect(server.hits.Load()).To(BeEquivalentTo(2))
	})

	It("should retry server errors twice", func() {
		server.failFor = 2
		data, err := client.Fetch(ctx, "common", "nl")
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(HaveKey("save"))
		Expect(server.hits.Load()).To(BeEquivalentTo(3))
	})

	It("should give up after the retries", func() {
		server.failFor = 10
		_, err := client.Fetch(ctx, "common", "nl")
		Expect(err).To(HaveOccurred())
		Expect(server.hits.Load()).To(BeEquivalentTo(3))
	})

	It("should not retry client errors", func() {
		server.status = http.StatusNotFound
		_, err := client.Fetch(ctx, "common", "nl")
		Expect(err).To(MatchError(ContainSubstring("404")))
		Expect(server.hits.Load()).To(BeEquivalentTo(1))
	})

	It("should keep stale data when a refetch fails", func() {
		_, err := client.Fetch(ctx, "common", "nl")
		Expect(err).NotTo(HaveOccurred())

		server.status = http.StatusBadRequest
		now = now.Add(i18n.DefaultStaleTime + time.Second)
		data, err := client.Fetch(ctx, "common", "nl")
		Expect(err).To(HaveOccurred())
		Expect(data).To(Equal(map[string]any{"save": "Opslaan"}))
	})

	It("should collapse concurrent fetches of one namespace", func() {
		server.gate = make(chan struct{})
		var wg sync.WaitGroup
		results := make([]map[string]any, 5)
		for i := range results {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				data, err := client.Fetch(ctx, "common", "nl")
				Expect(err).NotTo(HaveOccurred())
				results[i] = data
			}()
		}
		Eventually(server.hits.Load).Should(BeEquivalentTo(1))
		Consistently(server.hits.Load, 100*time.Millisecond).Should(BeEquivalentTo(1))
		close(server.gate)
		wg.Wait()

		for _, r := range results {
			Expect(r).To(Equal(map[string]any{"save": "Opslaan"}))
		}
		Expect(server.hits.Load()).To(BeEquivalentTo(1))
	})

	It("should finish a shared fetch for other callers when the first one gives up", func() {
		server.gate = make(chan struct{})
		firstCtx, cancelFirst := context.WithCancel(ctx)
		firstErr := make(chan error, 1)
		go func() {
			_, err := client.Fetch(firstCtx, "common", "nl")
			firstErr <- err
		}()
		Eventually(server.hits.Load).Should(BeEquivalentTo(1))

		type result struct {
			data map[string]any
			err  error
		}
		second := make(chan result, 1)
		go func() {
			data, err := client.Fetch(ctx, "common", "nl")
			second <- result{data, err}
		}()
		Consistently(second, 50*time.Millisecond).ShouldNot(Receive())

		cancelFirst()
		Eventually(firstErr).Should(Receive(MatchError(context.Canceled)))

		close(server.gate)
		var got result
		Eventually(second).Should(Receive(&got))
		Expect(got.err).NotTo(HaveOccurred())
		Expect(got.data).To(Equal(map[string]any{"save": "Opslaan"}))
		Expect(server.hits.Load()).To(BeEquivalentTo(1))
	})

	It("should invalidate one namespace across languages", func() {
		server.set("common", "en", `{"save":"Save"}`)
		Expect(client.Preload(ctx, "nl", "common", "dashboard")).To(Succeed())
		_, err := client.Fetch(ctx, "common", "en")
		Expect(err).NotTo(HaveOccurred())

		client.Invalidate("common")
		_, ok := client.Cached("common", "nl")
		Expect(ok).To(BeFalse())
		_, ok = client.Cached("common", "en")
		Expect(ok).To(BeFalse())
		_, ok = client.Cached("dashboard", "nl")
		Expect(ok).To(BeTrue())

		client.Invalidate("")
		_, ok = client.Cached("dashboard", "nl")
		Expect(ok).To(BeFalse())
	})

	It("should preload every namespace concurrently", func() {
		Expect(client.Preload(ctx, "nl-NL", "common", "dashboard")).To(Succeed())
		Expect(server.hits.Load()).To(BeEquivalentTo(2))

		_, err := client.Fetch(ctx, "dashboard", "nl")
		Expect(err).NotTo(HaveOccurred())
		Expect(server.hits.Load()).To(BeEquivalentTo(2))
	})

	It("should report a failed preload", func() {
		server.status = http.StatusForbidden
		Expect(client.Preload(ctx, "nl", "common", "dashboard")).NotTo(Succeed())
	})

	It("should use the documented cache key", func() {
		Expect(i18n.CacheKey("common", "nl")).To(Equal("translations|common|nl"))
	})
})
