package rest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	apperrors "github.com/frahmantamala/school-management/internal"
	"github.com/frahmantamala/school-management/internal/auth"
	"github.com/frahmantamala/school-management/internal/observability"
	"github.com/frahmantamala/school-management/internal/permission"
	"github.com/frahmantamala/school-management/internal/translation"
	"github.com/frahmantamala/school-management/internal/transport/middleware"
	"github.com/frahmantamala/school-management/internal/transport/rest"
	"github.com/frahmantamala/school-management/pkg/logger"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
)

// fakeAuth maps bearer tokens straight to session users.
type fakeAuth struct {
	auth.ServiceAPI
	users map[string]*apperrors.SessionUser
}

func (f *fakeAuth) ValidateAccessToken(token string) (*auth.Claims, error) {
	u, ok := f.users[token]
	if !ok {
		return nil, apperrors.ErrInvalidToken
	}
	return &auth.Claims{UserID: u.ID}, nil
}

func (f *fakeAuth) GetSessionUser(_ context.Context, userID string) (*apperrors.SessionUser, error) {
	for _, u := range f.users {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, apperrors.ErrUnauthorized
}

type denyAll struct {
	permission.Authorizer
}

func (denyAll) HasPermission(context.Context, string, string, permission.Context) (bool, error) {
	return false, nil
}

type stubTranslations struct {
	translation.ServiceAPI
}

func (stubTranslations) Namespace(_ context.Context, ns, lang string) (map[string]any, error) {
	return map[string]any{"save": ns + "/" + lang}, nil
}

func (stubTranslations) ListKeys(context.Context, translation.KeyFilter) ([]translation.KeyResponse, error) {
	return []translation.KeyResponse{}, nil
}

type stubPublisher struct{}

func (stubPublisher) Publish(context.Context, translation.PublishRequest) (*translation.PublishResult, error) {
	return &translation.PublishResult{Version: "v1"}, nil
}

func (stubPublisher) History(context.Context, int) (*translation.HistoryResponse, error) {
	return &translation.HistoryResponse{}, nil
}

var _ = Describe("Router", func() {
	var (
		router  *chi.Mux
		deps    rest.Dependencies
		sqlDB   sqlmock.Sqlmock
		mr      *miniredis.Miniredis
		metrics *observability.Metrics
	)

	BeforeEach(func() {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		Expect(err).NotTo(HaveOccurred())
		sqlDB = mock
		DeferCleanup(func() {
			mock.ExpectClose()
			Expect(db.Close()).To(Succeed())
			Expect(mock.ExpectationsWereMet()).To(Succeed())
		})

		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(mr.Close)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		DeferCleanup(client.Close)

		lg := logger.Discard()
		metrics = observability.NewMetrics()
		authSvc := &fakeAuth{users: map[string]*apperrors.SessionUser{
			"admin-token":  {ID: "u-admin", Email: "admin@school.test", Role: "ADMIN"},
			"viewer-token": {ID: "u-viewer", Email: "viewer@school.test", Role: "VIEWER"},
		}}

		deps = rest.Dependencies{
			DB:          db,
			Redis:       client,
			Permissions: middleware.NewPermissions(denyAll{}, lg),
			Metrics:     metrics,
			Handlers: rest.Handlers{
				Auth:        auth.NewHandler(authSvc, lg),
				Translation: translation.NewHandler(stubTranslations{}, stubPublisher{}, nil, lg),
			},
			MetricsEnabled:   true,
			MetricsPath:      "/metrics",
			PublishRateLimit: 1,
			Logger:           lg,
		}
		router = chi.NewRouter()
	})

	JustBeforeEach(func() {
		Expect(rest.RegisterAllRoutes(router, deps)).To(Succeed())
	})

	do := func(method, path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	It("should answer ping and serve the API document", func() {
		Expect(do(http.MethodGet, "/api/ping", "").Code).To(Equal(http.StatusOK))

		rec := do(http.MethodGet, "/openapi.yml", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("/translations/namespace/{namespace}"))
	})

	It("should report every dependency in the health check", func() {
		sqlDB.ExpectPing()

		rec := do(http.MethodGet, "/api/health", "")

		Expect(rec.Code).To(Equal(http.StatusOK))
		var body rest.HealthResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Status).To(Equal(rest.HealthHealthy))
		Expect(body.Components).To(HaveKey("postgres"))
		Expect(body.Components).To(HaveKey("redis"))
	})

	It("should turn unhealthy when redis is down", func() {
		sqlDB.ExpectPing()
		mr.Close()

		rec := do(http.MethodGet, "/api/health", "")

		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
		var body rest.HealthResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Components["redis"].Status).To(Equal(rest.HealthUnhealthy))
		Expect(body.Components["postgres"].Status).To(Equal(rest.HealthHealthy))
	})

	It("should serve namespaces without a session", func() {
		rec := do(http.MethodGet, "/api/translations/namespace/dashboard?language=nl", "")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("dashboard/nl"))
	})

	It("should require a session for the admin API", func() {
		Expect(do(http.MethodGet, "/api/translations/keys", "").Code).To(Equal(http.StatusUnauthorized))
	})

	It("should reserve the translation admin API for admins", func() {
		Expect(do(http.MethodGet, "/api/translations/keys", "viewer-token").Code).To(Equal(http.StatusForbidden))
		Expect(do(http.MethodGet, "/api/translations/keys", "admin-token").Code).To(Equal(http.StatusOK))
	})

	It("should rate limit publishing", func() {
		Expect(do(http.MethodPost, "/api/translations/publish", "admin-token").Code).To(Equal(http.StatusOK))
		Expect(do(http.MethodPost, "/api/translations/publish", "admin-token").Code).To(Equal(http.StatusTooManyRequests))
	})

	It("should expose metrics when enabled", func() {
		do(http.MethodGet, "/api/ping", "")

		rec := do(http.MethodGet, "/metrics", "")

		Expect(rec.Code).To(Equal(http.StatusOK))
	})
})
