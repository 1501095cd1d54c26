package rest

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/frahmantamala/school-management/internal/auth"
	"github.com/frahmantamala/school-management/internal/observability"
	"github.com/frahmantamala/school-management/internal/permission"
	"github.com/frahmantamala/school-management/internal/student"
	"github.com/frahmantamala/school-management/internal/translation"
	"github.com/frahmantamala/school-management/internal/transport/middleware"
	"github.com/frahmantamala/school-management/internal/transport/swagger"
	"github.com/frahmantamala/school-management/internal/user"
	"github.com/go-chi/chi"
	"github.com/go-chi/httprate"
	"github.com/redis/go-redis/v9"
)

type Handlers struct {
	Auth        *auth.Handler
	User        *user.Handler
	Permission  *permission.Handler
	Student     *student.Handler
	Translation *translation.Handler
}

type Dependencies struct {
	DB          *sql.DB
	Redis       *redis.Client
	Permissions *middleware.Permissions
	Metrics     *observability.Metrics
	Handlers    Handlers

	MetricsEnabled   bool
	MetricsPath      string
	AllowedOrigins   string
	PublishRateLimit int
	Logger           *slog.Logger
}

func RegisterAllRoutes(router chi.Router, deps Dependencies) error {
	lg := deps.Logger
	if lg == nil {
		lg = slog.Default()
	}
	healthHandler := NewHealthHandler(deps.DB, deps.Redis)
	perms := deps.Permissions
	h := deps.Handlers

	docs, err := swagger.NewHandler()
	if err != nil {
		return err
	}

	// Apply global middleware
	router.Use(middleware.CORS(deps.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(lg))
	router.Use(middleware.LoggingMiddleware(lg))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware)
	}

	// Serve the OpenAPI document at root (outside API prefix)
	router.Get("/openapi.yml", docs.ServeSpec)
	router.Handle("/swagger/*", docs.UI())
	if deps.MetricsEnabled && deps.Metrics != nil {
		router.Handle(deps.MetricsPath, deps.Metrics.Handler())
	}

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if h.Auth != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/login", h.Auth.Login)
				sr.Post("/refresh", h.Auth.RefreshToken)
				sr.Post("/logout", h.Auth.Logout)
			})
		}

		// Public translation reads, consumed by the frontend resolver
		if h.Translation != nil {
			r.Get("/translations", h.Translation.Flat)
			r.Get("/translations/languages", h.Translation.Languages)
			r.Get("/translations/namespace/{namespace}", h.Translation.Namespace)
		}

		if h.Auth == nil {
			return
		}

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)
			pr.Use(middleware.UserContext)

			if h.User != nil {
				pr.Get("/users/me", h.User.GetCurrentUser)
				pr.With(perms.RequirePermission(permission.UsersView)).
					Get("/users/{id}/permissions", h.User.GetUserPermissions)
			}

			if h.Permission != nil {
				pr.Route("/roles", func(rr chi.Router) {
					rr.Use(perms.RequirePermission(permission.RolesManage))
					rr.Get("/", h.Permission.ListRoles)
					rr.Get("/assignments", h.Permission.ListAssignments)
					rr.Post("/assignments", h.Permission.AssignRole)
					rr.Delete("/assignments", h.Permission.RemoveRole)
				})
			}

			if h.Student != nil {
				pr.With(perms.RequirePermission(permission.StudentsView)).
					Get("/students", h.Student.ListStudents)
				pr.With(perms.RequireResource(permission.StudentsView, permission.ResourceStudent, "id")).
					Get("/students/{id}", h.Student.GetStudent)
				pr.With(perms.RequireResource(permission.GroupsView, permission.ResourceGroup, "id")).
					Get("/groups/{id}/students", h.Student.ListGroupStudents)
			}

			if h.Translation != nil {
				pr.Group(func(ar chi.Router) {
					ar.Use(perms.RequireAdmin())

					ar.Route("/translations/keys", func(kr chi.Router) {
						kr.Get("/", h.Translation.ListKeys)
						kr.Post("/", h.Translation.CreateKey)
						kr.Get("/{id}", h.Translation.GetKey)
						kr.Put("/{id}", h.Translation.UpdateKey)
						kr.Delete("/{id}", h.Translation.DeleteKey)
						kr.Put("/{id}/translations/{language}", h.Translation.UpsertTranslation)
					})

					ar.Group(func(pub chi.Router) {
						if deps.PublishRateLimit > 0 {
							pub.Use(httprate.LimitByIP(deps.PublishRateLimit, time.Minute))
						}
						pub.Get("/translations/publish", h.Translation.History)
						pub.Post("/translations/publish", h.Translation.Publish)
						pub.Post("/cms/publish", h.Translation.CMSPublish)
					})
				})
			}
		})
	})
	return nil
}
