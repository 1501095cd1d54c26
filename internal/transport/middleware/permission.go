package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	errors "github.com/frahmantamala/school-management/internal"
	userDatamodel "github.com/frahmantamala/school-management/internal/core/datamodel/user"
	"github.com/frahmantamala/school-management/internal/permission"
	"github.com/frahmantamala/school-management/internal/transport"
	"github.com/frahmantamala/school-management/pkg/logger"
	"github.com/go-chi/chi"
)

// Requirement describes what a route needs. The zero value only requires a session.
type Requirement struct {
	Permission  string
	Permissions []string
	RequireAll  bool
	// Context, when set, builds the scope the check is evaluated against.
	Context func(r *http.Request) permission.Context
}

// Permissions adapts an Authorizer to chi middleware.
type Permissions struct {
	authz      permission.Authorizer
	logger     *slog.Logger
	hideDenied bool
}

type PermissionsOption func(*Permissions)

// HideUnauthorizedResources answers denied resource checks with 404 instead of 403.
func HideUnauthorizedResources(hide bool) PermissionsOption {
	return func(p *Permissions) {
		p.hideDenied = hide
	}
}

func NewPermissions(authz permission.Authorizer, lg *slog.Logger, opts ...PermissionsOption) *Permissions {
	if lg == nil {
		lg = slog.Default()
	}
	p := &Permissions{authz: authz, logger: lg}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Permissions) RequirePermission(name string) func(http.Handler) http.Handler {
	return p.Require(Requirement{Permission: name})
}

func (p *Permissions) RequireAny(names ...string) func(http.Handler) http.Handler {
	return p.Require(Requirement{Permissions: names})
}

func (p *Permissions) RequireAll(names ...string) func(http.Handler) http.Handler {
	return p.Require(Requirement{Permissions: names, RequireAll: true})
}

func (p *Permissions) Require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := errors.UserFromContext(r.Context())
			if !ok {
				p.deny(w, errors.ErrUnauthorized)
				return
			}

			allowed, err := guard(func() (bool, error) {
				var scope permission.Context
				if req.Context != nil {
					scope = req.Context(r)
				}
				return p.check(r, user.ID, req, scope)
			})
			if err != nil {
				p.fail(w, r, "permission check failed", err)
				return
			}
			if !allowed {
				logger.FromOr(r.Context(), p.logger).WarnContext(r.Context(), "access denied",
					"user_id", user.ID,
					"permission", req.Permission,
					"permissions", req.Permissions,
					"require_all", req.RequireAll)
				p.deny(w, errors.ErrInsufficientPerms)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (p *Permissions) check(r *http.Request, userID string, req Requirement, scope permission.Context) (bool, error) {
	ctx := r.Context()
	switch {
	case req.Permission != "":
		return p.authz.HasPermission(ctx, userID, req.Permission, scope)
	case len(req.Permissions) > 0 && req.RequireAll:
		return p.authz.HasAllPermissions(ctx, userID, req.Permissions, scope)
	case len(req.Permissions) > 0:
		return p.authz.HasAnyPermission(ctx, userID, req.Permissions, scope)
	}
	return true, nil
}

// RequireResource checks permission against the resource named by a chi URL parameter
// and stores the resolved id in the request context.
func (p *Permissions) RequireResource(perm string, resourceType permission.ResourceType, urlParam string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := errors.UserFromContext(r.Context())
			if !ok {
				p.deny(w, errors.ErrUnauthorized)
				return
			}

			resourceID := chi.URLParam(r, urlParam)
			if resourceID == "" {
				p.deny(w, errors.NewValidationError(fmt.Sprintf("%s is required", urlParam), errors.ErrCodeValidationFailed))
				return
			}

			allowed, err := guard(func() (bool, error) {
				return p.authz.CanAccessResource(r.Context(), user.ID, perm, resourceType, resourceID)
			})
			if err != nil {
				p.fail(w, r, "resource access check failed", err)
				return
			}
			if !allowed {
				logger.FromOr(r.Context(), p.logger).WarnContext(r.Context(), "resource access denied",
					"user_id", user.ID,
					"permission", perm,
					"resource_type", resourceType,
					"resource_id", resourceID)
				if p.hideDenied {
					p.deny(w, notFoundFor(resourceType))
					return
				}
				p.deny(w, errors.ErrInsufficientPerms)
				return
			}

			ctx := errors.ContextWithResourceID(r.Context(), resourceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin only looks at the coarse user role.
func (p *Permissions) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := errors.UserFromContext(r.Context())
			if !ok {
				p.deny(w, errors.ErrUnauthorized)
				return
			}
			if userDatamodel.Role(user.Role) != userDatamodel.RoleAdmin {
				logger.FromOr(r.Context(), p.logger).WarnContext(r.Context(), "admin access denied",
					"user_id", user.ID, "role", user.Role)
				p.deny(w, errors.ErrInsufficientPerms)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (p *Permissions) deny(w http.ResponseWriter, appErr *errors.AppError) {
	transport.WriteAppError(w, appErr, p.logger)
}

func (p *Permissions) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logger.FromOr(r.Context(), p.logger).ErrorContext(r.Context(), msg, "error", err, "path", r.URL.Path)
	transport.WriteAppError(w, errors.NewInternalError("Internal server error", err), p.logger)
}

// guard runs an authorization check and converts a panic into an error, so only
// failures of the check itself are reported by this middleware.
func guard(check func() (bool, error)) (allowed bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			allowed = false
			err = fmt.Errorf("panic in permission check: %v\n%s", rec, debug.Stack())
		}
	}()
	return check()
}

func notFoundFor(resourceType permission.ResourceType) *errors.AppError {
	switch resourceType {
	case permission.ResourceGroup:
		return errors.ErrGroupNotFound
	case permission.ResourceStudent:
		return errors.ErrStudentNotFound
	}
	return errors.NewNotFoundError("Resource not found", "RESOURCE_NOT_FOUND")
}
