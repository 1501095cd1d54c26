package user

import (
	"context"
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/school-management/internal"
	"github.com/frahmantamala/school-management/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	GetByID(ctx context.Context, userID string) (*User, error)
	GetPermissions(ctx context.Context, userID string) ([]string, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// GetCurrentUser handles GET /users/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	session, ok := errors.UserFromContext(r.Context())
	if !ok {
		h.Logger.Warn("GetCurrentUser: user not found in context")
		h.WriteAppError(w, errors.ErrUnauthorized)
		return
	}

	u, err := h.Service.GetByID(r.Context(), session.ID)
	if err != nil {
		h.Logger.Error("GetCurrentUser: service GetByID failed", "user_id", session.ID, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, u)
}

// GetUserPermissions handles GET /users/{id}/permissions
func (h *Handler) GetUserPermissions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		h.WriteAppError(w, errors.NewValidationFieldError("id", "User id is required", errors.ErrCodeValidationFailed))
		return
	}

	perms, err := h.Service.GetPermissions(r.Context(), userID)
	if err != nil {
		h.Logger.Error("GetUserPermissions: service failed", "user_id", userID, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, PermissionsResponse{UserID: userID, Permissions: perms})
}
