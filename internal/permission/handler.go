package permission

import (
	"context"
	"log/slog"
	"net/http"

	errors "github.com/frahmantamala/school-management/internal"
	"github.com/frahmantamala/school-management/internal/transport"
)

type ServiceAPI interface {
	ListRoles(ctx context.Context) ([]RoleResponse, error)
	ListUserAssignments(ctx context.Context, userID string) ([]AssignmentResponse, error)
	AssignRoleToUser(ctx context.Context, req AssignRoleRequest, assignedBy string) (*AssignmentResponse, error)
	RemoveRoleFromUser(ctx context.Context, req RemoveRoleRequest) (int, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Service.ListRoles(r.Context())
	if err != nil {
		h.Logger.Error("ListRoles: failed to list roles", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, RolesResponse{Roles: roles})
}

func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		h.WriteAppError(w, errors.NewValidationFieldError("user_id", "user_id is required", errors.ErrCodeValidationFailed))
		return
	}

	assignments, err := h.Service.ListUserAssignments(r.Context(), userID)
	if err != nil {
		h.Logger.Error("ListAssignments: failed to list assignments", "error", err, "user_id", userID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, AssignmentsResponse{Assignments: assignments})
}

func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	var req AssignRoleRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.Logger.Error("AssignRole: invalid request body", "error", err)
		h.WriteAppError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	assignment, err := h.Service.AssignRoleToUser(r.Context(), req, errors.UserIDFromContext(r.Context()))
	if err != nil {
		h.Logger.Error("AssignRole: service error", "error", err, "user_id", req.UserID, "role", req.Role)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, assignment)
}

func (h *Handler) RemoveRole(w http.ResponseWriter, r *http.Request) {
	var req RemoveRoleRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.Logger.Error("RemoveRole: invalid request body", "error", err)
		h.WriteAppError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	removed, err := h.Service.RemoveRoleFromUser(r.Context(), req)
	if err != nil {
		h.Logger.Error("RemoveRole: service error", "error", err, "user_id", req.UserID, "role", req.Role)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, RemoveRoleResponse{Removed: removed})
}
