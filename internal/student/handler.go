package student

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	errors "github.com/frahmantamala/school-management/internal"
	"github.com/frahmantamala/school-management/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	ListStudents(ctx context.Context, userID string, page Page) ([]Student, error)
	GetStudent(ctx context.Context, id string) (*Student, error)
	ListGroupStudents(ctx context.Context, groupID string) (*Group, []Student, error)
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

// ListStudents handles GET /students
func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	user, ok := errors.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, errors.ErrUnauthorized)
		return
	}

	page := Page{Limit: DefaultLimit}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= MaxLimit {
			page.Limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			page.Offset = o
		}
	}

	students, err := h.Service.ListStudents(r.Context(), user.ID, page)
	if err != nil {
		h.Logger.Error("ListStudents: service failed", "user_id", user.ID, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, StudentsResponse{
		Students: students,
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
}

// GetStudent handles GET /students/{id}
func (h *Handler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id := resourceID(r)
	st, err := h.Service.GetStudent(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, st)
}

// ListGroupStudents handles GET /groups/{id}/students
func (h *Handler) ListGroupStudents(w http.ResponseWriter, r *http.Request) {
	id := resourceID(r)
	group, students, err := h.Service.ListGroupStudents(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, GroupStudentsResponse{Group: *group, Students: students})
}

// resourceID prefers the id already checked by the resource middleware.
func resourceID(r *http.Request) string {
	if id := errors.ResourceIDFromContext(r.Context()); id != "" {
		return id
	}
	return chi.URLParam(r, "id")
}
