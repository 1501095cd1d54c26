package translation

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	errors "github.com/frahmantamala/school-management/internal"
	"github.com/frahmantamala/school-management/internal/i18n"
	"github.com/frahmantamala/school-management/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	Flat(ctx context.Context, language string) (map[string]string, error)
	Namespace(ctx context.Context, namespace, language string) (map[string]any, error)
	Languages(ctx context.Context) ([]LanguageResponse, error)
	ListKeys(ctx context.Context, filter KeyFilter) ([]KeyResponse, error)
	GetKey(ctx context.Context, id string) (*KeyResponse, error)
	CreateKey(ctx context.Context, req CreateKeyRequest) (*KeyResponse, error)
	UpdateKey(ctx context.Context, id string, req UpdateKeyRequest) (*KeyResponse, error)
	DeleteKey(ctx context.Context, id string) error
	UpsertTranslation(ctx context.Context, keyID, language string, req UpsertTranslationRequest) (*KeyResponse, error)
}

type PublisherAPI interface {
	Publish(ctx context.Context, req PublishRequest) (*PublishResult, error)
	History(ctx context.Context, limit int) (*HistoryResponse, error)
}

type CMSAPI interface {
	Publish(ctx context.Context, deploy bool) (*CMSPublishResponse, error)
}

type Handler struct {
	*transport.BaseHandler
	Service   ServiceAPI
	Publisher PublisherAPI
	CMS       CMSAPI
}

func NewHandler(service ServiceAPI, publisher PublisherAPI, cms CMSAPI, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
		Publisher:   publisher,
		CMS:         cms,
	}
}

// languageParam reduces ?language= to its base language, so en-BE reads en.
func languageParam(r *http.Request) string {
	return i18n.BaseLanguage(r.URL.Query().Get("language"))
}

// Flat handles GET /translations
func (h *Handler) Flat(w http.ResponseWriter, r *http.Request) {
	out, err := h.Service.Flat(r.Context(), languageParam(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, out)
}

// Languages handles GET /translations/languages
func (h *Handler) Languages(w http.ResponseWriter, r *http.Request) {
	langs, err := h.Service.Languages(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, langs)
}

// Namespace handles GET /translations/namespace/{namespace}
func (h *Handler) Namespace(w http.ResponseWriter, r *http.Request) {
	ns := chi.URLParam(r, "namespace")
	out, err := h.Service.Namespace(r.Context(), ns, languageParam(r))
	if err != nil {
		h.Logger.Warn("Namespace: failed", "namespace", ns, "error", err)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, out)
}

// ListKeys handles GET /translations/keys
func (h *Handler) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.Service.ListKeys(r.Context(), KeyFilter{
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("search"),
	})
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, KeysResponse{Keys: keys})
}

// GetKey handles GET /translations/keys/{id}
func (h *Handler) GetKey(w http.ResponseWriter, r *http.Request) {
	k, err := h.Service.GetKey(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, k)
}

// CreateKey handles POST /translations/keys
func (h *Handler) CreateKey(w http.ResponseWriter, r *http.Request) {
	var req CreateKeyRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.Logger.Warn("CreateKey: invalid request body", "error", err)
		h.WriteAppError(w, errors.NewValidationError("Invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	k, err := h.Service.CreateKey(r.Context(), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.Logger.Info("CreateKey: translation key created", "key", k.Key, "user_id", errors.UserIDFromContext(r.Context()))
	h.WriteJSON(w, http.StatusCreated, k)
}

// UpdateKey handles PUT /translations/keys/{id}
func (h *Handler) UpdateKey(w http.ResponseWriter, r *http.Request) {
	var req UpdateKeyRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.Logger.Warn("UpdateKey: invalid request body", "error", err)
		h.WriteAppError(w, errors.NewValidationError("Invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	k, err := h.Service.UpdateKey(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, k)
}

// DeleteKey handles DELETE /translations/keys/{id}
func (h *Handler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteKey(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpsertTranslation handles PUT /translations/keys/{id}/translations/{language}
func (h *Handler) UpsertTranslation(w http.ResponseWriter, r *http.Request) {
	var req UpsertTranslationRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.Logger.Warn("UpsertTranslation: invalid request body", "error", err)
		h.WriteAppError(w, errors.NewValidationError("Invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	k, err := h.Service.UpsertTranslation(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "language"), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, k)
}

// Publish handles POST /translations/publish
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	if err := h.DecodeJSON(r, &req); err != nil && !stderrors.Is(err, io.EOF) {
		h.Logger.Warn("Publish: invalid request body", "error", err)
		h.WriteAppError(w, errors.NewValidationError("Invalid request body", errors.ErrCodeValidationFailed))
		return
	}
	req.PublishedBy = errors.UserIDFromContext(r.Context())

	res, err := h.Publisher.Publish(r.Context(), req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, res)
}

// History handles GET /translations/publish
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	res, err := h.Publisher.History(r.Context(), limit)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, res)
}

// CMSPublish handles POST /cms/publish
func (h *Handler) CMSPublish(w http.ResponseWriter, r *http.Request) {
	var req CMSPublishRequest
	if err := h.DecodeJSON(r, &req); err != nil && !stderrors.Is(err, io.EOF) {
		h.Logger.Warn("CMSPublish: invalid request body", "error", err)
		h.WriteAppError(w, errors.NewValidationError("Invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	res, err := h.CMS.Publish(r.Context(), req.Deploy)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, res)
}
