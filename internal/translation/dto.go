package translation

import (
	"time"

	errors "github.com/frahmantamala/school-management/internal"
	"github.com/frahmantamala/school-management/internal/core/common/validation"
	translationDatamodel "github.com/frahmantamala/school-management/internal/core/datamodel/translation"
)

const (
	msgInvalidKey       = "key must be a dot path of lowercase-led segments, e.g. dashboard.title"
	msgInvalidNamespace = "category must start with a lowercase letter and contain only letters, digits, '_' or '-'"
)

type TranslationInput struct {
	Text       string `json:"text"`
	IsApproved bool   `json:"is_approved"`
}

type CreateKeyRequest struct {
	Key          string                      `json:"key"`
	EnglishText  string                      `json:"english_text"`
	Description  *string                     `json:"description,omitempty"`
	Category     *string                     `json:"category,omitempty"`
	Translations map[string]TranslationInput `json:"translations,omitempty"`
}

func (r CreateKeyRequest) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("key", r.Key).Required().MaxLength(255).Matches(KeyPattern, msgInvalidKey, errors.ErrCodeInvalidKey)
	v.Field("english_text", r.EnglishText).Required()
	v.Field("category", r.Category).Matches(NamespacePattern, msgInvalidNamespace, errors.ErrCodeValidationFailed)
	return v.Validate()
}

type UpdateKeyRequest struct {
	Key          *string                     `json:"key,omitempty"`
	EnglishText  *string                     `json:"english_text,omitempty"`
	Description  *string                     `json:"description,omitempty"`
	Category     *string                     `json:"category,omitempty"`
	Translations map[string]TranslationInput `json:"translations,omitempty"`
}

func (r UpdateKeyRequest) Validate() *errors.AppError {
	v := validation.NewValidator()
	if r.Key != nil {
		v.Field("key", *r.Key).Required().MaxLength(255).Matches(KeyPattern, msgInvalidKey, errors.ErrCodeInvalidKey)
	}
	if r.EnglishText != nil {
		v.Field("english_text", *r.EnglishText).Required()
	}
	v.Field("category", r.Category).Matches(NamespacePattern, msgInvalidNamespace, errors.ErrCodeValidationFailed)
	return v.Validate()
}

type UpsertTranslationRequest struct {
	Text       string `json:"text"`
	IsApproved *bool  `json:"is_approved,omitempty"`
}

func (r UpsertTranslationRequest) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("text", r.Text).Required()
	return v.Validate()
}

type TranslationResponse struct {
	ID          string     `json:"id"`
	Language    string     `json:"language"`
	Text        string     `json:"text"`
	IsApproved  bool       `json:"is_approved"`
	IsPublished bool       `json:"is_published"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

type KeyResponse struct {
	ID           string                `json:"id"`
	Key          string                `json:"key"`
	EnglishText  string                `json:"english_text"`
	Description  *string               `json:"description,omitempty"`
	Category     *string               `json:"category,omitempty"`
	Namespace    string                `json:"namespace"`
	Translations []TranslationResponse `json:"translations"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

type KeysResponse struct {
	Keys []KeyResponse `json:"keys"`
}

type LanguageResponse struct {
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	NativeName string  `json:"native_name"`
	Flag       *string `json:"flag,omitempty"`
	IsDefault  bool    `json:"is_default"`
}

type PublishRequest struct {
	PublishedBy string  `json:"-"`
	Notes       *string `json:"notes,omitempty"`
	Deploy      bool    `json:"deploy"`
}

type PublishedEntry struct {
	Key       string `json:"key"`
	Language  string `json:"language"`
	Namespace string `json:"namespace"`
	Text      string `json:"text"`
}

type PublishResult struct {
	Version             string           `json:"version"`
	PublishedCount      int              `json:"published_count"`
	NewTranslations     []PublishedEntry `json:"new_translations"`
	PublicationID       string           `json:"publication_id"`
	DeploymentTriggered bool             `json:"deployment_triggered"`
	DeploymentJobID     string           `json:"deployment_job_id,omitempty"`
}

type PublicationResponse struct {
	ID               string                                `json:"id"`
	Version          string                                `json:"version"`
	PublishedBy      string                                `json:"published_by"`
	Notes            *string                               `json:"notes,omitempty"`
	DeploymentStatus translationDatamodel.DeploymentStatus `json:"deployment_status"`
	DeploymentJobID  *string                               `json:"deployment_job_id,omitempty"`
	CreatedAt        time.Time                             `json:"created_at"`
}

type HistoryResponse struct {
	Publications []PublicationResponse `json:"publications"`
	Pending      PendingCounts         `json:"pending"`
	Capabilities Capabilities          `json:"capabilities"`
}

type CMSPublishRequest struct {
	Deploy bool `json:"deploy"`
}

type CMSPublishResponse struct {
	Summary             *ExportSummary `json:"summary"`
	DeploymentTriggered bool           `json:"deployment_triggered"`
	DeploymentJobID     string         `json:"deployment_job_id,omitempty"`
}

func toKeyResponse(k *translationDatamodel.TranslationKey, languages map[string]string) KeyResponse {
	resp := KeyResponse{
		ID:           k.ID,
		Key:          k.Key,
		EnglishText:  k.EnglishText,
		Description:  k.Description,
		Category:     k.Category,
		Namespace:    k.Namespace(),
		Translations: make([]TranslationResponse, 0, len(k.Translations)),
		CreatedAt:    k.CreatedAt,
		UpdatedAt:    k.UpdatedAt,
	}
	for _, t := range k.Translations {
		code := languages[t.LanguageID]
		if t.Language != nil {
			code = t.Language.Code
		}
		resp.Translations = append(resp.Translations, TranslationResponse{
			ID:          t.ID,
			Language:    code,
			Text:        t.Text,
			IsApproved:  t.IsApproved,
			IsPublished: t.IsPublished,
			PublishedAt: t.PublishedAt,
		})
	}
	return resp
}

func toLanguageResponse(l translationDatamodel.Language) LanguageResponse {
	return LanguageResponse{
		Code:       l.Code,
		Name:       l.Name,
		NativeName: l.NativeName,
		Flag:       l.Flag,
		IsDefault:  l.IsDefault,
	}
}

func toPublicationResponse(p translationDatamodel.TranslationPublication) PublicationResponse {
	return PublicationResponse{
		ID:               p.ID,
		Version:          p.Version,
		PublishedBy:      p.PublishedBy,
		Notes:            p.Notes,
		DeploymentStatus: p.DeploymentStatus,
		DeploymentJobID:  p.DeploymentJobID,
		CreatedAt:        p.CreatedAt,
	}
}
