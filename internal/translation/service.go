package translation

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sort"

	errors "github.com/frahmantamala/school-management/internal"
	translationDatamodel "github.com/frahmantamala/school-management/internal/core/datamodel/translation"
	"github.com/frahmantamala/school-management/internal/core/events"
)

// EventPublisher is the part of the event bus the service needs.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	repo   RepositoryAPI
	cache  NamespaceCache
	bus    EventPublisher
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, cache NamespaceCache, bus EventPublisher, logger *slog.Logger) *Service {
	if cache == nil {
		cache = NoopCache{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		cache:  cache,
		bus:    bus,
		logger: logger,
	}
}

// Flat returns every approved string of a language keyed by its full key.
func (s *Service) Flat(ctx context.Context, language string) (map[string]string, error) {
	if _, err := s.language(ctx, language); err != nil {
		return nil, err
	}
	entries, err := s.repo.ApprovedEntries(ctx, language, "")
	if err != nil {
		return nil, errors.NewInternalError("Failed to load translations", err)
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Text
	}
	return out, nil
}

// Namespace returns the nested object for one namespace, served from the cache when possible.
func (s *Service) Namespace(ctx context.Context, namespace, language string) (map[string]any, error) {
	if !NamespacePattern.MatchString(namespace) {
		return nil, errors.NewValidationFieldError("namespace", msgInvalidNamespace, errors.ErrCodeValidationFailed)
	}

	cached, ok, err := s.cache.Get(ctx, namespace, language)
	if err != nil {
		s.logger.Warn("translation cache read failed", "namespace", namespace, "language", language, "error", err)
	}
	if ok {
		return cached, nil
	}

	if _, err := s.language(ctx, language); err != nil {
		return nil, err
	}
	entries, err := s.repo.ApprovedEntries(ctx, language, namespace)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load translations", err)
	}
	flat := make(map[string]string, len(entries))
	for _, e := range entries {
		flat[e.Key] = e.Text
	}
	value := BuildNamespace(namespace, flat)

	if err := s.cache.Set(ctx, namespace, language, value); err != nil {
		s.logger.Warn("translation cache write failed", "namespace", namespace, "language", language, "error", err)
	}
	return value, nil
}

func (s *Service) Languages(ctx context.Context) ([]LanguageResponse, error) {
	langs, err := s.repo.ListLanguages(ctx, true)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load languages", err)
	}
	out := make([]LanguageResponse, 0, len(langs))
	for _, l := range langs {
		out = append(out, toLanguageResponse(l))
	}
	return out, nil
}

func (s *Service) ListKeys(ctx context.Context, filter KeyFilter) ([]KeyResponse, error) {
	keys, err := s.repo.ListKeys(ctx, filter)
	if err != nil {
		return nil, errors.NewInternalError("Failed to list translation keys", err)
	}
	codes, err := s.languageCodes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]KeyResponse, 0, len(keys))
	for i := range keys {
		out = append(out, toKeyResponse(&keys[i], codes))
	}
	return out, nil
}

func (s *Service) GetKey(ctx context.Context, id string) (*KeyResponse, error) {
	k, err := s.loadKey(ctx, id)
	if err != nil {
		return nil, err
	}
	codes, err := s.languageCodes(ctx)
	if err != nil {
		return nil, err
	}
	resp := toKeyResponse(k, codes)
	return &resp, nil
}

func (s *Service) CreateKey(ctx context.Context, req CreateKeyRequest) (*KeyResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	exists, err := s.repo.KeyExists(ctx, req.Key, "")
	if err != nil {
		return nil, errors.NewInternalError("Failed to check translation key", err)
	}
	if exists {
		return nil, errors.ErrDuplicateKey
	}

	rows, err := s.translationRows(ctx, req.Translations)
	if err != nil {
		return nil, err
	}
	k := &translationDatamodel.TranslationKey{
		Key:          req.Key,
		EnglishText:  req.EnglishText,
		Description:  req.Description,
		Category:     emptyToNil(req.Category),
		Translations: rows,
	}
	if err := s.repo.CreateKey(ctx, k); err != nil {
		if stderrors.Is(err, ErrDuplicateKey) {
			return nil, errors.ErrDuplicateKey
		}
		s.logger.Error("failed to create translation key", "key", req.Key, "error", err)
		return nil, errors.NewInternalError("Failed to create translation key", err)
	}

	s.changed(ctx, k.ID, k.Key, k.Namespace())
	return s.GetKey(ctx, k.ID)
}

func (s *Service) UpdateKey(ctx context.Context, id string, req UpdateKeyRequest) (*KeyResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	current, err := s.loadKey(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Key != nil && *req.Key != current.Key {
		exists, err := s.repo.KeyExists(ctx, *req.Key, id)
		if err != nil {
			return nil, errors.NewInternalError("Failed to check translation key", err)
		}
		if exists {
			return nil, errors.ErrDuplicateKey
		}
	}

	fields := KeyFields{
		Key:         req.Key,
		EnglishText: req.EnglishText,
		Description: req.Description,
		Category:    req.Category,
	}
	if err := s.repo.UpdateKey(ctx, id, fields); err != nil {
		switch {
		case stderrors.Is(err, ErrKeyNotFound):
			return nil, errors.ErrTranslationKeyMissing
		case stderrors.Is(err, ErrDuplicateKey):
			return nil, errors.ErrDuplicateKey
		}
		return nil, errors.NewInternalError("Failed to update translation key", err)
	}

	rows, err := s.translationRows(ctx, req.Translations)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].TranslationKeyID = id
		if err := s.repo.UpsertTranslation(ctx, &rows[i]); err != nil {
			return nil, errors.NewInternalError("Failed to save translation", err)
		}
	}

	namespaces := []string{current.Namespace()}
	if req.Category != nil {
		if next := translationDatamodel.NamespaceOf(req.Category); next != current.Namespace() {
			namespaces = append(namespaces, next)
		}
	}
	key := current.Key
	if req.Key != nil {
		key = *req.Key
	}
	s.changed(ctx, id, key, namespaces...)
	return s.GetKey(ctx, id)
}

func (s *Service) DeleteKey(ctx context.Context, id string) error {
	current, err := s.loadKey(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteKey(ctx, id); err != nil {
		if stderrors.Is(err, ErrKeyNotFound) {
			return errors.ErrTranslationKeyMissing
		}
		return errors.NewInternalError("Failed to delete translation key", err)
	}
	s.changed(ctx, id, current.Key, current.Namespace())
	return nil
}

// UpsertTranslation sets the text of one key in one language. An omitted approval flag
// keeps the stored value for existing rows and defaults to unapproved for new ones.
func (s *Service) UpsertTranslation(ctx context.Context, keyID, language string, req UpsertTranslationRequest) (*KeyResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	k, err := s.loadKey(ctx, keyID)
	if err != nil {
		return nil, err
	}
	lang, err := s.language(ctx, language)
	if err != nil {
		return nil, err
	}

	row := translationDatamodel.Translation{
		TranslationKeyID: keyID,
		LanguageID:       lang.ID,
		Text:             req.Text,
	}
	for _, t := range k.Translations {
		if t.LanguageID == lang.ID {
			row.IsApproved = t.IsApproved
		}
	}
	if req.IsApproved != nil {
		row.IsApproved = *req.IsApproved
	}
	if err := s.repo.UpsertTranslation(ctx, &row); err != nil {
		return nil, errors.NewInternalError("Failed to save translation", err)
	}

	s.changed(ctx, k.ID, k.Key, k.Namespace())
	return s.GetKey(ctx, keyID)
}

func (s *Service) loadKey(ctx context.Context, id string) (*translationDatamodel.TranslationKey, error) {
	k, err := s.repo.GetKey(ctx, id)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load translation key", err)
	}
	if k == nil {
		return nil, errors.ErrTranslationKeyMissing
	}
	return k, nil
}

func (s *Service) language(ctx context.Context, code string) (*translationDatamodel.Language, error) {
	if code == "" {
		return nil, errors.NewValidationFieldError("language", "language is required", errors.ErrCodeInvalidLanguage)
	}
	lang, err := s.repo.FindLanguage(ctx, code)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load language", err)
	}
	if lang == nil || !lang.IsActive {
		return nil, errors.ErrLanguageNotFound
	}
	return lang, nil
}

func (s *Service) languageCodes(ctx context.Context) (map[string]string, error) {
	langs, err := s.repo.ListLanguages(ctx, false)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load languages", err)
	}
	codes := make(map[string]string, len(langs))
	for _, l := range langs {
		codes[l.ID] = l.Code
	}
	return codes, nil
}

func (s *Service) translationRows(ctx context.Context, inputs map[string]TranslationInput) ([]translationDatamodel.Translation, error) {
	codes := make([]string, 0, len(inputs))
	for code := range inputs {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	rows := make([]translationDatamodel.Translation, 0, len(inputs))
	for _, code := range codes {
		in := inputs[code]
		if in.Text == "" {
			continue
		}
		lang, err := s.language(ctx, code)
		if err != nil {
			return nil, err
		}
		rows = append(rows, translationDatamodel.Translation{
			LanguageID: lang.ID,
			Text:       in.Text,
			IsApproved: in.IsApproved,
		})
	}
	return rows, nil
}

// changed announces an edit so caches drop the affected namespaces.
func (s *Service) changed(ctx context.Context, keyID, key string, namespaces ...string) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, events.NewTranslationChangedEvent(keyID, key, namespaces...)); err != nil {
		s.logger.Warn("failed to publish translation change", "key", key, "error", err)
	}
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
