package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	translationDatamodel "github.com/frahmantamala/school-management/internal/core/datamodel/translation"
	"github.com/frahmantamala/school-management/internal/translation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// publishColumns only exist once the publish-flag migration ran.
var publishColumns = []string{"is_published", "published_at"}

type TranslationRepository struct {
	db   *gorm.DB
	caps translation.Capabilities
}

func NewTranslationRepository(db *gorm.DB, caps translation.Capabilities) *TranslationRepository {
	return &TranslationRepository{db: db, caps: caps}
}

var _ translation.RepositoryAPI = (*TranslationRepository)(nil)

func (r *TranslationRepository) ListLanguages(ctx context.Context, activeOnly bool) ([]translationDatamodel.Language, error) {
	var langs []translationDatamodel.Language
	q := r.db.WithContext(ctx)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Order("is_default DESC, code ASC").Find(&langs).Error
	return langs, err
}

func (r *TranslationRepository) FindLanguage(ctx context.Context, code string) (*translationDatamodel.Language, error) {
	var lang translationDatamodel.Language
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&lang).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lang, nil
}

func (r *TranslationRepository) ListKeys(ctx context.Context, filter translation.KeyFilter) ([]translationDatamodel.TranslationKey, error) {
	var keys []translationDatamodel.TranslationKey
	q := r.db.WithContext(ctx).
		Preload("Translations", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Translations.Language")

	if filter.Category != "" {
		q = namespaceScope(q, "translation_keys.category", filter.Category)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		q = q.Where("LOWER(key) LIKE ? OR LOWER(english_text) LIKE ?", like, like)
	}

	err := q.Order("key ASC").Find(&keys).Error
	return keys, err
}

func (r *TranslationRepository) GetKey(ctx context.Context, id string) (*translationDatamodel.TranslationKey, error) {
	var k translationDatamodel.TranslationKey
	err := r.db.WithContext(ctx).
		Preload("Translations", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Translations.Language").
		Where("id = ?", id).
		First(&k).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &k, nil
}

func (r *TranslationRepository) KeyExists(ctx context.Context, key string, excludeID string) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&translationDatamodel.TranslationKey{}).Where("key = ?", key)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Count(&count).Error
	return count > 0, err
}

func (r *TranslationRepository) CreateKey(ctx context.Context, key *translationDatamodel.TranslationKey) error {
	rows := key.Translations
	key.Translations = nil
	defer func() { key.Translations = rows }()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(key).Error; err != nil {
			return mapDuplicate(err)
		}
		for i := range rows {
			rows[i].TranslationKeyID = key.ID
			if err := r.insertTranslation(tx, &rows[i]); err != nil {
				return fmt.Errorf("create translation %s: %w", rows[i].LanguageID, err)
			}
		}
		return nil
	})
}

func (r *TranslationRepository) UpdateKey(ctx context.Context, id string, fields translation.KeyFields) error {
	updates := map[string]interface{}{"updated_at": time.Now()}
	if fields.Key != nil {
		updates["key"] = *fields.Key
	}
	if fields.EnglishText != nil {
		updates["english_text"] = *fields.EnglishText
	}
	if fields.Description != nil {
		updates["description"] = nilIfEmpty(*fields.Description)
	}
	if fields.Category != nil {
		updates["category"] = nilIfEmpty(*fields.Category)
	}

	res := r.db.WithContext(ctx).
		Model(&translationDatamodel.TranslationKey{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return mapDuplicate(res.Error)
	}
	if res.RowsAffected == 0 {
		return translation.ErrKeyNotFound
	}
	return nil
}

func (r *TranslationRepository) DeleteKey(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("translation_key_id = ?", id).Delete(&translationDatamodel.Translation{}).Error; err != nil {
			return fmt.Errorf("delete translations of %s: %w", id, err)
		}
		res := tx.Where("id = ?", id).Delete(&translationDatamodel.TranslationKey{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return translation.ErrKeyNotFound
		}
		return nil
	})
}

// UpsertTranslation inserts or replaces the text for (key, language). A changed text
// is no longer published, so the next publish picks it up again.
func (r *TranslationRepository) UpsertTranslation(ctx context.Context, row *translationDatamodel.Translation) error {
	return r.insertTranslation(r.db.WithContext(ctx), row)
}

func (r *TranslationRepository) insertTranslation(tx *gorm.DB, row *translationDatamodel.Translation) error {
	updates := []string{"text", "is_approved", "updated_at"}
	omit := []string{"TranslationKey", "Language"}
	if r.caps.PublishFlag {
		row.IsPublished = false
		row.PublishedAt = nil
		updates = append(updates, publishColumns...)
	} else {
		omit = append(omit, publishColumns...)
	}
	return tx.Omit(omit...).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "translation_key_id"}, {Name: "language_id"}},
		DoUpdates: clause.AssignmentColumns(updates),
	}).Create(row).Error
}

func (r *TranslationRepository) ApprovedEntries(ctx context.Context, languageCode, namespace string) ([]translation.Entry, error) {
	q := entryQuery(r.db.WithContext(ctx), r.caps).
		Where("l.code = ? AND t.is_approved = ?", languageCode, true)
	if namespace != "" {
		q = namespaceScope(q, "k.category", namespace)
	}

	var entries []translation.Entry
	if err := q.Order("k.key ASC").Scan(&entries).Error; err != nil {
		return nil, fmt.Errorf("load approved translations: %w", err)
	}
	return entries, nil
}

func (r *TranslationRepository) ExportEntries(ctx context.Context) ([]translation.Entry, error) {
	var entries []translation.Entry
	err := entryQuery(r.db.WithContext(ctx), r.caps).
		Order("l.code ASC, k.key ASC").
		Scan(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("load translations for export: %w", err)
	}
	return entries, nil
}

func entryQuery(db *gorm.DB, caps translation.Capabilities) *gorm.DB {
	columns := "t.id AS translation_id, k.id AS key_id, k.key AS key, k.category AS category, " +
		"l.code AS language_code, t.text AS text, t.is_approved AS is_approved"
	if caps.PublishFlag {
		columns += ", t.is_published AS is_published, t.published_at AS published_at"
	}
	return db.Table("translations AS t").
		Select(columns).
		Joins("JOIN translation_keys k ON k.id = t.translation_key_id").
		Joins("JOIN languages l ON l.id = t.language_id")
}

// namespaceScope matches keys whose category maps to namespace; category-less keys
// belong to the default namespace.
func namespaceScope(q *gorm.DB, column, namespace string) *gorm.DB {
	if namespace == translationDatamodel.DefaultNamespace {
		return q.Where(fmt.Sprintf("(%[1]s IS NULL OR %[1]s = '' OR %[1]s = ?)", column), namespace)
	}
	return q.Where(column+" = ?", namespace)
}

func mapDuplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", translation.ErrDuplicateKey, err)
	}
	return err
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
