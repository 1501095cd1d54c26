package postgres

import (
	"context"
	"fmt"

	translationDatamodel "github.com/frahmantamala/school-management/internal/core/datamodel/translation"
	"github.com/frahmantamala/school-management/internal/translation"
	"gorm.io/gorm"
)

type PublishRepository struct {
	db *gorm.DB
}

func NewPublishRepository(db *gorm.DB) *PublishRepository {
	return &PublishRepository{db: db}
}

var _ translation.PublishRepositoryAPI = (*PublishRepository)(nil)

// Publish reads the delta, flags every approved row and logs the publication in one
// transaction. Steps the schema cannot support are skipped.
func (r *PublishRepository) Publish(ctx context.Context, caps translation.Capabilities, batch translation.PublishBatch) ([]translation.Entry, string, error) {
	var (
		delta         []translation.Entry
		publicationID string
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := entryQuery(tx, caps).Where("t.is_approved = ?", true)
		if caps.PublishFlag {
			q = q.Where("t.is_published = ?", false)
		}
		if err := q.Order("l.code ASC, k.key ASC").Scan(&delta).Error; err != nil {
			return fmt.Errorf("load publish delta: %w", err)
		}

		if caps.PublishFlag {
			err := tx.Model(&translationDatamodel.Translation{}).
				Where("is_approved = ?", true).
				Updates(map[string]interface{}{
					"is_published": true,
					"published_at": batch.PublishedAt,
				}).Error
			if err != nil {
				return fmt.Errorf("mark translations published: %w", err)
			}
		}

		if caps.PublicationLog {
			pub := &translationDatamodel.TranslationPublication{
				Version:          batch.Version,
				PublishedBy:      batch.PublishedBy,
				Notes:            batch.Notes,
				DeploymentStatus: batch.Status,
				CreatedAt:        batch.PublishedAt,
			}
			if err := tx.Create(pub).Error; err != nil {
				return fmt.Errorf("record publication: %w", err)
			}
			publicationID = pub.ID
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return delta, publicationID, nil
}

// SetDeploymentStatus records the build state; an empty jobID leaves the stored job untouched.
func (r *PublishRepository) SetDeploymentStatus(ctx context.Context, publicationID string, status translationDatamodel.DeploymentStatus, jobID string) error {
	updates := map[string]interface{}{"deployment_status": status}
	if jobID != "" {
		updates["deployment_job_id"] = jobID
	}
	return r.db.WithContext(ctx).
		Model(&translationDatamodel.TranslationPublication{}).
		Where("id = ?", publicationID).
		Updates(updates).Error
}

func (r *PublishRepository) ListPublications(ctx context.Context, limit int) ([]translationDatamodel.TranslationPublication, error) {
	var rows []translationDatamodel.TranslationPublication
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// PendingCounts reports approved strings not yet published, which is every approved
// string when the schema has no publish flag, and strings awaiting approval.
func (r *PublishRepository) PendingCounts(ctx context.Context, caps translation.Capabilities) (translation.PendingCounts, error) {
	var counts translation.PendingCounts

	q := r.db.WithContext(ctx).Model(&translationDatamodel.Translation{}).Where("is_approved = ?", true)
	if caps.PublishFlag {
		q = q.Where("is_published = ?", false)
	}
	if err := q.Count(&counts.ApprovedUnpublished).Error; err != nil {
		return counts, fmt.Errorf("count approved translations: %w", err)
	}

	err := r.db.WithContext(ctx).
		Model(&translationDatamodel.Translation{}).
		Where("is_approved = ?", false).
		Count(&counts.Unapproved).Error
	if err != nil {
		return counts, fmt.Errorf("count unapproved translations: %w", err)
	}
	return counts, nil
}
