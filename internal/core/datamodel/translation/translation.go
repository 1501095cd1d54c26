package translation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultNamespace is used for keys without a category.
const DefaultNamespace = "common"

type DeploymentStatus string

const (
	DeploymentPending  DeploymentStatus = "pending"
	DeploymentBuilding DeploymentStatus = "building"
	DeploymentFailed   DeploymentStatus = "failed"
	DeploymentSkipped  DeploymentStatus = "skipped"
)

type Language struct {
	ID         string    `gorm:"primaryKey;size:36"`
	Code       string    `gorm:"column:code;size:16;uniqueIndex;not null"`
	Name       string    `gorm:"column:name;not null"`
	NativeName string    `gorm:"column:native_name;not null"`
	Flag       *string   `gorm:"column:flag"`
	IsActive   bool      `gorm:"column:is_active"`
	IsDefault  bool      `gorm:"column:is_default"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (Language) TableName() string {
	return "languages"
}

func (l *Language) BeforeCreate(_ *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

type TranslationKey struct {
	ID           string        `gorm:"primaryKey;size:36"`
	Key          string        `gorm:"column:key;uniqueIndex;not null"`
	EnglishText  string        `gorm:"column:english_text;not null"`
	Description  *string       `gorm:"column:description"`
	Category     *string       `gorm:"column:category;index"`
	Translations []Translation `gorm:"foreignKey:TranslationKeyID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time     `gorm:"column:created_at"`
	UpdatedAt    time.Time     `gorm:"column:updated_at"`
}

func (TranslationKey) TableName() string {
	return "translation_keys"
}

func (k *TranslationKey) BeforeCreate(_ *gorm.DB) error {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	return nil
}

// Namespace is the export file a key belongs to.
func (k *TranslationKey) Namespace() string {
	return NamespaceOf(k.Category)
}

func NamespaceOf(category *string) string {
	if category == nil || *category == "" {
		return DefaultNamespace
	}
	return *category
}

type Translation struct {
	ID               string          `gorm:"primaryKey;size:36"`
	TranslationKeyID string          `gorm:"column:translation_key_id;size:36;not null;uniqueIndex:idx_translation_key_language"`
	LanguageID       string          `gorm:"column:language_id;size:36;not null;uniqueIndex:idx_translation_key_language"`
	Text             string          `gorm:"column:text;not null"`
	IsApproved       bool            `gorm:"column:is_approved"`
	IsPublished      bool            `gorm:"column:is_published"`
	PublishedAt      *time.Time      `gorm:"column:published_at"`
	TranslationKey   *TranslationKey `gorm:"foreignKey:TranslationKeyID"`
	Language         *Language       `gorm:"foreignKey:LanguageID"`
	CreatedAt        time.Time       `gorm:"column:created_at"`
	UpdatedAt        time.Time       `gorm:"column:updated_at"`
}

func (Translation) TableName() string {
	return "translations"
}

func (t *Translation) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// TranslationPublication is one row per publish action.
type TranslationPublication struct {
	ID               string           `gorm:"primaryKey;size:64"`
	Version          string           `gorm:"column:version;not null;index"`
	PublishedBy      string           `gorm:"column:published_by;not null"`
	Notes            *string          `gorm:"column:notes"`
	DeploymentStatus DeploymentStatus `gorm:"column:deployment_status;size:16;not null"`
	DeploymentJobID  *string          `gorm:"column:deployment_job_id;size:128"`
	CreatedAt        time.Time        `gorm:"column:created_at"`
}

func (TranslationPublication) TableName() string {
	return "translation_publications"
}

func (p *TranslationPublication) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
