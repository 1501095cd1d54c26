package translation

import (
	"context"
	"errors"
	"regexp"
	"time"

	translationDatamodel "github.com/frahmantamala/school-management/internal/core/datamodel/translation"
)

// KeyPattern accepts dot paths such as "dashboard.welcome_title".
var KeyPattern = regexp.MustCompile(`^[a-z][a-zA-Z0-9_]*(\.[a-zA-Z0-9_]+)*$`)

// NamespacePattern is the shape of a category, and so of an export file name.
var NamespacePattern = regexp.MustCompile(`^[a-z][a-zA-Z0-9_-]*$`)

var (
	ErrKeyNotFound  = errors.New("translation: key not found")
	ErrDuplicateKey = errors.New("translation: key already exists")
)

// Capabilities describes which publish-related schema objects the database has.
// Older databases may lag behind the migrations that add them.
type Capabilities struct {
	PublishFlag    bool `json:"publish_flag"`
	PublicationLog bool `json:"publication_log"`
}

// FullCapabilities is the schema produced by every migration.
func FullCapabilities() Capabilities {
	return Capabilities{PublishFlag: true, PublicationLog: true}
}

// Entry is one translated string joined with its key and language.
type Entry struct {
	TranslationID string
	KeyID         string
	Key           string
	Category      *string
	LanguageCode  string
	Text          string
	IsApproved    bool
	IsPublished   bool
	PublishedAt   *time.Time
}

func (e Entry) Namespace() string {
	return translationDatamodel.NamespaceOf(e.Category)
}

type KeyFilter struct {
	Category string
	Search   string
}

// KeyFields holds the editable columns of a key. Nil pointers are left untouched on update.
type KeyFields struct {
	Key         *string
	EnglishText *string
	Description *string
	Category    *string
}

// PublishBatch is the publication row written by one publish run.
type PublishBatch struct {
	Version     string
	PublishedBy string
	Notes       *string
	Status      translationDatamodel.DeploymentStatus
	PublishedAt time.Time
}

type PendingCounts struct {
	ApprovedUnpublished int64 `json:"approved_unpublished"`
	Unapproved          int64 `json:"unapproved"`
}

// RepositoryAPI returns nil, nil for unknown ids or codes.
type RepositoryAPI interface {
	ListLanguages(ctx context.Context, activeOnly bool) ([]translationDatamodel.Language, error)
	FindLanguage(ctx context.Context, code string) (*translationDatamodel.Language, error)

	ListKeys(ctx context.Context, filter KeyFilter) ([]translationDatamodel.TranslationKey, error)
	GetKey(ctx context.Context, id string) (*translationDatamodel.TranslationKey, error)
	KeyExists(ctx context.Context, key string, excludeID string) (bool, error)
	CreateKey(ctx context.Context, key *translationDatamodel.TranslationKey) error
	UpdateKey(ctx context.Context, id string, fields KeyFields) error
	DeleteKey(ctx context.Context, id string) error
	UpsertTranslation(ctx context.Context, row *translationDatamodel.Translation) error

	// ApprovedEntries lists approved strings of one language, optionally limited to a namespace.
	ApprovedEntries(ctx context.Context, languageCode, namespace string) ([]Entry, error)
	// ExportEntries lists every string of every language regardless of approval or
	// language status; the exporter decides which languages get files.
	ExportEntries(ctx context.Context) ([]Entry, error)
}

// PublishRepositoryAPI owns the publish transaction and the publication log.
type PublishRepositoryAPI interface {
	Publish(ctx context.Context, caps Capabilities, batch PublishBatch) (delta []Entry, publicationID string, err error)
	SetDeploymentStatus(ctx context.Context, publicationID string, status translationDatamodel.DeploymentStatus, jobID string) error
	ListPublications(ctx context.Context, limit int) ([]translationDatamodel.TranslationPublication, error)
	PendingCounts(ctx context.Context, caps Capabilities) (PendingCounts, error)
}
