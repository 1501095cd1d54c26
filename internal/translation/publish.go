package translation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	errors "github.com/frahmantamala/school-management/internal"
	translationDatamodel "github.com/frahmantamala/school-management/internal/core/datamodel/translation"
	"github.com/frahmantamala/school-management/internal/core/events"
	"github.com/frahmantamala/school-management/internal/deployhook"
	"github.com/frahmantamala/school-management/internal/observability"
	"github.com/google/uuid"
)

// MockPublicationPrefix marks publication ids that were never persisted.
const MockPublicationPrefix = "mock-"

// DeployHook triggers a rebuild of the site that bundles exported translations.
type DeployHook interface {
	Enabled() bool
	Trigger(ctx context.Context, meta deployhook.Meta) (*deployhook.Result, error)
}

type Publisher struct {
	repo    PublishRepositoryAPI
	caps    Capabilities
	hook    DeployHook
	bus     EventPublisher
	logger  *slog.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

type PublisherOption func(*Publisher)

func WithPublisherClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) {
		p.now = now
	}
}

func WithPublisherMetrics(m *observability.Metrics) PublisherOption {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func WithPublisherEvents(bus EventPublisher) PublisherOption {
	return func(p *Publisher) {
		p.bus = bus
	}
}

func NewPublisher(repo PublishRepositoryAPI, caps Capabilities, hook DeployHook, logger *slog.Logger, opts ...PublisherOption) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{
		repo:   repo,
		caps:   caps,
		hook:   hook,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Version derives the publication version token from t.
func Version(t time.Time) string {
	return fmt.Sprintf("v%d", t.UnixMilli())
}

// Publish marks approved translations as published and records a publication.
// The deploy hook runs after the transaction; its failure never undoes the publish.
func (p *Publisher) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	now := p.now().UTC()
	version := Version(now)
	deploy := req.Deploy && p.hook != nil && p.hook.Enabled()

	status := translationDatamodel.DeploymentSkipped
	if deploy {
		status = translationDatamodel.DeploymentPending
	}
	publishedBy := req.PublishedBy
	if publishedBy == "" {
		publishedBy = "system"
	}

	delta, publicationID, err := p.repo.Publish(ctx, p.caps, PublishBatch{
		Version:     version,
		PublishedBy: publishedBy,
		Notes:       req.Notes,
		Status:      status,
		PublishedAt: now,
	})
	if err != nil {
		p.metrics.RecordPublish(err, 0)
		p.logger.Error("publish failed", "version", version, "error", err)
		return nil, errors.NewInternalError("Failed to publish translations", err)
	}
	if !p.caps.PublicationLog || publicationID == "" {
		publicationID = MockPublicationPrefix + uuid.NewString()
	}

	result := &PublishResult{
		Version:         version,
		PublishedCount:  len(delta),
		NewTranslations: make([]PublishedEntry, 0, len(delta)),
		PublicationID:   publicationID,
	}
	for _, e := range delta {
		result.NewTranslations = append(result.NewTranslations, PublishedEntry{
			Key:       e.Key,
			Language:  e.LanguageCode,
			Namespace: e.Namespace(),
			Text:      e.Text,
		})
	}
	p.metrics.RecordPublish(nil, result.PublishedCount)
	p.logger.Info("translations published",
		"version", version,
		"published_count", result.PublishedCount,
		"publication_id", publicationID,
		"published_by", publishedBy)

	if deploy {
		result.DeploymentJobID, result.DeploymentTriggered = p.deploy(ctx, version, publicationID)
	}

	if p.bus != nil {
		if err := p.bus.Publish(ctx, events.NewTranslationPublishedEvent(version, publicationID, result.PublishedCount)); err != nil {
			p.logger.Warn("failed to announce publication", "version", version, "error", err)
		}
	}
	return result, nil
}

func (p *Publisher) deploy(ctx context.Context, version, publicationID string) (string, bool) {
	res, err := p.hook.Trigger(ctx, deployhook.Meta{
		TranslationVersion: version,
		PublicationID:      publicationID,
	})
	p.metrics.RecordDeployHook(err)

	status := translationDatamodel.DeploymentBuilding
	var jobID string
	if err == nil && res != nil {
		jobID = res.JobID
	}
	if err != nil {
		status = translationDatamodel.DeploymentFailed
		p.logger.Error("deploy hook failed", "version", version, "publication_id", publicationID, "error", err)
	}

	if !strings.HasPrefix(publicationID, MockPublicationPrefix) {
		if serr := p.repo.SetDeploymentStatus(ctx, publicationID, status, jobID); serr != nil {
			p.logger.Error("failed to record deployment status", "publication_id", publicationID, "status", status, "error", serr)
		}
	}
	return jobID, err == nil
}

// History lists recent publications, newest first, with counts of strings still waiting.
func (p *Publisher) History(ctx context.Context, limit int) (*HistoryResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	resp := &HistoryResponse{
		Publications: []PublicationResponse{},
		Capabilities: p.caps,
	}
	if p.caps.PublicationLog {
		rows, err := p.repo.ListPublications(ctx, limit)
		if err != nil {
			return nil, errors.NewInternalError("Failed to load publication history", err)
		}
		for _, row := range rows {
			resp.Publications = append(resp.Publications, toPublicationResponse(row))
		}
	}

	pending, err := p.repo.PendingCounts(ctx, p.caps)
	if err != nil {
		return nil, errors.NewInternalError("Failed to count pending translations", err)
	}
	resp.Pending = pending
	return resp, nil
}
