package translation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	errors "github.com/frahmantamala/school-management/internal"
	"github.com/frahmantamala/school-management/internal/deployhook"
	"github.com/frahmantamala/school-management/internal/observability"
)

// SummaryFile is the manifest written next to the exported namespaces.
const SummaryFile = "_export-summary.json"

type ExportSummary struct {
	ExportedAt        time.Time      `json:"exportedAt"`
	Location          string         `json:"location"`
	Languages         []string       `json:"languages"`
	Namespaces        []string       `json:"namespaces"`
	FileCount         int            `json:"fileCount"`
	TranslationCount  int            `json:"translationCount"`
	CountsByLanguage  map[string]int `json:"countsByLanguage"`
	CountsByNamespace map[string]int `json:"countsByNamespace"`
}

// Exporter writes {lang}/{namespace}.json for every active language and every
// namespace seen in any language, so all languages carry the same file set.
type Exporter struct {
	repo    RepositoryAPI
	sink    Sink
	logger  *slog.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

func NewExporter(repo RepositoryAPI, sink Sink, logger *slog.Logger, metrics *observability.Metrics) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		repo:    repo,
		sink:    sink,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Export is not atomic: a failure part way leaves the files written so far.
func (e *Exporter) Export(ctx context.Context) (*ExportSummary, error) {
	summary, err := e.export(ctx)
	e.metrics.RecordExport(err)
	if err != nil {
		e.logger.Error("translation export failed", "location", e.sink.Location(), "error", err)
		return nil, err
	}
	e.logger.Info("translations exported",
		"location", summary.Location,
		"languages", len(summary.Languages),
		"namespaces", len(summary.Namespaces),
		"files", summary.FileCount)
	return summary, nil
}

func (e *Exporter) export(ctx context.Context) (*ExportSummary, error) {
	langs, err := e.repo.ListLanguages(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("load active languages: %w", err)
	}
	entries, err := e.repo.ExportEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("load translations: %w", err)
	}

	grouped := GroupEntries(entries)
	nsSet := make(map[string]struct{})
	for _, byNS := range grouped {
		for ns := range byNS {
			nsSet[ns] = struct{}{}
		}
	}
	namespaces := make([]string, 0, len(nsSet))
	for ns := range nsSet {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	summary := &ExportSummary{
		ExportedAt:        e.now().UTC(),
		Location:          e.sink.Location(),
		Languages:         make([]string, 0, len(langs)),
		Namespaces:        namespaces,
		CountsByLanguage:  make(map[string]int, len(langs)),
		CountsByNamespace: make(map[string]int, len(namespaces)),
	}

	for _, lang := range langs {
		summary.Languages = append(summary.Languages, lang.Code)
		for _, ns := range namespaces {
			flat := grouped[lang.Code][ns]
			data, err := json.MarshalIndent(BuildNamespace(ns, flat), "", "  ")
			if err != nil {
				return nil, fmt.Errorf("encode %s/%s: %w", lang.Code, ns, err)
			}
			if err := e.sink.Write(ctx, lang.Code+"/"+ns+".json", data); err != nil {
				return nil, err
			}
			summary.FileCount++
			summary.TranslationCount += len(flat)
			summary.CountsByLanguage[lang.Code] += len(flat)
			summary.CountsByNamespace[ns] += len(flat)
		}
	}

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export summary: %w", err)
	}
	if err := e.sink.Write(ctx, SummaryFile, data); err != nil {
		return nil, err
	}
	return summary, nil
}

// CMS exports the catalog and optionally asks the site to rebuild from it.
type CMS struct {
	exporter *Exporter
	hook     DeployHook
	metrics  *observability.Metrics
	logger   *slog.Logger
}

func NewCMS(exporter *Exporter, hook DeployHook, metrics *observability.Metrics, logger *slog.Logger) *CMS {
	if logger == nil {
		logger = slog.Default()
	}
	return &CMS{exporter: exporter, hook: hook, metrics: metrics, logger: logger}
}

func (c *CMS) Publish(ctx context.Context, deploy bool) (*CMSPublishResponse, error) {
	summary, err := c.exporter.Export(ctx)
	if err != nil {
		appErr := errors.NewInternalError("Failed to export translations", err)
		appErr.Code = errors.ErrCodeExportFailed
		return nil, appErr
	}

	resp := &CMSPublishResponse{Summary: summary}
	if !deploy || c.hook == nil || !c.hook.Enabled() {
		return resp, nil
	}

	version := Version(summary.ExportedAt)
	res, err := c.hook.Trigger(ctx, deployhook.Meta{TranslationVersion: version})
	c.metrics.RecordDeployHook(err)
	if err != nil {
		c.logger.Error("deploy hook failed after export", "version", version, "error", err)
		return resp, nil
	}
	resp.DeploymentTriggered = true
	if res != nil {
		resp.DeploymentJobID = res.JobID
	}
	return resp, nil
}
