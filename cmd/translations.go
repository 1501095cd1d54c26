package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/frahmantamala/school-management/internal"
	"github.com/frahmantamala/school-management/internal/core/events"
	"github.com/frahmantamala/school-management/internal/deployhook"
	"github.com/frahmantamala/school-management/internal/observability"
	"github.com/frahmantamala/school-management/internal/translation"
	translationPostgres "github.com/frahmantamala/school-management/internal/translation/postgres"
	"github.com/frahmantamala/school-management/pkg/logger"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// translationStack is everything built on top of the translation tables.
type translationStack struct {
	Settings     internal.TranslationsConfig
	Capabilities translation.Capabilities
	Service      *translation.Service
	Publisher    *translation.Publisher
	Exporter     *translation.Exporter
	CMS          *translation.CMS
}

func newTranslationStack(
	ctx context.Context,
	cfg *internal.Config,
	db *sqlx.DB,
	gdb *gorm.DB,
	redisClient *redis.Client,
	bus *events.EventBus,
	metrics *observability.Metrics,
	lg *slog.Logger,
) (*translationStack, error) {
	caps, err := translation.DetectSchema(ctx, db, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to detect translation schema: %w", err)
	}

	var cache translation.NamespaceCache = translation.NoopCache{}
	if redisClient != nil {
		cache = translation.NewRedisCache(redisClient, cfg.Redis.TTL, metrics)
	}
	bus.Subscribe(events.EventTypeTranslationChanged, translation.InvalidationHandler(cache, lg))

	sink, err := newExportSink(ctx, cfg.Translations)
	if err != nil {
		return nil, err
	}

	hook := deployhook.NewClient(deployhook.Config{
		URL:     cfg.Translations.DeployHookURL,
		Ref:     cfg.Translations.DeployRef,
		Timeout: cfg.Translations.DeployTimeout,
	}, lg)
	if !hook.Enabled() {
		lg.Info("deploy hook not configured, publishes will not trigger a rebuild")
	}

	repo := translationPostgres.NewTranslationRepository(gdb, caps)
	exporter := translation.NewExporter(repo, sink, lg, metrics)

	return &translationStack{
		Settings:     cfg.Translations,
		Capabilities: caps,
		Service:      translation.NewService(repo, cache, bus, lg),
		Publisher: translation.NewPublisher(translationPostgres.NewPublishRepository(gdb), caps, hook, lg,
			translation.WithPublisherMetrics(metrics),
			translation.WithPublisherEvents(bus),
		),
		Exporter: exporter,
		CMS:      translation.NewCMS(exporter, hook, metrics, lg),
	}, nil
}

func newExportSink(ctx context.Context, cfg internal.TranslationsConfig) (translation.Sink, error) {
	if cfg.Storage != "s3" {
		return translation.NewFileSink(cfg.ExportDir), nil
	}
	sink, err := translation.NewS3SinkFromOptions(ctx, translation.S3Options{
		Bucket:       cfg.S3.Bucket,
		Prefix:       cfg.S3.Prefix,
		Region:       cfg.S3.Region,
		Endpoint:     cfg.S3.Endpoint,
		AccessKey:    cfg.S3.AccessKey,
		SecretKey:    cfg.S3.SecretKey,
		UsePathStyle: cfg.S3.UsePathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 export sink: %w", err)
	}
	return sink, nil
}

// openTranslationStack builds the stack for one-shot commands, without metrics.
func openTranslationStack(ctx context.Context) (*translationStack, func(), error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	db, err := initDB(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init db: %w", err)
	}
	gdb, err := openGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to init gorm: %w", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		// a CLI publish must still clear what the server cached
		redisClient, err = translation.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			lg.Warn("redis unavailable, cached namespaces will expire on their own", "error", err)
			redisClient = nil
		}
	}

	bus := events.NewEventBus(lg)
	stack, err := newTranslationStack(ctx, cfg, db, gdb, redisClient, bus, nil, lg)
	if err != nil {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		_ = db.Close()
		return nil, nil, err
	}
	closeFn := func() {
		bus.Drain()
		if redisClient != nil {
			_ = redisClient.Close()
		}
		_ = db.Close()
	}
	return stack, closeFn, nil
}

var translationsCmd = &cobra.Command{
	Use:   "translations",
	Short: "Publish and export translations",
}

var (
	publishNotes  string
	publishDeploy bool
	publishBy     string
	exportDeploy  bool
)

var translationsPublishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Mark approved translations as published",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		stack, closeFn, err := openTranslationStack(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		req := translation.PublishRequest{PublishedBy: publishBy, Deploy: publishDeploy}
		if publishNotes != "" {
			req.Notes = &publishNotes
		}
		result, err := stack.Publisher.Publish(ctx, req)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

var translationsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write {lang}/{namespace}.json files for every active language",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		stack, closeFn, err := openTranslationStack(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		resp, err := stack.CMS.Publish(ctx, exportDeploy)
		if err != nil {
			return err
		}
		return printJSON(resp)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	translationsPublishCmd.Flags().StringVar(&publishNotes, "notes", "", "notes stored with the publication")
	translationsPublishCmd.Flags().StringVar(&publishBy, "by", "cli", "recorded publisher")
	translationsPublishCmd.Flags().BoolVar(&publishDeploy, "deploy", false, "trigger the deploy hook after publishing")
	translationsExportCmd.Flags().BoolVar(&exportDeploy, "deploy", false, "trigger the deploy hook after exporting")

	translationsCmd.AddCommand(translationsPublishCmd)
	translationsCmd.AddCommand(translationsExportCmd)
	rootCmd.AddCommand(translationsCmd)
}
