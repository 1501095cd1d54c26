package translation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// Migration versions that introduce the publish-related schema.
const (
	PublishFlagVersion    int64 = 3
	PublicationLogVersion int64 = 4
)

// MigrationTable is the goose version table.
const MigrationTable = "schema_migrations"

// DetectSchema resolves the capabilities once at startup. It trusts the goose version
// table and falls back to information_schema when that table is unavailable.
func DetectSchema(ctx context.Context, db *sqlx.DB, logger *slog.Logger) (Capabilities, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var version int64
	err := db.GetContext(ctx, &version,
		"SELECT COALESCE(MAX(version_id), 0) FROM "+MigrationTable+" WHERE is_applied = TRUE")
	if err == nil && version > 0 {
		caps := Capabilities{
			PublishFlag:    version >= PublishFlagVersion,
			PublicationLog: version >= PublicationLogVersion,
		}
		logger.Info("translation schema resolved from migrations", "version", version, "publish_flag", caps.PublishFlag, "publication_log", caps.PublicationLog)
		return caps, nil
	}
	if err != nil {
		logger.Warn("migration version unavailable, inspecting information_schema", "error", err)
	}

	var caps Capabilities
	var columns int
	err = db.GetContext(ctx, &columns,
		`SELECT COUNT(*) FROM information_schema.columns
		 WHERE table_name = 'translations' AND column_name = 'is_published'`)
	if err != nil {
		return Capabilities{}, fmt.Errorf("detect translations.is_published: %w", err)
	}
	caps.PublishFlag = columns > 0

	var tables int
	err = db.GetContext(ctx, &tables,
		`SELECT COUNT(*) FROM information_schema.tables
		 WHERE table_name = 'translation_publications'`)
	if err != nil {
		return Capabilities{}, fmt.Errorf("detect translation_publications: %w", err)
	}
	caps.PublicationLog = tables > 0

	logger.Info("translation schema resolved from information_schema", "publish_flag", caps.PublishFlag, "publication_log", caps.PublicationLog)
	return caps, nil
}
