package translation_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/frahmantamala/school-management/internal/translation"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("DetectSchema", func() {
	const (
		versionQuery = `SELECT COALESCE\(MAX\(version_id\), 0\) FROM schema_migrations`
		columnQuery  = `FROM information_schema.columns`
		tableQuery   = `FROM information_schema.tables`
	)

	var (
		db   *sql.DB
		mock sqlmock.Sqlmock
		sdb  *sqlx.DB
		lg   *slog.Logger
	)

	BeforeEach(func() {
		var err error
		db, mock, err = sqlmock.New()
		Expect(err).NotTo(HaveOccurred())
		sdb = sqlx.NewDb(db, "sqlmock")
		lg = slog.New(slog.NewTextHandler(io.Discard, nil))
	})

	AfterEach(func() {
		Expect(mock.ExpectationsWereMet()).To(Succeed())
		_ = db.Close()
	})

	DescribeTable("resolving from the migration version",
		func(version int64, expected translation.Capabilities) {
			mock.ExpectQuery(versionQuery).WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow(version))

			caps, err := translation.DetectSchema(context.Background(), sdb, lg)
			Expect(err).NotTo(HaveOccurred())
			Expect(caps).To(Equal(expected))
		},
		Entry("before the publish flag", int64(2), translation.Capabilities{}),
		Entry("publish flag only", int64(3), translation.Capabilities{PublishFlag: true}),
		Entry("full schema", int64(4), translation.FullCapabilities()),
		Entry("later migrations", int64(9), translation.FullCapabilities()),
	)

	It("should inspect information_schema when the version table is missing", func() {
		mock.ExpectQuery(versionQuery).WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(columnQuery).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(tableQuery).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		caps, err := translation.DetectSchema(context.Background(), sdb, lg)
		Expect(err).NotTo(HaveOccurred())
		Expect(caps).To(Equal(translation.Capabilities{PublishFlag: true}))
	})

	It("should inspect information_schema when no migration is recorded", func() {
		mock.ExpectQuery(versionQuery).WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow(0))
		mock.ExpectQuery(columnQuery).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(tableQuery).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		caps, err := translation.DetectSchema(context.Background(), sdb, lg)
		Expect(err).NotTo(HaveOccurred())
		Expect(caps).To(Equal(translation.Capabilities{}))
	})

	It("should fail when the schema cannot be inspected", func() {
		mock.ExpectQuery(versionQuery).WillReturnError(sql.ErrConnDone)
		mock.ExpectQuery(columnQuery).WillReturnError(sql.ErrConnDone)

		_, err := translation.DetectSchema(context.Background(), sdb, lg)
		Expect(err).To(MatchError(ContainSubstring("is_published")))
	})
})
