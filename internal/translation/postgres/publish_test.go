package postgres_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/frahmantamala/school-management/internal"
	translationDatamodel "github.com/frahmantamala/school-management/internal/core/datamodel/translation"
	"github.com/frahmantamala/school-management/internal/core/events"
	"github.com/frahmantamala/school-management/internal/core/testdb"
	"github.com/frahmantamala/school-management/internal/deployhook"
	"github.com/frahmantamala/school-management/internal/translation"
	translationPostgres "github.com/frahmantamala/school-management/internal/translation/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

type fakeHook struct {
	enabled bool
	err     error
	metas   []deployhook.Meta
}

func (f *fakeHook) Enabled() bool { return f.enabled }

func (f *fakeHook) Trigger(_ context.Context, meta deployhook.Meta) (*deployhook.Result, error) {
	f.metas = append(f.metas, meta)
	if f.err != nil {
		return nil, f.err
	}
	return &deployhook.Result{StatusCode: 201, JobID: "job_1"}, nil
}

type failingSink struct{}

func (failingSink) Write(context.Context, string, []byte) error { return fmt.Errorf("disk full") }

func (failingSink) Location() string { return "nowhere" }

// legacyTranslation is the translations table before the publish-flag migration.
type legacyTranslation struct {
	ID               string `gorm:"primaryKey;size:36"`
	TranslationKeyID string `gorm:"size:36;not null;uniqueIndex:idx_translation_key_language"`
	LanguageID       string `gorm:"size:36;not null;uniqueIndex:idx_translation_key_language"`
	Text             string `gorm:"not null"`
	IsApproved       bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (legacyTranslation) TableName() string { return "translations" }

var _ = Describe("Publishing", func() {
	var (
		ctx     context.Context
		lg      *slog.Logger
		db      *gorm.DB
		service *translation.Service
		hook    *fakeHook
		clock   time.Time
		tick    func() time.Time
	)

	setup := func(caps translation.Capabilities, models ...interface{}) {
		var err error
		db, err = testdb.Open(models...)
		Expect(err).NotTo(HaveOccurred())
		seedLanguages(db)
		service = translation.NewService(translationPostgres.NewTranslationRepository(db, caps), nil, nil, lg)
	}

	newPublisher := func(caps translation.Capabilities, opts ...translation.PublisherOption) *translation.Publisher {
		opts = append(opts, translation.WithPublisherClock(tick))
		return translation.NewPublisher(translationPostgres.NewPublishRepository(db), caps, hook, lg, opts...)
	}

	seedKeys := func() {
		_, err := service.CreateKey(ctx, translation.CreateKeyRequest{
			Key: "save", EnglishText: "Save",
			Translations: map[string]translation.TranslationInput{
				"en": {Text: "Save", IsApproved: true},
				"nl": {Text: "Opslaan", IsApproved: true},
			},
		})
		Expect(err).NotTo(HaveOccurred())
		_, err = service.CreateKey(ctx, translation.CreateKeyRequest{
			Key: "dashboard.title", EnglishText: "Dashboard", Category: strPtr("dashboard"),
			Translations: map[string]translation.TranslationInput{
				"en": {Text: "Dashboard", IsApproved: true},
				"nl": {Text: "Overzicht"},
			},
		})
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		ctx = context.Background()
		lg = slog.New(slog.NewTextHandler(io.Discard, nil))
		hook = &fakeHook{enabled: true}
		clock = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		tick = func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}
	})

	AfterEach(func() {
		testdb.Close(db)
	})

	Context("with the full schema", func() {
		caps := translation.FullCapabilities()

		BeforeEach(func() {
			setup(caps)
			seedKeys()
		})

		It("should publish the approved delta exactly once", func() {
			publisher := newPublisher(caps)

			first, err := publisher.Publish(ctx, translation.PublishRequest{PublishedBy: "admin-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(first.PublishedCount).To(Equal(3))
			Expect(first.Version).To(Equal(translation.Version(clock)))
			Expect(first.PublicationID).NotTo(HavePrefix(translation.MockPublicationPrefix))
			Expect(first.NewTranslations).To(ContainElement(translation.PublishedEntry{
				Key: "dashboard.title", Language: "en", Namespace: "dashboard", Text: "Dashboard",
			}))
			Expect(first.DeploymentTriggered).To(BeFalse())

			second, err := publisher.Publish(ctx, translation.PublishRequest{})
			Expect(err).NotTo(HaveOccurred())
			Expect(second.PublishedCount).To(BeZero())
			Expect(second.NewTranslations).To(BeEmpty())
			Expect(second.Version).NotTo(Equal(first.Version))

			var pubs []translationDatamodel.TranslationPublication
			Expect(db.Order("created_at ASC").Find(&pubs).Error).NotTo(HaveOccurred())
			Expect(pubs).To(HaveLen(2))
			Expect(pubs[0].PublishedBy).To(Equal("admin-1"))
			Expect(pubs[1].PublishedBy).To(Equal("system"))
			Expect(pubs[0].DeploymentStatus).To(Equal(translationDatamodel.DeploymentSkipped))
		})

		It("should republish a string after it is edited", func() {
			publisher := newPublisher(caps)
			_, err := publisher.Publish(ctx, translation.PublishRequest{})
			Expect(err).NotTo(HaveOccurred())

			keys, err := service.ListKeys(ctx, translation.KeyFilter{Search: "save"})
			Expect(err).NotTo(HaveOccurred())
			resp, err := service.UpsertTranslation(ctx, keys[0].ID, "nl", translation.UpsertTranslationRequest{Text: "Bewaren"})
			Expect(err).NotTo(HaveOccurred())
			for _, t := range resp.Translations {
				if t.Language == "nl" {
					Expect(t.IsPublished).To(BeFalse())
				}
			}

			result, err := publisher.Publish(ctx, translation.PublishRequest{})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.PublishedCount).To(Equal(1))
			Expect(result.NewTranslations[0].Text).To(Equal("Bewaren"))
		})

		It("should trigger the deploy hook and record the build", func() {
			publisher := newPublisher(caps)
			result, err := publisher.Publish(ctx, translation.PublishRequest{Deploy: true, Notes: strPtr("spring term")})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.DeploymentTriggered).To(BeTrue())
			Expect(hook.metas).To(Equal([]deployhook.Meta{{
				TranslationVersion: result.Version,
				PublicationID:      result.PublicationID,
			}}))

			var pub translationDatamodel.TranslationPublication
			Expect(db.Where("id = ?", result.PublicationID).First(&pub).Error).NotTo(HaveOccurred())
			Expect(pub.DeploymentStatus).To(Equal(translationDatamodel.DeploymentBuilding))
			Expect(*pub.Notes).To(Equal("spring term"))
			Expect(result.DeploymentJobID).To(Equal("job_1"))
			Expect(pub.DeploymentJobID).NotTo(BeNil())
			Expect(*pub.DeploymentJobID).To(Equal("job_1"))
		})

		It("should keep the publication when the deploy hook fails", func() {
			hook.err = fmt.Errorf("hook returned 500")
			publisher := newPublisher(caps)
			result, err := publisher.Publish(ctx, translation.PublishRequest{Deploy: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.DeploymentTriggered).To(BeFalse())
			Expect(result.PublishedCount).To(Equal(3))

			var pub translationDatamodel.TranslationPublication
			Expect(db.Where("id = ?", result.PublicationID).First(&pub).Error).NotTo(HaveOccurred())
			Expect(pub.DeploymentStatus).To(Equal(translationDatamodel.DeploymentFailed))
			Expect(pub.DeploymentJobID).To(BeNil())
			Expect(result.DeploymentJobID).To(BeEmpty())
		})

		It("should skip the deploy when the hook is not configured", func() {
			hook.enabled = false
			result, err := newPublisher(caps).Publish(ctx, translation.PublishRequest{Deploy: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.DeploymentTriggered).To(BeFalse())
			Expect(hook.metas).To(BeEmpty())
		})

		It("should announce the publication on the event bus", func() {
			bus := events.NewEventBus(lg)
			var announced []events.Event
			bus.Subscribe(events.EventTypeTranslationPublished, func(_ context.Context, e events.Event) error {
				announced = append(announced, e)
				return nil
			})

			result, err := newPublisher(caps, translation.WithPublisherEvents(bus)).Publish(ctx, translation.PublishRequest{})
			Expect(err).NotTo(HaveOccurred())
			bus.Drain()
			Expect(announced).To(HaveLen(1))
			published, ok := announced[0].(*events.TranslationPublishedEvent)
			Expect(ok).To(BeTrue())
			Expect(published.Version).To(Equal(result.Version))
			Expect(published.PublishedCount).To(Equal(3))
		})

		It("should list history newest first with pending counts", func() {
			publisher := newPublisher(caps)
			first, err := publisher.Publish(ctx, translation.PublishRequest{})
			Expect(err).NotTo(HaveOccurred())
			second, err := publisher.Publish(ctx, translation.PublishRequest{})
			Expect(err).NotTo(HaveOccurred())

			history, err := publisher.History(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(history.Publications).To(HaveLen(2))
			Expect(history.Publications[0].Version).To(Equal(second.Version))
			Expect(history.Publications[1].Version).To(Equal(first.Version))
			Expect(history.Pending).To(Equal(translation.PendingCounts{ApprovedUnpublished: 0, Unapproved: 1}))
			Expect(history.Capabilities).To(Equal(caps))
		})
	})

	Context("without a publication log", func() {
		caps := translation.Capabilities{PublishFlag: true}

		BeforeEach(func() {
			setup(caps)
			seedKeys()
		})

		It("should return a mock publication id and skip status updates", func() {
			result, err := newPublisher(caps).Publish(ctx, translation.PublishRequest{Deploy: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.PublicationID).To(HavePrefix(translation.MockPublicationPrefix))
			Expect(result.DeploymentTriggered).To(BeTrue())

			var count int64
			Expect(db.Model(&translationDatamodel.TranslationPublication{}).Count(&count).Error).NotTo(HaveOccurred())
			Expect(count).To(BeZero())

			history, err := newPublisher(caps).History(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(history.Publications).To(BeEmpty())
		})
	})

	Context("with the legacy schema", func() {
		caps := translation.Capabilities{}

		BeforeEach(func() {
			setup(caps,
				&translationDatamodel.Language{},
				&translationDatamodel.TranslationKey{},
				&legacyTranslation{},
			)
			seedKeys()
		})

		It("should edit translations without the publish columns", func() {
			keys, err := service.ListKeys(ctx, translation.KeyFilter{Search: "save"})
			Expect(err).NotTo(HaveOccurred())
			_, err = service.UpsertTranslation(ctx, keys[0].ID, "nl", translation.UpsertTranslationRequest{Text: "Bewaren"})
			Expect(err).NotTo(HaveOccurred())

			flat, err := service.Flat(ctx, "nl")
			Expect(err).NotTo(HaveOccurred())
			Expect(flat).To(Equal(map[string]string{"save": "Bewaren"}))
		})

		It("should treat every approved string as the delta", func() {
			publisher := newPublisher(caps)
			first, err := publisher.Publish(ctx, translation.PublishRequest{})
			Expect(err).NotTo(HaveOccurred())
			second, err := publisher.Publish(ctx, translation.PublishRequest{})
			Expect(err).NotTo(HaveOccurred())

			Expect(first.PublishedCount).To(Equal(3))
			Expect(second.PublishedCount).To(Equal(3))
			Expect(second.PublicationID).To(HavePrefix(translation.MockPublicationPrefix))

			history, err := publisher.History(ctx, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(history.Pending.ApprovedUnpublished).To(Equal(int64(3)))
		})
	})

	Describe("exporting", func() {
		caps := translation.FullCapabilities()

		BeforeEach(func() {
			setup(caps)
			seedKeys()
		})

		readJSON := func(path string) map[string]any {
			data, err := os.ReadFile(path)
			Expect(err).NotTo(HaveOccurred())
			var out map[string]any
			Expect(json.Unmarshal(data, &out)).To(Succeed())
			return out
		}

		It("should write every namespace for every active language", func() {
			root := GinkgoT().TempDir()
			exporter := translation.NewExporter(translationPostgres.NewTranslationRepository(db, caps), translation.NewFileSink(root), lg, nil)

			summary, err := exporter.Export(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Languages).To(Equal([]string{"en", "nl"}))
			Expect(summary.Namespaces).To(Equal([]string{"common", "dashboard"}))
			Expect(summary.FileCount).To(Equal(4))
			Expect(summary.TranslationCount).To(Equal(4))
			Expect(summary.CountsByLanguage).To(Equal(map[string]int{"en": 2, "nl": 2}))

			Expect(readJSON(filepath.Join(root, "en", "dashboard.json"))).To(Equal(map[string]any{"title": "Dashboard"}))
			Expect(readJSON(filepath.Join(root, "nl", "common.json"))).To(Equal(map[string]any{"save": "Opslaan"}))
			Expect(readJSON(filepath.Join(root, "nl", "dashboard.json"))).To(Equal(map[string]any{"title": "Overzicht"}))
			Expect(filepath.Join(root, "fr")).NotTo(BeADirectory())

			manifest := readJSON(filepath.Join(root, translation.SummaryFile))
			Expect(manifest["fileCount"]).To(BeNumerically("==", 4))
			Expect(manifest["location"]).To(Equal(root))
		})

		It("should write namespaces only an inactive language has for every active language", func() {
			var fr translationDatamodel.Language
			Expect(db.Where("code = ?", "fr").First(&fr).Error).To(Succeed())
			key := translationDatamodel.TranslationKey{Key: "reports.title", EnglishText: "Reports", Category: strPtr("reports")}
			Expect(db.Create(&key).Error).To(Succeed())
			Expect(db.Create(&translationDatamodel.Translation{
				TranslationKeyID: key.ID, LanguageID: fr.ID, Text: "Rapports", IsApproved: true,
			}).Error).To(Succeed())

			root := GinkgoT().TempDir()
			exporter := translation.NewExporter(translationPostgres.NewTranslationRepository(db, caps), translation.NewFileSink(root), lg, nil)

			summary, err := exporter.Export(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Languages).To(Equal([]string{"en", "nl"}))
			Expect(summary.Namespaces).To(Equal([]string{"common", "dashboard", "reports"}))
			Expect(summary.FileCount).To(Equal(6))
			Expect(summary.TranslationCount).To(Equal(4))

			Expect(readJSON(filepath.Join(root, "en", "reports.json"))).To(BeEmpty())
			Expect(readJSON(filepath.Join(root, "nl", "reports.json"))).To(BeEmpty())
			Expect(filepath.Join(root, "fr")).NotTo(BeADirectory())
		})

		It("should export and deploy through the CMS", func() {
			root := GinkgoT().TempDir()
			exporter := translation.NewExporter(translationPostgres.NewTranslationRepository(db, caps), translation.NewFileSink(root), lg, nil)
			cms := translation.NewCMS(exporter, hook, nil, lg)

			resp, err := cms.Publish(ctx, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.DeploymentTriggered).To(BeTrue())
			Expect(resp.DeploymentJobID).To(Equal("job_1"))
			Expect(hook.metas).To(HaveLen(1))
			Expect(hook.metas[0].TranslationVersion).To(Equal(translation.Version(resp.Summary.ExportedAt)))
			Expect(hook.metas[0].PublicationID).To(BeEmpty())

			resp, err = cms.Publish(ctx, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.DeploymentTriggered).To(BeFalse())
			Expect(hook.metas).To(HaveLen(1))
		})

		It("should return the export even when the deploy fails", func() {
			hook.err = fmt.Errorf("hook down")
			exporter := translation.NewExporter(translationPostgres.NewTranslationRepository(db, caps), translation.NewFileSink(GinkgoT().TempDir()), lg, nil)

			resp, err := translation.NewCMS(exporter, hook, nil, lg).Publish(ctx, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Summary.FileCount).To(Equal(4))
			Expect(resp.DeploymentTriggered).To(BeFalse())
		})

		It("should report export failures", func() {
			exporter := translation.NewExporter(translationPostgres.NewTranslationRepository(db, caps), failingSink{}, lg, nil)

			_, err := translation.NewCMS(exporter, hook, nil, lg).Publish(ctx, true)
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeExportFailed))
			Expect(strings.Contains(err.Error(), "disk full")).To(BeTrue())
			Expect(hook.metas).To(BeEmpty())
		})
	})
})
