package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"log"
	"log/slog"

	apperrors "github.com/frahmantamala/school-management/internal"
	"github.com/frahmantamala/school-management/internal/core/events"
	rbacDatamodel "github.com/frahmantamala/school-management/internal/core/datamodel/rbac"
	schoolDatamodel "github.com/frahmantamala/school-management/internal/core/datamodel/school"
	translationDatamodel "github.com/frahmantamala/school-management/internal/core/datamodel/translation"
	userDatamodel "github.com/frahmantamala/school-management/internal/core/datamodel/user"
	"github.com/frahmantamala/school-management/internal/i18n"
	"github.com/frahmantamala/school-management/internal/permission"
	permissionPostgres "github.com/frahmantamala/school-management/internal/permission/postgres"
	"github.com/frahmantamala/school-management/internal/translation"
	translationPostgres "github.com/frahmantamala/school-management/internal/translation/postgres"
	"github.com/frahmantamala/school-management/pkg/logger"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const seedPassword = "password"

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Sync the permission registry and seed demo users, groups, students, languages and translation keys.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		lg := logger.LoggerWrapper()

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()
		gdb, err := openGorm(db)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		if clearData {
			if err := clearSeedData(gdb); err != nil {
				log.Fatalf("failed to clear data: %v", err)
			}
			fmt.Println("Cleared existing data")
		}

		permRepo := permissionPostgres.NewPermissionRepository(gdb)
		permService := permission.NewService(permRepo, lg)
		if err := permService.SyncRegistry(ctx); err != nil {
			log.Fatalf("failed to sync permission registry: %v", err)
		}
		fmt.Println("Synced permission registry:", len(permission.Names()), "permissions,", len(permission.DefaultRoles()), "roles")

		hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}

		users := map[string]*userDatamodel.User{}
		for _, u := range []userDatamodel.User{
			{Email: "admin@school.test", Name: "School Admin", Role: userDatamodel.RoleAdmin},
			{Email: "tutor@school.test", Name: "Group Tutor", Role: userDatamodel.RoleTutor},
			{Email: "parent@school.test", Name: "Parent", Role: userDatamodel.RoleParent},
			{Email: "viewer@school.test", Name: "Viewer", Role: userDatamodel.RoleViewer},
		} {
			row := userDatamodel.User{}
			err := gdb.Where(userDatamodel.User{Email: u.Email}).
				Attrs(userDatamodel.User{Name: u.Name, Role: u.Role, PasswordHash: string(hash), IsActive: true}).
				FirstOrCreate(&row).Error
			if err != nil {
				log.Fatalf("failed to seed user %s: %v", u.Email, err)
			}
			users[u.Email] = &row
			fmt.Println("Seeded user:", u.Email)
		}

		groups := make([]schoolDatamodel.Group, 0, 2)
		for _, name := range []string{"Group 1A", "Group 2B"} {
			g := schoolDatamodel.Group{}
			if err := gdb.Where(schoolDatamodel.Group{Name: name}).FirstOrCreate(&g).Error; err != nil {
				log.Fatalf("failed to seed group %s: %v", name, err)
			}
			groups = append(groups, g)
		}

		var students []schoolDatamodel.Student
		for i, s := range []struct{ first, last string }{
			{"Ada", "Jansen"}, {"Bram", "de Vries"}, {"Cas", "Bakker"}, {"Daan", "Visser"},
		} {
			groupID := groups[i%len(groups)].ID
			row := schoolDatamodel.Student{}
			err := gdb.Where(schoolDatamodel.Student{FirstName: s.first, LastName: s.last}).
				Attrs(schoolDatamodel.Student{GroupID: &groupID}).
				FirstOrCreate(&row).Error
			if err != nil {
				log.Fatalf("failed to seed student %s: %v", s.first, err)
			}
			students = append(students, row)
		}
		fmt.Println("Seeded", len(groups), "groups and", len(students), "students")

		admin := users["admin@school.test"].ID
		assignments := []permission.AssignRoleRequest{
			{UserID: admin, Role: permission.RoleNameAdmin},
			{
				UserID:  users["tutor@school.test"].ID,
				Role:    permission.RoleNameTeacher,
				Context: permission.Context{permission.ContextGroupID: groups[0].ID},
			},
			{
				UserID:  users["parent@school.test"].ID,
				Role:    permission.RoleNameParent,
				Context: permission.Context{permission.ContextStudentIDs: []any{students[0].ID}},
			},
			{UserID: users["viewer@school.test"].ID, Role: permission.RoleNameViewer},
		}
		for _, req := range assignments {
			_, err := permService.AssignRoleToUser(ctx, req, admin)
			if err != nil && !stderrors.Is(err, apperrors.ErrDuplicateAssignment) {
				log.Fatalf("failed to assign %s: %v", req.Role, err)
			}
		}
		fmt.Println("Assigned roles to demo users")

		caps, err := translation.DetectSchema(ctx, db, lg)
		if err != nil {
			log.Fatalf("failed to detect translation schema: %v", err)
		}
		if err := seedTranslations(ctx, gdb, caps, lg); err != nil {
			log.Fatalf("failed to seed translations: %v", err)
		}

		fmt.Println("Seeding complete. Demo password:", seedPassword)
	},
}

var seedLanguages = []translationDatamodel.Language{
	{Code: "en", Name: "English", NativeName: "English", IsActive: true, IsDefault: true},
	{Code: "nl", Name: "Dutch", NativeName: "Nederlands", IsActive: true},
}

// seedTranslations turns the bundled catalog into approved keys, so a fresh
// database serves the same strings the binary ships with.
func seedTranslations(ctx context.Context, gdb *gorm.DB, caps translation.Capabilities, lg *slog.Logger) error {
	for _, l := range seedLanguages {
		row := translationDatamodel.Language{}
		err := gdb.Where(translationDatamodel.Language{Code: l.Code}).
			Attrs(translationDatamodel.Language{Name: l.Name, NativeName: l.NativeName, IsActive: l.IsActive, IsDefault: l.IsDefault}).
			FirstOrCreate(&row).Error
		if err != nil {
			return fmt.Errorf("seed language %s: %w", l.Code, err)
		}
	}

	catalog, err := i18n.BundledCatalog()
	if err != nil {
		return fmt.Errorf("load bundled catalog: %w", err)
	}

	service := translation.NewService(
		translationPostgres.NewTranslationRepository(gdb, caps),
		translation.NoopCache{},
		events.NewEventBus(logger.Discard()),
		lg,
	)
	texts := make(map[string]map[string]string)
	for _, lang := range catalog.Languages() {
		for _, ns := range catalog.Namespaces(lang) {
			for rel, text := range i18n.Flatten(catalog.Namespace(lang, ns)) {
				if texts[lang] == nil {
					texts[lang] = make(map[string]string)
				}
				texts[lang][ns+"."+rel] = text
			}
		}
	}

	created := 0
	for _, ns := range catalog.Namespaces(i18n.DefaultLanguage) {
		flat := i18n.Flatten(catalog.Namespace(i18n.DefaultLanguage, ns))
		for rel, english := range flat {
			category := ns
			req := translation.CreateKeyRequest{
				Key:          ns + "." + rel,
				EnglishText:  english,
				Category:     &category,
				Translations: map[string]translation.TranslationInput{},
			}
			for _, l := range seedLanguages {
				if text, ok := texts[l.Code][req.Key]; ok {
					req.Translations[l.Code] = translation.TranslationInput{Text: text, IsApproved: true}
				}
			}
			_, err := service.CreateKey(ctx, req)
			if err != nil {
				if stderrors.Is(err, apperrors.ErrDuplicateKey) {
					continue
				}
				return fmt.Errorf("seed key %s: %w", req.Key, err)
			}
			created++
		}
	}
	lg.Info("seeded translation keys", "created", created)
	fmt.Println("Seeded", created, "translation keys from the bundled catalog")
	return nil
}

func clearSeedData(gdb *gorm.DB) error {
	return gdb.Transaction(func(tx *gorm.DB) error {
		for _, model := range []interface{}{
			&translationDatamodel.Translation{},
			&translationDatamodel.TranslationKey{},
			&rbacDatamodel.UserRoleAssignment{},
			&schoolDatamodel.Student{},
			&schoolDatamodel.Group{},
			&userDatamodel.User{},
		} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
