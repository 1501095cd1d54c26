// Package testdb opens isolated in-memory databases for repository tests.
package testdb

import (
	"fmt"

	rbacDatamodel "github.com/frahmantamala/school-management/internal/core/datamodel/rbac"
	schoolDatamodel "github.com/frahmantamala/school-management/internal/core/datamodel/school"
	translationDatamodel "github.com/frahmantamala/school-management/internal/core/datamodel/translation"
	userDatamodel "github.com/frahmantamala/school-management/internal/core/datamodel/user"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table the service owns, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&userDatamodel.User{},
		&rbacDatamodel.Permission{},
		&rbacDatamodel.SystemRole{},
		&rbacDatamodel.RolePermission{},
		&rbacDatamodel.UserRoleAssignment{},
		&schoolDatamodel.Group{},
		&schoolDatamodel.Student{},
		&translationDatamodel.Language{},
		&translationDatamodel.TranslationKey{},
		&translationDatamodel.Translation{},
		&translationDatamodel.TranslationPublication{},
	}
}

// Open returns a private in-memory SQLite database migrated with the given models,
// or with every model when none are given. The pool is pinned to one connection so
// tests never observe SQLite table locks.
func Open(models ...interface{}) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if len(models) == 0 {
		models = Models()
	}
	if err := db.AutoMigrate(models...); err != nil {
		return nil, err
	}
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
