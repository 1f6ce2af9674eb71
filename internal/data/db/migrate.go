package db

import (
	"gorm.io/gorm"

	types "github.com/splitlab/splitlab-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.Upload{},
		&types.Split{},
		&types.Asset{},

		&types.TestRun{},
		&types.ReviewFeedback{},
		&types.ValidationRecord{},

		&types.ModuleVersion{},
	)
}

func (s *PostgresService) AutoMigrateAll() error {
	return AutoMigrateAll(s.db)
}
