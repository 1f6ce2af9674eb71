package app

import (
	"gorm.io/gorm"

	"github.com/splitlab/splitlab-backend/internal/data/repos"
	"github.com/splitlab/splitlab-backend/internal/platform/logger"
)

type Repos struct {
	Upload           repos.UploadRepo
	Split            repos.SplitRepo
	Asset            repos.AssetRepo
	TestRun          repos.TestRunRepo
	ReviewFeedback   repos.ReviewFeedbackRepo
	ValidationRecord repos.ValidationRecordRepo
	ModuleVersion    repos.ModuleVersionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Upload:           repos.NewUploadRepo(db, log),
		Split:            repos.NewSplitRepo(db, log),
		Asset:            repos.NewAssetRepo(db, log),
		TestRun:          repos.NewTestRunRepo(db, log),
		ReviewFeedback:   repos.NewReviewFeedbackRepo(db, log),
		ValidationRecord: repos.NewValidationRecordRepo(db, log),
		ModuleVersion:    repos.NewModuleVersionRepo(db, log),
	}
}
