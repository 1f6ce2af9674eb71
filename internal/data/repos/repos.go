package repos

import (
	"gorm.io/gorm"

	"github.com/splitlab/splitlab-backend/internal/data/repos/artifacts"
	"github.com/splitlab/splitlab-backend/internal/data/repos/modules"
	"github.com/splitlab/splitlab-backend/internal/platform/logger"
)

type UploadRepo = artifacts.UploadRepo
type SplitRepo = artifacts.SplitRepo
type AssetRepo = artifacts.AssetRepo
type TestRunRepo = artifacts.TestRunRepo
type ReviewFeedbackRepo = artifacts.ReviewFeedbackRepo
type ValidationRecordRepo = artifacts.ValidationRecordRepo

type ModuleVersionRepo = modules.ModuleVersionRepo

func NewUploadRepo(db *gorm.DB, baseLog *logger.Logger) UploadRepo {
	return artifacts.NewUploadRepo(db, baseLog)
}
func NewSplitRepo(db *gorm.DB, baseLog *logger.Logger) SplitRepo {
	return artifacts.NewSplitRepo(db, baseLog)
}
func NewAssetRepo(db *gorm.DB, baseLog *logger.Logger) AssetRepo {
	return artifacts.NewAssetRepo(db, baseLog)
}
func NewTestRunRepo(db *gorm.DB, baseLog *logger.Logger) TestRunRepo {
	return artifacts.NewTestRunRepo(db, baseLog)
}
func NewReviewFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) ReviewFeedbackRepo {
	return artifacts.NewReviewFeedbackRepo(db, baseLog)
}
func NewValidationRecordRepo(db *gorm.DB, baseLog *logger.Logger) ValidationRecordRepo {
	return artifacts.NewValidationRecordRepo(db, baseLog)
}
func NewModuleVersionRepo(db *gorm.DB, baseLog *logger.Logger) ModuleVersionRepo {
	return modules.NewModuleVersionRepo(db, baseLog)
}
