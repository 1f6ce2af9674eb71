package modules

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/splitlab/splitlab-backend/internal/domain"
	"github.com/splitlab/splitlab-backend/internal/platform/dbctx"
	"github.com/splitlab/splitlab-backend/internal/platform/logger"
)

type ModuleVersionRepo interface {
	Create(dbc dbctx.Context, version *types.ModuleVersion) (*types.ModuleVersion, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ModuleVersion, error)
	GetLatestByModuleID(dbc dbctx.Context, moduleID uuid.UUID) (*types.ModuleVersion, error)
	GetActiveByModuleID(dbc dbctx.Context, moduleID uuid.UUID) (*types.ModuleVersion, error)
	ListByModuleID(dbc dbctx.Context, moduleID uuid.UUID) ([]*types.ModuleVersion, error)
	ListSummariesByModuleID(dbc dbctx.Context, moduleID uuid.UUID) ([]types.VersionSummary, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]interface{}) error
	FullDeleteArchivedByModuleID(dbc dbctx.Context, moduleID uuid.UUID) (int64, error)
}

type moduleVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModuleVersionRepo(db *gorm.DB, baseLog *logger.Logger) ModuleVersionRepo {
	repoLog := baseLog.With("repo", "ModuleVersionRepo")
	return &moduleVersionRepo{db: db, log: repoLog}
}

func (r *moduleVersionRepo) Create(dbc dbctx.Context, version *types.ModuleVersion) (*types.ModuleVersion, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(dbc.Ctx).Create(version).Error; err != nil {
		return nil, err
	}
	return version, nil
}

func (r *moduleVersionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ModuleVersion, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.ModuleVersion
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *moduleVersionRepo) GetLatestByModuleID(dbc dbctx.Context, moduleID uuid.UUID) (*types.ModuleVersion, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.ModuleVersion
	if err := transaction.WithContext(dbc.Ctx).
		Where("module_id = ?", moduleID).
		Order("created_at DESC").
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *moduleVersionRepo) GetActiveByModuleID(dbc dbctx.Context, moduleID uuid.UUID) (*types.ModuleVersion, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.ModuleVersion
	if err := transaction.WithContext(dbc.Ctx).
		Where("module_id = ? AND status = ?", moduleID, types.VersionStatusActive).
		Order("created_at DESC").
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

// ListByModuleID returns the full history, newest first.
func (r *moduleVersionRepo) ListByModuleID(dbc dbctx.Context, moduleID uuid.UUID) ([]*types.ModuleVersion, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ModuleVersion
	if err := transaction.WithContext(dbc.Ctx).
		Where("module_id = ?", moduleID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ListSummariesByModuleID answers "list versions for module" without loading
// the file manifests.
func (r *moduleVersionRepo) ListSummariesByModuleID(dbc dbctx.Context, moduleID uuid.UUID) ([]types.VersionSummary, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []types.VersionSummary
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.ModuleVersion{}).
		Select("id", "module_id", "version_number", "status", "module_name",
			"change_summary", "file_count", "total_bytes", "checksum",
			"created_by", "created_at").
		Where("module_id = ?", moduleID).
		Order("created_at DESC").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *moduleVersionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, fields map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()

	res := transaction.WithContext(dbc.Ctx).
		Model(&types.ModuleVersion{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FullDeleteArchivedByModuleID physically removes archived versions. This is
// destructive and non-reversible.
func (r *moduleVersionRepo) FullDeleteArchivedByModuleID(dbc dbctx.Context, moduleID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(dbc.Ctx).
		Where("module_id = ? AND status = ?", moduleID, types.VersionStatusArchived).
		Delete(&types.ModuleVersion{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
