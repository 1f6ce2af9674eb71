package artifacts

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/splitlab/splitlab-backend/internal/domain"
	"github.com/splitlab/splitlab-backend/internal/platform/dbctx"
	"github.com/splitlab/splitlab-backend/internal/platform/logger"
)

type UploadRepo interface {
	Create(dbc dbctx.Context, upload *types.Upload) (*types.Upload, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Upload, error)
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type uploadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUploadRepo(db *gorm.DB, baseLog *logger.Logger) UploadRepo {
	repoLog := baseLog.With("repo", "UploadRepo")
	return &uploadRepo{db: db, log: repoLog}
}

func (r *uploadRepo) Create(dbc dbctx.Context, upload *types.Upload) (*types.Upload, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(dbc.Ctx).Create(upload).Error; err != nil {
		return nil, err
	}
	return upload, nil
}

func (r *uploadRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Upload, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Upload
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *uploadRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(ids) == 0 {
		return nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("id IN ?", ids).
		Delete(&types.Upload{}).Error; err != nil {
		return err
	}
	return nil
}
