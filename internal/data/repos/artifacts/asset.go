package artifacts

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/splitlab/splitlab-backend/internal/domain"
	"github.com/splitlab/splitlab-backend/internal/platform/dbctx"
	"github.com/splitlab/splitlab-backend/internal/platform/logger"
)

type AssetRepo interface {
	Create(dbc dbctx.Context, assets []*types.Asset) ([]*types.Asset, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Asset, error)
	ListBySplitID(dbc dbctx.Context, splitID uuid.UUID) ([]*types.Asset, error)
	ListBySplitIDAndKind(dbc dbctx.Context, splitID uuid.UUID, kind string) ([]*types.Asset, error)
	SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
	FullDeleteBySplitIDs(dbc dbctx.Context, splitIDs []uuid.UUID) error
}

type assetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssetRepo(db *gorm.DB, baseLog *logger.Logger) AssetRepo {
	repoLog := baseLog.With("repo", "AssetRepo")
	return &assetRepo{db: db, log: repoLog}
}

func (r *assetRepo) Create(dbc dbctx.Context, assets []*types.Asset) ([]*types.Asset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(assets) == 0 {
		return []*types.Asset{}, nil
	}

	if err := transaction.WithContext(dbc.Ctx).Create(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

func (r *assetRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Asset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Asset
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

// ListBySplitID returns assets ordered by order_index ascending (nulls
// last), then creation time. The crop engine relies on this ordering to
// mirror section submission order.
func (r *assetRepo) ListBySplitID(dbc dbctx.Context, splitID uuid.UUID) ([]*types.Asset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Asset
	if err := transaction.WithContext(dbc.Ctx).
		Where("split_id = ?", splitID).
		Order("order_index IS NULL, order_index ASC, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *assetRepo) ListBySplitIDAndKind(dbc dbctx.Context, splitID uuid.UUID, kind string) ([]*types.Asset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Asset
	if err := transaction.WithContext(dbc.Ctx).
		Where("split_id = ? AND kind = ?", splitID, kind).
		Order("order_index IS NULL, order_index ASC, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *assetRepo) SoftDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(ids) == 0 {
		return nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Delete(&types.Asset{}).Error; err != nil {
		return err
	}
	return nil
}

func (r *assetRepo) FullDeleteBySplitIDs(dbc dbctx.Context, splitIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if len(splitIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Unscoped().
		Where("split_id IN ?", splitIDs).
		Delete(&types.Asset{}).Error; err != nil {
		return err
	}
	return nil
}
