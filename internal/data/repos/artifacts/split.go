package artifacts

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/splitlab/splitlab-backend/internal/domain"
	"github.com/splitlab/splitlab-backend/internal/platform/dbctx"
	"github.com/splitlab/splitlab-backend/internal/platform/logger"
)

// RecentSplitsCap bounds ListRecent regardless of the requested limit.
const (
	RecentSplitsCap     = 100
	RecentSplitsDefault = 20
)

type SplitRepo interface {
	Create(dbc dbctx.Context, split *types.Split) (*types.Split, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Split, error)
	GetByUploadIDs(dbc dbctx.Context, uploadIDs []uuid.UUID) ([]*types.Split, error)
	UpdateStatus(dbc dbctx.Context, id uuid.UUID, status string) error
	MergeMetrics(dbc dbctx.Context, id uuid.UUID, partial map[string]interface{}) (*types.Split, error)
	ListRecent(dbc dbctx.Context, limit int) ([]*types.Split, error)
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type splitRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSplitRepo(db *gorm.DB, baseLog *logger.Logger) SplitRepo {
	repoLog := baseLog.With("repo", "SplitRepo")
	return &splitRepo{db: db, log: repoLog}
}

func (r *splitRepo) Create(dbc dbctx.Context, split *types.Split) (*types.Split, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if split.Status == "" {
		split.Status = types.SplitStatusProcessing
	}

	if err := transaction.WithContext(dbc.Ctx).Create(split).Error; err != nil {
		return nil, err
	}
	return split, nil
}

func (r *splitRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Split, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.Split
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *splitRepo) GetByUploadIDs(dbc dbctx.Context, uploadIDs []uuid.UUID) ([]*types.Split, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Split
	if len(uploadIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Where("upload_id IN ?", uploadIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// UpdateStatus overwrites the status field only. There is deliberately no
// forward-only transition guard: the analysis runner re-drives splits, so a
// completed split may legally go back to processing. Backward transitions
// are logged at warn by the service layer.
func (r *splitRepo) UpdateStatus(dbc dbctx.Context, id uuid.UUID, status string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Split{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MergeMetrics shallow-merges partial into the split's metrics map: keys in
// partial overwrite same-named keys, all other keys are untouched.
func (r *splitRepo) MergeMetrics(dbc dbctx.Context, id uuid.UUID, partial map[string]interface{}) (*types.Split, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	var split types.Split
	if err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&split).Error; err != nil {
		return nil, err
	}

	merged := map[string]interface{}{}
	for k, v := range split.Metrics {
		merged[k] = v
	}
	for k, v := range partial {
		merged[k] = v
	}
	split.Metrics = merged

	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Split{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"metrics":    split.Metrics,
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
		return nil, err
	}
	return &split, nil
}

func (r *splitRepo) ListRecent(dbc dbctx.Context, limit int) ([]*types.Split, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}

	if limit <= 0 {
		limit = RecentSplitsDefault
	}
	if limit > RecentSplitsCap {
		limit = RecentSplitsCap
	}

	var results []*types.Split
	if err := transaction.WithContext(dbc.Ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *splitRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
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
		Delete(&types.Split{}).Error; err != nil {
		return err
	}
	return nil
}
