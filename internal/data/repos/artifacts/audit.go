package artifacts

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/splitlab/splitlab-backend/internal/domain"
	"github.com/splitlab/splitlab-backend/internal/platform/dbctx"
	"github.com/splitlab/splitlab-backend/internal/platform/logger"
)

// The three audit tables share one repo shape: create, list by split, and
// detach. Detaching nulls the split reference so the rows survive the
// upload cascade delete.

type TestRunRepo interface {
	Create(dbc dbctx.Context, run *types.TestRun) (*types.TestRun, error)
	ListBySplitID(dbc dbctx.Context, splitID uuid.UUID) ([]*types.TestRun, error)
	DetachBySplitIDs(dbc dbctx.Context, splitIDs []uuid.UUID) error
}

type ReviewFeedbackRepo interface {
	Create(dbc dbctx.Context, fb *types.ReviewFeedback) (*types.ReviewFeedback, error)
	ListBySplitID(dbc dbctx.Context, splitID uuid.UUID) ([]*types.ReviewFeedback, error)
	DetachBySplitIDs(dbc dbctx.Context, splitIDs []uuid.UUID) error
}

type ValidationRecordRepo interface {
	Create(dbc dbctx.Context, rec *types.ValidationRecord) (*types.ValidationRecord, error)
	ListBySplitID(dbc dbctx.Context, splitID uuid.UUID) ([]*types.ValidationRecord, error)
	DetachBySplitIDs(dbc dbctx.Context, splitIDs []uuid.UUID) error
}

type testRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTestRunRepo(db *gorm.DB, baseLog *logger.Logger) TestRunRepo {
	return &testRunRepo{db: db, log: baseLog.With("repo", "TestRunRepo")}
}

func (r *testRunRepo) Create(dbc dbctx.Context, run *types.TestRun) (*types.TestRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *testRunRepo) ListBySplitID(dbc dbctx.Context, splitID uuid.UUID) ([]*types.TestRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.TestRun
	if err := transaction.WithContext(dbc.Ctx).
		Where("split_id = ?", splitID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *testRunRepo) DetachBySplitIDs(dbc dbctx.Context, splitIDs []uuid.UUID) error {
	return detachBySplitIDs(dbc, r.db, &types.TestRun{}, splitIDs)
}

type reviewFeedbackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewFeedbackRepo(db *gorm.DB, baseLog *logger.Logger) ReviewFeedbackRepo {
	return &reviewFeedbackRepo{db: db, log: baseLog.With("repo", "ReviewFeedbackRepo")}
}

func (r *reviewFeedbackRepo) Create(dbc dbctx.Context, fb *types.ReviewFeedback) (*types.ReviewFeedback, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(fb).Error; err != nil {
		return nil, err
	}
	return fb, nil
}

func (r *reviewFeedbackRepo) ListBySplitID(dbc dbctx.Context, splitID uuid.UUID) ([]*types.ReviewFeedback, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ReviewFeedback
	if err := transaction.WithContext(dbc.Ctx).
		Where("split_id = ?", splitID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *reviewFeedbackRepo) DetachBySplitIDs(dbc dbctx.Context, splitIDs []uuid.UUID) error {
	return detachBySplitIDs(dbc, r.db, &types.ReviewFeedback{}, splitIDs)
}

type validationRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewValidationRecordRepo(db *gorm.DB, baseLog *logger.Logger) ValidationRecordRepo {
	return &validationRecordRepo{db: db, log: baseLog.With("repo", "ValidationRecordRepo")}
}

func (r *validationRecordRepo) Create(dbc dbctx.Context, rec *types.ValidationRecord) (*types.ValidationRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(dbc.Ctx).Create(rec).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *validationRecordRepo) ListBySplitID(dbc dbctx.Context, splitID uuid.UUID) ([]*types.ValidationRecord, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ValidationRecord
	if err := transaction.WithContext(dbc.Ctx).
		Where("split_id = ?", splitID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *validationRecordRepo) DetachBySplitIDs(dbc dbctx.Context, splitIDs []uuid.UUID) error {
	return detachBySplitIDs(dbc, r.db, &types.ValidationRecord{}, splitIDs)
}

func detachBySplitIDs(dbc dbctx.Context, fallback *gorm.DB, model interface{}, splitIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = fallback
	}

	if len(splitIDs) == 0 {
		return nil
	}

	if err := transaction.WithContext(dbc.Ctx).
		Model(model).
		Where("split_id IN ?", splitIDs).
		Updates(map[string]interface{}{
			"split_id":   nil,
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
		return err
	}
	return nil
}
