package services

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/splitlab/splitlab-backend/internal/data/repos"
	types "github.com/splitlab/splitlab-backend/internal/domain"
	pkgerrors "github.com/splitlab/splitlab-backend/internal/pkg/errors"
	"github.com/splitlab/splitlab-backend/internal/platform/dbctx"
	"github.com/splitlab/splitlab-backend/internal/platform/logger"
)

// ArtifactService is the lifecycle layer over uploads, splits and assets.
type ArtifactService interface {
	GetUpload(dbc dbctx.Context, id uuid.UUID) (*types.Upload, error)
	CreateSplit(dbc dbctx.Context, uploadID uuid.UUID, status string, metrics map[string]interface{}, projectID *uuid.UUID) (*types.Split, error)
	GetSplit(dbc dbctx.Context, id uuid.UUID) (*types.Split, error)
	UpdateSplitStatus(dbc dbctx.Context, id uuid.UUID, status string) error
	MergeSplitMetrics(dbc dbctx.Context, id uuid.UUID, partial map[string]interface{}) (*types.Split, error)
	CreateAsset(dbc dbctx.Context, splitID uuid.UUID, kind string, storageKey *string, meta map[string]interface{}, order *int) (*types.Asset, error)
	ListAssets(dbc dbctx.Context, splitID uuid.UUID) ([]*types.Asset, error)
	ListRecentSplits(dbc dbctx.Context, limit int) ([]*types.Split, error)
	DeleteUploadCascade(dbc dbctx.Context, uploadID uuid.UUID) error
}

type artifactService struct {
	db  *gorm.DB
	log *logger.Logger

	uploadRepo           repos.UploadRepo
	splitRepo            repos.SplitRepo
	assetRepo            repos.AssetRepo
	testRunRepo          repos.TestRunRepo
	reviewFeedbackRepo   repos.ReviewFeedbackRepo
	validationRecordRepo repos.ValidationRecordRepo
}

func NewArtifactService(
	db *gorm.DB,
	baseLog *logger.Logger,
	uploadRepo repos.UploadRepo,
	splitRepo repos.SplitRepo,
	assetRepo repos.AssetRepo,
	testRunRepo repos.TestRunRepo,
	reviewFeedbackRepo repos.ReviewFeedbackRepo,
	validationRecordRepo repos.ValidationRecordRepo,
) ArtifactService {
	serviceLog := baseLog.With("service", "ArtifactService")
	return &artifactService{
		db:                   db,
		log:                  serviceLog,
		uploadRepo:           uploadRepo,
		splitRepo:            splitRepo,
		assetRepo:            assetRepo,
		testRunRepo:          testRunRepo,
		reviewFeedbackRepo:   reviewFeedbackRepo,
		validationRecordRepo: validationRecordRepo,
	}
}

func (s *artifactService) GetUpload(dbc dbctx.Context, id uuid.UUID) (*types.Upload, error) {
	upload, err := s.uploadRepo.GetByID(dbc, id)
	if err != nil {
		return nil, mapDBErr(err)
	}
	return upload, nil
}

func (s *artifactService) CreateSplit(dbc dbctx.Context, uploadID uuid.UUID, status string, metrics map[string]interface{}, projectID *uuid.UUID) (*types.Split, error) {
	if status != "" && !types.ValidSplitStatus(status) {
		return nil, fmt.Errorf("%w: unknown split status %q", pkgerrors.ErrInvalidArgument, status)
	}

	if _, err := s.uploadRepo.GetByID(dbc, uploadID); err != nil {
		return nil, mapDBErr(err)
	}

	split := &types.Split{
		ID:        uuid.New(),
		UploadID:  uploadID,
		Status:    status,
		Metrics:   metrics,
		ProjectID: projectID,
	}
	if _, err := s.splitRepo.Create(dbc, split); err != nil {
		return nil, mapDBErr(err)
	}
	return split, nil
}

func (s *artifactService) GetSplit(dbc dbctx.Context, id uuid.UUID) (*types.Split, error) {
	split, err := s.splitRepo.GetByID(dbc, id)
	if err != nil {
		return nil, mapDBErr(err)
	}
	return split, nil
}

func (s *artifactService) UpdateSplitStatus(dbc dbctx.Context, id uuid.UUID, status string) error {
	if !types.ValidSplitStatus(status) {
		return fmt.Errorf("%w: unknown split status %q", pkgerrors.ErrInvalidArgument, status)
	}

	current, err := s.splitRepo.GetByID(dbc, id)
	if err != nil {
		return mapDBErr(err)
	}
	if types.TerminalSplitStatus(current.Status) && current.Status != status {
		s.log.Warn("split leaving terminal status",
			"split_id", id,
			"from", current.Status,
			"to", status,
		)
	}

	if err := s.splitRepo.UpdateStatus(dbc, id, status); err != nil {
		return mapDBErr(err)
	}
	return nil
}

func (s *artifactService) MergeSplitMetrics(dbc dbctx.Context, id uuid.UUID, partial map[string]interface{}) (*types.Split, error) {
	split, err := s.splitRepo.MergeMetrics(dbc, id, partial)
	if err != nil {
		return nil, mapDBErr(err)
	}
	return split, nil
}

func (s *artifactService) CreateAsset(dbc dbctx.Context, splitID uuid.UUID, kind string, storageKey *string, meta map[string]interface{}, order *int) (*types.Asset, error) {
	if _, err := s.splitRepo.GetByID(dbc, splitID); err != nil {
		return nil, mapDBErr(err)
	}

	asset := &types.Asset{
		ID:         uuid.New(),
		SplitID:    splitID,
		Kind:       kind,
		StorageKey: storageKey,
		Metadata:   meta,
		OrderIndex: order,
	}
	created, err := s.assetRepo.Create(dbc, []*types.Asset{asset})
	if err != nil {
		return nil, mapDBErr(err)
	}
	return created[0], nil
}

func (s *artifactService) ListAssets(dbc dbctx.Context, splitID uuid.UUID) ([]*types.Asset, error) {
	assets, err := s.assetRepo.ListBySplitID(dbc, splitID)
	if err != nil {
		return nil, mapDBErr(err)
	}
	return assets, nil
}

func (s *artifactService) ListRecentSplits(dbc dbctx.Context, limit int) ([]*types.Split, error) {
	splits, err := s.splitRepo.ListRecent(dbc, limit)
	if err != nil {
		return nil, mapDBErr(err)
	}
	return splits, nil
}

// DeleteUploadCascade removes an upload and everything under it in one
// transaction. Phase 1 detaches audit-relevant rows (test runs, review
// feedback, validation records) by nulling their split reference so history
// survives; phase 2 deletes assets, then splits, then the upload.
func (s *artifactService) DeleteUploadCascade(dbc dbctx.Context, uploadID uuid.UUID) error {
	if _, err := s.uploadRepo.GetByID(dbc, uploadID); err != nil {
		return mapDBErr(err)
	}

	outer := dbc.Tx
	if outer == nil {
		outer = s.db
	}

	err := outer.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}

		splits, err := s.splitRepo.GetByUploadIDs(txc, []uuid.UUID{uploadID})
		if err != nil {
			return err
		}
		splitIDs := make([]uuid.UUID, 0, len(splits))
		for _, sp := range splits {
			splitIDs = append(splitIDs, sp.ID)
		}

		if err := s.testRunRepo.DetachBySplitIDs(txc, splitIDs); err != nil {
			return err
		}
		if err := s.reviewFeedbackRepo.DetachBySplitIDs(txc, splitIDs); err != nil {
			return err
		}
		if err := s.validationRecordRepo.DetachBySplitIDs(txc, splitIDs); err != nil {
			return err
		}

		if err := s.assetRepo.FullDeleteBySplitIDs(txc, splitIDs); err != nil {
			return err
		}
		if err := s.splitRepo.FullDeleteByIDs(txc, splitIDs); err != nil {
			return err
		}
		return s.uploadRepo.FullDeleteByIDs(txc, []uuid.UUID{uploadID})
	})
	if err != nil {
		return mapDBErr(err)
	}

	s.log.Info("upload cascade delete complete", "upload_id", uploadID)
	return nil
}
